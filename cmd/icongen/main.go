// Package main runs the icon pipeline. It's the CLI entrypoint, meant to be
// called from a //go:generate line.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/icedream/icongen"
)

// Build information set by goreleaser
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var flags struct {
	source           string
	descriptor       string
	outDir           string
	sysoDir          string
	referenceSize    float64
	strictSVG        bool
	verifyCache      bool
	manifestRequired bool
	stampVersion     string
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&flags.source, "source", "", "SVG source of the icon (env ICONGEN_SOURCE)")
	f.StringVar(&flags.descriptor, "descriptor", "", "goversioninfo resource descriptor (env ICONGEN_DESCRIPTOR)")
	f.StringVar(&flags.outDir, "out-dir", "", "directory for the generated icon and its cache record (env ICONGEN_OUT_DIR)")
	f.StringVar(&flags.sysoDir, "syso-dir", "", "package directory receiving the .syso file (env ICONGEN_SYSO_DIR)")
	f.Float64Var(&flags.referenceSize, "reference-size", 0, "SVG edge length rendered at scale 1, 0 uses the viewBox (env ICONGEN_REFERENCE_SIZE)")
	f.BoolVar(&flags.strictSVG, "strict", false, "reject unsupported SVG elements (env ICONGEN_STRICT_SVG)")
	f.BoolVar(&flags.verifyCache, "verify-cache", false, "check the cached icon before reusing it (env ICONGEN_VERIFY_CACHE)")
	f.BoolVar(&flags.manifestRequired, "manifest-required", false, "fail when the descriptor's manifest is missing (env ICONGEN_MANIFEST_REQUIRED)")
	f.StringVar(&flags.stampVersion, "stamp-version", "", `version to stamp into the resource, "git" reads the latest tag (env ICONGEN_VERSION)`)
}

var rootCmd = &cobra.Command{
	Use:           "icongen",
	Short:         "Generate a Windows icon from an SVG and link it into the binary",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := icongen.LoadConfig(nil)
		if err != nil {
			return err
		}
		applyFlags(cmd, &cfg)

		logger := icongen.NewLogger(os.Stderr)
		host := icongen.NewSysoHost(cfg, logger)
		res, err := icongen.New(cfg, host, logger).Run()
		if err != nil {
			return err
		}
		if res.Regenerated {
			logger.Printf("icon digest %s", res.Digest)
		}
		return nil
	},
}

func applyFlags(cmd *cobra.Command, cfg *icongen.Config) {
	changed := cmd.Flags().Changed
	if changed("source") {
		cfg.Source = flags.source
	}
	if changed("descriptor") {
		cfg.Descriptor = flags.descriptor
	}
	if changed("out-dir") {
		cfg.OutDir = flags.outDir
	}
	if changed("syso-dir") {
		cfg.SysoDir = flags.sysoDir
	}
	if changed("reference-size") {
		cfg.ReferenceSize = flags.referenceSize
	}
	if changed("strict") {
		cfg.StrictSVG = flags.strictSVG
	}
	if changed("verify-cache") {
		cfg.VerifyCache = flags.verifyCache
	}
	if changed("manifest-required") {
		cfg.ManifestRequired = flags.manifestRequired
	}
	if changed("stamp-version") {
		cfg.Version = flags.stampVersion
	}
}

func main() {
	// Handle version flag before cobra processes it
	for _, arg := range os.Args {
		if arg == "-V" {
			fmt.Printf("icongen version %s, commit %s, built at %s\n", version, commit, date)
			os.Exit(0)
		}
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "icongen: %v\n", err)
		os.Exit(1)
	}
}
