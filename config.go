package icongen

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config is read from the environment `go generate` runs the tool in.
type Config struct {
	// TargetOS and TargetArch are set by `go generate`.
	TargetOS   string `env:"GOOS,required"`
	TargetArch string `env:"GOARCH" envDefault:"amd64"`

	Source     string `env:"ICONGEN_SOURCE" envDefault:"assets/logo.svg"`
	Descriptor string `env:"ICONGEN_DESCRIPTOR" envDefault:"versioninfo.json"`

	// OutDir holds the generated container and its cache record.
	OutDir string `env:"ICONGEN_OUT_DIR" envDefault:"build/icongen"`
	// SysoDir is the package directory the resource object is linked from.
	SysoDir string `env:"ICONGEN_SYSO_DIR" envDefault:"."`

	ReferenceSize    float64 `env:"ICONGEN_REFERENCE_SIZE" envDefault:"64"`
	StrictSVG        bool    `env:"ICONGEN_STRICT_SVG"`
	VerifyCache      bool    `env:"ICONGEN_VERIFY_CACHE"`
	ManifestRequired bool    `env:"ICONGEN_MANIFEST_REQUIRED"`

	// Version is stamped into the version resource. "git" reads it from
	// the latest tag; empty keeps what the descriptor says.
	Version string `env:"ICONGEN_VERSION"`
}

// LoadConfig parses the configuration from environ, or from the process
// environment when environ is nil.
func LoadConfig(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrEnvironment, err)
	}
	return cfg, nil
}

// ContainerPath is where the generated icon is written.
func (c Config) ContainerPath() string {
	base := filepath.Base(c.Source)
	return filepath.Join(c.OutDir, strings.TrimSuffix(base, filepath.Ext(base))+".ico")
}

// RecordPath is where the digest of the last generated source is kept.
func (c Config) RecordPath() string {
	return filepath.Join(c.OutDir, filepath.Base(c.Source)+".sha256")
}

// ManifestMode returns how a missing manifest is treated.
func (c Config) ManifestMode() ManifestMode {
	if c.ManifestRequired {
		return ManifestRequired
	}
	return ManifestOptional
}

// RasterOptions returns the rasterizer settings.
func (c Config) RasterOptions() RasterOptions {
	return RasterOptions{ReferenceSize: c.ReferenceSize, Strict: c.StrictSVG}
}
