package icongen

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/josephspurrier/goversioninfo"
)

// ManifestMode says what to do when the descriptor names a manifest that
// does not exist.
type ManifestMode int

const (
	ManifestOptional ManifestMode = iota
	ManifestRequired
)

func (m ManifestMode) String() string {
	if m == ManifestRequired {
		return "required"
	}
	return "optional"
}

// BuildHost is what the pipeline needs from the build system driving it.
type BuildHost interface {
	// DeclareDependency registers an input whose change must re-run the
	// pipeline.
	DeclareDependency(path string)

	// CompileResource compiles the resource descriptor into something the
	// linker picks up.
	CompileResource(descriptorPath string, mode ManifestMode) error

	// Warnf emits an informational notice to the build output.
	Warnf(format string, args ...any)
}

// SysoHost compiles goversioninfo descriptors into a COFF object named
// rsrc_windows_<arch>.syso, which `go build` links automatically.
//
// Declared dependencies are written next to the object as a Make-style
// depfile.
type SysoHost struct {
	// Arch is the GOARCH the object is built for.
	Arch string
	// OutputDir receives the .syso file.
	OutputDir string
	// IconDir is where relative icon paths in the descriptor resolve.
	IconDir string
	// IconPath is used when the descriptor names no icon.
	IconPath string
	// Version, when set, overrides the descriptor's file and product version.
	Version string

	Logger *log.Logger

	deps []string
}

// NewSysoHost returns a host configured from cfg.
func NewSysoHost(cfg Config, logger *log.Logger) *SysoHost {
	return &SysoHost{
		Arch:      cfg.TargetArch,
		OutputDir: cfg.SysoDir,
		IconDir:   cfg.OutDir,
		IconPath:  cfg.ContainerPath(),
		Version:   cfg.Version,
		Logger:    logger,
	}
}

// SysoName returns the object file name for arch.
func SysoName(arch string) string {
	return fmt.Sprintf("rsrc_windows_%s.syso", arch)
}

// Dependencies returns the declared dependencies in declaration order.
func (h *SysoHost) Dependencies() []string {
	return h.deps
}

func (h *SysoHost) DeclareDependency(path string) {
	for _, d := range h.deps {
		if d == path {
			return
		}
	}
	h.deps = append(h.deps, path)
}

func (h *SysoHost) Warnf(format string, args ...any) {
	h.logf("warning: "+format, args...)
}

func (h *SysoHost) CompileResource(descriptorPath string, mode ManifestMode) error {
	data, err := os.ReadFile(descriptorPath)
	if err != nil {
		return fmt.Errorf("read descriptor: %w", err)
	}
	vi := &goversioninfo.VersionInfo{}
	if err := vi.ParseJSON(data); err != nil {
		return fmt.Errorf("parse descriptor %s: %w", descriptorPath, err)
	}

	switch {
	case vi.IconPath == "":
		vi.IconPath = h.IconPath
	case !filepath.IsAbs(vi.IconPath):
		vi.IconPath = filepath.Join(h.IconDir, vi.IconPath)
	}

	if vi.ManifestPath != "" {
		if !filepath.IsAbs(vi.ManifestPath) {
			vi.ManifestPath = filepath.Join(filepath.Dir(descriptorPath), vi.ManifestPath)
		}
		if _, err := os.Stat(vi.ManifestPath); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("stat manifest: %w", err)
			}
			if mode == ManifestRequired {
				return fmt.Errorf("%w: %s", ErrManifestMissing, vi.ManifestPath)
			}
			h.logf("manifest %s not found, continuing without it", vi.ManifestPath)
			vi.ManifestPath = ""
		}
	}

	if h.Version != "" {
		if err := h.stampVersion(vi); err != nil {
			return err
		}
	}

	vi.Build()
	vi.Walk()

	if err := os.MkdirAll(h.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create syso dir: %w", err)
	}
	out := filepath.Join(h.OutputDir, SysoName(h.Arch))
	if err := vi.WriteSyso(out, h.Arch); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	if err := h.writeDepfile(out); err != nil {
		return err
	}
	h.logf("wrote %s", out)
	return nil
}

func (h *SysoHost) stampVersion(vi *goversioninfo.VersionInfo) error {
	version := h.Version
	if version == "git" {
		version = DetectVersion()
	}
	fv, err := ParseVersion(version)
	if err != nil {
		return err
	}
	vi.FixedFileInfo.FileVersion = fv
	vi.FixedFileInfo.ProductVersion = fv
	vi.StringFileInfo.FileVersion = version
	vi.StringFileInfo.ProductVersion = version
	return nil
}

// writeDepfile lists the declared dependencies of target in Make syntax.
func (h *SysoHost) writeDepfile(target string) error {
	var b strings.Builder
	b.WriteString(escapeMakePath(target))
	b.WriteString(":")
	for _, d := range h.deps {
		b.WriteString(" \\\n  ")
		b.WriteString(escapeMakePath(d))
	}
	b.WriteString("\n")
	if err := os.WriteFile(target+".d", []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write depfile: %w", err)
	}
	return nil
}

func escapeMakePath(p string) string {
	p = filepath.ToSlash(p)
	p = strings.ReplaceAll(p, "$", "$$")
	return strings.ReplaceAll(p, " ", `\ `)
}

func (h *SysoHost) logf(format string, args ...any) {
	if h.Logger == nil {
		return
	}
	h.Logger.Printf(format, args...)
}
