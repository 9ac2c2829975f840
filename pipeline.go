// Package icongen turns an SVG logo into a multi-resolution Windows icon
// and links it into the binary being built.
//
// It is meant to run from `go generate`. The icon container is rebuilt only
// when the SHA-256 of the SVG differs from the one recorded after the last
// generation; otherwise the container from the previous run is reused.
package icongen

import (
	"fmt"
	"io"
	"log"
)

// Stage names a step of a pipeline run.
type Stage string

const (
	StageGate     Stage = "gate"
	StageHash     Stage = "hash"
	StageCache    Stage = "cache"
	StageGenerate Stage = "generate"
	StageEmbed    Stage = "embed"
)

// State is the position of a run in the pipeline.
type State int

const (
	StateStart State = iota
	StateGateChecked
	StateSkipped
	StateHashComputed
	StateUpToDate
	StateRegenerated
	StateEmbedded
	StateDone
	StateAborted
)

var stateNames = [...]string{
	StateStart:        "start",
	StateGateChecked:  "gate-checked",
	StateSkipped:      "skipped",
	StateHashComputed: "hash-computed",
	StateUpToDate:     "up-to-date",
	StateRegenerated:  "regenerated",
	StateEmbedded:     "embedded",
	StateDone:         "done",
	StateAborted:      "aborted",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// GenerateFunc builds the icon container for the SVG in data and writes it
// to path.
type GenerateFunc func(data []byte, path string) error

// Result describes a finished run.
type Result struct {
	// State is StateDone, StateSkipped or StateAborted.
	State State
	// Trace lists every state the run passed through.
	Trace []State

	Digest        Digest
	Regenerated   bool
	ContainerPath string
}

func (r *Result) enter(s State) {
	r.State = s
	r.Trace = append(r.Trace, s)
}

// Pipeline sequences gate, hash, cache, generation and embedding.
type Pipeline struct {
	Config Config
	Host   BuildHost

	// Generate defaults to GenerateContainer with the configured raster
	// options.
	Generate GenerateFunc

	Logger *log.Logger
}

// New returns a pipeline that embeds through host.
func New(cfg Config, host BuildHost, logger *log.Logger) *Pipeline {
	return &Pipeline{Config: cfg, Host: host, Logger: logger}
}

// Run executes the pipeline once. Any failure aborts the run; the returned
// error is a *StageError naming the step that failed.
func (p *Pipeline) Run() (*Result, error) {
	res := &Result{ContainerPath: p.Config.ContainerPath()}
	res.enter(StateStart)

	if err := p.run(res); err != nil {
		res.enter(StateAborted)
		return res, err
	}
	return res, nil
}

func (p *Pipeline) run(res *Result) error {
	cfg := p.Config

	p.Host.DeclareDependency(cfg.Source)
	p.Host.DeclareDependency(cfg.Descriptor)

	if cfg.TargetOS == "" {
		return stageErr(StageGate, fmt.Errorf("%w: target operating system is not set", ErrEnvironment))
	}
	res.enter(StateGateChecked)
	if !NeedsIcon(cfg.TargetOS) {
		p.logf("target %s needs no icon", cfg.TargetOS)
		res.enter(StateSkipped)
		return nil
	}

	data, digest, err := ReadDigest(cfg.Source)
	if err != nil {
		return stageErr(StageHash, err)
	}
	res.Digest = digest
	res.enter(StateHashComputed)

	store := NewCacheStore(cfg.RecordPath())
	previous, found, err := store.Load()
	if err != nil {
		return stageErr(StageCache, err)
	}

	stale := ShouldRegenerate(digest, previous, found)
	if !stale && cfg.VerifyCache {
		if err := VerifyContainer(res.ContainerPath); err != nil {
			p.logf("cached icon %s is unusable (%v), regenerating", res.ContainerPath, err)
			stale = true
		}
	}

	if stale {
		if err := store.Save(digest); err != nil {
			return stageErr(StageCache, err)
		}
		if err := p.generate(data, res.ContainerPath); err != nil {
			return stageErr(StageGenerate, err)
		}
		p.Host.Warnf("regenerated icon at %s", res.ContainerPath)
		res.Regenerated = true
		res.enter(StateRegenerated)
	} else {
		p.logf("icon %s is up to date", res.ContainerPath)
		res.enter(StateUpToDate)
	}

	if err := p.Host.CompileResource(cfg.Descriptor, cfg.ManifestMode()); err != nil {
		return stageErr(StageEmbed, err)
	}
	res.enter(StateEmbedded)
	res.enter(StateDone)
	return nil
}

func (p *Pipeline) generate(data []byte, path string) error {
	gen := p.Generate
	if gen == nil {
		opts := p.Config.RasterOptions()
		gen = func(data []byte, path string) error {
			return GenerateContainer(data, path, opts)
		}
	}
	return gen(data, path)
}

func (p *Pipeline) logf(format string, args ...any) {
	if p.Logger == nil {
		return
	}
	p.Logger.Printf(format, args...)
}

// NewLogger returns the logger the command-line tool writes to.
func NewLogger(w io.Writer) *log.Logger {
	return log.New(w, "icongen: ", 0)
}
