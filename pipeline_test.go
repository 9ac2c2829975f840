package icongen_test

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icedream/icongen"
)

type compileCall struct {
	descriptor string
	mode       icongen.ManifestMode
}

type fakeHost struct {
	deps     []string
	compiled []compileCall
	warnings []string
	err      error
}

func (h *fakeHost) DeclareDependency(path string) { h.deps = append(h.deps, path) }

func (h *fakeHost) CompileResource(descriptor string, mode icongen.ManifestMode) error {
	h.compiled = append(h.compiled, compileCall{descriptor, mode})
	return h.err
}

func (h *fakeHost) Warnf(format string, args ...any) {
	h.warnings = append(h.warnings, fmt.Sprintf(format, args...))
}

func newTestPipeline(t *testing.T, goos string) (*icongen.Pipeline, *fakeHost) {
	t.Helper()
	dir := t.TempDir()
	source := filepath.Join(dir, "logo.svg")
	require.NoError(t, os.WriteFile(source, loadFixture(t, "logo.svg"), 0o644))

	cfg := icongen.Config{
		TargetOS:      goos,
		TargetArch:    "amd64",
		Source:        source,
		Descriptor:    filepath.Join(dir, "versioninfo.json"),
		OutDir:        filepath.Join(dir, "out"),
		SysoDir:       dir,
		ReferenceSize: 64,
	}
	host := &fakeHost{}
	return icongen.New(cfg, host, icongen.NewLogger(&bytes.Buffer{})), host
}

// countingGenerate wraps GenerateContainer and counts its calls.
func countingGenerate(calls *int) icongen.GenerateFunc {
	return func(data []byte, path string) error {
		*calls++
		return icongen.GenerateContainer(data, path, icongen.RasterOptions{ReferenceSize: 64})
	}
}

func TestPipeline_NonWindowsTarget(t *testing.T) {
	for _, goos := range []string{"linux", "darwin", "js"} {
		p, host := newTestPipeline(t, goos)
		var calls int
		p.Generate = countingGenerate(&calls)

		res, err := p.Run()
		require.NoError(t, err)
		assert.Equal(t, icongen.StateSkipped, res.State)
		assert.Equal(t, []icongen.State{icongen.StateStart, icongen.StateGateChecked, icongen.StateSkipped}, res.Trace)
		assert.False(t, res.Regenerated)

		assert.Zero(t, calls)
		assert.Empty(t, host.compiled)
		assert.Equal(t, []string{p.Config.Source, p.Config.Descriptor}, host.deps)
		assert.NoFileExists(t, p.Config.RecordPath())
		assert.NoFileExists(t, p.Config.ContainerPath())
		assert.NoDirExists(t, p.Config.OutDir)
	}
}

func TestPipeline_MissingTarget(t *testing.T) {
	p, host := newTestPipeline(t, "")
	res, err := p.Run()

	var stageErr *icongen.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, icongen.StageGate, stageErr.Stage)
	assert.ErrorIs(t, err, icongen.ErrEnvironment)
	assert.Equal(t, icongen.StateAborted, res.State)
	assert.Empty(t, host.compiled)
}

func TestPipeline_FirstRun(t *testing.T) {
	p, host := newTestPipeline(t, "windows")

	res, err := p.Run()
	require.NoError(t, err)

	digest, err := icongen.FileDigest(p.Config.Source)
	require.NoError(t, err)

	assert.Equal(t, icongen.StateDone, res.State)
	assert.Equal(t, []icongen.State{
		icongen.StateStart, icongen.StateGateChecked, icongen.StateHashComputed,
		icongen.StateRegenerated, icongen.StateEmbedded, icongen.StateDone,
	}, res.Trace)
	assert.True(t, res.Regenerated)
	assert.Equal(t, digest, res.Digest)

	record, err := os.ReadFile(p.Config.RecordPath())
	require.NoError(t, err)
	assert.Equal(t, string(digest), string(record))

	require.NoError(t, icongen.VerifyContainer(p.Config.ContainerPath()))

	assert.Equal(t, []compileCall{{p.Config.Descriptor, icongen.ManifestOptional}}, host.compiled)
	assert.Equal(t, []string{"regenerated icon at " + p.Config.ContainerPath()}, host.warnings)
}

func TestPipeline_UpToDate(t *testing.T) {
	p, _ := newTestPipeline(t, "windows")
	_, err := p.Run()
	require.NoError(t, err)

	before, err := os.ReadFile(p.Config.ContainerPath())
	require.NoError(t, err)

	host := &fakeHost{}
	p.Host = host
	var calls int
	p.Generate = countingGenerate(&calls)

	res, err := p.Run()
	require.NoError(t, err)
	assert.Equal(t, icongen.StateDone, res.State)
	assert.Contains(t, res.Trace, icongen.StateUpToDate)
	assert.False(t, res.Regenerated)
	assert.Zero(t, calls)
	assert.Empty(t, host.warnings)
	assert.Len(t, host.compiled, 1)

	after, err := os.ReadFile(p.Config.ContainerPath())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestPipeline_SourceChanged(t *testing.T) {
	p, host := newTestPipeline(t, "windows")
	require.NoError(t, icongen.NewCacheStore(p.Config.RecordPath()).Save("0000"))

	digest, err := icongen.FileDigest(p.Config.Source)
	require.NoError(t, err)

	var calls int
	p.Generate = func(data []byte, path string) error {
		calls++
		// The new digest is recorded before the container is written.
		record, err := os.ReadFile(p.Config.RecordPath())
		require.NoError(t, err)
		assert.Equal(t, string(digest), string(record))
		assert.NoFileExists(t, path)
		return icongen.GenerateContainer(data, path, icongen.RasterOptions{ReferenceSize: 64})
	}

	res, err := p.Run()
	require.NoError(t, err)
	assert.True(t, res.Regenerated)
	assert.Equal(t, 1, calls)
	assert.Len(t, host.compiled, 1)
	require.NoError(t, icongen.VerifyContainer(p.Config.ContainerPath()))
}

func TestPipeline_GeneratesFromHashedBytes(t *testing.T) {
	p, _ := newTestPipeline(t, "windows")
	original := loadFixture(t, "logo.svg")

	p.Generate = func(data []byte, path string) error {
		// A later edit of the source must not leak into this run.
		require.NoError(t, os.WriteFile(p.Config.Source, loadFixture(t, "text.svg"), 0o644))
		assert.Equal(t, original, data)
		return icongen.GenerateContainer(data, path, icongen.RasterOptions{ReferenceSize: 64})
	}

	res, err := p.Run()
	require.NoError(t, err)
	assert.Equal(t, icongen.BytesDigest(original), res.Digest)

	record, err := os.ReadFile(p.Config.RecordPath())
	require.NoError(t, err)
	assert.Equal(t, string(icongen.BytesDigest(original)), string(record))
}

func TestPipeline_MissingSource(t *testing.T) {
	p, host := newTestPipeline(t, "windows")
	require.NoError(t, os.Remove(p.Config.Source))

	res, err := p.Run()
	var stageErr *icongen.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, icongen.StageHash, stageErr.Stage)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Contains(t, err.Error(), "hash: ")
	assert.Equal(t, icongen.StateAborted, res.State)

	assert.NoDirExists(t, p.Config.OutDir)
	assert.Empty(t, host.compiled)
}

func TestPipeline_InvalidSource(t *testing.T) {
	p, host := newTestPipeline(t, "windows")
	require.NoError(t, os.WriteFile(p.Config.Source, loadFixture(t, "broken.svg"), 0o644))

	res, err := p.Run()
	var stageErr *icongen.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, icongen.StageGenerate, stageErr.Stage)
	assert.ErrorIs(t, err, icongen.ErrInvalidSource)
	assert.Equal(t, icongen.StateAborted, res.State)
	assert.NotContains(t, res.Trace, icongen.StateRegenerated)

	assert.NoFileExists(t, p.Config.ContainerPath())
	assert.Empty(t, host.compiled)
	assert.Empty(t, host.warnings)
}

func TestPipeline_EmbedFailure(t *testing.T) {
	p, host := newTestPipeline(t, "windows")
	host.err = errors.New("resource compiler exploded")

	res, err := p.Run()
	var stageErr *icongen.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, icongen.StageEmbed, stageErr.Stage)
	assert.Same(t, host.err, stageErr.Err)
	assert.Equal(t, "embed: resource compiler exploded", err.Error())
	assert.Equal(t, icongen.StateAborted, res.State)
	assert.NotContains(t, res.Trace, icongen.StateEmbedded)
}

func TestPipeline_VerifyCache(t *testing.T) {
	p, _ := newTestPipeline(t, "windows")
	_, err := p.Run()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(p.Config.ContainerPath(), []byte("garbage"), 0o644))

	var calls int
	p.Generate = countingGenerate(&calls)

	// Trusted by default.
	res, err := p.Run()
	require.NoError(t, err)
	assert.False(t, res.Regenerated)
	assert.Zero(t, calls)

	p.Config.VerifyCache = true
	res, err = p.Run()
	require.NoError(t, err)
	assert.True(t, res.Regenerated)
	assert.Equal(t, 1, calls)
	require.NoError(t, icongen.VerifyContainer(p.Config.ContainerPath()))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "up-to-date", icongen.StateUpToDate.String())
	assert.Equal(t, "aborted", icongen.StateAborted.String())
	assert.Equal(t, "state(42)", icongen.State(42).String())
}
