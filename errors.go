package icongen

import (
	"errors"
	"fmt"
)

var (
	ErrEnvironment      = errors.New("build environment")
	ErrInvalidSource    = errors.New("invalid svg source")
	ErrAllocate         = errors.New("cannot allocate raster")
	ErrEncode           = errors.New("cannot encode icon entry")
	ErrInvalidContainer = errors.New("invalid icon container")
	ErrManifestMissing  = errors.New("manifest not found")
)

// StageError records which pipeline stage failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}
