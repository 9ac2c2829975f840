package icongen

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// CacheStore persists the digest of the source that produced the current
// icon container.
//
// A missing record means the container was never generated. The record is
// written right before regeneration starts, so a failed regeneration leaves
// a digest that matches the source; the next source change repairs it.
type CacheStore struct {
	Path string
}

// NewCacheStore returns a store keeping its record at path.
func NewCacheStore(path string) *CacheStore {
	return &CacheStore{Path: path}
}

// Load returns the stored digest. found is false on a first run.
func (c *CacheStore) Load() (d Digest, found bool, err error) {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read cache record: %w", err)
	}
	return Digest(strings.TrimSpace(string(data))), true, nil
}

// Save overwrites the stored digest.
func (c *CacheStore) Save(d Digest) error {
	if err := os.MkdirAll(filepath.Dir(c.Path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	if err := os.WriteFile(c.Path, []byte(d), 0o644); err != nil {
		return fmt.Errorf("write cache record: %w", err)
	}
	return nil
}

// ShouldRegenerate reports whether the container has to be rebuilt for
// current, given what Load returned.
func ShouldRegenerate(current, previous Digest, found bool) bool {
	return !found || previous != current
}
