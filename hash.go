package icongen

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// hashChunkSize bounds each read while hashing a file.
const hashChunkSize = 32 * 1024

// Digest is a lowercase hex SHA-256 of a source file.
type Digest string

// FileDigest streams the file at path through SHA-256.
func FileDigest(path string) (Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.CopyBuffer(h, f, make([]byte, hashChunkSize)); err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return Digest(hex.EncodeToString(h.Sum(nil))), nil
}

// BytesDigest hashes in-memory content the same way FileDigest hashes a file.
func BytesDigest(data []byte) Digest {
	sum := sha256.Sum256(data)
	return Digest(hex.EncodeToString(sum[:]))
}

// ReadDigest reads the file at path once, returning its content together
// with its digest.
func ReadDigest(path string) ([]byte, Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	h := sha256.New()
	if _, err := io.CopyBuffer(h, io.TeeReader(f, &buf), make([]byte, hashChunkSize)); err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}
	return buf.Bytes(), Digest(hex.EncodeToString(h.Sum(nil))), nil
}
