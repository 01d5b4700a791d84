// Package fileutil provides filesystem helpers for spooling captured media
// payloads into the durable queue's payload directory.
package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// SpoolResult describes a payload written to durable storage.
type SpoolResult struct {
	Size   int64
	SHA256 string
}

// Spool streams src into dst atomically: bytes land in a temporary sibling
// file, are fsynced, and the file is renamed into place. On any failure the
// partial file is removed and dst is untouched.
func Spool(src io.Reader, dst string) (SpoolResult, error) {
	tmp := dst + ".part"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return SpoolResult{}, fmt.Errorf("create spool file: %w", err)
	}

	hasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(out, hasher), src)
	if err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return SpoolResult{}, fmt.Errorf("write payload: %w", err)
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return SpoolResult{}, fmt.Errorf("sync payload: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return SpoolResult{}, fmt.Errorf("close payload: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return SpoolResult{}, fmt.Errorf("finalize payload: %w", err)
	}
	return SpoolResult{Size: written, SHA256: hex.EncodeToString(hasher.Sum(nil))}, nil
}

// SpoolFile copies the file at src into dst with size integrity verification.
// Removes dst on mismatch.
func SpoolFile(src, dst string) (SpoolResult, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return SpoolResult{}, fmt.Errorf("stat source: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return SpoolResult{}, err
	}
	defer in.Close()

	result, err := Spool(in, dst)
	if err != nil {
		return SpoolResult{}, err
	}
	if result.Size != srcInfo.Size() {
		_ = os.Remove(dst)
		return SpoolResult{}, fmt.Errorf("spool size mismatch: source %d bytes, copied %d bytes", srcInfo.Size(), result.Size)
	}
	return result, nil
}

// EnsureDir creates dir and any missing parents.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	return nil
}

// RemoveQuiet removes path if it exists, ignoring not-found errors.
func RemoveQuiet(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// SiblingTempDir returns a temp directory on the same filesystem as path so
// renames into place stay atomic.
func SiblingTempDir(path string) (string, error) {
	dir := filepath.Dir(path)
	return os.MkdirTemp(dir, ".spool-*")
}
