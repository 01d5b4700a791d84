package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile creates a payload file of the requested size filled with a
// repeating marker byte. A size <= 0 still produces a one-byte file so the
// path always has content to upload.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}

	const chunk = 32 * 1024
	if size <= chunk {
		if err := os.WriteFile(path, bytes.Repeat([]byte{0x42}, int(size)), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		return
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	buf := bytes.Repeat([]byte{0x42}, chunk)
	for written := int64(0); written < size; {
		n := size - written
		if n > chunk {
			n = chunk
		}
		if _, err := f.Write(buf[:n]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		written += n
	}
}
