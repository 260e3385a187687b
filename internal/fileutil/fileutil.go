package fileutil

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteFile writes data to dst atomically with mode 0o644.
func WriteFile(dst string, data []byte) (string, error) {
	return WriteFileMode(dst, data, 0o644)
}

// WriteFileMode streams data into a temp file beside dst, verifies its size
// and SHA256, then renames it into place. It returns the hex digest. dst is
// never left half-written.
func WriteFileMode(dst string, data []byte, mode os.FileMode) (string, error) {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure directory: %w", err)
	}
	out, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".*")
	if err != nil {
		return "", err
	}
	tmp := out.Name()
	defer func() {
		_ = out.Close()
		_ = os.Remove(tmp)
	}()

	srcHasher := sha256.New()
	dstHasher := sha256.New()
	tee := io.TeeReader(bytes.NewReader(data), srcHasher)
	written, err := io.Copy(io.MultiWriter(out, dstHasher), tee)
	if err != nil {
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	if written != int64(len(data)) {
		return "", fmt.Errorf("write size mismatch: expected %d bytes, wrote %d bytes", len(data), written)
	}
	sum := dstHasher.Sum(nil)
	if !bytes.Equal(srcHasher.Sum(nil), sum) {
		return "", fmt.Errorf("write hash mismatch: file corrupted during write")
	}
	if err := os.Chmod(tmp, mode); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, dst); err != nil {
		return "", err
	}
	return hex.EncodeToString(sum), nil
}

// TempFile writes data to a new file in dir named by pattern (see
// os.CreateTemp) and returns its path. The caller removes it.
func TempFile(dir, pattern string, data []byte) (string, error) {
	file, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", err
	}
	path := file.Name()
	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return "", err
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return path, nil
}
