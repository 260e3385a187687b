package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "nested", "out.pdf")

	content := []byte("%PDF-1.7 hello")
	digest, err := WriteFile(dst, content)
	if err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q, want %q", got, content)
	}
	sum := sha256.Sum256(content)
	if digest != hex.EncodeToString(sum[:]) {
		t.Fatalf("digest mismatch: %s", digest)
	}
}

func TestWriteFileLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "out.bin")
	for i := 0; i < 3; i++ {
		if _, err := WriteFile(dst, []byte(strings.Repeat("x", i+1))); err != nil {
			t.Fatal(err)
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "out.bin" {
		t.Fatalf("unexpected directory contents: %v", entries)
	}
	got, _ := os.ReadFile(dst)
	if string(got) != "xxx" {
		t.Fatalf("expected last write to win, got %q", got)
	}
}

func TestWriteFileMode(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "private.bin")

	if _, err := WriteFileMode(dst, []byte("data"), 0o600); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600, got %o", info.Mode().Perm())
	}
}

func TestTempFile(t *testing.T) {
	dir := t.TempDir()
	path, err := TempFile(dir, "submission-1-*.pdf", []byte("pdf"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(filepath.Base(path), "submission-1-") || filepath.Ext(path) != ".pdf" {
		t.Fatalf("unexpected name %s", path)
	}
	got, err := os.ReadFile(path)
	if err != nil || string(got) != "pdf" {
		t.Fatalf("read back %q, %v", got, err)
	}
}

func TestTempFile_MissingDir(t *testing.T) {
	if _, err := TempFile(filepath.Join(t.TempDir(), "missing"), "x-*", []byte("a")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
