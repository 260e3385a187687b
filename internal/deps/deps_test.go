package deps

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheck(t *testing.T) {
	present := filepath.Join(t.TempDir(), "present")
	if err := os.WriteFile(present, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	got := Check(
		Program{Name: "Present", Command: present},
		Program{Name: "Missing", Command: "clearly-not-present-binary"},
		Program{Name: "Blank", Command: "  "},
	)
	if len(got) != 3 {
		t.Fatalf("expected 3 results, got %d", len(got))
	}
	if !got[0].Available() || got[0].Detail() != present {
		t.Fatalf("expected present binary, got %#v", got[0])
	}
	if got[1].Available() || got[1].Detail() != `binary "clearly-not-present-binary" not found` {
		t.Fatalf("unexpected missing result %#v", got[1])
	}
	if got[2].Available() || got[2].Detail() != "command not configured" || got[2].Command != "" {
		t.Fatalf("unexpected blank result %#v", got[2])
	}
}

func TestOpenerCommand(t *testing.T) {
	cases := map[string]string{"darwin": "open", "linux": "xdg-open", "freebsd": "xdg-open"}
	for goos, want := range cases {
		if got := OpenerCommand(goos); got != want {
			t.Errorf("OpenerCommand(%q) = %q, want %q", goos, got, want)
		}
	}
}

func TestDesktopProgramsAreOptional(t *testing.T) {
	for _, p := range Desktop() {
		if !p.Optional {
			t.Fatalf("%s should be optional", p.Name)
		}
	}
}
