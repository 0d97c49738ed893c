package validation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCleanPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	cwd, _ := os.Getwd()

	tests := []struct {
		name        string
		input       string
		expected    string
		shouldError bool
	}{
		{name: "empty", input: "", shouldError: true},
		{name: "blank", input: "   ", shouldError: true},
		{name: "memory database", input: ":memory:", expected: ":memory:"},
		{name: "home expansion", input: "~/.shelf/shelf.db", expected: filepath.Join(home, ".shelf", "shelf.db")},
		{name: "bare tilde", input: "~", expected: home},
		{name: "relative made absolute", input: "data/shelf.db", expected: filepath.Join(cwd, "data", "shelf.db")},
		{name: "traversal cleaned", input: "/tmp/a/../b.db", expected: "/tmp/b.db"},
		{name: "null byte", input: "/tmp/a\x00b", shouldError: true},
		{name: "control character", input: "/tmp/a\nb", shouldError: true},
		{name: "too long", input: "/" + strings.Repeat("a", MaxPathLength), shouldError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CleanPath(tt.input)
			if tt.shouldError {
				if err == nil {
					t.Errorf("CleanPath(%q) = %q, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("CleanPath(%q) error = %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("CleanPath(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestEnsureParentDir(t *testing.T) {
	target := filepath.Join(t.TempDir(), "a", "b", "shelf.db")

	got, err := EnsureParentDir(target)
	if err != nil {
		t.Fatalf("EnsureParentDir error = %v", err)
	}
	if got != target {
		t.Errorf("EnsureParentDir = %q, want %q", got, target)
	}
	info, err := os.Stat(filepath.Dir(target))
	if err != nil || !info.IsDir() {
		t.Errorf("parent directory was not created: %v", err)
	}

	if got, err := EnsureParentDir(":memory:"); err != nil || got != ":memory:" {
		t.Errorf("EnsureParentDir(:memory:) = %q, %v", got, err)
	}
	if _, err := EnsureParentDir(""); err == nil {
		t.Error("expected error for empty path")
	}
}
