package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MaxPathLength bounds user-supplied file paths.
const MaxPathLength = 4096

// CleanPath validates a user-supplied file path (database, config, facet
// schema, log file) and returns it absolute with "~/" expanded. The
// special database path ":memory:" passes through untouched.
func CleanPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if path == ":memory:" {
		return path, nil
	}
	if len(path) > MaxPathLength {
		return "", fmt.Errorf("path too long (max %d characters)", MaxPathLength)
	}
	for _, r := range path {
		if r == 0 {
			return "", fmt.Errorf("path contains null bytes")
		}
		if r < 32 && r != '\t' {
			return "", fmt.Errorf("path contains control characters")
		}
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("path normalization failed: %w", err)
	}
	return abs, nil
}

// EnsureParentDir validates path and creates its parent directory.
func EnsureParentDir(path string) (string, error) {
	clean, err := CleanPath(path)
	if err != nil {
		return "", err
	}
	if clean == ":memory:" {
		return clean, nil
	}
	if err := os.MkdirAll(filepath.Dir(clean), 0o755); err != nil {
		return "", fmt.Errorf("creating directory for %s: %w", clean, err)
	}
	return clean, nil
}
