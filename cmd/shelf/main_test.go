package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// captureStdout runs fn and returns what it printed.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stdout = w

	outC := make(chan string)
	go func() {
		var buf bytes.Buffer
		io.Copy(&buf, r)
		outC <- buf.String()
	}()

	fn()

	w.Close()
	os.Stdout = old
	return <-outC
}

// isolate points HOME at a temp dir and resets the persistent flags.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	configPath, dbPath, quiet, filters, force = "", "", true, "", false
	t.Cleanup(func() { configPath, dbPath, quiet, filters, force = "", "", false, "", false })
	return home
}

func TestVersionCommand(t *testing.T) {
	out := captureStdout(t, func() { versionCmd.Run(nil, nil) })

	if !strings.Contains(out, "shelf dev") {
		t.Errorf("Expected version output to contain 'shelf dev', got: %s", out)
	}
	if !strings.Contains(out, "Terminal storefront") {
		t.Errorf("Expected version output to contain 'Terminal storefront', got: %s", out)
	}
	if !strings.Contains(out, "github.com/pders01/shelf") {
		t.Errorf("Expected version output to contain 'github.com/pders01/shelf', got: %s", out)
	}
}

func TestGenerateConfigCommand(t *testing.T) {
	home := isolate(t)
	configFile := filepath.Join(home, ".config", "shelf", "config.toml")

	out := captureStdout(t, func() { configGenCmd.Run(nil, nil) })

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		t.Errorf("Config file was not created at %s", configFile)
	}
	if !strings.Contains(out, "Generated default configuration at:") {
		t.Errorf("Expected output to contain 'Generated default configuration at:', got: %s", out)
	}
}

func TestSeedCommand(t *testing.T) {
	home := isolate(t)
	dbPath = filepath.Join(home, "data", "shelf.db")

	var runErr error
	out := captureStdout(t, func() { runErr = runSeed(seedCmd, nil) })
	if runErr != nil {
		t.Fatalf("seed: %v", runErr)
	}
	if !strings.Contains(out, "Seeded") {
		t.Errorf("Expected seed summary, got: %s", out)
	}

	e, err := setup()
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	defer e.Close()
	if e.catalog.Len() == 0 {
		t.Error("seeded products should load into the catalog")
	}
	sources, err := e.store.GetAllSources()
	if err != nil || len(sources) != 1 {
		t.Errorf("expected one source, got %d (%v)", len(sources), err)
	}
}

func TestImportRejectsBadURL(t *testing.T) {
	home := isolate(t)
	dbPath = filepath.Join(home, "shelf.db")

	var runErr error
	out := captureStdout(t, func() { runErr = runImport(importCmd, []string{"ftp://example.com/feed.xml"}) })
	if runErr == nil {
		t.Fatal("import of a non-http URL should fail")
	}
	if !strings.Contains(out, "✗ ftp://example.com/feed.xml") {
		t.Errorf("Expected a failure line, got: %s", out)
	}
}

func TestBrowseRejectsBadFilters(t *testing.T) {
	isolate(t)
	filters = "page=abc"

	if err := runBrowse(rootCmd, nil); err == nil || !strings.Contains(err.Error(), "--filters") {
		t.Errorf("expected a --filters error, got %v", err)
	}
}
