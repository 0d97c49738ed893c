// Package media opens product pages and product images in external
// programs.
package media

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"

	"github.com/pders01/shelf/internal/debuglog"
)

type Launcher struct {
	config   *Config
	goos     string
	lookPath func(string) (string, error)
	start    func(*exec.Cmd) error
}

// NewLauncher loads the opener table, including the user file at
// userPath if present. A broken user file falls back to the built-in
// table so that opening links keeps working.
func NewLauncher(userPath string) *Launcher {
	cfg, err := LoadConfig(userPath)
	if err != nil {
		debuglog.Warnf("opener config: %v", err)
		cfg, _ = LoadConfig("")
	}
	return &Launcher{
		config:   cfg,
		goos:     runtime.GOOS,
		lookPath: exec.LookPath,
		start:    startDetached,
	}
}

// Command builds the command that would open raw. Only http and https
// URLs are launched.
func (l *Launcher) Command(raw string) (*exec.Cmd, error) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("refusing to open %q: not an http(s) URL", raw)
	}

	platform := l.config.Platform(l.goos)
	kind := l.config.DetectType(raw)

	program, args := platform.Default, platform.DefaultArgs
	if kind == TypeImage {
		if viewer := l.findCommand(platform.Image...); viewer != "" && viewer != platform.Default {
			program, args = viewer, l.config.Args[viewer].Image
		}
	}
	if program == "" {
		return nil, fmt.Errorf("no application configured to open %s links on %s", kind, l.goos)
	}

	argv := append(append([]string(nil), args...), u.String())
	return exec.Command(program, argv...), nil
}

// Open starts the program for raw without waiting for it.
func (l *Launcher) Open(raw string) error {
	cmd, err := l.Command(raw)
	if err != nil {
		return err
	}
	debuglog.Debugf("opening %s with %s", raw, cmd.Path)
	if err := l.start(cmd); err != nil {
		return fmt.Errorf("failed to start %s: %w", cmd.Path, err)
	}
	return nil
}

func (l *Launcher) findCommand(commands ...string) string {
	for _, c := range commands {
		if _, err := l.lookPath(c); err == nil {
			return c
		}
	}
	return ""
}

// GUI programs are started detached and reaped in the background.
func startDetached(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}
