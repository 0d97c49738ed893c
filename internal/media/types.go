package media

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed openers.toml
var openersTOML []byte

type Type int

const (
	TypePage Type = iota
	TypeImage
)

func (t Type) String() string {
	if t == TypeImage {
		return "image"
	}
	return "page"
}

// PlatformConfig names the programs used on one GOOS.
type PlatformConfig struct {
	Default     string   `toml:"default"`
	DefaultArgs []string `toml:"default_args"`
	Image       []string `toml:"image"`
}

// ProgramArgs are extra arguments passed to a program before the URL.
type ProgramArgs struct {
	Image []string `toml:"image"`
}

type Config struct {
	ImageExtensions []string                  `toml:"image_extensions"`
	Platforms       map[string]PlatformConfig `toml:"platforms"`
	Args            map[string]ProgramArgs    `toml:"args"`
}

// LoadConfig decodes the built-in opener table and, when userPath exists,
// the user's file over it. A missing user file is not an error.
func LoadConfig(userPath string) (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(string(openersTOML), &cfg); err != nil {
		return nil, fmt.Errorf("parsing built-in openers: %w", err)
	}
	if userPath == "" {
		return &cfg, nil
	}
	data, err := os.ReadFile(userPath)
	if errors.Is(err, fs.ErrNotExist) {
		return &cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", userPath, err)
	}

	var user Config
	if _, err := toml.Decode(string(data), &user); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", userPath, err)
	}
	cfg.merge(user)
	return &cfg, nil
}

func (c *Config) merge(user Config) {
	if len(user.ImageExtensions) > 0 {
		c.ImageExtensions = user.ImageExtensions
	}
	if c.Platforms == nil {
		c.Platforms = make(map[string]PlatformConfig)
	}
	for goos, p := range user.Platforms {
		c.Platforms[goos] = p
	}
	if c.Args == nil {
		c.Args = make(map[string]ProgramArgs)
	}
	for name, a := range user.Args {
		c.Args[name] = a
	}
}

// Platform returns the entry for goos, then "fallback".
func (c *Config) Platform(goos string) PlatformConfig {
	if p, ok := c.Platforms[goos]; ok {
		return p
	}
	return c.Platforms["fallback"]
}

// DetectType classifies a URL by the extension of its path, ignoring
// query and fragment.
func (c *Config) DetectType(raw string) Type {
	u, err := url.Parse(raw)
	if err != nil {
		return TypePage
	}
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(u.Path)), ".")
	if ext != "" && slices.Contains(c.ImageExtensions, ext) {
		return TypeImage
	}
	return TypePage
}
