package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Filters  FiltersConfig  `mapstructure:"filters"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Import   ImportConfig   `mapstructure:"import"`
	UI       UIConfig       `mapstructure:"ui"`
	Keys     KeyConfig      `mapstructure:"keys"`
	Log      LogConfig      `mapstructure:"log"`
}

type DatabaseConfig struct {
	Path        string        `mapstructure:"path"`
	Timeout     time.Duration `mapstructure:"timeout"`
	SearchIndex string        `mapstructure:"search_index"`
}

// FiltersConfig controls the filter drawer.
type FiltersConfig struct {
	Debounce  time.Duration `mapstructure:"debounce"`
	Open      bool          `mapstructure:"open"`
	Sticky    bool          `mapstructure:"sticky"`
	StickyTop int           `mapstructure:"sticky_top"`
	Inline    bool          `mapstructure:"inline"`
	Width     int           `mapstructure:"width"`
}

type CatalogConfig struct {
	PageSize    int    `mapstructure:"page_size"`
	Schema      string `mapstructure:"schema"`
	DefaultSort string `mapstructure:"default_sort"`
}

type ImportConfig struct {
	HTTPTimeout     time.Duration `mapstructure:"http_timeout"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	UserAgent       string        `mapstructure:"user_agent"`
	Concurrency     int           `mapstructure:"concurrency"`
	AllowPrivate    bool          `mapstructure:"allow_private"`
}

type UIConfig struct {
	Colors UIColors     `mapstructure:"colors"`
	Detail DetailConfig `mapstructure:"detail"`
}

type UIColors struct {
	Primary    string `mapstructure:"primary"`
	Secondary  string `mapstructure:"secondary"`
	Accent     string `mapstructure:"accent"`
	Background string `mapstructure:"background"`
	Surface    string `mapstructure:"surface"`
	Text       string `mapstructure:"text"`
	Muted      string `mapstructure:"muted"`
	Error      string `mapstructure:"error"`
	Success    string `mapstructure:"success"`
}

type DetailConfig struct {
	MaxDescriptionLength int `mapstructure:"max_description_length"`
	WordWrapMaxWidth     int `mapstructure:"word_wrap_max_width"`
	WordWrapMinWidth     int `mapstructure:"word_wrap_min_width"`
}

type KeyConfig struct {
	Modifier string      `mapstructure:"modifier"`
	Bindings KeyBindings `mapstructure:"bindings"`
}

type KeyBindings struct {
	Quit     string `mapstructure:"quit"`
	Search   string `mapstructure:"search"`
	Filters  string `mapstructure:"filters"`
	Import   string `mapstructure:"import"`
	Refresh  string `mapstructure:"refresh"`
	Open     string `mapstructure:"open"`
	Sort     string `mapstructure:"sort"`
	NextPage string `mapstructure:"next_page"`
	PrevPage string `mapstructure:"prev_page"`
	Back     string `mapstructure:"back"`
	Help     string `mapstructure:"help"`
	Sources  string `mapstructure:"sources"`
	Delete   string `mapstructure:"delete"`
}

// LogConfig controls the debug log file. Level OFF disables it.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// Dir returns the shelf configuration directory.
func Dir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "shelf")
}

func defaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".shelf")

	return &Config{
		Database: DatabaseConfig{
			Path:        filepath.Join(dataDir, "shelf.db"),
			Timeout:     1 * time.Second,
			SearchIndex: filepath.Join(dataDir, "index.bleve"),
		},
		Filters: FiltersConfig{
			Debounce:  500 * time.Millisecond,
			Open:      true,
			Sticky:    true,
			StickyTop: 0,
			Inline:    false,
			Width:     38,
		},
		Catalog: CatalogConfig{
			PageSize:    40,
			Schema:      filepath.Join(Dir(), "facets.toml"),
			DefaultSort: "title",
		},
		Import: ImportConfig{
			HTTPTimeout:     30 * time.Second,
			RefreshInterval: 30 * time.Minute,
			UserAgent:       "shelf/1.0 (+https://github.com/pders01/shelf)",
			Concurrency:     4,
		},
		UI: UIConfig{
			Colors: UIColors{
				Primary:    "#FF6B6B",
				Secondary:  "#4ECDC4",
				Accent:     "#95E1D3",
				Background: "#1A1A2E",
				Surface:    "#16213E",
				Text:       "#EAEAEA",
				Muted:      "#94A3B8",
				Error:      "#F87171",
				Success:    "#4ADE80",
			},
			Detail: DetailConfig{
				MaxDescriptionLength: 160,
				WordWrapMaxWidth:     100,
				WordWrapMinWidth:     40,
			},
		},
		Keys: KeyConfig{
			Modifier: "ctrl",
			Bindings: KeyBindings{
				Quit:     "q",
				Search:   "s",
				Filters:  "f",
				Import:   "n",
				Refresh:  "r",
				Open:     "o",
				Sort:     "t",
				NextPage: "]",
				PrevPage: "[",
				Back:     "esc",
				Help:     "?",
				Sources:  "l",
				Delete:   "x",
			},
		},
		Log: LogConfig{
			Level: "OFF",
			File:  filepath.Join(dataDir, "shelf.log"),
		},
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaultConfig()
}

// setDefaults registers every leaf so that a file setting one key in a
// section keeps the defaults of its siblings, and so that environment
// variables such as SHELF_FILTERS_DEBOUNCE are picked up.
func setDefaults(v *viper.Viper, cfg *Config) {
	defaults := map[string]any{
		"database.path":         cfg.Database.Path,
		"database.timeout":      cfg.Database.Timeout,
		"database.search_index": cfg.Database.SearchIndex,

		"filters.debounce":   cfg.Filters.Debounce,
		"filters.open":       cfg.Filters.Open,
		"filters.sticky":     cfg.Filters.Sticky,
		"filters.sticky_top": cfg.Filters.StickyTop,
		"filters.inline":     cfg.Filters.Inline,
		"filters.width":      cfg.Filters.Width,

		"catalog.page_size":    cfg.Catalog.PageSize,
		"catalog.schema":       cfg.Catalog.Schema,
		"catalog.default_sort": cfg.Catalog.DefaultSort,

		"import.http_timeout":     cfg.Import.HTTPTimeout,
		"import.refresh_interval": cfg.Import.RefreshInterval,
		"import.user_agent":       cfg.Import.UserAgent,
		"import.concurrency":      cfg.Import.Concurrency,
		"import.allow_private":    cfg.Import.AllowPrivate,

		"ui.colors.primary":    cfg.UI.Colors.Primary,
		"ui.colors.secondary":  cfg.UI.Colors.Secondary,
		"ui.colors.accent":     cfg.UI.Colors.Accent,
		"ui.colors.background": cfg.UI.Colors.Background,
		"ui.colors.surface":    cfg.UI.Colors.Surface,
		"ui.colors.text":       cfg.UI.Colors.Text,
		"ui.colors.muted":      cfg.UI.Colors.Muted,
		"ui.colors.error":      cfg.UI.Colors.Error,
		"ui.colors.success":    cfg.UI.Colors.Success,

		"ui.detail.max_description_length": cfg.UI.Detail.MaxDescriptionLength,
		"ui.detail.word_wrap_max_width":    cfg.UI.Detail.WordWrapMaxWidth,
		"ui.detail.word_wrap_min_width":    cfg.UI.Detail.WordWrapMinWidth,

		"keys.modifier":           cfg.Keys.Modifier,
		"keys.bindings.quit":      cfg.Keys.Bindings.Quit,
		"keys.bindings.search":    cfg.Keys.Bindings.Search,
		"keys.bindings.filters":   cfg.Keys.Bindings.Filters,
		"keys.bindings.import":    cfg.Keys.Bindings.Import,
		"keys.bindings.refresh":   cfg.Keys.Bindings.Refresh,
		"keys.bindings.open":      cfg.Keys.Bindings.Open,
		"keys.bindings.sort":      cfg.Keys.Bindings.Sort,
		"keys.bindings.next_page": cfg.Keys.Bindings.NextPage,
		"keys.bindings.prev_page": cfg.Keys.Bindings.PrevPage,
		"keys.bindings.back":      cfg.Keys.Bindings.Back,
		"keys.bindings.help":      cfg.Keys.Bindings.Help,
		"keys.bindings.sources":   cfg.Keys.Bindings.Sources,
		"keys.bindings.delete":    cfg.Keys.Bindings.Delete,

		"log.level": cfg.Log.Level,
		"log.file":  cfg.Log.File,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v, defaultConfig())

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(Dir())
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("SHELF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	expandPaths(&config)
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate rejects values the rest of the program cannot work with.
func (c *Config) Validate() error {
	if c.Filters.Debounce < 0 {
		return fmt.Errorf("filters.debounce must not be negative")
	}
	if c.Filters.StickyTop < 0 {
		return fmt.Errorf("filters.sticky_top must not be negative")
	}
	if c.Catalog.PageSize <= 0 {
		return fmt.Errorf("catalog.page_size must be positive")
	}
	if c.Import.Concurrency <= 0 {
		return fmt.Errorf("import.concurrency must be positive")
	}
	return nil
}

// expandPath expands ~ to home directory and converts to absolute path
func expandPath(path string) string {
	if path == "" || path == ":memory:" {
		return path
	}

	if len(path) >= 2 && path[:2] == "~/" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}

	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}

	return path
}

func expandPaths(cfg *Config) {
	cfg.Database.Path = expandPath(cfg.Database.Path)
	cfg.Database.SearchIndex = expandPath(cfg.Database.SearchIndex)
	cfg.Catalog.Schema = expandPath(cfg.Catalog.Schema)
	cfg.Log.File = expandPath(cfg.Log.File)
}

func Save(config *Config, path string) error {
	v := viper.New()

	// Durations as strings for TOML readability.
	v.Set("database", map[string]any{
		"path":         config.Database.Path,
		"timeout":      config.Database.Timeout.String(),
		"search_index": config.Database.SearchIndex,
	})
	v.Set("filters", map[string]any{
		"debounce":   config.Filters.Debounce.String(),
		"open":       config.Filters.Open,
		"sticky":     config.Filters.Sticky,
		"sticky_top": config.Filters.StickyTop,
		"inline":     config.Filters.Inline,
		"width":      config.Filters.Width,
	})
	v.Set("catalog", map[string]any{
		"page_size":    config.Catalog.PageSize,
		"schema":       config.Catalog.Schema,
		"default_sort": config.Catalog.DefaultSort,
	})
	v.Set("import", map[string]any{
		"http_timeout":     config.Import.HTTPTimeout.String(),
		"refresh_interval": config.Import.RefreshInterval.String(),
		"user_agent":       config.Import.UserAgent,
		"concurrency":      config.Import.Concurrency,
		"allow_private":    config.Import.AllowPrivate,
	})
	c := config.UI.Colors
	v.Set("ui", map[string]any{
		"colors": map[string]any{
			"primary":    c.Primary,
			"secondary":  c.Secondary,
			"accent":     c.Accent,
			"background": c.Background,
			"surface":    c.Surface,
			"text":       c.Text,
			"muted":      c.Muted,
			"error":      c.Error,
			"success":    c.Success,
		},
		"detail": map[string]any{
			"max_description_length": config.UI.Detail.MaxDescriptionLength,
			"word_wrap_max_width":    config.UI.Detail.WordWrapMaxWidth,
			"word_wrap_min_width":    config.UI.Detail.WordWrapMinWidth,
		},
	})
	b := config.Keys.Bindings
	v.Set("keys", map[string]any{
		"modifier": config.Keys.Modifier,
		"bindings": map[string]any{
			"quit":      b.Quit,
			"search":    b.Search,
			"filters":   b.Filters,
			"import":    b.Import,
			"refresh":   b.Refresh,
			"open":      b.Open,
			"sort":      b.Sort,
			"next_page": b.NextPage,
			"prev_page": b.PrevPage,
			"back":      b.Back,
			"help":      b.Help,
			"sources":   b.Sources,
			"delete":    b.Delete,
		},
	})
	v.Set("log", map[string]any{
		"level": config.Log.Level,
		"file":  config.Log.File,
	})

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return v.WriteConfigAs(path)
}

func GenerateDefaultConfig(path string) error {
	return Save(defaultConfig(), path)
}
