package config

import "time"

// TestConfig returns a config suitable for testing
func TestConfig() *Config {
	d := defaultConfig()
	return &Config{
		Database: DatabaseConfig{
			Path:    ":memory:",
			Timeout: 1 * time.Second,
		},
		Filters: FiltersConfig{
			Debounce: 10 * time.Millisecond,
			Open:     true,
			Sticky:   true,
			Width:    d.Filters.Width,
		},
		Catalog: CatalogConfig{
			PageSize:    10,
			DefaultSort: "title",
		},
		Import: ImportConfig{
			HTTPTimeout:     5 * time.Second,
			RefreshInterval: 1 * time.Minute,
			UserAgent:       "shelf-test/1.0",
			Concurrency:     2,
			AllowPrivate:    true,
		},
		UI:   d.UI,
		Keys: d.Keys,
		Log:  LogConfig{Level: "OFF"},
	}
}
