// Package config loads gamedex settings from a YAML file and fills in
// defaults. Command-line flags override whatever the file says; the file
// itself is optional.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gamedex/gamedex-mcp/ignore"
	"github.com/gamedex/gamedex-mcp/index"
)

// DefaultFileName is looked up in the library root when no --config flag
// is given.
const DefaultFileName = ".gamedex.yaml"

// Config is the full gamedex configuration.
type Config struct {
	Library LibraryConfig `yaml:"library"`
	Search  SearchConfig  `yaml:"search"`
	Cache   CacheConfig   `yaml:"cache"`
	Watch   WatchConfig   `yaml:"watch"`
	Sync    SyncConfig    `yaml:"sync"`
	Log     LogConfig     `yaml:"log"`
}

// LibraryConfig describes the catalog library on disk.
type LibraryConfig struct {
	Root             string   `yaml:"root"`
	Excludes         []string `yaml:"excludes"`
	MaxFileSizeBytes int64    `yaml:"max_file_size"`
}

// SearchConfig tunes query behavior.
type SearchConfig struct {
	MaxResults int `yaml:"max_results"`
}

// CacheConfig sizes the snippet content cache.
type CacheConfig struct {
	Entries int `yaml:"entries"`
}

// WatchConfig controls the file watcher that triggers reloads.
type WatchConfig struct {
	Enabled    bool `yaml:"enabled"`
	DebounceMS int  `yaml:"debounce_ms"`
}

// SyncConfig controls the periodic on-disk drift check.
type SyncConfig struct {
	IntervalMinutes int `yaml:"interval_minutes"`
}

// LogConfig controls logging. Logs go to a file or stderr, never stdout,
// which belongs to the MCP stdio transport.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns the configuration used when no file and no flags are
// present.
func Default() Config {
	return Config{
		Library: LibraryConfig{
			MaxFileSizeBytes: ignore.DefaultMaxFileSizeBytes,
		},
		Search: SearchConfig{
			MaxResults: index.DefaultSearchLimit,
		},
		Cache: CacheConfig{
			Entries: index.DefaultCacheEntries,
		},
		Watch: WatchConfig{
			Enabled:    true,
			DebounceMS: 500,
		},
		Sync: SyncConfig{
			IntervalMinutes: 5,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML config file over the defaults. Every absent key keeps
// its default value.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges. It does not check that the library root
// exists; the loader reports that with a proper error at load time.
func (c *Config) Validate() error {
	if c.Library.MaxFileSizeBytes < 0 {
		return fmt.Errorf("library.max_file_size must not be negative, got %d", c.Library.MaxFileSizeBytes)
	}
	if c.Search.MaxResults < 0 {
		return fmt.Errorf("search.max_results must not be negative, got %d", c.Search.MaxResults)
	}
	if c.Cache.Entries < 0 {
		return fmt.Errorf("cache.entries must not be negative, got %d", c.Cache.Entries)
	}
	if c.Watch.DebounceMS < 0 {
		return fmt.Errorf("watch.debounce_ms must not be negative, got %d", c.Watch.DebounceMS)
	}
	if c.Sync.IntervalMinutes < 0 {
		return fmt.Errorf("sync.interval_minutes must not be negative, got %d", c.Sync.IntervalMinutes)
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	return nil
}
