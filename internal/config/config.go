// Package config provides configuration management for the IYP tools.
//
// Settings come from a YAML file, then environment variables (optionally
// from a .env file) override the store and log settings.
//
// Config file locations (priority order):
//  1. $IYP_CONFIG
//  2. ./iyp.yaml
//  3. ~/.config/iyp/config.yaml
//  4. /etc/iyp/config.yaml
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator"
	"gopkg.in/yaml.v3"
)

const (
	defaultSQLitePath = "./iyp.db"
	defaultChunkSize  = 10000
	defaultTimeout    = 30 * time.Second
)

var validate = validator.New()

// Load finds and loads the config file, or returns defaults if none found.
// Environment overrides apply in both cases.
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		cfg := DefaultConfig()
		cfg.applyEnv()
		cfg.applyDefaults()
		if err := cfg.Validate(); err != nil {
			return nil, "", err
		}
		return cfg, "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}

	return &cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Log:     LogConfig{Level: "info", Format: "text"},
		Store: StoreConfig{
			Backend: BackendSQLite,
			Timeout: Duration(defaultTimeout),
			SQLite:  SQLiteConfig{Path: defaultSQLitePath},
		},
		Batch:    BatchConfig{ChunkSize: defaultChunkSize},
		Crawl:    CrawlConfig{Parallel: 4},
		Crawlers: DefaultCrawlers(),
	}
}

// DefaultCrawlers returns the built-in crawler schedule
func DefaultCrawlers() map[string]CrawlerConfig {
	return map[string]CrawlerConfig{
		"ripe.roa":              {Enabled: true, PollInterval: Duration(24 * time.Hour)},
		"worldbank.country_pop": {Enabled: true, PollInterval: Duration(7 * 24 * time.Hour)},
	}
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Store.Backend == "" {
		c.Store.Backend = BackendSQLite
	}
	if c.Store.Timeout == 0 {
		c.Store.Timeout = Duration(defaultTimeout)
	}
	if c.Store.Backend == BackendSQLite && c.Store.SQLite.Path == "" {
		c.Store.SQLite.Path = defaultSQLitePath
	}
	if c.Batch.ChunkSize == 0 {
		c.Batch.ChunkSize = defaultChunkSize
	}
	if c.Crawl.Parallel == 0 {
		c.Crawl.Parallel = 4
	}
	if c.Crawlers == nil {
		c.Crawlers = DefaultCrawlers()
	}
}

// Validate checks field rules and backend-specific requirements
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	switch c.Store.Backend {
	case BackendPostgres:
		if c.Store.Postgres.DSN == "" {
			return fmt.Errorf("invalid config: store.postgres.dsn is required for the postgres backend")
		}
	case BackendNeo4j:
		if c.Store.Neo4j.URI == "" {
			return fmt.Errorf("invalid config: store.neo4j.uri is required for the neo4j backend")
		}
	}
	return nil
}

// Crawler returns the settings for a crawler. Unknown crawlers are
// disabled.
func (c *Config) Crawler(name string) CrawlerConfig {
	return c.Crawlers[name]
}
