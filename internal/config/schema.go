package config

import (
	"time"
)

// Store backends
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendNeo4j    = "neo4j"
)

// Config is the root configuration structure
type Config struct {
	Version  int                      `yaml:"version"`
	Log      LogConfig                `yaml:"log"`
	Store    StoreConfig              `yaml:"store"`
	Batch    BatchConfig              `yaml:"batch"`
	Crawl    CrawlConfig              `yaml:"crawl"`
	Crawlers map[string]CrawlerConfig `yaml:"crawlers,omitempty"`
}

// LogConfig controls the process-wide logger
type LogConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json logfmt"`
}

// StoreConfig selects and configures the graph store
type StoreConfig struct {
	Backend  string         `yaml:"backend" validate:"required,oneof=sqlite postgres neo4j"`
	Timeout  Duration       `yaml:"timeout"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
	Neo4j    Neo4jConfig    `yaml:"neo4j"`
}

// SQLiteConfig holds SQLite settings
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// PostgresConfig holds Postgres settings
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// Neo4jConfig holds Neo4j connection settings
type Neo4jConfig struct {
	URI      string `yaml:"uri"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database,omitempty"`
}

// BatchConfig tunes bulk operations
type BatchConfig struct {
	ChunkSize int `yaml:"chunk_size" validate:"min=1"`
}

// CrawlConfig tunes crawler scheduling
type CrawlConfig struct {
	Parallel int `yaml:"parallel" validate:"min=1"`
}

// CrawlerConfig holds per-crawler settings
type CrawlerConfig struct {
	Enabled      bool     `yaml:"enabled"`
	PollInterval Duration `yaml:"poll_interval,omitempty"`
	URL          string   `yaml:"url,omitempty"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
