package config

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

// Environment overrides, applied after the config file
const (
	EnvStoreBackend  = "IYP_STORE_BACKEND"
	EnvSQLitePath    = "IYP_SQLITE_PATH"
	EnvPostgresDSN   = "IYP_POSTGRES_DSN"
	EnvNeo4jURI      = "NEO4J_URI"
	EnvNeo4jUsername = "NEO4J_USERNAME"
	EnvNeo4jPassword = "NEO4J_PASSWORD"
	EnvNeo4jDatabase = "NEO4J_DATABASE"
	EnvLogLevel      = "IYP_LOG_LEVEL"
)

// LoadEnv reads .env from the working directory and then the one beside
// the config file (explicit, or found by FindConfigPath). Variables
// already set in the environment are kept.
func LoadEnv(explicit string) {
	// ./.env may itself set IYP_CONFIG
	if files := EnvFiles(""); len(files) > 0 {
		loadEnvFiles(files)
	}

	configPath := explicit
	if configPath == "" {
		configPath = FindConfigPath()
	}
	files := EnvFiles(configPath)
	if len(files) == 0 {
		log.Debug("No .env file found, using system environment variables")
		return
	}
	loadEnvFiles(files)
}

func loadEnvFiles(files []string) {
	if err := godotenv.Load(files...); err != nil {
		log.Warn("Failed to load .env", "files", files, "err", err)
		return
	}
	log.Debug("Environment loaded", "files", files)
}

// applyEnv overrides file settings with environment variables
func (c *Config) applyEnv() {
	overrides := []struct {
		key    string
		target *string
	}{
		{EnvStoreBackend, &c.Store.Backend},
		{EnvSQLitePath, &c.Store.SQLite.Path},
		{EnvPostgresDSN, &c.Store.Postgres.DSN},
		{EnvNeo4jURI, &c.Store.Neo4j.URI},
		{EnvNeo4jUsername, &c.Store.Neo4j.Username},
		{EnvNeo4jPassword, &c.Store.Neo4j.Password},
		{EnvNeo4jDatabase, &c.Store.Neo4j.Database},
		{EnvLogLevel, &c.Log.Level},
	}
	for _, o := range overrides {
		if value, ok := os.LookupEnv(o.key); ok && value != "" {
			*o.target = value
		}
	}
}
