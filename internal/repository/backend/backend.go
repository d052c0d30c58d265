// Package backend opens the configured graph store.
package backend

import (
	"context"
	"fmt"

	"github.com/vara-prasad-07/internet-yellow-pages/internal/config"
	"github.com/vara-prasad-07/internet-yellow-pages/internal/domain"
	"github.com/vara-prasad-07/internet-yellow-pages/internal/repository"
	"github.com/vara-prasad-07/internet-yellow-pages/internal/repository/neo4jstore"
	"github.com/vara-prasad-07/internet-yellow-pages/internal/repository/sqlstore"
)

// Open connects to the store named by cfg.Backend. Any failure to reach
// the store is reported as a *domain.ConnectionError.
func Open(ctx context.Context, cfg config.StoreConfig) (repository.Store, error) {
	var (
		store repository.Store
		err   error
	)

	timeout := cfg.Timeout.Duration()
	switch cfg.Backend {
	case config.BackendSQLite:
		store, err = sqlstore.NewSQLite(cfg.SQLite.Path, sqlstore.WithTimeout(timeout))
	case config.BackendPostgres:
		store, err = sqlstore.NewPostgres(cfg.Postgres.DSN, sqlstore.WithTimeout(timeout))
	case config.BackendNeo4j:
		store, err = neo4jstore.New(ctx, neo4jstore.Config{
			URI:      cfg.Neo4j.URI,
			Username: cfg.Neo4j.Username,
			Password: cfg.Neo4j.Password,
			Database: cfg.Neo4j.Database,
			Timeout:  timeout,
		})
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, &domain.ConnectionError{Backend: cfg.Backend, Err: err}
	}
	return store, nil
}
