package backend

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vara-prasad-07/internet-yellow-pages/internal/config"
	"github.com/vara-prasad-07/internet-yellow-pages/internal/domain"
)

func TestOpenSQLite(t *testing.T) {
	cfg := config.DefaultConfig().Store
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "iyp.db")

	store, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer store.Close()

	assert.NoError(t, store.Ping(context.Background()))
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), config.StoreConfig{Backend: "mysql"})
	assert.Error(t, err)
}

func TestOpenUnreachable(t *testing.T) {
	cfg := config.DefaultConfig().Store
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "missing", "dir", "iyp.db")

	_, err := Open(context.Background(), cfg)
	var connErr *domain.ConnectionError
	require.True(t, errors.As(err, &connErr), "got %v", err)
	assert.Equal(t, config.BackendSQLite, connErr.Backend)
}
