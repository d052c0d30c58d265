package adapter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vara-prasad-07/internet-yellow-pages/internal/config"
	"github.com/vara-prasad-07/internet-yellow-pages/internal/domain"
	"github.com/vara-prasad-07/internet-yellow-pages/internal/repository/sqlstore"
	"github.com/vara-prasad-07/internet-yellow-pages/internal/service"
)

// ============================================================================
// Test Helpers
// ============================================================================

// stubCrawler resolves two ASes and links them
type stubCrawler struct {
	Base
	runs atomic.Int32
	err  error
}

func newStubCrawler(name string) *stubCrawler {
	return &stubCrawler{Base: NewBase(name, "Test Org", "https://example.org")}
}

func (c *stubCrawler) Run(ctx context.Context, s *service.Session) error {
	c.runs.Add(1)
	if c.err != nil {
		return c.err
	}
	a, err := s.GetOrCreate(ctx, []string{"AS"}, domain.Properties{"asn": domain.Int(1)})
	if err != nil {
		return err
	}
	b, err := s.GetOrCreate(ctx, []string{"AS"}, domain.Properties{"asn": domain.Int(2)})
	if err != nil {
		return err
	}
	return s.AddLink(ctx, a, b, "PEERS_WITH", c.Reference().Properties())
}

func memorySessions(t *testing.T) SessionFunc {
	t.Helper()
	return func(ctx context.Context, events *service.EventBus) (*service.Session, error) {
		store, err := sqlstore.NewSQLite(":memory:")
		if err != nil {
			return nil, err
		}
		return service.Open(ctx, store, service.Options{Events: events})
	}
}

// ============================================================================
// Registry
// ============================================================================

func TestRegistryRun(t *testing.T) {
	r := NewRegistry(memorySessions(t))
	c := newStubCrawler("stub.ok")
	require.NoError(t, r.Register(c, config.CrawlerConfig{Enabled: true}))

	result, err := r.Run(context.Background(), "stub.ok")
	require.NoError(t, err)
	assert.Equal(t, "stub.ok", result.Name)
	assert.Equal(t, 2, result.Nodes)
	assert.Equal(t, 1, result.Links)
}

func TestRegistryErrors(t *testing.T) {
	r := NewRegistry(memorySessions(t))
	failing := newStubCrawler("stub.fail")
	failing.err = errors.New("upstream unavailable")
	require.NoError(t, r.Register(failing, config.CrawlerConfig{Enabled: true}))
	require.NoError(t, r.Register(newStubCrawler("stub.off"), config.CrawlerConfig{}))

	t.Run("duplicate registration", func(t *testing.T) {
		assert.Error(t, r.Register(newStubCrawler("stub.off"), config.CrawlerConfig{}))
	})

	t.Run("unknown crawler", func(t *testing.T) {
		_, err := r.Run(context.Background(), "stub.absent")
		assert.Error(t, err)
	})

	t.Run("disabled crawler", func(t *testing.T) {
		_, err := r.Run(context.Background(), "stub.off")
		assert.Error(t, err)
	})

	t.Run("crawler error", func(t *testing.T) {
		_, err := r.Run(context.Background(), "stub.fail")
		assert.ErrorIs(t, err, failing.err)
	})

	t.Run("session error", func(t *testing.T) {
		broken := NewRegistry(func(ctx context.Context, events *service.EventBus) (*service.Session, error) {
			return nil, &domain.ConnectionError{Backend: "test", Err: errors.New("refused")}
		})
		require.NoError(t, broken.Register(newStubCrawler("stub.ok"), config.CrawlerConfig{Enabled: true}))
		_, err := broken.Run(context.Background(), "stub.ok")
		var ce *domain.ConnectionError
		assert.ErrorAs(t, err, &ce)
	})
}

func TestRegistryListAndEnabled(t *testing.T) {
	r := NewRegistry(memorySessions(t))
	require.NoError(t, r.Register(newStubCrawler("b.two"), config.CrawlerConfig{Enabled: true, PollInterval: config.Duration(time.Hour)}))
	require.NoError(t, r.Register(newStubCrawler("a.one"), config.CrawlerConfig{Enabled: true}))
	require.NoError(t, r.Register(newStubCrawler("c.off"), config.CrawlerConfig{}))

	assert.Equal(t, []string{"a.one", "b.two"}, r.Enabled())

	infos := r.List()
	require.Len(t, infos, 3)
	assert.Equal(t, "a.one", infos[0].Name)
	assert.Equal(t, time.Hour, infos[1].PollInterval)
	assert.False(t, infos[2].Enabled)
}

func TestRegistryPolling(t *testing.T) {
	r := NewRegistry(memorySessions(t))
	c := newStubCrawler("stub.poll")
	require.NoError(t, r.Register(c, config.CrawlerConfig{Enabled: true, PollInterval: config.Duration(10 * time.Millisecond)}))

	require.NoError(t, r.Start(context.Background()))
	assert.Eventually(t, func() bool { return c.runs.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, r.Stop())

	after := c.runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, c.runs.Load(), "no runs after Stop")
}

// ============================================================================
// Base
// ============================================================================

func TestBaseFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ok" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("payload"))
	}))
	t.Cleanup(srv.Close)

	b := NewBase("test.fetch", "Test Org", srv.URL)
	ctx := context.Background()

	body, err := b.Fetch(ctx, srv.URL+"/ok")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(body))

	_, err = b.Fetch(ctx, srv.URL+"/missing")
	assert.Error(t, err)

	assert.True(t, b.Available(ctx, srv.URL+"/ok"))
	assert.False(t, b.Available(ctx, srv.URL+"/missing"))
}

func TestBaseReference(t *testing.T) {
	b := NewBase("test.ref", "Test Org", "https://example.org/data")
	b.InfoURL = "https://example.org/about"

	props := b.Reference().Properties()
	assert.Empty(t, domain.MissingProvenance(props))
	assert.Equal(t, domain.String("Test Org"), props["source"])
	assert.Equal(t, domain.String("https://example.org/about"), props["reference_url_info"])
}
