package ripe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vara-prasad-07/internet-yellow-pages/internal/domain"
	"github.com/vara-prasad-07/internet-yellow-pages/internal/repository/sqlstore"
	"github.com/vara-prasad-07/internet-yellow-pages/internal/service"
)

const roasCSV = `URI,ASN,IP Prefix,Max Length,Not Before,Not After
rsync://rpki.example/repo/a.roa,AS65000,192.0.2.0/24,24,2024-01-01 00:00:00,2025-01-01 00:00:00
rsync://rpki.example/repo/b.roa,AS65001,192.0.2.0/24,24,2024-01-01 00:00:00,2025-01-01 00:00:00
rsync://rpki.example/repo/c.roa,AS65000,2001:DB8::/32,48,2024-01-01 00:00:00,2025-01-01 00:00:00
rsync://rpki.example/repo/d.roa,ASX,198.51.100.0/24,24,2024-01-01 00:00:00,2025-01-01 00:00:00
`

func newTestSession(t *testing.T) *service.Session {
	t.Helper()
	store, err := sqlstore.NewSQLite(":memory:")
	require.NoError(t, err)
	s, err := service.Open(context.Background(), store, service.Options{})
	require.NoError(t, err)
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

// newROAServer publishes roasCSV under afrinic.tal for day and an empty
// file for the other TALs
func newROAServer(t *testing.T, day string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/"+day+"/") {
			http.NotFound(w, r)
			return
		}
		if strings.HasPrefix(r.URL.Path, "/afrinic.tal/") {
			w.Write([]byte(roasCSV))
			return
		}
		w.Write([]byte("URI,ASN,IP Prefix,Max Length,Not Before,Not After\n"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestParseROAs(t *testing.T) {
	prefixes, byPrefix, err := parseROAs(strings.NewReader(roasCSV))
	require.NoError(t, err)

	assert.Equal(t, []string{"192.0.2.0/24", "2001:DB8::/32", "198.51.100.0/24"}, prefixes)
	assert.Len(t, byPrefix["192.0.2.0/24"], 2)
	assert.Equal(t, "48", byPrefix["2001:DB8::/32"][0].maxLength)

	_, _, err = parseROAs(strings.NewReader("a,b,c\n"))
	assert.Error(t, err, "rows must have six fields")
}

func TestROACrawlerRun(t *testing.T) {
	ctx := context.Background()
	srv := newROAServer(t, "2024/05/01")

	c := NewROACrawler(srv.URL + "/")
	// Today's files are missing, so the crawler falls back to yesterday
	c.now = func() time.Time { return time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC) }

	s := newTestSession(t)
	require.NoError(t, c.Run(ctx, s))

	prefix, found, err := s.Find(ctx, []string{"PREFIX"}, domain.MustProperties(map[string]any{"prefix": "192.0.2.0/24", "af": 4}))
	require.NoError(t, err)
	require.True(t, found)

	for _, asn := range []int64{65000, 65001} {
		as, found, err := s.Find(ctx, []string{"AS"}, domain.Properties{"asn": domain.Int(asn)})
		require.NoError(t, err)
		require.True(t, found, "AS%d", asn)

		links, err := s.ListEdges(ctx, prefix, as)
		require.NoError(t, err)
		require.Len(t, links, 1)
		assert.Equal(t, "ROUTE_ORIGIN_AUTHORIZATION", links[0].Type)
		assert.Equal(t, domain.String("RIPE NCC"), links[0].Properties["source"])
		assert.Equal(t, domain.Int(24), links[0].Properties["maxLength"])
	}

	_, found, err = s.Find(ctx, []string{"PREFIX"}, domain.MustProperties(map[string]any{"prefix": "2001:db8::/32", "af": 6}))
	require.NoError(t, err)
	assert.True(t, found, "IPv6 prefix stored lower case with af 6")

	_, found, err = s.Find(ctx, []string{"PREFIX"}, domain.MustProperties(map[string]any{"prefix": "198.51.100.0/24"}))
	require.NoError(t, err)
	assert.False(t, found, "prefix with only invalid ROAs is not created")
}

func TestROACrawlerFetchError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	c := NewROACrawler(srv.URL)
	err := c.Run(context.Background(), newTestSession(t))
	assert.Error(t, err)
}
