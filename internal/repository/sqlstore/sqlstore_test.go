package sqlstore

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vara-prasad-07/internet-yellow-pages/internal/domain"
	"github.com/vara-prasad-07/internet-yellow-pages/internal/repository"
)

// ============================================================================
// Test Helpers
// ============================================================================

// newTestStore creates an in-memory SQLite store for testing
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func installDefaults(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	for _, c := range []domain.Constraint{
		{Label: "AS", Property: "asn", Rule: domain.RuleUnique},
		{Label: "AS", Property: "asn", Rule: domain.RuleNotNull},
		{Label: "PREFIX", Property: "prefix", Rule: domain.RuleUnique},
		{Label: "PREFIX", Property: "af", Rule: domain.RuleNotNull},
	} {
		require.NoError(t, s.InstallConstraint(ctx, c))
	}
}

func asRequest(asn int64, extra domain.Properties) repository.MergeNodeRequest {
	key := domain.Properties{"asn": domain.Int(asn)}
	return repository.MergeNodeRequest{
		KeyLabel:   "AS",
		Key:        key,
		Labels:     []string{"AS"},
		Properties: key.Merge(extra),
	}
}

func provenance() domain.Properties {
	return domain.Properties{
		"source":        domain.String("test"),
		"reference_url": domain.String("https://example.org"),
		"point_in_time": domain.Int(1),
	}
}

// ============================================================================
// Helper Function Tests
// ============================================================================

func TestRebind(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		input    string
		expected string
	}{
		{"sqlite unchanged", SQLite, "a = ? AND b = ?", "a = ? AND b = ?"},
		{"postgres numbered", Postgres, "a = ? AND b = ?", "a = $1 AND b = $2"},
		{"no placeholders", Postgres, "SELECT 1", "SELECT 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.dialect.rebind(tt.input))
		})
	}
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", placeholders(0))
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?, ?, ?", placeholders(3))
}

func TestChunkValues(t *testing.T) {
	values := []domain.Value{domain.Int(1), domain.Int(2), domain.Int(3), domain.Int(4), domain.Int(5)}
	chunks := chunkValues(values, 2)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[2], 1)
	assert.Empty(t, chunkValues(nil, 2))
}

func TestMatchNodeQuery(t *testing.T) {
	query, args := matchNodeQuery([]string{"PREFIX", "AS"}, domain.Properties{"asn": domain.Int(1)})
	assert.Contains(t, query, "INTERSECT")
	assert.Equal(t, []any{"AS", "PREFIX", 2, "asn", "i:1", 1}, args)

	query, args = matchNodeQuery([]string{"AS"}, nil)
	assert.NotContains(t, query, "INTERSECT")
	assert.Len(t, args, 2)
}

// ============================================================================
// Node Tests
// ============================================================================

func TestMergeNodeIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	installDefaults(t, s)
	ctx := context.Background()

	id1, err := s.MergeNode(ctx, asRequest(65000, nil))
	require.NoError(t, err)
	id2, err := s.MergeNode(ctx, asRequest(65000, nil))
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	other, err := s.MergeNode(ctx, asRequest(65001, nil))
	require.NoError(t, err)
	assert.NotEqual(t, id1, other)
}

func TestMergeNodeOverwritesOnKeyMatch(t *testing.T) {
	s := newTestStore(t)
	installDefaults(t, s)
	ctx := context.Background()

	id, err := s.MergeNode(ctx, asRequest(65000, domain.Properties{"name": domain.String("old")}))
	require.NoError(t, err)

	req := asRequest(65000, domain.Properties{"name": domain.String("new")})
	req.Labels = []string{"AS", "TRANSIT"}
	again, err := s.MergeNode(ctx, req)
	require.NoError(t, err)
	require.Equal(t, id, again)

	node, err := s.GetNode(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"AS", "TRANSIT"}, node.Labels)
	assert.Equal(t, domain.String("new"), node.Properties["name"])
	assert.Equal(t, domain.Int(65000), node.Properties["asn"])
}

func TestMergeNodeWithoutKeyMatchesFullMap(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	req := repository.MergeNodeRequest{
		Labels:     []string{"ESTIMATE"},
		Properties: domain.Properties{"name": domain.String("World Bank Population Estimate")},
	}
	id1, err := s.MergeNode(ctx, req)
	require.NoError(t, err)
	id2, err := s.MergeNode(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	req.Properties = req.Properties.Merge(domain.Properties{"year": domain.Int(2020)})
	id3, err := s.MergeNode(ctx, req)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id3)
}

func TestMergeNodeEnforcesNotNull(t *testing.T) {
	s := newTestStore(t)
	installDefaults(t, s)
	ctx := context.Background()

	key := domain.Properties{"prefix": domain.String("10.0.0.0/8")}
	_, err := s.MergeNode(ctx, repository.MergeNodeRequest{
		KeyLabel:   "PREFIX",
		Key:        key,
		Labels:     []string{"PREFIX"},
		Properties: key,
	})

	var violation *domain.ConstraintViolationError
	require.True(t, errors.As(err, &violation), "expected ConstraintViolationError, got %v", err)
	assert.Equal(t, "af", violation.Property)
	assert.Equal(t, domain.RuleNotNull, violation.Rule)

	_, found, err := s.MatchNode(ctx, []string{"PREFIX"}, key)
	require.NoError(t, err)
	assert.False(t, found, "expected the failed merge to roll back")
}

func TestMergeNodeEnforcesUnique(t *testing.T) {
	s := newTestStore(t)
	installDefaults(t, s)
	ctx := context.Background()

	asID, err := s.MergeNode(ctx, asRequest(65000, nil))
	require.NoError(t, err)

	// A second node claims asn 65000 by gaining the AS label
	req := repository.MergeNodeRequest{
		Labels:     []string{"AS", "OTHER"},
		Properties: domain.Properties{"asn": domain.Int(65000), "x": domain.Int(1)},
	}
	_, err = s.MergeNode(ctx, req)
	var violation *domain.ConstraintViolationError
	require.True(t, errors.As(err, &violation), "expected ConstraintViolationError, got %v", err)
	assert.Equal(t, domain.RuleUnique, violation.Rule)

	node, err := s.GetNode(ctx, asID)
	require.NoError(t, err)
	assert.Equal(t, []string{"AS"}, node.Labels)
}

func TestInstallConstraint(t *testing.T) {
	ctx := context.Background()

	t.Run("idempotent", func(t *testing.T) {
		s := newTestStore(t)
		installDefaults(t, s)
		installDefaults(t, s)
		assert.Len(t, s.constraintsFor("AS"), 2)
	})

	t.Run("second unique property rejected", func(t *testing.T) {
		s := newTestStore(t)
		installDefaults(t, s)
		err := s.InstallConstraint(ctx, domain.Constraint{Label: "AS", Property: "name", Rule: domain.RuleUnique})
		var unsupported *domain.UnsupportedConstraintError
		assert.True(t, errors.As(err, &unsupported), "got %v", err)
	})

	t.Run("existing duplicates rejected", func(t *testing.T) {
		s := newTestStore(t)
		for i := 0; i < 2; i++ {
			_, err := s.MergeNode(ctx, repository.MergeNodeRequest{
				Labels:     []string{"DOMAIN_NAME"},
				Properties: domain.Properties{"name": domain.String("example.org"), "i": domain.Int(int64(i))},
			})
			require.NoError(t, err)
		}
		err := s.InstallConstraint(ctx, domain.Constraint{Label: "DOMAIN_NAME", Property: "name", Rule: domain.RuleUnique})
		var violation *domain.ConstraintViolationError
		assert.True(t, errors.As(err, &violation), "got %v", err)
	})

	t.Run("reloaded on open", func(t *testing.T) {
		s := newTestStore(t)
		installDefaults(t, s)
		s.rules = map[string][]domain.Constraint{}
		require.NoError(t, s.loadConstraints(ctx))
		assert.Len(t, s.constraintsFor("PREFIX"), 2)
	})
}

func TestGetNodeNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetNode(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMatchExternalID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	installDefaults(t, s)

	as, err := s.MergeNode(ctx, asRequest(65001, nil))
	require.NoError(t, err)
	ext, err := s.MergeNode(ctx, repository.MergeNodeRequest{
		Labels:     []string{"PeeringDB"},
		Properties: domain.Properties{"id": domain.Int(7)},
	})
	require.NoError(t, err)

	_, found, err := s.MatchExternalID(ctx, "PeeringDB", domain.Int(7))
	require.NoError(t, err)
	assert.False(t, found, "identifier node without a link resolves to nothing")

	require.NoError(t, s.MergeEdge(ctx, repository.EdgeRequest{Src: as, Dst: ext, Type: "EXTERNAL_ID", Properties: provenance()}))

	got, found, err := s.MatchExternalID(ctx, "PeeringDB", domain.Int(7))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, as, got)

	_, found, err = s.MatchExternalID(ctx, "PeeringDB", domain.String("7"))
	require.NoError(t, err)
	assert.False(t, found)
}

// ============================================================================
// Edge Tests
// ============================================================================

func TestMergeEdgeAccumulatesParallelEdges(t *testing.T) {
	s := newTestStore(t)
	installDefaults(t, s)
	ctx := context.Background()

	a, err := s.MergeNode(ctx, asRequest(1, nil))
	require.NoError(t, err)
	b, err := s.MergeNode(ctx, asRequest(2, nil))
	require.NoError(t, err)

	p1 := provenance()
	p2 := provenance().Merge(domain.Properties{"point_in_time": domain.Int(2)})

	for _, p := range []domain.Properties{p1, p1, p2} {
		require.NoError(t, s.MergeEdge(ctx, repository.EdgeRequest{Src: a, Dst: b, Type: "PEERS_WITH", Properties: p}))
	}

	links, err := s.ListEdges(ctx, a, b)
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.True(t, links[0].Properties.Equal(p1))
	assert.True(t, links[1].Properties.Equal(p2))

	reverse, err := s.ListEdges(ctx, b, a)
	require.NoError(t, err)
	assert.Empty(t, reverse)
}

func TestMergeEdgeUnknownNode(t *testing.T) {
	s := newTestStore(t)
	installDefaults(t, s)
	ctx := context.Background()

	a, err := s.MergeNode(ctx, asRequest(1, nil))
	require.NoError(t, err)

	err = s.MergeEdges(ctx, []repository.EdgeRequest{
		{Src: a, Dst: a, Type: "SELF", Properties: provenance()},
		{Src: a, Dst: 999, Type: "PEERS_WITH", Properties: provenance()},
	})
	var unknown *domain.UnknownNodeError
	require.True(t, errors.As(err, &unknown), "got %v", err)
	assert.Equal(t, domain.NodeID(999), unknown.ID)

	links, err := s.ListEdges(ctx, a, a)
	require.NoError(t, err)
	assert.Empty(t, links, "expected nothing written")
}

// ============================================================================
// Bulk Tests
// ============================================================================

func TestMergeAndMatchNodesByProperty(t *testing.T) {
	s := newTestStore(t)
	installDefaults(t, s)
	ctx := context.Background()

	existing, err := s.MergeNode(ctx, asRequest(2, nil))
	require.NoError(t, err)

	values := []domain.Value{domain.Int(1), domain.Int(2), domain.Int(3)}
	require.NoError(t, s.MergeNodesByProperty(ctx, "AS", "asn", values))

	got, err := s.MatchNodesByProperty(ctx, "AS", "asn", values, false)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, existing, got[domain.Int(2)])

	_, err = s.MergeNode(ctx, asRequest(4, nil))
	require.NoError(t, err)

	some, err := s.MatchNodesByProperty(ctx, "AS", "asn", []domain.Value{domain.Int(1)}, false)
	require.NoError(t, err)
	assert.Len(t, some, 1)

	all, err := s.MatchNodesByProperty(ctx, "AS", "asn", []domain.Value{domain.Int(1)}, true)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestSQLiteDSN(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected string
	}{
		{"memory", ":memory:", ":memory:?_txlock=immediate&_pragma=busy_timeout(10000)&_pragma=foreign_keys(1)"},
		{"file", "/var/lib/iyp.db", "/var/lib/iyp.db?_txlock=immediate&_pragma=busy_timeout(10000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"},
		{"existing query", "file:iyp.db?cache=shared", "file:iyp.db?cache=shared&_txlock=immediate&_pragma=busy_timeout(10000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sqliteDSN(tt.path))
		})
	}
}

func TestSharedFileConcurrentMerges(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "iyp.db")

	const handles = 4
	stores := make([]*Store, handles)
	for i := range stores {
		s, err := NewSQLite(path)
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		installDefaults(t, s)
		stores[i] = s
	}

	const perHandle = 100
	ids := make([][]domain.NodeID, handles)
	errs := make(chan error, handles*perHandle)
	var wg sync.WaitGroup
	for h, s := range stores {
		wg.Add(1)
		go func(h int, s *Store) {
			defer wg.Done()
			for i := 0; i < perHandle; i++ {
				id, err := s.MergeNode(ctx, asRequest(int64(64500+i%20), nil))
				if err != nil {
					errs <- err
					continue
				}
				ids[h] = append(ids[h], id)
			}
		}(h, s)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("merge failed: %v", err)
	}

	// every handle resolves each asn to the same node
	for h := 1; h < handles; h++ {
		assert.Equal(t, ids[0], ids[h])
	}
	found, err := stores[0].MatchNodesByProperty(ctx, "AS", "asn", nil, true)
	require.NoError(t, err)
	assert.Len(t, found, 20)
}

func TestCheckNodes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	installDefaults(t, s)

	a, err := s.MergeNode(ctx, asRequest(1, nil))
	require.NoError(t, err)
	b, err := s.MergeNode(ctx, asRequest(2, nil))
	require.NoError(t, err)

	require.NoError(t, s.CheckNodes(ctx, []domain.NodeID{a, b, a}))
	require.NoError(t, s.CheckNodes(ctx, nil))

	err = s.CheckNodes(ctx, []domain.NodeID{a, 9999, b})
	var unknown *domain.UnknownNodeError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, domain.NodeID(9999), unknown.ID)
}
