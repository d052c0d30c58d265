package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/vara-prasad-07/internet-yellow-pages/internal/domain"
)

// maxInParams bounds the size of IN (...) lists
const maxInParams = 500

// querier is satisfied by *sql.DB and *sql.Tx
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ============================================================================
// Query Building Helpers
// ============================================================================

// placeholders returns n comma-separated ? markers
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// chunkValues splits values into slices of at most size elements
func chunkValues(values []domain.Value, size int) [][]domain.Value {
	var chunks [][]domain.Value
	for size < len(values) {
		values, chunks = values[size:], append(chunks, values[:size])
	}
	if len(values) > 0 {
		chunks = append(chunks, values)
	}
	return chunks
}

// mergeLockKey identifies what a merge looks up, for advisory locking
func mergeLockKey(labels []string, props domain.Properties) string {
	return strings.Join(domain.NormalizeLabels(labels), ":") + "|" + props.Canonical()
}

// lockID maps a lock key onto the int64 space of advisory locks
func lockID(key string) int64 {
	return int64(xxhash.Sum64String(key))
}

// ============================================================================
// Row Scanning Helpers
// ============================================================================

// propertyRow represents a node_properties row during scanning
type propertyRow struct {
	name  string
	value string
}

func (r *propertyRow) scanArgs() []any {
	return []any{&r.name, &r.value}
}

func (r *propertyRow) toDomain() (domain.Value, error) {
	v, err := domain.ParseKey(r.value)
	if err != nil {
		return domain.Value{}, fmt.Errorf("failed to decode property %s: %w", r.name, err)
	}
	return v, nil
}

// edgeRow represents an edges row during scanning
type edgeRow struct {
	src        domain.NodeID
	dst        domain.NodeID
	typ        string
	properties string
}

func (r *edgeRow) scanArgs() []any {
	return []any{&r.src, &r.dst, &r.typ, &r.properties}
}

func (r *edgeRow) toDomain() (domain.Link, error) {
	props, err := domain.DecodeProperties(r.properties)
	if err != nil {
		return domain.Link{}, fmt.Errorf("failed to decode %s edge properties: %w", r.typ, err)
	}
	return domain.Link{Type: r.typ, Src: r.src, Dst: r.dst, Properties: props}, nil
}
