package sqlstore

import (
	"strconv"
	"strings"
)

// Dialect captures what differs between the SQL engines the store runs on
type Dialect struct {
	Name   string
	Driver string

	// serialID is the column type of auto-assigned primary keys
	serialID string
	// timestamp is the column type of audit timestamps
	timestamp string
	// numbered placeholders ($1, $2, ...) instead of ?
	numbered bool
	// advisory transaction locks serialize merges on the same key
	advisoryLocks bool
	// maxConns bounds the connection pool; 0 means unbounded
	maxConns int
}

// SQLite runs on modernc.org/sqlite. Within a handle a single connection
// serializes transactions; across handles on one file, transactions begin
// IMMEDIATE so merges queue on the database write lock.
var SQLite = Dialect{
	Name:      "sqlite",
	Driver:    "sqlite",
	serialID:  "INTEGER PRIMARY KEY AUTOINCREMENT",
	timestamp: "DATETIME",
	maxConns:  1,
}

// Postgres runs on the pgx stdlib driver. Merges take an advisory lock on
// their key for the duration of the transaction.
var Postgres = Dialect{
	Name:          "postgres",
	Driver:        "pgx",
	serialID:      "BIGSERIAL PRIMARY KEY",
	timestamp:     "TIMESTAMPTZ",
	numbered:      true,
	advisoryLocks: true,
}

// rebind rewrites ? placeholders for dialects that number them
func (d Dialect) rebind(query string) string {
	if !d.numbered || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// schema returns the DDL statements, one per element
func (d Dialect) schema() []string {
	ts := d.timestamp
	return []string{
		`CREATE TABLE IF NOT EXISTS nodes (
			id ` + d.serialID + `,
			created_at ` + ts + ` NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at ` + ts + ` NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS node_labels (
			node_id BIGINT NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
			label TEXT NOT NULL,
			PRIMARY KEY (node_id, label)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_node_labels_label ON node_labels(label, node_id)`,
		`CREATE TABLE IF NOT EXISTS node_properties (
			node_id BIGINT NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			value TEXT NOT NULL,
			PRIMARY KEY (node_id, name)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_node_properties_value ON node_properties(name, value)`,
		`CREATE TABLE IF NOT EXISTS constraints (
			label TEXT NOT NULL,
			property TEXT NOT NULL,
			rule TEXT NOT NULL,
			created_at ` + ts + ` NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (label, property, rule)
		)`,
		`CREATE TABLE IF NOT EXISTS unique_values (
			label TEXT NOT NULL,
			property TEXT NOT NULL,
			value TEXT NOT NULL,
			node_id BIGINT NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
			PRIMARY KEY (label, property, value)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_unique_values_node ON unique_values(node_id)`,
		`CREATE TABLE IF NOT EXISTS edges (
			id ` + d.serialID + `,
			src_id BIGINT NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
			dst_id BIGINT NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
			type TEXT NOT NULL,
			fingerprint TEXT NOT NULL,
			properties TEXT NOT NULL,
			created_at ` + ts + ` NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (src_id, dst_id, type, fingerprint)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_dst ON edges(dst_id)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_type ON edges(type)`,
	}
}
