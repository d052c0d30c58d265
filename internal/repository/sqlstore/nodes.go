package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/vara-prasad-07/internet-yellow-pages/internal/domain"
	"github.com/vara-prasad-07/internet-yellow-pages/internal/repository"
)

// MergeNode gets or creates the node identified by the request's key
func (s *Store) MergeNode(ctx context.Context, req repository.MergeNodeRequest) (domain.NodeID, error) {
	var id domain.NodeID
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = s.mergeNodeTx(ctx, tx, req)
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) mergeNodeTx(ctx context.Context, tx *sql.Tx, req repository.MergeNodeRequest) (domain.NodeID, error) {
	matchLabels, matchProps := req.Labels, req.Properties
	if req.KeyLabel != "" {
		matchLabels, matchProps = []string{req.KeyLabel}, req.Key
	}

	if err := s.lock(ctx, tx, mergeLockKey(matchLabels, matchProps)); err != nil {
		return 0, err
	}

	id, found, err := s.matchNodeTx(ctx, tx, matchLabels, matchProps)
	if err != nil {
		return 0, err
	}

	switch {
	case !found:
		if err := tx.QueryRowContext(ctx, `INSERT INTO nodes DEFAULT VALUES RETURNING id`).Scan(&id); err != nil {
			return 0, fmt.Errorf("failed to insert node: %w", err)
		}
	case req.KeyLabel == "":
		// Matched on the full map; nothing to overwrite
		return id, nil
	default:
		if _, err := tx.ExecContext(ctx, s.dialect.rebind(`UPDATE nodes SET updated_at = CURRENT_TIMESTAMP WHERE id = ?`), int64(id)); err != nil {
			return 0, fmt.Errorf("failed to touch node %d: %w", id, err)
		}
	}

	if err := s.writeLabels(ctx, tx, id, req.Labels); err != nil {
		return 0, err
	}
	if err := s.writeProperties(ctx, tx, id, req.Properties); err != nil {
		return 0, err
	}
	if err := s.enforceConstraints(ctx, tx, id); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) writeLabels(ctx context.Context, tx *sql.Tx, id domain.NodeID, labels []string) error {
	for _, label := range labels {
		if _, err := tx.ExecContext(ctx, s.dialect.rebind(`
			INSERT INTO node_labels (node_id, label) VALUES (?, ?)
			ON CONFLICT (node_id, label) DO NOTHING
		`), int64(id), label); err != nil {
			return fmt.Errorf("failed to label node %d: %w", id, err)
		}
	}
	return nil
}

func (s *Store) writeProperties(ctx context.Context, tx *sql.Tx, id domain.NodeID, props domain.Properties) error {
	for _, name := range props.Names() {
		if _, err := tx.ExecContext(ctx, s.dialect.rebind(`
			INSERT INTO node_properties (node_id, name, value) VALUES (?, ?, ?)
			ON CONFLICT (node_id, name) DO UPDATE SET value = excluded.value
		`), int64(id), name, props[name].Key()); err != nil {
			return fmt.Errorf("failed to set %s on node %d: %w", name, id, err)
		}
	}
	return nil
}

// enforceConstraints checks NOT NULL rules and re-claims the node's unique
// values. A value claimed by another node aborts the transaction.
func (s *Store) enforceConstraints(ctx context.Context, tx *sql.Tx, id domain.NodeID) error {
	labels, props, err := s.loadNode(ctx, tx, id)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, s.dialect.rebind(`DELETE FROM unique_values WHERE node_id = ?`), int64(id)); err != nil {
		return fmt.Errorf("failed to release unique values of node %d: %w", id, err)
	}

	for _, label := range labels {
		for _, c := range s.constraintsFor(label) {
			v, ok := props[c.Property]
			switch c.Rule {
			case domain.RuleNotNull:
				if !ok {
					return &domain.ConstraintViolationError{Label: c.Label, Property: c.Property, Rule: c.Rule}
				}
			case domain.RuleUnique:
				if !ok {
					continue
				}
				res, err := tx.ExecContext(ctx, s.dialect.rebind(`
					INSERT INTO unique_values (label, property, value, node_id) VALUES (?, ?, ?, ?)
					ON CONFLICT (label, property, value) DO NOTHING
				`), c.Label, c.Property, v.Key(), int64(id))
				if err != nil {
					return fmt.Errorf("failed to claim %s: %w", c.Name(), err)
				}
				if n, err := res.RowsAffected(); err != nil {
					return fmt.Errorf("failed to claim %s: %w", c.Name(), err)
				} else if n == 0 {
					return &domain.ConstraintViolationError{Label: c.Label, Property: c.Property, Rule: c.Rule}
				}
			}
		}
	}
	return nil
}

// MatchNode finds the lowest-id node carrying every label and property
func (s *Store) MatchNode(ctx context.Context, labels []string, props domain.Properties) (domain.NodeID, bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.matchNodeTx(ctx, s.db, labels, props)
}

// MatchExternalID finds the node with an EXTERNAL_ID link to the node
// labeled namespace whose id equals id
func (s *Store) MatchExternalID(ctx context.Context, namespace string, id domain.Value) (domain.NodeID, bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	ext, found, err := s.matchNodeTx(ctx, s.db, []string{namespace}, domain.Properties{domain.PropExternalID: id})
	if err != nil || !found {
		return 0, false, err
	}

	var src int64
	err = s.db.QueryRowContext(ctx, s.dialect.rebind(`
		SELECT src_id FROM edges WHERE dst_id = ? AND type = ?
		ORDER BY id LIMIT 1
	`), int64(ext), domain.LinkExternalID).Scan(&src)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to match external id link: %w", err)
	}
	return domain.NodeID(src), true, nil
}

func (s *Store) matchNodeTx(ctx context.Context, q querier, labels []string, props domain.Properties) (domain.NodeID, bool, error) {
	query, args := matchNodeQuery(labels, props)

	var id domain.NodeID
	err := q.QueryRowContext(ctx, s.dialect.rebind(query), args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to match node: %w", err)
	}
	return id, true, nil
}

// matchNodeQuery builds the subset match: every label present and every
// property equal. Extra labels or properties on the node do not matter.
func matchNodeQuery(labels []string, props domain.Properties) (string, []any) {
	labels = domain.NormalizeLabels(labels)
	args := make([]any, 0, len(labels)+2*len(props)+2)

	var b strings.Builder
	b.WriteString(`SELECT node_id FROM node_labels WHERE label IN (`)
	b.WriteString(placeholders(len(labels)))
	b.WriteString(`) GROUP BY node_id HAVING COUNT(*) = ?`)
	for _, l := range labels {
		args = append(args, l)
	}
	args = append(args, len(labels))

	if len(props) > 0 {
		b.WriteString(` INTERSECT SELECT node_id FROM node_properties WHERE `)
		for i, name := range props.Names() {
			if i > 0 {
				b.WriteString(` OR `)
			}
			b.WriteString(`(name = ? AND value = ?)`)
			args = append(args, name, props[name].Key())
		}
		b.WriteString(` GROUP BY node_id HAVING COUNT(*) = ?`)
		args = append(args, len(props))
	}

	b.WriteString(` ORDER BY 1 LIMIT 1`)
	return b.String(), args
}

// GetNode loads a node with its labels and properties
func (s *Store) GetNode(ctx context.Context, id domain.NodeID) (*domain.Node, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var exists domain.NodeID
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(`SELECT id FROM nodes WHERE id = ?`), int64(id)).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("node %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get node %d: %w", id, err)
	}

	labels, props, err := s.loadNode(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	return &domain.Node{ID: id, Labels: labels, Properties: props}, nil
}

func (s *Store) loadNode(ctx context.Context, q querier, id domain.NodeID) ([]string, domain.Properties, error) {
	labelRows, err := q.QueryContext(ctx, s.dialect.rebind(`SELECT label FROM node_labels WHERE node_id = ? ORDER BY label`), int64(id))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query labels of node %d: %w", id, err)
	}
	defer labelRows.Close()

	var labels []string
	for labelRows.Next() {
		var label string
		if err := labelRows.Scan(&label); err != nil {
			return nil, nil, fmt.Errorf("failed to scan label: %w", err)
		}
		labels = append(labels, label)
	}
	if err := labelRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating labels: %w", err)
	}

	propRows, err := q.QueryContext(ctx, s.dialect.rebind(`SELECT name, value FROM node_properties WHERE node_id = ?`), int64(id))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query properties of node %d: %w", id, err)
	}
	defer propRows.Close()

	props := domain.Properties{}
	for propRows.Next() {
		var row propertyRow
		if err := propRows.Scan(row.scanArgs()...); err != nil {
			return nil, nil, fmt.Errorf("failed to scan property: %w", err)
		}
		v, err := row.toDomain()
		if err != nil {
			return nil, nil, err
		}
		props[row.name] = v
	}
	if err := propRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating properties: %w", err)
	}

	return labels, props, nil
}

// ============================================================================
// Bulk Operations
// ============================================================================

// MergeNodesByProperty gets or creates one node per value in a single
// transaction
func (s *Store) MergeNodesByProperty(ctx context.Context, label, property string, values []domain.Value) error {
	reqs := make([]repository.MergeNodeRequest, 0, len(values))
	for _, v := range values {
		key := domain.Properties{property: v}
		reqs = append(reqs, repository.MergeNodeRequest{
			KeyLabel:   label,
			Key:        key,
			Labels:     []string{label},
			Properties: key,
		})
	}
	// A fixed order keeps concurrent bulk merges from deadlocking on locks
	sort.Slice(reqs, func(i, j int) bool {
		return lockID(mergeLockKey(reqs[i].Labels, reqs[i].Key)) < lockID(mergeLockKey(reqs[j].Labels, reqs[j].Key))
	})

	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, req := range reqs {
			if _, err := s.mergeNodeTx(ctx, tx, req); err != nil {
				return err
			}
		}
		return nil
	})
}

// MatchNodesByProperty maps each value to the node of label carrying it.
// With all set, every node of label that has the property is included.
func (s *Store) MatchNodesByProperty(ctx context.Context, label, property string, values []domain.Value, all bool) (map[domain.Value]domain.NodeID, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result := make(map[domain.Value]domain.NodeID, len(values))
	base := `
		SELECT p.node_id, p.name, p.value FROM node_properties p
		JOIN node_labels l ON l.node_id = p.node_id AND l.label = ?
		WHERE p.name = ?`

	if all {
		if err := s.collectMatches(ctx, base+` ORDER BY p.node_id`, []any{label, property}, result); err != nil {
			return nil, err
		}
		return result, nil
	}

	for _, chunk := range chunkValues(values, maxInParams) {
		args := []any{label, property}
		for _, v := range chunk {
			args = append(args, v.Key())
		}
		query := base + ` AND p.value IN (` + placeholders(len(chunk)) + `) ORDER BY p.node_id`
		if err := s.collectMatches(ctx, query, args, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (s *Store) collectMatches(ctx context.Context, query string, args []any, result map[domain.Value]domain.NodeID) error {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return fmt.Errorf("failed to query nodes by property: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id domain.NodeID
		var row propertyRow
		if err := rows.Scan(append([]any{&id}, row.scanArgs()...)...); err != nil {
			return fmt.Errorf("failed to scan node: %w", err)
		}
		v, err := row.toDomain()
		if err != nil {
			return err
		}
		// Rows are ordered by id, so the lowest id wins for non-unique values
		if _, ok := result[v]; !ok {
			result[v] = id
		}
	}
	return rows.Err()
}
