package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vara-prasad-07/internet-yellow-pages/internal/domain"
	"github.com/vara-prasad-07/internet-yellow-pages/internal/repository"
)

// MergeEdge creates the edge unless one with the same endpoints, type and
// property map already exists
func (s *Store) MergeEdge(ctx context.Context, req repository.EdgeRequest) error {
	return s.MergeEdges(ctx, []repository.EdgeRequest{req})
}

// MergeEdges merges every edge in one transaction
func (s *Store) MergeEdges(ctx context.Context, reqs []repository.EdgeRequest) error {
	if len(reqs) == 0 {
		return nil
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.checkEndpoints(ctx, tx, reqs); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, s.dialect.rebind(`
			INSERT INTO edges (src_id, dst_id, type, fingerprint, properties)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (src_id, dst_id, type, fingerprint) DO NOTHING
		`))
		if err != nil {
			return fmt.Errorf("failed to prepare edge statement: %w", err)
		}
		defer stmt.Close()

		for _, req := range reqs {
			data, err := req.Properties.Encode()
			if err != nil {
				return fmt.Errorf("failed to marshal %s edge properties: %w", req.Type, err)
			}
			if _, err := stmt.ExecContext(ctx, int64(req.Src), int64(req.Dst), req.Type, req.Properties.Fingerprint(), data); err != nil {
				return fmt.Errorf("failed to insert %s edge %d->%d: %w", req.Type, req.Src, req.Dst, err)
			}
		}
		return nil
	})
}

// CheckNodes fails with UnknownNodeError for the first id that names no node
func (s *Store) CheckNodes(ctx context.Context, ids []domain.NodeID) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.checkNodes(ctx, s.db, ids)
}

// checkEndpoints fails with UnknownNodeError for the first missing endpoint
func (s *Store) checkEndpoints(ctx context.Context, tx *sql.Tx, reqs []repository.EdgeRequest) error {
	ids := make([]domain.NodeID, 0, 2*len(reqs))
	for _, req := range reqs {
		ids = append(ids, req.Src, req.Dst)
	}
	return s.checkNodes(ctx, tx, ids)
}

func (s *Store) checkNodes(ctx context.Context, q querier, nodeIDs []domain.NodeID) error {
	seen := make(map[domain.NodeID]struct{}, len(nodeIDs))
	var ids []domain.Value
	for _, id := range nodeIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, domain.Int(int64(id)))
	}

	found := make(map[domain.NodeID]struct{}, len(ids))
	for _, chunk := range chunkValues(ids, maxInParams) {
		args := make([]any, len(chunk))
		for i, v := range chunk {
			args[i], _ = v.AsInt()
		}
		rows, err := q.QueryContext(ctx, s.dialect.rebind(`SELECT id FROM nodes WHERE id IN (`+placeholders(len(chunk))+`)`), args...)
		if err != nil {
			return fmt.Errorf("failed to check edge endpoints: %w", err)
		}
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan node id: %w", err)
			}
			found[domain.NodeID(id)] = struct{}{}
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return fmt.Errorf("error iterating node ids: %w", err)
		}
	}

	for _, v := range ids {
		i, _ := v.AsInt()
		if _, ok := found[domain.NodeID(i)]; !ok {
			return &domain.UnknownNodeError{ID: domain.NodeID(i)}
		}
	}
	return nil
}

// ListEdges returns every edge from src to dst, oldest first
func (s *Store) ListEdges(ctx context.Context, src, dst domain.NodeID) ([]domain.Link, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(`
		SELECT src_id, dst_id, type, properties FROM edges
		WHERE src_id = ? AND dst_id = ?
		ORDER BY id
	`), int64(src), int64(dst))
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer rows.Close()

	var links []domain.Link
	for rows.Next() {
		var row edgeRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		link, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating edges: %w", err)
	}
	return links, nil
}
