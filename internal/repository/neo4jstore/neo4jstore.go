package neo4jstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/vara-prasad-07/internet-yellow-pages/internal/domain"
	"github.com/vara-prasad-07/internet-yellow-pages/internal/repository"
)

var _ repository.Store = (*Store)(nil)

// codeConstraintFailed is the server error code for a rejected write
const codeConstraintFailed = "Neo.ClientError.Schema.ConstraintValidationFailed"

// Config holds the connection settings
type Config struct {
	URI      string
	Username string
	Password string
	Database string
	Timeout  time.Duration
}

// Store implements repository.Store with parameterized Cypher
type Store struct {
	driver   neo4j.DriverWithContext
	database string
	timeout  time.Duration

	mu     sync.RWMutex
	unique map[string]string // label -> unique property
}

// New connects to Neo4j and verifies connectivity
func New(ctx context.Context, cfg Config) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	s := &Store{
		driver:   driver,
		database: cfg.Database,
		timeout:  cfg.Timeout,
		unique:   make(map[string]string),
	}

	if err := s.Ping(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("failed to verify neo4j connectivity: %w", err)
	}

	log.Debug("neo4j store opened", "uri", cfg.URI, "database", cfg.Database)
	return s, nil
}

// Ping verifies the server is reachable
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.driver.VerifyConnectivity(ctx)
}

// Close closes the driver
func (s *Store) Close() error {
	return s.driver.Close(context.Background())
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Store) write(ctx context.Context, work neo4j.ManagedTransactionWork) (any, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite, DatabaseName: s.database})
	defer session.Close(ctx)
	return session.ExecuteWrite(ctx, work)
}

func (s *Store) read(ctx context.Context, work neo4j.ManagedTransactionWork) (any, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead, DatabaseName: s.database})
	defer session.Close(ctx)
	return session.ExecuteRead(ctx, work)
}

// ============================================================================
// Constraints
// ============================================================================

// InstallConstraint creates the constraint if it does not exist
func (s *Store) InstallConstraint(ctx context.Context, c domain.Constraint) error {
	if !c.Rule.Valid() {
		return &domain.UnsupportedConstraintError{Label: c.Label, Property: c.Property, Reason: fmt.Sprintf("unknown rule %q", c.Rule)}
	}
	if c.Rule == domain.RuleUnique {
		s.mu.Lock()
		existing, ok := s.unique[c.Label]
		if ok && existing != c.Property {
			s.mu.Unlock()
			return &domain.UnsupportedConstraintError{
				Label:    c.Label,
				Property: c.Property,
				Reason:   fmt.Sprintf("label already unique on %s", existing),
			}
		}
		s.unique[c.Label] = c.Property
		s.mu.Unlock()
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := neo4j.ExecuteQuery(ctx, s.driver, constraintQuery(c), nil, neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(s.database))
	if err != nil {
		// Property existence constraints need the enterprise edition
		if c.Rule == domain.RuleNotNull {
			log.Warn("NOT NULL constraint not installed", "constraint", c.Name(), "err", err)
			return nil
		}
		return fmt.Errorf("failed to create constraint %s: %w", c.Name(), err)
	}
	return nil
}

// ============================================================================
// Nodes
// ============================================================================

// MergeNode gets or creates a node with a single MERGE
func (s *Store) MergeNode(ctx context.Context, req repository.MergeNodeRequest) (domain.NodeID, error) {
	query, params := mergeNodeQuery(req)

	res, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		record, err := result.Single(ctx)
		if err != nil {
			return nil, err
		}
		return nodeID(record)
	})
	if err != nil {
		return 0, s.mapError(err, req)
	}
	return res.(domain.NodeID), nil
}

// MatchNode finds the lowest-id node carrying every label and property
func (s *Store) MatchNode(ctx context.Context, labels []string, props domain.Properties) (domain.NodeID, bool, error) {
	query, params := matchNodeQuery(labels, props)

	res, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		records, err := result.Collect(ctx)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, nil
		}
		return nodeID(records[0])
	})
	if err != nil {
		return 0, false, fmt.Errorf("failed to match node: %w", err)
	}
	if res == nil {
		return 0, false, nil
	}
	return res.(domain.NodeID), true, nil
}

// MatchExternalID finds the node with an EXTERNAL_ID link to the node
// labeled namespace whose id equals id
func (s *Store) MatchExternalID(ctx context.Context, namespace string, id domain.Value) (domain.NodeID, bool, error) {
	res, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, externalIDQuery(namespace), map[string]any{"id": id.Interface()})
		if err != nil {
			return nil, err
		}
		records, err := result.Collect(ctx)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, nil
		}
		return nodeID(records[0])
	})
	if err != nil {
		return 0, false, fmt.Errorf("failed to match external id: %w", err)
	}
	if res == nil {
		return 0, false, nil
	}
	return res.(domain.NodeID), true, nil
}

// GetNode loads a node with its labels and properties
func (s *Store) GetNode(ctx context.Context, id domain.NodeID) (*domain.Node, error) {
	res, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, getNodeQuery, map[string]any{"id": int64(id)})
		if err != nil {
			return nil, err
		}
		records, err := result.Collect(ctx)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, nil
		}
		return nodeFromRecord(id, records[0])
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get node %d: %w", id, err)
	}
	if res == nil {
		return nil, fmt.Errorf("node %d: %w", id, domain.ErrNotFound)
	}
	return res.(*domain.Node), nil
}

// MergeNodesByProperty gets or creates one node per value in one round trip
func (s *Store) MergeNodesByProperty(ctx context.Context, label, property string, values []domain.Value) error {
	params := map[string]any{"values": nativeValues(values)}
	_, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, mergeByPropertyQuery(label, property), params)
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	if err != nil {
		return s.mapError(err, repository.MergeNodeRequest{KeyLabel: label, Key: domain.Properties{property: domain.Value{}}})
	}
	return nil
}

// MatchNodesByProperty maps each value to the node of label carrying it
func (s *Store) MatchNodesByProperty(ctx context.Context, label, property string, values []domain.Value, all bool) (map[domain.Value]domain.NodeID, error) {
	params := map[string]any{}
	if !all {
		params["values"] = nativeValues(values)
	}

	res, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, matchByPropertyQuery(label, property, all), params)
		if err != nil {
			return nil, err
		}
		records, err := result.Collect(ctx)
		if err != nil {
			return nil, err
		}

		out := make(map[domain.Value]domain.NodeID, len(records))
		for _, record := range records {
			raw, _ := record.Get("value")
			v, err := domain.FromAny(raw)
			if err != nil {
				return nil, fmt.Errorf("property %s: %w", property, err)
			}
			id, err := nodeID(record)
			if err != nil {
				return nil, err
			}
			if _, ok := out[v]; !ok {
				out[v] = id
			}
		}
		return out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes by property: %w", err)
	}
	return res.(map[domain.Value]domain.NodeID), nil
}

// ============================================================================
// Edges
// ============================================================================

// MergeEdge creates the edge unless an identical one exists
func (s *Store) MergeEdge(ctx context.Context, req repository.EdgeRequest) error {
	return s.MergeEdges(ctx, []repository.EdgeRequest{req})
}

// MergeEdges merges every edge in one transaction, one UNWIND per type
func (s *Store) MergeEdges(ctx context.Context, reqs []repository.EdgeRequest) error {
	if len(reqs) == 0 {
		return nil
	}
	types, rows := edgeRows(reqs)

	_, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if err := checkEndpoints(ctx, tx, reqs); err != nil {
			return nil, err
		}
		for _, typ := range types {
			result, err := tx.Run(ctx, mergeEdgesQuery(typ), map[string]any{"rows": rows[typ]})
			if err != nil {
				return nil, err
			}
			if _, err := result.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		var unknown *domain.UnknownNodeError
		if errors.As(err, &unknown) {
			return unknown
		}
		return fmt.Errorf("failed to merge edges: %w", err)
	}
	return nil
}

// CheckNodes fails with UnknownNodeError for the first id that names no node
func (s *Store) CheckNodes(ctx context.Context, ids []domain.NodeID) error {
	_, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return nil, checkNodes(ctx, tx, ids)
	})
	if err != nil {
		var unknown *domain.UnknownNodeError
		if errors.As(err, &unknown) {
			return unknown
		}
		return fmt.Errorf("failed to check nodes: %w", err)
	}
	return nil
}

func checkEndpoints(ctx context.Context, tx neo4j.ManagedTransaction, reqs []repository.EdgeRequest) error {
	ids := make([]domain.NodeID, 0, 2*len(reqs))
	for _, req := range reqs {
		ids = append(ids, req.Src, req.Dst)
	}
	return checkNodes(ctx, tx, ids)
}

func checkNodes(ctx context.Context, tx neo4j.ManagedTransaction, nodeIDs []domain.NodeID) error {
	seen := make(map[int64]struct{}, len(nodeIDs))
	var ids []int64
	for _, n := range nodeIDs {
		id := int64(n)
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	result, err := tx.Run(ctx, existingNodesQuery, map[string]any{"ids": ids})
	if err != nil {
		return err
	}
	record, err := result.Single(ctx)
	if err != nil {
		return err
	}
	raw, _ := record.Get("found")
	found := make(map[int64]struct{})
	if list, ok := raw.([]any); ok {
		for _, item := range list {
			if id, ok := item.(int64); ok {
				found[id] = struct{}{}
			}
		}
	}
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			return &domain.UnknownNodeError{ID: domain.NodeID(id)}
		}
	}
	return nil
}

// ListEdges returns every edge from src to dst, oldest first
func (s *Store) ListEdges(ctx context.Context, src, dst domain.NodeID) ([]domain.Link, error) {
	res, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, listEdgesQuery, map[string]any{"src": int64(src), "dst": int64(dst)})
		if err != nil {
			return nil, err
		}
		records, err := result.Collect(ctx)
		if err != nil {
			return nil, err
		}

		links := make([]domain.Link, 0, len(records))
		for _, record := range records {
			typ, _, err := neo4j.GetRecordValue[string](record, "type")
			if err != nil {
				return nil, err
			}
			raw, _, err := neo4j.GetRecordValue[map[string]any](record, "props")
			if err != nil {
				return nil, err
			}
			delete(raw, fingerprintProp)
			props, err := domain.PropertiesFrom(raw)
			if err != nil {
				return nil, err
			}
			links = append(links, domain.Link{Type: typ, Src: src, Dst: dst, Properties: props})
		}
		return links, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	return res.([]domain.Link), nil
}

// ============================================================================
// Record Helpers
// ============================================================================

func nodeID(record *neo4j.Record) (domain.NodeID, error) {
	id, _, err := neo4j.GetRecordValue[int64](record, "nodeId")
	if err != nil {
		return 0, err
	}
	return domain.NodeID(id), nil
}

func nodeFromRecord(id domain.NodeID, record *neo4j.Record) (*domain.Node, error) {
	rawLabels, _, err := neo4j.GetRecordValue[[]any](record, "labels")
	if err != nil {
		return nil, err
	}
	labels := make([]string, 0, len(rawLabels))
	for _, l := range rawLabels {
		if s, ok := l.(string); ok {
			labels = append(labels, s)
		}
	}

	rawProps, _, err := neo4j.GetRecordValue[map[string]any](record, "props")
	if err != nil {
		return nil, err
	}
	props, err := domain.PropertiesFrom(rawProps)
	if err != nil {
		return nil, err
	}
	return &domain.Node{ID: id, Labels: domain.NormalizeLabels(labels), Properties: props}, nil
}

func nativeValues(values []domain.Value) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v.Interface()
	}
	return out
}

// mapError turns server-side constraint rejections into domain errors
func (s *Store) mapError(err error, req repository.MergeNodeRequest) error {
	var nerr *neo4j.Neo4jError
	if errors.As(err, &nerr) && nerr.Code == codeConstraintFailed {
		label := req.KeyLabel
		if label == "" && len(req.Labels) > 0 {
			label = req.Labels[0]
		}
		s.mu.RLock()
		property := s.unique[label]
		s.mu.RUnlock()
		return &domain.ConstraintViolationError{Label: label, Property: property, Rule: domain.RuleUnique}
	}
	return fmt.Errorf("failed to merge node: %w", err)
}
