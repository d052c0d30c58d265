package repository

import (
	"context"

	"github.com/vara-prasad-07/internet-yellow-pages/internal/domain"
)

// MergeNodeRequest asks for an atomic get-or-create of the node identified
// by (KeyLabel, Key). On both the create and the match path the store sets
// every entry of Properties and attaches every label in Labels.
// An empty KeyLabel means "match on all of Labels and Properties, create
// if absent, overwrite nothing".
type MergeNodeRequest struct {
	KeyLabel   string
	Key        domain.Properties
	Labels     []string
	Properties domain.Properties
}

// EdgeRequest asks for an atomic match-or-create of an edge identified by
// (Src, Dst, Type, Properties.Fingerprint()).
type EdgeRequest struct {
	Src        domain.NodeID
	Dst        domain.NodeID
	Type       string
	Properties domain.Properties
}

// Store defines the interface for graph data access. Implementations must
// be safe for concurrent use by multiple sessions.
type Store interface {
	// Schema
	InstallConstraint(ctx context.Context, c domain.Constraint) error

	// Nodes
	MergeNode(ctx context.Context, req MergeNodeRequest) (domain.NodeID, error)
	MatchNode(ctx context.Context, labels []string, props domain.Properties) (domain.NodeID, bool, error)
	MatchExternalID(ctx context.Context, namespace string, id domain.Value) (domain.NodeID, bool, error)
	GetNode(ctx context.Context, id domain.NodeID) (*domain.Node, error)
	// CheckNodes fails with UnknownNodeError for the first id naming no node
	CheckNodes(ctx context.Context, ids []domain.NodeID) error

	// Edges
	MergeEdge(ctx context.Context, req EdgeRequest) error
	ListEdges(ctx context.Context, src, dst domain.NodeID) ([]domain.Link, error)

	// Bulk operations
	MergeNodesByProperty(ctx context.Context, label, property string, values []domain.Value) error
	MatchNodesByProperty(ctx context.Context, label, property string, values []domain.Value, all bool) (map[domain.Value]domain.NodeID, error)
	MergeEdges(ctx context.Context, reqs []EdgeRequest) error

	// Ping verifies the store is reachable
	Ping(ctx context.Context) error

	// Close releases resources
	Close() error
}
