// Package codec reads graph documents: node and link lists that the file
// importer feeds through the identity-resolution service.
package codec

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/vara-prasad-07/internet-yellow-pages/internal/domain"
)

// Importer interface for reading graph documents from various formats
type Importer interface {
	Parse(r io.Reader) (*Document, error)
	Format() string
}

// ForPath picks an importer by file extension
func ForPath(path string) (Importer, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return NewYAMLCodec(), nil
	case ".json":
		return NewJSONCodec(), nil
	default:
		return nil, fmt.Errorf("unsupported document format %q", filepath.Ext(path))
	}
}

// Document is a parsed, validated graph document
type Document struct {
	Reference *domain.Reference
	Nodes     []NodeSpec
	Links     []LinkSpec
}

// NodeSpec is one node to resolve. Ref names it within the document.
type NodeSpec struct {
	Ref         string
	Labels      []string
	Properties  domain.Properties
	ExternalIDs []ExternalID
}

// ExternalID is an identifier of the node in another database
type ExternalID struct {
	Namespace string
	ID        domain.Value
}

// LinkSpec is one link between two document nodes
type LinkSpec struct {
	Type       string
	From       string
	To         string
	Properties domain.Properties
}

// ============================================================================
// Wire format, shared by the YAML and JSON codecs
// ============================================================================

type rawDocument struct {
	Reference *rawReference `yaml:"reference,omitempty" json:"reference,omitempty"`
	Nodes     []rawNode     `yaml:"nodes" json:"nodes"`
	Links     []rawLink     `yaml:"links" json:"links"`
}

type rawReference struct {
	Source     string     `yaml:"source" json:"source"`
	URL        string     `yaml:"url" json:"url"`
	InfoURL    string     `yaml:"info_url,omitempty" json:"info_url,omitempty"`
	ModifiedAt *time.Time `yaml:"modified_at,omitempty" json:"modified_at,omitempty"`
}

type rawNode struct {
	Ref         string          `yaml:"ref" json:"ref"`
	Labels      []string        `yaml:"labels" json:"labels"`
	Properties  map[string]any  `yaml:"properties,omitempty" json:"properties,omitempty"`
	ExternalIDs []rawExternalID `yaml:"external_ids,omitempty" json:"external_ids,omitempty"`
}

type rawExternalID struct {
	Namespace string `yaml:"namespace" json:"namespace"`
	ID        any    `yaml:"id" json:"id"`
}

type rawLink struct {
	Type       string         `yaml:"type" json:"type"`
	From       string         `yaml:"from" json:"from"`
	To         string         `yaml:"to" json:"to"`
	Properties map[string]any `yaml:"properties,omitempty" json:"properties,omitempty"`
}

// decode converts and validates the wire form
func (raw *rawDocument) decode() (*Document, error) {
	doc := &Document{
		Nodes: make([]NodeSpec, 0, len(raw.Nodes)),
		Links: make([]LinkSpec, 0, len(raw.Links)),
	}

	if raw.Reference != nil {
		if raw.Reference.Source == "" || raw.Reference.URL == "" {
			return nil, fmt.Errorf("reference requires source and url")
		}
		ref := domain.NewReference(raw.Reference.Source, raw.Reference.URL)
		ref.InfoURL = raw.Reference.InfoURL
		ref.ModifiedAt = raw.Reference.ModifiedAt
		doc.Reference = &ref
	}

	refs := make(map[string]struct{}, len(raw.Nodes))
	for i, rn := range raw.Nodes {
		if rn.Ref == "" {
			return nil, fmt.Errorf("node %d: missing ref", i)
		}
		if _, dup := refs[rn.Ref]; dup {
			return nil, fmt.Errorf("node %d: duplicate ref %q", i, rn.Ref)
		}
		refs[rn.Ref] = struct{}{}

		if len(rn.Labels) == 0 {
			return nil, fmt.Errorf("node %q: no labels", rn.Ref)
		}
		props, err := domain.PropertiesFrom(rn.Properties)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", rn.Ref, err)
		}

		node := NodeSpec{Ref: rn.Ref, Labels: rn.Labels, Properties: props}
		for _, rx := range rn.ExternalIDs {
			id, err := domain.FromAny(rx.ID)
			if err != nil {
				return nil, fmt.Errorf("node %q: external id %s: %w", rn.Ref, rx.Namespace, err)
			}
			node.ExternalIDs = append(node.ExternalIDs, ExternalID{Namespace: rx.Namespace, ID: id})
		}
		doc.Nodes = append(doc.Nodes, node)
	}

	for i, rl := range raw.Links {
		for _, end := range []string{rl.From, rl.To} {
			if _, ok := refs[end]; !ok {
				return nil, fmt.Errorf("link %d: unknown node ref %q", i, end)
			}
		}
		props, err := domain.PropertiesFrom(rl.Properties)
		if err != nil {
			return nil, fmt.Errorf("link %d: %w", i, err)
		}
		doc.Links = append(doc.Links, LinkSpec{Type: rl.Type, From: rl.From, To: rl.To, Properties: props})
	}

	return doc, nil
}
