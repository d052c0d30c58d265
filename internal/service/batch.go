package service

import (
	"context"

	"github.com/vara-prasad-07/internet-yellow-pages/internal/domain"
	"github.com/vara-prasad-07/internet-yellow-pages/internal/repository"
)

// BatchCoordinator resolves and links in bulk, chunking store calls
type BatchCoordinator struct {
	s *Session
}

// NodeIndex maps property values to node ids. Lookups normalize their
// argument the same way the values were normalized on the way in.
type NodeIndex struct {
	property   string
	normalizer *Normalizer
	ids        map[domain.Value]domain.NodeID
}

// Get returns the node carrying v
func (ix *NodeIndex) Get(v domain.Value) (domain.NodeID, bool) {
	nv, err := ix.normalizer.NormalizeValue(ix.property, v)
	if err != nil {
		return 0, false
	}
	id, ok := ix.ids[nv]
	return id, ok
}

// Len returns the number of indexed values
func (ix *NodeIndex) Len() int {
	return len(ix.ids)
}

// Each calls fn for every indexed value
func (ix *NodeIndex) Each(fn func(v domain.Value, id domain.NodeID)) {
	for v, id := range ix.ids {
		fn(v, id)
	}
}

// ResolveManyBySingleProperty maps each value to the node of label whose
// property equals it. With create set, missing nodes are created first.
// With all set, every existing node of label that carries property is
// included, not only the requested values.
func (b *BatchCoordinator) ResolveManyBySingleProperty(ctx context.Context, label, property string, values []domain.Value, create, all bool) (*NodeIndex, error) {
	release, err := b.s.enter(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := domain.ValidateIdentifier(domain.IdentLabel, label); err != nil {
		return nil, err
	}
	if err := domain.ValidateIdentifier(domain.IdentProperty, property); err != nil {
		return nil, err
	}

	norm := make([]domain.Value, 0, len(values))
	seen := make(map[domain.Value]struct{}, len(values))
	for _, v := range values {
		nv, err := b.s.normalizer.NormalizeValue(property, v)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[nv]; ok {
			continue
		}
		seen[nv] = struct{}{}
		norm = append(norm, nv)
	}

	if create {
		for _, c := range chunk(norm, b.s.chunkSize) {
			if err := b.s.store.MergeNodesByProperty(ctx, label, property, c); err != nil {
				return nil, err
			}
		}
	}

	ix := &NodeIndex{property: property, normalizer: b.s.normalizer, ids: make(map[domain.Value]domain.NodeID, len(norm))}
	if all {
		found, err := b.s.store.MatchNodesByProperty(ctx, label, property, nil, true)
		if err != nil {
			return nil, err
		}
		ix.ids = found
	} else {
		for _, c := range chunk(norm, b.s.chunkSize) {
			found, err := b.s.store.MatchNodesByProperty(ctx, label, property, c, false)
			if err != nil {
				return nil, err
			}
			for v, id := range found {
				ix.ids[v] = id
			}
		}
	}

	b.s.events.Publish(Event{Type: EventNodesResolved, Label: label, Count: ix.Len()})
	b.s.logger.Debug("nodes resolved in bulk", "label", label, "property", property, "requested", len(norm), "indexed", ix.Len())
	return ix, nil
}

// AddLinksBulk writes one link of type typ per property set per pair. The
// result is the same as calling AddLink for each. Every property set and
// every endpoint is checked before anything is written; writes go out in
// chunks.
func (b *BatchCoordinator) AddLinksBulk(ctx context.Context, typ string, links []domain.BulkLink) error {
	release, err := b.s.enter(ctx)
	if err != nil {
		return err
	}
	defer release()

	var reqs []repository.EdgeRequest
	endpoints := make([]domain.NodeID, 0, 2*len(links))
	for _, link := range links {
		endpoints = append(endpoints, link.Src, link.Dst)
		for _, props := range link.PropertySets {
			req, err := b.s.Links.prepare(link.Src, link.Dst, typ, len(reqs), props)
			if err != nil {
				return err
			}
			reqs = append(reqs, req)
		}
	}
	if len(reqs) == 0 {
		return nil
	}
	if err := b.s.store.CheckNodes(ctx, endpoints); err != nil {
		return err
	}

	for start := 0; start < len(reqs); start += b.s.chunkSize {
		end := min(start+b.s.chunkSize, len(reqs))
		if err := b.s.store.MergeEdges(ctx, reqs[start:end]); err != nil {
			return err
		}
		b.s.logger.Debug("link chunk written", "type", typ, "from", start, "to", end)
	}

	b.s.events.Publish(Event{Type: EventLinksWritten, Label: typ, Count: len(reqs)})
	return nil
}

func chunk(values []domain.Value, size int) [][]domain.Value {
	var chunks [][]domain.Value
	for size < len(values) {
		values, chunks = values[size:], append(chunks, values[:size])
	}
	if len(values) > 0 {
		chunks = append(chunks, values)
	}
	return chunks
}
