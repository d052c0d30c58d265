package service

import (
	"context"

	"github.com/vara-prasad-07/internet-yellow-pages/internal/domain"
	"github.com/vara-prasad-07/internet-yellow-pages/internal/repository"
)

// LinkWriter writes provenance-carrying relationships
type LinkWriter struct {
	s *Session
}

// AddLink writes one link. It is a no-op when an identical link (same
// endpoints, type and full property map) exists; a link differing in any
// property is added alongside.
func (w *LinkWriter) AddLink(ctx context.Context, src, dst domain.NodeID, typ string, props domain.Properties) error {
	release, err := w.s.enter(ctx)
	if err != nil {
		return err
	}
	defer release()

	req, err := w.prepare(src, dst, typ, -1, props)
	if err != nil {
		return err
	}
	if err := w.s.store.MergeEdge(ctx, req); err != nil {
		return err
	}

	w.s.events.Publish(Event{Type: EventLinksWritten, Label: typ, Count: 1})
	return nil
}

// AddLinks writes several links from src. Every entry is checked before
// anything is written; the first invalid entry fails the whole call and
// its index is recorded in the error.
func (w *LinkWriter) AddLinks(ctx context.Context, src domain.NodeID, links []domain.LinkSpec) error {
	release, err := w.s.enter(ctx)
	if err != nil {
		return err
	}
	defer release()
	return w.addLinks(ctx, src, links)
}

func (w *LinkWriter) addLinks(ctx context.Context, src domain.NodeID, links []domain.LinkSpec) error {
	if len(links) == 0 {
		return nil
	}

	reqs := make([]repository.EdgeRequest, 0, len(links))
	for i, link := range links {
		req, err := w.prepare(src, link.Dst, link.Type, i, link.Properties)
		if err != nil {
			return err
		}
		reqs = append(reqs, req)
	}

	if err := w.s.store.MergeEdges(ctx, reqs); err != nil {
		return err
	}

	w.s.events.Publish(Event{Type: EventLinksWritten, Count: len(reqs)})
	w.s.logger.Debug("links written", "src", src, "count", len(reqs))
	return nil
}

// prepare checks the type and provenance of one link and normalizes its
// properties. index is the position in a batch, or -1.
func (w *LinkWriter) prepare(src, dst domain.NodeID, typ string, index int, props domain.Properties) (repository.EdgeRequest, error) {
	if err := domain.ValidateIdentifier(domain.IdentType, typ); err != nil {
		return repository.EdgeRequest{}, err
	}
	if missing := domain.MissingProvenance(props); len(missing) > 0 {
		return repository.EdgeRequest{}, &domain.MissingProvenanceError{Type: typ, Index: index, Missing: missing}
	}
	if err := domain.ValidatePropertyNames(props); err != nil {
		return repository.EdgeRequest{}, err
	}
	norm, err := w.s.normalizer.Normalize(props)
	if err != nil {
		return repository.EdgeRequest{}, err
	}
	return repository.EdgeRequest{Src: src, Dst: dst, Type: typ, Properties: norm}, nil
}
