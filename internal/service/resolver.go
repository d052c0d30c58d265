package service

import (
	"context"

	"github.com/vara-prasad-07/internet-yellow-pages/internal/domain"
	"github.com/vara-prasad-07/internet-yellow-pages/internal/repository"
)

// Resolver maps (labels, properties) to a node identity
type Resolver struct {
	s *Session
}

// Resolve returns the node described by labels and props.
//
// With create set, the node is matched on its key label's key properties
// and created if absent; every requested label and property is then
// written, so found is always true. A request with no constrained label
// is matched on its full property map and nothing is overwritten.
//
// Without create nothing is written: the node must carry every requested
// label and property, and found reports whether one does.
func (r *Resolver) Resolve(ctx context.Context, labels []string, props domain.Properties, create bool) (domain.NodeID, bool, error) {
	release, err := r.s.enter(ctx)
	if err != nil {
		return 0, false, err
	}
	defer release()
	return r.resolve(ctx, labels, props, create)
}

// GetOrCreate is Resolve with create set
func (r *Resolver) GetOrCreate(ctx context.Context, labels []string, props domain.Properties) (domain.NodeID, error) {
	id, _, err := r.Resolve(ctx, labels, props, true)
	return id, err
}

// Find is Resolve without create
func (r *Resolver) Find(ctx context.Context, labels []string, props domain.Properties) (domain.NodeID, bool, error) {
	return r.Resolve(ctx, labels, props, false)
}

func (r *Resolver) resolve(ctx context.Context, labels []string, props domain.Properties, create bool) (domain.NodeID, bool, error) {
	labels, norm, err := r.prepare(labels, props)
	if err != nil {
		return 0, false, err
	}

	if !create {
		return r.s.store.MatchNode(ctx, labels, norm)
	}

	req, err := r.request(labels, norm)
	if err != nil {
		return 0, false, err
	}

	id, err := r.s.store.MergeNode(ctx, req)
	if err != nil {
		return 0, false, err
	}

	r.s.events.Publish(Event{Type: EventNodeResolved, Label: req.KeyLabel})
	r.s.logger.Debug("node resolved", "labels", labels, "key_label", req.KeyLabel, "id", id)
	return id, true, nil
}

// prepare validates identifiers and normalizes properties
func (r *Resolver) prepare(labels []string, props domain.Properties) ([]string, domain.Properties, error) {
	if err := domain.ValidateLabels(labels); err != nil {
		return nil, nil, err
	}
	if err := domain.ValidatePropertyNames(props); err != nil {
		return nil, nil, err
	}
	norm, err := r.s.normalizer.Normalize(props)
	if err != nil {
		return nil, nil, err
	}
	return domain.NormalizeLabels(labels), norm, nil
}

// request builds the store merge for a normalized node request
func (r *Resolver) request(labels []string, props domain.Properties) (repository.MergeNodeRequest, error) {
	req := repository.MergeNodeRequest{Labels: labels, Properties: props}

	keyLabel, ok := r.s.constraints.KeyLabel(labels)
	if !ok {
		return req, nil
	}

	key, missing := props.Restrict(r.s.constraints.KeyProperties(keyLabel))
	if len(missing) > 0 {
		return req, &domain.MissingKeyError{Label: keyLabel, Property: missing[0]}
	}

	req.KeyLabel = keyLabel
	req.Key = key
	return req, nil
}
