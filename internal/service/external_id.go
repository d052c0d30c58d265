package service

import (
	"context"

	"github.com/vara-prasad-07/internet-yellow-pages/internal/domain"
)

// ExternalIDIndex resolves entities by identifiers from other databases,
// stored as nodes labeled with the namespace (e.g. PeeringDB) and linked
// from the entity by EXTERNAL_ID
type ExternalIDIndex struct {
	s *Session
}

// ResolveByExternalID finds the node linked by EXTERNAL_ID to the
// identifier node of namespace with the given id. It never creates.
func (x *ExternalIDIndex) ResolveByExternalID(ctx context.Context, namespace string, id domain.Value) (domain.NodeID, bool, error) {
	release, err := x.s.enter(ctx)
	if err != nil {
		return 0, false, err
	}
	defer release()

	if err := domain.ValidateIdentifier(domain.IdentLabel, namespace); err != nil {
		return 0, false, err
	}
	id, err = x.s.normalizer.NormalizeValue(domain.PropExternalID, id)
	if err != nil {
		return 0, false, err
	}
	return x.s.store.MatchExternalID(ctx, namespace, id)
}

// LinkExternalID gets or creates the external-identifier node and links
// node to it. props must carry provenance; it is checked before anything
// is written.
func (x *ExternalIDIndex) LinkExternalID(ctx context.Context, node domain.NodeID, namespace string, id domain.Value, props domain.Properties) (domain.NodeID, error) {
	release, err := x.s.enter(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	if _, err := x.s.Links.prepare(node, 0, domain.LinkExternalID, -1, props); err != nil {
		return 0, err
	}

	ext, _, err := x.s.Resolver.resolve(ctx, []string{namespace}, domain.Properties{domain.PropExternalID: id}, true)
	if err != nil {
		return 0, err
	}

	link := domain.LinkSpec{Type: domain.LinkExternalID, Dst: ext, Properties: props}
	if err := x.s.Links.addLinks(ctx, node, []domain.LinkSpec{link}); err != nil {
		return 0, err
	}
	return ext, nil
}
