package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/vara-prasad-07/internet-yellow-pages/internal/domain"
	"github.com/vara-prasad-07/internet-yellow-pages/internal/repository"
)

// DefaultChunkSize bounds the number of items per bulk store call
const DefaultChunkSize = 10000

// Options configures a session. Zero values select the defaults.
type Options struct {
	Normalizer  *Normalizer
	Constraints *ConstraintRegistry
	ChunkSize   int
	Events      *EventBus
	Logger      *log.Logger
}

// Session is one client's scoped handle on the graph. It owns the store
// handle it was opened with and closes it on Close. Sessions are safe for
// concurrent use; Close waits for in-flight operations.
type Session struct {
	mu     sync.RWMutex
	closed bool

	store       repository.Store
	normalizer  *Normalizer
	constraints *ConstraintRegistry
	chunkSize   int
	events      *EventBus
	logger      *log.Logger

	Resolver    *Resolver
	Links       *LinkWriter
	ExternalIDs *ExternalIDIndex
	Batch       *BatchCoordinator
}

// Open pings the store and installs the declared constraints. A store that
// cannot be reached yields a *domain.ConnectionError.
func Open(ctx context.Context, store repository.Store, opts Options) (*Session, error) {
	if opts.Normalizer == nil {
		opts.Normalizer = DefaultNormalizer()
	}
	if opts.Constraints == nil {
		opts.Constraints = DefaultConstraints()
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	if err := store.Ping(ctx); err != nil {
		return nil, &domain.ConnectionError{Backend: fmt.Sprintf("%T", store), Err: err}
	}

	if err := opts.Constraints.Install(ctx, store); err != nil {
		return nil, err
	}

	s := &Session{
		store:       store,
		normalizer:  opts.Normalizer,
		constraints: opts.Constraints,
		chunkSize:   opts.ChunkSize,
		events:      opts.Events,
		logger:      opts.Logger,
	}
	s.Resolver = &Resolver{s: s}
	s.Links = &LinkWriter{s: s}
	s.ExternalIDs = &ExternalIDIndex{s: s}
	s.Batch = &BatchCoordinator{s: s}

	installed := len(opts.Constraints.Constraints())
	s.events.Publish(Event{Type: EventConstraintsInstalled, Count: installed})
	s.events.Publish(Event{Type: EventSessionOpened})
	s.logger.Debug("graph session opened", "constraints", installed)
	return s, nil
}

// WithSession opens a session, runs fn, and closes the session on every
// path. A close error is reported only if fn succeeded.
func WithSession(ctx context.Context, store repository.Store, opts Options, fn func(*Session) error) (err error) {
	s, err := Open(ctx, store, opts)
	if err != nil {
		store.Close()
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(s)
}

// Close releases the store. Closing twice is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	s.events.Publish(Event{Type: EventSessionClosed})
	s.logger.Debug("graph session closed")

	if err := s.store.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	return nil
}

// enter guards an operation: the session must be open and ctx not done.
// The returned func must be called when the operation finishes.
func (s *Session) enter(ctx context.Context) (func(), error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, domain.ErrSessionClosed
	}
	if err := ctx.Err(); err != nil {
		s.mu.RUnlock()
		return nil, err
	}
	return s.mu.RUnlock, nil
}

// Constraints returns the registry the session installed
func (s *Session) Constraints() *ConstraintRegistry {
	return s.constraints
}

// ============================================================================
// Convenience forwarding
// ============================================================================

// GetOrCreate resolves a node, creating it when absent
func (s *Session) GetOrCreate(ctx context.Context, labels []string, props domain.Properties) (domain.NodeID, error) {
	return s.Resolver.GetOrCreate(ctx, labels, props)
}

// Find resolves a node without creating it
func (s *Session) Find(ctx context.Context, labels []string, props domain.Properties) (domain.NodeID, bool, error) {
	return s.Resolver.Find(ctx, labels, props)
}

// AddLink writes one provenance-carrying link
func (s *Session) AddLink(ctx context.Context, src, dst domain.NodeID, typ string, props domain.Properties) error {
	return s.Links.AddLink(ctx, src, dst, typ, props)
}

// AddLinks writes several links from src
func (s *Session) AddLinks(ctx context.Context, src domain.NodeID, links []domain.LinkSpec) error {
	return s.Links.AddLinks(ctx, src, links)
}

// GetNode loads a node for inspection
func (s *Session) GetNode(ctx context.Context, id domain.NodeID) (*domain.Node, error) {
	release, err := s.enter(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return s.store.GetNode(ctx, id)
}

// ListEdges returns the links from src to dst
func (s *Session) ListEdges(ctx context.Context, src, dst domain.NodeID) ([]domain.Link, error) {
	release, err := s.enter(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return s.store.ListEdges(ctx, src, dst)
}

// IsClosed reports whether err means the session was already closed
func IsClosed(err error) bool {
	return errors.Is(err, domain.ErrSessionClosed)
}
