package adapter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vara-prasad-07/internet-yellow-pages/internal/domain"
	"github.com/vara-prasad-07/internet-yellow-pages/internal/service"
)

// Crawler pulls one published dataset into the graph
type Crawler interface {
	// Name returns the unique identifier for this crawler, e.g. "ripe.roa"
	Name() string

	// Run fetches the dataset and writes it through the session. The
	// session is opened and closed by the caller.
	Run(ctx context.Context, s *service.Session) error
}

// Base carries what every crawler shares: its name, the organization and
// URL it cites as provenance, an HTTP client and a logger
type Base struct {
	name         string
	Organization string
	URL          string
	InfoURL      string
	Client       *http.Client
	Logger       *log.Logger
}

// NewBase creates the shared crawler state
func NewBase(name, organization, url string) Base {
	return Base{
		name:         name,
		Organization: organization,
		URL:          url,
		Client:       &http.Client{Timeout: 5 * time.Minute},
		Logger:       log.With("crawler", name),
	}
}

// Name returns the crawler name
func (b *Base) Name() string {
	return b.name
}

// Reference returns a provenance bundle stamped with the current time.
// Crawlers take a fresh one per run.
func (b *Base) Reference() domain.Reference {
	ref := domain.NewReference(b.Organization, b.URL)
	ref.InfoURL = b.InfoURL
	return ref
}

// Fetch GETs url and returns the body. Any status other than 200 is an
// error.
func (b *Base) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := b.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s: %s", url, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", url, err)
	}
	return body, nil
}

// Available reports whether a HEAD of url answers 200
func (b *Base) Available(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}
	resp, err := b.Client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
