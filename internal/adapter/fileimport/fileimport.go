// Package fileimport ingests YAML or JSON graph documents from disk.
package fileimport

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vara-prasad-07/internet-yellow-pages/internal/adapter"
	"github.com/vara-prasad-07/internet-yellow-pages/internal/codec"
	"github.com/vara-prasad-07/internet-yellow-pages/internal/service"
)

const (
	Name         = "file.import"
	Organization = "Local import"
)

// Crawler imports one document. A reference block in the document
// replaces the default file:// provenance.
type Crawler struct {
	adapter.Base
	path string

	// Result is set after a successful Run
	Result *service.ImportResult
}

// New creates an importer for the document at path
func New(path string) (*Crawler, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	return &Crawler{
		Base: adapter.NewBase(Name, Organization, "file://"+filepath.ToSlash(abs)),
		path: abs,
	}, nil
}

// Run parses the document and imports it
func (c *Crawler) Run(ctx context.Context, s *service.Session) error {
	importer, err := codec.ForPath(c.path)
	if err != nil {
		return err
	}

	f, err := os.Open(c.path)
	if err != nil {
		return fmt.Errorf("failed to open document: %w", err)
	}
	defer f.Close()

	doc, err := importer.Parse(f)
	if err != nil {
		return fmt.Errorf("%s: %w", c.path, err)
	}

	c.Logger.Debug("document parsed", "format", importer.Format(), "nodes", len(doc.Nodes), "links", len(doc.Links))
	result, err := s.Import(ctx, doc, c.Reference())
	if err != nil {
		return err
	}
	c.Result = result
	return nil
}
