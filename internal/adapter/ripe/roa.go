// Package ripe crawls the RPKI data published by the RIPE NCC.
package ripe

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/vara-prasad-07/internet-yellow-pages/internal/adapter"
	"github.com/vara-prasad-07/internet-yellow-pages/internal/domain"
	"github.com/vara-prasad-07/internet-yellow-pages/internal/service"
)

const (
	Name         = "ripe.roa"
	Organization = "RIPE NCC"
	DefaultURL   = "https://ftp.ripe.net/rpki"
)

// TALs are the trust anchors whose validated ROAs are published daily
var TALs = []string{"afrinic.tal", "apnic.tal", "arin.tal", "lacnic.tal", "ripencc.tal"}

// ROACrawler links prefixes to the ASes authorized to originate them
type ROACrawler struct {
	adapter.Base
	now func() time.Time
}

// NewROACrawler creates the crawler. An empty url selects DefaultURL.
func NewROACrawler(url string) *ROACrawler {
	if url == "" {
		url = DefaultURL
	}
	return &ROACrawler{
		Base: adapter.NewBase(Name, Organization, strings.TrimSuffix(url, "/")),
		now:  time.Now,
	}
}

// roa is one row of a roas.csv file
type roa struct {
	uri       string
	asn       string
	maxLength string
	notBefore string
	notAfter  string
}

// Run fetches the ROA file of every TAL and writes one
// ROUTE_ORIGIN_AUTHORIZATION link per ROA, from prefix to AS
func (c *ROACrawler) Run(ctx context.Context, s *service.Session) error {
	ref := c.Reference()
	datePath := c.datePath(ctx)

	for _, tal := range TALs {
		url := fmt.Sprintf("%s/%s/%s/roas.csv", c.URL, tal, datePath)
		c.Logger.Info("fetching ROA file", "url", url)

		body, err := c.Fetch(ctx, url)
		if err != nil {
			return err
		}

		prefixes, byPrefix, err := parseROAs(bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("%s: %w", url, err)
		}

		for _, prefix := range prefixes {
			if err := c.update(ctx, s, ref, prefix, byPrefix[prefix]); err != nil {
				return fmt.Errorf("prefix %s: %w", prefix, err)
			}
		}
		c.Logger.Info("processed ROA file", "tal", tal, "prefixes", len(prefixes))
	}
	return nil
}

// datePath returns today's YYYY/MM/DD, or yesterday's when today's
// files are not published yet
func (c *ROACrawler) datePath(ctx context.Context) string {
	day := c.now().UTC()
	probe := fmt.Sprintf("%s/%s/%s/roas.csv", c.URL, TALs[0], day.Format("2006/01/02"))
	if !c.Available(ctx, probe) {
		day = day.AddDate(0, 0, -1)
		c.Logger.Warn("today's data not yet available, using yesterday's", "date", day.Format("2006/01/02"))
	}
	return day.Format("2006/01/02")
}

// update writes the ROAs of one prefix. Rows whose ASN cannot be parsed
// are skipped.
func (c *ROACrawler) update(ctx context.Context, s *service.Session, ref domain.Reference, prefix string, roas []roa) error {
	links := make([]domain.LinkSpec, 0, len(roas))
	for _, r := range roas {
		asn := domain.Properties{domain.PropASN: domain.String(strings.TrimPrefix(r.asn, "AS"))}
		asID, err := s.GetOrCreate(ctx, []string{domain.LabelAS}, asn)
		var malformed *domain.MalformedValueError
		if errors.As(err, &malformed) {
			c.Logger.Warn("skipping ROA with invalid ASN", "prefix", prefix, "asn", r.asn, "uri", r.uri)
			continue
		}
		if err != nil {
			return err
		}

		vrp := domain.Properties{
			"notBefore": domain.String(r.notBefore),
			"notAfter":  domain.String(r.notAfter),
			"uri":       domain.String(r.uri),
			"maxLength": maxLengthValue(r.maxLength),
		}
		links = append(links, domain.LinkSpec{
			Type:       domain.LinkRouteOriginAuthorization,
			Dst:        asID,
			Properties: ref.With(vrp),
		})
	}
	if len(links) == 0 {
		return nil
	}

	af := int64(6)
	if strings.Contains(prefix, ".") {
		af = 4
	}
	prefixID, err := s.GetOrCreate(ctx, []string{domain.LabelPrefix}, domain.Properties{
		domain.PropPrefix: domain.String(prefix),
		domain.PropAF:     domain.Int(af),
	})
	if err != nil {
		return err
	}

	return s.AddLinks(ctx, prefixID, links)
}

func maxLengthValue(s string) domain.Value {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return domain.Int(n)
	}
	return domain.String(s)
}

// parseROAs reads URI,ASN,IP Prefix,Max Length,Not Before,Not After rows
// and groups them by prefix, keeping first-seen prefix order
func parseROAs(r io.Reader) ([]string, map[string][]roa, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 6
	reader.TrimLeadingSpace = true

	var prefixes []string
	byPrefix := make(map[string][]roa)
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse CSV: %w", err)
		}
		if rec[0] == "URI" {
			continue
		}

		prefix := rec[2]
		if _, ok := byPrefix[prefix]; !ok {
			prefixes = append(prefixes, prefix)
		}
		byPrefix[prefix] = append(byPrefix[prefix], roa{
			uri:       rec[0],
			asn:       rec[1],
			maxLength: rec[3],
			notBefore: rec[4],
			notAfter:  rec[5],
		})
	}
	return prefixes, byPrefix, nil
}
