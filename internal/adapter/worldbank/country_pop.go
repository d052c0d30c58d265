// Package worldbank crawls indicators from the World Bank open data API.
package worldbank

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vara-prasad-07/internet-yellow-pages/internal/adapter"
	"github.com/vara-prasad-07/internet-yellow-pages/internal/domain"
	"github.com/vara-prasad-07/internet-yellow-pages/internal/service"
)

const (
	Name         = "worldbank.country_pop"
	Organization = "WorldBank"
	DefaultURL   = "https://api.worldbank.org/v2/country/all/indicator/SP.POP.TOTL?per_page=400&mrv=1&format=json"
	InfoURL      = "https://datahelpdesk.worldbank.org/knowledgebase/articles/889392-about-the-indicators-api-documentation"

	// EstimateName names the ESTIMATE node population links point to
	EstimateName = "World Bank Population Estimate"
)

// PopulationCrawler links countries to their latest population estimate
type PopulationCrawler struct {
	adapter.Base
}

// NewPopulationCrawler creates the crawler. An empty url selects DefaultURL.
func NewPopulationCrawler(url string) *PopulationCrawler {
	if url == "" {
		url = DefaultURL
	}
	base := adapter.NewBase(Name, Organization, url)
	base.InfoURL = InfoURL
	return &PopulationCrawler{Base: base}
}

type pageInfo struct {
	LastUpdated string `json:"lastupdated"`
}

type observation struct {
	Country struct {
		ID string `json:"id"`
	} `json:"country"`
	Value *float64 `json:"value"`
}

// Run writes COUNTRY -[POPULATION {value}]-> ESTIMATE for every country
// already in the graph. Countries are never created here.
func (c *PopulationCrawler) Run(ctx context.Context, s *service.Session) error {
	body, err := c.Fetch(ctx, c.URL)
	if err != nil {
		return err
	}
	info, observations, err := parseResponse(body)
	if err != nil {
		return err
	}

	ref := c.Reference()
	if modified, err := time.Parse("2006-01-02", info.LastUpdated); err == nil {
		ref.ModifiedAt = &modified
	} else {
		c.Logger.Warn("unparsable lastupdated", "value", info.LastUpdated)
	}

	countries, err := s.Batch.ResolveManyBySingleProperty(ctx, domain.LabelCountry, domain.PropCountryCode, nil, false, true)
	if err != nil {
		return err
	}

	type line struct {
		country    domain.NodeID
		population int64
	}
	seen := make(map[line]struct{})
	var lines []line
	for _, o := range observations {
		if o.Value == nil || *o.Value == 0 {
			continue
		}
		id, ok := countries.Get(domain.String(o.Country.ID))
		if !ok {
			continue
		}
		l := line{country: id, population: int64(*o.Value)}
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		lines = append(lines, l)
	}

	estimate, err := s.GetOrCreate(ctx, []string{domain.LabelEstimate}, domain.Properties{
		domain.PropName: domain.String(EstimateName),
	})
	if err != nil {
		return err
	}

	links := make([]domain.BulkLink, 0, len(lines))
	for _, l := range lines {
		links = append(links, domain.BulkLink{
			Src:          l.country,
			Dst:          estimate,
			PropertySets: []domain.Properties{ref.With(domain.Properties{"value": domain.Int(l.population)})},
		})
	}

	c.Logger.Info("writing population estimates", "countries", len(links))
	return s.Batch.AddLinksBulk(ctx, domain.LinkPopulation, links)
}

// parseResponse splits the API's [page info, observations] pair
func parseResponse(body []byte) (pageInfo, []observation, error) {
	var info pageInfo
	var parts []json.RawMessage
	if err := json.Unmarshal(body, &parts); err != nil {
		return info, nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(parts) != 2 {
		return info, nil, fmt.Errorf("unexpected response: %d top-level elements", len(parts))
	}
	if err := json.Unmarshal(parts[0], &info); err != nil {
		return info, nil, fmt.Errorf("failed to parse page info: %w", err)
	}

	var observations []observation
	if err := json.Unmarshal(parts[1], &observations); err != nil {
		return info, nil, fmt.Errorf("failed to parse observations: %w", err)
	}
	return info, observations, nil
}
