package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"suumo-analysis/models"
	"suumo-analysis/scraper"
)

// DefaultBaseURL is the Yahoo! transit route search endpoint.
const DefaultBaseURL = "https://transit.yahoo.co.jp/search/result"

// Planner looks up the first suggested route between two stations.
type Planner struct {
	fetcher scraper.DocumentFetcher
	baseURL string
}

// New creates a Planner that fetches result pages through fetcher.
// An empty baseURL selects DefaultBaseURL.
func New(fetcher scraper.DocumentFetcher, baseURL string) *Planner {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Planner{fetcher: fetcher, baseURL: baseURL}
}

// SearchURL builds the result page URL for a from/to pair.
func (p *Planner) SearchURL(from, to string) string {
	q := url.Values{}
	q.Set("from", from)
	q.Set("to", to)
	return p.baseURL + "?" + q.Encode()
}

// Route returns the duration and transfer texts of the first route.
// A page without a first route is an error.
func (p *Planner) Route(ctx context.Context, from, to string) (models.Route, error) {
	doc, err := p.fetcher.Fetch(ctx, p.SearchURL(from, to))
	if err != nil {
		return models.Route{}, err
	}

	route := doc.Find("#route01").First()
	if route.Length() == 0 {
		return models.Route{}, fmt.Errorf("yahoo: no route from %q to %q", from, to)
	}

	return models.Route{
		Duration:  strings.TrimSpace(route.Find(".time").First().Text()),
		Transfers: strings.TrimSpace(route.Find(".transfer").First().Text()),
	}, nil
}
