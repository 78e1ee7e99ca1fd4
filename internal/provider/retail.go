// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/time/rate"

	"github.com/versusly/compare-engine/internal/httputil"
	"github.com/versusly/compare-engine/internal/normalize"
	"github.com/versusly/compare-engine/pkg/types"
)

// retailAPIBase is the retail catalog's product search endpoint. Declared
// as a var so tests can substitute an httptest server.
var retailAPIBase = "https://api.bestbuy.com/v1/products"

const (
	// retailLogK spreads listing counts: 10^6 listings maps to 100.
	retailLogK = 6

	retailConfidenceRef = 100
)

// RetailAdapter queries the retail catalog and scores how many listings
// match the term, on a log scale.
type RetailAdapter struct {
	Client    *http.Client
	APIKey    string
	UserAgent string
	Limiter   *rate.Limiter
}

// Name returns the source identifier.
func (a *RetailAdapter) Name() string { return "retail" }

type retailResponse struct {
	Total    int `json:"total"`
	Products []struct {
		Name string `json:"name"`
	} `json:"products"`
}

// Fetch counts catalog listings matching term.
func (a *RetailAdapter) Fetch(ctx context.Context, term string, _ types.Timeframe, _ string) (*types.SourceResult, error) {
	if a.APIKey == "" {
		return nil, fmt.Errorf("retail source misconfigured: missing API key")
	}
	if a.Limiter != nil {
		if err := a.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	params := url.Values{
		"search": {term},
		"apiKey": {a.APIKey},
		"format": {"json"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, retailAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", a.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, a.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("retail API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("retail API returned HTTP %d", resp.StatusCode)
	}

	var rr retailResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return nil, fmt.Errorf("parsing retail response: %w", err)
	}
	if rr.Total <= 0 {
		return nil, fmt.Errorf("no listings found for %q", term)
	}

	count := float64(rr.Total)

	res := &types.SourceResult{
		SourceName:     a.Name(),
		Term:           term,
		Status:         types.StatusOK,
		RawValue:       types.Float(count),
		DataPointCount: rr.Total,
		Confidence:     sampleConfidence(rr.Total, retailConfidenceRef),
		Notes:          fmt.Sprintf("%d catalog listings", rr.Total),
	}

	n := normalize.Log(count, retailLogK)
	res.NormalizedValue = types.Float(n.Score)
	if n.Fault {
		res.Confidence = 0
	}
	return res, nil
}
