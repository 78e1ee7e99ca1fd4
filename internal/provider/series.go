// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/versusly/compare-engine/internal/httputil"
	"github.com/versusly/compare-engine/pkg/types"
)

// seriesAPIBase is the interest-series endpoint of the trend-fetching
// service. Declared as a var so tests can substitute an httptest server.
var seriesAPIBase = "https://trends.versusly.dev/api/interest"

// HTTPSeries fetches search-interest series over HTTP. It is the
// production SeriesProvider; the series service itself is a separate
// component and its payload is consumed opaquely.
type HTTPSeries struct {
	Client    *http.Client
	UserAgent string
}

type seriesResponse struct {
	Series []float64 `json:"series"`
}

// Series returns the interest series for term within the timeframe and
// geo scope.
func (p *HTTPSeries) Series(ctx context.Context, term string, tf types.Timeframe, geo string) ([]float64, error) {
	params := url.Values{
		"term":      {term},
		"timeframe": {string(tf)},
	}
	if geo != "" {
		params.Set("geo", geo)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, seriesAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", p.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, p.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("series request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("series service returned HTTP %d", resp.StatusCode)
	}

	var sr seriesResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing series response: %w", err)
	}
	return sr.Series, nil
}
