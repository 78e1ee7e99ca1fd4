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

// mediaAPIBase is the media database's title search endpoint. Declared as
// a var so tests can substitute an httptest server.
var mediaAPIBase = "https://api.themoviedb.org/3/search/multi"

// mediaPopularityRef is the reference distribution of title popularity
// used for percentile scoring. Sampled from a broad catalog crawl; raw
// popularity is open-ended, so a percentile read keeps one blockbuster
// from pinning the scale.
var mediaPopularityRef = []float64{
	0.6, 1.4, 2.1, 3.0, 4.2, 5.8, 7.5, 9.3, 11.6, 14.2,
	17.4, 21.0, 25.3, 30.1, 36.0, 43.5, 52.8, 65.0, 82.4, 110.7,
	148.0, 210.5, 320.8, 540.2, 975.6,
}

const (
	mediaPctMin = 5
	mediaPctMax = 95

	mediaConfidenceRef = 20
)

// MediaAdapter queries the media database and scores the most popular
// matching title by percentile against a reference distribution.
type MediaAdapter struct {
	Client    *http.Client
	APIKey    string
	UserAgent string
	Limiter   *rate.Limiter
}

// Name returns the source identifier.
func (a *MediaAdapter) Name() string { return "media" }

type mediaResponse struct {
	TotalResults int `json:"total_results"`
	Results      []struct {
		Popularity float64 `json:"popularity"`
	} `json:"results"`
}

// Fetch takes the top title's popularity for term and places it within
// the reference distribution.
func (a *MediaAdapter) Fetch(ctx context.Context, term string, _ types.Timeframe, geo string) (*types.SourceResult, error) {
	if a.APIKey == "" {
		return nil, fmt.Errorf("media source misconfigured: missing API key")
	}
	if a.Limiter != nil {
		if err := a.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	params := url.Values{
		"query":   {term},
		"api_key": {a.APIKey},
	}
	if geo != "" {
		params.Set("region", geo)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", a.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, a.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("media API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("media API returned HTTP %d", resp.StatusCode)
	}

	var mr mediaResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return nil, fmt.Errorf("parsing media response: %w", err)
	}
	if len(mr.Results) == 0 {
		return nil, fmt.Errorf("no titles found for %q", term)
	}

	top := 0.0
	for _, r := range mr.Results {
		if r.Popularity > top {
			top = r.Popularity
		}
	}

	res := &types.SourceResult{
		SourceName:     a.Name(),
		Term:           term,
		Status:         types.StatusOK,
		RawValue:       types.Float(top),
		DataPointCount: mr.TotalResults,
		Confidence:     sampleConfidence(mr.TotalResults, mediaConfidenceRef),
		Notes:          fmt.Sprintf("top title popularity among %d matches", mr.TotalResults),
	}

	n := normalize.Percentile(top, mediaPopularityRef, mediaPctMin, mediaPctMax)
	res.NormalizedValue = types.Float(n.Score)
	if n.Fault {
		res.Confidence = 0
	}
	return res, nil
}
