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

// gamesAPIBase is the game platform's search endpoint. Declared as a var
// so tests can substitute an httptest server.
var gamesAPIBase = "https://api.rawg.io/api/games"

// gamesRatingScale is the platform's rating ceiling.
const gamesRatingScale = 5

const gamesConfidenceRef = 2000

// GamesAdapter queries the game platform and rescales the top match's
// 0-5 community rating. Rating counts feed confidence, not the score.
type GamesAdapter struct {
	Client    *http.Client
	APIKey    string
	UserAgent string
	Limiter   *rate.Limiter
}

// Name returns the source identifier.
func (a *GamesAdapter) Name() string { return "games" }

type gamesResponse struct {
	Results []struct {
		Name         string  `json:"name"`
		Rating       float64 `json:"rating"`
		RatingsCount int     `json:"ratings_count"`
	} `json:"results"`
}

// Fetch rescales the top match's bounded rating linearly onto 0-100.
func (a *GamesAdapter) Fetch(ctx context.Context, term string, _ types.Timeframe, _ string) (*types.SourceResult, error) {
	if a.APIKey == "" {
		return nil, fmt.Errorf("games source misconfigured: missing API key")
	}
	if a.Limiter != nil {
		if err := a.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	params := url.Values{
		"search": {term},
		"key":    {a.APIKey},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, gamesAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", a.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, a.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("games API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("games API returned HTTP %d", resp.StatusCode)
	}

	var gr gamesResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return nil, fmt.Errorf("parsing games response: %w", err)
	}
	if len(gr.Results) == 0 {
		return nil, fmt.Errorf("no games found for %q", term)
	}

	top := gr.Results[0]

	res := &types.SourceResult{
		SourceName:     a.Name(),
		Term:           term,
		Status:         types.StatusOK,
		RawValue:       types.Float(top.Rating),
		DataPointCount: top.RatingsCount,
		Confidence:     sampleConfidence(top.RatingsCount, gamesConfidenceRef),
		Notes:          fmt.Sprintf("community rating of %q from %d ratings", top.Name, top.RatingsCount),
	}

	n := normalize.Linear(top.Rating, 0, gamesRatingScale)
	res.NormalizedValue = types.Float(n.Score)
	if n.Fault {
		res.Confidence = 0
	}
	return res, nil
}
