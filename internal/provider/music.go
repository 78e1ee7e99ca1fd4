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

// musicAPIBase is the music platform's artist search endpoint. Keyless.
// Declared as a var so tests can substitute an httptest server.
var musicAPIBase = "https://api.deezer.com/search/artist"

const (
	// musicLogK spreads fan counts: 10^8 fans maps to 100.
	musicLogK = 8

	musicConfidenceRef = 5
)

// MusicAdapter queries the music platform and scores the best-matching
// artist's fan count on a log scale.
type MusicAdapter struct {
	Client    *http.Client
	UserAgent string
	Limiter   *rate.Limiter
}

// Name returns the source identifier.
func (a *MusicAdapter) Name() string { return "music" }

type musicResponse struct {
	Data []struct {
		Name  string  `json:"name"`
		NbFan float64 `json:"nb_fan"`
	} `json:"data"`
}

// Fetch takes the top artist match's fan count for term.
func (a *MusicAdapter) Fetch(ctx context.Context, term string, _ types.Timeframe, _ string) (*types.SourceResult, error) {
	if a.Limiter != nil {
		if err := a.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	params := url.Values{"q": {term}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, musicAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", a.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, a.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("music API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("music API returned HTTP %d", resp.StatusCode)
	}

	var mr musicResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return nil, fmt.Errorf("parsing music response: %w", err)
	}
	if len(mr.Data) == 0 {
		return nil, fmt.Errorf("no artists found for %q", term)
	}

	fans := mr.Data[0].NbFan

	res := &types.SourceResult{
		SourceName:     a.Name(),
		Term:           term,
		Status:         types.StatusOK,
		RawValue:       types.Float(fans),
		DataPointCount: len(mr.Data),
		Confidence:     sampleConfidence(len(mr.Data), musicConfidenceRef),
		Notes:          fmt.Sprintf("fan count of best match %q", mr.Data[0].Name),
	}

	n := normalize.Log(fans, musicLogK)
	res.NormalizedValue = types.Float(n.Score)
	if n.Fault {
		res.Confidence = 0
	}
	return res, nil
}
