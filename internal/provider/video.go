// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/time/rate"

	"github.com/versusly/compare-engine/internal/httputil"
	"github.com/versusly/compare-engine/internal/normalize"
	"github.com/versusly/compare-engine/pkg/types"
)

// videoAPIBase is the video platform's top-videos endpoint. Declared as a
// var so tests can substitute an httptest server.
var videoAPIBase = "https://www.googleapis.com/youtube/v3/videos"

const (
	// videoLogK spreads view counts: 10^10 views maps to 100.
	videoLogK = 10

	videoMaxResults    = 10
	videoConfidenceRef = 10
)

// VideoAdapter queries the video platform for the top videos matching a
// term and scores the average view count on a log scale.
type VideoAdapter struct {
	Client    *http.Client
	APIKey    string
	UserAgent string
	Limiter   *rate.Limiter
}

// Name returns the source identifier.
func (a *VideoAdapter) Name() string { return "video" }

type videoResponse struct {
	Items []struct {
		Statistics struct {
			ViewCount string `json:"viewCount"`
		} `json:"statistics"`
	} `json:"items"`
}

// Fetch averages the view counts of the top videos for term. View counts
// span orders of magnitude, so the score uses the log transform.
func (a *VideoAdapter) Fetch(ctx context.Context, term string, _ types.Timeframe, geo string) (*types.SourceResult, error) {
	if a.APIKey == "" {
		return nil, fmt.Errorf("video source misconfigured: missing API key")
	}
	if a.Limiter != nil {
		if err := a.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	params := url.Values{
		"q":          {term},
		"part":       {"statistics"},
		"maxResults": {strconv.Itoa(videoMaxResults)},
		"key":        {a.APIKey},
	}
	if geo != "" {
		params.Set("regionCode", geo)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, videoAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", a.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, a.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("video API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("video API returned HTTP %d", resp.StatusCode)
	}

	var vr videoResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return nil, fmt.Errorf("parsing video response: %w", err)
	}
	if len(vr.Items) == 0 {
		return nil, fmt.Errorf("no videos found for %q", term)
	}

	var total float64
	counted := 0
	for _, item := range vr.Items {
		views, convErr := strconv.ParseFloat(item.Statistics.ViewCount, 64)
		if convErr != nil {
			continue
		}
		total += views
		counted++
	}
	if counted == 0 {
		return nil, fmt.Errorf("video response carried no parseable view counts")
	}
	avg := total / float64(counted)

	res := &types.SourceResult{
		SourceName:     a.Name(),
		Term:           term,
		Status:         types.StatusOK,
		RawValue:       types.Float(avg),
		DataPointCount: counted,
		Confidence:     sampleConfidence(counted, videoConfidenceRef),
		Notes:          fmt.Sprintf("average views across top %d videos", counted),
	}

	n := normalize.Log(avg, videoLogK)
	res.NormalizedValue = types.Float(n.Score)
	if n.Fault {
		res.Confidence = 0
	}
	return res, nil
}
