// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"fmt"

	"github.com/versusly/compare-engine/internal/normalize"
	"github.com/versusly/compare-engine/pkg/types"
)

// trendsSeriesRef is the sample count at which the trends confidence ramp
// saturates (two years of weekly points).
const trendsSeriesRef = 104

// TrendsAdapter derives a signal from the search-interest series. The
// series itself comes from the upstream trend-fetching component; this
// adapter only reduces it to a comparable score.
type TrendsAdapter struct {
	Provider SeriesProvider
}

// Name returns the source identifier.
func (a *TrendsAdapter) Name() string { return "trends" }

// Fetch reduces the interest series to its mean level. Interest values are
// already on a 0-100 scale, so normalization is a direct linear pass.
func (a *TrendsAdapter) Fetch(ctx context.Context, term string, tf types.Timeframe, geo string) (*types.SourceResult, error) {
	series, err := a.Provider.Series(ctx, term, tf, geo)
	if err != nil {
		return nil, fmt.Errorf("interest series for %q: %w", term, err)
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("empty interest series for %q", term)
	}

	var sum float64
	for _, v := range series {
		sum += v
	}
	mean := sum / float64(len(series))

	res := &types.SourceResult{
		SourceName:     a.Name(),
		Term:           term,
		Status:         types.StatusOK,
		RawValue:       types.Float(mean),
		DataPointCount: len(series),
		Confidence:     sampleConfidence(len(series), trendsSeriesRef),
		Notes:          fmt.Sprintf("mean search interest over %d points", len(series)),
		Series:         series,
	}

	n := normalize.Linear(mean, 0, 100)
	res.NormalizedValue = types.Float(n.Score)
	if n.Fault {
		res.Confidence = 0
		res.Notes = "interest series outside expected 0-100 scale"
	}
	return res, nil
}
