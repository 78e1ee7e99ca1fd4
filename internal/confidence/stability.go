// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package confidence

import (
	"math"
	"sort"

	"github.com/versusly/compare-engine/pkg/types"
)

// Volatility thresholds for stability classification.
const (
	stableBelow   = 0.15
	volatileAbove = 0.40

	// spikeRatio marks a localized spike: a point this many times above
	// the series median in the moderate-volatility band reads as hype.
	spikeRatio = 2.5
)

// Volatility returns the coefficient of variation of series, clamped to
// [0,1]. An empty or flat series scores 0.
func Volatility(series []float64) float64 {
	if len(series) < 2 {
		return 0
	}

	var sum float64
	for _, v := range series {
		sum += v
	}
	mean := sum / float64(len(series))
	if mean <= 0 {
		return 0
	}

	var sq float64
	for _, v := range series {
		d := v - mean
		sq += d * d
	}
	cv := math.Sqrt(sq/float64(len(series))) / mean

	return math.Min(1, cv)
}

// ClassifyStability reads the shape of an interest series:
//
//	low volatility                      -> stable
//	localized spike over a calm base    -> hype
//	high sustained volatility           -> volatile
//
// A single spike inflates the whole-series volatility, so the spike check
// runs against the series with its peak removed: a calm baseline under a
// towering peak is hype, not sustained churn. Derived purely from series
// shape, independent of the confidence score.
func ClassifyStability(series []float64) types.Stability {
	vol := Volatility(series)
	if vol < stableBelow {
		return types.StabilityStable
	}

	if hasSpike(series) && Volatility(withoutPeak(series)) < volatileAbove {
		return types.StabilityHype
	}
	if vol >= volatileAbove {
		return types.StabilityVolatile
	}
	return types.StabilityStable
}

// withoutPeak returns series minus one occurrence of its maximum.
func withoutPeak(series []float64) []float64 {
	peak := 0
	for i, v := range series {
		if v > series[peak] {
			peak = i
		}
	}
	out := make([]float64, 0, len(series)-1)
	out = append(out, series[:peak]...)
	return append(out, series[peak+1:]...)
}

// hasSpike reports whether the series peak towers over its median.
func hasSpike(series []float64) bool {
	if len(series) < 3 {
		return false
	}

	sorted := append([]float64(nil), series...)
	sort.Float64s(sorted)
	median := sorted[len(sorted)/2]
	if median <= 0 {
		return false
	}

	peak := sorted[len(sorted)-1]
	return peak/median >= spikeRatio
}
