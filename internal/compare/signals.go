// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package compare

import (
	"github.com/versusly/compare-engine/internal/confidence"
	"github.com/versusly/compare-engine/pkg/types"
)

// agreementIndex measures how consistently the sources point at the
// overall winner: the fraction of sources holding data for both terms
// whose own comparison favors the winner. No source holding both terms
// reads as maximal uncertainty, 0.
func agreementIndex(sources []string, perSource map[string]map[string]*types.SourceResult, termA, termB, winner string) float64 {
	var voting, agreeing int
	for _, name := range sources {
		a := perSource[name][termA]
		b := perSource[name][termB]
		if a == nil || b == nil || a.NormalizedValue == nil || b.NormalizedValue == nil {
			continue
		}
		voting++

		sourceLeader := termA
		if *b.NormalizedValue > *a.NormalizedValue {
			sourceLeader = termB
		}
		if sourceLeader == winner {
			agreeing++
		}
	}
	if voting == 0 {
		return 0
	}
	return float64(agreeing) / float64(voting)
}

// seriesVolatility averages the two terms' interest-series volatility,
// skipping terms with no series.
func seriesVolatility(a, b []float64) float64 {
	var sum float64
	var n int
	for _, s := range [][]float64{a, b} {
		if len(s) > 0 {
			sum += confidence.Volatility(s)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// leaderChangeRisk is the fraction of recent series points where the
// nominal loser actually led. The window is the trailing quarter of the
// overlapping series, at least one point.
func leaderChangeRisk(winner, loser []float64) float64 {
	n := len(winner)
	if len(loser) < n {
		n = len(loser)
	}
	if n == 0 {
		return 0
	}

	window := n / 4
	if window < 1 {
		window = 1
	}

	flipped := 0
	for i := n - window; i < n; i++ {
		if loser[i] > winner[i] {
			flipped++
		}
	}
	return float64(flipped) / float64(window)
}
