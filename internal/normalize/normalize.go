// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize converts raw provider metrics into 0-100 comparable
// scores. Implements: prd101-sources R3 (scale normalization);
//
//	docs/ARCHITECTURE § Normalization.
//
// Three transforms cover the provider zoo: Log for count-like metrics
// spanning orders of magnitude, Linear for already-bounded ratings, and
// Percentile for metrics best read against a reference distribution.
// None of them ever panics or raises: unusable input yields score 0 with
// the Fault flag set, so the caller can down-weight confidence instead of
// silently skipping the source and biasing the composite.
package normalize

import (
	"math"
	"sort"
)

// Result is a normalized score plus a flag marking unusable input.
type Result struct {
	// Score is the normalized value, always within [0,100].
	Score float64

	// Fault is true when the raw input was invalid (negative, NaN, Inf)
	// and Score was forced to 0.
	Fault bool
}

// Log maps a count-like metric onto 0-100 with a log10 transform:
//
//	score = clamp(0, 100, log10(max(1, raw)) / k * 100)
//
// k is a per-source constant chosen so realistic maxima land near 100 and
// realistic minima near 0-20. Linear scaling would cluster every
// real-world value near 0; the log spread keeps mid-range counts usable.
func Log(raw, k float64) Result {
	if invalid(raw) || raw < 0 {
		return Result{Fault: true}
	}
	if k <= 0 {
		return Result{Fault: true}
	}
	score := math.Log10(math.Max(1, raw)) / k * 100
	return Result{Score: clamp(score, 0, 100)}
}

// Linear rescales a bounded metric from [lo,hi] onto [0,100].
func Linear(raw, lo, hi float64) Result {
	if invalid(raw) || raw < lo || hi <= lo {
		return Result{Fault: true}
	}
	score := (raw - lo) / (hi - lo) * 100
	return Result{Score: clamp(score, 0, 100)}
}

// Percentile scores raw by its position within a reference distribution:
// the fraction of reference samples <= raw, clamped to the
// [minPct, maxPct] band and rescaled onto 0-100. The band keeps a single
// extreme sample from saturating the scale while typical values stay
// spread across the usable range.
//
// An empty reference distribution falls back to clamping raw itself to
// [0,100].
func Percentile(raw float64, ref []float64, minPct, maxPct float64) Result {
	if invalid(raw) || raw < 0 {
		return Result{Fault: true}
	}
	if len(ref) == 0 {
		return Result{Score: clamp(raw, 0, 100)}
	}
	if minPct < 0 {
		minPct = 0
	}
	if maxPct <= minPct || maxPct > 100 {
		maxPct = 100
	}

	sorted := append([]float64(nil), ref...)
	sort.Float64s(sorted)
	at := sort.SearchFloat64s(sorted, math.Nextafter(raw, math.Inf(1)))
	pct := float64(at) / float64(len(sorted)) * 100

	banded := clamp(pct, minPct, maxPct)
	score := (banded - minPct) / (maxPct - minPct) * 100
	return Result{Score: clamp(score, 0, 100)}
}

func invalid(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
