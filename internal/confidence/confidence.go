// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package confidence derives a continuous trust score and a stability
// classification for a comparison verdict.
// Implements: prd103-scoring R3 (confidence), R4 (stability);
//
//	docs/ARCHITECTURE § Confidence.
//
// The score is a weighted combination of individually normalized
// sub-scores, each itself continuous, so varied inputs spread across the
// 0-100 range instead of collapsing into a handful of buckets.
package confidence

import (
	"math"

	"github.com/versusly/compare-engine/pkg/types"
)

// Sub-score weights. They sum to 1.0; the final score is clamped to
// [0,100] after combination.
const (
	weightAgreement  = 0.30
	weightVolatility = 0.20
	weightDataVolume = 0.15
	weightSources    = 0.15
	weightMargin     = 0.10
	weightLeaderRisk = 0.10
)

// marginRef is the point margin at which the margin sub-score saturates.
const marginRef = 25.0

// Inputs feeds one confidence evaluation.
type Inputs struct {
	// AgreementIndex is the fraction of sources pointing to the same
	// leader, 0-1.
	AgreementIndex float64

	// Volatility is the interest-series churn measure, 0-1.
	Volatility float64

	// DataPoints is the total sample count across all source results.
	DataPoints int

	// SourceCount is how many sources returned data.
	SourceCount int

	// Margin is the composite point gap between the terms, 0-100.
	Margin float64

	// LeaderChangeRisk is the fraction of recent series points where the
	// trailing term actually led, 0-1.
	LeaderChangeRisk float64
}

// Calculator scores confidence against configured reference points.
type Calculator struct {
	cfg types.ConfidenceConfig
}

// New returns a Calculator, applying defaults for zero reference points.
func New(cfg types.ConfidenceConfig) Calculator {
	if cfg.RefDataPoints <= 0 {
		cfg.RefDataPoints = 200
	}
	if cfg.RefSources <= 0 {
		cfg.RefSources = 6
	}
	return Calculator{cfg: cfg}
}

// Score combines the sub-scores into a continuous 0-100 confidence value.
// Monotone in every input: more agreement, data, sources, or margin never
// lowers the score; more volatility or leader-change risk never raises it.
func (c Calculator) Score(in Inputs) float64 {
	agreement := clamp01(in.AgreementIndex) * 100
	calm := (1 - clamp01(in.Volatility)) * 100
	steady := (1 - clamp01(in.LeaderChangeRisk)) * 100

	// Diminishing returns on volume and coverage: log ramps that saturate
	// at the configured reference points.
	volume := logRamp(float64(in.DataPoints), float64(c.cfg.RefDataPoints))
	coverage := logRamp(float64(in.SourceCount), float64(c.cfg.RefSources))

	margin := math.Min(100, math.Max(0, in.Margin)/marginRef*100)

	score := weightAgreement*agreement +
		weightVolatility*calm +
		weightDataVolume*volume +
		weightSources*coverage +
		weightMargin*margin +
		weightLeaderRisk*steady

	return math.Min(100, math.Max(0, score))
}

// LabelFor buckets a confidence score for display. The buckets never feed
// back into the numeric score.
func LabelFor(score float64) string {
	switch {
	case score >= 70:
		return "high"
	case score >= 50:
		return "medium"
	default:
		return "low"
	}
}

// logRamp maps v onto 0-100 with diminishing returns, hitting 100 at ref.
func logRamp(v, ref float64) float64 {
	if v <= 0 || ref <= 0 {
		return 0
	}
	return math.Min(100, math.Log1p(v)/math.Log1p(ref)*100)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
