// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// CompositeScore is one term's weighted combination of normalized source
// scores. Overall stays on a 0-100 scale regardless of how many sources
// responded: weights of absent sources are redistributed proportionally
// among the sources that did respond.
type CompositeScore struct {
	// Term is the search term this score describes.
	Term string `json:"term" yaml:"term"`

	// Overall is the weighted composite, 0-100.
	Overall float64 `json:"overall" yaml:"overall"`

	// Breakdown maps source name to the points that source contributed
	// to Overall (already weighted).
	Breakdown map[string]float64 `json:"breakdown" yaml:"breakdown"`
}

// Stability classifies the shape of a term pair's interest series.
type Stability string

const (
	StabilityStable   Stability = "stable"
	StabilityHype     Stability = "hype"
	StabilityVolatile Stability = "volatile"
)

// ComparisonVerdict is the engine's final output for one comparison build.
// Constructed once, never mutated; the persistence and rendering layers
// consume it as-is. Callers must check SourcesQueried before treating the
// verdict as meaningful: an empty list means every provider failed.
type ComparisonVerdict struct {
	TermA CompositeScore `json:"term_a" yaml:"term_a"`
	TermB CompositeScore `json:"term_b" yaml:"term_b"`

	// Winner is the term with the higher Overall. Ties resolve to the
	// first-listed term; see compare.pickWinner.
	Winner string `json:"winner" yaml:"winner"`
	Loser  string `json:"loser" yaml:"loser"`

	// MarginPoints is |Overall(A) - Overall(B)|.
	MarginPoints float64 `json:"margin_points" yaml:"margin_points"`

	// Confidence is a continuous 0-100 measure of how much to trust the
	// verdict. It already reflects reduced source coverage, so no separate
	// degraded flag exists.
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// ConfidenceLabel is the display bucket for Confidence: high, medium,
	// or low. Display only; never feeds back into the numeric score.
	ConfidenceLabel string `json:"confidence_label" yaml:"confidence_label"`

	// AgreementIndex is the fraction of responding sources that point to
	// the same leader, 0-1.
	AgreementIndex float64 `json:"agreement_index" yaml:"agreement_index"`

	// Volatility measures interest-series churn, 0-1.
	Volatility float64 `json:"volatility" yaml:"volatility"`

	// Stability classifies the series shape: stable, hype, or volatile.
	Stability Stability `json:"stability" yaml:"stability"`

	// SourcesQueried lists the sources that returned data for at least
	// one term.
	SourcesQueried []string `json:"sources_queried" yaml:"sources_queried"`

	// BuiltAt is when this verdict was assembled.
	BuiltAt time.Time `json:"built_at" yaml:"built_at"`
}
