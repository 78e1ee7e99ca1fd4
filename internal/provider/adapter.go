// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package provider implements one adapter per external data source.
// Implements: prd101-sources (R1-R4);
//
//	docs/ARCHITECTURE § Source Adapters.
//
// Each adapter fetches one provider's signal for one term and returns a
// typed SourceResult or an error; adapters hold no shared state and never
// retry on their own (the gateway owns timeout and retry; httputil absorbs
// provider rate limiting). Per the Strategy pattern, all six providers
// implement the same Adapter interface.
package provider

import (
	"context"

	"github.com/versusly/compare-engine/pkg/types"
)

// Adapter fetches a single provider's signal about a term.
type Adapter interface {
	// Name returns the source identifier ("trends", "video", ...).
	Name() string

	// Fetch queries the provider for term within the timeframe and geo.
	// The returned result carries the raw metric, its 0-100 normalized
	// value, and a provider-local confidence.
	Fetch(ctx context.Context, term string, tf types.Timeframe, geo string) (*types.SourceResult, error)
}

// SeriesProvider supplies the raw search-interest series for a term. It is
// produced by an upstream trend-fetching component outside this engine and
// consumed as an opaque collaborator input.
type SeriesProvider interface {
	Series(ctx context.Context, term string, tf types.Timeframe, geo string) ([]float64, error)
}

// sampleConfidence maps a provider-local sample count onto a 0-100
// confidence: a floor for any data at all, ramping with samples up to ref.
func sampleConfidence(samples, ref int) float64 {
	if samples <= 0 {
		return 0
	}
	if samples >= ref {
		return 100
	}
	return 30 + float64(samples)/float64(ref)*70
}
