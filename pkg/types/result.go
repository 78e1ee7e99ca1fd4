// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the comparison engine.
// Implements: prd101-sources (SourceResult), prd103-scoring
// (CompositeScore, ComparisonVerdict), prd104-refresh (RefreshType).
// See docs/ARCHITECTURE § Engine Interface, § Data Structures.
package types

import "time"

// SourceStatus indicates how an adapter call for one term concluded.
type SourceStatus string

const (
	StatusOK      SourceStatus = "ok"
	StatusFailed  SourceStatus = "failed"
	StatusTimeout SourceStatus = "timeout"
)

// SourceResult is the outcome of querying one provider for one term.
// Immutable once produced; the gateway cache holds it by reference and
// replaces whole entries, never mutates them.
type SourceResult struct {
	// SourceName identifies the provider (e.g. "trends", "video", "retail").
	SourceName string `json:"source_name" yaml:"source_name"`

	// Term is the search term this result describes.
	Term string `json:"term" yaml:"term"`

	// Status records whether the call succeeded, failed, or timed out.
	Status SourceStatus `json:"status" yaml:"status"`

	// RawValue is the provider-native metric (view count, rating, fan
	// count). Nil when the provider returned nothing usable.
	RawValue *float64 `json:"raw_value,omitempty" yaml:"raw_value,omitempty"`

	// NormalizedValue is the 0-100 comparable score derived from RawValue.
	// Nil when normalization had no input to work with.
	NormalizedValue *float64 `json:"normalized_value,omitempty" yaml:"normalized_value,omitempty"`

	// DataPointCount is the number of underlying samples behind RawValue
	// (series points, rated titles, catalog listings).
	DataPointCount int `json:"data_point_count" yaml:"data_point_count"`

	// Confidence is the provider-local confidence in this signal, 0-100.
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// Notes carries human-readable context ("top 10 videos averaged").
	Notes string `json:"notes,omitempty" yaml:"notes,omitempty"`

	// Error holds the failure message when Status is not ok.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`

	// Series is the raw interest series behind RawValue, populated only by
	// series-backed providers so downstream volatility math can reuse the
	// already-fetched data. In-process only: raw provider payloads are
	// never persisted or rendered.
	Series []float64 `json:"-" yaml:"-"`
}

// Float returns a pointer to v. Convenience for populating the optional
// numeric fields above.
func Float(v float64) *float64 { return &v }

// RefreshType classifies a forced-refresh operation.
type RefreshType string

const (
	RefreshSingle   RefreshType = "single"
	RefreshAll      RefreshType = "all"
	RefreshTrending RefreshType = "trending"
)

// RefreshTicket is the public view of an in-flight rebuild registered with
// the refresh coordinator. Lives only in memory; lost on restart.
type RefreshTicket struct {
	// ID uniquely identifies this refresh operation.
	ID string `json:"id" yaml:"id"`

	// Key is the comparison identity being rebuilt.
	Key string `json:"key" yaml:"key"`

	// Type classifies the operation: single, all, or trending.
	Type RefreshType `json:"type" yaml:"type"`

	// StartedAt is when the rebuild was registered.
	StartedAt time.Time `json:"started_at" yaml:"started_at"`
}
