// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by adapters that make network
// requests.
type HTTPConfig struct {
	// Timeout is the HTTP client timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with requests
	// (e.g. "compare-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// SourceConfig holds per-provider settings. Per prd101-sources R5.1-R5.4.
type SourceConfig struct {
	// Enabled controls whether this source is queried at all. A disabled
	// source is never attempted, not even on forced refresh.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// TTL is the base fresh window for cached results of this source.
	// Scaled by Timeframe.TTLScale before use.
	TTL time.Duration `json:"ttl" yaml:"ttl"`

	// StaleTTL is the base stale-while-revalidate window beyond TTL.
	// A cached result between TTL and TTL+StaleTTL is served immediately
	// while a background refresh runs.
	StaleTTL time.Duration `json:"stale_ttl" yaml:"stale_ttl"`

	// RatePerSec paces outbound calls to this provider. Zero disables
	// adapter-level pacing (the gateway gate still bounds concurrency).
	RatePerSec float64 `json:"rate_per_sec" yaml:"rate_per_sec"`

	// APIKey authenticates against providers that require one. Usually
	// loaded from .secrets/ rather than the config file.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
}

// GatewayConfig holds settings for the data source gateway.
// Per prd102-gateway R1-R4.
type GatewayConfig struct {
	// MaxConcurrent is the shared upstream fetch slot count across all
	// sources and both terms (default 3). Callers beyond the limit queue.
	MaxConcurrent int64 `json:"max_concurrent" yaml:"max_concurrent"`

	// FetchTimeout bounds one upstream fetch attempt (default 8s).
	FetchTimeout time.Duration `json:"fetch_timeout" yaml:"fetch_timeout"`

	// MaxRetries is how many extra attempts a timed-out fetch gets
	// (default 2). Non-timeout failures are never retried.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// BreakerThreshold is the consecutive-failure count that opens a
	// source's circuit breaker (default 5).
	BreakerThreshold uint32 `json:"breaker_threshold" yaml:"breaker_threshold"`

	// BreakerCooldown is how long an open breaker waits before probing
	// the source again (default 60s).
	BreakerCooldown time.Duration `json:"breaker_cooldown" yaml:"breaker_cooldown"`
}

// ConfidenceConfig holds reference points for the confidence calculator's
// diminishing-returns terms. Per prd103-scoring R3.
type ConfidenceConfig struct {
	// RefDataPoints is the sample count at which the data-volume
	// sub-score saturates (default 200).
	RefDataPoints int `json:"ref_data_points" yaml:"ref_data_points"`

	// RefSources is the source count at which the coverage sub-score
	// saturates (default 6).
	RefSources int `json:"ref_sources" yaml:"ref_sources"`
}

// RefreshConfig holds settings for the refresh coordinator.
// Per prd104-refresh R1-R4.
type RefreshConfig struct {
	// Cooldown is how long a settled ticket lingers to absorb duplicate
	// requests arriving right after completion (default 30s).
	Cooldown time.Duration `json:"cooldown" yaml:"cooldown"`

	// MaxInFlight is the process-wide ceiling on simultaneous rebuilds
	// across all keys and types (default 3).
	MaxInFlight int `json:"max_in_flight" yaml:"max_in_flight"`

	// StaleAfter is the hard ceiling on ticket age: older tickets are
	// purged and treated as not-in-flight, so a hung rebuild cannot
	// permanently wedge a key (default 5m).
	StaleAfter time.Duration `json:"stale_after" yaml:"stale_after"`
}

// SnapshotConfig holds settings for the derived-score store.
type SnapshotConfig struct {
	// DBPath is the SQLite database file (default "data/compare.db").
	DBPath string `json:"db_path" yaml:"db_path"`

	// MaxAge is how old a stored verdict may be before Latest treats it
	// as absent (default 24h).
	MaxAge time.Duration `json:"max_age" yaml:"max_age"`
}

// EngineConfig groups all engine settings.
type EngineConfig struct {
	HTTP       HTTPConfig              `json:"http" yaml:"http"`
	Sources    map[string]SourceConfig `json:"sources" yaml:"sources"`
	Gateway    GatewayConfig           `json:"gateway" yaml:"gateway"`
	Confidence ConfidenceConfig        `json:"confidence" yaml:"confidence"`
	Refresh    RefreshConfig           `json:"refresh" yaml:"refresh"`
	Snapshot   SnapshotConfig          `json:"snapshot" yaml:"snapshot"`

	// Categories maps a comparison category to its weight vector over
	// source names. Weights need not sum to 1; they are normalized over
	// the sources that respond.
	Categories map[string]map[string]float64 `json:"categories" yaml:"categories"`

	// LogLevel selects the zerolog level (default "info").
	LogLevel string `json:"log_level" yaml:"log_level"`

	// LogJSON switches structured JSON output on (default: console).
	LogJSON bool `json:"log_json" yaml:"log_json"`
}

// SourceNames lists every provider the engine knows about, in display order.
var SourceNames = []string{"trends", "video", "media", "music", "games", "retail"}

// DefaultEngineConfig returns the engine defaults. Callers overlay file and
// environment settings on top.
func DefaultEngineConfig() EngineConfig {
	sources := make(map[string]SourceConfig, len(SourceNames))
	for _, name := range SourceNames {
		sources[name] = SourceConfig{
			Enabled:    true,
			TTL:        2 * time.Hour,
			StaleTTL:   6 * time.Hour,
			RatePerSec: 2,
		}
	}

	return EngineConfig{
		HTTP: HTTPConfig{
			Timeout:   10 * time.Second,
			UserAgent: "compare-engine/0.1",
		},
		Sources: sources,
		Gateway: GatewayConfig{
			MaxConcurrent:    3,
			FetchTimeout:     8 * time.Second,
			MaxRetries:       2,
			BreakerThreshold: 5,
			BreakerCooldown:  60 * time.Second,
		},
		Confidence: ConfidenceConfig{
			RefDataPoints: 200,
			RefSources:    6,
		},
		Refresh: RefreshConfig{
			Cooldown:    30 * time.Second,
			MaxInFlight: 3,
			StaleAfter:  5 * time.Minute,
		},
		Snapshot: SnapshotConfig{
			DBPath: "data/compare.db",
			MaxAge: 24 * time.Hour,
		},
		Categories: map[string]map[string]float64{
			"media": {
				"trends": 0.25, "video": 0.25, "media": 0.30, "music": 0.05, "games": 0.05, "retail": 0.10,
			},
			"music": {
				"trends": 0.25, "video": 0.25, "media": 0.05, "music": 0.35, "games": 0.02, "retail": 0.08,
			},
			"game": {
				"trends": 0.25, "video": 0.25, "media": 0.05, "music": 0.02, "games": 0.35, "retail": 0.08,
			},
			"product": {
				"trends": 0.30, "video": 0.15, "media": 0.05, "music": 0.02, "games": 0.03, "retail": 0.45,
			},
			"general": {
				"trends": 0.35, "video": 0.20, "media": 0.15, "music": 0.10, "games": 0.10, "retail": 0.10,
			},
		},
		LogLevel: "info",
	}
}

// CategoryWeights returns the weight vector for category, falling back to
// the "general" vector for unknown categories, and to uniform weights if
// even that is missing.
func (c EngineConfig) CategoryWeights(category string) map[string]float64 {
	if w, ok := c.Categories[category]; ok {
		return w
	}
	if w, ok := c.Categories["general"]; ok {
		return w
	}
	uniform := make(map[string]float64, len(SourceNames))
	for _, name := range SourceNames {
		uniform[name] = 1.0 / float64(len(SourceNames))
	}
	return uniform
}
