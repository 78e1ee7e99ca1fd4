// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/versusly/compare-engine/internal/compare"
	"github.com/versusly/compare-engine/internal/gateway"
	"github.com/versusly/compare-engine/internal/logging"
	"github.com/versusly/compare-engine/internal/metrics"
	"github.com/versusly/compare-engine/internal/provider"
	"github.com/versusly/compare-engine/internal/refresh"
	"github.com/versusly/compare-engine/internal/snapshot"
	"github.com/versusly/compare-engine/pkg/types"
)

// engine bundles the assembled components behind one handle so each
// subcommand builds them the same way.
type engine struct {
	cfg   types.EngineConfig
	log   zerolog.Logger
	gw    *gateway.Gateway
	orch  *compare.Orchestrator
	coord *refresh.Coordinator
	store *snapshot.Store
}

// loadConfig overlays file and environment settings on the defaults.
func loadConfig() types.EngineConfig {
	cfg := types.DefaultEngineConfig()

	if v := viper.GetString("log_level"); v != "" {
		cfg.LogLevel = v
	}
	if viper.IsSet("log_json") {
		cfg.LogJSON = viper.GetBool("log_json")
	}

	if v := viper.GetDuration("http.timeout"); v > 0 {
		cfg.HTTP.Timeout = v
	}
	if v := viper.GetString("http.user_agent"); v != "" {
		cfg.HTTP.UserAgent = v
	}

	if v := viper.GetInt64("gateway.max_concurrent"); v > 0 {
		cfg.Gateway.MaxConcurrent = v
	}
	if v := viper.GetDuration("gateway.fetch_timeout"); v > 0 {
		cfg.Gateway.FetchTimeout = v
	}
	if viper.IsSet("gateway.max_retries") {
		cfg.Gateway.MaxRetries = viper.GetInt("gateway.max_retries")
	}
	if v := viper.GetUint32("gateway.breaker_threshold"); v > 0 {
		cfg.Gateway.BreakerThreshold = v
	}
	if v := viper.GetDuration("gateway.breaker_cooldown"); v > 0 {
		cfg.Gateway.BreakerCooldown = v
	}

	if v := viper.GetDuration("refresh.cooldown"); v > 0 {
		cfg.Refresh.Cooldown = v
	}
	if v := viper.GetInt("refresh.max_in_flight"); v > 0 {
		cfg.Refresh.MaxInFlight = v
	}
	if v := viper.GetDuration("refresh.stale_after"); v > 0 {
		cfg.Refresh.StaleAfter = v
	}

	if v := viper.GetString("snapshot.db_path"); v != "" {
		cfg.Snapshot.DBPath = v
	}
	if v := viper.GetDuration("snapshot.max_age"); v > 0 {
		cfg.Snapshot.MaxAge = v
	}

	for _, name := range types.SourceNames {
		src := cfg.Sources[name]
		prefix := "sources." + name + "."
		if viper.IsSet(prefix + "enabled") {
			src.Enabled = viper.GetBool(prefix + "enabled")
		}
		if v := viper.GetDuration(prefix + "ttl"); v > 0 {
			src.TTL = v
		}
		if v := viper.GetDuration(prefix + "stale_ttl"); v > 0 {
			src.StaleTTL = v
		}
		if viper.IsSet(prefix + "rate_per_sec") {
			src.RatePerSec = viper.GetFloat64(prefix + "rate_per_sec")
		}
		if v := viper.GetString(prefix + "api_key"); v != "" {
			src.APIKey = v
		}
		cfg.Sources[name] = src
	}

	if viper.IsSet("categories") {
		var categories map[string]map[string]float64
		if err := viper.UnmarshalKey("categories", &categories); err == nil && len(categories) > 0 {
			for cat, weights := range categories {
				cfg.Categories[cat] = weights
			}
		}
	}

	return cfg
}

// buildEngine assembles the full component stack from configuration.
// Callers must Close the returned engine.
func buildEngine() (*engine, error) {
	cfg := loadConfig()
	log := logging.New(os.Stderr, cfg.LogLevel, cfg.LogJSON)

	met := metrics.NewGateway(prometheus.NewRegistry())
	gw := gateway.New(cfg.Gateway, log, met)

	series := &provider.HTTPSeries{
		Client:    &http.Client{Timeout: cfg.HTTP.Timeout},
		UserAgent: cfg.HTTP.UserAgent,
	}
	adapters := provider.BuildAll(cfg, loadedSecrets, series)

	store, err := snapshot.Open(cfg.Snapshot)
	if err != nil {
		return nil, err
	}

	return &engine{
		cfg:   cfg,
		log:   log,
		gw:    gw,
		orch:  compare.New(cfg, gw, adapters, log),
		coord: refresh.New(cfg.Refresh, log),
		store: store,
	}, nil
}

// Close waits out background cache refreshes and releases the store.
func (e *engine) Close() error {
	e.gw.Drain()
	return e.store.Close()
}
