// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"net/http"

	"golang.org/x/time/rate"

	"github.com/versusly/compare-engine/pkg/types"
)

// BuildAll constructs every adapter the engine knows about, keyed by
// source name. Disabled sources are still constructed; enablement is
// enforced where fan-out is decided, so a source toggled on at runtime
// needs no rebuild.
func BuildAll(cfg types.EngineConfig, keys map[string]string, series SeriesProvider) map[string]Adapter {
	client := &http.Client{Timeout: cfg.HTTP.Timeout}
	ua := cfg.HTTP.UserAgent

	limiter := func(name string) *rate.Limiter {
		rps := cfg.Sources[name].RatePerSec
		if rps <= 0 {
			return nil
		}
		return rate.NewLimiter(rate.Limit(rps), 1)
	}
	key := func(name string) string {
		if k := cfg.Sources[name].APIKey; k != "" {
			return k
		}
		return keys[name+"-api-key"]
	}

	return map[string]Adapter{
		"trends": &TrendsAdapter{Provider: series},
		"video":  &VideoAdapter{Client: client, APIKey: key("video"), UserAgent: ua, Limiter: limiter("video")},
		"media":  &MediaAdapter{Client: client, APIKey: key("media"), UserAgent: ua, Limiter: limiter("media")},
		"music":  &MusicAdapter{Client: client, UserAgent: ua, Limiter: limiter("music")},
		"games":  &GamesAdapter{Client: client, APIKey: key("games"), UserAgent: ua, Limiter: limiter("games")},
		"retail": &RetailAdapter{Client: client, APIKey: key("retail"), UserAgent: ua, Limiter: limiter("retail")},
	}
}
