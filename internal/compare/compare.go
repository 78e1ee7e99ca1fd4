// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package compare orchestrates a full comparison build.
// Implements: prd103-scoring (R1-R2, R5);
//
//	docs/ARCHITECTURE § Comparison Orchestrator.
//
// Build fans out one gateway call per enabled source per term, merges the
// normalized scores into a composite per term under category-specific
// weights, and derives the winner, margin, confidence, and stability. A
// source that fails resolves to absence and its weight is redistributed
// proportionally among the sources that responded, so sparse coverage
// never drags the composite toward zero artificially.
package compare

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/versusly/compare-engine/internal/confidence"
	"github.com/versusly/compare-engine/internal/gateway"
	"github.com/versusly/compare-engine/internal/provider"
	"github.com/versusly/compare-engine/pkg/types"
)

// lowBandCeiling caps confidence when no source responded at all: the
// verdict still renders, but the number itself communicates degradation.
const lowBandCeiling = 25

// Request describes one comparison build.
type Request struct {
	TermA, TermB string
	Timeframe    types.Timeframe
	Geo          string

	// EnabledSources restricts the fan-out; nil means every source the
	// config enables.
	EnabledSources []string

	// Category selects the weight vector ("media", "game", "product", ...).
	Category string

	// Force bypasses the gateway cache lookup. Set by the refresh path.
	Force bool
}

// Orchestrator builds comparison verdicts. Construct with New; safe for
// concurrent use.
type Orchestrator struct {
	cfg      types.EngineConfig
	gw       *gateway.Gateway
	adapters map[string]provider.Adapter
	calc     confidence.Calculator
	log      zerolog.Logger

	now func() time.Time
}

// New returns an Orchestrator over the given gateway and adapters.
func New(cfg types.EngineConfig, gw *gateway.Gateway, adapters map[string]provider.Adapter, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		gw:       gw,
		adapters: adapters,
		calc:     confidence.New(cfg.Confidence),
		log:      log,
		now:      time.Now,
	}
}

// Build assembles the verdict for one comparison. Alongside the verdict
// it returns the raw per-source results, including failed entries, for
// observability surfaces. The only error case is the caller's context
// ending: source failures degrade into absences, and a comparison where
// every source failed still yields a verdict with zero scores, an empty
// SourcesQueried, and confidence forced into the low band.
func (o *Orchestrator) Build(ctx context.Context, req Request) (*types.ComparisonVerdict, []types.SourceResult, error) {
	if req.TermA == "" || req.TermB == "" {
		return nil, nil, fmt.Errorf("both terms are required")
	}
	if req.Timeframe == "" {
		req.Timeframe = types.Timeframe12M
	}

	sources := o.enabledSources(req.EnabledSources)

	// One logical call per source per term, all funneled through the
	// gateway's shared concurrency gate.
	perSource := make(map[string]map[string]*types.SourceResult, len(sources))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range sources {
		adapter := o.adapters[name]
		for _, term := range []string{req.TermA, req.TermB} {
			g.Go(func() error {
				res, err := o.callSource(gctx, adapter, term, req)
				if err != nil {
					return err
				}
				mu.Lock()
				if perSource[name] == nil {
					perSource[name] = make(map[string]*types.SourceResult, 2)
				}
				perSource[name][term] = res
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	raw := o.collectResults(sources, perSource, req)
	weights := o.cfg.CategoryWeights(req.Category)

	scoreA := compositeFor(req.TermA, sources, perSource, weights)
	scoreB := compositeFor(req.TermB, sources, perSource, weights)

	winner, loser := pickWinner(scoreA, scoreB)
	margin := math.Abs(scoreA.Overall - scoreB.Overall)

	queried := respondedSources(sources, perSource)

	// The interest series rides on the series-backed source's cached
	// result, so volatility math never re-fetches what the fan-out
	// already pulled through the gateway.
	seriesW := seriesFor(perSource, winner)
	seriesL := seriesFor(perSource, loser)

	vol := seriesVolatility(seriesW, seriesL)
	agreement := agreementIndex(sources, perSource, req.TermA, req.TermB, winner)

	score := o.calc.Score(confidence.Inputs{
		AgreementIndex:   agreement,
		Volatility:       vol,
		DataPoints:       totalDataPoints(raw),
		SourceCount:      len(queried),
		Margin:           margin,
		LeaderChangeRisk: leaderChangeRisk(seriesW, seriesL),
	})
	if len(queried) == 0 {
		score = math.Min(score, lowBandCeiling)
	}

	verdict := &types.ComparisonVerdict{
		TermA:           scoreA,
		TermB:           scoreB,
		Winner:          winner,
		Loser:           loser,
		MarginPoints:    margin,
		Confidence:      score,
		ConfidenceLabel: confidence.LabelFor(score),
		AgreementIndex:  agreement,
		Volatility:      vol,
		Stability:       confidence.ClassifyStability(seriesW),
		SourcesQueried:  queried,
		BuiltAt:         o.now(),
	}

	o.log.Info().
		Str("term_a", req.TermA).Str("term_b", req.TermB).
		Str("winner", winner).Float64("margin", margin).
		Float64("confidence", score).Int("sources", len(queried)).
		Msg("comparison built")
	return verdict, raw, nil
}

// callSource routes one (source, term) fetch through the gateway.
func (o *Orchestrator) callSource(ctx context.Context, adapter provider.Adapter, term string, req Request) (*types.SourceResult, error) {
	name := adapter.Name()
	src := o.cfg.Sources[name]
	scale := req.Timeframe.TTLScale()

	key := cacheKey(name, term, req.Timeframe, req.Geo)
	fetch := func(fctx context.Context) (*types.SourceResult, error) {
		return adapter.Fetch(fctx, term, req.Timeframe, req.Geo)
	}

	return o.gw.Call(ctx, name, key, fetch, gateway.CallOptions{
		Timeout:     o.cfg.Gateway.FetchTimeout,
		MaxRetries:  o.cfg.Gateway.MaxRetries,
		TTL:         time.Duration(float64(src.TTL) * scale),
		StaleTTL:    time.Duration(float64(src.StaleTTL) * scale),
		BypassCache: req.Force,
	})
}

// enabledSources intersects the request's source set with configuration.
// Order is the canonical SourceNames order for determinism.
func (o *Orchestrator) enabledSources(requested []string) []string {
	allowed := map[string]bool{}
	if len(requested) == 0 {
		for name := range o.adapters {
			allowed[name] = true
		}
	} else {
		for _, name := range requested {
			allowed[name] = true
		}
	}

	var out []string
	for _, name := range types.SourceNames {
		if !allowed[name] {
			continue
		}
		if _, ok := o.adapters[name]; !ok {
			continue
		}
		if !o.cfg.Sources[name].Enabled {
			continue
		}
		out = append(out, name)
	}
	return out
}

// collectResults flattens the fan-out into the observability list,
// synthesizing failed entries for sources that resolved to absence.
func (o *Orchestrator) collectResults(sources []string, perSource map[string]map[string]*types.SourceResult, req Request) []types.SourceResult {
	out := make([]types.SourceResult, 0, len(sources)*2)
	for _, name := range sources {
		for _, term := range []string{req.TermA, req.TermB} {
			if res := perSource[name][term]; res != nil {
				out = append(out, *res)
				continue
			}
			out = append(out, types.SourceResult{
				SourceName: name,
				Term:       term,
				Status:     types.StatusFailed,
				Error:      "source unavailable for this request",
			})
		}
	}
	return out
}

// compositeFor folds one term's normalized scores under the weight
// vector. Weights of sources that did not respond for this term are
// redistributed proportionally: each contribution uses w/totalResponding,
// so the responding weights always behave as if they summed to 1.
func compositeFor(term string, sources []string, perSource map[string]map[string]*types.SourceResult, weights map[string]float64) types.CompositeScore {
	score := types.CompositeScore{Term: term, Breakdown: make(map[string]float64)}

	var totalWeight float64
	for _, name := range sources {
		if res := perSource[name][term]; res != nil && res.NormalizedValue != nil {
			totalWeight += weights[name]
		}
	}
	if totalWeight == 0 {
		return score
	}

	for _, name := range sources {
		res := perSource[name][term]
		if res == nil || res.NormalizedValue == nil {
			continue
		}
		contribution := *res.NormalizedValue * weights[name] / totalWeight
		score.Breakdown[name] = contribution
		score.Overall += contribution
	}
	return score
}

// pickWinner compares overall scores. Ties resolve to the first-listed
// term: a deliberate, documented default so equal composites always favor
// the term the caller named first.
func pickWinner(a, b types.CompositeScore) (winner, loser string) {
	if a.Overall >= b.Overall {
		return a.Term, b.Term
	}
	return b.Term, a.Term
}

// respondedSources lists sources with data for at least one term, in
// canonical order.
func respondedSources(sources []string, perSource map[string]map[string]*types.SourceResult) []string {
	out := []string{}
	for _, name := range sources {
		for _, res := range perSource[name] {
			if res != nil {
				out = append(out, name)
				break
			}
		}
	}
	return out
}

// seriesFor returns the interest series a series-backed source fetched
// for term during this build, or nil when none responded. Volatility and
// leader-change inputs then default to neutral values.
func seriesFor(perSource map[string]map[string]*types.SourceResult, term string) []float64 {
	for _, name := range types.SourceNames {
		if res := perSource[name][term]; res != nil && len(res.Series) > 0 {
			return res.Series
		}
	}
	return nil
}

func totalDataPoints(results []types.SourceResult) int {
	n := 0
	for _, r := range results {
		if r.Status == types.StatusOK {
			n += r.DataPointCount
		}
	}
	return n
}

func cacheKey(source, term string, tf types.Timeframe, geo string) string {
	return source + "|" + term + "|" + string(tf) + "|" + geo
}
