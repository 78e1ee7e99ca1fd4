// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package snapshot

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/versusly/compare-engine/pkg/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(types.SnapshotConfig{
		DBPath: filepath.Join(t.TempDir(), "verdicts.db"),
		MaxAge: time.Hour,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testVerdict(termA, termB string) *types.ComparisonVerdict {
	return &types.ComparisonVerdict{
		TermA:           types.CompositeScore{Term: termA, Overall: 72.5},
		TermB:           types.CompositeScore{Term: termB, Overall: 41},
		Winner:          termA,
		Loser:           termB,
		MarginPoints:    31.5,
		Confidence:      68,
		ConfidenceLabel: "medium",
		SourcesQueried:  []string{"trends", "video"},
		BuiltAt:         time.Now().UTC(),
	}
}

func TestSaveAndLatest(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	v := testVerdict("iphone", "pixel")
	results := []types.SourceResult{
		{SourceName: "trends", Term: "iphone", Status: types.StatusOK, NormalizedValue: types.Float(80)},
	}
	if err := s.Save(ctx, types.Timeframe30D, "US", v, results); err != nil {
		t.Fatalf("Save: %v", err)
	}

	rec, err := s.Latest(ctx, "iphone", "pixel", types.Timeframe30D, "US")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if rec.Verdict.Winner != "iphone" {
		t.Errorf("Winner = %q, want iphone", rec.Verdict.Winner)
	}
	if rec.Verdict.TermA.Overall != 72.5 {
		t.Errorf("TermA.Overall = %.1f, want 72.5", rec.Verdict.TermA.Overall)
	}
	if len(rec.Results) != 1 || rec.Results[0].SourceName != "trends" {
		t.Errorf("Results = %+v, want the stored trends row", rec.Results)
	}
	if rec.Timeframe != types.Timeframe30D || rec.Geo != "US" {
		t.Errorf("scope = %s/%s, want 30d/US", rec.Timeframe, rec.Geo)
	}
}

func TestLatestMissesOnScope(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, types.Timeframe30D, "US", testVerdict("a", "b"), nil); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Same terms, different timeframe and geo: distinct keys.
	if _, err := s.Latest(ctx, "a", "b", types.Timeframe7D, "US"); !errors.Is(err, ErrNotFound) {
		t.Errorf("different timeframe: err = %v, want ErrNotFound", err)
	}
	if _, err := s.Latest(ctx, "a", "b", types.Timeframe30D, "DE"); !errors.Is(err, ErrNotFound) {
		t.Errorf("different geo: err = %v, want ErrNotFound", err)
	}
	if _, err := s.Latest(ctx, "b", "a", types.Timeframe30D, "US"); !errors.Is(err, ErrNotFound) {
		t.Errorf("swapped terms: err = %v, want ErrNotFound", err)
	}
}

func TestSaveReplacesPreviousRow(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := testVerdict("a", "b")
	if err := s.Save(ctx, types.Timeframe30D, "", first, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}

	second := testVerdict("a", "b")
	second.Winner, second.Loser = "b", "a"
	second.TermB.Overall = 95
	if err := s.Save(ctx, types.Timeframe30D, "", second, nil); err != nil {
		t.Fatalf("Save (second): %v", err)
	}

	rec, err := s.Latest(ctx, "a", "b", types.Timeframe30D, "")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if rec.Verdict.Winner != "b" {
		t.Errorf("Winner = %q, want the second write's winner", rec.Verdict.Winner)
	}
}

func TestLatestExpiresByMaxAge(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	now := time.Now()
	s.now = func() time.Time { return now }

	if err := s.Save(ctx, types.Timeframe30D, "", testVerdict("a", "b"), nil); err != nil {
		t.Fatalf("Save: %v", err)
	}

	s.now = func() time.Time { return now.Add(2 * time.Hour) }
	if _, err := s.Latest(ctx, "a", "b", types.Timeframe30D, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound after max age", err)
	}
}

func TestPrune(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	now := time.Now()
	s.now = func() time.Time { return now.Add(-2 * time.Hour) }
	if err := s.Save(ctx, types.Timeframe30D, "", testVerdict("old", "row"), nil); err != nil {
		t.Fatalf("Save (old): %v", err)
	}

	s.now = func() time.Time { return now }
	if err := s.Save(ctx, types.Timeframe30D, "", testVerdict("fresh", "row"), nil); err != nil {
		t.Fatalf("Save (fresh): %v", err)
	}

	removed, err := s.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, err := s.Latest(ctx, "fresh", "row", types.Timeframe30D, ""); err != nil {
		t.Errorf("fresh row pruned unexpectedly: %v", err)
	}
}

func TestPairs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, types.Timeframe30D, "US", testVerdict("a", "b"), nil); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(ctx, types.Timeframe7D, "", testVerdict("c", "d"), nil); err != nil {
		t.Fatalf("Save: %v", err)
	}

	pairs, err := s.Pairs(ctx)
	if err != nil {
		t.Fatalf("Pairs: %v", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("len(pairs) = %d, want 2", len(pairs))
	}
	seen := map[string]bool{}
	for _, p := range pairs {
		seen[p.TermA+"/"+p.TermB] = true
		if p.StoredAt.IsZero() {
			t.Errorf("pair %s/%s has zero StoredAt", p.TermA, p.TermB)
		}
	}
	if !seen["a/b"] || !seen["c/d"] {
		t.Errorf("pairs = %+v, want both stored comparisons", pairs)
	}
}

func TestRefreshMeta(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	key := Key("a", "b", types.Timeframe30D, "US")

	at, _, err := s.LastRefreshed(ctx, key)
	if err != nil {
		t.Fatalf("LastRefreshed: %v", err)
	}
	if !at.IsZero() {
		t.Errorf("never-refreshed key reported %v, want zero time", at)
	}

	if err := s.MarkRefreshed(ctx, key, types.RefreshSingle); err != nil {
		t.Fatalf("MarkRefreshed: %v", err)
	}
	at, rt, err := s.LastRefreshed(ctx, key)
	if err != nil {
		t.Fatalf("LastRefreshed: %v", err)
	}
	if at.IsZero() || rt != types.RefreshSingle {
		t.Errorf("got %v/%q, want recent time and single", at, rt)
	}
}
