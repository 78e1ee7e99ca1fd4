// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/versusly/compare-engine/pkg/types"
)

// --- stub series provider ---

type stubSeries struct {
	series []float64
	err    error
}

func (s *stubSeries) Series(context.Context, string, types.Timeframe, string) ([]float64, error) {
	return s.series, s.err
}

// --- trends ---

func TestTrendsFetch(t *testing.T) {
	a := &TrendsAdapter{Provider: &stubSeries{series: []float64{40, 50, 60}}}

	res, err := a.Fetch(context.Background(), "iphone", types.Timeframe30D, "US")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.Status != types.StatusOK {
		t.Errorf("Status = %q, want ok", res.Status)
	}
	if *res.RawValue != 50 {
		t.Errorf("RawValue = %.2f, want 50 (mean)", *res.RawValue)
	}
	if *res.NormalizedValue != 50 {
		t.Errorf("NormalizedValue = %.2f, want 50 (identity on 0-100 scale)", *res.NormalizedValue)
	}
	if res.DataPointCount != 3 {
		t.Errorf("DataPointCount = %d, want 3", res.DataPointCount)
	}
}

func TestTrendsFetchErrors(t *testing.T) {
	tests := []struct {
		name string
		stub *stubSeries
	}{
		{"provider error", &stubSeries{err: errors.New("upstream down")}},
		{"empty series", &stubSeries{series: nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &TrendsAdapter{Provider: tt.stub}
			if _, err := a.Fetch(context.Background(), "x", types.Timeframe7D, ""); err == nil {
				t.Fatal("want error")
			}
		})
	}
}

// --- video ---

func TestVideoFetch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "iphone" {
			t.Errorf("q = %q, want iphone", got)
		}
		if r.URL.Query().Get("key") == "" {
			t.Error("missing key param")
		}
		w.Write([]byte(`{"items":[
			{"statistics":{"viewCount":"40000"}},
			{"statistics":{"viewCount":"60000"}},
			{"statistics":{"viewCount":"garbage"}}
		]}`))
	}))
	defer ts.Close()

	old := videoAPIBase
	videoAPIBase = ts.URL
	defer func() { videoAPIBase = old }()

	a := &VideoAdapter{Client: ts.Client(), APIKey: "vk", UserAgent: "test/0.1"}
	res, err := a.Fetch(context.Background(), "iphone", types.Timeframe30D, "US")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	// Unparseable counts are skipped: average of 40k and 60k.
	if *res.RawValue != 50_000 {
		t.Errorf("RawValue = %.0f, want 50000", *res.RawValue)
	}
	// log10(50000)/10*100 ≈ 47.
	if math.Abs(*res.NormalizedValue-47) > 1 {
		t.Errorf("NormalizedValue = %.2f, want ~47", *res.NormalizedValue)
	}
	if res.DataPointCount != 2 {
		t.Errorf("DataPointCount = %d, want 2", res.DataPointCount)
	}
}

func TestVideoFetchMissingKey(t *testing.T) {
	a := &VideoAdapter{Client: http.DefaultClient}
	if _, err := a.Fetch(context.Background(), "x", types.Timeframe7D, ""); err == nil {
		t.Fatal("want misconfiguration error without API key")
	}
}

func TestVideoFetchUpstreamError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	old := videoAPIBase
	videoAPIBase = ts.URL
	defer func() { videoAPIBase = old }()

	a := &VideoAdapter{Client: ts.Client(), APIKey: "vk"}
	if _, err := a.Fetch(context.Background(), "x", types.Timeframe7D, ""); err == nil {
		t.Fatal("want error on HTTP 403")
	}
}

// --- media ---

func TestMediaFetch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"total_results":42,"results":[
			{"popularity":12.5},
			{"popularity":88.1},
			{"popularity":3.2}
		]}`))
	}))
	defer ts.Close()

	old := mediaAPIBase
	mediaAPIBase = ts.URL
	defer func() { mediaAPIBase = old }()

	a := &MediaAdapter{Client: ts.Client(), APIKey: "mk", UserAgent: "test/0.1"}
	res, err := a.Fetch(context.Background(), "dune", types.Timeframe12M, "")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if *res.RawValue != 88.1 {
		t.Errorf("RawValue = %.1f, want top popularity 88.1", *res.RawValue)
	}
	if *res.NormalizedValue <= 0 || *res.NormalizedValue > 100 {
		t.Errorf("NormalizedValue = %.2f, want within (0,100]", *res.NormalizedValue)
	}
	if res.DataPointCount != 42 {
		t.Errorf("DataPointCount = %d, want 42", res.DataPointCount)
	}
}

// --- music ---

func TestMusicFetch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"data":[
			{"name":"Daft Punk","nb_fan":10000000},
			{"name":"Daft Punk Tribute","nb_fan":1200}
		]}`))
	}))
	defer ts.Close()

	old := musicAPIBase
	musicAPIBase = ts.URL
	defer func() { musicAPIBase = old }()

	a := &MusicAdapter{Client: ts.Client(), UserAgent: "test/0.1"}
	res, err := a.Fetch(context.Background(), "daft punk", types.TimeframeAll, "")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if *res.RawValue != 10_000_000 {
		t.Errorf("RawValue = %.0f, want best match's fans", *res.RawValue)
	}
	// log10(1e7)/8*100 = 87.5.
	if math.Abs(*res.NormalizedValue-87.5) > 0.1 {
		t.Errorf("NormalizedValue = %.2f, want 87.5", *res.NormalizedValue)
	}
}

// --- games ---

func TestGamesFetch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"results":[
			{"name":"Hades","rating":4.3,"ratings_count":5000}
		]}`))
	}))
	defer ts.Close()

	old := gamesAPIBase
	gamesAPIBase = ts.URL
	defer func() { gamesAPIBase = old }()

	a := &GamesAdapter{Client: ts.Client(), APIKey: "gk", UserAgent: "test/0.1"}
	res, err := a.Fetch(context.Background(), "hades", types.Timeframe5Y, "")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	// 4.3 on a 0-5 scale rescales linearly to 86.
	if math.Abs(*res.NormalizedValue-86) > 0.01 {
		t.Errorf("NormalizedValue = %.2f, want 86", *res.NormalizedValue)
	}
	if res.Confidence != 100 {
		t.Errorf("Confidence = %.0f, want 100 at 5000 ratings", res.Confidence)
	}
}

// --- retail ---

func TestRetailFetch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"total":1000,"products":[{"name":"iPhone 16"}]}`))
	}))
	defer ts.Close()

	old := retailAPIBase
	retailAPIBase = ts.URL
	defer func() { retailAPIBase = old }()

	a := &RetailAdapter{Client: ts.Client(), APIKey: "rk", UserAgent: "test/0.1"}
	res, err := a.Fetch(context.Background(), "iphone", types.Timeframe30D, "")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	// log10(1000)/6*100 = 50.
	if math.Abs(*res.NormalizedValue-50) > 0.01 {
		t.Errorf("NormalizedValue = %.2f, want 50", *res.NormalizedValue)
	}
}

func TestRetailFetchNoListings(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"total":0,"products":[]}`))
	}))
	defer ts.Close()

	old := retailAPIBase
	retailAPIBase = ts.URL
	defer func() { retailAPIBase = old }()

	a := &RetailAdapter{Client: ts.Client(), APIKey: "rk"}
	if _, err := a.Fetch(context.Background(), "zzzz", types.Timeframe7D, ""); err == nil {
		t.Fatal("want error when catalog has no listings")
	}
}

// --- series ---

func TestHTTPSeries(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("term"); got != "iphone" {
			t.Errorf("term = %q, want iphone", got)
		}
		if got := r.URL.Query().Get("timeframe"); got != "30d" {
			t.Errorf("timeframe = %q, want 30d", got)
		}
		w.Write([]byte(`{"series":[10,20,30]}`))
	}))
	defer ts.Close()

	old := seriesAPIBase
	seriesAPIBase = ts.URL
	defer func() { seriesAPIBase = old }()

	p := &HTTPSeries{Client: ts.Client(), UserAgent: "test/0.1"}
	series, err := p.Series(context.Background(), "iphone", types.Timeframe30D, "")
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	if len(series) != 3 || series[2] != 30 {
		t.Errorf("series = %v, want [10 20 30]", series)
	}
}

// --- registry ---

func TestBuildAllCoversEverySource(t *testing.T) {
	cfg := types.DefaultEngineConfig()
	adapters := BuildAll(cfg, map[string]string{"video-api-key": "vk"}, &stubSeries{})

	for _, name := range types.SourceNames {
		a, ok := adapters[name]
		if !ok {
			t.Fatalf("missing adapter for %q", name)
		}
		if a.Name() != name {
			t.Errorf("adapter %q reports name %q", name, a.Name())
		}
	}

	if adapters["video"].(*VideoAdapter).APIKey != "vk" {
		t.Error("video adapter did not pick up secret key")
	}
}
