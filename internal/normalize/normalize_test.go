// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"math"
	"testing"
)

func TestLogViewCountScenario(t *testing.T) {
	// Two view counts on the video source's log scale (k=10) must stay
	// monotonic and land mid-range, not collapse toward 0/100.
	a := Log(50_000, 10)
	b := Log(5_000_000, 10)

	if a.Fault || b.Fault {
		t.Fatalf("unexpected fault: a=%v b=%v", a, b)
	}
	if math.Abs(a.Score-47) > 1 {
		t.Errorf("Log(50000, 10) = %.2f, want ~47", a.Score)
	}
	if math.Abs(b.Score-67) > 1 {
		t.Errorf("Log(5000000, 10) = %.2f, want ~67", b.Score)
	}
	if a.Score >= b.Score {
		t.Errorf("log transform not monotonic: %.2f >= %.2f", a.Score, b.Score)
	}
}

func TestLogEdgeCases(t *testing.T) {
	tests := []struct {
		name      string
		raw, k    float64
		want      float64
		wantFault bool
	}{
		{"zero raw clamps via max(1,raw)", 0, 8, 0, false},
		{"one", 1, 8, 0, false},
		{"huge raw clamps to 100", 1e12, 8, 100, false},
		{"negative raw faults", -5, 8, 0, true},
		{"NaN faults", math.NaN(), 8, 0, true},
		{"Inf faults", math.Inf(1), 8, 0, true},
		{"zero k faults", 100, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Log(tt.raw, tt.k)
			if got.Fault != tt.wantFault {
				t.Fatalf("Fault = %v, want %v", got.Fault, tt.wantFault)
			}
			if got.Score != tt.want {
				t.Errorf("Score = %.2f, want %.2f", got.Score, tt.want)
			}
		})
	}
}

func TestLinear(t *testing.T) {
	tests := []struct {
		name        string
		raw, lo, hi float64
		want        float64
		wantFault   bool
	}{
		{"mid of 0-10 rating", 5, 0, 10, 50, false},
		{"top of 0-5 rating", 5, 0, 5, 100, false},
		{"bottom", 0, 0, 10, 0, false},
		{"below range faults", -1, 0, 10, 0, true},
		{"degenerate range faults", 3, 5, 5, 0, true},
		{"NaN faults", math.NaN(), 0, 10, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Linear(tt.raw, tt.lo, tt.hi)
			if got.Fault != tt.wantFault {
				t.Fatalf("Fault = %v, want %v", got.Fault, tt.wantFault)
			}
			if got.Score != tt.want {
				t.Errorf("Score = %.2f, want %.2f", got.Score, tt.want)
			}
		})
	}
}

func TestPercentileBanding(t *testing.T) {
	ref := []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}

	// Median of the reference lands mid-scale.
	mid := Percentile(50, ref, 5, 95)
	if mid.Fault {
		t.Fatal("unexpected fault")
	}
	if mid.Score < 40 || mid.Score > 60 {
		t.Errorf("median percentile = %.2f, want mid-range", mid.Score)
	}

	// An extreme outlier cannot exceed the band ceiling's rescale.
	top := Percentile(1e9, ref, 5, 95)
	if top.Score != 100 {
		t.Errorf("outlier = %.2f, want exactly 100 after band rescale", top.Score)
	}

	// Monotonic across the reference.
	prev := -1.0
	for _, raw := range []float64{5, 25, 45, 65, 85, 105} {
		r := Percentile(raw, ref, 5, 95)
		if r.Score < prev {
			t.Fatalf("percentile not monotonic at raw=%.0f: %.2f < %.2f", raw, r.Score, prev)
		}
		prev = r.Score
	}
}

func TestPercentileEmptyReferenceIdentityClamp(t *testing.T) {
	tests := []struct {
		raw  float64
		want float64
	}{
		{42, 42},
		{150, 100},
		{0, 0},
	}
	for _, tt := range tests {
		if got := Percentile(tt.raw, nil, 5, 95); got.Score != tt.want {
			t.Errorf("Percentile(%.0f, empty) = %.2f, want %.2f", tt.raw, got.Score, tt.want)
		}
	}
}

func TestPercentileInvalidInputFaults(t *testing.T) {
	ref := []float64{1, 2, 3}
	for _, raw := range []float64{math.NaN(), math.Inf(-1), -1} {
		got := Percentile(raw, ref, 5, 95)
		if !got.Fault || got.Score != 0 {
			t.Errorf("Percentile(%v) = %+v, want fault with score 0", raw, got)
		}
	}
}
