// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package compare

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/versusly/compare-engine/pkg/types"
)

// Report pairs a verdict with its raw per-source results for the
// machine-readable output modes.
type Report struct {
	Verdict *types.ComparisonVerdict `json:"verdict" yaml:"verdict"`
	Results []types.SourceResult     `json:"results" yaml:"results"`
}

// FormatTable writes a human-readable comparison summary to w.
func FormatTable(v *types.ComparisonVerdict, results []types.SourceResult, w io.Writer) {
	fmt.Fprintf(w, "%s vs %s\n", v.TermA.Term, v.TermB.Term)
	fmt.Fprintln(w, strings.Repeat("-", 64))

	if len(v.SourcesQueried) == 0 {
		fmt.Fprintln(w, "No source returned data; verdict is not meaningful.")
	}

	fmt.Fprintf(w, "Winner: %s by %.1f points (confidence %.0f/100, %s)\n",
		v.Winner, v.MarginPoints, v.Confidence, v.ConfidenceLabel)
	fmt.Fprintf(w, "Overall: %s %.1f | %s %.1f\n",
		v.TermA.Term, v.TermA.Overall, v.TermB.Term, v.TermB.Overall)
	fmt.Fprintf(w, "Agreement %.2f, volatility %.2f, stability %s\n\n",
		v.AgreementIndex, v.Volatility, v.Stability)

	fmt.Fprintf(w, "%-8s  %-20s  %-8s  %-10s  %-10s  %s\n",
		"Source", "Term", "Status", "Raw", "Score", "Notes")
	fmt.Fprintln(w, strings.Repeat("-", 84))
	for _, r := range sortedResults(results) {
		raw, score := "-", "-"
		if r.RawValue != nil {
			raw = fmt.Sprintf("%.4g", *r.RawValue)
		}
		if r.NormalizedValue != nil {
			score = fmt.Sprintf("%.1f", *r.NormalizedValue)
		}
		note := r.Notes
		if r.Error != "" {
			note = r.Error
		}
		fmt.Fprintf(w, "%-8s  %-20s  %-8s  %-10s  %-10s  %s\n",
			r.SourceName, truncate(r.Term, 20), r.Status, raw, score, note)
	}
}

// FormatJSON writes the report as indented JSON to w.
func FormatJSON(v *types.ComparisonVerdict, results []types.SourceResult, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Report{Verdict: v, Results: results})
}

// FormatYAML writes the report as YAML to w.
func FormatYAML(v *types.ComparisonVerdict, results []types.SourceResult, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(Report{Verdict: v, Results: results})
}

func sortedResults(results []types.SourceResult) []types.SourceResult {
	out := append([]types.SourceResult(nil), results...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SourceName != out[j].SourceName {
			return out[i].SourceName < out[j].SourceName
		}
		return out[i].Term < out[j].Term
	})
	return out
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
