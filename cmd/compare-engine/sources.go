// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/versusly/compare-engine/internal/secrets"
	"github.com/versusly/compare-engine/pkg/types"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Show per-source configuration and credential status",
	Long: `Sources lists every data source the engine knows about with its
effective configuration: enablement, cache windows, request pacing, and
whether an API key is available for sources that need one.`,
	RunE: runSources,
}

func init() {
	sourcesCmd.Flags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(sourcesCmd)
}

// sourceStatus is the JSON shape of one sources row.
type sourceStatus struct {
	Name       string  `json:"name"`
	Enabled    bool    `json:"enabled"`
	TTL        string  `json:"ttl"`
	StaleTTL   string  `json:"stale_ttl"`
	RatePerSec float64 `json:"rate_per_sec"`
	HasKey     bool    `json:"has_key"`
}

func runSources(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	statuses := make([]sourceStatus, 0, len(types.SourceNames))
	for _, name := range types.SourceNames {
		src := cfg.Sources[name]
		statuses = append(statuses, sourceStatus{
			Name:       name,
			Enabled:    src.Enabled,
			TTL:        src.TTL.String(),
			StaleTTL:   src.StaleTTL.String(),
			RatePerSec: src.RatePerSec,
			HasKey:     src.APIKey != "" || secrets.APIKeyFor(loadedSecrets, name) != "",
		})
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(statuses)
	}

	fmt.Fprintf(os.Stdout, "%-8s  %-8s  %-10s  %-10s  %-8s  %s\n",
		"Source", "Enabled", "TTL", "Stale TTL", "Rate/s", "API key")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 62))
	for _, s := range statuses {
		key := "-"
		if s.HasKey {
			key = "set"
		}
		fmt.Fprintf(os.Stdout, "%-8s  %-8t  %-10s  %-10s  %-8.1f  %s\n",
			s.Name, s.Enabled, s.TTL, s.StaleTTL, s.RatePerSec, key)
	}
	return nil
}
