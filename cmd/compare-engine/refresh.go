// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/versusly/compare-engine/internal/compare"
	"github.com/versusly/compare-engine/internal/refresh"
	"github.com/versusly/compare-engine/pkg/types"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh [term-a term-b]",
	Short: "Force stored verdicts to rebuild from the sources",
	Long: `Refresh rebuilds verdicts with the source caches bypassed. Name a pair
to rebuild just that comparison, or pass --all to rebuild every stored
comparison in the snapshot database.

Rebuilds run under the refresh coordinator: a pair already rebuilding is
not started twice, and the process-wide in-flight ceiling is honored.`,
	Args: cobra.RangeArgs(0, 2),
	RunE: runRefresh,
}

// trendingLimit is how many of the most recently stored comparisons
// --trending rebuilds.
const trendingLimit = 10

func init() {
	refreshCmd.Flags().String("timeframe", "12m", "comparison window: 7d, 30d, 12m, 5y, or all")
	refreshCmd.Flags().String("geo", "", "geographic scope (ISO country code; empty = worldwide)")
	refreshCmd.Flags().String("category", "", "weight vector: media, music, game, product, or general")
	refreshCmd.Flags().Bool("all", false, "rebuild every stored comparison")
	refreshCmd.Flags().Bool("trending", false, "rebuild only the most recently active comparisons")

	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")
	trending, _ := cmd.Flags().GetBool("trending")
	if all && trending {
		return fmt.Errorf("--all and --trending are mutually exclusive")
	}
	if (all || trending) == (len(args) == 2) {
		return fmt.Errorf("name exactly one pair to refresh, or pass --all or --trending")
	}

	e, err := buildEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := context.Background()

	if !all && !trending {
		tfFlag, _ := cmd.Flags().GetString("timeframe")
		tf, err := types.ParseTimeframe(tfFlag)
		if err != nil {
			return err
		}
		geo, _ := cmd.Flags().GetString("geo")
		category, _ := cmd.Flags().GetString("category")

		return refreshPair(ctx, e, compare.Request{
			TermA:     args[0],
			TermB:     args[1],
			Timeframe: tf,
			Geo:       geo,
			Category:  category,
			Force:     true,
		}, types.RefreshSingle)
	}

	pairs, err := e.store.Pairs(ctx)
	if err != nil {
		return err
	}
	rt := types.RefreshAll
	if trending {
		rt = types.RefreshTrending
		if len(pairs) > trendingLimit {
			pairs = pairs[:trendingLimit]
		}
	}
	if len(pairs) == 0 {
		fmt.Println("No stored comparisons to refresh.")
		return nil
	}

	failed := 0
	for _, p := range pairs {
		req := compare.Request{
			TermA:     p.TermA,
			TermB:     p.TermB,
			Timeframe: p.Timeframe,
			Geo:       p.Geo,
			Force:     true,
		}
		if err := refreshPair(ctx, e, req, rt); err != nil {
			fmt.Fprintf(os.Stderr, "failed  %s vs %s: %v\n", p.TermA, p.TermB, err)
			failed++
		}
	}

	fmt.Printf("\nrefreshed: %d, failed: %d\n", len(pairs)-failed, failed)
	if failed > 0 {
		return fmt.Errorf("%d comparison(s) failed to refresh", failed)
	}
	return nil
}

func refreshPair(ctx context.Context, e *engine, req compare.Request, rt types.RefreshType) error {
	v, _, err := buildVerdict(ctx, e, req, rt, false)
	if errors.Is(err, refresh.ErrCeiling) {
		return fmt.Errorf("refresh ceiling reached, try again shortly: %w", err)
	}
	if err != nil {
		return err
	}
	fmt.Printf("refreshed %s vs %s: %s by %.1f (confidence %s)\n",
		req.TermA, req.TermB, v.Winner, v.MarginPoints, v.ConfidenceLabel)
	return nil
}
