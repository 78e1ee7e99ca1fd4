// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/versusly/compare-engine/internal/compare"
	"github.com/versusly/compare-engine/internal/refresh"
	"github.com/versusly/compare-engine/internal/snapshot"
	"github.com/versusly/compare-engine/pkg/types"
)

// duplicateWait bounds how long a compare invocation waits for an
// already-running rebuild of the same pair before giving up.
var duplicateWait = 30 * time.Second

var compareCmd = &cobra.Command{
	Use:   "compare <term-a> <term-b>",
	Short: "Build a popularity verdict for two terms",
	Long: `Compare queries every enabled data source for both terms, normalizes the
raw signals onto a shared 0-100 scale, and blends them into a verdict with
a winner, margin, and confidence.

Fresh verdicts are served from the snapshot store when one exists for the
same terms, timeframe, and geo. Use --force to bypass the stores and hit
the sources again.`,
	Args: cobra.ExactArgs(2),
	RunE: runCompare,
}

func init() {
	compareCmd.Flags().String("timeframe", "12m", "comparison window: 7d, 30d, 12m, 5y, or all")
	compareCmd.Flags().String("geo", "", "geographic scope (ISO country code; empty = worldwide)")
	compareCmd.Flags().String("category", "", "weight vector: media, music, game, product, or general")
	compareCmd.Flags().String("sources", "", "restrict to these sources (comma-separated)")
	compareCmd.Flags().Bool("json", false, "output the verdict as JSON")
	compareCmd.Flags().Bool("yaml", false, "output the verdict as YAML")
	compareCmd.Flags().Bool("force", false, "bypass stored verdicts and cached source results")
	compareCmd.Flags().Bool("no-store", false, "do not persist the built verdict")

	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	tfFlag, _ := cmd.Flags().GetString("timeframe")
	tf, err := types.ParseTimeframe(tfFlag)
	if err != nil {
		return err
	}

	geo, _ := cmd.Flags().GetString("geo")
	category, _ := cmd.Flags().GetString("category")
	force, _ := cmd.Flags().GetBool("force")
	noStore, _ := cmd.Flags().GetBool("no-store")

	req := compare.Request{
		TermA:     args[0],
		TermB:     args[1],
		Timeframe: tf,
		Geo:       geo,
		Category:  category,
		Force:     force,
	}
	if list, _ := cmd.Flags().GetString("sources"); list != "" {
		req.EnabledSources = strings.Split(list, ",")
	}

	e, err := buildEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := context.Background()

	// Serve a stored verdict when one is fresh enough.
	if !force {
		rec, err := e.store.Latest(ctx, req.TermA, req.TermB, tf, geo)
		if err == nil {
			return writeReport(cmd, &rec.Verdict, rec.Results)
		}
		if !errors.Is(err, snapshot.ErrNotFound) {
			return err
		}
	}

	verdict, results, err := buildVerdict(ctx, e, req, types.RefreshSingle, noStore)
	if err != nil {
		return err
	}
	return writeReport(cmd, verdict, results)
}

// buildVerdict rebuilds one comparison under the refresh coordinator and
// persists the result. A duplicate rebuild already in flight is waited
// out and its stored verdict served instead.
func buildVerdict(ctx context.Context, e *engine, req compare.Request, rt types.RefreshType, noStore bool) (*types.ComparisonVerdict, []types.SourceResult, error) {
	key := refresh.Key(req.TermA, req.TermB, req.Timeframe, req.Geo)

	var (
		verdict *types.ComparisonVerdict
		results []types.SourceResult
	)
	err := e.coord.Do(ctx, key, rt, func(ctx context.Context) error {
		var buildErr error
		verdict, results, buildErr = e.orch.Build(ctx, req)
		return buildErr
	})

	switch {
	case err == nil:
		if !noStore {
			if saveErr := e.store.Save(ctx, req.Timeframe, req.Geo, verdict, results); saveErr != nil {
				e.log.Warn().Err(saveErr).Msg("verdict not persisted")
			}
			if metaErr := e.store.MarkRefreshed(ctx, key, rt); metaErr != nil {
				e.log.Warn().Err(metaErr).Msg("refresh meta not persisted")
			}
		}
		return verdict, results, nil

	case errors.Is(err, refresh.ErrDuplicate):
		// Another invocation is rebuilding this pair; ride along.
		fmt.Fprintln(os.Stderr, "refresh already in progress, waiting...")
		if !e.coord.Wait(ctx, key, duplicateWait) {
			return nil, nil, fmt.Errorf("timed out waiting for in-flight rebuild of %s vs %s", req.TermA, req.TermB)
		}
		rec, recErr := e.store.Latest(ctx, req.TermA, req.TermB, req.Timeframe, req.Geo)
		if recErr != nil {
			return nil, nil, fmt.Errorf("in-flight rebuild settled but left no verdict: %w", recErr)
		}
		return &rec.Verdict, rec.Results, nil

	default:
		return nil, nil, err
	}
}

func writeReport(cmd *cobra.Command, v *types.ComparisonVerdict, results []types.SourceResult) error {
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		return compare.FormatJSON(v, results, os.Stdout)
	}
	if yamlOutput, _ := cmd.Flags().GetBool("yaml"); yamlOutput {
		return compare.FormatYAML(v, results, os.Stdout)
	}
	compare.FormatTable(v, results, os.Stdout)
	return nil
}
