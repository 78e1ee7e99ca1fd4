// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/versusly/compare-engine/internal/compare"
	"github.com/versusly/compare-engine/internal/snapshot"
	"github.com/versusly/compare-engine/pkg/types"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the verdict snapshot database (list, show, prune)",
	Long: `Store manages the local SQLite database of built verdicts. Use
subcommands to list stored comparisons, show a stored verdict without
touching the sources, or prune rows past the retention window.`,
}

// --- list subcommand ---

var storeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored comparisons",
	RunE:  runStoreList,
}

func runStoreList(cmd *cobra.Command, args []string) error {
	store, err := snapshot.Open(loadConfig().Snapshot)
	if err != nil {
		return err
	}
	defer store.Close()

	pairs, err := store.Pairs(context.Background())
	if err != nil {
		return err
	}
	if len(pairs) == 0 {
		fmt.Println("No stored comparisons.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-20s  %-20s  %-10s  %-6s  %s\n",
		"Term A", "Term B", "Timeframe", "Geo", "Stored")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 80))
	for _, p := range pairs {
		geo := p.Geo
		if geo == "" {
			geo = "-"
		}
		fmt.Fprintf(os.Stdout, "%-20s  %-20s  %-10s  %-6s  %s\n",
			p.TermA, p.TermB, p.Timeframe, geo, p.StoredAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

// --- show subcommand ---

var storeShowCmd = &cobra.Command{
	Use:   "show <term-a> <term-b>",
	Short: "Show a stored verdict without querying the sources",
	Args:  cobra.ExactArgs(2),
	RunE:  runStoreShow,
}

func runStoreShow(cmd *cobra.Command, args []string) error {
	tfFlag, _ := cmd.Flags().GetString("timeframe")
	tf, err := types.ParseTimeframe(tfFlag)
	if err != nil {
		return err
	}
	geo, _ := cmd.Flags().GetString("geo")

	store, err := snapshot.Open(loadConfig().Snapshot)
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := store.Latest(context.Background(), args[0], args[1], tf, geo)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		return compare.FormatJSON(&rec.Verdict, rec.Results, os.Stdout)
	}
	compare.FormatTable(&rec.Verdict, rec.Results, os.Stdout)
	fmt.Fprintf(os.Stdout, "\nStored %s\n", rec.StoredAt.Local().Format("2006-01-02 15:04:05"))
	return nil
}

// --- prune subcommand ---

var storePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete stored verdicts past the retention window",
	RunE:  runStorePrune,
}

func runStorePrune(cmd *cobra.Command, args []string) error {
	store, err := snapshot.Open(loadConfig().Snapshot)
	if err != nil {
		return err
	}
	defer store.Close()

	removed, err := store.Prune(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("pruned %d verdict(s)\n", removed)
	return nil
}

func init() {
	storeShowCmd.Flags().String("timeframe", "12m", "comparison window: 7d, 30d, 12m, 5y, or all")
	storeShowCmd.Flags().String("geo", "", "geographic scope (ISO country code; empty = worldwide)")
	storeShowCmd.Flags().Bool("json", false, "output as JSON")

	storeCmd.AddCommand(storeListCmd)
	storeCmd.AddCommand(storeShowCmd)
	storeCmd.AddCommand(storePruneCmd)
	rootCmd.AddCommand(storeCmd)
}
