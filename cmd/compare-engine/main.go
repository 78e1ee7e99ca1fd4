// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the compare-engine CLI.
// Implements: prd101-sources, prd102-gateway, prd103-scoring,
//             prd104-refresh, prd105-snapshots (CLI surface).
// See docs/ARCHITECTURE § Engine Interface, § Project Structure.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/versusly/compare-engine/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the compare-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "compare-engine",
	Short: "Popularity comparison engine over public data sources",
	Long: `compare-engine answers "which of these two things is more popular" by
querying independent public data sources, normalizing each source's raw
signal onto a shared 0-100 scale, and blending the scores into a single
verdict with an honest confidence number.

Each operation is a subcommand: compare builds a verdict, refresh forces
stored verdicts to rebuild, sources shows per-provider configuration, and
store manages the verdict snapshot database.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/", os.Stderr)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./compare-engine.yaml or ~/.config/compare-engine/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("compare-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "compare-engine"))
		}
	}

	viper.SetEnvPrefix("COMPARE_ENGINE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
