// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the parts-engine CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/parts-engine/internal/secrets"
	"github.com/pdiddy/parts-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the parts-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "parts-engine",
	Short: "Equipment-parts research assistant",
	Long: `parts-engine resolves OEM part numbers, suppliers, manuals, service
providers, and product images for commercial equipment. Each lookup runs a
keyword search and an AI web-research call in parallel, reconciles the two
through a non-browsing arbitrator, validates the pick against fresh evidence,
and escalates to a similar-candidates search when validation fails.

Each lookup domain is a subcommand: resolve, suppliers, manuals, providers,
and image. serve exposes the same pipelines over HTTP; batch drives part
resolution from a CSV file.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
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

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./parts-engine.yaml or ~/.config/parts-engine/config.yaml)")
	rootCmd.PersistentFlags().Bool("bypass-cache", false, "force fresh search results (adds a uniqueness token per query)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("parts-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "parts-engine"))
		}
	}

	viper.SetEnvPrefix("PARTS_ENGINE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// engineConfig assembles the typed configuration from the config file, env
// overrides, and loaded secrets. API keys are validated by the commands that
// need them, not here.
func engineConfig() types.Config {
	var cfg types.Config

	cfg.Search.APIKey = secrets.Get(loadedSecrets, secrets.SearchAPIKey)
	if v := viper.GetString("search.api_key"); v != "" {
		cfg.Search.APIKey = v
	}
	cfg.Search.Timeout = viper.GetDuration("search.timeout")
	cfg.Search.MaxResults = viper.GetInt("search.max_results")
	cfg.Search.Country = viper.GetString("search.country")
	cfg.Search.Language = viper.GetString("search.language")

	cfg.AI.APIKey = secrets.Get(loadedSecrets, secrets.ModelAPIKey)
	if v := viper.GetString("ai.api_key"); v != "" {
		cfg.AI.APIKey = v
	}
	cfg.AI.ResearchModel = viper.GetString("ai.research_model")
	cfg.AI.ArbiterModel = viper.GetString("ai.arbiter_model")
	cfg.AI.Temperature = viper.GetFloat64("ai.temperature")
	cfg.AI.Timeout = viper.GetDuration("ai.timeout")

	cfg.Pipeline.MaxRanked = viper.GetInt("pipeline.max_ranked")
	cfg.Pipeline.MaxSimilar = viper.GetInt("pipeline.max_similar")
	cfg.Pipeline.SimilarMinConfidence = viper.GetFloat64("pipeline.similar_min_confidence")
	cfg.Pipeline.ValidationMinConfidence = viper.GetFloat64("pipeline.validation_min_confidence")
	if d := viper.GetDuration("pipeline.request_budget"); d > 0 {
		cfg.Pipeline.RequestBudget = d
	}

	cfg.Database.Path = viper.GetString("database.path")
	cfg.Server.Addr = viper.GetString("server.addr")
	cfg.Server.AllowedOrigins = viper.GetStringSlice("server.allowed_origins")

	cfg.Defaults()
	return cfg
}

// requireKeys enforces the fatal-startup contract for commands that reach
// the network: both API keys must be present.
func requireKeys(cfg *types.Config) error {
	if cfg.Search.APIKey == "" {
		if _, err := secrets.Require(loadedSecrets, secrets.SearchAPIKey); err != nil {
			return err
		}
	}
	if cfg.AI.APIKey == "" {
		if _, err := secrets.Require(loadedSecrets, secrets.ModelAPIKey); err != nil {
			return err
		}
	}
	return nil
}

func bypassCacheFlag(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("bypass-cache")
	return v
}

// commandTimeout bounds one CLI invocation a little above the pipeline
// request budget so the envelope always wins the race.
func commandTimeout(cfg types.Config) time.Duration {
	return cfg.Pipeline.RequestBudget + 30*time.Second
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
