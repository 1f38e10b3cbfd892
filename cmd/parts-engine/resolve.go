// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	yaml "go.yaml.in/yaml/v3"

	"github.com/pdiddy/parts-engine/internal/resolver"
	"github.com/pdiddy/parts-engine/pkg/types"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <description>",
	Short: "Resolve the OEM part number for a part description",
	Long: `Resolve determines the correct OEM part number for a described part,
optionally scoped to equipment make, model, and year. It consults the local
parts database, a manual-flavored dual search, and a web dual search, each
independently validated, and reports the composite-scored best answer.

A run that finds nothing is still a successful run: the output then carries
similar candidates from the widened escalation search.`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg := engineConfig()
	useDB, _ := cmd.Flags().GetBool("use-database")

	clients, err := newServiceClients(cfg, useDB, os.Stderr)
	if err != nil {
		return err
	}
	defer clients.Close()

	q := types.Query{
		Description: args[0],
		Domain:      types.DomainPart,
		BypassCache: bypassCacheFlag(cmd),
	}
	q.Make, _ = cmd.Flags().GetString("make")
	q.Model, _ = cmd.Flags().GetString("model")
	q.Year, _ = cmd.Flags().GetString("year")

	opts := resolver.Options{SkipDatabase: !useDB}
	opts.SkipManualSearch, _ = cmd.Flags().GetBool("skip-manual-search")
	opts.SkipWebSearch, _ = cmd.Flags().GetBool("skip-web-search")

	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout(cfg))
	defer cancel()

	resp := clients.resolver.Resolve(ctx, q, opts)
	return printResult(cmd, resp)
}

// printResult renders a command's envelope as YAML, or JSON with --json.
func printResult(cmd *cobra.Command, result any) error {
	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	out, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	fmt.Print(string(out))
	return nil
}

func init() {
	resolveCmd.Flags().String("make", "", "equipment make (e.g. Hobart)")
	resolveCmd.Flags().String("model", "", "equipment model (e.g. A200)")
	resolveCmd.Flags().String("year", "", "equipment year or range")
	resolveCmd.Flags().Bool("use-database", true, "check the local parts database before searching")
	resolveCmd.Flags().Bool("skip-manual-search", false, "skip the manual-flavored search method")
	resolveCmd.Flags().Bool("skip-web-search", false, "skip the web search method")
	resolveCmd.Flags().Bool("json", false, "output the envelope as JSON")

	rootCmd.AddCommand(resolveCmd)
}
