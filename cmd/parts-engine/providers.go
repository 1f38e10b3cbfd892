// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/parts-engine/pkg/types"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Find service providers for an equipment model",
	Long: `Providers runs the dual service-provider search for a make and model.
Query construction includes an industry-classification model pre-pass so the
search uses the equipment's trade terms, not just its nameplate.`,
	RunE: runProviders,
}

func runProviders(cmd *cobra.Command, args []string) error {
	cfg := engineConfig()
	clients, err := newServiceClients(cfg, false, os.Stderr)
	if err != nil {
		return err
	}
	defer clients.Close()

	q := types.Query{
		Domain:      types.DomainServiceProvider,
		BypassCache: bypassCacheFlag(cmd),
	}
	q.Make, _ = cmd.Flags().GetString("make")
	q.Model, _ = cmd.Flags().GetString("model")
	q.ServiceType, _ = cmd.Flags().GetString("service")
	q.Location, _ = cmd.Flags().GetString("location")

	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout(cfg))
	defer cancel()

	return printResult(cmd, clients.pipe.Rank(ctx, q, clients.domains.provider))
}

func init() {
	providersCmd.Flags().String("make", "", "equipment make")
	providersCmd.Flags().String("model", "", "equipment model")
	providersCmd.Flags().String("service", "", "service type: repair, installation, maintenance")
	providersCmd.Flags().String("location", "", "preferred provider location")
	providersCmd.Flags().Bool("json", false, "output the envelope as JSON")
	providersCmd.MarkFlagRequired("make")

	rootCmd.AddCommand(providersCmd)
}
