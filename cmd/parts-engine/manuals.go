// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/parts-engine/pkg/types"
)

var manualsCmd = &cobra.Command{
	Use:   "manuals",
	Short: "Find manuals for an equipment model",
	Long: `Manuals runs the dual manual search for a make and model and reports up
to max-ranked manuals ordered by the arbitrator's authenticity judgment.
Official manufacturer PDFs rank first.`,
	RunE: runManuals,
}

func runManuals(cmd *cobra.Command, args []string) error {
	cfg := engineConfig()
	clients, err := newServiceClients(cfg, false, os.Stderr)
	if err != nil {
		return err
	}
	defer clients.Close()

	q := types.Query{
		Domain:      types.DomainManual,
		BypassCache: bypassCacheFlag(cmd),
	}
	q.Make, _ = cmd.Flags().GetString("make")
	q.Model, _ = cmd.Flags().GetString("model")
	q.ManualType, _ = cmd.Flags().GetString("type")

	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout(cfg))
	defer cancel()

	return printResult(cmd, clients.pipe.Rank(ctx, q, clients.domains.manual))
}

func init() {
	manualsCmd.Flags().String("make", "", "equipment make")
	manualsCmd.Flags().String("model", "", "equipment model")
	manualsCmd.Flags().String("type", "", "manual type: service manual, parts manual, operator manual")
	manualsCmd.Flags().Bool("json", false, "output the envelope as JSON")
	manualsCmd.MarkFlagRequired("make")
	manualsCmd.MarkFlagRequired("model")

	rootCmd.AddCommand(manualsCmd)
}
