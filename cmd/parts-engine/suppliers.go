// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/parts-engine/pkg/types"
)

var suppliersCmd = &cobra.Command{
	Use:   "suppliers <part-number-or-description>",
	Short: "Find the best supplier for a part",
	Long: `Suppliers runs the dual supplier search for a part number (or a part
description when the number is unknown) and reports the arbitrated best
supplier with its validation verdict.`,
	Args: cobra.ExactArgs(1),
	RunE: runSuppliers,
}

func runSuppliers(cmd *cobra.Command, args []string) error {
	cfg := engineConfig()
	clients, err := newServiceClients(cfg, false, os.Stderr)
	if err != nil {
		return err
	}
	defer clients.Close()

	q := types.Query{
		PartNumber:  args[0],
		Domain:      types.DomainSupplier,
		BypassCache: bypassCacheFlag(cmd),
	}
	q.Make, _ = cmd.Flags().GetString("make")
	q.Location, _ = cmd.Flags().GetString("location")

	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout(cfg))
	defer cancel()

	return printResult(cmd, clients.pipe.Find(ctx, q, clients.domains.supplier))
}

func init() {
	suppliersCmd.Flags().String("make", "", "equipment make")
	suppliersCmd.Flags().String("location", "", "preferred supplier location")
	suppliersCmd.Flags().Bool("json", false, "output the envelope as JSON")

	rootCmd.AddCommand(suppliersCmd)
}
