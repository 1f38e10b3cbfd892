// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/parts-engine/pkg/types"
)

var imageCmd = &cobra.Command{
	Use:   "image <part-number-or-description>",
	Short: "Find a product photo for a part",
	Long: `Image runs the dual image search for a part and reports the arbitrated
best product photo. When arbitration cannot choose, the first image result is
returned at low confidence rather than nothing.`,
	Args: cobra.ExactArgs(1),
	RunE: runImage,
}

func runImage(cmd *cobra.Command, args []string) error {
	cfg := engineConfig()
	clients, err := newServiceClients(cfg, false, os.Stderr)
	if err != nil {
		return err
	}
	defer clients.Close()

	q := types.Query{
		PartNumber:  args[0],
		Domain:      types.DomainImage,
		BypassCache: bypassCacheFlag(cmd),
	}
	q.Make, _ = cmd.Flags().GetString("make")

	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout(cfg))
	defer cancel()

	return printResult(cmd, clients.pipe.Find(ctx, q, clients.domains.image))
}

func init() {
	imageCmd.Flags().String("make", "", "equipment make")
	imageCmd.Flags().Bool("json", false, "output the envelope as JSON")

	rootCmd.AddCommand(imageCmd)
}
