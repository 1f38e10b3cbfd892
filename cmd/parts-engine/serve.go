// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/parts-engine/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the lookup pipelines over HTTP",
	Long: `Serve exposes part resolution, supplier search, manual search, provider
search, and image selection as POST endpoints. Completed pipeline runs return
200 even when nothing was found; 5xx is reserved for transport and
configuration failures. Missing API keys abort startup.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := engineConfig()
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	clients, err := newServiceClients(cfg, true, os.Stderr)
	if err != nil {
		return err
	}
	defer clients.Close()

	srv := server.New(clients.resolver, clients.pipe, server.Domains{
		Supplier: clients.domains.supplier,
		Manual:   clients.domains.manual,
		Provider: clients.domains.provider,
		Image:    clients.domains.image,
	}, cfg.Server)

	fmt.Fprintf(os.Stderr, "parts-engine listening on %s\n", cfg.Server.Addr)
	return srv.ListenAndServe()
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides config)")

	rootCmd.AddCommand(serveCmd)
}
