package main

import (
	"fmt"

	"github.com/goforj/cachestorage/internal/server"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the trigger page and Prometheus metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.load(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			storage, obs, closeFn, err := openStorage(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			srv := server.New(server.Config{
				Listen:          cfg.Server.Listen,
				ShutdownTimeout: cfg.Server.ShutdownTimeout,
			}, storage, cfg.Stress, server.WithMetrics(obs.Handler()))
			fmt.Fprintf(cmd.OutOrStdout(), "Trigger page on http://%s/\n", cfg.Server.Listen)
			return srv.Start(ctx)
		},
	}
	addStressFlags(cmd)
	cmd.Flags().String("listen", "", "address to serve the trigger page on")
	return cmd
}
