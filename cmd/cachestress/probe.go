package main

import (
	"github.com/goforj/cachestorage/internal/stress"
	"github.com/spf13/cobra"
)

func newProbeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Measure how long opening the cache takes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.load(cmd)
			if err != nil {
				return err
			}
			storage, _, closeFn, err := openStorage(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			_, err = stress.Probe(cmd.Context(), storage, outputSink(cmd.OutOrStdout(), cfg), cfg.Stress.CacheName, nil)
			return err
		},
	}
	cmd.Flags().String("cache-name", "", "cache to open")
	return cmd
}
