package main

import (
	"time"

	"github.com/goforj/cachestorage/internal/stress"
	"github.com/spf13/cobra"
)

// drainTimeout bounds how long an interrupted run may keep writing before
// the store's clients are closed.
const drainTimeout = 5 * time.Second

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the stress test and the open-latency probe",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.load(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			storage, _, closeFn, err := openStorage(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			sink := outputSink(cmd.OutOrStdout(), cfg)
			launch := stress.Trigger(ctx, stress.Deps{Storage: storage, Sink: sink}, cfg.Stress)
			out, err := launch.Wait(ctx)
			if err != nil {
				if !launch.Drain(drainTimeout) {
					log.Warnw("run still in flight after interrupt", "timeout", drainTimeout)
				}
				return err
			}
			if out.ProbeErr != nil {
				log.Warnw("open probe failed", "error", out.ProbeErr)
			}
			return out.RunErr
		},
	}
	addStressFlags(cmd)
	return cmd
}
