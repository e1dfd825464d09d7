package main

import (
	"context"
	"fmt"
	"io"

	"github.com/goforj/cachestorage"
	"github.com/goforj/cachestorage/internal/config"
	"github.com/goforj/cachestorage/internal/logger"
	"github.com/goforj/cachestorage/internal/logsink"
	"github.com/goforj/cachestorage/internal/metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Build information injected via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var log = logger.Named("cachestress")

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"log-level":     "log.level",
	"log-format":    "log.format",
	"driver":        "store.driver",
	"cache-name":    "stress.cache_name",
	"total-files":   "stress.total_files",
	"batch-size":    "stress.batch_size",
	"file-size":     "stress.file_size",
	"verify-sample": "stress.verify_sample",
	"listen":        "server.listen",
}

type app struct {
	v       *viper.Viper
	cfgFile string
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}
	root := &cobra.Command{
		Use:   "cachestress",
		Short: "Stress test a named key/value cache storage",
		Long: `cachestress writes synthetic entries into a named cache in concurrent
batches, reports progress and totals, and measures how long opening the
cache takes.

Every setting can be overridden with CACHESTRESS_<SECTION>_<KEY>, for
example CACHESTRESS_STORE_DRIVER=redis.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "YAML config file")
	pf.String("log-level", "", "diagnostic log level: debug, info, warn, error")
	pf.String("log-format", "", "diagnostic log format: color, plain, json")
	pf.String("driver", "", "store driver: memory, null, file, redis, sql, nats, dynamodb")

	root.AddCommand(newRunCmd(a), newProbeCmd(a), newServeCmd(a), newVersionCmd())
	return root
}

func addStressFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("cache-name", "", "cache to write entries into")
	f.Int("total-files", 0, "number of entries to write")
	f.Int("batch-size", 0, "entries written concurrently per batch")
	f.Int("file-size", 0, "filler bytes per entry")
	f.Int("verify-sample", 0, "entries to read back after the run")
}

// load binds the flags cmd knows about, reads the configuration and applies
// the diagnostic logging settings.
func (a *app) load(cmd *cobra.Command) (*config.Config, error) {
	for name, key := range flagKeys {
		if fl := cmd.Flags().Lookup(name); fl != nil {
			if err := a.v.BindPFlag(key, fl); err != nil {
				return nil, err
			}
		}
	}
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return nil, err
	}
	if err := logger.Setup(cfg.Log); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openStorage builds the configured store wrapped in a Storage that reports
// to a fresh metrics observer.
func openStorage(ctx context.Context, cfg *config.Config) (*cachestorage.Storage, *metrics.Observer, func() error, error) {
	store, closeFn, err := config.OpenStore(ctx, cfg.Store)
	if err != nil {
		return nil, nil, nil, err
	}
	obs := metrics.NewObserver()
	log.Infow("store configured", "driver", store.Driver(), "quota", cfg.Store.Quota.String())
	return cachestorage.NewStorage(store).WithObserver(obs), obs, closeFn, nil
}

// outputSink writes human-facing lines to w, mirroring them to the
// diagnostic log at debug level.
func outputSink(w io.Writer, cfg *config.Config) logsink.Sink {
	out := logsink.Func(func(line string) {
		fmt.Fprintln(w, line)
	})
	if cfg.Log.Level == "debug" {
		return logsink.Tee(out, logsink.NewMirror(log))
	}
	return out
}
