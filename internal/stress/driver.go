// Package stress writes synthetic entries into a named cache in concurrent
// batches and reports progress, totals and storage usage to a log sink.
package stress

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/goforj/cachestorage"
	"github.com/goforj/cachestorage/internal/logsink"
	logging "github.com/ipfs/go-log/v2"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

var log = logging.Logger("stress")

const separator = "============================================================"

// BatchReport is the cumulative state after one batch has settled.
type BatchReport struct {
	Batch   Batch
	Success int
	Errors  int
	Percent float64
	Elapsed time.Duration
}

// Result summarizes one run.
type Result struct {
	Batches  []BatchReport
	Success  int
	Errors   int
	KeyCount int
	Elapsed  time.Duration
	// Estimate is nil when the store cannot report usage or the query failed.
	Estimate *cachestorage.Estimate
	// Verified and Mismatched count read-back checks when VerifySample > 0.
	Verified   int
	Mismatched int
	// Fatal is the error that stopped the run early, if any.
	Fatal error
}

// Option customizes a Driver.
type Option func(*Driver)

// WithClock replaces time.Now for elapsed-time measurement.
func WithClock(now func() time.Time) Option {
	return func(d *Driver) {
		d.now = now
	}
}

// Driver runs the stress procedure against one Storage.
type Driver struct {
	storage *cachestorage.Storage
	sink    logsink.Sink
	cfg     Config
	now     func() time.Time
}

// NewDriver validates cfg (zero fields take defaults) and returns a Driver.
func NewDriver(storage *cachestorage.Storage, sink logsink.Sink, cfg Config, opts ...Option) (*Driver, error) {
	if storage == nil {
		return nil, errors.New("stress driver requires a storage")
	}
	if sink == nil {
		return nil, errors.New("stress driver requires a log sink")
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &Driver{storage: storage, sink: sink, cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Config returns the effective configuration.
func (d *Driver) Config() Config {
	return d.cfg
}

// Run executes the procedure. Per-entry write failures are counted and
// logged; the returned error is non-nil only for a fatal failure, which is
// also recorded in Result.Fatal.
func (d *Driver) Run(ctx context.Context) (Result, error) {
	var res Result
	start := d.now()

	d.logf("Starting Cache Storage stress test with %d files", d.cfg.TotalFiles)
	d.logf("Cache name: %s", d.cfg.CacheName)
	d.logf("Batch size: %d", d.cfg.BatchSize)
	d.sink.Log(separator)

	cache, err := d.storage.Open(ctx, d.cfg.CacheName)
	if err != nil {
		return d.fatal(res, start, errors.Wrap(err, "open cache"))
	}
	d.sink.Log("Cache opened successfully")

	var success, failed atomic.Int64
	filler := d.cfg.Filler[0]
	for _, batch := range Partition(d.cfg.TotalFiles, d.cfg.BatchSize) {
		if err := ctx.Err(); err != nil {
			res.Success, res.Errors = int(success.Load()), int(failed.Load())
			return d.fatal(res, start, errors.Wrapf(err, "run stopped before batch %d", batch.Index+1))
		}

		var g errgroup.Group
		g.SetLimit(batch.Size())
		for i := batch.Start; i < batch.End; i++ {
			g.Go(func() error {
				resp := cachestorage.NewTextResponse(EntryBody(i, d.cfg.FileSize, filler))
				if err := cache.Put(ctx, EntryURL(i), resp); err != nil {
					failed.Add(1)
					d.logf("Failed to cache file %d: %s", i, err)
					return nil
				}
				success.Add(1)
				return nil
			})
		}
		_ = g.Wait()

		report := BatchReport{
			Batch:   batch,
			Success: int(success.Load()),
			Errors:  int(failed.Load()),
			Percent: Progress(batch.End, d.cfg.TotalFiles),
			Elapsed: d.now().Sub(start),
		}
		res.Batches = append(res.Batches, report)
		d.logf("Progress: %.1f%% (%d/%d) - %.1fs elapsed - Errors: %d",
			report.Percent, batch.End, d.cfg.TotalFiles, report.Elapsed.Seconds(), report.Errors)
	}

	res.Success, res.Errors = int(success.Load()), int(failed.Load())
	res.Elapsed = d.now().Sub(start)

	d.sink.Log(separator)
	d.sink.Log("Test completed!")
	d.logf("Total time: %.2fs", res.Elapsed.Seconds())
	d.logf("Success: %d", res.Success)
	d.logf("Errors: %d", res.Errors)
	d.sink.Log(separator)

	keys, err := cache.Keys(ctx)
	if err != nil {
		return d.fatal(res, start, errors.Wrap(err, "list cache entries"))
	}
	res.KeyCount = len(keys)
	d.logf("Cache contains %d entries", res.KeyCount)
	if res.KeyCount != res.Success {
		d.logf("Warning: cache contains %d entries but %d writes succeeded", res.KeyCount, res.Success)
	}

	d.reportEstimate(ctx, &res)

	if d.cfg.VerifySample > 0 {
		d.verify(ctx, cache, &res)
	}
	return res, nil
}

func (d *Driver) reportEstimate(ctx context.Context, res *Result) {
	est, ok, err := d.storage.Estimate(ctx)
	if !ok {
		log.Debugw("storage estimate unsupported", "driver", d.storage.Driver())
		return
	}
	if err != nil {
		d.logf("Storage estimate failed: %s", err)
		return
	}
	res.Estimate = &est
	d.sink.Log(FormatEstimate(est))
	log.Debugw("storage estimate", "driver", d.storage.Driver(), "usage", humanize.IBytes(est.Usage), "quota", humanize.IBytes(est.Quota))
}

// FormatEstimate renders an estimate in megabytes with the percentage used.
func FormatEstimate(est cachestorage.Estimate) string {
	usedMB := float64(est.Usage) / 1024 / 1024
	if est.Quota == 0 {
		return fmt.Sprintf("Storage: %.2f MB used (quota unknown)", usedMB)
	}
	quotaMB := float64(est.Quota) / 1024 / 1024
	pct := float64(est.Usage) / float64(est.Quota) * 100
	return fmt.Sprintf("Storage: %.2f MB / %.2f MB (%.1f%%)", usedMB, quotaMB, pct)
}

// verify reads back a spread of entries and compares them to what was written.
func (d *Driver) verify(ctx context.Context, cache *cachestorage.Cache, res *Result) {
	indices := sampleIndices(d.cfg.TotalFiles, d.cfg.VerifySample)
	filler := d.cfg.Filler[0]
	for _, i := range indices {
		resp, ok, err := cache.Match(ctx, EntryURL(i))
		switch {
		case err != nil:
			res.Mismatched++
			d.logf("Verify: file %d read failed: %s", i, err)
		case !ok:
			res.Mismatched++
			d.logf("Verify: file %d missing", i)
		case string(resp.Body) != EntryBody(i, d.cfg.FileSize, filler) || resp.ContentType() != "text/plain":
			res.Mismatched++
			d.logf("Verify: file %d content mismatch", i)
		}
		res.Verified++
	}
	d.logf("Verified %d entries: %d ok, %d failed", res.Verified, res.Verified-res.Mismatched, res.Mismatched)
}

// sampleIndices spreads n indices evenly over [0, total).
func sampleIndices(total, n int) []int {
	if n > total {
		n = total
	}
	if n <= 0 {
		return nil
	}
	out := make([]int, 0, n)
	for k := 0; k < n; k++ {
		out = append(out, k*total/n)
	}
	return out
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

func (d *Driver) fatal(res Result, start time.Time, err error) (Result, error) {
	res.Elapsed = d.now().Sub(start)
	res.Fatal = err
	d.logf("Fatal error: %s", err)
	d.logf("Stack: %s", stackOf(err))
	log.Errorw("stress run failed", "cache", d.cfg.CacheName, "error", err)
	return res, err
}

func stackOf(err error) string {
	var st stackTracer
	if errors.As(err, &st) {
		return strings.TrimSpace(fmt.Sprintf("%+v", st.StackTrace()))
	}
	return "(no stack)"
}

func (d *Driver) logf(format string, args ...any) {
	d.sink.Log(fmt.Sprintf(format, args...))
}
