// Package metrics exports cache storage operation metrics to Prometheus.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/goforj/cachestorage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeMiss  = "miss"
	OutcomeError = "error"
)

// Observer is a cachestorage.Observer that records every operation on a
// private Prometheus registry.
type Observer struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewObserver creates an Observer with its own registry, including the Go
// runtime and process collectors.
func NewObserver() *Observer {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Observer{
		registry: reg,
		operations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "cachestress_cache_ops_total",
				Help: "Total number of cache storage operations by op, driver and outcome",
			},
			[]string{"op", "driver", "outcome"},
		),
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "cachestress_cache_op_duration_seconds",
				Help: "Duration of cache storage operations in seconds",
				Buckets: []float64{
					0.0001, // 100us - in-process stores
					0.0005,
					0.001,
					0.005,
					0.01,
					0.05,
					0.1,
					0.5,
					1,
					5, // slow remote opens
				},
			},
			[]string{"op", "driver"},
		),
	}
}

// OnCacheOp implements cachestorage.Observer.
func (o *Observer) OnCacheOp(_ context.Context, op string, _ string, hit bool, err error, dur time.Duration, driver cachestorage.Driver) {
	o.operations.WithLabelValues(op, string(driver), outcome(op, hit, err)).Inc()
	o.duration.WithLabelValues(op, string(driver)).Observe(dur.Seconds())
}

// Registry returns the registry the observer's collectors live on.
func (o *Observer) Registry() *prometheus.Registry {
	return o.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (o *Observer) Handler() http.Handler {
	return promhttp.HandlerFor(o.registry, promhttp.HandlerOpts{Registry: o.registry})
}

func outcome(op string, hit bool, err error) string {
	switch {
	case err != nil:
		return OutcomeError
	case op == cachestorage.OpMatch && !hit:
		return OutcomeMiss
	default:
		return OutcomeOK
	}
}
