package metrics

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goforj/cachestorage"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserverCountsOutcomes(t *testing.T) {
	o := NewObserver()
	ctx := context.Background()

	o.OnCacheOp(ctx, cachestorage.OpPut, "k", false, nil, time.Millisecond, cachestorage.DriverMemory)
	o.OnCacheOp(ctx, cachestorage.OpPut, "k", false, errors.New("boom"), time.Millisecond, cachestorage.DriverMemory)
	o.OnCacheOp(ctx, cachestorage.OpMatch, "k", false, nil, time.Millisecond, cachestorage.DriverMemory)
	o.OnCacheOp(ctx, cachestorage.OpMatch, "k", true, nil, time.Millisecond, cachestorage.DriverMemory)

	assert.Equal(t, 1.0, testutil.ToFloat64(o.operations.WithLabelValues("put", "memory", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.operations.WithLabelValues("put", "memory", OutcomeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.operations.WithLabelValues("match", "memory", OutcomeMiss)))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.operations.WithLabelValues("match", "memory", OutcomeOK)))
}

func TestObserverWiredIntoStorage(t *testing.T) {
	o := NewObserver()
	ctx := context.Background()
	storage := cachestorage.NewStorage(cachestorage.NewMemoryStore(ctx)).WithObserver(o)

	c, err := storage.Open(ctx, "c")
	require.NoError(t, err)
	require.NoError(t, c.Put(ctx, "https://example.com/a", cachestorage.NewTextResponse("a")))

	assert.Equal(t, 1.0, testutil.ToFloat64(o.operations.WithLabelValues("open", "memory", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.operations.WithLabelValues("put", "memory", OutcomeOK)))
}

func TestHandlerExposesMetrics(t *testing.T) {
	o := NewObserver()
	o.OnCacheOp(context.Background(), cachestorage.OpOpen, "c", true, nil, time.Millisecond, cachestorage.DriverFile)

	rec := httptest.NewRecorder()
	o.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)

	text := string(body)
	assert.True(t, strings.Contains(text, `cachestress_cache_ops_total{driver="file",op="open",outcome="ok"} 1`), text)
	assert.Contains(t, text, "cachestress_cache_op_duration_seconds_bucket")
	assert.Contains(t, text, "go_goroutines")
}
