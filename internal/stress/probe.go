package stress

import (
	"context"
	"fmt"
	"time"

	"github.com/goforj/cachestorage"
	"github.com/goforj/cachestorage/internal/logsink"
)

// Probe measures one Open of the named cache and logs the latency. A failed
// open is logged and returned; it never escapes as a panic. A nil now uses
// time.Now.
func Probe(ctx context.Context, storage *cachestorage.Storage, sink logsink.Sink, name string, now func() time.Time) (time.Duration, error) {
	if now == nil {
		now = time.Now
	}
	sink.Log("test cache opening...")
	start := now()
	_, err := storage.Open(ctx, name)
	took := now().Sub(start)
	if err != nil {
		sink.Log(fmt.Sprintf("Cache open probe failed: %s", err))
		log.Warnw("cache open probe failed", "cache", name, "error", err)
		return took, err
	}
	sink.Log(fmt.Sprintf("It took: %.3fms to open cache!", float64(took)/float64(time.Millisecond)))
	return took, nil
}
