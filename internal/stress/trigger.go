package stress

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goforj/cachestorage"
	"github.com/goforj/cachestorage/internal/logsink"
)

// Deps are the collaborators shared by both operations of a launch.
type Deps struct {
	Storage *cachestorage.Storage
	Sink    logsink.Sink
	// Now defaults to time.Now.
	Now func() time.Time
}

// Launch holds the two operations started by Trigger.
type Launch struct {
	Run   *Task[Result]
	Probe *Task[time.Duration]

	once sync.Once
	done chan struct{}
}

// Outcome is the joined result of a launch.
type Outcome struct {
	Result      Result
	RunErr      error
	OpenLatency time.Duration
	ProbeErr    error
}

// Trigger starts the stress run and the open-latency probe concurrently.
// Their log lines may interleave on deps.Sink.
func Trigger(ctx context.Context, deps Deps, cfg Config) *Launch {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	deps.Sink.Log(fmt.Sprintf("Run triggered at %s", now().UTC().Format(time.RFC3339)))

	run := Go(ctx, func(ctx context.Context) (Result, error) {
		driver, err := NewDriver(deps.Storage, deps.Sink, cfg, WithClock(now))
		if err != nil {
			deps.Sink.Log(fmt.Sprintf("Fatal error: %s", err))
			return Result{Fatal: err}, err
		}
		return driver.Run(ctx)
	})
	probe := Go(ctx, func(ctx context.Context) (time.Duration, error) {
		return Probe(ctx, deps.Storage, deps.Sink, cfg.withDefaults().CacheName, now)
	})
	l := &Launch{Run: run, Probe: probe}
	l.Done()
	return l
}

// Done is closed once both operations have finished. Every call returns the
// same channel.
func (l *Launch) Done() <-chan struct{} {
	l.once.Do(func() {
		l.done = make(chan struct{})
		go func() {
			<-l.Run.Done()
			<-l.Probe.Done()
			close(l.done)
		}()
	})
	return l.done
}

// Drain blocks until both operations finish or timeout elapses, and reports
// whether they finished. Callers use it after Wait gave up on a canceled
// context, before releasing the store's clients.
func (l *Launch) Drain(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-l.Done():
		return true
	case <-timer.C:
		return false
	}
}

// Wait joins both operations. The returned error is non-nil only when ctx
// ends before they finish; operation failures are reported in Outcome.
func (l *Launch) Wait(ctx context.Context) (Outcome, error) {
	for _, done := range []<-chan struct{}{l.Run.Done(), l.Probe.Done()} {
		select {
		case <-done:
			continue
		default:
		}
		select {
		case <-done:
		case <-ctx.Done():
			return Outcome{}, ctx.Err()
		}
	}
	return Outcome{
		Result:      l.Run.val,
		RunErr:      l.Run.err,
		OpenLatency: l.Probe.val,
		ProbeErr:    l.Probe.err,
	}, nil
}
