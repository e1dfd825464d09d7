package stress

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goforj/cachestorage/cachefake"
	"github.com/goforj/cachestorage/internal/logsink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time {
	return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
}

func TestTriggerRunsBothOperations(t *testing.T) {
	f := cachefake.New()
	buf := logsink.NewBuffer()

	launch := Trigger(context.Background(), Deps{Storage: f.Storage(), Sink: buf, Now: fixedNow}, smallConfig(6, 4))
	out, err := launch.Wait(context.Background())
	require.NoError(t, err)

	require.NoError(t, out.RunErr)
	require.NoError(t, out.ProbeErr)
	assert.Equal(t, 6, out.Result.Success)
	assert.Equal(t, 6, out.Result.KeyCount)

	lines := buf.Lines()
	assert.Equal(t, "Run triggered at 2024-05-06T07:08:09Z", lines[0])
	assert.Contains(t, lines, "test cache opening...")
	assert.Contains(t, lines, "Test completed!")
	assert.Len(t, linesWithPrefix(lines, "It took: "), 1)
	f.AssertTotal(t, cachefake.OpReady, 2)

	select {
	case <-launch.Done():
	default:
		t.Fatal("launch should be done after Wait")
	}
}

func TestTriggerUsesConfiguredCacheName(t *testing.T) {
	f := cachefake.New()
	buf := logsink.NewBuffer()

	cfg := Config{CacheName: "probe-cache", TotalFiles: 3, BatchSize: 3}
	out, err := Trigger(context.Background(), Deps{Storage: f.Storage(), Sink: buf}, cfg).Wait(context.Background())
	require.NoError(t, err)
	require.NoError(t, out.RunErr)
	assert.Equal(t, 3, out.Result.Success)
	assert.Contains(t, buf.Lines(), "Cache name: probe-cache")
	assert.True(t, strings.HasPrefix(buf.Lines()[0], "Run triggered at "))
	f.AssertCalled(t, cachefake.OpSet, "probe-cache/https://example.com/file-2.txt", 1)
}

func TestTriggerOpenFailureReportedByBoth(t *testing.T) {
	f := cachefake.New()
	f.FailReady(errors.New("no backend"))
	buf := logsink.NewBuffer()

	out, err := Trigger(context.Background(), Deps{Storage: f.Storage(), Sink: buf}, smallConfig(5, 2)).Wait(context.Background())
	require.NoError(t, err)
	assert.Error(t, out.RunErr)
	assert.Error(t, out.ProbeErr)
	assert.Equal(t, out.RunErr, out.Result.Fatal)
	assert.Len(t, linesWithPrefix(buf.Lines(), "Fatal error: "), 1)
	assert.Len(t, linesWithPrefix(buf.Lines(), "Cache open probe failed: "), 1)
}

func TestTriggerInvalidConfig(t *testing.T) {
	f := cachefake.New()
	buf := logsink.NewBuffer()

	out, err := Trigger(context.Background(), Deps{Storage: f.Storage(), Sink: buf}, Config{TotalFiles: -1}).Wait(context.Background())
	require.NoError(t, err)
	require.Error(t, out.RunErr)
	assert.Equal(t, out.RunErr, out.Result.Fatal)
	require.NoError(t, out.ProbeErr)
	f.AssertTotal(t, cachefake.OpSet, 0)
}

func TestLaunchWaitHonorsContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	launch := &Launch{
		Run: Go(context.Background(), func(context.Context) (Result, error) {
			<-release
			return Result{}, nil
		}),
		Probe: Go(context.Background(), func(context.Context) (time.Duration, error) {
			return time.Millisecond, nil
		}),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := launch.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLaunchDoneReturnsOneChannel(t *testing.T) {
	f := cachefake.New()
	launch := Trigger(context.Background(), Deps{Storage: f.Storage(), Sink: logsink.NewBuffer(), Now: fixedNow}, smallConfig(2, 2))

	done := launch.Done()
	assert.Equal(t, done, launch.Done())
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("launch did not finish")
	}
}

func TestLaunchDrainWaitsForInFlightWrites(t *testing.T) {
	f := cachefake.New()
	release := make(chan struct{})
	var releaseOnce sync.Once
	defer releaseOnce.Do(func() { close(release) })
	f.FailSet(func(string) error {
		<-release
		return nil
	})
	buf := logsink.NewBuffer()

	ctx, cancel := context.WithCancel(context.Background())
	launch := Trigger(ctx, Deps{Storage: f.Storage(), Sink: buf, Now: fixedNow}, smallConfig(4, 2))
	require.Eventually(t, func() bool {
		return f.Total(cachefake.OpSet) > 0
	}, 5*time.Second, time.Millisecond)

	cancel()
	_, err := launch.Wait(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, launch.Drain(20*time.Millisecond))

	releaseOnce.Do(func() { close(release) })
	require.True(t, launch.Drain(5*time.Second))
	assert.Empty(t, linesWithPrefix(buf.Lines(), "Failed to cache file"))

	out, err := launch.Wait(context.Background())
	require.NoError(t, err)
	require.Error(t, out.RunErr)
	assert.Equal(t, 2, out.Result.Success)
}
