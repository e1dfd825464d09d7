// Package logsink is the human-facing output surface of a run: an
// append-only sequence of lines shared by the stress driver and the probe.
package logsink

import (
	"sync"

	logging "github.com/ipfs/go-log/v2"
)

// Sink receives human-readable log lines. Implementations must be safe for
// concurrent use; lines are never rewritten once logged.
type Sink interface {
	Log(line string)
}

// Func adapts a function to the Sink interface.
type Func func(line string)

// Log implements Sink.
func (f Func) Log(line string) {
	if f != nil {
		f(line)
	}
}

// Buffer is an append-only, concurrency-safe Sink kept in memory.
type Buffer struct {
	mu    sync.RWMutex
	lines []string
}

// NewBuffer returns an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Log appends line.
func (b *Buffer) Log(line string) {
	b.mu.Lock()
	b.lines = append(b.lines, line)
	b.mu.Unlock()
}

// Lines returns a copy of every line logged so far.
func (b *Buffer) Lines() []string {
	return b.Since(0)
}

// Len returns the number of lines logged so far.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.lines)
}

// Since returns a copy of the lines logged after the first n.
func (b *Buffer) Since(n int) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if n < 0 {
		n = 0
	}
	if n >= len(b.lines) {
		return nil
	}
	out := make([]string, len(b.lines)-n)
	copy(out, b.lines[n:])
	return out
}

// Mirror forwards every line to a go-log diagnostic logger at info level.
type Mirror struct {
	log *logging.ZapEventLogger
}

// NewMirror returns a Sink that mirrors lines to log.
func NewMirror(log *logging.ZapEventLogger) *Mirror {
	return &Mirror{log: log}
}

// Log implements Sink.
func (m *Mirror) Log(line string) {
	m.log.Info(line)
}

type tee struct {
	mu    sync.Mutex
	sinks []Sink
}

// Tee returns a Sink that writes each line to every sink. Lines are
// delivered under one lock so all sinks observe the same order.
func Tee(sinks ...Sink) Sink {
	kept := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &tee{sinks: kept}
}

func (t *tee) Log(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range t.sinks {
		s.Log(line)
	}
}
