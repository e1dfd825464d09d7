package cachefake

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/goforj/cachestorage"
)

// Op identifies a store operation for assertions.
type Op string

const (
	OpReady    Op = "ready"
	OpGet      Op = "get"
	OpSet      Op = "set"
	OpKeys     Op = "keys"
	OpEstimate Op = "estimate"
)

// Fake exposes a deterministic in-memory store plus fault injection and
// assertion helpers for tests. It wraps the memory store so no external
// services are needed.
type Fake struct {
	store   *countingStore
	storage *cachestorage.Storage
	counts  map[Op]map[string]int
	mu      sync.Mutex

	readyErr    error
	setFault    func(key string) error
	estimate    *cachestorage.Estimate
	estimateErr error
	noEstimate  bool
}

// New creates a Fake using an in-memory store.
func New() *Fake {
	f := &Fake{counts: make(map[Op]map[string]int)}
	f.store = &countingStore{inner: cachestorage.NewMemoryStore(context.Background()), fake: f}
	f.storage = cachestorage.NewStorage(f.store)
	return f
}

// Storage returns a cache storage backed by the fake store.
func (f *Fake) Storage() *cachestorage.Storage { return f.storage }

// Store returns the fake store to inject into code under test.
func (f *Fake) Store() cachestorage.Store { return f.store }

// FailReady makes Ready (and so Storage.Open) return err. A nil err clears it.
func (f *Fake) FailReady(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readyErr = err
}

// FailSet installs fn to decide, per key, whether a write fails. A nil fn clears it.
func (f *Fake) FailSet(fn func(key string) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setFault = fn
}

// FailSetSuffix fails writes whose key ends with suffix.
func (f *Fake) FailSetSuffix(suffix string, err error) {
	f.FailSet(func(key string) error {
		if strings.HasSuffix(key, suffix) {
			return err
		}
		return nil
	})
}

// SetEstimate pins the usage estimate reported by the store.
func (f *Fake) SetEstimate(est cachestorage.Estimate, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.estimate = &est
	f.estimateErr = err
}

// DisableEstimate makes the store report that estimates are unsupported.
func (f *Fake) DisableEstimate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.noEstimate = true
}

// Reset clears recorded counts.
func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts = make(map[Op]map[string]int)
}

// AssertCalled verifies key was touched by op the expected number of times.
func (f *Fake) AssertCalled(t *testing.T, op Op, key string, times int) {
	t.Helper()
	if got := f.Count(op, key); got != times {
		t.Fatalf("expected %s %q called %d times, got %d", op, key, times, got)
	}
}

// AssertNotCalled ensures key was never touched by op.
func (f *Fake) AssertNotCalled(t *testing.T, op Op, key string) {
	t.Helper()
	if got := f.Count(op, key); got != 0 {
		t.Fatalf("expected %s %q not called, got %d", op, key, got)
	}
}

// AssertTotal ensures the total call count for an op matches times.
func (f *Fake) AssertTotal(t *testing.T, op Op, times int) {
	t.Helper()
	if got := f.Total(op); got != times {
		t.Fatalf("expected %s total=%d, got %d", op, times, got)
	}
}

// Count returns calls for op+key.
func (f *Fake) Count(op Op, key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts[op] == nil {
		return 0
	}
	return f.counts[op][key]
}

// Total returns total calls for an op across keys.
func (f *Fake) Total(op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum int
	for _, v := range f.counts[op] {
		sum += v
	}
	return sum
}

func (f *Fake) record(op Op, key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts[op] == nil {
		f.counts[op] = make(map[string]int)
	}
	f.counts[op][key]++
}

// countingStore wraps a Store to record calls and inject faults.
type countingStore struct {
	inner cachestorage.Store
	fake  *Fake
}

func (s *countingStore) Driver() cachestorage.Driver { return s.inner.Driver() }

func (s *countingStore) Ready(ctx context.Context) error {
	s.fake.record(OpReady, "")
	s.fake.mu.Lock()
	err := s.fake.readyErr
	s.fake.mu.Unlock()
	if err != nil {
		return err
	}
	return s.inner.Ready(ctx)
}

func (s *countingStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.fake.record(OpGet, key)
	return s.inner.Get(ctx, key)
}

func (s *countingStore) Set(ctx context.Context, key string, val []byte) error {
	s.fake.record(OpSet, key)
	s.fake.mu.Lock()
	fault := s.fake.setFault
	s.fake.mu.Unlock()
	if fault != nil {
		if err := fault(key); err != nil {
			return err
		}
	}
	return s.inner.Set(ctx, key, val)
}

func (s *countingStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	s.fake.record(OpKeys, prefix)
	return s.inner.Keys(ctx, prefix)
}

func (s *countingStore) Estimate(ctx context.Context) (cachestorage.Estimate, error) {
	s.fake.record(OpEstimate, "")
	s.fake.mu.Lock()
	pinned, pinnedErr, disabled := s.fake.estimate, s.fake.estimateErr, s.fake.noEstimate
	s.fake.mu.Unlock()
	if disabled {
		return cachestorage.Estimate{}, cachestorage.ErrEstimateUnsupported
	}
	if pinned != nil {
		return *pinned, pinnedErr
	}
	return s.inner.(cachestorage.Estimator).Estimate(ctx)
}
