package cachestorage

import (
	"context"
	"sync"
)

type memoEntry struct {
	body []byte
	ok   bool
}

// NewMemoStore decorates store with per-process read memoization. Reads of a
// key are served from memory until this process writes that key again;
// writes made by other processes are not observed.
//
// Example: memoize a backing store
//
//	ctx := context.Background()
//	storage := cachestorage.NewStorage(cachestorage.NewMemoStore(cachestorage.NewMemoryStore(ctx)))
//	_ = storage
func NewMemoStore(store Store) Store {
	return &memoStore{
		store: store,
		items: make(map[string]memoEntry),
		gens:  make(map[string]uint64),
	}
}

type memoStore struct {
	store Store
	mu    sync.RWMutex
	items map[string]memoEntry
	// gens counts writes per key; a read only fills the memo if no write
	// to its key finished while it was in flight.
	gens map[string]uint64
}

func (s *memoStore) Driver() Driver {
	return s.store.Driver()
}

func (s *memoStore) Ready(ctx context.Context) error {
	return s.store.Ready(ctx)
}

func (s *memoStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	entry, ok := s.items[key]
	gen := s.gens[key]
	s.mu.RUnlock()
	if ok {
		return cloneBytes(entry.body), entry.ok, nil
	}

	body, exists, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	if s.gens[key] == gen {
		s.items[key] = memoEntry{body: cloneBytes(body), ok: exists}
	}
	s.mu.Unlock()

	return cloneBytes(body), exists, nil
}

func (s *memoStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.store.Set(ctx, key, value); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.items, key)
	s.gens[key]++
	s.mu.Unlock()
	return nil
}

// Keys always asks the backing store; listings are never memoized.
func (s *memoStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	return s.store.Keys(ctx, prefix)
}

func (s *memoStore) Estimate(ctx context.Context) (Estimate, error) {
	est, ok := s.store.(Estimator)
	if !ok {
		return Estimate{}, ErrEstimateUnsupported
	}
	return est.Estimate(ctx)
}
