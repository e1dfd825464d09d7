package cachestorage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrEmptyCacheName is returned by Open when no cache name is given.
	ErrEmptyCacheName = errors.New("cachestorage: cache name is required")
	// ErrEmptyURL is returned by Put and Match when no request URL is given.
	ErrEmptyURL = errors.New("cachestorage: request url is required")
	// ErrEstimateUnsupported is returned by stores that cannot report usage.
	ErrEstimateUnsupported = errors.New("cachestorage: storage estimate unsupported")
)

// Storage hands out named caches backed by a single Store. Caches are
// created implicitly on first Open and share the store's keyspace under
// their own prefix.
type Storage struct {
	store    Store
	observer Observer
}

// NewStorage creates a cache storage bound to a concrete store.
//
// Example: open a cache and store a response
//
//	ctx := context.Background()
//	storage := cachestorage.NewStorage(cachestorage.NewMemoryStore(ctx))
//	c, _ := storage.Open(ctx, "assets")
//	_ = c.Put(ctx, "https://example.com/a.txt", cachestorage.NewTextResponse("hi"))
//	keys, _ := c.Keys(ctx)
//	fmt.Println(len(keys)) // 1
func NewStorage(store Store) *Storage {
	return &Storage{store: store}
}

// WithObserver attaches an observer to receive operation events.
func (s *Storage) WithObserver(o Observer) *Storage {
	s.observer = o
	return s
}

// Store returns the underlying store implementation.
func (s *Storage) Store() Store {
	return s.store
}

// Driver reports the underlying store driver.
func (s *Storage) Driver() Driver {
	return s.store.Driver()
}

// Open returns the cache called name, creating it if absent. It fails when
// the backing store is not ready.
func (s *Storage) Open(ctx context.Context, name string) (*Cache, error) {
	start := time.Now()
	if strings.TrimSpace(name) == "" {
		s.observe(ctx, OpOpen, name, false, ErrEmptyCacheName, start)
		return nil, ErrEmptyCacheName
	}
	if err := s.store.Ready(ctx); err != nil {
		err = fmt.Errorf("open cache %q: %w", name, err)
		s.observe(ctx, OpOpen, name, false, err, start)
		return nil, err
	}
	s.observe(ctx, OpOpen, name, true, nil, start)
	return &Cache{
		storage: s,
		name:    name,
		prefix:  url.PathEscape(name) + "/",
	}, nil
}

// Estimate reports storage usage and quota. ok is false when the backing
// store cannot produce an estimate.
func (s *Storage) Estimate(ctx context.Context) (est Estimate, ok bool, err error) {
	start := time.Now()
	estimator, supported := s.store.(Estimator)
	if !supported {
		return Estimate{}, false, nil
	}
	est, err = estimator.Estimate(ctx)
	if errors.Is(err, ErrEstimateUnsupported) {
		return Estimate{}, false, nil
	}
	s.observe(ctx, OpEstimate, "", err == nil, err, start)
	if err != nil {
		return Estimate{}, true, err
	}
	return est, true, nil
}

func (s *Storage) observe(ctx context.Context, op, key string, hit bool, err error, start time.Time) {
	if s.observer == nil {
		return
	}
	s.observer.OnCacheOp(ctx, op, key, hit, err, time.Since(start), s.store.Driver())
}

// Cache is a handle to one named cache. It is safe for concurrent use;
// writes to distinct URLs never interfere.
type Cache struct {
	storage *Storage
	name    string
	prefix  string
}

// Name returns the cache name given to Open.
func (c *Cache) Name() string {
	return c.name
}

// Put stores resp under requestURL, replacing any previous entry.
func (c *Cache) Put(ctx context.Context, requestURL string, resp Response) error {
	start := time.Now()
	err := c.put(ctx, requestURL, resp)
	c.storage.observe(ctx, OpPut, requestURL, false, err, start)
	return err
}

func (c *Cache) put(ctx context.Context, requestURL string, resp Response) error {
	if requestURL == "" {
		return ErrEmptyURL
	}
	if err := validateResponse(resp); err != nil {
		return err
	}
	body, err := encodeResponse(resp)
	if err != nil {
		return err
	}
	return c.storage.store.Set(ctx, c.prefix+requestURL, body)
}

// Match returns the response stored under requestURL.
func (c *Cache) Match(ctx context.Context, requestURL string) (Response, bool, error) {
	start := time.Now()
	resp, ok, err := c.match(ctx, requestURL)
	c.storage.observe(ctx, OpMatch, requestURL, ok, err, start)
	return resp, ok, err
}

func (c *Cache) match(ctx context.Context, requestURL string) (Response, bool, error) {
	if requestURL == "" {
		return Response{}, false, ErrEmptyURL
	}
	raw, ok, err := c.storage.store.Get(ctx, c.prefix+requestURL)
	if err != nil || !ok {
		return Response{}, false, err
	}
	resp, err := decodeResponse(raw)
	if err != nil {
		return Response{}, false, err
	}
	return resp, true, nil
}

// Keys returns the request URLs stored in this cache.
func (c *Cache) Keys(ctx context.Context) ([]string, error) {
	start := time.Now()
	raw, err := c.storage.store.Keys(ctx, c.prefix)
	if err != nil {
		c.storage.observe(ctx, OpKeys, c.name, false, err, start)
		return nil, err
	}
	keys := make([]string, 0, len(raw))
	for _, key := range raw {
		keys = append(keys, strings.TrimPrefix(key, c.prefix))
	}
	c.storage.observe(ctx, OpKeys, c.name, true, nil, start)
	return keys, nil
}
