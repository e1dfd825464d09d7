package cachestorage

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestStorageOpenRejectsBlankName(t *testing.T) {
	storage := NewStorage(newMemoryStore(0))
	for _, name := range []string{"", "   "} {
		if _, err := storage.Open(context.Background(), name); !errors.Is(err, ErrEmptyCacheName) {
			t.Fatalf("expected empty name error for %q, got %v", name, err)
		}
	}
}

func TestStorageOpenFailsWhenStoreNotReady(t *testing.T) {
	boom := errors.New("backend down")
	storage := NewStorage(&errorStore{driver: DriverRedis, err: boom})
	_, err := storage.Open(context.Background(), "stress-test-cache")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped backend error, got %v", err)
	}
	if !strings.Contains(err.Error(), "stress-test-cache") {
		t.Fatalf("expected cache name in error, got %v", err)
	}
}

func TestCachePutMatchKeys(t *testing.T) {
	ctx := context.Background()
	storage := NewStorage(newMemoryStore(0))
	c, err := storage.Open(ctx, "stress-test-cache")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if c.Name() != "stress-test-cache" {
		t.Fatalf("unexpected name %s", c.Name())
	}

	url := "https://example.com/file-0.txt"
	if err := c.Put(ctx, url, NewTextResponse("File 0: x")); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if err := c.Put(ctx, url, NewTextResponse("File 0: y")); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	resp, ok, err := c.Match(ctx, url)
	if err != nil || !ok {
		t.Fatalf("match failed: ok=%v err=%v", ok, err)
	}
	if string(resp.Body) != "File 0: y" || resp.Status != 200 || resp.ContentType() != "text/plain" {
		t.Fatalf("unexpected response %+v", resp)
	}
	keys, err := c.Keys(ctx)
	if err != nil {
		t.Fatalf("keys failed: %v", err)
	}
	if len(keys) != 1 || keys[0] != url {
		t.Fatalf("unexpected keys %v", keys)
	}
}

func TestCachesAreIsolatedByName(t *testing.T) {
	ctx := context.Background()
	storage := NewStorage(newMemoryStore(0))
	a, _ := storage.Open(ctx, "a")
	ab, _ := storage.Open(ctx, "a/b")

	_ = a.Put(ctx, "https://example.com/1", NewTextResponse("1"))
	_ = ab.Put(ctx, "https://example.com/2", NewTextResponse("2"))

	keys, _ := a.Keys(ctx)
	if len(keys) != 1 || keys[0] != "https://example.com/1" {
		t.Fatalf("expected cache a to hold only its entry, got %v", keys)
	}
	if _, ok, _ := a.Match(ctx, "https://example.com/2"); ok {
		t.Fatalf("expected miss across caches")
	}

	reopened, _ := storage.Open(ctx, "a")
	if keys, _ := reopened.Keys(ctx); len(keys) != 1 {
		t.Fatalf("expected reopen to see existing entries, got %v", keys)
	}
}

func TestCachePutRejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	c, _ := NewStorage(newMemoryStore(0)).Open(ctx, "c")
	if err := c.Put(ctx, "", NewTextResponse("x")); !errors.Is(err, ErrEmptyURL) {
		t.Fatalf("expected empty url error, got %v", err)
	}
	if err := c.Put(ctx, "https://example.com/p", Response{Status: 206}); !errors.Is(err, ErrBadStatus) {
		t.Fatalf("expected bad status error, got %v", err)
	}
	if _, _, err := c.Match(ctx, ""); !errors.Is(err, ErrEmptyURL) {
		t.Fatalf("expected empty url error on match, got %v", err)
	}
}

func TestCacheMatchCorruptEntry(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(0)
	c, _ := NewStorage(store).Open(ctx, "c")
	_ = store.Set(ctx, "c/https://example.com/x", []byte("garbage"))
	if _, _, err := c.Match(ctx, "https://example.com/x"); !errors.Is(err, ErrCorruptResponse) {
		t.Fatalf("expected corrupt response, got %v", err)
	}
}

func TestCacheConcurrentPutsToDistinctURLs(t *testing.T) {
	ctx := context.Background()
	c, _ := NewStorage(newMemoryStore(0)).Open(ctx, "c")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			url := "https://example.com/file-" + strings.Repeat("x", i) + ".txt"
			if err := c.Put(ctx, url, NewTextResponse("v")); err != nil {
				t.Errorf("put %d failed: %v", i, err)
			}
		}(i)
	}
	wg.Wait()
	keys, _ := c.Keys(ctx)
	if len(keys) != 50 {
		t.Fatalf("expected 50 keys, got %d", len(keys))
	}
}

func TestStorageEstimate(t *testing.T) {
	ctx := context.Background()
	storage := NewStorage(newMemoryStore(2048))
	c, _ := storage.Open(ctx, "c")
	_ = c.Put(ctx, "https://example.com/a", NewTextResponse("hello"))

	est, ok, err := storage.Estimate(ctx)
	if err != nil || !ok {
		t.Fatalf("estimate failed: ok=%v err=%v", ok, err)
	}
	if est.Usage == 0 || est.Quota != 2048 {
		t.Fatalf("unexpected estimate %+v", est)
	}

	_, ok, err = NewStorage(newNullStore()).Estimate(ctx)
	if ok || err != nil {
		t.Fatalf("expected unsupported estimate, ok=%v err=%v", ok, err)
	}
	_, ok, err = NewStorage(newShapingStore(newNullStore(), CompressionGzip, 0)).Estimate(ctx)
	if ok || err != nil {
		t.Fatalf("expected unsupported estimate through shaping, ok=%v err=%v", ok, err)
	}
}

func TestStorageStoreAccessors(t *testing.T) {
	store := newMemoryStore(0)
	storage := NewStorage(store)
	if storage.Store() != store || storage.Driver() != DriverMemory {
		t.Fatalf("unexpected accessors")
	}
}
