package cachetest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/goforj/cachestorage/cachecore"
)

// Options configures shared store contract checks.
type Options struct {
	// CaseName is used to namespace keys. Defaults to t.Name().
	CaseName string
	// NullSemantics enables relaxed expectations for the null store.
	NullSemantics bool
	// SkipCloneCheck disables the "get returns a cloned value" assertion.
	SkipCloneCheck bool
	// Writers is the number of concurrent writers in the fan-out check. Defaults to 16.
	Writers int
}

// Store is the minimal contract required by RunStoreContract.
type Store = cachecore.Store

// RunStoreContract runs a backend-agnostic store contract suite.
func RunStoreContract(t *testing.T, store Store, opts Options) {
	t.Helper()

	caseName := opts.CaseName
	if caseName == "" {
		caseName = t.Name()
	}
	writers := opts.Writers
	if writers <= 0 {
		writers = 16
	}

	ctx := context.Background()
	scope := sanitize(caseName) + "/"
	key := func(s string) string {
		return scope + s
	}

	if err := store.Ready(ctx); err != nil {
		t.Fatalf("ready failed: %v", err)
	}

	// Set/Get round-trip.
	if err := store.Set(ctx, key("alpha"), []byte("value")); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	body, ok, err := store.Get(ctx, key("alpha"))
	if err != nil {
		t.Fatalf("get failed: ok=%v err=%v", ok, err)
	}
	if opts.NullSemantics {
		if ok {
			t.Fatalf("expected miss for null semantics")
		}
	} else {
		if !ok || string(body) != "value" {
			t.Fatalf("unexpected get result: ok=%v body=%q err=%v", ok, string(body), err)
		}
		if !opts.SkipCloneCheck {
			body[0] = 'X'
			body2, ok2, err2 := store.Get(ctx, key("alpha"))
			if err2 != nil || !ok2 || string(body2) != "value" {
				t.Fatalf("expected stored value unchanged, got ok=%v body=%q err=%v", ok2, string(body2), err2)
			}
		}
	}

	// Miss.
	if _, ok, err := store.Get(ctx, key("missing")); err != nil || ok {
		t.Fatalf("expected miss; ok=%v err=%v", ok, err)
	}

	// Overwrite keeps one entry, last write wins.
	for _, v := range []string{"one", "two"} {
		if err := store.Set(ctx, key("over"), []byte(v)); err != nil {
			t.Fatalf("overwrite set failed: %v", err)
		}
	}
	if !opts.NullSemantics {
		body, ok, err := store.Get(ctx, key("over"))
		if err != nil || !ok || string(body) != "two" {
			t.Fatalf("expected last write to win; ok=%v body=%q err=%v", ok, string(body), err)
		}
	}

	// Keys honours the prefix exactly, including LIKE and glob metacharacters and case.
	listScope := key("list/")
	inside := []string{listScope + "a_1", listScope + "b%2", listScope + "c*3"}
	outside := []string{key("listx/z"), key("LIST/a_1"), key("list")}
	for _, k := range append(append([]string{}, inside...), outside...) {
		if err := store.Set(ctx, k, []byte("v")); err != nil {
			t.Fatalf("set %q failed: %v", k, err)
		}
	}
	keys, err := store.Keys(ctx, listScope)
	if err != nil {
		t.Fatalf("keys failed: %v", err)
	}
	if opts.NullSemantics {
		if len(keys) != 0 {
			t.Fatalf("expected no keys for null semantics, got %v", keys)
		}
	} else {
		sort.Strings(keys)
		want := append([]string{}, inside...)
		sort.Strings(want)
		if strings.Join(keys, "|") != strings.Join(want, "|") {
			t.Fatalf("unexpected keys for prefix %q: got %v want %v", listScope, keys, want)
		}
	}

	// Concurrent writers to distinct keys never lose an entry.
	fanScope := key("fan/")
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := store.Set(ctx, fmt.Sprintf("%s%03d", fanScope, i), []byte(fmt.Sprintf("v%d", i))); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent set failed: %v", err)
	}
	if !opts.NullSemantics {
		keys, err := store.Keys(ctx, fanScope)
		if err != nil {
			t.Fatalf("keys after fan-out failed: %v", err)
		}
		if len(keys) != writers {
			t.Fatalf("expected %d keys after fan-out, got %d", writers, len(keys))
		}
	}

	// Estimate, when supported, reports a consistent snapshot.
	if est, ok := store.(cachecore.Estimator); ok {
		snapshot, err := est.Estimate(ctx)
		if err == nil && snapshot.Quota > 0 && snapshot.Usage > snapshot.Quota*4 {
			t.Fatalf("implausible estimate: %+v", snapshot)
		}
	}
}

func sanitize(s string) string {
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
