// Package cachetest provides reusable store contract tests for cachestorage.Store implementations.
//
// Example pattern:
//
//	func TestRedisStoreContract(t *testing.T) {
//		client := newTestRedisClient(t)
//		store := cachestorage.NewRedisStore(context.Background(), client, cachestorage.WithPrefix("test"))
//
//		// Namespace keys per test so shared backends do not collide.
//		cachetest.RunStoreContract(t, store, cachetest.Options{CaseName: t.Name()})
//	}
//
// Example factory/cleanup wrapper:
//
//	func runContractWithFactory(t *testing.T, mk func(t *testing.T) (cachestorage.Store, func())) {
//		t.Helper()
//		store, cleanup := mk(t)
//		t.Cleanup(cleanup)
//		cachetest.RunStoreContract(t, store, cachetest.Options{CaseName: t.Name()})
//	}
package cachetest
