package cachestorage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
)

func TestNATSStoreNilKeyValueErrors(t *testing.T) {
	store := newNATSStore(nil, "", 0)
	ctx := context.Background()

	if err := store.Ready(ctx); err == nil {
		t.Fatalf("expected ready error when nats key-value is nil")
	}
	if _, _, err := store.Get(ctx, "k"); err == nil {
		t.Fatalf("expected get error when nats key-value is nil")
	}
	if err := store.Set(ctx, "k", []byte("v")); err == nil {
		t.Fatalf("expected set error when nats key-value is nil")
	}
	if _, err := store.Keys(ctx, ""); err == nil {
		t.Fatalf("expected keys error when nats key-value is nil")
	}
	if _, err := store.(Estimator).Estimate(ctx); err == nil {
		t.Fatalf("expected estimate error when nats key-value is nil")
	}
}

func TestNATSStoreOperationsWithStubKV(t *testing.T) {
	ctx := context.Background()
	kv := newStubNATSKeyValue("bucket")
	store := newNATSStore(kv, "pfx", 0)

	if err := store.Ready(ctx); err != nil {
		t.Fatalf("ready failed: %v", err)
	}
	key := "stress-test-cache/https://example.com/file-1.txt"
	if err := store.Set(ctx, key, []byte("one")); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	for raw := range kv.entries {
		if strings.ContainsAny(raw, "/:") {
			t.Fatalf("expected encoded nats key, got %q", raw)
		}
	}
	body, ok, err := store.Get(ctx, key)
	if err != nil || !ok || string(body) != "one" {
		t.Fatalf("unexpected get result: ok=%v err=%v body=%s", ok, err, string(body))
	}
	if _, ok, err := store.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected miss, ok=%v err=%v", ok, err)
	}
}

func TestNATSStoreKeysFiltersScopeAndPrefix(t *testing.T) {
	ctx := context.Background()
	kv := newStubNATSKeyValue("bucket")
	store := newNATSStore(kv, "pfx", 0)
	other := newNATSStore(kv, "other", 0)

	for _, key := range []string{"c/b", "c/a", "d/a"} {
		if err := store.Set(ctx, key, []byte("v")); err != nil {
			t.Fatalf("set %s failed: %v", key, err)
		}
	}
	_ = other.Set(ctx, "c/z", []byte("v"))
	kv.entries["not-ours"] = &stubNATSKeyValueEntry{key: "not-ours", op: nats.KeyValuePut}

	keys, err := store.Keys(ctx, "c/")
	if err != nil {
		t.Fatalf("keys failed: %v", err)
	}
	if strings.Join(keys, ",") != "c/a,c/b" {
		t.Fatalf("unexpected keys: %v", keys)
	}
}

func TestNATSStoreKeysEmptyBucket(t *testing.T) {
	kv := newStubNATSKeyValue("bucket")
	kv.listErr = nats.ErrNoKeysFound
	keys, err := newNATSStore(kv, "pfx", 0).Keys(context.Background(), "")
	if err != nil || len(keys) != 0 {
		t.Fatalf("expected empty keys, got %v err=%v", keys, err)
	}
}

func TestNATSStoreEstimateUsesBucketBytes(t *testing.T) {
	kv := newStubNATSKeyValue("bucket")
	kv.bytes = 12345
	est, err := newNATSStore(kv, "pfx", 1<<20).(Estimator).Estimate(context.Background())
	if err != nil {
		t.Fatalf("estimate failed: %v", err)
	}
	if est.Usage != 12345 || est.Quota != 1<<20 {
		t.Fatalf("unexpected estimate %+v", est)
	}
}

func TestNATSKeyPartRoundTrip(t *testing.T) {
	for _, part := range []string{"", "a/b c", "https://example.com/file-1.txt"} {
		got, err := decodeNATSKeyPart(encodeNATSKeyPart(part))
		if err != nil || got != part {
			t.Fatalf("roundtrip %q: got %q err=%v", part, got, err)
		}
	}
	if _, err := decodeNATSKeyPart("***"); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestNATSStoreErrorPropagation(t *testing.T) {
	ctx := context.Background()

	kv := newStubNATSKeyValue("bucket")
	kv.getErr = errors.New("get")
	if _, _, err := newNATSStore(kv, "pfx", 0).Get(ctx, "k"); err == nil {
		t.Fatalf("expected get error")
	}

	kv = newStubNATSKeyValue("bucket")
	kv.putErr = errors.New("put")
	if err := newNATSStore(kv, "pfx", 0).Set(ctx, "k", []byte("v")); err == nil {
		t.Fatalf("expected put error")
	}

	kv = newStubNATSKeyValue("bucket")
	kv.listErr = errors.New("list")
	if _, err := newNATSStore(kv, "pfx", 0).Keys(ctx, ""); err == nil {
		t.Fatalf("expected list error")
	}

	kv = newStubNATSKeyValue("bucket")
	kv.statusErr = errors.New("status")
	if err := newNATSStore(kv, "pfx", 0).Ready(ctx); err == nil {
		t.Fatalf("expected status error")
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if err := newNATSStore(newStubNATSKeyValue("b"), "pfx", 0).Set(canceled, "k", []byte("v")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}

type stubNATSKeyValue struct {
	bucket string
	rev    uint64
	bytes  uint64

	entries map[string]*stubNATSKeyValueEntry

	getErr    error
	putErr    error
	listErr   error
	statusErr error
}

func newStubNATSKeyValue(bucket string) *stubNATSKeyValue {
	return &stubNATSKeyValue{
		bucket:  bucket,
		entries: make(map[string]*stubNATSKeyValueEntry),
	}
}

func (s *stubNATSKeyValue) Get(key string) (nats.KeyValueEntry, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	entry, ok := s.entries[key]
	if !ok {
		return nil, nats.ErrKeyNotFound
	}
	if entry.op == nats.KeyValueDelete || entry.op == nats.KeyValuePurge {
		return nil, nats.ErrKeyDeleted
	}
	return entry.clone(), nil
}

func (s *stubNATSKeyValue) Put(key string, value []byte) (uint64, error) {
	if s.putErr != nil {
		return 0, s.putErr
	}
	s.rev++
	s.entries[key] = &stubNATSKeyValueEntry{
		bucket:   s.bucket,
		key:      key,
		value:    cloneBytes(value),
		revision: s.rev,
		created:  time.Now(),
		op:       nats.KeyValuePut,
	}
	return s.rev, nil
}

func (s *stubNATSKeyValue) ListKeys(_ ...nats.WatchOpt) (nats.KeyLister, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	return newStubNATSKeyLister(keys), nil
}

func (s *stubNATSKeyValue) Status() (nats.KeyValueStatus, error) {
	if s.statusErr != nil {
		return nil, s.statusErr
	}
	return stubNATSStatus{bucket: s.bucket, bytes: s.bytes}, nil
}

// stubNATSStatus overrides the fields the store reads; other methods panic.
type stubNATSStatus struct {
	nats.KeyValueStatus
	bucket string
	bytes  uint64
}

func (s stubNATSStatus) Bucket() string { return s.bucket }
func (s stubNATSStatus) Bytes() uint64  { return s.bytes }

type stubNATSKeyValueEntry struct {
	bucket   string
	key      string
	value    []byte
	revision uint64
	created  time.Time
	delta    uint64
	op       nats.KeyValueOp
}

func (e *stubNATSKeyValueEntry) clone() *stubNATSKeyValueEntry {
	cp := *e
	cp.value = cloneBytes(e.value)
	return &cp
}

func (e *stubNATSKeyValueEntry) Bucket() string             { return e.bucket }
func (e *stubNATSKeyValueEntry) Key() string                { return e.key }
func (e *stubNATSKeyValueEntry) Value() []byte              { return cloneBytes(e.value) }
func (e *stubNATSKeyValueEntry) Revision() uint64           { return e.revision }
func (e *stubNATSKeyValueEntry) Created() time.Time         { return e.created }
func (e *stubNATSKeyValueEntry) Delta() uint64              { return e.delta }
func (e *stubNATSKeyValueEntry) Operation() nats.KeyValueOp { return e.op }

type stubNATSKeyLister struct {
	keysCh chan string
	errCh  chan error
}

func newStubNATSKeyLister(keys []string) *stubNATSKeyLister {
	keysCh := make(chan string, len(keys))
	errCh := make(chan error)
	for _, key := range keys {
		keysCh <- key
	}
	close(keysCh)
	close(errCh)
	return &stubNATSKeyLister{keysCh: keysCh, errCh: errCh}
}

func (l *stubNATSKeyLister) Keys() <-chan string { return l.keysCh }
func (l *stubNATSKeyLister) Error() <-chan error { return l.errCh }
func (l *stubNATSKeyLister) Stop() error         { return nil }
