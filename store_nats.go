package cachestorage

import (
	"context"
	"encoding/base64"
	"errors"
	"sort"
	"strings"

	"github.com/nats-io/nats.go"
)

var errNATSUnavailable = errors.New("nats cache key-value unavailable")

// NATSKeyValue captures the subset of nats.KeyValue used by the store.
type NATSKeyValue interface {
	Get(key string) (nats.KeyValueEntry, error)
	Put(key string, value []byte) (uint64, error)
	ListKeys(opts ...nats.WatchOpt) (nats.KeyLister, error)
	Status() (nats.KeyValueStatus, error)
}

type natsStore struct {
	kv     NATSKeyValue
	prefix string
	quota  uint64
}

func newNATSStore(kv NATSKeyValue, prefix string, quota uint64) Store {
	if prefix == "" {
		prefix = defaultCachePrefix
	}
	return &natsStore{
		kv:     kv,
		prefix: prefix,
		quota:  quota,
	}
}

func (s *natsStore) Driver() Driver { return DriverNATS }

func (s *natsStore) Ready(context.Context) error {
	if s.kv == nil {
		return errNATSUnavailable
	}
	_, err := s.kv.Status()
	return err
}

func (s *natsStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	if s.kv == nil {
		return nil, false, errNATSUnavailable
	}
	entry, err := s.kv.Get(s.cacheKey(key))
	if isNATSMiss(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if entry.Operation() == nats.KeyValueDelete || entry.Operation() == nats.KeyValuePurge {
		return nil, false, nil
	}
	return cloneBytes(entry.Value()), true, nil
}

func (s *natsStore) Set(ctx context.Context, key string, value []byte) error {
	if s.kv == nil {
		return errNATSUnavailable
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.kv.Put(s.cacheKey(key), cloneBytes(value))
	return err
}

func (s *natsStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	if s.kv == nil {
		return nil, errNATSUnavailable
	}
	lister, err := s.kv.ListKeys(nats.IgnoreDeletes(), nats.Context(ctx))
	if err != nil {
		if errors.Is(err, nats.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, err
	}
	defer func() { _ = lister.Stop() }()

	scopePrefix := s.scopePrefix()
	var keys []string
	for raw := range lister.Keys() {
		if !strings.HasPrefix(raw, scopePrefix) {
			continue
		}
		key, err := decodeNATSKeyPart(strings.TrimPrefix(raw, scopePrefix))
		if err != nil {
			continue
		}
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *natsStore) Estimate(context.Context) (Estimate, error) {
	if s.kv == nil {
		return Estimate{}, errNATSUnavailable
	}
	status, err := s.kv.Status()
	if err != nil {
		return Estimate{}, err
	}
	return Estimate{Usage: status.Bytes(), Quota: s.quota}, nil
}

// Keys are encoded because KV keys only allow a restricted alphabet.
func (s *natsStore) cacheKey(key string) string {
	return s.scopePrefix() + encodeNATSKeyPart(key)
}

func (s *natsStore) scopePrefix() string {
	return "p." + encodeNATSKeyPart(s.prefix) + ".k."
}

func isNATSMiss(err error) bool {
	return errors.Is(err, nats.ErrKeyNotFound) || errors.Is(err, nats.ErrKeyDeleted)
}

func encodeNATSKeyPart(part string) string {
	if part == "" {
		return "_"
	}
	return base64.RawURLEncoding.EncodeToString([]byte(part))
}

func decodeNATSKeyPart(part string) (string, error) {
	if part == "_" {
		return "", nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(part)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
