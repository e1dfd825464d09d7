package config

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/goforj/cachestorage"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
)

// Options converts the backend-agnostic settings into store options.
func (c StoreConfig) Options() []cachestorage.StoreOption {
	opts := []cachestorage.StoreOption{
		cachestorage.WithPrefix(c.Prefix),
		cachestorage.WithQuota(uint64(c.Quota)),
		cachestorage.WithCompression(cachestorage.CompressionCodec(c.Compression)),
		cachestorage.WithMaxValueBytes(int(c.MaxValueBytes)),
	}
	if c.FileDir != "" {
		opts = append(opts, cachestorage.WithFileDir(c.FileDir))
	}
	return opts
}

// OpenStore builds the configured store together with any network client it
// needs. The returned close func releases those clients and is never nil.
func OpenStore(ctx context.Context, c StoreConfig) (cachestorage.Store, func() error, error) {
	noop := func() error { return nil }
	opts := c.Options()
	if c.EncryptionKey != "" {
		key, err := hex.DecodeString(c.EncryptionKey)
		if err != nil {
			return nil, noop, fmt.Errorf("decode encryption key: %w", err)
		}
		opts = append(opts, cachestorage.WithEncryptionKey(key))
	}

	store, closeFn, err := openBackend(ctx, c, opts)
	if err != nil {
		return nil, noop, err
	}
	if c.Memo {
		store = cachestorage.NewMemoStore(store)
	}
	return store, closeFn, nil
}

func openBackend(ctx context.Context, c StoreConfig, opts []cachestorage.StoreOption) (cachestorage.Store, func() error, error) {
	noop := func() error { return nil }
	switch cachestorage.Driver(c.Driver) {
	case cachestorage.DriverMemory, cachestorage.DriverNull, cachestorage.DriverFile:
		return cachestorage.NewStoreWith(ctx, cachestorage.Driver(c.Driver), opts...), noop, nil

	case cachestorage.DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:        c.RedisAddr,
			DialTimeout: c.ConnectTimeout,
		})
		return cachestorage.NewRedisStore(ctx, client, opts...), client.Close, nil

	case cachestorage.DriverSQL:
		return cachestorage.NewSQLStore(ctx, c.SQLDriver, c.SQLDSN, c.SQLTable, opts...), noop, nil

	case cachestorage.DriverNATS:
		nc, kv, err := openNATSBucket(c)
		if err != nil {
			return nil, noop, err
		}
		return cachestorage.NewNATSStore(ctx, kv, opts...), func() error { nc.Close(); return nil }, nil

	case cachestorage.DriverDynamo:
		opts = append(opts,
			cachestorage.WithDynamoEndpoint(c.DynamoRegion, c.DynamoEndpoint),
			cachestorage.WithDynamoTable(c.DynamoTable),
		)
		return cachestorage.NewDynamoStore(ctx, opts...), noop, nil

	default:
		return nil, noop, fmt.Errorf("%w: %q", cachestorage.ErrUnsupportedDriver, c.Driver)
	}
}

// openNATSBucket connects to c.NATSURL and returns the JetStream key-value
// bucket, creating it when absent.
func openNATSBucket(c StoreConfig) (*nats.Conn, nats.KeyValue, error) {
	nc, err := nats.Connect(c.NATSURL, nats.Timeout(c.ConnectTimeout), nats.Name("cachestress"))
	if err != nil {
		return nil, nil, fmt.Errorf("connect nats %s: %w", c.NATSURL, err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("open jetstream: %w", err)
	}
	kv, err := js.KeyValue(c.NATSBucket)
	if errors.Is(err, nats.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{Bucket: c.NATSBucket})
	}
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("open nats bucket %q: %w", c.NATSBucket, err)
	}
	return nc, kv, nil
}
