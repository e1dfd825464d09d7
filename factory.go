package cachestorage

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnsupportedDriver is returned by stores built for an unknown driver name.
var ErrUnsupportedDriver = errors.New("cachestorage: unsupported driver")

// NewStore returns a concrete store for the requested driver.
// Caller is responsible for providing any driver-specific dependencies.
// Construction failures are not returned directly: the store reports them
// from every call, starting with Ready, so opening a cache on it fails.
//
// Example: select driver explicitly
//
//	ctx := context.Background()
//	store := cachestorage.NewStore(ctx, cachestorage.StoreConfig{
//		Driver: cachestorage.DriverMemory,
//	})
//	fmt.Println(store.Driver()) // memory
func NewStore(ctx context.Context, cfg StoreConfig) Store {
	cfg = cfg.withDefaults()
	var (
		store Store
		err   error
	)
	switch cfg.Driver {
	case DriverNull:
		store = newNullStore()
	case DriverMemory:
		store = newMemoryStore(cfg.QuotaBytes)
	case DriverFile:
		store, err = newFileStore(cfg.FileDir, cfg.QuotaBytes)
	case DriverRedis:
		store = newRedisStore(cfg.RedisClient, cfg.Prefix, cfg.QuotaBytes)
	case DriverSQL:
		store, err = newSQLStore(ctx, cfg)
	case DriverNATS:
		store = newNATSStore(cfg.NATSKeyValue, cfg.Prefix, cfg.QuotaBytes)
	case DriverDynamo:
		store, err = newDynamoStore(ctx, cfg)
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}
	if err == nil {
		store, err = newEncryptingStore(store, cfg.EncryptionKey)
	}
	if err != nil {
		return &errorStore{driver: cfg.Driver, err: err}
	}
	return newShapingStore(store, cfg.Compression, cfg.MaxValueBytes)
}

// NewStoreWith builds a store using a driver and a set of functional options.
// Required data (e.g., Redis client) must be provided via options when needed.
//
// Example: redis store (options)
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})
//	store := cachestorage.NewStoreWith(ctx, cachestorage.DriverRedis,
//		cachestorage.WithRedisClient(redisClient),
//		cachestorage.WithPrefix("app"),
//	)
//	fmt.Println(store.Driver()) // redis
func NewStoreWith(ctx context.Context, driver Driver, opts ...StoreOption) Store {
	cfg := StoreConfig{Driver: driver}
	for _, opt := range opts {
		cfg = opt(cfg)
	}
	return NewStore(ctx, cfg)
}

// NewMemoryStore is a convenience for an in-process store with optional overrides.
func NewMemoryStore(ctx context.Context, opts ...StoreOption) Store {
	return NewStoreWith(ctx, DriverMemory, opts...)
}

// NewFileStore is a convenience for a filesystem-backed store.
func NewFileStore(ctx context.Context, dir string, opts ...StoreOption) Store {
	return NewStoreWith(ctx, DriverFile, append([]StoreOption{WithFileDir(dir)}, opts...)...)
}

// NewRedisStore is a convenience for a redis-backed store. Redis client is required.
func NewRedisStore(ctx context.Context, client RedisClient, opts ...StoreOption) Store {
	return NewStoreWith(ctx, DriverRedis, append([]StoreOption{WithRedisClient(client)}, opts...)...)
}

// NewSQLStore is a convenience for a database/sql backed store.
func NewSQLStore(ctx context.Context, driverName, dsn, table string, opts ...StoreOption) Store {
	return NewStoreWith(ctx, DriverSQL, append([]StoreOption{WithSQL(driverName, dsn, table)}, opts...)...)
}

// NewNATSStore is a convenience for a JetStream key-value backed store.
func NewNATSStore(ctx context.Context, kv NATSKeyValue, opts ...StoreOption) Store {
	return NewStoreWith(ctx, DriverNATS, append([]StoreOption{WithNATSKeyValue(kv)}, opts...)...)
}

// NewDynamoStore is a convenience for a DynamoDB backed store.
func NewDynamoStore(ctx context.Context, opts ...StoreOption) Store {
	return NewStoreWith(ctx, DriverDynamo, opts...)
}
