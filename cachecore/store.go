package cachecore

import "context"

// Store is the byte-level persistence contract shared by every backend.
// Entries never expire; Set on an existing key overwrites it.
type Store interface {
	Driver() Driver
	Ready(ctx context.Context) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Estimate is a point-in-time storage accounting snapshot in bytes.
// Quota is zero when the backend cannot report a limit.
type Estimate struct {
	Usage uint64
	Quota uint64
}

// Estimator is implemented by stores that can report storage usage.
type Estimator interface {
	Estimate(ctx context.Context) (Estimate, error)
}
