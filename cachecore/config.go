package cachecore

// BaseConfig contains shared, backend-agnostic driver configuration.
type BaseConfig struct {
	Prefix        string
	Compression   CompressionCodec
	MaxValueBytes int
	// QuotaBytes is reported as the estimate quota when the backend has none.
	QuotaBytes uint64
}
