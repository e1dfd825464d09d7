package cachestorage

import "github.com/goforj/cachestorage/cachecore"

// Driver identifies cache backend.
type Driver = cachecore.Driver

const (
	DriverNull   = cachecore.DriverNull
	DriverFile   = cachecore.DriverFile
	DriverMemory = cachecore.DriverMemory
	DriverDynamo = cachecore.DriverDynamo
	DriverSQL    = cachecore.DriverSQL
	DriverRedis  = cachecore.DriverRedis
	DriverNATS   = cachecore.DriverNATS
)

// Store is the backend contract every driver implements.
type Store = cachecore.Store

// Estimate is a storage usage snapshot in bytes.
type Estimate = cachecore.Estimate

// Estimator is implemented by stores that can report storage usage.
type Estimator = cachecore.Estimator
