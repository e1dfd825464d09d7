package cachecore

// Driver identifies cache backend.
type Driver string

const (
	DriverNull   Driver = "null"
	DriverFile   Driver = "file"
	DriverMemory Driver = "memory"
	DriverDynamo Driver = "dynamodb"
	DriverSQL    Driver = "sql"
	DriverRedis  Driver = "redis"
	DriverNATS   Driver = "nats"
)

// Drivers lists every backend NewStore knows how to build.
func Drivers() []Driver {
	return []Driver{DriverNull, DriverMemory, DriverFile, DriverRedis, DriverSQL, DriverNATS, DriverDynamo}
}

// Valid reports whether d names a known backend.
func (d Driver) Valid() bool {
	for _, known := range Drivers() {
		if d == known {
			return true
		}
	}
	return false
}
