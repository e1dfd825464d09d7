// Package config loads cachestress settings from defaults, an optional YAML
// file, CACHESTRESS_* environment variables and bound command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
	"github.com/goforj/cachestorage/internal/logger"
	"github.com/goforj/cachestorage/internal/stress"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CACHESTRESS_STORE_DRIVER.
const EnvPrefix = "CACHESTRESS"

// ByteSize is a byte count that decodes from "64MiB", "1GB" or a plain number.
type ByteSize uint64

// String renders the size in IEC units.
func (b ByteSize) String() string {
	return humanize.IBytes(uint64(b))
}

// Config is the full cachestress configuration.
type Config struct {
	Log    logger.Config `mapstructure:"log"`
	Store  StoreConfig   `mapstructure:"store"`
	Stress stress.Config `mapstructure:"stress"`
	Server ServerConfig  `mapstructure:"server"`
}

// StoreConfig selects and parameterizes the cache backend.
type StoreConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=memory null file redis sql nats dynamodb"`
	Prefix string `mapstructure:"prefix"`

	FileDir string `mapstructure:"file_dir"`

	RedisAddr string `mapstructure:"redis_addr" validate:"required_if=Driver redis"`

	SQLDriver string `mapstructure:"sql_driver" validate:"required,oneof=sqlite pgx mysql"`
	SQLDSN    string `mapstructure:"sql_dsn" validate:"required_if=Driver sql"`
	SQLTable  string `mapstructure:"sql_table"`

	NATSURL    string `mapstructure:"nats_url" validate:"required_if=Driver nats"`
	NATSBucket string `mapstructure:"nats_bucket" validate:"required_if=Driver nats"`

	DynamoRegion   string `mapstructure:"dynamo_region"`
	DynamoEndpoint string `mapstructure:"dynamo_endpoint"`
	DynamoTable    string `mapstructure:"dynamo_table"`

	Quota         ByteSize `mapstructure:"quota"`
	Compression   string   `mapstructure:"compression" validate:"omitempty,oneof=none gzip"`
	MaxValueBytes ByteSize `mapstructure:"max_value_bytes"`
	// EncryptionKey is a hex-encoded AES key (32, 48 or 64 hex digits).
	EncryptionKey string `mapstructure:"encryption_key" validate:"omitempty,hexadecimal"`
	// Memo memoizes reads in-process in front of the backend.
	Memo bool `mapstructure:"memo"`

	// ConnectTimeout bounds backend client construction and the first ping.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" validate:"gt=0"`
}

// ServerConfig controls the HTTP trigger page.
type ServerConfig struct {
	Listen          string        `mapstructure:"listen" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

var defaults = map[string]any{
	"log.level":               "info",
	"log.format":              logger.FormatColor,
	"store.driver":            "memory",
	"store.prefix":            "cachestress",
	"store.file_dir":          "",
	"store.redis_addr":        "",
	"store.sql_driver":        "sqlite",
	"store.sql_dsn":           "",
	"store.sql_table":         "",
	"store.nats_url":          "",
	"store.nats_bucket":       "cachestress",
	"store.dynamo_region":     "",
	"store.dynamo_endpoint":   "",
	"store.dynamo_table":      "",
	"store.quota":             "0",
	"store.compression":       "none",
	"store.max_value_bytes":   "0",
	"store.encryption_key":    "",
	"store.memo":              false,
	"store.connect_timeout":   "10s",
	"stress.cache_name":       stress.DefaultConfig().CacheName,
	"stress.total_files":      stress.DefaultConfig().TotalFiles,
	"stress.batch_size":       stress.DefaultConfig().BatchSize,
	"stress.file_size":        stress.DefaultConfig().FileSize,
	"stress.filler":           stress.DefaultConfig().Filler,
	"stress.verify_sample":    0,
	"server.listen":           "127.0.0.1:8080",
	"server.shutdown_timeout": "5s",
}

// New returns a viper instance with defaults and environment overrides
// installed. Callers may bind flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configPath (if non-empty) into v, decodes and validates the
// result. Precedence is flags, then environment, then file, then defaults.
func Load(v *viper.Viper, configPath string) (*Config, error) {
	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("config file not found: %s", configPath)
			}
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

var validate = validator.New()

// Validate checks every section of cfg.
func Validate(cfg *Config) error {
	return validate.Struct(cfg)
}

func decodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		mapstructure.StringToTimeDurationHookFunc(),
	)
}

// byteSizeDecodeHook accepts human-readable sizes ("64MiB", "1 GB") as well
// as plain numbers.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(_ reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(ByteSize(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			n, err := humanize.ParseBytes(v)
			if err != nil {
				return nil, fmt.Errorf("invalid byte size %q: %w", v, err)
			}
			return ByteSize(n), nil
		case int:
			if v < 0 {
				return nil, fmt.Errorf("invalid byte size %d", v)
			}
			return ByteSize(v), nil
		case int64:
			if v < 0 {
				return nil, fmt.Errorf("invalid byte size %d", v)
			}
			return ByteSize(v), nil
		case uint64:
			return ByteSize(v), nil
		case float64:
			if v < 0 {
				return nil, fmt.Errorf("invalid byte size %v", v)
			}
			return ByteSize(v), nil
		default:
			return data, nil
		}
	}
}
