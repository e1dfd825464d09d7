package stress

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

const (
	defaultCacheName  = "stress-test-cache"
	defaultTotalFiles = 50000
	defaultBatchSize  = 100
	defaultFileSize   = 1024
	defaultFiller     = "x"
)

// Config controls one stress run.
type Config struct {
	// CacheName is the cache every entry is written to.
	CacheName string `mapstructure:"cache_name" validate:"required"`
	// TotalFiles is the number of synthetic entries to write.
	TotalFiles int `mapstructure:"total_files" validate:"min=1"`
	// BatchSize bounds how many writes are in flight at once.
	BatchSize int `mapstructure:"batch_size" validate:"min=1"`
	// FileSize is the filler length appended to each entry's label.
	FileSize int `mapstructure:"file_size" validate:"min=1"`
	// Filler is the single printable ASCII byte repeated FileSize times.
	Filler string `mapstructure:"filler" validate:"len=1,printascii"`
	// VerifySample reads back up to this many entries after the run. Zero disables it.
	VerifySample int `mapstructure:"verify_sample" validate:"min=0"`
}

// DefaultConfig returns the configuration of the reference stress page.
func DefaultConfig() Config {
	return Config{
		CacheName:  defaultCacheName,
		TotalFiles: defaultTotalFiles,
		BatchSize:  defaultBatchSize,
		FileSize:   defaultFileSize,
		Filler:     defaultFiller,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.CacheName == "" {
		c.CacheName = def.CacheName
	}
	if c.TotalFiles == 0 {
		c.TotalFiles = def.TotalFiles
	}
	if c.BatchSize == 0 {
		c.BatchSize = def.BatchSize
	}
	if c.FileSize == 0 {
		c.FileSize = def.FileSize
	}
	if c.Filler == "" {
		c.Filler = def.Filler
	}
	return c
}

var validate = validator.New()

// Validate reports the first invalid field, if any.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid stress config: %w", err)
	}
	return nil
}
