// Package logger configures the process-wide diagnostic loggers.
package logger

import (
	"fmt"
	"strings"

	logging "github.com/ipfs/go-log/v2"
)

// Supported output formats.
const (
	FormatColor = "color"
	FormatPlain = "plain"
	FormatJSON  = "json"
)

// Config selects the diagnostic log level and output format.
type Config struct {
	Level  string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=color plain json"`
}

// Named returns the diagnostic logger for a subsystem.
func Named(name string) *logging.ZapEventLogger {
	return logging.Logger(name)
}

// Setup applies cfg to every go-log logger. Empty fields fall back to info/color.
func Setup(cfg Config) error {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return err
	}
	format, err := parseFormat(cfg.Format)
	if err != nil {
		return err
	}
	logging.SetupLogging(logging.Config{
		Format: format,
		Level:  level,
		Stderr: true,
	})
	logging.SetAllLoggers(level)
	return nil
}

func parseLevel(s string) (logging.LogLevel, error) {
	if s == "" {
		return logging.LevelInfo, nil
	}
	level, err := logging.LevelFromString(strings.ToLower(s))
	if err != nil {
		return logging.LevelInfo, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

func parseFormat(s string) (logging.LogFormat, error) {
	switch strings.ToLower(s) {
	case "", FormatColor:
		return logging.ColorizedOutput, nil
	case FormatPlain:
		return logging.PlaintextOutput, nil
	case FormatJSON:
		return logging.JSONOutput, nil
	default:
		return logging.ColorizedOutput, fmt.Errorf("invalid log format %q", s)
	}
}
