package logger

import (
	"go.uber.org/zap/zapcore"
)

// Config is embedded in the daemon's Config and controls how the registry,
// stores, and sync loop emit log output.
type Config struct {
	Format string        `toml:"format"`
	Level  zapcore.Level `toml:"level"`
}

// NewConfig returns a new instance of Config with defaults.
func NewConfig() Config {
	return Config{
		Format: "auto",
		Level:  zapcore.InfoLevel,
	}
}
