// Package rconfig loads and validates the TOML configuration a relorm
// application bootstraps a Database from. Grounded on Pieczasz-smf's use of
// github.com/BurntSushi/toml for config parsing and on
// github.com/go-playground/validator/v10 for the struct-tag validation
// style seen in xaas-cloud-genai-toolbox.
package rconfig

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	"github.com/relorm/relorm/driver"
	"github.com/relorm/relorm/logger"
)

// Config is the top-level shape of a relorm TOML config file.
type Config struct {
	Driver   string     `toml:"driver" validate:"required,oneof=sqlite postgres"`
	DSN      string     `toml:"dsn" validate:"required"`
	LogLevel string     `toml:"log_level" validate:"omitempty,oneof=none error warn info debug"`
	Pool     PoolConfig `toml:"pool"`
}

// PoolConfig bounds connection-level resource use. relorm itself holds one
// driver.Conn per Database, but a driver package may use these to size an
// underlying database/sql connection pool.
type PoolConfig struct {
	MaxOpenConns int           `toml:"max_open_conns" validate:"gte=0"`
	MaxIdleConns int           `toml:"max_idle_conns" validate:"gte=0"`
	ConnLifetime time.Duration `toml:"conn_lifetime"`
}

var validate = validator.New()

// Load reads and validates a TOML config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rconfig: reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse validates and decodes raw TOML bytes into a Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, fmt.Errorf("rconfig: parsing TOML: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("rconfig: invalid config: %w", err)
	}
	return &cfg, nil
}

// DriverConfig projects the parsed config onto the driver.Config the
// registered driver.Open function expects.
func (c *Config) DriverConfig() driver.Config {
	return driver.Config{DSN: c.DSN}
}

// ParsedLogLevel parses the configured log level, defaulting to LevelWarn when
// unset.
func (c *Config) ParsedLogLevel() logger.LogLevel {
	switch c.LogLevel {
	case "none":
		return logger.LevelNone
	case "error":
		return logger.LevelError
	case "info":
		return logger.LevelInfo
	case "debug":
		return logger.LevelDebug
	case "warn", "":
		return logger.LevelWarn
	default:
		return logger.LevelWarn
	}
}
