// Package config reads process settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"crowdfundr/storage"
)

const envPrefix = "CROWDFUNDR_"

type Config struct {
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	// Faucet enables the deposit route that mints ledger funds. Never on in production.
	Faucet bool `env:"FAUCET" envDefault:"false"`

	Store          string `env:"STORE" envDefault:"memory"`
	SQLitePath     string `env:"SQLITE_PATH" envDefault:"crowdfundr.db"`
	DatabaseURL    string `env:"DATABASE_URL"`
	RedisURL       string `env:"REDIS_URL"`
	MemorySnapshot string `env:"MEMORY_SNAPSHOT"`
	ConnectRetries int    `env:"CONNECT_RETRIES" envDefault:"5"`

	Log Log
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
	File   string `env:"LOG_FILE"`
}

// Load reads .env when present and parses CROWDFUNDR_* variables on top of the defaults.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load dotenv: %w", err)
	}
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Store = strings.ToLower(strings.TrimSpace(cfg.Store))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.HTTPAddr) == "" {
		return errors.New("HTTP_ADDR is required")
	}
	switch c.Store {
	case storage.DriverMemory:
	case storage.DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return errors.New("SQLITE_PATH is required for the sqlite store")
		}
	case storage.DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres store")
		}
	case storage.DriverRedis:
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required for the redis store")
		}
	default:
		return fmt.Errorf("unknown STORE %q", c.Store)
	}
	if c.ConnectRetries < 0 {
		return errors.New("CONNECT_RETRIES must not be negative")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("SHUTDOWN_TIMEOUT must be positive")
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown LOG_FORMAT %q", c.Log.Format)
	}
	return nil
}

// StoreOptions maps the store settings onto storage.Open.
func (c Config) StoreOptions() storage.Options {
	return storage.Options{
		Driver:         c.Store,
		SQLitePath:     c.SQLitePath,
		DatabaseURL:    c.DatabaseURL,
		RedisURL:       c.RedisURL,
		MemorySnapshot: c.MemorySnapshot,
		ConnectRetries: c.ConnectRetries,
	}
}
