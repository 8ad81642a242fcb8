// Package storage holds the State backends campaigns persist into.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"crowdfundr/sdk"
)

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Backend is a State that owns a connection.
type Backend interface {
	sdk.State
	Ping(ctx context.Context) error
	Close() error
}

type Options struct {
	Driver         string
	SQLitePath     string
	DatabaseURL    string
	RedisURL       string
	MemorySnapshot string
	// ConnectRetries bounds the attempts for network backends, 0 means a single try.
	ConnectRetries int
}

// Open picks the backend named by opts.Driver. Network backends are retried with
// exponential backoff while the server comes up.
func Open(ctx context.Context, opts Options, log *zap.Logger) (Backend, error) {
	if log == nil {
		log = zap.NewNop()
	}
	switch opts.Driver {
	case "", DriverMemory:
		if opts.MemorySnapshot == "" {
			return NewMemory(), nil
		}
		return OpenMemory(opts.MemorySnapshot)
	case DriverSQLite:
		return OpenSQLite(opts.SQLitePath, log)
	case DriverPostgres:
		return withRetry(ctx, opts, log, func() (Backend, error) {
			return OpenPostgres(ctx, opts.DatabaseURL, log)
		})
	case DriverRedis:
		return withRetry(ctx, opts, log, func() (Backend, error) {
			return OpenRedis(ctx, opts.RedisURL)
		})
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}

func withRetry(ctx context.Context, opts Options, log *zap.Logger, open func() (Backend, error)) (Backend, error) {
	var backend Backend
	operation := func() error {
		b, err := open()
		if err != nil {
			return err
		}
		backend = b
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 2 * time.Minute
	retries := opts.ConnectRetries
	if retries < 0 {
		retries = 0
	}
	err := backoff.RetryNotify(
		operation,
		backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx),
		func(err error, d time.Duration) {
			log.Warn("store connect attempt failed",
				zap.String("driver", opts.Driver),
				zap.Error(err),
				zap.Duration("backoff", d))
		},
	)
	if err != nil {
		log.Error("store unavailable", zap.String("driver", opts.Driver), zap.Error(err))
		return nil, fmt.Errorf("open %s store: %w", opts.Driver, err)
	}
	log.Info("store connected", zap.String("driver", opts.Driver))
	return backend, nil
}
