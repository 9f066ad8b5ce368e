// Package timeouts holds the deadlines handlers put on database and storage
// calls. Values come from config at startup; the defaults suit a single
// MongoDB node and local file storage.
package timeouts

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Defaults
const (
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultMedium = 10 * time.Second
	DefaultLong   = 30 * time.Second
)

// Config is one set of deadlines. Zero fields keep their current value
// when passed to Configure.
type Config struct {
	Ping   time.Duration // health checks
	Short  time.Duration // single reads
	Medium time.Duration // writes and deletes
	Long   time.Duration // uploads to blob storage
}

func defaults() Config {
	return Config{
		Ping:   DefaultPing,
		Short:  DefaultShort,
		Medium: DefaultMedium,
		Long:   DefaultLong,
	}
}

var (
	mu      sync.RWMutex
	current = defaults()
)

// Ping returns the health check deadline.
func Ping() time.Duration { return Current().Ping }

// Short returns the deadline for single reads and lists.
func Short() time.Duration { return Current().Short }

// Medium returns the deadline for writes.
func Medium() time.Duration { return Current().Medium }

// Long returns the deadline for operations that move file bytes.
func Long() time.Duration { return Current().Long }

// Current returns the deadlines in effect.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Configure overrides the deadlines set (positive) in cfg.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	current = merge(current, cfg)
}

// Reset restores the defaults.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	current = defaults()
}

func merge(base, over Config) Config {
	pick := func(b, o time.Duration) time.Duration {
		if o > 0 {
			return o
		}
		return b
	}
	return Config{
		Ping:   pick(base.Ping, over.Ping),
		Short:  pick(base.Short, over.Short),
		Medium: pick(base.Medium, over.Medium),
		Long:   pick(base.Long, over.Long),
	}
}

// WithTimeout derives a context with the given deadline. The returned cancel
// logs a warning if the deadline was hit.
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if log != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout))
		}
		cancel()
	}
}
