// Package timeouts holds the request-level deadlines handlers put around
// store calls. The moderation core itself takes no timeouts; the HTTP layer
// imposes them.
//
//   - Ping: health checks
//   - Short: single-document reads
//   - Medium: list queries and single transitions
//   - Batch: mass actions (one transition per item)
package timeouts

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Defaults used until Configure is called.
const (
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultMedium = 10 * time.Second
	DefaultBatch  = 60 * time.Second
)

var (
	mu     sync.RWMutex
	ping   = DefaultPing
	short  = DefaultShort
	medium = DefaultMedium
	batch  = DefaultBatch
)

func Ping() time.Duration   { mu.RLock(); defer mu.RUnlock(); return ping }
func Short() time.Duration  { mu.RLock(); defer mu.RUnlock(); return short }
func Medium() time.Duration { mu.RLock(); defer mu.RUnlock(); return medium }
func Batch() time.Duration  { mu.RLock(); defer mu.RUnlock(); return batch }

// Config overrides defaults. Zero values keep the current value.
type Config struct {
	Ping   time.Duration
	Short  time.Duration
	Medium time.Duration
	Batch  time.Duration
}

// Configure applies cfg. Call once at startup, before handlers are built.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	if cfg.Ping > 0 {
		ping = cfg.Ping
	}
	if cfg.Short > 0 {
		short = cfg.Short
	}
	if cfg.Medium > 0 {
		medium = cfg.Medium
	}
	if cfg.Batch > 0 {
		batch = cfg.Batch
	}
}

// Reset restores the defaults. Tests use it.
func Reset() {
	Configure(Config{Ping: DefaultPing, Short: DefaultShort, Medium: DefaultMedium, Batch: DefaultBatch})
}

// WithTimeout is context.WithTimeout whose cancel logs a warning when the
// deadline was what ended the operation.
//
//	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "claims mass action")
//	defer cancel()
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if ctx.Err() == context.DeadlineExceeded && log != nil {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout),
			)
		}
		cancel()
	}
}
