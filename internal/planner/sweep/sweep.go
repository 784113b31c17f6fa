// Package sweep removes expired key-value entries in the background.
package sweep

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Sweeper deletes expired entries. Both KV backends implement it.
type Sweeper interface {
	SweepExpired(ctx context.Context) error
}

// Start sweeps once immediately and then on every tick until ctx is
// cancelled. It blocks, so callers run it in a goroutine.
func Start(ctx context.Context, s Sweeper, interval time.Duration) {
	Once(ctx, s)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			Once(ctx, s)
		}
	}
}

// Once runs a single sweep and logs failures at debug level.
func Once(ctx context.Context, s Sweeper) {
	if err := s.SweepExpired(ctx); err != nil && ctx.Err() == nil {
		log.Debug().Err(err).Msg("kv sweep failed")
	}
}
