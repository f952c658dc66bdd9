package store

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// RunSweeper deletes sessions idle for longer than ttl every interval until
// ctx is cancelled. onSwept, if set, receives the count of each pass.
func RunSweeper(ctx context.Context, s Sweeper, interval, ttl time.Duration, onSwept func(int)) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := s.Sweep(ctx, now.Add(-ttl))
			if err != nil {
				log.Warn().Err(err).Msg("sweep sessions")
				continue
			}
			if n > 0 {
				log.Info().Int("removed", n).Msg("swept idle sessions")
			}
			if onSwept != nil {
				onSwept(n)
			}
		}
	}
}
