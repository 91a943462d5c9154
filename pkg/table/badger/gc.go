package badger

import (
	"context"
	"time"
)

// RunGC runs Badger value-log garbage collection on a fixed interval until
// the context is cancelled. Badger never reclaims value-log space on its
// own; long-running servers should start this in a goroutine.
func (s *Store) RunGC(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Rerun while GC keeps finding garbage; ErrNoRewrite means done.
			for s.db.RunValueLogGC(0.5) == nil {
			}
		}
	}
}
