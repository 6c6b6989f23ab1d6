package widget

import (
	"context"
	"log/slog"
	"time"
)

// StartSweeper runs a goroutine that expires idle views every interval until
// ctx is cancelled.
func StartSweeper(ctx context.Context, reg *Registry, interval time.Duration, log *slog.Logger) {
	if interval <= 0 {
		return
	}
	go sweepLoop(ctx, reg, interval, log)
}

func sweepLoop(ctx context.Context, reg *Registry, interval time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("view sweeper stopped")
			return
		case <-ticker.C:
			if n := reg.Sweep(); n > 0 {
				log.Info("expired idle views", "removed", n, "views", reg.Len())
			}
		}
	}
}
