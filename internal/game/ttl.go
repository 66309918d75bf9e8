package game

import (
	"context"
	"log/slog"
	"time"
)

// CleanupCallback is called for every game discarded by the TTL worker.
type CleanupCallback func(key Key)

// StartTTLWorker runs a background goroutine that periodically discards games
// idle for longer than ttl.
func StartTTLWorker(ctx context.Context, r *Registry, ttl, interval time.Duration, onCleanup CleanupCallback) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Game TTL worker started", "interval", interval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				sweep(r, ttl, onCleanup)
			case <-ctx.Done():
				slog.Info("Game TTL worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func sweep(r *Registry, ttl time.Duration, onCleanup CleanupCallback) int {
	expired := r.SweepIdle(ttl)
	if len(expired) == 0 {
		return 0
	}

	for _, k := range expired {
		slog.Info("Discarding idle game", "user_id", k.UserID, "session_id", k.SessionID)
		if onCleanup != nil {
			onCleanup(k)
		}
	}
	slog.Info("Game TTL sweep completed", "discarded", len(expired), "remaining", r.Len())
	return len(expired)
}
