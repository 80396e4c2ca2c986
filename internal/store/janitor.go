package store

import (
	"context"
	"log/slog"
	"time"
)

// StartJanitor runs a background goroutine that periodically purges
// journal rows older than the retention window. Pending directives and
// open connections survive regardless of age.
func StartJanitor(ctx context.Context, repo Repository, retention, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("journal janitor started", "interval", interval, "retention", retention)

		for {
			select {
			case <-ticker.C:
				purge(ctx, repo, retention)
			case <-ctx.Done():
				slog.Info("journal janitor shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func purge(ctx context.Context, repo Repository, retention time.Duration) {
	cutoff := time.Now().Add(-retention)
	deleted, err := repo.PurgeBefore(ctx, cutoff)
	if err != nil {
		slog.Error("journal purge failed", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("journal purge completed", "rows_deleted", deleted, "cutoff", cutoff)
	}
}
