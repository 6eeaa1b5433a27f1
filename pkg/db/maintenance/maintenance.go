package maintenance

import (
	"context"
	"log/slog"
	"time"

	"radarcov/pkg/db"
	"radarcov/pkg/store"
)

// LastPruneKey records when runs were last pruned.
const LastPruneKey = "maintenance_last_prune"

// Run executes all maintenance tasks. It blocks until completion.
// Failures are logged and never stop startup.
func Run(ctx context.Context, s store.StateStore, d *db.DB, retention time.Duration) error {
	slog.Info("Starting database maintenance...")

	if retention <= 0 {
		slog.Debug("Run retention disabled, skipping prune")
		return nil
	}

	if err := pruneRuns(ctx, s, d, retention); err != nil {
		slog.Error("Run pruning failed", "error", err)
	} else {
		slog.Info("Run pruning completed")
	}
	return nil
}

// pruneRuns removes coverage runs older than retention.
func pruneRuns(ctx context.Context, s store.StateStore, d *db.DB, retention time.Duration) error {
	n, err := d.PruneRuns(retention)
	if err != nil {
		return err
	}
	if n > 0 {
		slog.Info("Pruned old coverage runs", "count", n, "retention", retention)
	}
	return s.SetState(ctx, LastPruneKey, time.Now().UTC().Format(time.RFC3339))
}
