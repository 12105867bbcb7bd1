package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/botforge/botforge/internal/database"
)

const maintenanceTimeout = 5 * time.Minute

// RegisterAllTasks returns the task registry keyed by the names used in
// the scheduler configuration.
func RegisterAllTasks(store database.Store, logger *slog.Logger) map[string]TaskFunc {
	return map[string]TaskFunc{
		"sql_maintenance": newSQLMaintenanceTask(store, logger),
	}
}

// newSQLMaintenanceTask compacts and re-analyzes the SQLite database.
func newSQLMaintenanceTask(store database.Store, logger *slog.Logger) TaskFunc {
	log := logger.With("task", "sql_maintenance")

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, maintenanceTimeout)
		defer cancel()

		if err := store.RunSQLMaintenance(ctx); err != nil {
			return err
		}
		log.InfoContext(ctx, "Database maintenance completed")
		return nil
	}
}
