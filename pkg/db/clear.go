package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

const clearLogPrefix = "db:clear"

// ClearMirror truncates the mirror table. The schema is preserved.
func ClearMirror(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info(fmt.Sprintf("%s - Clearing mirror rows", clearLogPrefix))

	if _, err := pool.Exec(ctx, `TRUNCATE TABLE zeroframe_mirror_rows RESTART IDENTITY`); err != nil {
		return fmt.Errorf("%s - truncate failed: %w", clearLogPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Mirror cleared", clearLogPrefix))
	return nil
}
