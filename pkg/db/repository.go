package db

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repoLogPrefix = "db:repository"

// Repository provides access to mirrored rows.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveRowsParams holds parameters for SaveRows.
type SaveRowsParams struct {
	Source string
	Site   string
	Rows   []json.RawMessage
}

// SaveRows replaces every row stored under params.Source with params.Rows in one
// transaction and returns the number of rows written.
func (r *Repository) SaveRows(ctx context.Context, params SaveRowsParams) (int, error) {
	if params.Source == "" {
		return 0, fmt.Errorf("%s - source is required", repoLogPrefix)
	}
	slog.Info(fmt.Sprintf("%s - SaveRows source=%s rows=%d", repoLogPrefix, params.Source, len(params.Rows)))

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s - failed to begin transaction: %w", repoLogPrefix, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM zeroframe_mirror_rows WHERE source = $1`, params.Source); err != nil {
		return 0, fmt.Errorf("%s - failed to clear source %s: %w", repoLogPrefix, params.Source, err)
	}

	batch := &pgx.Batch{}
	for i, row := range params.Rows {
		if !json.Valid(row) {
			return 0, fmt.Errorf("%s - row %d of %s is not valid JSON", repoLogPrefix, i, params.Source)
		}
		batch.Queue(
			`INSERT INTO zeroframe_mirror_rows (source, site, position, data) VALUES ($1, $2, $3, $4)`,
			params.Source, params.Site, i, string(row))
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return 0, fmt.Errorf("%s - failed to insert rows: %w", repoLogPrefix, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("%s - failed to commit: %w", repoLogPrefix, err)
	}
	return len(params.Rows), nil
}

// ListRows returns the rows stored under source in their original order.
func (r *Repository) ListRows(ctx context.Context, source string) ([]MirrorRow, error) {
	slog.Debug(fmt.Sprintf("%s - ListRows source=%s", repoLogPrefix, source))

	rows, err := r.pool.Query(ctx,
		`SELECT id, source, site, position, data, created
		 FROM zeroframe_mirror_rows
		 WHERE source = $1
		 ORDER BY position`, source)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to query rows: %w", repoLogPrefix, err)
	}
	defer rows.Close()

	var out []MirrorRow
	for rows.Next() {
		var m MirrorRow
		var data []byte
		if err := rows.Scan(&m.ID, &m.Source, &m.Site, &m.Position, &data, &m.Created); err != nil {
			return nil, fmt.Errorf("%s - failed to scan row: %w", repoLogPrefix, err)
		}
		m.Data = data
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListSources summarizes every stored source label.
func (r *Repository) ListSources(ctx context.Context) ([]SourceSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT source, max(site), count(*)::int, max(created)
		 FROM zeroframe_mirror_rows
		 GROUP BY source
		 ORDER BY source`)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to query sources: %w", repoLogPrefix, err)
	}
	defer rows.Close()

	var out []SourceSummary
	for rows.Next() {
		var s SourceSummary
		if err := rows.Scan(&s.Source, &s.Site, &s.Rows, &s.Updated); err != nil {
			return nil, fmt.Errorf("%s - failed to scan source: %w", repoLogPrefix, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// DeleteSource removes every row stored under source.
func (r *Repository) DeleteSource(ctx context.Context, source string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM zeroframe_mirror_rows WHERE source = $1`, source)
	if err != nil {
		return 0, fmt.Errorf("%s - failed to delete source %s: %w", repoLogPrefix, source, err)
	}
	return tag.RowsAffected(), nil
}
