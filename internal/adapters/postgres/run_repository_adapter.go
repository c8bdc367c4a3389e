package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"rent-monitor-service/internal/core/domain"
)

// PostgresRunRepositoryAdapter хранит записи о прогонах мониторинга.
type PostgresRunRepositoryAdapter struct {
	pool *pgxpool.Pool
}

func NewPostgresRunRepositoryAdapter(pool *pgxpool.Pool) (*PostgresRunRepositoryAdapter, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool cannot be nil")
	}
	return &PostgresRunRepositoryAdapter{pool: pool}, nil
}

func (a *PostgresRunRepositoryAdapter) SaveRunRecord(ctx context.Context, record domain.ScrapeRunRecord) error {
	_, err := a.pool.Exec(ctx,
		`INSERT INTO scrape_runs (id, mode, pages_visited, listings_seen, new_count,
		                          changed_count, removed_count, started_at, ended_at, stop_reason)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		record.ID, string(record.Mode), record.PagesVisited, record.ListingsSeen, record.NewCount,
		record.ChangedCount, record.RemovedCount, record.StartedAt, record.EndedAt, string(record.StopReason),
	)
	if err != nil {
		return fmt.Errorf("PostgresRunRepositoryAdapter: failed to save run record: %w", err)
	}
	return nil
}

func (a *PostgresRunRepositoryAdapter) ListRecentRuns(ctx context.Context, limit int) ([]domain.ScrapeRunRecord, error) {
	rows, err := a.pool.Query(ctx,
		`SELECT id, mode, pages_visited, listings_seen, new_count, changed_count,
		        removed_count, started_at, ended_at, stop_reason
		 FROM scrape_runs ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("PostgresRunRepositoryAdapter: failed to query recent runs: %w", err)
	}
	defer rows.Close()

	var records []domain.ScrapeRunRecord
	for rows.Next() {
		var r domain.ScrapeRunRecord
		var mode, stopReason string
		if err := rows.Scan(
			&r.ID, &mode, &r.PagesVisited, &r.ListingsSeen, &r.NewCount, &r.ChangedCount,
			&r.RemovedCount, &r.StartedAt, &r.EndedAt, &stopReason,
		); err != nil {
			return nil, fmt.Errorf("PostgresRunRepositoryAdapter: failed to scan run record: %w", err)
		}
		r.Mode = domain.RunMode(mode)
		r.StopReason = domain.StopReason(stopReason)
		records = append(records, r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("PostgresRunRepositoryAdapter: error during runs iteration: %w", err)
	}

	return records, nil
}
