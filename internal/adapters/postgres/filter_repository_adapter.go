package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rent-monitor-service/internal/core/domain"
)

// PostgresFilterRepositoryAdapter хранит фильтры получателей уведомлений.
type PostgresFilterRepositoryAdapter struct {
	pool *pgxpool.Pool
}

func NewPostgresFilterRepositoryAdapter(pool *pgxpool.Pool) (*PostgresFilterRepositoryAdapter, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool cannot be nil")
	}
	return &PostgresFilterRepositoryAdapter{pool: pool}, nil
}

const filterColumns = `id, recipient_id, name, min_price, max_price, min_rooms, max_rooms,
	min_area_sqm, max_area_sqm, location, enabled`

func (a *PostgresFilterRepositoryAdapter) ListEnabledFilters(ctx context.Context) ([]domain.RecipientFilter, error) {
	rows, err := a.pool.Query(ctx,
		fmt.Sprintf("SELECT %s FROM recipient_filters WHERE enabled = TRUE ORDER BY id", filterColumns),
	)
	if err != nil {
		return nil, fmt.Errorf("PostgresFilterRepositoryAdapter: failed to query enabled filters: %w", err)
	}
	defer rows.Close()

	return scanFilters(rows)
}

func (a *PostgresFilterRepositoryAdapter) ListFilters(ctx context.Context, recipientID string) ([]domain.RecipientFilter, error) {
	rows, err := a.pool.Query(ctx,
		fmt.Sprintf("SELECT %s FROM recipient_filters WHERE recipient_id = $1 ORDER BY id", filterColumns),
		recipientID,
	)
	if err != nil {
		return nil, fmt.Errorf("PostgresFilterRepositoryAdapter: failed to query filters for %s: %w", recipientID, err)
	}
	defer rows.Close()

	return scanFilters(rows)
}

// SaveFilter создает фильтр или обновляет существующий (по ID). Возвращает ID.
func (a *PostgresFilterRepositoryAdapter) SaveFilter(ctx context.Context, filter domain.RecipientFilter) (int64, error) {
	if filter.ID == 0 {
		var id int64
		err := a.pool.QueryRow(ctx,
			`INSERT INTO recipient_filters (recipient_id, name, min_price, max_price, min_rooms,
			                                max_rooms, min_area_sqm, max_area_sqm, location, enabled)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 RETURNING id`,
			filter.RecipientID, filter.Name, filter.MinPrice, filter.MaxPrice, filter.MinRooms,
			filter.MaxRooms, filter.MinAreaSqm, filter.MaxAreaSqm, filter.Location, filter.Enabled,
		).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("PostgresFilterRepositoryAdapter: failed to insert filter: %w", err)
		}
		return id, nil
	}

	tag, err := a.pool.Exec(ctx,
		`UPDATE recipient_filters
		 SET recipient_id = $2, name = $3, min_price = $4, max_price = $5, min_rooms = $6,
		     max_rooms = $7, min_area_sqm = $8, max_area_sqm = $9, location = $10, enabled = $11
		 WHERE id = $1`,
		filter.ID, filter.RecipientID, filter.Name, filter.MinPrice, filter.MaxPrice, filter.MinRooms,
		filter.MaxRooms, filter.MinAreaSqm, filter.MaxAreaSqm, filter.Location, filter.Enabled,
	)
	if err != nil {
		return 0, fmt.Errorf("PostgresFilterRepositoryAdapter: failed to update filter %d: %w", filter.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return 0, domain.ErrFilterNotFound
	}
	return filter.ID, nil
}

func (a *PostgresFilterRepositoryAdapter) DeleteFilter(ctx context.Context, filterID int64) error {
	tag, err := a.pool.Exec(ctx, `DELETE FROM recipient_filters WHERE id = $1`, filterID)
	if err != nil {
		return fmt.Errorf("PostgresFilterRepositoryAdapter: failed to delete filter %d: %w", filterID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrFilterNotFound
	}
	return nil
}

func scanFilters(rows pgx.Rows) ([]domain.RecipientFilter, error) {
	var filters []domain.RecipientFilter
	for rows.Next() {
		var f domain.RecipientFilter
		if err := rows.Scan(
			&f.ID, &f.RecipientID, &f.Name, &f.MinPrice, &f.MaxPrice, &f.MinRooms, &f.MaxRooms,
			&f.MinAreaSqm, &f.MaxAreaSqm, &f.Location, &f.Enabled,
		); err != nil {
			return nil, fmt.Errorf("PostgresFilterRepositoryAdapter: failed to scan filter: %w", err)
		}
		filters = append(filters, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("PostgresFilterRepositoryAdapter: error during filters iteration: %w", err)
	}
	return filters, nil
}
