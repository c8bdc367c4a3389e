package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rent-monitor-service/internal/core/domain"
	"rent-monitor-service/internal/core/port"
)

// PostgresListingQueryAdapter - читающая сторона каталога для REST-поверхности.
type PostgresListingQueryAdapter struct {
	pool *pgxpool.Pool
}

func NewPostgresListingQueryAdapter(pool *pgxpool.Pool) (*PostgresListingQueryAdapter, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool cannot be nil")
	}
	return &PostgresListingQueryAdapter{pool: pool}, nil
}

const listingColumns = `id, title, price, rooms, area_sqm, region, city, sub_area,
	ad_link, image_url, status, first_seen, last_seen`

// FindListings возвращает страницу каталога и общее число совпадений.
func (a *PostgresListingQueryAdapter) FindListings(ctx context.Context, filters port.ListingQueryFilters, limit, offset int) ([]domain.Listing, int, error) {
	where, args := buildListingWhere(filters)

	countQuery := "SELECT COUNT(*) FROM listings" + where
	var total int
	if err := a.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("PostgresListingQueryAdapter: failed to count listings: %w", err)
	}

	query := fmt.Sprintf(
		"SELECT %s FROM listings%s ORDER BY last_seen DESC LIMIT $%d OFFSET $%d",
		listingColumns, where, len(args)+1, len(args)+2,
	)
	args = append(args, limit, offset)

	rows, err := a.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("PostgresListingQueryAdapter: failed to query listings: %w", err)
	}
	defer rows.Close()

	var listings []domain.Listing
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, 0, err
		}
		listings = append(listings, listing)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("PostgresListingQueryAdapter: error during listings iteration: %w", err)
	}

	return listings, total, nil
}

func (a *PostgresListingQueryAdapter) GetListingByID(ctx context.Context, listingID string) (*domain.Listing, error) {
	row := a.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM listings WHERE id = $1", listingColumns),
		listingID,
	)
	listing, err := scanListing(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrListingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

func (a *PostgresListingQueryAdapter) GetPriceHistory(ctx context.Context, listingID string, limit int) ([]domain.PriceObservation, error) {
	rows, err := a.pool.Query(ctx,
		`SELECT listing_id, price, observed_at FROM price_history
		 WHERE listing_id = $1 ORDER BY observed_at ASC LIMIT $2`,
		listingID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("PostgresListingQueryAdapter: failed to query price history for %s: %w", listingID, err)
	}
	defer rows.Close()

	var history []domain.PriceObservation
	for rows.Next() {
		var obs domain.PriceObservation
		if err := rows.Scan(&obs.ListingID, &obs.Price, &obs.ObservedAt); err != nil {
			return nil, fmt.Errorf("PostgresListingQueryAdapter: failed to scan price observation: %w", err)
		}
		history = append(history, obs)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("PostgresListingQueryAdapter: error during price history iteration: %w", err)
	}

	return history, nil
}

// buildListingWhere собирает WHERE из ненулевых фильтров.
func buildListingWhere(filters port.ListingQueryFilters) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	add := func(condition string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if filters.MinPrice > 0 {
		add("price >= $%d", filters.MinPrice)
	}
	if filters.MaxPrice > 0 {
		add("price <= $%d", filters.MaxPrice)
	}
	if filters.MinRooms > 0 {
		add("rooms >= $%d", filters.MinRooms)
	}
	if filters.MaxRooms > 0 {
		add("rooms <= $%d", filters.MaxRooms)
	}
	if filters.Location != "" {
		pattern := "%" + strings.TrimSpace(filters.Location) + "%"
		args = append(args, pattern)
		idx := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(region ILIKE $%d OR city ILIKE $%d OR sub_area ILIKE $%d OR title ILIKE $%d)",
			idx, idx, idx, idx,
		))
	}
	if filters.ActiveOnly {
		conditions = append(conditions, "status = 'active'")
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func scanListing(row pgx.Row) (domain.Listing, error) {
	var l domain.Listing
	err := row.Scan(
		&l.ID, &l.Title, &l.Price, &l.Rooms, &l.AreaSqm,
		&l.Region, &l.City, &l.SubArea, &l.AdLink, &l.ImageURL,
		&l.Status, &l.FirstSeen, &l.LastSeen,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Listing{}, err
		}
		return domain.Listing{}, fmt.Errorf("PostgresListingQueryAdapter: failed to scan listing: %w", err)
	}
	return l, nil
}
