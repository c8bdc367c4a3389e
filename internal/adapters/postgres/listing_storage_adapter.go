package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"rent-monitor-service/internal/core/domain"
)

// PostgresListingStorageAdapter хранит каталог объявлений и историю цен.
type PostgresListingStorageAdapter struct {
	pool *pgxpool.Pool
}

// NewPostgresListingStorageAdapter - конструктор
func NewPostgresListingStorageAdapter(pool *pgxpool.Pool) (*PostgresListingStorageAdapter, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool cannot be nil")
	}
	return &PostgresListingStorageAdapter{pool: pool}, nil
}

// GetKnownListingPrices возвращает карту "ID -> текущая цена" по всему каталогу.
// Убранные с публикации объявления включаются: их повторное появление
// не должно считаться новым объявлением.
func (a *PostgresListingStorageAdapter) GetKnownListingPrices(ctx context.Context) (map[string]int, error) {
	rows, err := a.pool.Query(ctx, `SELECT id, price FROM listings`)
	if err != nil {
		return nil, fmt.Errorf("PostgresListingStorageAdapter: failed to query known prices: %w", err)
	}
	defer rows.Close()

	prices := make(map[string]int)
	for rows.Next() {
		var id string
		var price int
		if err := rows.Scan(&id, &price); err != nil {
			return nil, fmt.Errorf("PostgresListingStorageAdapter: failed to scan known price: %w", err)
		}
		prices[id] = price
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("PostgresListingStorageAdapter: error during known prices iteration: %w", err)
	}

	return prices, nil
}

func (a *PostgresListingStorageAdapter) GetTotalCount(ctx context.Context) (int, error) {
	var count int
	err := a.pool.QueryRow(ctx, `SELECT COUNT(*) FROM listings`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("PostgresListingStorageAdapter: failed to count listings: %w", err)
	}
	return count, nil
}

// UpsertListing создает или обновляет объявление.
// first_seen при обновлении не трогается, last_seen всегда сдвигается вперед.
func (a *PostgresListingStorageAdapter) UpsertListing(ctx context.Context, listing domain.Listing) error {
	_, err := a.pool.Exec(ctx,
		`INSERT INTO listings (id, title, price, rooms, area_sqm, region, city, sub_area,
		                       ad_link, image_url, status, first_seen, last_seen)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (id) DO UPDATE SET
		     title     = EXCLUDED.title,
		     price     = EXCLUDED.price,
		     rooms     = EXCLUDED.rooms,
		     area_sqm  = EXCLUDED.area_sqm,
		     region    = EXCLUDED.region,
		     city      = EXCLUDED.city,
		     sub_area  = EXCLUDED.sub_area,
		     ad_link   = EXCLUDED.ad_link,
		     image_url = EXCLUDED.image_url,
		     status    = EXCLUDED.status,
		     last_seen = EXCLUDED.last_seen`,
		listing.ID, listing.Title, listing.Price, listing.Rooms, listing.AreaSqm,
		listing.Region, listing.City, listing.SubArea, listing.AdLink, listing.ImageURL,
		listing.Status, listing.FirstSeen, listing.LastSeen,
	)
	if err != nil {
		return fmt.Errorf("PostgresListingStorageAdapter: failed to upsert listing %s: %w", listing.ID, err)
	}
	return nil
}

func (a *PostgresListingStorageAdapter) AppendPriceObservation(ctx context.Context, obs domain.PriceObservation) error {
	_, err := a.pool.Exec(ctx,
		`INSERT INTO price_history (listing_id, price, observed_at) VALUES ($1, $2, $3)`,
		obs.ListingID, obs.Price, obs.ObservedAt,
	)
	if err != nil {
		return fmt.Errorf("PostgresListingStorageAdapter: failed to append price observation for %s: %w", obs.ListingID, err)
	}
	return nil
}

// MarkUnseenRemoved переводит в removed все активные объявления вне множества
// увиденных. Фильтр по статусу active делает операцию идемпотентной: повторный
// вызов с тем же множеством не переведет ни одной строки.
func (a *PostgresListingStorageAdapter) MarkUnseenRemoved(ctx context.Context, seenIDs map[string]struct{}, at time.Time) ([]domain.ListingRecord, error) {
	ids := make([]string, 0, len(seenIDs))
	for id := range seenIDs {
		ids = append(ids, id)
	}

	rows, err := a.pool.Query(ctx,
		`UPDATE listings
		 SET status = 'removed', last_seen = $2
		 WHERE status = 'active' AND NOT (id = ANY($1))
		 RETURNING id, title, price`,
		ids, at,
	)
	if err != nil {
		return nil, fmt.Errorf("PostgresListingStorageAdapter: failed to mark unseen listings removed: %w", err)
	}
	defer rows.Close()

	var removed []domain.ListingRecord
	for rows.Next() {
		var rec domain.ListingRecord
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.Price); err != nil {
			return nil, fmt.Errorf("PostgresListingStorageAdapter: failed to scan removed listing: %w", err)
		}
		removed = append(removed, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("PostgresListingStorageAdapter: failed to read removed listings: %w", err)
	}
	return removed, nil
}

func (a *PostgresListingStorageAdapter) MarkRemoved(ctx context.Context, listingID string, at time.Time) error {
	_, err := a.pool.Exec(ctx,
		`UPDATE listings SET status = 'removed', last_seen = $2 WHERE id = $1 AND status = 'active'`,
		listingID, at,
	)
	if err != nil {
		return fmt.Errorf("PostgresListingStorageAdapter: failed to mark listing %s removed: %w", listingID, err)
	}
	return nil
}
