package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"rent-monitor-service/internal/core/domain"
)

// PostgresDigestRepositoryAdapter - очередь отложенных уведомлений в БД.
// Переживает рестарт процесса: отложенное в дайджест не теряется.
type PostgresDigestRepositoryAdapter struct {
	pool *pgxpool.Pool
}

func NewPostgresDigestRepositoryAdapter(pool *pgxpool.Pool) (*PostgresDigestRepositoryAdapter, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool cannot be nil")
	}
	return &PostgresDigestRepositoryAdapter{pool: pool}, nil
}

func (a *PostgresDigestRepositoryAdapter) AddDigestEntry(ctx context.Context, entry domain.DigestEntry) error {
	_, err := a.pool.Exec(ctx,
		`INSERT INTO digest_entries (recipient_id, listing_id, title, event_type,
		                             old_price, new_price, ad_link, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.RecipientID, entry.ListingID, entry.Title, string(entry.EventType),
		entry.OldPrice, entry.NewPrice, entry.AdLink, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("PostgresDigestRepositoryAdapter: failed to add digest entry: %w", err)
	}
	return nil
}

func (a *PostgresDigestRepositoryAdapter) ListPendingDigestEntries(ctx context.Context) ([]domain.DigestEntry, error) {
	rows, err := a.pool.Query(ctx,
		`SELECT id, recipient_id, listing_id, title, event_type, old_price, new_price, ad_link, created_at
		 FROM digest_entries
		 WHERE delivered_at IS NULL
		 ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("PostgresDigestRepositoryAdapter: failed to query pending entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.DigestEntry
	for rows.Next() {
		var e domain.DigestEntry
		var eventType string
		if err := rows.Scan(
			&e.ID, &e.RecipientID, &e.ListingID, &e.Title, &eventType,
			&e.OldPrice, &e.NewPrice, &e.AdLink, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("PostgresDigestRepositoryAdapter: failed to scan digest entry: %w", err)
		}
		e.EventType = domain.EventType(eventType)
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("PostgresDigestRepositoryAdapter: error during entries iteration: %w", err)
	}

	return entries, nil
}

func (a *PostgresDigestRepositoryAdapter) MarkDigestDelivered(ctx context.Context, entryIDs []int64, at time.Time) error {
	if len(entryIDs) == 0 {
		return nil
	}
	_, err := a.pool.Exec(ctx,
		`UPDATE digest_entries SET delivered_at = $2 WHERE id = ANY($1) AND delivered_at IS NULL`,
		entryIDs, at,
	)
	if err != nil {
		return fmt.Errorf("PostgresDigestRepositoryAdapter: failed to mark entries delivered: %w", err)
	}
	return nil
}
