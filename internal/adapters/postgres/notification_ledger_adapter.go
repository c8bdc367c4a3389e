package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"rent-monitor-service/internal/core/domain"
)

// PostgresNotificationLedgerAdapter - журнал доставленных уведомлений.
// Первичный ключ (recipient_id, listing_id, event_type) и ON CONFLICT DO NOTHING
// делают фиксацию идемпотентной на уровне базы.
type PostgresNotificationLedgerAdapter struct {
	pool *pgxpool.Pool
}

func NewPostgresNotificationLedgerAdapter(pool *pgxpool.Pool) (*PostgresNotificationLedgerAdapter, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool cannot be nil")
	}
	return &PostgresNotificationLedgerAdapter{pool: pool}, nil
}

func (a *PostgresNotificationLedgerAdapter) HasNotified(ctx context.Context, recipientID, listingID string, eventType domain.EventType) (bool, error) {
	var exists bool
	err := a.pool.QueryRow(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM notification_ledger
		     WHERE recipient_id = $1 AND listing_id = $2 AND event_type = $3
		 )`,
		recipientID, listingID, string(eventType),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("PostgresNotificationLedgerAdapter: failed to check ledger: %w", err)
	}
	return exists, nil
}

func (a *PostgresNotificationLedgerAdapter) RecordNotified(ctx context.Context, recipientID, listingID string, eventType domain.EventType, at time.Time) error {
	_, err := a.pool.Exec(ctx,
		`INSERT INTO notification_ledger (recipient_id, listing_id, event_type, notified_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (recipient_id, listing_id, event_type) DO NOTHING`,
		recipientID, listingID, string(eventType), at,
	)
	if err != nil {
		return fmt.Errorf("PostgresNotificationLedgerAdapter: failed to record notification: %w", err)
	}
	return nil
}
