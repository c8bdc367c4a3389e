package port

import (
	"context"
	"time"

	"rent-monitor-service/internal/core/domain"
)

// NotificationLedgerPort - журнал доставленных уведомлений.
// Гарантия at-most-once строится на нем: перед отправкой тройка
// (получатель, объявление, тип события) проверяется, после отправки - фиксируется.
type NotificationLedgerPort interface {
	HasNotified(ctx context.Context, recipientID, listingID string, eventType domain.EventType) (bool, error)
	RecordNotified(ctx context.Context, recipientID, listingID string, eventType domain.EventType, at time.Time) error
}

// DigestRepositoryPort - очередь отложенных уведомлений для дневного дайджеста.
type DigestRepositoryPort interface {
	AddDigestEntry(ctx context.Context, entry domain.DigestEntry) error
	ListPendingDigestEntries(ctx context.Context) ([]domain.DigestEntry, error)
	MarkDigestDelivered(ctx context.Context, entryIDs []int64, at time.Time) error
}
