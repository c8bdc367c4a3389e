package port

import (
	"context"

	"rent-monitor-service/internal/core/domain"
)

// FilterRepositoryPort - доступ к фильтрам получателей.
type FilterRepositoryPort interface {
	ListEnabledFilters(ctx context.Context) ([]domain.RecipientFilter, error)
	ListFilters(ctx context.Context, recipientID string) ([]domain.RecipientFilter, error)
	SaveFilter(ctx context.Context, filter domain.RecipientFilter) (int64, error)
	DeleteFilter(ctx context.Context, filterID int64) error
}
