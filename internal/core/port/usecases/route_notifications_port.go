package usecases

import (
	"context"

	"rent-monitor-service/internal/core/domain"
)

// RouteNotificationsUseCasePort - маршрутизация diff-событий в уведомления.
// Возвращает число отправленных сообщений.
type RouteNotificationsUseCasePort interface {
	Route(ctx context.Context, events []domain.ListingEvent) (int, error)
}
