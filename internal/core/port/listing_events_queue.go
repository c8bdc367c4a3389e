package port

import (
	"context"

	"rent-monitor-service/internal/core/domain"
)

// ListingEventsQueuePort - публикация событий каталога во внешнюю шину,
// для сторонних потребителей (аналитика, панель). Ошибка публикации
// логируется и не прерывает прогон.
type ListingEventsQueuePort interface {
	PublishListingEvent(ctx context.Context, event domain.ListingEvent) error
}
