package port

import (
	"context"
	"time"

	"rent-monitor-service/internal/core/domain"
)

// ListingStoragePort - исходящий порт к хранилищу каталога.
type ListingStoragePort interface {
	// GetKnownListingPrices возвращает карту "известный ID -> текущая цена"
	// по всем объявлениям (включая убранные с публикации). Одновременно
	// служит множеством известных ID для diff-движка и источником старых цен.
	GetKnownListingPrices(ctx context.Context) (map[string]int, error)

	// GetTotalCount - общее число объявлений в каталоге. Используется
	// охранным условием выбора режима прогона.
	GetTotalCount(ctx context.Context) (int, error)

	// UpsertListing создает или обновляет объявление. Каждое объявление
	// фиксируется независимо: ошибка одной записи не откатывает остальные.
	UpsertListing(ctx context.Context, listing domain.Listing) error

	// AppendPriceObservation дописывает точку в историю цен.
	AppendPriceObservation(ctx context.Context, obs domain.PriceObservation) error

	// MarkUnseenRemoved переводит в статус removed все активные объявления,
	// ID которых не встретились в текущем прогоне. Идемпотентна: уже
	// убранные объявления не затрагиваются. Возвращает снятые с публикации
	// записи - по ним публикуются события removed.
	MarkUnseenRemoved(ctx context.Context, seenIDs map[string]struct{}, at time.Time) ([]domain.ListingRecord, error)

	// MarkRemoved переводит одно объявление в removed (идемпотентно).
	MarkRemoved(ctx context.Context, listingID string, at time.Time) error
}
