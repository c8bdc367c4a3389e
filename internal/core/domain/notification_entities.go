package domain

import "time"

// EventType - тип события по объявлению, которое может породить уведомление.
type EventType string

const (
	EventTypeNew         EventType = "new"
	EventTypePriceChange EventType = "price_change"
	EventTypeRemoved     EventType = "removed"
)

// ListingEvent - событие изменения каталога, публикуемое во внешнюю шину
// и маршрутизируемое в уведомления.
type ListingEvent struct {
	Type       EventType
	Record     ListingRecord
	OldPrice   int
	NewPrice   int
	ObservedAt time.Time
}

// DigestEntry - отложенное (сверх лимита) совпадение, ожидающее дневного дайджеста.
// Хранится в БД, чтобы рестарт процесса не терял отложенные уведомления.
type DigestEntry struct {
	ID          int64
	RecipientID string
	ListingID   string
	Title       string
	EventType   EventType
	OldPrice    int
	NewPrice    int
	AdLink      string
	CreatedAt   time.Time
}
