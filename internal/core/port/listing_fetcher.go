package port

import (
	"context"

	"rent-monitor-service/internal/core/domain"
)

// ListingFetcherPort - исходящий порт к источнику объявлений.
// Реализация (HTTP-адаптер) возвращает партию записей одной страницы выдачи
// или одну из ошибок доменной таксономии: domain.ErrBlocked,
// domain.ErrRateLimited, domain.ErrTransient, domain.ErrEmptyPage.
// Страницы нумеруются с 1.
type ListingFetcherPort interface {
	FetchPage(ctx context.Context, page int) ([]domain.ListingRecord, error)
}
