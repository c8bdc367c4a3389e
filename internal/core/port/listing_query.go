package port

import (
	"context"

	"rent-monitor-service/internal/core/domain"
)

// ListingQueryFilters - параметры поиска для читающей поверхности.
// Нулевые значения означают отсутствие ограничения.
type ListingQueryFilters struct {
	MinPrice   int
	MaxPrice   int
	MinRooms   float64
	MaxRooms   float64
	Location   string
	ActiveOnly bool
}

// ListingQueryPort - читающий порт для REST-поверхности.
// Бизнес-логики за ним нет, только выборки.
type ListingQueryPort interface {
	FindListings(ctx context.Context, filters ListingQueryFilters, limit, offset int) ([]domain.Listing, int, error)
	GetListingByID(ctx context.Context, listingID string) (*domain.Listing, error)
	GetPriceHistory(ctx context.Context, listingID string, limit int) ([]domain.PriceObservation, error)
}
