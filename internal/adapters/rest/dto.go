package rest

import (
	"time"

	"rent-monitor-service/internal/core/domain"
)

// ListingDTO - объявление в ответах читающей поверхности.
type ListingDTO struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Price     int       `json:"price"`
	Rooms     float64   `json:"rooms"`
	AreaSqm   int       `json:"area_sqm"`
	Region    string    `json:"region,omitempty"`
	City      string    `json:"city,omitempty"`
	SubArea   string    `json:"sub_area,omitempty"`
	AdLink    string    `json:"ad_link,omitempty"`
	ImageURL  string    `json:"image_url,omitempty"`
	Status    string    `json:"status"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

func toListingDTO(l domain.Listing) ListingDTO {
	return ListingDTO{
		ID:        l.ID,
		Title:     l.Title,
		Price:     l.Price,
		Rooms:     l.Rooms,
		AreaSqm:   l.AreaSqm,
		Region:    l.Region,
		City:      l.City,
		SubArea:   l.SubArea,
		AdLink:    l.AdLink,
		ImageURL:  l.ImageURL,
		Status:    l.Status,
		FirstSeen: l.FirstSeen,
		LastSeen:  l.LastSeen,
	}
}

// ListingsPageDTO - страница каталога с общим числом совпадений.
type ListingsPageDTO struct {
	Items  []ListingDTO `json:"items"`
	Total  int          `json:"total"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

type PriceObservationDTO struct {
	Price      int       `json:"price"`
	ObservedAt time.Time `json:"observed_at"`
}

// FilterDTO - фильтр получателя в запросах и ответах.
// Nil-поля означают отсутствие ограничения.
type FilterDTO struct {
	ID          int64    `json:"id,omitempty"`
	RecipientID string   `json:"recipient_id"`
	Name        string   `json:"name,omitempty"`
	MinPrice    *int     `json:"min_price,omitempty"`
	MaxPrice    *int     `json:"max_price,omitempty"`
	MinRooms    *float64 `json:"min_rooms,omitempty"`
	MaxRooms    *float64 `json:"max_rooms,omitempty"`
	MinAreaSqm  *int     `json:"min_area_sqm,omitempty"`
	MaxAreaSqm  *int     `json:"max_area_sqm,omitempty"`
	Location    string   `json:"location,omitempty"`
	Enabled     bool     `json:"enabled"`
}

func toFilterDTO(f domain.RecipientFilter) FilterDTO {
	return FilterDTO{
		ID:          f.ID,
		RecipientID: f.RecipientID,
		Name:        f.Name,
		MinPrice:    f.MinPrice,
		MaxPrice:    f.MaxPrice,
		MinRooms:    f.MinRooms,
		MaxRooms:    f.MaxRooms,
		MinAreaSqm:  f.MinAreaSqm,
		MaxAreaSqm:  f.MaxAreaSqm,
		Location:    f.Location,
		Enabled:     f.Enabled,
	}
}

func (d FilterDTO) toDomain() domain.RecipientFilter {
	return domain.RecipientFilter{
		ID:          d.ID,
		RecipientID: d.RecipientID,
		Name:        d.Name,
		MinPrice:    d.MinPrice,
		MaxPrice:    d.MaxPrice,
		MinRooms:    d.MinRooms,
		MaxRooms:    d.MaxRooms,
		MinAreaSqm:  d.MinAreaSqm,
		MaxAreaSqm:  d.MaxAreaSqm,
		Location:    d.Location,
		Enabled:     d.Enabled,
	}
}

// RunDTO - запись о прогоне мониторинга.
type RunDTO struct {
	ID           string    `json:"id"`
	Mode         string    `json:"mode"`
	PagesVisited int       `json:"pages_visited"`
	ListingsSeen int       `json:"listings_seen"`
	NewCount     int       `json:"new_count"`
	ChangedCount int       `json:"changed_count"`
	RemovedCount int       `json:"removed_count"`
	StartedAt    time.Time `json:"started_at"`
	EndedAt      time.Time `json:"ended_at"`
	StopReason   string    `json:"stop_reason"`
}

func toRunDTO(r domain.ScrapeRunRecord) RunDTO {
	return RunDTO{
		ID:           r.ID.String(),
		Mode:         string(r.Mode),
		PagesVisited: r.PagesVisited,
		ListingsSeen: r.ListingsSeen,
		NewCount:     r.NewCount,
		ChangedCount: r.ChangedCount,
		RemovedCount: r.RemovedCount,
		StartedAt:    r.StartedAt,
		EndedAt:      r.EndedAt,
		StopReason:   string(r.StopReason),
	}
}
