package domain

import "time"

const (
	StatusActive  = "active"
	StatusRemoved = "removed"
)

// Listing - это основная сущность каталога: одно объявление об аренде,
// идентифицируемое стабильным внешним ID источника.
// Соответствует таблице `listings`.
type Listing struct {
	ID        string
	Title     string
	Price     int
	Rooms     float64
	AreaSqm   int
	Region    string
	City      string
	SubArea   string
	AdLink    string
	ImageURL  string
	Status    string
	FirstSeen time.Time
	LastSeen  time.Time
}

// ListingRecord - "сырая" запись, полученная от источника за один проход страницы.
// Еще не сверена с базой: не знает, новая она или уже известная.
type ListingRecord struct {
	ID       string
	Title    string
	Price    int
	Rooms    float64
	AreaSqm  int
	Region   string
	City     string
	SubArea  string
	AdLink   string
	ImageURL string
	ListedAt time.Time
}

// ToListing переводит запись источника в сущность каталога со статусом active.
func (r ListingRecord) ToListing(observedAt time.Time) Listing {
	return Listing{
		ID:        r.ID,
		Title:     r.Title,
		Price:     r.Price,
		Rooms:     r.Rooms,
		AreaSqm:   r.AreaSqm,
		Region:    r.Region,
		City:      r.City,
		SubArea:   r.SubArea,
		AdLink:    r.AdLink,
		ImageURL:  r.ImageURL,
		Status:    StatusActive,
		FirstSeen: observedAt,
		LastSeen:  observedAt,
	}
}

// PriceObservation - неизменяемая запись истории цен.
// Append-only, упорядочена по ObservedAt.
type PriceObservation struct {
	ListingID  string
	Price      int
	ObservedAt time.Time
}
