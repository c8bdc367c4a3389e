package listingapi

import (
	"encoding/json"
	"time"
)

// feedPageDTO - структура для разбора одной страницы фида.
// Элементы держим сырыми, чтобы проверить каждый по схеме до маппинга.
type feedPageDTO struct {
	Items      []json.RawMessage `json:"items"`
	TotalItems int               `json:"total_items"`
	Page       int               `json:"page"`
	TotalPages int               `json:"total_pages"`
}

// feedItemDTO точно соответствует JSON-схеме listing-record/v1.json
type feedItemDTO struct {
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Price    int        `json:"price"`
	Rooms    float64    `json:"rooms"`
	AreaSqm  int        `json:"area_sqm"`
	Region   string     `json:"region"`
	City     string     `json:"city"`
	SubArea  string     `json:"sub_area"`
	AdLink   string     `json:"ad_link"`
	ImageURL string     `json:"image_url"`
	ListedAt *time.Time `json:"listed_at,omitempty"`
}
