package domain

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var foldCaser = cases.Fold()

// RecipientFilter - фильтр получателя уведомлений.
// Nil-поля означают отсутствие ограничения по этому признаку.
// У одного получателя может быть несколько фильтров; объявление проходит,
// если подходит хотя бы под один включенный фильтр.
type RecipientFilter struct {
	ID          int64
	RecipientID string
	Name        string
	MinPrice    *int
	MaxPrice    *int
	MinRooms    *float64
	MaxRooms    *float64
	MinAreaSqm  *int
	MaxAreaSqm  *int
	Location    string
	Enabled     bool
}

// Matches проверяет запись источника по всем заданным ограничениям фильтра.
func (f RecipientFilter) Matches(rec ListingRecord) bool {
	if f.MinPrice != nil && rec.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && rec.Price > *f.MaxPrice {
		return false
	}
	if f.MinRooms != nil && rec.Rooms < *f.MinRooms {
		return false
	}
	if f.MaxRooms != nil && rec.Rooms > *f.MaxRooms {
		return false
	}
	if f.MinAreaSqm != nil && rec.AreaSqm < *f.MinAreaSqm {
		return false
	}
	if f.MaxAreaSqm != nil && rec.AreaSqm > *f.MaxAreaSqm {
		return false
	}
	if f.Location != "" && !matchesLocation(f.Location, rec) {
		return false
	}
	return true
}

// matchesLocation ищет подстроку в полях местоположения.
// Case folding нужен, потому что источники отдают названия городов
// в произвольном регистре (в т.ч. не латиницей).
func matchesLocation(query string, rec ListingRecord) bool {
	needle := foldCaser.String(strings.TrimSpace(query))
	for _, field := range []string{rec.Region, rec.City, rec.SubArea, rec.Title} {
		if field == "" {
			continue
		}
		if strings.Contains(foldCaser.String(field), needle) {
			return true
		}
	}
	return false
}

// TitleCaser - для единообразного вывода названий регионов наружу (REST, дайджест).
var TitleCaser = cases.Title(language.Und)
