package listingapi

import (
	"encoding/json"
	"fmt"
	"time"

	"rent-monitor-service/internal/contracts"
	"rent-monitor-service/internal/core/domain"
)

// Границы разумной цены: все вне диапазона - мусор разметки источника
const (
	minSanePrice = 0
	maxSanePrice = 100_000_000
)

// decodePage разбирает тело страницы и маппит валидные элементы в домен.
// Возвращает записи и число отброшенных элементов. Невалидный элемент не
// роняет страницу: остальные записи прогона ценнее одной битой. Нечитаемое
// тело целиком - другое дело: это обрыв ответа, а не конец каталога.
func (a *ListingAPIAdapter) decodePage(body []byte) ([]domain.ListingRecord, int, error) {
	var page feedPageDTO
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, 0, fmt.Errorf("malformed page body: %w", err)
	}

	records := make([]domain.ListingRecord, 0, len(page.Items))
	dropped := 0
	for _, raw := range page.Items {
		record, ok := toDomainRecord(raw)
		if !ok {
			dropped++
			continue
		}
		records = append(records, record)
	}
	return records, dropped, nil
}

// toDomainRecord проверяет сырой элемент по схеме и переводит его в доменную запись.
func toDomainRecord(raw json.RawMessage) (domain.ListingRecord, bool) {
	if err := contracts.ValidateEvent("ListingRecord", "1.0.0", raw); err != nil {
		return domain.ListingRecord{}, false
	}

	var item feedItemDTO
	if err := json.Unmarshal(raw, &item); err != nil {
		return domain.ListingRecord{}, false
	}
	if item.Price <= minSanePrice || item.Price > maxSanePrice {
		return domain.ListingRecord{}, false
	}

	var listedAt time.Time
	if item.ListedAt != nil {
		listedAt = item.ListedAt.UTC()
	}

	return domain.ListingRecord{
		ID:       item.ID,
		Title:    item.Title,
		Price:    item.Price,
		Rooms:    item.Rooms,
		AreaSqm:  item.AreaSqm,
		Region:   item.Region,
		City:     item.City,
		SubArea:  item.SubArea,
		AdLink:   item.AdLink,
		ImageURL: item.ImageURL,
		ListedAt: listedAt,
	}, true
}
