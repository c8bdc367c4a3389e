package usecase

import (
	"rent-monitor-service/internal/core/domain"
)

// DiffEngine сверяет партии свежих записей с множеством известных ID и
// классифицирует каждую как new / price_changed / still_known. Попутно ведет
// счетчик подряд идущих известных записей в порядке страниц - сигнал умной
// остановки: длинная серия уже известных объявлений означает, что остаток
// каталога мы уже видели.
//
// Допущение (задокументированное, не проверяемое): страницы источника
// упорядочены по свежести. Если источник сменит порядок выдачи, умная
// остановка начнет недообходить каталог.
type DiffEngine struct {
	knownPrices map[string]int
	threshold   int

	consecutiveKnown int
	stopSignaled     bool
}

// NewDiffEngine создает движок для одного прогона.
// knownPrices - карта "известный ID -> текущая цена" на момент старта прогона.
// threshold <= 0 отключает сигнал остановки (режим initial).
func NewDiffEngine(knownPrices map[string]int, threshold int) *DiffEngine {
	return &DiffEngine{
		knownPrices: knownPrices,
		threshold:   threshold,
	}
}

// ProcessBatch классифицирует записи одной страницы.
// Запись отсутствует среди известных - new. Присутствует с другой ценой -
// price_changed. Совпадает по цене - still_known. Счетчик подряд известных
// растет на каждой still_known записи и сбрасывается в ноль на любой new
// или price_changed.
func (e *DiffEngine) ProcessBatch(batch []domain.ListingRecord) domain.DiffResult {
	var result domain.DiffResult

	for _, rec := range batch {
		oldPrice, known := e.knownPrices[rec.ID]
		switch {
		case !known:
			result.New = append(result.New, rec)
			// Объявление становится известным внутри прогона: дубль на
			// следующей странице не должен классифицироваться снова как new.
			e.knownPrices[rec.ID] = rec.Price
			e.consecutiveKnown = 0
		case oldPrice != rec.Price:
			result.PriceChanged = append(result.PriceChanged, domain.PriceChange{
				Record:   rec,
				OldPrice: oldPrice,
				NewPrice: rec.Price,
			})
			e.knownPrices[rec.ID] = rec.Price
			e.consecutiveKnown = 0
		default:
			result.StillKnownCount++
			e.consecutiveKnown++
			if e.threshold > 0 && e.consecutiveKnown >= e.threshold {
				e.stopSignaled = true
			}
		}
	}

	return result
}

// ShouldStop сообщает, достиг ли счетчик подряд известных записей порога.
// Сигнал латчится: однажды взведенный, он не сбрасывается до конца прогона.
func (e *DiffEngine) ShouldStop() bool {
	return e.stopSignaled
}

// ConsecutiveKnown - текущее значение счетчика (для логов и тестов).
func (e *DiffEngine) ConsecutiveKnown() int {
	return e.consecutiveKnown
}
