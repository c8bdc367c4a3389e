package domain

// PriceChange описывает одно изменение цены известного объявления.
type PriceChange struct {
	Record   ListingRecord
	OldPrice int
	NewPrice int
}

// Percent возвращает относительное изменение цены в процентах.
// Отрицательное значение - снижение цены.
func (c PriceChange) Percent() float64 {
	if c.OldPrice == 0 {
		return 0
	}
	return float64(c.NewPrice-c.OldPrice) / float64(c.OldPrice) * 100
}

// DiffResult - результат сверки одной партии записей с множеством известных ID.
type DiffResult struct {
	New             []ListingRecord
	PriceChanged    []PriceChange
	StillKnownCount int
}

// Empty сообщает, что партия не принесла ни новых объявлений, ни изменений цен.
func (d DiffResult) Empty() bool {
	return len(d.New) == 0 && len(d.PriceChanged) == 0
}

// Merge дописывает результат другой партии в текущий (накопление за весь прогон).
func (d *DiffResult) Merge(other DiffResult) {
	d.New = append(d.New, other.New...)
	d.PriceChanged = append(d.PriceChanged, other.PriceChanged...)
	d.StillKnownCount += other.StillKnownCount
}
