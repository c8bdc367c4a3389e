package domain

import "errors"

// Таксономия ошибок получения страницы (см. Page Fetch Adapter).
// Цикл мониторинга различает их по errors.Is и реагирует по-разному:
// Blocked/RateLimited - сигнал контроллеру задержек и повтор с отступлением,
// Transient - один немедленный повтор, Empty - конец каталога, не ошибка.
var (
	ErrBlocked     = errors.New("fetch blocked by anti-scraping defense")
	ErrRateLimited = errors.New("fetch rate limited")
	ErrTransient   = errors.New("transient fetch error")
	ErrEmptyPage   = errors.New("empty page: end of catalog")
)

// ErrRunInFlight возвращается триггером run_now, когда прогон уже выполняется.
var ErrRunInFlight = errors.New("monitoring run already in flight")

// ErrFilterNotFound - запрошенный фильтр получателя не существует.
var ErrFilterNotFound = errors.New("recipient filter not found")

// ErrListingNotFound - объявление с таким ID не найдено в каталоге.
var ErrListingNotFound = errors.New("listing not found")
