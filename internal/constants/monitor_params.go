package constants

import "time"

// Пороги логики обхода.
const (
	// ConsecutiveKnownThreshold - после скольких подряд известных объявлений
	// останавливать обход в режиме мониторинга. Должен быть больше числа
	// объявлений на одной странице выдачи.
	ConsecutiveKnownThreshold = 50

	// MinPagesBeforeSmartStop - умная остановка не раньше этой страницы.
	MinPagesBeforeSmartStop = 3

	// MinResultsForRemoval - минимум увиденных за прогон объявлений, ниже
	// которого снятие с публикации не помечается (защита от коротких и
	// заблокированных прогонов).
	MinResultsForRemoval = 1000

	// InitialScrapeThreshold - если в каталоге меньше объявлений, прогон
	// выполняется в режиме initial (полный обход).
	InitialScrapeThreshold = 5000

	MaxPagesFullSite   = 800
	MaxPagesMonitoring = 60
)

// Обработка сбоев страницы.
const (
	MaxPageRetries = 3
	RunErrorBudget = 10
)

// Диапазоны задержек между страницами.
const (
	InitialPageDelayMin    = 1 * time.Second
	InitialPageDelayMax    = 3 * time.Second
	MonitoringPageDelayMin = 3 * time.Second
	MonitoringPageDelayMax = 8 * time.Second

	// DelayCeiling - потолок эскалации при блокировках.
	DelayCeiling = 300 * time.Second
)

// Параметры контроллера задержек.
const (
	DelayEscalationFactor = 2.0
	DelayRelaxationFactor = 1.5
	SuccessesBeforeRelax  = 10
)

// Интервал между прогонами (рандомизируется, чтобы каденс сам по себе
// не был отпечатком).
const (
	DefaultMinIntervalMinutes = 20
	DefaultMaxIntervalMinutes = 40
)

// Уведомления.
const (
	MinPriceChangePct       = 1.0
	SignificantPriceDropPct = 5.0
	RateLimitPerHour        = 100
	DefaultDailyDigestHour  = 20
	SinkRetryDelay          = 2 * time.Second
)
