package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunMode - режим прогона мониторинга.
type RunMode string

const (
	// RunModeInitial - первичный полный обход каталога, без ранней остановки.
	RunModeInitial RunMode = "initial"
	// RunModeMonitoring - инкрементальный обход с умной остановкой.
	RunModeMonitoring RunMode = "monitoring"
)

// StopReason - причина завершения прогона.
type StopReason string

const (
	StopReasonSmartStop    StopReason = "smart_stop"
	StopReasonEmptyPage    StopReason = "empty_page"
	StopReasonPageCeiling  StopReason = "page_ceiling"
	StopReasonErrorCeiling StopReason = "error_ceiling"
)

// ScrapeRunRecord - write-once запись об одном прогоне, для наблюдаемости.
type ScrapeRunRecord struct {
	ID           uuid.UUID
	Mode         RunMode
	PagesVisited int
	ListingsSeen int
	NewCount     int
	ChangedCount int
	RemovedCount int
	StartedAt    time.Time
	EndedAt      time.Time
	StopReason   StopReason
}
