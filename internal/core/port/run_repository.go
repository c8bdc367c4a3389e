package port

import (
	"context"

	"rent-monitor-service/internal/core/domain"
)

// RunRepositoryPort - хранение записей о прогонах мониторинга.
type RunRepositoryPort interface {
	SaveRunRecord(ctx context.Context, record domain.ScrapeRunRecord) error
	ListRecentRuns(ctx context.Context, limit int) ([]domain.ScrapeRunRecord, error)
}
