package usecases

import (
	"context"

	"rent-monitor-service/internal/core/domain"
)

// MonitorListingsUseCasePort - входящий порт одного прогона мониторинга.
// Вызывается планировщиком по расписанию и REST-триггером run_now.
type MonitorListingsUseCasePort interface {
	Execute(ctx context.Context) (domain.ScrapeRunRecord, error)
}
