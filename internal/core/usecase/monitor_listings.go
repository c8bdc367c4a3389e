package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"rent-monitor-service/internal/constants"
	"rent-monitor-service/internal/contextkeys"
	"rent-monitor-service/internal/core/domain"
	"rent-monitor-service/internal/core/port"
	usecases_port "rent-monitor-service/internal/core/port/usecases"
)

// MonitorListingsUseCase - верхний цикл мониторинга: выбирает режим прогона,
// гонит страницы через адаптер источника, сверяет партии diff-движком,
// фиксирует результаты в хранилище и передает события маршрутизатору
// уведомлений. Один экземпляр на процесс; одновременность прогонов
// исключает планировщик, а не этот тип.
type MonitorListingsUseCase struct {
	fetcher port.ListingFetcherPort
	storage port.ListingStoragePort
	runRepo port.RunRepositoryPort
	events  port.ListingEventsQueuePort
	router  usecases_port.RouteNotificationsUseCasePort

	rng *rand.Rand
	now func() time.Time

	// sleep вынесен в поле, чтобы тесты не ждали реальных задержек.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewMonitorListingsUseCase создает новый экземпляр цикла мониторинга.
func NewMonitorListingsUseCase(
	fetcher port.ListingFetcherPort,
	storage port.ListingStoragePort,
	runRepo port.RunRepositoryPort,
	events port.ListingEventsQueuePort,
	router usecases_port.RouteNotificationsUseCasePort,
	rng *rand.Rand,
) *MonitorListingsUseCase {
	return &MonitorListingsUseCase{
		fetcher: fetcher,
		storage: storage,
		runRepo: runRepo,
		events:  events,
		router:  router,
		rng:     rng,
		now:     time.Now,
		sleep:   sleepCtx,
	}
}

// Execute выполняет один прогон от выбора режима до терминальной причины
// остановки. Возвращает запись о прогоне.
func (uc *MonitorListingsUseCase) Execute(ctx context.Context) (domain.ScrapeRunRecord, error) {
	baseLogger := contextkeys.LoggerFromContext(ctx)

	runID := uuid.New()
	startedAt := uc.now().UTC()

	runLogger := baseLogger.WithFields(port.Fields{
		"use_case": "MonitorListings",
		"run_id":   runID.String(),
	})

	// Охранное условие выбора режима: маленький каталог означает, что
	// первичный полный обход еще не состоялся.
	totalCount, err := uc.storage.GetTotalCount(ctx)
	if err != nil {
		runLogger.Error("Could not read total listing count, run aborted", err, nil)
		return domain.ScrapeRunRecord{}, fmt.Errorf("monitor: get total count: %w", err)
	}

	mode := domain.RunModeMonitoring
	maxPages := constants.MaxPagesMonitoring
	stopThreshold := constants.ConsecutiveKnownThreshold
	if totalCount < constants.InitialScrapeThreshold {
		mode = domain.RunModeInitial
		maxPages = constants.MaxPagesFullSite
		stopThreshold = 0 // цель - полное покрытие, умная остановка выключена
	}
	runLogger = runLogger.WithFields(port.Fields{"mode": string(mode)})
	runLogger.Info("Starting monitoring run", port.Fields{
		"total_known": totalCount,
		"max_pages":   maxPages,
	})

	knownPrices, err := uc.storage.GetKnownListingPrices(ctx)
	if err != nil {
		runLogger.Error("Could not load known listing prices, run aborted", err, nil)
		return domain.ScrapeRunRecord{}, fmt.Errorf("monitor: load known prices: %w", err)
	}

	delays := NewDelayController(DelayConfigForMode(mode), uc.rng)
	engine := NewDiffEngine(knownPrices, stopThreshold)

	var (
		runDiff      domain.DiffResult
		seenIDs      = make(map[string]struct{})
		listingsSeen int
		pagesVisited int
		errorBudget  = constants.RunErrorBudget
		stopReason   = domain.StopReasonPageCeiling
	)

pageLoop:
	for page := 1; page <= maxPages; page++ {
		if err := ctx.Err(); err != nil {
			runLogger.Warn("Run context cancelled, abandoning run", port.Fields{"page": page})
			return domain.ScrapeRunRecord{}, err
		}

		batch, fetchErr := uc.fetchWithRetry(ctx, page, delays, &errorBudget, runLogger)
		switch {
		case errors.Is(fetchErr, domain.ErrEmptyPage):
			stopReason = domain.StopReasonEmptyPage
			break pageLoop
		case errors.Is(fetchErr, errBudgetExhausted):
			stopReason = domain.StopReasonErrorCeiling
			break pageLoop
		case errors.Is(fetchErr, errPageSkipped):
			pagesVisited++
			continue
		case fetchErr != nil:
			// Отмена контекста посреди ожидания
			return domain.ScrapeRunRecord{}, fetchErr
		}

		pagesVisited++
		listingsSeen += len(batch)
		for _, rec := range batch {
			seenIDs[rec.ID] = struct{}{}
		}

		pageDiff := engine.ProcessBatch(batch)
		uc.persistDiff(ctx, pageDiff, runLogger.WithFields(port.Fields{"page": page}))
		runDiff.Merge(pageDiff)

		delays.Report(OutcomeSuccess)

		if page <= 5 || page%10 == 0 {
			runLogger.Debug("Page processed", port.Fields{
				"page":              page,
				"batch_size":        len(batch),
				"new":               len(pageDiff.New),
				"price_changed":     len(pageDiff.PriceChanged),
				"consecutive_known": engine.ConsecutiveKnown(),
			})
		}

		// Умная остановка - только в режиме мониторинга и не раньше
		// минимального числа страниц.
		if engine.ShouldStop() && page >= constants.MinPagesBeforeSmartStop {
			runLogger.Info("Smart stop: consecutive known threshold reached", port.Fields{
				"page":      page,
				"threshold": stopThreshold,
			})
			stopReason = domain.StopReasonSmartStop
			break pageLoop
		}

		if page < maxPages {
			if err := uc.sleep(ctx, delays.NextDelay()); err != nil {
				return domain.ScrapeRunRecord{}, err
			}
		}
	}

	// Снятие с публикации - политика конца прогона, не страницы: короткий
	// или заблокированный прогон не должен выглядеть как сжавшийся каталог.
	var removed []domain.ListingRecord
	if mode == domain.RunModeMonitoring && listingsSeen >= constants.MinResultsForRemoval {
		removed, err = uc.storage.MarkUnseenRemoved(ctx, seenIDs, uc.now().UTC())
		if err != nil {
			runLogger.Error("Removal sweep failed", err, nil)
		} else if len(removed) > 0 {
			runLogger.Info("Marked unseen listings as removed", port.Fields{"count": len(removed)})
		}
	} else if mode == domain.RunModeMonitoring {
		runLogger.Warn("Skipping removal sweep: run observed too few listings", port.Fields{
			"listings_seen": listingsSeen,
			"required":      constants.MinResultsForRemoval,
		})
	}

	record := domain.ScrapeRunRecord{
		ID:           runID,
		Mode:         mode,
		PagesVisited: pagesVisited,
		ListingsSeen: listingsSeen,
		NewCount:     len(runDiff.New),
		ChangedCount: len(runDiff.PriceChanged),
		RemovedCount: len(removed),
		StartedAt:    startedAt,
		EndedAt:      uc.now().UTC(),
		StopReason:   stopReason,
	}
	if err := uc.runRepo.SaveRunRecord(ctx, record); err != nil {
		runLogger.Error("Could not save run record", err, nil)
	}

	uc.publishAndRoute(ctx, runDiff, removed, runLogger)

	runLogger.Info("Monitoring run finished", port.Fields{
		"stop_reason":   string(record.StopReason),
		"pages_visited": record.PagesVisited,
		"listings_seen": record.ListingsSeen,
		"new":           record.NewCount,
		"price_changed": record.ChangedCount,
		"removed":       record.RemovedCount,
	})

	return record, nil
}

// Внутренние сигналы fetchWithRetry.
var (
	errBudgetExhausted = errors.New("per-run error budget exhausted")
	errPageSkipped     = errors.New("page skipped after transient errors")
)

// fetchWithRetry выполняет ограниченные повторы одной страницы.
// Blocked/RateLimited репортятся контроллеру и повторяются с текущей
// задержкой; Transient дает один немедленный повтор. Каждый неудавшийся
// повтор списывается из бюджета ошибок прогона.
func (uc *MonitorListingsUseCase) fetchWithRetry(
	ctx context.Context,
	page int,
	delays *DelayController,
	errorBudget *int,
	logger port.LoggerPort,
) ([]domain.ListingRecord, error) {

	transientRetried := false
	for attempt := 1; attempt <= constants.MaxPageRetries; attempt++ {
		batch, err := uc.fetcher.FetchPage(ctx, page)
		if err == nil {
			return batch, nil
		}

		switch {
		case errors.Is(err, domain.ErrEmptyPage):
			return nil, domain.ErrEmptyPage

		case errors.Is(err, domain.ErrBlocked), errors.Is(err, domain.ErrRateLimited):
			outcome := OutcomeBlocked
			if errors.Is(err, domain.ErrRateLimited) {
				outcome = OutcomeRateLimited
			}
			delays.Report(outcome)
			*errorBudget--
			logger.Warn("Fetch rejected by source, backing off", port.Fields{
				"page":         page,
				"attempt":      attempt,
				"outcome":      string(outcome),
				"error_budget": *errorBudget,
			})
			if *errorBudget <= 0 {
				return nil, errBudgetExhausted
			}
			if attempt == constants.MaxPageRetries {
				// Повторы страницы исчерпаны - прогон дальше не тянем,
				// следующий запуск начнет с сохраненного состояния.
				return nil, errBudgetExhausted
			}
			if err := uc.sleep(ctx, delays.NextDelay()); err != nil {
				return nil, err
			}

		case errors.Is(err, domain.ErrTransient):
			delays.Report(OutcomeTransient)
			if !transientRetried {
				transientRetried = true
				continue // один немедленный повтор
			}
			*errorBudget--
			logger.Warn("Transient fetch error, skipping page", port.Fields{
				"page":         page,
				"error_budget": *errorBudget,
			})
			if *errorBudget <= 0 {
				return nil, errBudgetExhausted
			}
			return nil, errPageSkipped

		default:
			// Неизвестная ошибка адаптера приравнивается к временной.
			delays.Report(OutcomeTransient)
			*errorBudget--
			logger.Error("Unexpected fetch error, skipping page", err, port.Fields{"page": page})
			if *errorBudget <= 0 {
				return nil, errBudgetExhausted
			}
			return nil, errPageSkipped
		}
	}

	return nil, errBudgetExhausted
}

// persistDiff фиксирует результаты страницы, каждое объявление независимо:
// сбой записи одного объявления не откатывает прогресс страницы.
func (uc *MonitorListingsUseCase) persistDiff(ctx context.Context, diff domain.DiffResult, logger port.LoggerPort) {
	observedAt := uc.now().UTC()

	for _, rec := range diff.New {
		if err := uc.storage.UpsertListing(ctx, rec.ToListing(observedAt)); err != nil {
			logger.Error("Could not persist new listing, skipping", err, port.Fields{"listing_id": rec.ID})
			continue
		}
		obs := domain.PriceObservation{ListingID: rec.ID, Price: rec.Price, ObservedAt: observedAt}
		if err := uc.storage.AppendPriceObservation(ctx, obs); err != nil {
			logger.Error("Could not append initial price observation", err, port.Fields{"listing_id": rec.ID})
		}
	}

	for _, change := range diff.PriceChanged {
		if err := uc.storage.UpsertListing(ctx, change.Record.ToListing(observedAt)); err != nil {
			logger.Error("Could not persist changed listing, skipping", err, port.Fields{"listing_id": change.Record.ID})
			continue
		}
		obs := domain.PriceObservation{ListingID: change.Record.ID, Price: change.NewPrice, ObservedAt: observedAt}
		if err := uc.storage.AppendPriceObservation(ctx, obs); err != nil {
			logger.Error("Could not append price observation", err, port.Fields{"listing_id": change.Record.ID})
		}
	}
}

// publishAndRoute превращает накопленный diff и результат зачистки в события,
// публикует их в шину и отдает маршрутизатору уведомлений. Обе стороны не
// фатальны для прогона.
func (uc *MonitorListingsUseCase) publishAndRoute(ctx context.Context, diff domain.DiffResult, removed []domain.ListingRecord, logger port.LoggerPort) {
	if diff.Empty() && len(removed) == 0 {
		return
	}

	observedAt := uc.now().UTC()
	events := make([]domain.ListingEvent, 0, len(diff.New)+len(diff.PriceChanged)+len(removed))
	for _, rec := range diff.New {
		events = append(events, domain.ListingEvent{
			Type:       domain.EventTypeNew,
			Record:     rec,
			NewPrice:   rec.Price,
			ObservedAt: observedAt,
		})
	}
	for _, change := range diff.PriceChanged {
		events = append(events, domain.ListingEvent{
			Type:       domain.EventTypePriceChange,
			Record:     change.Record,
			OldPrice:   change.OldPrice,
			NewPrice:   change.NewPrice,
			ObservedAt: observedAt,
		})
	}
	for _, rec := range removed {
		events = append(events, domain.ListingEvent{
			Type:       domain.EventTypeRemoved,
			Record:     rec,
			OldPrice:   rec.Price,
			ObservedAt: observedAt,
		})
	}

	for _, event := range events {
		if err := uc.events.PublishListingEvent(ctx, event); err != nil {
			logger.Error("Could not publish listing event", err, port.Fields{
				"event_type": string(event.Type),
				"listing_id": event.Record.ID,
			})
		}
	}

	emitted, err := uc.router.Route(ctx, events)
	if err != nil {
		logger.Error("Notification routing failed", err, nil)
		return
	}
	logger.Info("Notifications routed", port.Fields{"events": len(events), "emitted": emitted})
}

// sleepCtx спит с уважением к отмене контекста.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
