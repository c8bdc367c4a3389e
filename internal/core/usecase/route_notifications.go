package usecase

import (
	"context"
	"fmt"
	"math"
	"time"

	"rent-monitor-service/internal/constants"
	"rent-monitor-service/internal/contextkeys"
	"rent-monitor-service/internal/core/domain"
	"rent-monitor-service/internal/core/port"
)

// RouteNotificationsUseCase превращает diff-события в адресные уведомления:
// сверяет каждое событие с включенными фильтрами получателей, режет поток
// пер-получательским лимитом и откладывает излишек в дневной дайджест.
// Тройка (получатель, объявление, тип события) уходит не больше одного раза -
// это обеспечивает журнал доставки.
type RouteNotificationsUseCase struct {
	filters port.FilterRepositoryPort
	ledger  port.NotificationLedgerPort
	digests port.DigestRepositoryPort
	sink    port.MessageSinkPort

	limiter *slidingWindowLimiter
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewRouteNotificationsUseCase создает маршрутизатор с лимитом
// сообщений в час на получателя.
func NewRouteNotificationsUseCase(
	filters port.FilterRepositoryPort,
	ledger port.NotificationLedgerPort,
	digests port.DigestRepositoryPort,
	sink port.MessageSinkPort,
) *RouteNotificationsUseCase {
	return &RouteNotificationsUseCase{
		filters: filters,
		ledger:  ledger,
		digests: digests,
		sink:    sink,
		limiter: newSlidingWindowLimiter(constants.RateLimitPerHour, time.Hour),
		now:     time.Now,
		sleep:   sleepCtx,
	}
}

// Route обрабатывает события одного прогона. Возвращает число мгновенно
// отправленных сообщений (отложенные в дайджест не считаются).
func (uc *RouteNotificationsUseCase) Route(ctx context.Context, events []domain.ListingEvent) (int, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case": "RouteNotifications",
	})

	notifiable := filterNotifiable(events)
	if len(notifiable) == 0 {
		return 0, nil
	}

	enabled, err := uc.filters.ListEnabledFilters(ctx)
	if err != nil {
		return 0, fmt.Errorf("route: list enabled filters: %w", err)
	}

	// Группируем фильтры по получателю: объявление идет получателю,
	// если подходит хотя бы под один его фильтр.
	byRecipient := make(map[string][]domain.RecipientFilter)
	for _, f := range enabled {
		byRecipient[f.RecipientID] = append(byRecipient[f.RecipientID], f)
	}

	emitted := 0
	for _, event := range notifiable {
		for recipientID, recipientFilters := range byRecipient {
			if !anyFilterMatches(recipientFilters, event.Record) {
				continue
			}

			already, err := uc.ledger.HasNotified(ctx, recipientID, event.Record.ID, event.Type)
			if err != nil {
				logger.Error("Ledger lookup failed, skipping emission", err, port.Fields{
					"recipient_id": recipientID,
					"listing_id":   event.Record.ID,
				})
				continue
			}
			if already {
				continue
			}

			if !uc.limiter.Allow(recipientID, uc.now()) {
				uc.deferToDigest(ctx, recipientID, event, logger)
				continue
			}

			if uc.deliver(ctx, recipientID, formatEventMessage(event), logger) {
				uc.recordEmission(ctx, recipientID, event, logger)
				emitted++
			}
		}
	}

	return emitted, nil
}

// filterNotifiable оставляет события, достойные уведомления: все новые
// объявления и снижения цены глубже порога. Мелкие колебания цены
// (меньше минимального процента) шумом не считаются вовсе.
func filterNotifiable(events []domain.ListingEvent) []domain.ListingEvent {
	result := make([]domain.ListingEvent, 0, len(events))
	for _, e := range events {
		switch e.Type {
		case domain.EventTypeNew:
			result = append(result, e)
		case domain.EventTypePriceChange:
			pct := priceChangePct(e.OldPrice, e.NewPrice)
			if pct <= -constants.SignificantPriceDropPct && math.Abs(pct) >= constants.MinPriceChangePct {
				result = append(result, e)
			}
		}
	}
	return result
}

// priceChangePct считает процент через доменный метод: события и записи
// дайджеста несут голые цены, а математика одна.
func priceChangePct(oldPrice, newPrice int) float64 {
	return domain.PriceChange{OldPrice: oldPrice, NewPrice: newPrice}.Percent()
}

func anyFilterMatches(filters []domain.RecipientFilter, rec domain.ListingRecord) bool {
	for _, f := range filters {
		if f.Matches(rec) {
			return true
		}
	}
	return false
}

// deliver отправляет сообщение с одним ограниченным повтором.
// Сбой доставки логируется и не фатален.
func (uc *RouteNotificationsUseCase) deliver(ctx context.Context, recipientID, payload string, logger port.LoggerPort) bool {
	err := uc.sink.Send(ctx, recipientID, payload)
	if err == nil {
		return true
	}
	logger.Warn("Message delivery failed, retrying once", port.Fields{
		"recipient_id": recipientID,
		"error":        err.Error(),
	})

	if sleepErr := uc.sleep(ctx, constants.SinkRetryDelay); sleepErr != nil {
		return false
	}
	if err := uc.sink.Send(ctx, recipientID, payload); err != nil {
		logger.Error("Message delivery failed after retry, dropping", err, port.Fields{
			"recipient_id": recipientID,
		})
		return false
	}
	return true
}

// deferToDigest откладывает совпадение сверх лимита в дневную сводку.
// Журнал фиксируется сразу: отложенное событие считается обработанным,
// повторный прогон того же diff не породит второй записи.
func (uc *RouteNotificationsUseCase) deferToDigest(ctx context.Context, recipientID string, event domain.ListingEvent, logger port.LoggerPort) {
	entry := domain.DigestEntry{
		RecipientID: recipientID,
		ListingID:   event.Record.ID,
		Title:       event.Record.Title,
		EventType:   event.Type,
		OldPrice:    event.OldPrice,
		NewPrice:    event.NewPrice,
		AdLink:      event.Record.AdLink,
		CreatedAt:   uc.now().UTC(),
	}
	if err := uc.digests.AddDigestEntry(ctx, entry); err != nil {
		logger.Error("Could not defer notification to digest", err, port.Fields{
			"recipient_id": recipientID,
			"listing_id":   event.Record.ID,
		})
		return
	}
	uc.recordEmission(ctx, recipientID, event, logger)
	logger.Debug("Notification deferred to daily digest", port.Fields{
		"recipient_id": recipientID,
		"listing_id":   event.Record.ID,
	})
}

func (uc *RouteNotificationsUseCase) recordEmission(ctx context.Context, recipientID string, event domain.ListingEvent, logger port.LoggerPort) {
	if err := uc.ledger.RecordNotified(ctx, recipientID, event.Record.ID, event.Type, uc.now().UTC()); err != nil {
		logger.Error("Could not record notification in ledger", err, port.Fields{
			"recipient_id": recipientID,
			"listing_id":   event.Record.ID,
		})
	}
}
