package usecase

import (
	"context"
	"fmt"
	"time"

	"rent-monitor-service/internal/constants"
	"rent-monitor-service/internal/contextkeys"
	"rent-monitor-service/internal/core/domain"
	"rent-monitor-service/internal/core/port"
)

// SendDailyDigestUseCase собирает все отложенные за день совпадения и
// отправляет каждому получателю одну сводку. Вызывается планировщиком
// в настроенный час.
type SendDailyDigestUseCase struct {
	digests port.DigestRepositoryPort
	sink    port.MessageSinkPort

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewSendDailyDigestUseCase(digests port.DigestRepositoryPort, sink port.MessageSinkPort) *SendDailyDigestUseCase {
	return &SendDailyDigestUseCase{
		digests: digests,
		sink:    sink,
		now:     time.Now,
		sleep:   sleepCtx,
	}
}

// Execute отправляет сводки. Возвращает число получателей, которым ушла сводка.
// Записи помечаются доставленными только после успешной отправки: сбой
// оставляет их в очереди до следующего дайджеста.
func (uc *SendDailyDigestUseCase) Execute(ctx context.Context) (int, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case": "SendDailyDigest",
	})

	pending, err := uc.digests.ListPendingDigestEntries(ctx)
	if err != nil {
		return 0, fmt.Errorf("digest: list pending entries: %w", err)
	}
	if len(pending) == 0 {
		logger.Debug("No pending digest entries", nil)
		return 0, nil
	}

	byRecipient := make(map[string][]domain.DigestEntry)
	for _, entry := range pending {
		byRecipient[entry.RecipientID] = append(byRecipient[entry.RecipientID], entry)
	}

	delivered := 0
	for recipientID, entries := range byRecipient {
		payload := formatDigestMessage(entries)

		if err := uc.sink.Send(ctx, recipientID, payload); err != nil {
			logger.Warn("Digest delivery failed, retrying once", port.Fields{
				"recipient_id": recipientID,
				"error":        err.Error(),
			})
			if sleepErr := uc.sleep(ctx, constants.SinkRetryDelay); sleepErr != nil {
				return delivered, sleepErr
			}
			if err := uc.sink.Send(ctx, recipientID, payload); err != nil {
				logger.Error("Digest delivery failed after retry, will retry next digest", err, port.Fields{
					"recipient_id": recipientID,
				})
				continue
			}
		}

		ids := make([]int64, 0, len(entries))
		for _, e := range entries {
			ids = append(ids, e.ID)
		}
		if err := uc.digests.MarkDigestDelivered(ctx, ids, uc.now().UTC()); err != nil {
			logger.Error("Could not mark digest entries delivered", err, port.Fields{
				"recipient_id": recipientID,
			})
		}
		delivered++
	}

	logger.Info("Daily digest sent", port.Fields{
		"recipients": delivered,
		"entries":    len(pending),
	})
	return delivered, nil
}
