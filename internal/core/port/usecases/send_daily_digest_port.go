package usecases

import "context"

// SendDailyDigestUseCasePort - сборка и отправка дневного дайджеста.
// Возвращает число получателей, которым ушла сводка.
type SendDailyDigestUseCasePort interface {
	Execute(ctx context.Context) (int, error)
}
