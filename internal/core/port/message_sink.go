package port

import "context"

// MessageSinkPort - исходящий канал доставки сообщений получателям.
// С точки зрения маршрутизатора - fire-and-forget: реализация сама решает,
// как доставлять; ошибка доставки не фатальна для прогона.
type MessageSinkPort interface {
	Send(ctx context.Context, recipientID string, payload string) error
}
