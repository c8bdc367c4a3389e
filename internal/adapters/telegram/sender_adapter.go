package telegram

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramSenderAdapter доставляет уведомления в Telegram-чаты.
// Идентификатор получателя в домене - строка, в Telegram - числовой chat ID;
// конвертация живет здесь, ядро о Telegram не знает.
type TelegramSenderAdapter struct {
	api *tgbotapi.BotAPI
}

// NewTelegramSenderAdapter - конструктор
func NewTelegramSenderAdapter(api *tgbotapi.BotAPI) (*TelegramSenderAdapter, error) {
	if api == nil {
		return nil, fmt.Errorf("telegram api cannot be nil")
	}
	return &TelegramSenderAdapter{api: api}, nil
}

// Send отправляет HTML-сообщение в чат получателя.
func (a *TelegramSenderAdapter) Send(ctx context.Context, recipientID string, payload string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	chatID, err := strconv.ParseInt(recipientID, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram: recipient %q is not a valid chat id: %w", recipientID, err)
	}

	msg := tgbotapi.NewMessage(chatID, payload)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := a.api.Send(msg); err != nil {
		return fmt.Errorf("telegram: failed to send message to chat %d: %w", chatID, err)
	}
	return nil
}
