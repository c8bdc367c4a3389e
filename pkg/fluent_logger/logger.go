package fluentlogger

import (
	"fmt"
	"github.com/fluent/fluent-logger-golang/fluent"
)

// Config - параметры подключения к Fluent Bit.
type Config struct {
	Host      string // адрес агента, в Docker обычно имя контейнера
	Port      int    // стандартный forward-порт 24224
	TagPrefix string // префикс тегов, по нему логи сервиса различимы в агрегаторе
}

// NewClient создает клиент Fluent Bit. Само создание соединение не проверяет:
// forward-протокол без пинга, ошибки всплывут на первой отправке.
func NewClient(cfg Config) (*fluent.Fluent, error) {
	if cfg.TagPrefix == "" {
		return nil, fmt.Errorf("fluentd tag prefix is required")
	}

	logger, err := fluent.New(fluent.Config{
		FluentHost: cfg.Host,
		FluentPort: cfg.Port,
		TagPrefix:  cfg.TagPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create fluentd logger: %w", err)
	}

	return logger, nil
}