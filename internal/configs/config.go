package configs

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"rent-monitor-service/internal/constants"
)

// DBconfig хранит конфигурацию для БД
type DBconfig struct {
	URL string
}

// RabbitMQConfig хранит конфигурацию для RabbitMQ
type RabbitMQConfig struct {
	URL string
}

// TelegramConfig - токен бота для канала доставки уведомлений.
type TelegramConfig struct {
	BotToken string
}

// SourceConfig - параметры источника объявлений.
type SourceConfig struct {
	BaseURL string
}

// MonitorConfig - настройки цикла мониторинга и планировщика.
type MonitorConfig struct {
	MinIntervalMinutes int
	MaxIntervalMinutes int
	DailyDigestHour    int
}

type StdoutLogConfig struct {
	Level string
}

type FluentBitConfig struct {
	Host    string
	Port    int
	Enabled bool
	Level   string
}

// AppConfig хранит всю конфигурацию приложения
type AppConfig struct {
	AppName      string
	RESTPort     string
	Database     DBconfig
	RabbitMQ     RabbitMQConfig
	Telegram     TelegramConfig
	Source       SourceConfig
	Monitor      MonitorConfig
	FluentBit    FluentBitConfig
	StdoutLogger StdoutLogConfig
}

// LoadConfig загружает конфигурацию из переменных окружения.
func LoadConfig(envPath ...string) (*AppConfig, error) {

	var err error
	if len(envPath) > 0 {
		err = godotenv.Load(envPath[0])
	} else {
		err = godotenv.Load()
	}
	if err != nil {
		// .env опционален: в контейнере все приходит из окружения
		log.Printf("Info: Could not load .env file (path: %v): %v.\n", envPath, err)
	}

	cfg := &AppConfig{}

	cfg.AppName = getEnvAsString("APP_NAME", "rent-monitor-service")
	cfg.RESTPort = getEnvAsString("REST_PORT", "8080")

	// Читаем DATABASE URL
	cfg.Database.URL = os.Getenv("DATABASE_URL")
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	// Читаем конфигурацию для RabbitMQ
	cfg.RabbitMQ.URL = os.Getenv("RABBITMQ_URL")
	if cfg.RabbitMQ.URL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL environment variable is required")
	}

	cfg.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if cfg.Telegram.BotToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable is required")
	}

	cfg.Source.BaseURL = getEnvAsString("SOURCE_API_URL", "https://api.rent-catalog.example/search-api/v2/rendered-paginated")

	cfg.Monitor.MinIntervalMinutes = getEnvAsInt("MIN_INTERVAL_MINUTES", constants.DefaultMinIntervalMinutes)
	cfg.Monitor.MaxIntervalMinutes = getEnvAsInt("MAX_INTERVAL_MINUTES", constants.DefaultMaxIntervalMinutes)
	if cfg.Monitor.MaxIntervalMinutes < cfg.Monitor.MinIntervalMinutes {
		return nil, fmt.Errorf("MAX_INTERVAL_MINUTES (%d) must be >= MIN_INTERVAL_MINUTES (%d)",
			cfg.Monitor.MaxIntervalMinutes, cfg.Monitor.MinIntervalMinutes)
	}
	cfg.Monitor.DailyDigestHour = getEnvAsInt("DAILY_DIGEST_HOUR", constants.DefaultDailyDigestHour)
	if cfg.Monitor.DailyDigestHour < 0 || cfg.Monitor.DailyDigestHour > 23 {
		return nil, fmt.Errorf("DAILY_DIGEST_HOUR must be in [0, 23], got %d", cfg.Monitor.DailyDigestHour)
	}

	cfg.FluentBit.Enabled = getEnvAsBool("FLUENTBIT_ENABLED", false)
	if cfg.FluentBit.Enabled {
		cfg.FluentBit.Host = os.Getenv("FLUENTBIT_HOST")
		if cfg.FluentBit.Host == "" {
			log.Println("WARNING: FLUENTBIT_ENABLED is true, but FLUENTBIT_HOST is not set. Disabling Fluent Bit.")
			cfg.FluentBit.Enabled = false
		}

		cfg.FluentBit.Port = getEnvAsInt("FLUENTBIT_PORT", 24224)
		cfg.FluentBit.Level = getEnvAsString("FLUENTBIT_LOG_LEVEL", "info")
	}

	cfg.StdoutLogger.Level = getEnvAsString("STDOUT_LOG_LEVEL", "debug")

	return cfg, nil
}

// getEnvAsString читает переменную окружения как строку или возвращает значение по умолчанию
func getEnvAsString(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt читает переменную окружения как int или возвращает значение по умолчанию
// Логирует ошибку, если переменная есть, но не может быть преобразована в int
func getEnvAsInt(key string, defaultValue int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	valueInt, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as int: %v. Using default value: %d\n", key, valueStr, err, defaultValue)
		return defaultValue
	}
	return valueInt
}

// getEnvAsBool читает переменную окружения как bool или возвращает значение по умолчанию
func getEnvAsBool(key string, defaultValue bool) bool {
	valStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valBool, err := strconv.ParseBool(valStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as bool: %v. Using default value: %t\n", key, valStr, err, defaultValue)
		return defaultValue
	}
	return valBool
}
