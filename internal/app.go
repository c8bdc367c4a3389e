package internal

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"rent-monitor-service/internal/adapters/listingapi"
	logger_adapter "rent-monitor-service/internal/adapters/logger"
	"rent-monitor-service/internal/adapters/postgres"
	rabbitmq_adapter "rent-monitor-service/internal/adapters/rabbitmq"
	"rent-monitor-service/internal/adapters/rest"
	"rent-monitor-service/internal/adapters/telegram"
	"rent-monitor-service/internal/configs"
	"rent-monitor-service/internal/constants"
	"rent-monitor-service/internal/contextkeys"
	"rent-monitor-service/internal/core/port"
	"rent-monitor-service/internal/core/usecase"
	"rent-monitor-service/internal/scheduler"
	fluentlogger "rent-monitor-service/pkg/fluent_logger"
	pg "rent-monitor-service/pkg/postgres"
	"rent-monitor-service/pkg/rabbitmq/rabbitmq_common"
	"rent-monitor-service/pkg/rabbitmq/rabbitmq_producer"

	"github.com/fluent/fluent-logger-golang/fluent"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type App struct {
	config    *configs.AppConfig
	apiServer *rest.Server
	scheduler *scheduler.Scheduler

	dbPool        *pgxpool.Pool
	eventProducer *rabbitmq_producer.Publisher
	logger        port.LoggerPort
	fluentClient  *fluent.Fluent
}

func NewApp() (*App, error) {
	appConfig, err := configs.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading application configuration: %w", err)
	}

	// --- 1. ИНИЦИАЛИЗАЦИЯ ЛОГГЕРОВ ---
	var activeLoggers []port.LoggerPort

	slogCfg := logger_adapter.SlogConfig{
		Level:    parseLogLevel(appConfig.StdoutLogger.Level),
		IsJSON:   false,
		UseColor: true,
	}
	stdoutLogger := logger_adapter.NewSlogAdapter(slogCfg)
	activeLoggers = append(activeLoggers, stdoutLogger)

	var fluentClient *fluent.Fluent
	if appConfig.FluentBit.Enabled {
		fluentClient, err = fluentlogger.NewClient(fluentlogger.Config{
			Host:      appConfig.FluentBit.Host,
			Port:      appConfig.FluentBit.Port,
			TagPrefix: appConfig.AppName,
		})
		if err != nil {
			stdoutLogger.Error("Failed to create fluentbit client", err, nil)
			return nil, fmt.Errorf("failed to create fluentbit client: %w", err)
		}

		fluentAdapter, err := logger_adapter.NewFluentLoggerAdapter(fluentClient, parseLogLevel(appConfig.FluentBit.Level))
		if err != nil {
			stdoutLogger.Error("Failed to create fluentbit adapter", err, nil)
			fluentClient.Close()
			return nil, err
		}
		activeLoggers = append(activeLoggers, fluentAdapter)
	}

	multiLogger, err := logger_adapter.NewMultiloggerAdapter(activeLoggers...)
	if err != nil {
		return nil, fmt.Errorf("failed to create multi-logger: %w", err)
	}

	baseLogger := multiLogger.WithFields(port.Fields{
		"service_name": appConfig.AppName,
	})

	appLogger := baseLogger.WithFields(port.Fields{"component": "app"})
	appLogger.Info("Logger system initialized", port.Fields{
		"active_loggers": len(activeLoggers), "fluent_enabled": appConfig.FluentBit.Enabled,
	})

	// --- 2. ИНФРАСТРУКТУРА: POSTGRES И RABBITMQ ---
	dbCtx, cancelDB := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelDB()

	dbPool, err := pg.NewClient(dbCtx, pg.Config{DatabaseURL: appConfig.Database.URL})
	if err != nil {
		appLogger.Error("Failed to connect to PostgreSQL", err, nil)
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	appLogger.Info("PostgreSQL connection pool initialized.", nil)

	producerLogger := baseLogger.WithFields(port.Fields{"component": "rabbitmq_producer"})
	pkgLoggerBridge := rabbitmq_adapter.NewPkgLoggerBridge(producerLogger)

	connManagerLogger := baseLogger.WithFields(port.Fields{"component": "rabbitmq_conn_manager"})
	connManagerBridge := rabbitmq_adapter.NewPkgLoggerBridge(connManagerLogger)
	connManager, err := rabbitmq_common.GetManager(appConfig.RabbitMQ.URL, connManagerBridge)
	if err != nil {
		appLogger.Error("Failed to create connection manager", err, nil)
		dbPool.Close()
		return nil, fmt.Errorf("failed to create connection manager: %w", err)
	}
	appLogger.Info("RabbitMQ Connection Manager initialized.", nil)

	producerCfg := rabbitmq_producer.PublisherConfig{
		Config:                   rabbitmq_common.Config{URL: appConfig.RabbitMQ.URL},
		ExchangeName:             constants.ListingEventsExchange,
		ExchangeType:             "direct",
		DurableExchange:          true,
		DeclareExchangeIfMissing: true,
		Logger:                   pkgLoggerBridge,
	}
	eventProducer, err := rabbitmq_producer.NewPublisher(producerCfg, connManager)
	if err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to create event producer: %w", err)
	}
	appLogger.Info("RabbitMQ Event Producer initialized.", nil)

	botAPI, err := tgbotapi.NewBotAPI(appConfig.Telegram.BotToken)
	if err != nil {
		appLogger.Error("Failed to create Telegram bot API", err, nil)
		eventProducer.Close()
		dbPool.Close()
		return nil, fmt.Errorf("failed to create telegram bot API: %w", err)
	}
	appLogger.Info("Telegram Bot API initialized.", port.Fields{"bot_username": botAPI.Self.UserName})

	// --- 3. АДАПТЕРЫ ---
	fetcherLogger := baseLogger.WithFields(port.Fields{"component": "listing_api"})
	fetcher, err := listingapi.NewListingAPIAdapter(
		appConfig.Source.BaseURL,
		rand.New(rand.NewSource(time.Now().UnixNano())),
		fetcherLogger,
	)
	if err != nil {
		eventProducer.Close()
		dbPool.Close()
		return nil, fmt.Errorf("failed to create listing API adapter: %w", err)
	}

	listingStorage, err := postgres.NewPostgresListingStorageAdapter(dbPool)
	if err != nil {
		eventProducer.Close()
		dbPool.Close()
		return nil, err
	}
	listingQuery, err := postgres.NewPostgresListingQueryAdapter(dbPool)
	if err != nil {
		eventProducer.Close()
		dbPool.Close()
		return nil, err
	}
	filterRepo, err := postgres.NewPostgresFilterRepositoryAdapter(dbPool)
	if err != nil {
		eventProducer.Close()
		dbPool.Close()
		return nil, err
	}
	ledger, err := postgres.NewPostgresNotificationLedgerAdapter(dbPool)
	if err != nil {
		eventProducer.Close()
		dbPool.Close()
		return nil, err
	}
	digestRepo, err := postgres.NewPostgresDigestRepositoryAdapter(dbPool)
	if err != nil {
		eventProducer.Close()
		dbPool.Close()
		return nil, err
	}
	runRepo, err := postgres.NewPostgresRunRepositoryAdapter(dbPool)
	if err != nil {
		eventProducer.Close()
		dbPool.Close()
		return nil, err
	}

	eventsQueue, err := rabbitmq_adapter.NewRabbitMQListingEventsAdapter(eventProducer)
	if err != nil {
		eventProducer.Close()
		dbPool.Close()
		return nil, err
	}
	messageSink, err := telegram.NewTelegramSenderAdapter(botAPI)
	if err != nil {
		eventProducer.Close()
		dbPool.Close()
		return nil, err
	}

	appLogger.Info("All adapters initialized", nil)

	// --- 4. USE CASES ---
	routeNotificationsUseCase := usecase.NewRouteNotificationsUseCase(filterRepo, ledger, digestRepo, messageSink)
	sendDailyDigestUseCase := usecase.NewSendDailyDigestUseCase(digestRepo, messageSink)
	monitorListingsUseCase := usecase.NewMonitorListingsUseCase(
		fetcher,
		listingStorage,
		runRepo,
		eventsQueue,
		routeNotificationsUseCase,
		rand.New(rand.NewSource(time.Now().UnixNano())),
	)

	appLogger.Info("All use cases initialized", nil)

	// --- 5. ПЛАНИРОВЩИК И REST API ---
	monitorScheduler, err := scheduler.NewScheduler(
		monitorListingsUseCase,
		sendDailyDigestUseCase,
		scheduler.Config{
			MinInterval: time.Duration(appConfig.Monitor.MinIntervalMinutes) * time.Minute,
			MaxInterval: time.Duration(appConfig.Monitor.MaxIntervalMinutes) * time.Minute,
			DigestHour:  appConfig.Monitor.DailyDigestHour,
		},
		rand.New(rand.NewSource(time.Now().UnixNano())),
		baseLogger,
	)
	if err != nil {
		eventProducer.Close()
		dbPool.Close()
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	apiHandlers := rest.NewMonitorHandlers(listingQuery, filterRepo, runRepo, monitorScheduler)
	apiServer := rest.NewServer(appConfig.RESTPort, apiHandlers, baseLogger)

	application := &App{
		config:        appConfig,
		apiServer:     apiServer,
		scheduler:     monitorScheduler,
		dbPool:        dbPool,
		eventProducer: eventProducer,
		logger:        appLogger,
		fluentClient:  fluentClient,
	}

	return application, nil
}

// Run запускает все компоненты приложения и управляет их жизненным циклом.
func (a *App) Run() error {
	appCtx, cancelApp := context.WithCancel(context.Background())

	defer func() {
		a.logger.Info("Shutdown sequence initiated...", nil)

		if a.apiServer != nil {
			if err := a.apiServer.Stop(context.Background()); err != nil {
				a.logger.Error("Error during API server shutdown", err, nil)
			}
		}

		if a.scheduler != nil {
			a.scheduler.Stop()
		}

		if a.eventProducer != nil {
			if err := a.eventProducer.Close(); err != nil {
				a.logger.Error("Error closing event producer", err, nil)
			}
		}

		if a.dbPool != nil {
			a.dbPool.Close()
		}

		a.logger.Info("Application shut down gracefully.", nil)

		if a.fluentClient != nil {
			if err := a.fluentClient.Close(); err != nil {
				// Логируем в stdout, так как fluent может быть уже недоступен
				fmt.Printf("ERROR: Error closing fluent client: %v\n", err)
			}
		}
	}()

	a.logger.Info("Application is starting...", nil)

	schedulerCtx := contextkeys.ContextWithLogger(appCtx, a.logger)
	if err := a.scheduler.Start(schedulerCtx); err != nil {
		cancelApp()
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	serverErrors := make(chan error, 1)
	go func() {
		a.logger.Info("Starting HTTP server...", port.Fields{"port": a.config.RESTPort})
		if err := a.apiServer.Start(); err != nil && err != http.ErrServerClosed {
			serverErrors <- fmt.Errorf("failed to start HTTP server: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	a.logger.Info("Application running. Waiting for signals or server error...", nil)
	select {
	case receivedSignal := <-quit:
		a.logger.Warn("Received OS signal, shutting down...", port.Fields{"signal": receivedSignal.String()})
	case <-appCtx.Done():
		a.logger.Warn("Context was cancelled unexpectedly, shutting down...", nil)
	case err := <-serverErrors:
		a.logger.Error("HTTP server failed to start, shutting down", err, nil)
	}

	cancelApp()

	return nil
}

func parseLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		log.Printf("Warning: Unknown log level '%s'. Defaulting to 'info'.", levelStr)
		return slog.LevelInfo
	}
}
