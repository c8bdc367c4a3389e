package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"rent-monitor-service/internal/contextkeys"
	"rent-monitor-service/internal/core/domain"
	"rent-monitor-service/internal/core/port"
	usecases_port "rent-monitor-service/internal/core/port/usecases"
)

// Scheduler владеет временем процесса: гоняет прогоны мониторинга со
// случайным интервалом и отправляет дневной дайджест по cron-расписанию.
// Одновременно идет не больше одного прогона - это инвариант планировщика,
// а не цикла мониторинга.
type Scheduler struct {
	monitor usecases_port.MonitorListingsUseCasePort
	digest  usecases_port.SendDailyDigestUseCasePort
	logger  port.LoggerPort

	minInterval time.Duration
	maxInterval time.Duration
	digestHour  int

	rng *rand.Rand

	mu      sync.Mutex
	running bool

	baseCtx context.Context
	cron    *cron.Cron
	wg      sync.WaitGroup
}

type Config struct {
	MinInterval time.Duration
	MaxInterval time.Duration
	DigestHour  int
}

// NewScheduler создает планировщик. rng нужен для джиттера интервалов:
// регулярная периодичность запросов - тоже сигнатура бота.
func NewScheduler(
	monitor usecases_port.MonitorListingsUseCasePort,
	digest usecases_port.SendDailyDigestUseCasePort,
	cfg Config,
	rng *rand.Rand,
	logger port.LoggerPort,
) (*Scheduler, error) {
	if cfg.MinInterval <= 0 || cfg.MaxInterval < cfg.MinInterval {
		return nil, fmt.Errorf("scheduler: invalid interval range [%s, %s]", cfg.MinInterval, cfg.MaxInterval)
	}
	if cfg.DigestHour < 0 || cfg.DigestHour > 23 {
		return nil, fmt.Errorf("scheduler: digest hour must be in [0, 23], got %d", cfg.DigestHour)
	}
	return &Scheduler{
		monitor:     monitor,
		digest:      digest,
		logger:      logger.WithFields(port.Fields{"component": "scheduler"}),
		minInterval: cfg.MinInterval,
		maxInterval: cfg.MaxInterval,
		digestHour:  cfg.DigestHour,
		rng:         rng,
	}, nil
}

// Start запускает цикл прогонов и cron дайджеста. Не блокирует.
func (s *Scheduler) Start(ctx context.Context) error {
	s.baseCtx = ctx

	s.cron = cron.New()
	spec := fmt.Sprintf("0 %d * * *", s.digestHour)
	if _, err := s.cron.AddFunc(spec, func() { s.runDigest(ctx) }); err != nil {
		return fmt.Errorf("scheduler: failed to schedule daily digest: %w", err)
	}
	s.cron.Start()

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("Scheduler started", port.Fields{
		"min_interval": s.minInterval.String(),
		"max_interval": s.maxInterval.String(),
		"digest_cron":  spec,
	})
	return nil
}

// Stop останавливает cron и дожидается завершения запущенных горутин.
// Сам прогон прерывается отменой контекста, переданного в Start.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		cronCtx := s.cron.Stop()
		<-cronCtx.Done()
	}
	s.wg.Wait()
	s.logger.Info("Scheduler stopped", nil)
}

// TryRunNow запускает внеочередной прогон в фоне.
// Возвращает domain.ErrRunInFlight, если прогон уже идет.
func (s *Scheduler) TryRunNow() error {
	if !s.tryAcquire() {
		return domain.ErrRunInFlight
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.release()
		s.executeRun(s.baseCtx, "manual")
	}()
	return nil
}

func (s *Scheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()

	// Первый прогон сразу после старта
	s.acquireAndRun(ctx, "startup")

	for {
		interval := s.nextInterval()
		s.logger.Info("Next monitoring run scheduled", port.Fields{"in": interval.String()})

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		s.acquireAndRun(ctx, "interval")
	}
}

// acquireAndRun выполняет прогон, если слот свободен. Занятый слот означает,
// что идет ручной прогон - плановый просто пропускается.
func (s *Scheduler) acquireAndRun(ctx context.Context, trigger string) {
	if !s.tryAcquire() {
		s.logger.Warn("Skipping scheduled run: another run is in progress", port.Fields{"trigger": trigger})
		return
	}
	defer s.release()
	s.executeRun(ctx, trigger)
}

func (s *Scheduler) executeRun(ctx context.Context, trigger string) {
	if ctx.Err() != nil {
		return
	}

	runLogger := s.logger.WithFields(port.Fields{"trigger": trigger})
	runCtx := contextkeys.ContextWithLogger(ctx, runLogger)

	record, err := s.monitor.Execute(runCtx)
	if err != nil {
		runLogger.Error("Monitoring run failed", err, nil)
		return
	}
	runLogger.Info("Monitoring run completed", port.Fields{
		"run_id":      record.ID.String(),
		"stop_reason": string(record.StopReason),
	})
}

func (s *Scheduler) runDigest(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	digestLogger := s.logger.WithFields(port.Fields{"trigger": "cron"})
	digestCtx := contextkeys.ContextWithLogger(ctx, digestLogger)

	recipients, err := s.digest.Execute(digestCtx)
	if err != nil {
		digestLogger.Error("Daily digest failed", err, nil)
		return
	}
	digestLogger.Info("Daily digest completed", port.Fields{"recipients": recipients})
}

func (s *Scheduler) tryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *Scheduler) release() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

func (s *Scheduler) nextInterval() time.Duration {
	spread := s.maxInterval - s.minInterval
	if spread <= 0 {
		return s.minInterval
	}
	s.mu.Lock()
	jitter := time.Duration(s.rng.Int63n(int64(spread)))
	s.mu.Unlock()
	return s.minInterval + jitter
}
