package usecase

import (
	"math/rand"
	"time"

	"rent-monitor-service/internal/constants"
	"rent-monitor-service/internal/core/domain"
)

// Outcome - результат одного обращения к источнику с точки зрения
// контроллера задержек.
type Outcome string

const (
	OutcomeSuccess     Outcome = "success"
	OutcomeBlocked     Outcome = "blocked"
	OutcomeRateLimited Outcome = "rate_limited"
	OutcomeTransient   Outcome = "transient_error"
)

// DelayControllerConfig - границы и коэффициенты управления задержкой.
type DelayControllerConfig struct {
	// FloorMin/FloorMax - базовый диапазон режима; ниже него диапазон
	// не опускается.
	FloorMin time.Duration
	FloorMax time.Duration
	// Ceiling - потолок верхней границы при эскалации.
	Ceiling time.Duration

	EscalationFactor     float64
	RelaxationFactor     float64
	SuccessesBeforeRelax int
}

// DelayConfigForMode возвращает базовый диапазон для режима прогона:
// initial обходит быстро (каталог еще пуст, терять нечего), monitoring -
// аккуратнее.
func DelayConfigForMode(mode domain.RunMode) DelayControllerConfig {
	cfg := DelayControllerConfig{
		Ceiling:              constants.DelayCeiling,
		EscalationFactor:     constants.DelayEscalationFactor,
		RelaxationFactor:     constants.DelayRelaxationFactor,
		SuccessesBeforeRelax: constants.SuccessesBeforeRelax,
	}
	if mode == domain.RunModeInitial {
		cfg.FloorMin = constants.InitialPageDelayMin
		cfg.FloorMax = constants.InitialPageDelayMax
	} else {
		cfg.FloorMin = constants.MonitoringPageDelayMin
		cfg.FloorMax = constants.MonitoringPageDelayMax
	}
	return cfg
}

// DelayController держит текущий диапазон задержки между страницами и
// двигает его по сигналам блокировок. Простой аддитивно-мультипликативный
// контур: детерминизм и ограниченная эскалация важнее оптимальности.
// Состояние живет только внутри одного прогона и нигде не сохраняется.
type DelayController struct {
	cfg DelayControllerConfig

	curMin time.Duration
	curMax time.Duration

	consecutiveBlocks    int
	consecutiveSuccesses int

	// rng инжектируется, чтобы тесты могли проверять границы детерминированно.
	rng *rand.Rand
}

// NewDelayController создает контроллер с базовым диапазоном режима.
func NewDelayController(cfg DelayControllerConfig, rng *rand.Rand) *DelayController {
	return &DelayController{
		cfg:    cfg,
		curMin: cfg.FloorMin,
		curMax: cfg.FloorMax,
		rng:    rng,
	}
}

// Bounds возвращает текущий включительный диапазон задержки.
func (dc *DelayController) Bounds() (low, high time.Duration) {
	return dc.curMin, dc.curMax
}

// NextDelay равномерно выбирает задержку из текущего диапазона.
func (dc *DelayController) NextDelay() time.Duration {
	if dc.curMax <= dc.curMin {
		return dc.curMin
	}
	return dc.curMin + time.Duration(dc.rng.Int63n(int64(dc.curMax-dc.curMin)+1))
}

// Report обновляет счетчики и диапазон по результату обращения.
func (dc *DelayController) Report(outcome Outcome) {
	switch outcome {
	case OutcomeBlocked, OutcomeRateLimited:
		dc.consecutiveBlocks++
		dc.consecutiveSuccesses = 0
		dc.escalate()
	case OutcomeTransient:
		// Временный сбой не повод расширять диапазон, но серию успехов рвет.
		dc.consecutiveSuccesses = 0
	case OutcomeSuccess:
		dc.consecutiveBlocks = 0
		dc.consecutiveSuccesses++
		if dc.consecutiveSuccesses >= dc.cfg.SuccessesBeforeRelax {
			dc.relax()
			dc.consecutiveSuccesses = 0
		}
	}
}

// escalate мультипликативно расширяет диапазон, не выходя за потолок.
func (dc *DelayController) escalate() {
	dc.curMin = clampDelay(scaleDelay(dc.curMin, dc.cfg.EscalationFactor), dc.cfg.FloorMin, dc.cfg.Ceiling)
	dc.curMax = clampDelay(scaleDelay(dc.curMax, dc.cfg.EscalationFactor), dc.cfg.FloorMax, dc.cfg.Ceiling)
}

// relax возвращает диапазон к базовому, никогда не опускаясь ниже пола режима.
func (dc *DelayController) relax() {
	dc.curMin = clampDelay(scaleDelay(dc.curMin, 1/dc.cfg.RelaxationFactor), dc.cfg.FloorMin, dc.cfg.Ceiling)
	dc.curMax = clampDelay(scaleDelay(dc.curMax, 1/dc.cfg.RelaxationFactor), dc.cfg.FloorMax, dc.cfg.Ceiling)
}

func scaleDelay(d time.Duration, factor float64) time.Duration {
	return time.Duration(float64(d) * factor)
}

func clampDelay(d, floor, ceiling time.Duration) time.Duration {
	if d < floor {
		return floor
	}
	if d > ceiling {
		return ceiling
	}
	return d
}
