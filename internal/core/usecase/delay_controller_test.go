package usecase

import (
	"math/rand"
	"testing"
	"time"

	"rent-monitor-service/internal/core/domain"
)

func newTestController(mode domain.RunMode) *DelayController {
	return NewDelayController(DelayConfigForMode(mode), rand.New(rand.NewSource(1)))
}

func TestDelayControllerStartsAtModeBaseline(t *testing.T) {
	initial := newTestController(domain.RunModeInitial)
	low, high := initial.Bounds()
	if low != 1*time.Second || high != 3*time.Second {
		t.Errorf("initial baseline = (%v, %v), want (1s, 3s)", low, high)
	}

	monitoring := newTestController(domain.RunModeMonitoring)
	low, high = monitoring.Bounds()
	if low != 3*time.Second || high != 8*time.Second {
		t.Errorf("monitoring baseline = (%v, %v), want (3s, 8s)", low, high)
	}
}

func TestDelayControllerEscalatesOnBlock(t *testing.T) {
	dc := newTestController(domain.RunModeMonitoring)

	dc.Report(OutcomeBlocked)
	low, high := dc.Bounds()
	if low != 6*time.Second || high != 16*time.Second {
		t.Errorf("after one block bounds = (%v, %v), want (6s, 16s)", low, high)
	}

	dc.Report(OutcomeRateLimited)
	low, high = dc.Bounds()
	if low != 12*time.Second || high != 32*time.Second {
		t.Errorf("after second escalation bounds = (%v, %v), want (12s, 32s)", low, high)
	}
}

func TestDelayControllerBoundsNeverExceedCeiling(t *testing.T) {
	dc := newTestController(domain.RunModeMonitoring)
	ceiling := 300 * time.Second

	for i := 0; i < 50; i++ {
		dc.Report(OutcomeBlocked)
	}
	low, high := dc.Bounds()
	if high > ceiling {
		t.Errorf("high bound %v exceeds ceiling %v", high, ceiling)
	}
	if low > high {
		t.Errorf("low bound %v above high bound %v", low, high)
	}
}

func TestDelayControllerBoundsNeverBelowFloor(t *testing.T) {
	dc := newTestController(domain.RunModeMonitoring)

	// Долгая серия успехов не должна опустить диапазон ниже пола режима
	for i := 0; i < 500; i++ {
		dc.Report(OutcomeSuccess)
	}
	low, high := dc.Bounds()
	if low < 3*time.Second {
		t.Errorf("low bound %v fell below monitoring floor 3s", low)
	}
	if high < 8*time.Second {
		t.Errorf("high bound %v fell below monitoring floor 8s", high)
	}
}

func TestDelayControllerRelaxesAfterConsecutiveSuccesses(t *testing.T) {
	dc := newTestController(domain.RunModeMonitoring)

	for i := 0; i < 3; i++ {
		dc.Report(OutcomeBlocked)
	}
	escalatedLow, escalatedHigh := dc.Bounds()

	// Девять успехов - рано, десятый ослабляет
	for i := 0; i < 9; i++ {
		dc.Report(OutcomeSuccess)
	}
	low, high := dc.Bounds()
	if low != escalatedLow || high != escalatedHigh {
		t.Fatalf("bounds relaxed before success threshold: (%v, %v)", low, high)
	}

	dc.Report(OutcomeSuccess)
	low, high = dc.Bounds()
	if low >= escalatedLow || high >= escalatedHigh {
		t.Errorf("bounds did not relax after success streak: (%v, %v) vs (%v, %v)",
			low, high, escalatedLow, escalatedHigh)
	}
}

func TestDelayControllerBlockResetsSuccessStreak(t *testing.T) {
	dc := newTestController(domain.RunModeMonitoring)
	dc.Report(OutcomeBlocked)
	escalatedLow, escalatedHigh := dc.Bounds()

	for i := 0; i < 9; i++ {
		dc.Report(OutcomeSuccess)
	}
	dc.Report(OutcomeTransient) // рвет серию, но не расширяет диапазон
	low, high := dc.Bounds()
	if low != escalatedLow || high != escalatedHigh {
		t.Fatalf("transient must not move bounds: (%v, %v)", low, high)
	}

	// После сброса серии нужна полная новая серия; один успех недостаточен
	dc.Report(OutcomeSuccess)
	low, high = dc.Bounds()
	if low != escalatedLow || high != escalatedHigh {
		t.Errorf("bounds relaxed after broken streak: (%v, %v)", low, high)
	}
}

func TestDelayControllerNextDelayWithinBounds(t *testing.T) {
	dc := newTestController(domain.RunModeInitial)

	for i := 0; i < 1000; i++ {
		d := dc.NextDelay()
		low, high := dc.Bounds()
		if d < low || d > high {
			t.Fatalf("delay %v outside bounds (%v, %v)", d, low, high)
		}
	}
}
