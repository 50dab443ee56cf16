package server

import (
	"math"
	"testing"
)

func TestExponentialDecayAtFullHealthIsBaseRateOnly(t *testing.T) {
	got := ExponentialDecay(100, 100, 1.0)
	if got != 95 {
		t.Fatalf("expected 95, got %v", got)
	}
}

func TestExponentialDecayGrowsWithMissingHealth(t *testing.T) {
	atFull := 100 - ExponentialDecay(100, 100, 1.0)
	atHalf := 50 - ExponentialDecay(50, 100, 1.0)
	if atHalf <= atFull {
		t.Fatalf("expected damage at half health (%v) to exceed damage at full health (%v)", atHalf, atFull)
	}
	expected := math.Max(0, 50-(BaseDecayRate+math.Pow(50, DecayExponent)))
	if got := ExponentialDecay(50, 100, 1.0); got != expected {
		t.Fatalf("expected %v, got %v", expected, got)
	}
}

func TestExponentialDecayClampsAtZero(t *testing.T) {
	if got := ExponentialDecay(1, 100, 1.0); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}

func TestExponentialDecayNonPositiveDtIsNoop(t *testing.T) {
	if got := ExponentialDecay(80, 100, 0); got != 80 {
		t.Fatalf("dt=0: expected 80, got %v", got)
	}
	if got := ExponentialDecay(80, 100, -1); got != 80 {
		t.Fatalf("dt<0: expected 80, got %v", got)
	}
}

func TestExponentialDecayZeroMaxHealthDegeneratesToBaseRate(t *testing.T) {
	if got := ExponentialDecay(20, 0, 1.0); got != 15 {
		t.Fatalf("expected 15, got %v", got)
	}
}

func TestLinearRecoveryTenPercentOfMaxPerSecond(t *testing.T) {
	if got := LinearRecovery(50, 100, 2.0); got != 70 {
		t.Fatalf("expected 70, got %v", got)
	}
}

func TestLinearRecoveryIndependentOfCurrentHealth(t *testing.T) {
	lowGain := LinearRecovery(10, 100, 1.0) - 10
	highGain := LinearRecovery(80, 100, 1.0) - 80
	if lowGain != highGain {
		t.Fatalf("expected equal recovery, got %v vs %v", lowGain, highGain)
	}
}

func TestLinearRecoveryClampsAtMaxHealth(t *testing.T) {
	if got := LinearRecovery(95, 100, 1.0); got != 100 {
		t.Fatalf("expected 100, got %v", got)
	}
}

func TestLinearRecoveryNonPositiveDtIsNoop(t *testing.T) {
	if got := LinearRecovery(50, 100, 0); got != 50 {
		t.Fatalf("dt=0: expected 50, got %v", got)
	}
	if got := LinearRecovery(50, 100, -2); got != 50 {
		t.Fatalf("dt<0: expected 50, got %v", got)
	}
}

func TestLinearRecoveryZeroMaxHealthIsSafe(t *testing.T) {
	if got := LinearRecovery(0, 0, 1.0); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}
