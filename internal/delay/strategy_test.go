package delay

import (
	"testing"
	"time"
)

func TestFixedStrategy(t *testing.T) {
	s := FixedStrategy{}

	for _, attempt := range []int{0, 1, 5, 100} {
		if got := s.Calculate(attempt, 100*time.Millisecond); got != 100*time.Millisecond {
			t.Errorf("attempt %d: got %v, want 100ms", attempt, got)
		}
	}

	if got := s.Calculate(1, -time.Second); got != 0 {
		t.Errorf("negative base: got %v, want 0", got)
	}
}

func TestLinearRiseStrategy(t *testing.T) {
	s := LinearRiseStrategy{}

	tests := []struct {
		attempt int
		base    time.Duration
		want    time.Duration
	}{
		{1, 100 * time.Millisecond, 100 * time.Millisecond},
		{2, 100 * time.Millisecond, 200 * time.Millisecond},
		{3, 100 * time.Millisecond, 300 * time.Millisecond},
		{0, 100 * time.Millisecond, 100 * time.Millisecond},
		{-5, 100 * time.Millisecond, 100 * time.Millisecond},
		{1, -time.Second, 0},
	}

	for _, tt := range tests {
		if got := s.Calculate(tt.attempt, tt.base); got != tt.want {
			t.Errorf("Calculate(%d, %v) = %v, want %v", tt.attempt, tt.base, got, tt.want)
		}
	}
}

func TestForRise(t *testing.T) {
	if _, ok := ForRise(true).(LinearRiseStrategy); !ok {
		t.Error("ForRise(true) should pick the linear strategy")
	}
	if _, ok := ForRise(false).(FixedStrategy); !ok {
		t.Error("ForRise(false) should pick the fixed strategy")
	}
}
