// Package delay computes retry backoff delays from a 1-indexed attempt
// number and a base duration.
package delay

import "time"

// Strategy defines the interface for delay calculation algorithms.
type Strategy interface {
	// Calculate returns the delay before the given attempt. Attempt numbers
	// are 1-indexed; values below 1 are clamped.
	Calculate(attempt int, base time.Duration) time.Duration
}

// FixedStrategy keeps the delay constant across attempts.
type FixedStrategy struct{}

// Calculate implements the Strategy interface for a constant delay.
func (s FixedStrategy) Calculate(attempt int, base time.Duration) time.Duration {
	if base < 0 {
		return 0
	}
	return base
}

// LinearRiseStrategy scales the base delay linearly by the attempt number:
// attempt k waits base*k.
type LinearRiseStrategy struct{}

// Calculate implements the Strategy interface for linear scaling.
func (s LinearRiseStrategy) Calculate(attempt int, base time.Duration) time.Duration {
	if base < 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}
	d := base * time.Duration(attempt)
	if d < 0 {
		// Overflow from extreme attempt counts falls back to the base delay.
		return base
	}
	return d
}

// ForRise returns the strategy matching the retryDelayRise flag.
func ForRise(rise bool) Strategy {
	if rise {
		return LinearRiseStrategy{}
	}
	return FixedStrategy{}
}
