package backoff

import (
	"time"
)

// Calculator provides backoff calculation using configurable strategies.
// This centralizes backoff logic that was previously duplicated across Client and DefaultRetryPolicy.
type Calculator struct {
	strategy Strategy
}

// NewCalculator creates a new backoff calculator with the specified strategy.
func NewCalculator(strategy Strategy) *Calculator {
	return &Calculator{
		strategy: strategy,
	}
}

// Calculate computes the backoff duration for the given attempt and parameters.
// It delegates to the configured strategy for the actual calculation.
func (c *Calculator) Calculate(attempt int, initialBackoff, maxBackoff time.Duration, multiplier, jitter float64) time.Duration {
	return c.strategy.Calculate(attempt, initialBackoff, maxBackoff, multiplier, jitter)
}