package client

import (
	"context"
	"time"
)

// RetryConfig holds the connectivity retry policy.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// BackoffBase is the delay unit; retry n waits BackoffBase * Multiplier^n.
	BackoffBase time.Duration

	// BackoffMultiplier is applied once per retry.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the production policy: two retries, waiting
// 2s then 4s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        2,
		BackoffBase:       time.Second,
		BackoffMultiplier: 2.0,
	}
}

// Backoff returns the delay before retry number retries (1-based).
func (r RetryConfig) Backoff(retries int) time.Duration {
	multiplier := 1.0
	for i := 0; i < retries; i++ {
		multiplier *= r.BackoffMultiplier
	}
	return time.Duration(float64(r.BackoffBase) * multiplier)
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
