package errors

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"pearl/internal/logging"
)

// RetryConfig configures bounded retry with exponential backoff.
type RetryConfig struct {
	MaxAttempts  int           // Maximum number of retry attempts (default: 3)
	BaseDelay    time.Duration // Base delay for exponential backoff (default: 500ms)
	MaxDelay     time.Duration // Maximum delay between retries (default: 8s)
	JitterFactor float64       // Jitter factor for randomization (default: 0.25 = ±25%)
}

// DefaultRetryConfig returns the defaults used for reasoning-endpoint calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		BaseDelay:    500 * time.Millisecond,
		MaxDelay:     8 * time.Second,
		JitterFactor: 0.25,
	}
}

// RetryWithResult executes fn with retry on transient errors. Permanent
// errors and context cancellation stop the loop immediately.
func RetryWithResult[T any](ctx context.Context, config RetryConfig, logger logging.Logger, fn func(ctx context.Context) (T, error)) (T, error) {
	logger = logging.OrNop(logger)

	var lastErr error
	var zero T

	for attempt := 0; attempt <= config.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("retry aborted: %w", ctx.Err())
		default:
		}

		result, err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				logger.Info("Retry succeeded on attempt %d/%d", attempt+1, config.MaxAttempts+1)
			}
			return result, nil
		}

		lastErr = err
		if !IsTransient(err) {
			logger.Debug("Error is not transient, stopping retries: %v", err)
			return zero, err
		}

		if attempt == config.MaxAttempts {
			logger.Warn("Max retries (%d) exhausted: %v", config.MaxAttempts+1, err)
			break
		}

		delay := backoffDelay(attempt, config)
		logger.Debug("Attempt %d failed (%v), retrying in %v", attempt+1, err, delay)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, fmt.Errorf("retry aborted during backoff: %w", ctx.Err())
		}
	}

	return zero, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// backoffDelay computes exponential backoff with jitter for the given attempt.
func backoffDelay(attempt int, config RetryConfig) time.Duration {
	delay := time.Duration(float64(config.BaseDelay) * math.Pow(2, float64(attempt)))
	if delay > config.MaxDelay {
		delay = config.MaxDelay
	}

	if config.JitterFactor > 0 {
		jitter := float64(delay) * config.JitterFactor
		delay = time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)
		if delay < 0 {
			delay = config.BaseDelay
		}
		if delay > config.MaxDelay {
			delay = config.MaxDelay
		}
	}

	return delay
}
