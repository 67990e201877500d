package retry

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/kris-hansen/runa/utils/config"
)

// RetryConfig holds configuration for retry operations
type RetryConfig struct {
	MaxRetries  int           // Maximum number of retry attempts
	InitialWait time.Duration // Initial wait time before first retry
	MaxWait     time.Duration // Maximum wait time between retries
	Factor      float64       // Exponential backoff factor
}

// DefaultRetryConfig is used for remote template fetches
var DefaultRetryConfig = RetryConfig{
	MaxRetries:  3,
	InitialWait: 500 * time.Millisecond,
	MaxWait:     10 * time.Second,
	Factor:      2.0,
}

// Hinted is implemented by errors that carry a server-provided retry delay.
type Hinted interface {
	RetryAfter() time.Duration
}

// Do executes operation, retrying while shouldRetry reports true for the
// returned error. Waits grow exponentially up to MaxWait; a RetryAfter hint
// on the error overrides the computed wait.
func Do[T any](ctx context.Context, cfg RetryConfig, shouldRetry func(error) bool, operation func() (T, error)) (T, error) {
	var zero T
	wait := cfg.InitialWait

	for attempt := 0; ; attempt++ {
		result, err := operation()
		if err == nil || !shouldRetry(err) {
			return result, err
		}
		if attempt >= cfg.MaxRetries {
			return zero, fmt.Errorf("operation failed after %d retries: %w", cfg.MaxRetries, err)
		}

		retryWait := time.Duration(math.Min(float64(wait), float64(cfg.MaxWait)))
		if h, ok := err.(Hinted); ok && h.RetryAfter() > 0 {
			retryWait = h.RetryAfter()
		}
		cfg.DebugLog("Retryable error: %v. Retrying in %v (attempt %d/%d)", err, retryWait, attempt+1, cfg.MaxRetries)

		timer := time.NewTimer(retryWait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
		wait = time.Duration(float64(wait) * cfg.Factor)
	}
}

// IsTransient reports whether an error message looks like a rate limit or
// a temporary server failure.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"429", "rate limit", "too many requests", "502", "503", "504", "timeout", "connection reset"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// ParseRetryAfter reads a Retry-After header value given in seconds.
// Returns 0 if no delay could be extracted.
func ParseRetryAfter(value string) time.Duration {
	var seconds int
	if _, err := fmt.Sscanf(strings.TrimSpace(value), "%d", &seconds); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return 0
}

// DebugLog logs retry details when debug output is enabled
func (c RetryConfig) DebugLog(format string, args ...interface{}) {
	config.DebugLog("[Retry] "+format, args...)
}
