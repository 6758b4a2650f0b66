// Package retry provides generic retry logic with exponential backoff for
// transient failures, plus a classifier tuned for relay client calls: network
// hiccups and server errors retry, domain rejections never do.
package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/BuFi007/autopay-go"
)

// Config holds retry configuration.
type Config struct {
	MaxAttempts  int           // Maximum number of attempts (including initial attempt)
	InitialDelay time.Duration // Initial delay between retries
	MaxDelay     time.Duration // Maximum delay between retries
	Multiplier   float64       // Multiplier for exponential backoff
}

// DefaultConfig provides sensible defaults for retry operations.
var DefaultConfig = Config{
	MaxAttempts:  3,
	InitialDelay: 100 * time.Millisecond,
	MaxDelay:     5 * time.Second,
	Multiplier:   2.0,
}

// IsRetryable determines if an error should trigger a retry.
type IsRetryable func(error) bool

// StatusError carries an HTTP status from a failed API call so the
// classifier can tell server trouble from client mistakes.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Transient reports whether an error is worth retrying. Network errors and
// 5xx responses are; anything the relay rejected on the merits is not.
// A rejected signature or stale nonce will not pass on a second attempt.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, autopay.ErrInvalidSignature) ||
		errors.Is(err, autopay.ErrNonceMismatch) ||
		errors.Is(err, autopay.ErrInvalidRequest) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return false
}

// WithRetry executes a function with retry logic using generics for type safety.
// It applies exponential backoff with configurable parameters and respects
// context cancellation.
func WithRetry[T any](
	ctx context.Context,
	config Config,
	isRetryable IsRetryable,
	fn func() (T, error),
) (T, error) {
	var zero T
	var lastErr error
	delay := config.InitialDelay

	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("context cancelled: %w", err)
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}

		lastErr = err

		if !isRetryable(err) {
			return zero, err
		}

		// Don't sleep after the last attempt
		if attempt < config.MaxAttempts-1 {
			select {
			case <-time.After(delay):
				delay = time.Duration(float64(delay) * config.Multiplier)
				if delay > config.MaxDelay {
					delay = config.MaxDelay
				}
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}
	}

	return zero, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// WithSimpleRetry uses the default configuration and the Transient classifier.
func WithSimpleRetry[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	return WithRetry(ctx, DefaultConfig, Transient, fn)
}
