package uploader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bstardust/photo-meta/internal/logger"
	"github.com/bstardust/photo-meta/pkg/common"
	"github.com/bstardust/photo-meta/pkg/storage"
	"github.com/cenkalti/backoff/v4"
)

// RetryConfig defines retry behavior for operations that might fail transiently
type RetryConfig struct {
	// MaxRetries is the maximum number of retries before giving up
	MaxRetries int

	// InitialBackoff is the duration to wait before the first retry
	InitialBackoff time.Duration

	// MaxBackoff is the maximum duration to wait between retries
	MaxBackoff time.Duration

	// BackoffFactor is the factor by which to increase backoff after each retry
	BackoffFactor float64

	// RetryableErrors is a set of provider error codes that should be retried
	RetryableErrors map[string]bool
}

// DefaultRetryConfig returns a default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialBackoff:  500 * time.Millisecond,
		MaxBackoff:      10 * time.Second,
		BackoffFactor:   2.0,
		RetryableErrors: defaultRetryableErrors(),
	}
}

// defaultRetryableErrors returns common S3 error codes that should be retried
func defaultRetryableErrors() map[string]bool {
	return map[string]bool{
		"RequestTimeout":         true,
		"RequestTimeTooSkewed":   true,
		"InternalError":          true,
		"SlowDown":               true,
		"OperationAborted":       true,
		"ConnectionError":        true,
		"NetworkingError":        true,
		"ThrottlingException":    true,
		"ServiceUnavailable":     true,
		"RequestLimitExceeded":   true,
		"BandwidthLimitExceeded": true,
		"KMSThrottlingException": true,
	}
}

// IsRetryable determines if an error should be retried based on its type or message
func (rc RetryConfig) IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var cfgErr *common.ConfigError
	if errors.As(err, &cfgErr) || storage.IsAuthError(err) {
		return false
	}

	for errCode := range rc.RetryableErrors {
		if strings.Contains(err.Error(), errCode) {
			return true
		}
	}

	// Common transient error patterns
	lowerErr := strings.ToLower(err.Error())
	return strings.Contains(lowerErr, "timeout") ||
		strings.Contains(lowerErr, "connection") ||
		strings.Contains(lowerErr, "reset") ||
		strings.Contains(lowerErr, "broken pipe") ||
		strings.Contains(lowerErr, "network") ||
		strings.Contains(lowerErr, "unavailable")
}

// RetryWithBackoff retries fn with jittered exponential backoff until it
// succeeds, fails with a non-retryable error, exhausts MaxRetries or ctx ends.
func RetryWithBackoff(ctx context.Context, operation string, fn func() error, config RetryConfig) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%s canceled: %w", operation, ctx.Err())
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = config.InitialBackoff
	eb.MaxInterval = config.MaxBackoff
	eb.Multiplier = config.BackoffFactor
	eb.RandomizationFactor = 0.2
	eb.MaxElapsedTime = 0
	eb.Reset()

	maxRetries := config.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(maxRetries)), ctx)

	var attempt int
	var permanent bool

	op := func() error {
		attempt++
		if attempt > 1 {
			logger.Debug("Retry attempt %d/%d for %s", attempt-1, maxRetries, operation)
		}

		err := fn()
		if err == nil {
			return nil
		}

		if !config.IsRetryable(err) {
			logger.Warn("Non-retryable error for %s: %v", operation, err)
			permanent = true
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, d time.Duration) {
		logger.Debug("Backing off for %v before retrying %s: %v", d, operation, err)
	}

	err := backoff.RetryNotify(op, b, notify)
	switch {
	case err == nil:
		if attempt > 1 {
			logger.Info("Completed %s after %d retries", operation, attempt-1)
		}
		return nil
	case permanent:
		return err
	case ctx.Err() != nil:
		return fmt.Errorf("%s canceled during retry: %w", operation, ctx.Err())
	default:
		return fmt.Errorf("%s failed after %d attempts: %w", operation, attempt, err)
	}
}
