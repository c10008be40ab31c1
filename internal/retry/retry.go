package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/loykin/graphmigrate/internal/common"
	"github.com/loykin/graphmigrate/internal/constants"
)

// Config holds configuration for retrying operations against a backend
type Config struct {
	MaxRetries      int           // Maximum number of retry attempts
	InitialDelay    time.Duration // Initial delay before first retry
	MaxDelay        time.Duration // Maximum delay between retries
	BackoffFactor   float64       // Multiplier for exponential backoff
	RetryableErrors []string      // Error strings that trigger retries
}

// connectionErrorPhrases are the failure fragments recognized as broken
// connections. Matching is substring-based on the lowercased error text.
var connectionErrorPhrases = []string{
	"connection terminated",
	"connection refused",
	"connection reset",
	"connection closed",
	"connection lost",
	"broken pipe",
	"timeout",
	"network error",
}

// DefaultConfig returns a sensible default retry configuration
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:      constants.DefaultMaxRetries,
		InitialDelay:    constants.DefaultRetryBase,
		MaxDelay:        constants.DefaultRetryCap,
		BackoffFactor:   constants.DefaultRetryBackoff,
		RetryableErrors: connectionErrorPhrases,
	}
}

// IsConnectionError reports whether an error looks like a broken or refused
// network connection rather than a logical failure.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	errStr := strings.ToLower(err.Error())
	for _, phrase := range connectionErrorPhrases {
		if strings.Contains(errStr, phrase) {
			return true
		}
	}
	return false
}

// isRetryableError checks if an error should trigger a retry
func (rc *Config) isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// Context cancellation is never retried
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	errStr := strings.ToLower(err.Error())
	for _, retryableErr := range rc.RetryableErrors {
		if strings.Contains(errStr, retryableErr) {
			return true
		}
	}

	return false
}

// Delay calculates the wait before a given retry attempt using exponential
// backoff capped at MaxDelay. Attempt numbering starts at 1.
func (rc *Config) Delay(attempt int) time.Duration {
	if attempt <= 1 {
		return rc.InitialDelay
	}

	delay := time.Duration(float64(rc.InitialDelay) * math.Pow(rc.BackoffFactor, float64(attempt-1)))
	if delay > rc.MaxDelay {
		delay = rc.MaxDelay
	}
	return delay
}

// Operation represents a backend operation that can be retried
type Operation func() error

// WithRetry executes an operation with retry logic
func WithRetry(ctx context.Context, config *Config, operation Operation) error {
	if config == nil {
		config = DefaultConfig()
	}

	logger := common.GetLogger().WithComponent("retry")

	var lastErr error
	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		err := operation()
		if err == nil {
			if attempt > 0 {
				logger.Info("operation succeeded after retry",
					"attempt", attempt+1,
					"total_attempts", config.MaxRetries+1)
			}
			return nil
		}

		lastErr = err

		if attempt == config.MaxRetries {
			break
		}

		if !config.isRetryableError(err) {
			logger.Debug("operation failed with non-retryable error",
				"error", err,
				"attempt", attempt+1)
			return err
		}

		delay := config.Delay(attempt + 1)
		logger.Warn("operation failed, retrying",
			"error", err,
			"attempt", attempt+1,
			"max_attempts", config.MaxRetries+1,
			"retry_delay", delay)

		select {
		case <-ctx.Done():
			return fmt.Errorf("operation cancelled during retry: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	logger.Error("operation failed after all retry attempts",
		"error", lastErr,
		"attempts", config.MaxRetries+1)

	return fmt.Errorf("operation failed after %d attempts: %w", config.MaxRetries+1, lastErr)
}
