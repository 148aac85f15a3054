package sqlite

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/jpatrickfarrell/jat-sub013/internal/core"
)

// RetryConfig controls exponential backoff retry behavior on lock
// contention. This is the one condition the engine retries; once the budget
// is spent the caller gets a retryable StoreBusyError.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	JitterPct  float64 // e.g. 0.25 for 25% jitter
}

// DefaultRetryConfig returns the default retry configuration:
// 7 retries, 50ms base, 25% jitter.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 7,
		BaseDelay:  50 * time.Millisecond,
		JitterPct:  0.25,
	}
}

// RetryOnBusy retries fn on SQLITE_BUSY errors using the default config.
func RetryOnBusy(fn func() error) error {
	return retryOnBusyInternal(DefaultRetryConfig(), fn, time.Sleep)
}

// RetryOnBusyWithConfig retries fn on SQLITE_BUSY errors using the given config.
func RetryOnBusyWithConfig(cfg RetryConfig, fn func() error) error {
	return retryOnBusyInternal(cfg, fn, time.Sleep)
}

func retryOnBusyInternal(cfg RetryConfig, fn func() error, sleepFn func(time.Duration)) error {
	err := fn()
	if err == nil {
		return nil
	}
	if !isBusy(err) {
		return err
	}

	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		delay := cfg.BaseDelay * (1 << (attempt - 1))
		jitter := time.Duration(float64(delay) * rand.Float64() * cfg.JitterPct)
		sleepFn(delay + jitter)

		err = fn()
		if err == nil {
			return nil
		}
		if !isBusy(err) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", core.ErrStoreBusy, err)
}

func isBusy(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "sqlite_busy")
}
