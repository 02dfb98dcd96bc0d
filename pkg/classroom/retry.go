package classroom

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/api/googleapi"
)

// DefaultRetries is the number of times a failed request is re-sent before
// its error is classified.
const DefaultRetries = 3

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// Retries is the number of extra attempts after the first request.
	Retries int

	// InitialBackoff is the wait before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff caps the wait between attempts.
	MaxBackoff time.Duration

	// BackoffMultiplier grows the wait after every retry.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Retries:           DefaultRetries,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// isRetryable reports whether err is a transient failure worth re-sending:
// throttling, 5xx responses and network errors. Context cancellation is never retried.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			return true
		case apiErr.Code >= 500:
			return true
		case apiErr.Code == http.StatusForbidden:
			for _, item := range apiErr.Errors {
				if item.Reason == "rateLimitExceeded" || item.Reason == "userRateLimitExceeded" {
					return true
				}
			}
		}
		return false
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// retryWithBackoff runs fn until it succeeds, fails with a non-retryable
// error, or the retries are used up. The last error is returned as is.
func retryWithBackoff(ctx context.Context, cfg RetryConfig, resource string, logger zerolog.Logger, fn func() error) error {
	backoff := cfg.InitialBackoff
	attempts := cfg.Retries + 1

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				logger.Info().
					Str("resource", resource).
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}

		lastErr = err
		if !isRetryable(err) {
			return err
		}
		if attempt >= attempts {
			break
		}

		classroomRetriesTotal.WithLabelValues(resource).Inc()

		// ±20% jitter
		wait := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))

		logger.Warn().
			Err(err).
			Str("resource", resource).
			Int("attempt", attempt).
			Dur("backoff", wait).
			Msg("Retrying request after backoff")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		backoff = time.Duration(float64(backoff) * cfg.BackoffMultiplier)
		if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}

	if attempts > 1 {
		classroomRetryExhaustedTotal.WithLabelValues(resource).Inc()
		logger.Warn().
			Str("resource", resource).
			Int("max_attempts", attempts).
			Msg("Retry attempts exhausted")
	}

	return lastErr
}
