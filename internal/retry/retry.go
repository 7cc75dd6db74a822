// Package retry re-runs batch operations that hit transient backend errors.
package retry

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"time"
)

// StatusCoder is implemented by errors that carry an HTTP status.
type StatusCoder interface {
	HTTPStatus() int
}

// Retry executes fn with exponential backoff until it succeeds, maxAttempts
// is reached or ctx is done. The backoff doubles after each failed attempt
// starting from initialBackoff. Non-retryable errors (like 404) return
// immediately.
func Retry(ctx context.Context, fn func() error, maxAttempts int, initialBackoff time.Duration) error {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastErr error
	backoff := initialBackoff

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) && !IsRateLimited(lastErr) {
			return lastErr
		}
		if attempt == maxAttempts {
			break
		}

		sleep := backoff
		if IsRateLimited(lastErr) {
			sleep = backoff * 2
		}
		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		case <-timer.C:
		}
		backoff *= 2
	}

	return lastErr
}

// IsRetryable reports whether err is transient: a timeout, a refused or
// reset connection, or a 5xx answer.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var sc StatusCoder
	if errors.As(err, &sc) && sc.HTTPStatus() != 0 {
		return sc.HTTPStatus() >= http.StatusInternalServerError
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// IsRateLimited reports whether err is a 429 answer.
func IsRateLimited(err error) bool {
	var sc StatusCoder
	return errors.As(err, &sc) && sc.HTTPStatus() == http.StatusTooManyRequests
}
