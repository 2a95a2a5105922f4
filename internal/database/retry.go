package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"strings"
	"syscall"
	"time"

	"github.com/mantonx/shelfsync/internal/logger"
)

// DefaultRetryAttempts bounds WithRetry when callers pass zero.
const DefaultRetryAttempts = 3

// WithRetry runs fn, retrying when it fails with a transient connection
// error. Only wrap idempotent work; inserts are never retried.
func WithRetry(ctx context.Context, attempts int, fn func() error) error {
	if attempts < 1 {
		attempts = DefaultRetryAttempts
	}

	var err error
	backoff := 50 * time.Millisecond
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn()
		if err == nil || !IsTransient(err) || attempt == attempts {
			return err
		}
		logger.Warn("transient database error, retrying", "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}

// IsTransient reports whether err looks like a dropped or refused connection.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "bad connection")
}
