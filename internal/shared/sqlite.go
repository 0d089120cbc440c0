// Package shared provides common utilities used across the codebase.
//
//nolint:revive // "shared" is an intentional package name for cross-cutting helpers.
package shared

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// RetryPolicy controls RetryOnConflict.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
}

// DefaultRetryPolicy backs off 100ms, 200ms between three attempts.
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, BaseDelay: 100 * time.Millisecond}

// IsSQLiteConflictError reports whether err is a SQLITE_BUSY or "database is locked"
// error. Both are concurrency errors that usually succeed on retry.
func IsSQLiteConflictError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// RetryOnConflict runs fn with DefaultRetryPolicy.
func RetryOnConflict(ctx context.Context, op string, fn func() error) error {
	return DefaultRetryPolicy.Do(ctx, op, fn)
}

// Do runs fn until it succeeds, fails with a non-conflict error, or runs out of attempts.
// The delay doubles after every conflicting attempt.
func (p RetryPolicy) Do(ctx context.Context, op string, fn func() error) error {
	attempts := max(p.Attempts, 1)

	var err error
	for i := range attempts {
		err = fn()
		if err == nil {
			return nil
		}
		if !IsSQLiteConflictError(err) || i == attempts-1 {
			break
		}

		delay := p.BaseDelay * time.Duration(1<<i)
		slog.Debug("SQLite conflict, retrying", "op", op, "attempt", i+1, "delay", delay)

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(delay):
		}
	}

	if IsSQLiteConflictError(err) {
		return fmt.Errorf("%s after %d attempts: %w", op, attempts, err)
	}
	return err
}
