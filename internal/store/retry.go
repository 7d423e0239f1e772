package store

import (
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// newWriteBackoff returns the retry policy for writes that hit a busy
// or locked database. WAL mode makes these windows short, so the total
// budget is small.
func newWriteBackoff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 10 * time.Millisecond
	bo.MaxInterval = 250 * time.Millisecond
	bo.MaxElapsedTime = 3 * time.Second
	return bo
}

// isBusyErr reports whether the error is a transient SQLITE_BUSY or
// SQLITE_LOCKED condition worth retrying.
func isBusyErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "SQLITE_LOCKED")
}

// withRetry runs fn, retrying transient busy errors and failing fast on
// everything else.
func withRetry(fn func() error) error {
	return backoff.Retry(func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if isBusyErr(err) {
			return err
		}
		return backoff.Permanent(err)
	}, newWriteBackoff())
}
