package datastore

import (
	"context"
	"math/rand"
	"regexp"
	"sync"
	"time"

	"github.com/mangocats/wkmp/internal/wkmperrors"
)

var (
	onceRegex     sync.Once
	lockPattern   *regexp.Regexp
	deadlockPattern *regexp.Regexp
)

func initRegexPatterns() {
	onceRegex.Do(func() {
		lockPattern = regexp.MustCompile(`(?i)(database is locked|locked|resource busy)`)
		deadlockPattern = regexp.MustCompile(`(?i)(deadlock detected|lock wait timeout|deadlock found)`)
	})
}

// isTransient reports whether err looks like a lock/deadlock condition that
// is worth retrying, per §7's "database locked" transient-external kind.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	initRegexPatterns()
	msg := err.Error()
	return lockPattern.MatchString(msg) || deadlockPattern.MatchString(msg)
}

func dbError(err error, operation string) error {
	category := wkmperrors.CategoryDatabase
	if isTransient(err) {
		category = wkmperrors.CategoryTransientExternal
	}
	return wkmperrors.New(err).
		Component("datastore").
		Category(category).
		Context("operation", operation).
		Build()
}

// withRetry runs fn up to maxAttempts times, retrying only on a transient
// (lock/deadlock) error, with jittered exponential backoff. Non-transient
// errors return immediately.
func withRetry(ctx context.Context, maxAttempts int, fn func() error) error {
	var lastErr error
	backoff := 20 * time.Millisecond
	for attempt := 0; attempt < maxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil || !isTransient(lastErr) {
			return lastErr
		}
		jittered := backoff + time.Duration(rand.Int63n(int64(backoff)))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(jittered):
		}
		backoff *= 2
	}
	return lastErr
}
