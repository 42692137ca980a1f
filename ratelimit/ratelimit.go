// Package ratelimit counts requests per key over a rolling window.
package ratelimit

import (
	"context"
	"strings"
	"time"
)

// Decision is the outcome of one Allow call
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// Reset is when the oldest counted request leaves the window
	Reset time.Time
	// RetryAfter is zero when Allowed
	RetryAfter time.Duration
}

// Limiter admits at most a fixed number of requests per key per window
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// IdentityKey maps a call identity to its limiter key. Identities are
// "{userId}-{suffix}", so every device of one user shares a budget.
func IdentityKey(identity string) string {
	if i := strings.Index(identity, "-"); i >= 0 {
		return identity[:i]
	}
	return identity
}

// RetryAfterSeconds rounds a wait up to whole seconds, never below one
func RetryAfterSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
