package crawler

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// ErrNotHTML marks a 200 response whose content type is not HTML. It is
// never retried.
var ErrNotHTML = errors.New("response content type is not HTML")

// BadStatusError marks a response with a status other than 200. Transient
// server errors (5xx) land here too and are deliberately not retried; the
// backoff budget is reserved for transport-level failures.
type BadStatusError struct {
	Code int
}

func (e *BadStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// Retryable reports whether a fetch error is worth another attempt. Wrong
// status codes and non-HTML content are immediate misses; cancellation of
// the whole run is final; everything else (timeouts, connection resets, DNS
// failures) is transient.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var bad *BadStatusError
	if errors.As(err, &bad) {
		return false
	}
	if errors.Is(err, ErrNotHTML) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return true
}

// defaultBackoffBase matches the crawl's historical backoff growth curve.
const defaultBackoffBase = 600 * time.Millisecond

// BackoffPolicy produces exponentially growing delays between retry
// attempts, with bounded random jitter added at sleep time.
type BackoffPolicy struct {
	Base      time.Duration
	MaxJitter time.Duration
}

// NewBackoffPolicy builds a policy with the default base and the supplied
// jitter ceiling.
func NewBackoffPolicy(maxJitter time.Duration) BackoffPolicy {
	return BackoffPolicy{Base: defaultBackoffBase, MaxJitter: maxJitter}
}

// Delay returns the deterministic backoff before attempt+1: base * 2^attempt.
// It is pure so the schedule can be tested without sleeping.
func (p BackoffPolicy) Delay(attempt int) time.Duration {
	base := p.Base
	if base <= 0 {
		base = defaultBackoffBase
	}
	if attempt < 0 {
		attempt = 0
	}
	return base << uint(attempt)
}

// Sleep pauses for Delay(attempt) plus random jitter, returning early if the
// context ends.
func (p BackoffPolicy) Sleep(ctx context.Context, attempt int) {
	pause(ctx, p.Delay(attempt)+randomJitter(p.MaxJitter))
}

// randomJitter returns a uniform duration in [0, limit).
func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(limit)))
}

// pause sleeps for delay, honoring context cancellation.
func pause(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Pause applies the politeness delay before a fetch: the base delay plus
// bounded random jitter.
func Pause(ctx context.Context, base, maxJitter time.Duration) {
	pause(ctx, base+randomJitter(maxJitter))
}
