package remote

import (
	"sync"
	"time"

	"github.com/sakif/momentum-sync/internal/apperror"
)

// RateLimiter tracks requests against the backend's hourly quota and refuses
// new operations once the local safety budget is spent — before any network
// call is attempted. The backend would reject the call anyway; failing
// locally gives the user an accurate retry-after instead of an opaque 429.
//
// The limiter is owned by the Client that uses it. There is no package-level
// counter: constructing a second client gives it its own window, and tests
// inject a fake clock.
type RateLimiter struct {
	mu      sync.Mutex
	budget  int           // calls allowed per window
	window  time.Duration // fixed window length
	count   int           // calls used in the current window
	resetAt time.Time     // when the current window ends
	now     func() time.Time
}

// NewRateLimiter creates a limiter allowing budget calls per window.
func NewRateLimiter(budget int, window time.Duration) *RateLimiter {
	return &RateLimiter{budget: budget, window: window, now: time.Now}
}

// newRateLimiterWithClock is used by tests to control time.
func newRateLimiterWithClock(budget int, window time.Duration, now func() time.Time) *RateLimiter {
	return &RateLimiter{budget: budget, window: window, now: now}
}

// Allow consumes one slot from the current window, or fails with
// apperror.ErrRateLimited carrying the estimated wait until the window
// resets. The window starts on the first call and resets lazily.
func (l *RateLimiter) Allow() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.resetAt.IsZero() || now.After(l.resetAt) {
		l.count = 0
		l.resetAt = now.Add(l.window)
	}

	if l.count >= l.budget {
		return apperror.RateLimited(l.resetAt.Sub(now))
	}

	l.count++
	return nil
}

// Status reports the remaining budget and time until reset, for UI display.
func (l *RateLimiter) Status() (remaining int, resetIn time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.resetAt.IsZero() || now.After(l.resetAt) {
		return l.budget, 0
	}
	return l.budget - l.count, l.resetAt.Sub(now)
}
