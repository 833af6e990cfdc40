package pasteserver

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sakif/momentum-sync/internal/apperror"
	"github.com/sakif/momentum-sync/internal/remote"
)

// ipQuota enforces the documented hourly call quota per client IP. Each IP
// gets its own fixed window, the same limiter the client adapter uses to
// stay under the quota from its side.
type ipQuota struct {
	mu       sync.Mutex
	limiters map[string]*remote.RateLimiter
	budget   int
	window   time.Duration
}

func newIPQuota(budget int, window time.Duration) *ipQuota {
	return &ipQuota{
		limiters: make(map[string]*remote.RateLimiter),
		budget:   budget,
		window:   window,
	}
}

func (q *ipQuota) allow(ip string) error {
	q.mu.Lock()
	l, ok := q.limiters[ip]
	if !ok {
		l = remote.NewRateLimiter(q.budget, q.window)
		q.limiters[ip] = l
	}
	q.mu.Unlock()

	return l.Allow()
}

// middleware rejects over-quota requests with 429 and a Retry-After header
// before they reach a handler. RemoteAddr has already been rewritten by
// chi's RealIP middleware when behind a proxy.
func (q *ipQuota) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := q.allow(clientIP(r)); err != nil {
			var appErr *apperror.AppError
			if errors.As(err, &appErr) && appErr.RetryAfter > 0 {
				w.Header().Set("Retry-After",
					fmt.Sprintf("%d", int(appErr.RetryAfter.Seconds())+1))
			}
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP strips the ephemeral port so all connections from one address
// share a window. RealIP middleware may have replaced RemoteAddr with a
// bare IP already, in which case there is no port to strip.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
