package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/shadecraft/backend-blinds/internal/common"
)

// Quota applies a sliding-window limit to an HTTP route.
type Quota struct {
	Window SlidingWindow
	Key    func(*http.Request) string
	Per    time.Duration
	Limit  int
	// OnError observes Redis failures; the request proceeds regardless,
	// since a broken limiter must not take quoting down with it.
	OnError func(error)
}

// Middleware rejects callers over their quota with 429 and the standard
// X-RateLimit headers.
func (q Quota) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if q.Key == nil {
			next.ServeHTTP(w, r)
			return
		}
		decision, err := q.Window.Take(r.Context(), q.Key(r), q.Per, q.Limit)
		if err != nil {
			if q.OnError != nil {
				q.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		limit := q.Limit
		if limit < 0 {
			limit = 0
		}
		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

		if !decision.Allowed {
			retryAfter := int(time.Until(decision.ResetAt).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
			h.Set("Retry-After", strconv.Itoa(retryAfter))
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED",
				"too many quote requests, retry later", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}
