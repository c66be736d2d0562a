package common

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// IdempotencyGuard makes order confirmation safe to retry: the first request
// carrying an Idempotency-Key claims it in Redis and replays get 409 until
// the claim expires.
type IdempotencyGuard struct {
	Redis *redis.Client
	TTL   time.Duration
}

// Middleware enforces the key claim. Requests without a key pass through.
func (g IdempotencyGuard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("Idempotency-Key")
		if key == "" || g.Redis == nil {
			next.ServeHTTP(w, r)
			return
		}
		claimed, err := g.Redis.SetNX(r.Context(), g.claimKey(r, key), "held", g.TTL).Result()
		if err != nil {
			JSONError(w, http.StatusInternalServerError, "INTERNAL", "idempotency store unavailable", nil)
			return
		}
		if !claimed {
			JSONError(w, http.StatusConflict, "IDEMPOTENT_REPLAY",
				"a request with this Idempotency-Key was already accepted", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// claimKey scopes the claim to the endpoint, so reusing a key on a different
// route does not collide.
func (g IdempotencyGuard) claimKey(r *http.Request, key string) string {
	sum := sha256.Sum256([]byte(r.Method + "\n" + r.URL.Path + "\n" + key))
	return "idem:" + hex.EncodeToString(sum[:])
}
