package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/incomedesk/IncomeDesk/api/internal/metrics"
	"github.com/incomedesk/IncomeDesk/api/internal/ratelimit"
)

// RateLimitMiddleware applies the global per-IP policy to every request
// it wraps. X-RateLimit-Limit and X-RateLimit-Remaining are set on every
// response; a denial adds Retry-After and stops the chain with a 429.
func RateLimitMiddleware(store *ratelimit.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := store.Check(ClientIP(r))

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(store.Policy().MaxAttempts))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

			if !decision.Allowed {
				metrics.RecordRateLimitDenial("global")
				w.Header().Set("Retry-After", strconv.Itoa(decision.RetryAfter))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"error":      "Too many requests, please try again later",
					"retryAfter": decision.RetryAfter,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
