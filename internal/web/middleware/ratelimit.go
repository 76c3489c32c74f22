package middleware

import (
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimit returns middleware that rejects requests above reqPerSec with
// 429. A non-positive rate disables limiting.
func RateLimit(reqPerSec float64, burst int) func(http.Handler) http.Handler {
	if reqPerSec <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if burst <= 0 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(reqPerSec), burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"status":"error","message":"rate limit exceeded"}` + "\n"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
