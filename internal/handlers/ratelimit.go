package handlers

import (
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimit wraps next in a process-wide token bucket of rps requests per
// second. A non-positive rps disables limiting.
func RateLimit(rps float64, burst int, next http.Handler) http.Handler {
	if rps <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}

	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			slog.Warn("Rate limit exceeded", "path", r.URL.Path, "remote", r.RemoteAddr)
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, ErrorResponse{Error: "Rate limit exceeded", Code: CodeRateLimited})
			return
		}
		next.ServeHTTP(w, r)
	})
}
