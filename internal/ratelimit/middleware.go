package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"

	"vcregistry/pkg/platform/httputil"
	"vcregistry/pkg/platform/privacy"
	"vcregistry/pkg/requestcontext"
)

// Middleware rejects requests from a client IP once its window is full.
// It expects request.ClientMetadata to have run first.
func Middleware(limiter *Window, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := requestcontext.ClientIP(ctx)

			result := limiter.Allow(ip)
			addRateLimitHeaders(w, result)
			if !result.Allowed {
				logger.WarnContext(ctx, "write rate limit exceeded",
					"path", r.URL.Path,
					"ip_prefix", privacy.AnonymizeIP(ip),
					"retry_after", result.RetryAfter,
					"request_id", requestcontext.RequestID(ctx),
				)
				w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
				httputil.WriteTagged(w, http.StatusTooManyRequests, httputil.TagRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func addRateLimitHeaders(w http.ResponseWriter, result Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}
