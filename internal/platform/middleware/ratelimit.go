package middleware

import (
	"log/slog"
	"net/http"
	"strconv"

	"certnexus/internal/ratelimit"
	dErrors "certnexus/pkg/domain-errors"
	"certnexus/pkg/platform/httputil"
	"certnexus/pkg/requestcontext"
)

// RateLimit throttles requests per client IP. A limiter store failure lets the
// request through: throttling is protection, not a correctness dependency.
func RateLimit(limiter *ratelimit.Limiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := requestcontext.ClientIP(ctx)
			if key == "" {
				key = r.RemoteAddr
			}

			res, err := limiter.Allow(ctx, key)
			if err != nil {
				logger.WarnContext(ctx, "rate limit check failed, allowing request",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))

			if !res.Allowed {
				w.Header().Set("Retry-After", strconv.FormatInt(int64(res.ResetAt.Sub(requestcontext.Now(ctx)).Seconds())+1, 10))
				httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "too many verification requests"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
