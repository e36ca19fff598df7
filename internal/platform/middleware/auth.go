package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"certnexus/internal/platform/token"
	dErrors "certnexus/pkg/domain-errors"
	"certnexus/pkg/platform/httputil"
	"certnexus/pkg/requestcontext"
)

// TokenValidator validates bearer tokens. Satisfied by token.Service.
type TokenValidator interface {
	ValidateToken(tokenString string) (*token.Claims, error)
}

// RequireOfficer guards organizer-only endpoints: template management, bulk
// generation, eligible counts, and bulk download.
func RequireOfficer(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return requireRole(validator, logger, token.RoleOfficer, requestcontext.WithOfficerID)
}

// RequireUser guards participant endpoints such as single-certificate
// download.
func RequireUser(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return requireRole(validator, logger, token.RoleUser, requestcontext.WithUserID)
}

func requireRole(
	validator TokenValidator,
	logger *slog.Logger,
	role token.Role,
	inject func(ctx context.Context, subject string) context.Context,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || raw == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			claims, err := validator.ValidateToken(raw)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}
			if claims.Role != role {
				logger.WarnContext(ctx, "forbidden - role mismatch",
					"required_role", string(role),
					"request_id", GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "insufficient role for this operation"))
				return
			}

			next.ServeHTTP(w, r.WithContext(inject(ctx, claims.Subject)))
		})
	}
}
