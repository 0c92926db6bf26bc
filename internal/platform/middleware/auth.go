package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	jwttoken "lifeline/internal/jwt_token"
	"lifeline/pkg/requestcontext"
)

// Staff roles carried in the token's role claim. Admin implies everything.
const (
	RoleAdmin      = "admin"
	RoleFieldStaff = "field_staff"
	RoleDriveStaff = "drive_manager"
)

// TokenValidator validates bearer tokens and returns their claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*jwttoken.Claims, error)
}

// RequireRole authenticates the bearer token and authorizes the role claim
// against the allowed set. The caller role lands in the request context for
// downstream logging.
func RequireRole(validator TokenValidator, logger *slog.Logger, allowed ...string) func(http.Handler) http.Handler {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				if logger != nil {
					logger.WarnContext(ctx, "unauthorized access - missing token",
						"request_id", requestcontext.RequestID(ctx),
					)
				}
				writeAuthError(w, http.StatusUnauthorized, "missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				if logger != nil {
					logger.WarnContext(ctx, "unauthorized access - invalid token",
						"error", err.Error(),
						"request_id", requestcontext.RequestID(ctx),
					)
				}
				writeAuthError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			if _, ok := allowedSet[claims.Role]; !ok && claims.Role != RoleAdmin {
				if logger != nil {
					logger.WarnContext(ctx, "forbidden access - role not allowed",
						"role", claims.Role,
						"request_id", requestcontext.RequestID(ctx),
					)
				}
				writeAuthError(w, http.StatusForbidden, "role not permitted for this operation")
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithCallerRole(ctx, claims.Role)))
		})
	}
}

func writeAuthError(w http.ResponseWriter, status int, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + http.StatusText(status) + `","error_description":"` + description + `"}`))
}
