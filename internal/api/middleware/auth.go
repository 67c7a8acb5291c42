package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/example/online-store/internal/auth"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// respondError writes a JSON error response
func respondError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// ExtractToken extracts JWT token from cookie or Authorization header
func ExtractToken(r *http.Request) string {
	// Try cookie first (for browser)
	if cookie, err := r.Cookie("access_token"); err == nil {
		return cookie.Value
	}
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

type contextKey string

const (
	UserContextKey contextKey = "user"
)

// RevocationChecker reports whether a token id has been blacklisted by logout.
type RevocationChecker interface {
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// AuthMiddleware validates JWT tokens and adds user claims to context.
// A nil checker skips the blacklist lookup.
func AuthMiddleware(jwtService *auth.JWTService, revocations RevocationChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := ExtractToken(r)
			if tokenString == "" {
				respondError(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := jwtService.ValidateAccessToken(tokenString)
			if err != nil {
				respondError(w, "invalid token", http.StatusUnauthorized)
				return
			}

			if revocations != nil {
				revoked, err := revocations.IsTokenRevoked(r.Context(), claims.ID)
				if err != nil {
					log.Error().Err(err).Str("component", "api").Msg("token revocation lookup failed")
					respondError(w, "internal server error", http.StatusInternalServerError)
					return
				}
				if revoked {
					respondError(w, "token has been revoked", http.StatusUnauthorized)
					return
				}
			}

			ctx := context.WithValue(r.Context(), UserContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole checks if the user has one of the required roles
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetUserFromContext(r.Context())
			if !ok {
				respondError(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			for _, role := range roles {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			respondError(w, "forbidden", http.StatusForbidden)
		})
	}
}

// GetUserFromContext retrieves user claims from the request context
func GetUserFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(UserContextKey).(*auth.Claims)
	return claims, ok
}

// GetUserID returns the authenticated user's id, or false when the request
// is anonymous or the claim is not a valid uuid.
func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	claims, ok := GetUserFromContext(ctx)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
