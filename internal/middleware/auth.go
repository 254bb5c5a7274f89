package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"marketplace/internal/domain"
	"marketplace/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AccessTokenCookie carries the access token for browser clients
const AccessTokenCookie = "access_token"

type contextKey string

const identityKey contextKey = "identity"

// Identity is the authenticated caller attached to a request
type Identity struct {
	UserID uuid.UUID
	Role   domain.Role
}

// TokenValidator validates access tokens
type TokenValidator interface {
	ValidateToken(tokenString string) (*service.Claims, error)
}

// AuthMiddleware validates JWT tokens and attaches the caller's identity
func AuthMiddleware(validator TokenValidator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := extractToken(r)
			if !ok {
				logger.Debug("Missing or malformed credentials")
				RespondWithError(w, http.StatusUnauthorized, "authentication credentials were not provided")
				return
			}

			claims, err := validator.ValidateToken(tokenString)
			if err != nil {
				logger.Debug("Token validation failed", zap.Error(err))
				if errors.Is(err, jwt.ErrTokenExpired) {
					RespondWithError(w, http.StatusUnauthorized, "token expired")
				} else {
					RespondWithError(w, http.StatusUnauthorized, "invalid token")
				}
				return
			}

			identity := Identity{UserID: claims.UserID, Role: claims.Role}
			logger.Debug("User authenticated",
				zap.String("user_id", identity.UserID.String()),
				zap.String("role", string(identity.Role)),
			)

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// extractToken reads a Bearer token from the Authorization header, falling
// back to the access token cookie
func extractToken(r *http.Request) (string, bool) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}

	cookie, err := r.Cookie(AccessTokenCookie)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// WithIdentity returns a copy of ctx carrying identity
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// GetIdentity extracts the caller's identity from request context
func GetIdentity(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}
