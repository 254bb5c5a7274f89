package middleware

import (
	"net/http"
	"slices"

	"marketplace/internal/domain"

	"go.uber.org/zap"
)

// RequireRole middleware ensures the user has one of the specified roles
func RequireRole(logger *zap.Logger, allowedRoles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := GetIdentity(r.Context())
			if !ok {
				logger.Warn("Identity not found in context")
				RespondWithError(w, http.StatusUnauthorized, "authentication credentials were not provided")
				return
			}

			if !slices.Contains(allowedRoles, identity.Role) {
				logger.Warn("User role not authorized",
					zap.String("user_id", identity.UserID.String()),
					zap.String("role", string(identity.Role)),
				)
				RespondWithError(w, http.StatusForbidden, "you do not have permission to perform this action")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireVendor is RequireRole restricted to vendors
func RequireVendor(logger *zap.Logger) func(http.Handler) http.Handler {
	return RequireRole(logger, domain.RoleVendor)
}

// RequireCustomer is RequireRole restricted to customers
func RequireCustomer(logger *zap.Logger) func(http.Handler) http.Handler {
	return RequireRole(logger, domain.RoleCustomer)
}
