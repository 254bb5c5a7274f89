package transport

import (
	"net/http"

	"marketplace/internal/domain"
	"marketplace/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

var (
	errInvalidID       = domain.NewError(domain.ErrValidation, "invalid id")
	errUnauthenticated = domain.NewError(domain.ErrUnauthenticated, "authentication credentials were not provided")
)

// identity returns the caller attached by AuthMiddleware
func identity(r *http.Request) (middleware.Identity, error) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		return middleware.Identity{}, errUnauthenticated
	}
	return id, nil
}

// uuidParam parses a UUID path parameter
func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, errInvalidID
	}
	return id, nil
}
