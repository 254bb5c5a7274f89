package transport

import (
	"net/http"

	"marketplace/internal/middleware"
	"marketplace/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// FavoriteHandler handles HTTP requests for the customer's wishlist
type FavoriteHandler struct {
	favorites service.FavoriteService
	logger    *zap.Logger
}

// NewFavoriteHandler creates a new FavoriteHandler
func NewFavoriteHandler(favorites service.FavoriteService, logger *zap.Logger) *FavoriteHandler {
	return &FavoriteHandler{favorites: favorites, logger: logger}
}

// RegisterRoutes registers favorites routes
func (h *FavoriteHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/favorites", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(middleware.RequireCustomer(h.logger))

		r.Get("/view", h.List)
		r.Post("/add/{product_id}", h.Add)
		r.Delete("/remove/{product_id}", h.Remove)
	})
}

func (h *FavoriteHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}

	products, err := h.favorites.ListFavorites(r.Context(), caller.UserID)
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, toProductResponses(products))
}

// Add favorites a product; a repeat add answers 200 instead of 201
func (h *FavoriteHandler) Add(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}
	productID, err := uuidParam(r, "product_id")
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}

	created, err := h.favorites.AddFavorite(r.Context(), caller.UserID, productID)
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}

	if !created {
		middleware.RespondWithMessage(w, http.StatusOK, "already a favorite", nil)
		return
	}
	middleware.RespondWithMessage(w, http.StatusCreated, "added to favorites", nil)
}

func (h *FavoriteHandler) Remove(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}
	productID, err := uuidParam(r, "product_id")
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}

	if err := h.favorites.RemoveFavorite(r.Context(), caller.UserID, productID); err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}
	middleware.RespondWithMessage(w, http.StatusOK, "removed from favorites", nil)
}
