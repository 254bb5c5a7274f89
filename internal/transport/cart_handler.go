package transport

import (
	"net/http"

	"marketplace/internal/middleware"
	"marketplace/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AddToCartRequest represents the add-to-cart payload. Quantity defaults to 1.
type AddToCartRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  *int      `json:"quantity" validate:"omitempty,gte=1,lte=10000"`
}

// UpdateCartItemRequest sets a line's quantity; zero or less removes it
type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity" validate:"required,lte=10000"`
}

// CartHandler handles HTTP requests for the customer's cart
type CartHandler struct {
	carts  service.CartService
	logger *zap.Logger
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(carts service.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{carts: carts, logger: logger}
}

// RegisterRoutes registers cart routes
func (h *CartHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(middleware.RequireCustomer(h.logger))

		r.Post("/add", h.AddItem)
		r.Patch("/update/{item_id}", h.UpdateItem)
		r.Delete("/remove/{item_id}", h.RemoveItem)
		r.Get("/view", h.ViewCart)
	})
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}

	var req AddToCartRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	cart, err := h.carts.AddItem(r.Context(), caller.UserID, req.ProductID, quantity)
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}
	middleware.RespondWithMessage(w, http.StatusOK, "product added to cart", toCartResponse(cart))
}

func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}
	itemID, err := uuidParam(r, "item_id")
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}

	var req UpdateCartItemRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	cart, err := h.carts.UpdateItem(r.Context(), caller.UserID, itemID, *req.Quantity)
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}
	middleware.RespondWithMessage(w, http.StatusOK, "cart updated", toCartResponse(cart))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}
	itemID, err := uuidParam(r, "item_id")
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}

	cart, err := h.carts.RemoveItem(r.Context(), caller.UserID, itemID)
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}
	middleware.RespondWithMessage(w, http.StatusOK, "item removed from cart", toCartResponse(cart))
}

func (h *CartHandler) ViewCart(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}

	cart, err := h.carts.ViewCart(r.Context(), caller.UserID)
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, toCartResponse(cart))
}
