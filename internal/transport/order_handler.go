package transport

import (
	"net/http"

	"marketplace/internal/domain"
	"marketplace/internal/middleware"
	"marketplace/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CheckoutRequest represents the checkout payload. An empty shipping
// address falls back to the customer's stored address.
type CheckoutRequest struct {
	PaymentMethod   domain.PaymentMethod `json:"payment_method" validate:"required,oneof=INSTAPAY CASH"`
	ShippingAddress string               `json:"shipping_address" validate:"max=1000"`
}

// OrderHandler handles HTTP requests for checkout and placed orders
type OrderHandler struct {
	checkouts service.CheckoutService
	orders    service.OrderService
	logger    *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(checkouts service.CheckoutService, orders service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{checkouts: checkouts, orders: orders, logger: logger}
}

// RegisterRoutes registers checkout and order routes
func (h *OrderHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(middleware.RequireCustomer(h.logger))

		r.Post("/api/checkout", h.Checkout)
		r.Get("/api/checkout/retrieve", h.RetrieveCheckouts)

		r.Get("/api/orders", h.ListOrders)
		r.Get("/api/orders/{id}", h.GetOrder)
		r.Post("/api/orders/{id}/cancel", h.CancelOrder)
	})
}

func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}

	var req CheckoutRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	result, err := h.checkouts.Checkout(r.Context(), caller.UserID, service.CheckoutInput{
		PaymentMethod:   req.PaymentMethod,
		ShippingAddress: req.ShippingAddress,
	})
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}

	middleware.RespondWithMessage(w, http.StatusCreated, "checkout completed successfully", CheckoutResultResponse{
		CheckoutID:    result.Checkout.ID,
		OrderID:       result.Order.ID,
		TotalPrice:    result.Order.TotalPrice.StringFixed(2),
		OrderStatus:   result.Order.Status,
		PaymentStatus: result.Checkout.PaymentStatus,
	})
}

func (h *OrderHandler) RetrieveCheckouts(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}

	checkouts, err := h.checkouts.RetrieveCheckouts(r.Context(), caller.UserID)
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}

	resp := make([]CheckoutResponse, 0, len(checkouts))
	for _, c := range checkouts {
		resp = append(resp, toCheckoutResponse(c))
	}
	middleware.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}

	orders, err := h.orders.ListOrders(r.Context(), caller.UserID)
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}

	resp := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResponse(o))
	}
	middleware.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}
	id, err := uuidParam(r, "id")
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}

	order, err := h.orders.GetOrder(r.Context(), caller.UserID, id)
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}
	id, err := uuidParam(r, "id")
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}

	order, err := h.orders.CancelOrder(r.Context(), caller.UserID, id)
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}
	middleware.RespondWithMessage(w, http.StatusOK, "order cancelled", toOrderResponse(order))
}
