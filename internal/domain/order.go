package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of a placed order
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

var (
	ErrOrderNotFound          = NewError(ErrNotFound, "order not found")
	ErrInvalidOrderTransition = NewError(ErrValidation, "order cannot move to the requested status")
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
}

// CanTransitionTo reports whether an order in status s may move to next
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Order is a placed order, created from a cart at checkout
type Order struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	CustomerID      uuid.UUID       `json:"customer_id" db:"customer_id"`
	Status          OrderStatus     `json:"status" db:"status"`
	TotalPrice      decimal.Decimal `json:"total_price" db:"total_price"`
	ShippingAddress string          `json:"shipping_address" db:"shipping_address"`
	Items           []*OrderItem    `json:"items" db:"-"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// OrderItem is an immutable snapshot of a cart line
type OrderItem struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	OrderID   uuid.UUID       `json:"order_id" db:"order_id"`
	ProductID uuid.UUID       `json:"product_id" db:"product_id"`
	Title     string          `json:"title" db:"title"`
	Quantity  int             `json:"quantity" db:"quantity"`
	Price     decimal.Decimal `json:"price" db:"price"`
}

// LineTotal returns quantity × price
func (i *OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// NewOrderFromCart snapshots a cart into a pending order
func NewOrderFromCart(cart *Cart, shippingAddress string, now time.Time) *Order {
	order := &Order{
		ID:              uuid.New(),
		CustomerID:      cart.CustomerID,
		Status:          OrderStatusPending,
		TotalPrice:      CalculateTotal(cart.Items),
		ShippingAddress: shippingAddress,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, line := range cart.Items {
		order.Items = append(order.Items, &OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: line.ProductID,
			Title:     line.ProductTitle,
			Quantity:  line.Quantity,
			Price:     line.Price,
		})
	}
	return order
}
