package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod is how the customer pays for an order
type PaymentMethod string

const (
	PaymentMethodInstaPay PaymentMethod = "INSTAPAY"
	PaymentMethodCash     PaymentMethod = "CASH"
)

// Valid reports whether m is a recognized payment method
func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodInstaPay || m == PaymentMethodCash
}

// PaymentStatus is the outcome of payment for a checkout
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

var (
	ErrInvalidPaymentMethod    = NewError(ErrValidation, "payment method must be one of INSTAPAY, CASH")
	ErrShippingAddressRequired = NewError(ErrValidation, "shipping address is required")
	ErrEmptyCart               = NewError(ErrValidation, "cart has no items")
	ErrCheckoutNotFound        = NewError(ErrNotFound, "checkout not found")
	ErrAlreadyCheckedOut       = NewError(ErrConflict, "order has already been checked out")
)

// Checkout pairs a placed order with its payment and shipping details
type Checkout struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	CustomerID      uuid.UUID       `json:"customer_id" db:"customer_id"`
	OrderID         uuid.UUID       `json:"order_id" db:"order_id"`
	PaymentStatus   PaymentStatus   `json:"payment_status" db:"payment_status"`
	PaymentMethod   PaymentMethod   `json:"payment_method" db:"payment_method"`
	ShippingAddress string          `json:"shipping_address" db:"shipping_address"`
	TotalPrice      decimal.Decimal `json:"total_price" db:"total_price"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}
