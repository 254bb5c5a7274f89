package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrCartNotFound      = NewError(ErrNotFound, "cart is empty")
	ErrNoActiveCart      = NewError(ErrNotFound, "no active cart")
	ErrCartItemNotFound  = NewError(ErrNotFound, "item not found in cart")
	ErrInvalidQuantity   = NewError(ErrValidation, "quantity must be between 1 and 10000")
	ErrCartTotalTooLarge = NewError(ErrValidation, "cart total exceeds 9999999999.99")
)

// MaxItemQuantity caps a single cart line
const MaxItemQuantity = 10000

// MaxTotal is the largest amount a cart, order or checkout total column holds
var MaxTotal = decimal.RequireFromString("9999999999.99")

// Cart is a customer's single in-progress selection. A customer owns at most
// one cart; it is deleted when checked out.
type Cart struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	CustomerID uuid.UUID       `json:"customer_id" db:"customer_id"`
	TotalPrice decimal.Decimal `json:"total_price" db:"total_price"`
	Items      []*CartItem     `json:"items" db:"-"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"`
}

// CartItem is one product line in a cart. Price is the product price at the
// moment the line was created and is never re-synced.
type CartItem struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	CartID    uuid.UUID       `json:"cart_id" db:"cart_id"`
	ProductID uuid.UUID       `json:"product_id" db:"product_id"`
	Quantity  int             `json:"quantity" db:"quantity"`
	Price     decimal.Decimal `json:"price" db:"price"`

	// Product projection for display.
	ProductTitle    string          `json:"product_title,omitempty" db:"-"`
	ProductImageURL string          `json:"product_image,omitempty" db:"-"`
	ProductPrice    decimal.Decimal `json:"product_price" db:"-"`
	VendorName      string          `json:"vendor_name,omitempty" db:"-"`
}

// LineTotal returns quantity × snapshot price
func (i *CartItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// CalculateTotal sums the line totals of items
func CalculateTotal(items []*CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total.Round(2)
}
