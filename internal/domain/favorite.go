package domain

import (
	"time"

	"github.com/google/uuid"
)

var ErrFavoriteNotFound = NewError(ErrNotFound, "product is not in favorites")

// Favorite links a customer to a product they saved
type Favorite struct {
	ID         uuid.UUID `json:"id" db:"id"`
	CustomerID uuid.UUID `json:"customer_id" db:"customer_id"`
	ProductID  uuid.UUID `json:"product_id" db:"product_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
