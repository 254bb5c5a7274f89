package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Column limits of the products table: DECIMAL(10,2) price, INTEGER stock
const MaxStock = math.MaxInt32

var MaxPrice = decimal.RequireFromString("99999999.99")

var (
	ErrProductNotFound       = NewError(ErrNotFound, "product not found")
	ErrCategoryNotFound      = NewError(ErrNotFound, "category not found")
	ErrCategoryAlreadyExists = NewError(ErrConflict, "category with this name already exists")
	ErrCategoryCycle         = NewError(ErrValidation, "category parent would create a cycle")
	ErrInsufficientStock     = NewError(ErrConflict, "insufficient stock")
	ErrTitleRequired         = NewError(ErrValidation, "title is required")
	ErrInvalidPrice          = NewError(ErrValidation, "price must be between 0.01 and 99999999.99 with at most 2 decimal places")
	ErrInvalidStock          = NewError(ErrValidation, "stock must be between 0 and 2147483647")
	ErrCategoryNameRequired  = NewError(ErrValidation, "category name is required")
	ErrInvalidImage          = &Error{Kind: ErrValidation, Code: "invalid_image", Message: "image could not be fetched or is not a valid image"}
)

// Product represents a product in the catalog
type Product struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	Title       string          `json:"title" db:"title"`
	Description string          `json:"description" db:"description"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Stock       int             `json:"stock" db:"stock"`
	CategoryID  uuid.UUID       `json:"category_id" db:"category_id"`
	VendorID    uuid.UUID       `json:"vendor_id" db:"vendor_id"`
	ImageURL    string          `json:"image_url" db:"image_url"`
	SoldCount   int             `json:"sold_count" db:"sold_count"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`

	// Read-side projections, populated by detail queries only.
	VendorName   string `json:"vendor_name,omitempty" db:"-"`
	CategoryName string `json:"category,omitempty" db:"-"`
}

// Validate checks the invariants of a product that is about to be stored
func (p *Product) Validate() error {
	if p.Title == "" || len(p.Title) > 255 {
		return ErrTitleRequired
	}
	if !ValidPrice(p.Price) {
		return ErrInvalidPrice
	}
	if p.Stock < 0 || p.Stock > MaxStock {
		return ErrInvalidStock
	}
	return nil
}

// ValidPrice reports whether price is positive, fits MaxPrice and has at
// most two fractional digits
func ValidPrice(price decimal.Decimal) bool {
	return price.IsPositive() && !price.GreaterThan(MaxPrice) && price.Equal(price.Round(2))
}

// IsInStock reports whether at least one unit is available
func (p *Product) IsInStock() bool {
	return p.Stock > 0
}

// Category represents a node of the category tree
type Category struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	Name      string     `json:"name" db:"name"`
	ParentID  *uuid.UUID `json:"parent_id,omitempty" db:"parent_id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// VendorSummary aggregates a vendor's catalog
type VendorSummary struct {
	ProductCount int `json:"product_count"`
	TotalStock   int `json:"total_stock"`
	TotalSold    int `json:"total_sold"`
}

// Summarize builds a VendorSummary from the vendor's products
func Summarize(products []*Product) VendorSummary {
	summary := VendorSummary{ProductCount: len(products)}
	for _, p := range products {
		summary.TotalStock += p.Stock
		summary.TotalSold += p.SoldCount
	}
	return summary
}
