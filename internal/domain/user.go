package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role discriminates the two kinds of accounts
type Role string

const (
	RoleVendor   Role = "vendor"
	RoleCustomer Role = "customer"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleVendor || r == RoleCustomer
}

var (
	ErrUserNotFound         = NewError(ErrNotFound, "user not found")
	ErrUserAlreadyExists    = NewError(ErrConflict, "user with this email or username already exists")
	ErrVendorNotFound       = NewError(ErrNotFound, "vendor not found")
	ErrCustomerNotFound     = NewError(ErrNotFound, "customer not found")
	ErrRefreshTokenNotFound = NewError(ErrUnauthenticated, "refresh token not found")
	ErrRefreshTokenRevoked  = NewError(ErrUnauthenticated, "refresh token has been revoked")
)

// User represents an account that can authenticate
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         Role      `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Vendor is the selling profile attached to a vendor user
type Vendor struct {
	UserID          uuid.UUID `json:"user_id" db:"user_id"`
	BusinessName    string    `json:"business_name" db:"business_name"`
	BusinessAddress string    `json:"business_address" db:"business_address"`
}

// Customer is the buying profile attached to a customer user
type Customer struct {
	UserID          uuid.UUID `json:"user_id" db:"user_id"`
	ShippingAddress string    `json:"shipping_address" db:"shipping_address"`
}

// RefreshToken is a stored, revocable refresh token
type RefreshToken struct {
	ID        uuid.UUID `db:"id"`
	UserID    uuid.UUID `db:"user_id"`
	Token     string    `db:"token"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
	Revoked   bool      `db:"revoked"`
}
