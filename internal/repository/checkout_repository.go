package repository

import (
	"context"
	"fmt"

	"marketplace/internal/domain"

	"github.com/google/uuid"
)

// CheckoutRepository defines the interface for checkout data access
type CheckoutRepository interface {
	Create(ctx context.Context, checkout *domain.Checkout) error
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Checkout, error)
}

type checkoutRepository struct {
	db DBTX
}

// NewCheckoutRepository creates a new instance of CheckoutRepository
func NewCheckoutRepository(db DBTX) CheckoutRepository {
	return &checkoutRepository{db: db}
}

// Create inserts a checkout record. An order can be checked out only once.
func (r *checkoutRepository) Create(ctx context.Context, checkout *domain.Checkout) error {
	query := `
		INSERT INTO checkouts (id, customer_id, order_id, payment_status, payment_method,
		                       shipping_address, total_price, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		checkout.ID,
		checkout.CustomerID,
		checkout.OrderID,
		checkout.PaymentStatus,
		checkout.PaymentMethod,
		checkout.ShippingAddress,
		checkout.TotalPrice,
		checkout.CreatedAt,
		checkout.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "checkouts_order_id_key") {
			return domain.ErrAlreadyCheckedOut
		}
		return fmt.Errorf("failed to create checkout: %w", err)
	}

	return nil
}

// ListByCustomer retrieves a customer's checkouts, newest first
func (r *checkoutRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Checkout, error) {
	query := `
		SELECT id, customer_id, order_id, payment_status, payment_method,
		       shipping_address, total_price, created_at, updated_at
		FROM checkouts
		WHERE customer_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkouts: %w", err)
	}
	defer rows.Close()

	checkouts := []*domain.Checkout{}
	for rows.Next() {
		checkout := &domain.Checkout{}
		if err := rows.Scan(
			&checkout.ID,
			&checkout.CustomerID,
			&checkout.OrderID,
			&checkout.PaymentStatus,
			&checkout.PaymentMethod,
			&checkout.ShippingAddress,
			&checkout.TotalPrice,
			&checkout.CreatedAt,
			&checkout.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan checkout: %w", err)
		}
		checkouts = append(checkouts, checkout)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating checkouts: %w", err)
	}

	return checkouts, nil
}
