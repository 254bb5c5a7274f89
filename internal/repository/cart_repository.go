package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"marketplace/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartRepository defines the interface for cart data access
type CartRepository interface {
	// GetOrCreateForUpdate returns the customer's cart, creating it if needed,
	// and locks the row until the surrounding transaction ends.
	GetOrCreateForUpdate(ctx context.Context, customerID uuid.UUID) (*domain.Cart, error)
	FindByCustomer(ctx context.Context, customerID uuid.UUID) (*domain.Cart, error)
	FindByCustomerForUpdate(ctx context.Context, customerID uuid.UUID) (*domain.Cart, error)
	ListItems(ctx context.Context, cartID uuid.UUID) ([]*domain.CartItem, error)
	AddItem(ctx context.Context, item *domain.CartItem) (*domain.CartItem, error)
	FindItem(ctx context.Context, cartID, itemID uuid.UUID) (*domain.CartItem, error)
	UpdateItemQuantity(ctx context.Context, cartID, itemID uuid.UUID, quantity int) error
	DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) error
	UpdateTotal(ctx context.Context, cartID uuid.UUID, total decimal.Decimal) error
	Delete(ctx context.Context, cartID uuid.UUID) error
}

type cartRepository struct {
	db DBTX
}

// NewCartRepository creates a new instance of CartRepository
func NewCartRepository(db DBTX) CartRepository {
	return &cartRepository{db: db}
}

const cartColumns = `id, customer_id, total_price, created_at, updated_at`

func (r *cartRepository) GetOrCreateForUpdate(ctx context.Context, customerID uuid.UUID) (*domain.Cart, error) {
	now := time.Now()
	insert := `
		INSERT INTO carts (id, customer_id, total_price, created_at, updated_at)
		VALUES ($1, $2, 0, $3, $3)
		ON CONFLICT (customer_id) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, insert, uuid.New(), customerID, now); err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}

	return r.FindByCustomerForUpdate(ctx, customerID)
}

// FindByCustomer retrieves the customer's cart without locking it
func (r *cartRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID) (*domain.Cart, error) {
	return r.findByCustomer(ctx, customerID, "")
}

// FindByCustomerForUpdate retrieves and locks the customer's cart
func (r *cartRepository) FindByCustomerForUpdate(ctx context.Context, customerID uuid.UUID) (*domain.Cart, error) {
	return r.findByCustomer(ctx, customerID, "FOR UPDATE")
}

func (r *cartRepository) findByCustomer(ctx context.Context, customerID uuid.UUID, lock string) (*domain.Cart, error) {
	query := `SELECT ` + cartColumns + ` FROM carts WHERE customer_id = $1 ` + lock

	cart := &domain.Cart{}
	err := r.db.QueryRowContext(ctx, query, customerID).Scan(
		&cart.ID,
		&cart.CustomerID,
		&cart.TotalPrice,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNoActiveCart
		}
		return nil, fmt.Errorf("failed to find cart: %w", err)
	}

	return cart, nil
}

// ListItems retrieves the lines of a cart with their product projection
func (r *cartRepository) ListItems(ctx context.Context, cartID uuid.UUID) ([]*domain.CartItem, error) {
	query := `
		SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity, ci.price,
		       p.title, p.image_url, p.price, v.business_name
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		JOIN vendors v ON v.user_id = p.vendor_id
		WHERE ci.cart_id = $1
		ORDER BY ci.created_at, ci.id
	`

	rows, err := r.db.QueryContext(ctx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}
	defer rows.Close()

	items := []*domain.CartItem{}
	for rows.Next() {
		item := &domain.CartItem{}
		if err := rows.Scan(
			&item.ID,
			&item.CartID,
			&item.ProductID,
			&item.Quantity,
			&item.Price,
			&item.ProductTitle,
			&item.ProductImageURL,
			&item.ProductPrice,
			&item.VendorName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}

	return items, nil
}

// AddItem inserts a line or, when the product is already in the cart,
// increments its quantity. The stored price of an existing line is kept.
func (r *cartRepository) AddItem(ctx context.Context, item *domain.CartItem) (*domain.CartItem, error) {
	query := `
		INSERT INTO cart_items (id, cart_id, product_id, quantity, price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
		RETURNING id, quantity, price
	`

	saved := *item
	err := r.db.QueryRowContext(
		ctx,
		query,
		item.ID,
		item.CartID,
		item.ProductID,
		item.Quantity,
		item.Price,
		time.Now(),
	).Scan(&saved.ID, &saved.Quantity, &saved.Price)
	if err != nil {
		return nil, fmt.Errorf("failed to add cart item: %w", err)
	}

	return &saved, nil
}

// FindItem retrieves a line only if it belongs to cartID
func (r *cartRepository) FindItem(ctx context.Context, cartID, itemID uuid.UUID) (*domain.CartItem, error) {
	query := `
		SELECT id, cart_id, product_id, quantity, price
		FROM cart_items
		WHERE id = $1 AND cart_id = $2
	`

	item := &domain.CartItem{}
	err := r.db.QueryRowContext(ctx, query, itemID, cartID).Scan(
		&item.ID,
		&item.CartID,
		&item.ProductID,
		&item.Quantity,
		&item.Price,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCartItemNotFound
		}
		return nil, fmt.Errorf("failed to find cart item: %w", err)
	}

	return item, nil
}

// UpdateItemQuantity sets the quantity of a line in cartID
func (r *cartRepository) UpdateItemQuantity(ctx context.Context, cartID, itemID uuid.UUID, quantity int) error {
	query := `UPDATE cart_items SET quantity = $3 WHERE id = $1 AND cart_id = $2`

	result, err := r.db.ExecContext(ctx, query, itemID, cartID, quantity)
	if err != nil {
		return fmt.Errorf("failed to update cart item: %w", err)
	}

	return checkRowsAffected(result, domain.ErrCartItemNotFound)
}

// DeleteItem removes a line from cartID
func (r *cartRepository) DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) error {
	query := `DELETE FROM cart_items WHERE id = $1 AND cart_id = $2`

	result, err := r.db.ExecContext(ctx, query, itemID, cartID)
	if err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
	}

	return checkRowsAffected(result, domain.ErrCartItemNotFound)
}

// UpdateTotal stores the recomputed total of a cart
func (r *cartRepository) UpdateTotal(ctx context.Context, cartID uuid.UUID, total decimal.Decimal) error {
	query := `UPDATE carts SET total_price = $2, updated_at = $3 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, cartID, total, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update cart total: %w", err)
	}

	return checkRowsAffected(result, domain.ErrNoActiveCart)
}

// Delete removes a cart and, by cascade, its lines
func (r *cartRepository) Delete(ctx context.Context, cartID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM carts WHERE id = $1`, cartID)
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}

	return checkRowsAffected(result, domain.ErrNoActiveCart)
}
