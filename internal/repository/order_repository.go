package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"marketplace/internal/domain"

	"github.com/google/uuid"
)

// OrderRepository defines the interface for order data access
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	FindForCustomer(ctx context.Context, id, customerID uuid.UUID) (*domain.Order, error)
	FindForCustomerForUpdate(ctx context.Context, id, customerID uuid.UUID) (*domain.Order, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error
}

type orderRepository struct {
	db DBTX
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db DBTX) OrderRepository {
	return &orderRepository{db: db}
}

// Create inserts an order together with its items. Callers run it inside a
// transaction so a partial order is never visible.
func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO orders (id, customer_id, status, total_price, shipping_address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		order.ID,
		order.CustomerID,
		order.Status,
		order.TotalPrice,
		order.ShippingAddress,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (id, order_id, product_id, title, quantity, price)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, item := range order.Items {
		if _, err := r.db.ExecContext(ctx, itemQuery,
			item.ID,
			order.ID,
			item.ProductID,
			item.Title,
			item.Quantity,
			item.Price,
		); err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	return nil
}

// FindForCustomer retrieves an order with its items if customerID placed it
func (r *orderRepository) FindForCustomer(ctx context.Context, id, customerID uuid.UUID) (*domain.Order, error) {
	return r.findForCustomer(ctx, id, customerID, "")
}

// FindForCustomerForUpdate is FindForCustomer holding a row lock on the order
// until the surrounding transaction ends
func (r *orderRepository) FindForCustomerForUpdate(ctx context.Context, id, customerID uuid.UUID) (*domain.Order, error) {
	return r.findForCustomer(ctx, id, customerID, "FOR UPDATE")
}

func (r *orderRepository) findForCustomer(ctx context.Context, id, customerID uuid.UUID, lock string) (*domain.Order, error) {
	query := `
		SELECT id, customer_id, status, total_price, shipping_address, created_at, updated_at
		FROM orders
		WHERE id = $1 AND customer_id = $2 ` + lock

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id, customerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}

	items, err := r.listItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return order, nil
}

// ListByCustomer retrieves a customer's orders, newest first, without items
func (r *orderRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Order, error) {
	query := `
		SELECT id, customer_id, status, total_price, shipping_address, created_at, updated_at
		FROM orders
		WHERE customer_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}

// UpdateStatus sets the status of an order
func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error {
	query := `UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, status, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	return checkRowsAffected(result, domain.ErrOrderNotFound)
}

func (r *orderRepository) listItems(ctx context.Context, orderID uuid.UUID) ([]*domain.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, title, quantity, price
		FROM order_items
		WHERE order_id = $1
		ORDER BY title, id
	`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}
	defer rows.Close()

	items := []*domain.OrderItem{}
	for rows.Next() {
		item := &domain.OrderItem{}
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Title,
			&item.Quantity,
			&item.Price,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return items, nil
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	order := &domain.Order{}
	err := row.Scan(
		&order.ID,
		&order.CustomerID,
		&order.Status,
		&order.TotalPrice,
		&order.ShippingAddress,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	return order, err
}
