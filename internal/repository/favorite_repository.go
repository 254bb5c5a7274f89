package repository

import (
	"context"
	"fmt"

	"marketplace/internal/domain"

	"github.com/google/uuid"
)

// FavoriteRepository defines the interface for favorites data access
type FavoriteRepository interface {
	// Add stores the favorite and reports whether a new row was created.
	Add(ctx context.Context, favorite *domain.Favorite) (bool, error)
	Remove(ctx context.Context, customerID, productID uuid.UUID) error
	ListProducts(ctx context.Context, customerID uuid.UUID) ([]*domain.Product, error)
}

type favoriteRepository struct {
	db DBTX
}

// NewFavoriteRepository creates a new instance of FavoriteRepository
func NewFavoriteRepository(db DBTX) FavoriteRepository {
	return &favoriteRepository{db: db}
}

func (r *favoriteRepository) Add(ctx context.Context, favorite *domain.Favorite) (bool, error) {
	query := `
		INSERT INTO favorites (id, customer_id, product_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (customer_id, product_id) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query, favorite.ID, favorite.CustomerID, favorite.ProductID, favorite.CreatedAt)
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return false, domain.ErrProductNotFound
		}
		return false, fmt.Errorf("failed to add favorite: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

// Remove deletes a favorite of customerID
func (r *favoriteRepository) Remove(ctx context.Context, customerID, productID uuid.UUID) error {
	query := `DELETE FROM favorites WHERE customer_id = $1 AND product_id = $2`

	result, err := r.db.ExecContext(ctx, query, customerID, productID)
	if err != nil {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}

	return checkRowsAffected(result, domain.ErrFavoriteNotFound)
}

// ListProducts retrieves the products a customer favorited, newest first
func (r *favoriteRepository) ListProducts(ctx context.Context, customerID uuid.UUID) ([]*domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM favorites f
		JOIN products p ON p.id = f.product_id
		WHERE f.customer_id = $1
		ORDER BY f.created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}
