package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"marketplace/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SortOrder represents the sort direction
type SortOrder string

const (
	SortOrderAsc  SortOrder = "ASC"
	SortOrderDesc SortOrder = "DESC"
)

// ProductFilter narrows and orders a product listing
type ProductFilter struct {
	ID         *uuid.UUID
	CategoryID *uuid.UUID
	Search     string
	SortBy     string
	SortOrder  SortOrder
	Page       int
	PageSize   int
}

// ProductUpdate names the columns to change; nil fields keep their stored value
type ProductUpdate struct {
	Title       *string
	Description *string
	Price       *decimal.Decimal
	Stock       *int
	CategoryID  *uuid.UUID
	ImageURL    *string
	UpdatedAt   time.Time
}

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, id, vendorID uuid.UUID, update ProductUpdate) error
	Delete(ctx context.Context, id, vendorID uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	FindByIDForVendor(ctx context.Context, id, vendorID uuid.UUID) (*domain.Product, error)
	// FindByIDForVendorForUpdate is FindByIDForVendor with a row lock
	FindByIDForVendorForUpdate(ctx context.Context, id, vendorID uuid.UUID) (*domain.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]*domain.Product, int, error)
	ListByVendor(ctx context.Context, vendorID uuid.UUID) ([]*domain.Product, error)
	ConsumeStock(ctx context.Context, id uuid.UUID, quantity int) error
}

type productRepository struct {
	db DBTX
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db DBTX) ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `p.id, p.title, p.description, p.price, p.stock, p.category_id, p.vendor_id,
		p.image_url, p.sold_count, p.created_at, p.updated_at`

// Create inserts a new product into the database using parameterized queries
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (id, title, description, price, stock, category_id, vendor_id,
		                      image_url, sold_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Title,
		product.Description,
		product.Price,
		product.Stock,
		product.CategoryID,
		product.VendorID,
		product.ImageURL,
		product.SoldCount,
		product.CreatedAt,
		product.UpdatedAt,
	)

	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return domain.ErrCategoryNotFound
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// Update writes the columns named by update on a product owned by vendorID.
// Products of other vendors are never matched and surface as not found.
func (r *productRepository) Update(ctx context.Context, id, vendorID uuid.UUID, update ProductUpdate) error {
	setClauses := []string{"updated_at = $3"}
	args := []interface{}{id, vendorID, update.UpdatedAt}

	set := func(column string, value interface{}) {
		args = append(args, value)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if update.Title != nil {
		set("title", *update.Title)
	}
	if update.Description != nil {
		set("description", *update.Description)
	}
	if update.Price != nil {
		set("price", *update.Price)
	}
	if update.Stock != nil {
		set("stock", *update.Stock)
	}
	if update.CategoryID != nil {
		set("category_id", *update.CategoryID)
	}
	if update.ImageURL != nil {
		set("image_url", *update.ImageURL)
	}

	query := fmt.Sprintf(
		"UPDATE products SET %s WHERE id = $1 AND vendor_id = $2",
		strings.Join(setClauses, ", "),
	)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return domain.ErrCategoryNotFound
		}
		return fmt.Errorf("failed to update product: %w", err)
	}

	return checkRowsAffected(result, domain.ErrProductNotFound)
}

// Delete removes a product owned by vendorID
func (r *productRepository) Delete(ctx context.Context, id, vendorID uuid.UUID) error {
	query := `DELETE FROM products WHERE id = $1 AND vendor_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, vendorID)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	return checkRowsAffected(result, domain.ErrProductNotFound)
}

// FindByID retrieves a product with its vendor and category names
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `
		SELECT ` + productColumns + `, v.business_name, c.name
		FROM products p
		JOIN vendors v ON v.user_id = p.vendor_id
		JOIN categories c ON c.id = p.category_id
		WHERE p.id = $1
	`

	product := &domain.Product{}
	dest := append(productDest(product), &product.VendorName, &product.CategoryName)
	if err := r.db.QueryRowContext(ctx, query, id).Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// FindByIDForVendor retrieves a product only if vendorID owns it
func (r *productRepository) FindByIDForVendor(ctx context.Context, id, vendorID uuid.UUID) (*domain.Product, error) {
	return r.findForVendor(ctx, id, vendorID, "")
}

func (r *productRepository) FindByIDForVendorForUpdate(ctx context.Context, id, vendorID uuid.UUID) (*domain.Product, error) {
	return r.findForVendor(ctx, id, vendorID, "FOR UPDATE")
}

func (r *productRepository) findForVendor(ctx context.Context, id, vendorID uuid.UUID, lock string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products p WHERE p.id = $1 AND p.vendor_id = $2 ` + lock

	product := &domain.Product{}
	if err := r.db.QueryRowContext(ctx, query, id, vendorID).Scan(productDest(product)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// List retrieves products with optional filtering, search, pagination, and sorting
func (r *productRepository) List(ctx context.Context, filter ProductFilter) ([]*domain.Product, int, error) {
	// Validate sort field to prevent SQL injection
	validSortFields := map[string]bool{
		"title":      true,
		"price":      true,
		"sold_count": true,
		"created_at": true,
	}

	sortBy := filter.SortBy
	if !validSortFields[sortBy] {
		sortBy = "created_at"
	}

	sortOrder := filter.SortOrder
	if sortOrder != SortOrderAsc && sortOrder != SortOrderDesc {
		sortOrder = SortOrderDesc
	}

	// Build the WHERE clause
	conditions := []string{}
	args := []any{}

	if filter.ID != nil {
		args = append(args, *filter.ID)
		conditions = append(conditions, fmt.Sprintf("p.id = $%d", len(args)))
	}
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		conditions = append(conditions, fmt.Sprintf("p.category_id = $%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		// Use ILIKE for case-insensitive search
		args = append(args, "%"+search+"%")
		conditions = append(conditions, fmt.Sprintf("(p.title ILIKE $%d OR p.description ILIKE $%d)", len(args), len(args)))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	// Count total products
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM products p %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	page, pageSize := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`
		SELECT %s
		FROM products p
		%s
		ORDER BY p.%s %s, p.id
		LIMIT $%d OFFSET $%d
	`, productColumns, whereClause, sortBy, sortOrder, len(args)+1, len(args)+2)

	args = append(args, pageSize, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products, err := scanProducts(rows)
	if err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

// ListByVendor retrieves every product owned by a vendor, newest first
func (r *productRepository) ListByVendor(ctx context.Context, vendorID uuid.UUID) ([]*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products p WHERE p.vendor_id = $1 ORDER BY p.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, vendorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list vendor products: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

// ConsumeStock decrements stock and increments sold_count. It fails with
// ErrInsufficientStock when fewer than quantity units remain.
func (r *productRepository) ConsumeStock(ctx context.Context, id uuid.UUID, quantity int) error {
	query := `
		UPDATE products
		SET stock = stock - $2, sold_count = sold_count + $2
		WHERE id = $1 AND stock >= $2
	`

	result, err := r.db.ExecContext(ctx, query, id, quantity)
	if err != nil {
		return fmt.Errorf("failed to consume stock: %w", err)
	}

	return checkRowsAffected(result, domain.ErrInsufficientStock)
}

func productDest(product *domain.Product) []any {
	return []any{
		&product.ID,
		&product.Title,
		&product.Description,
		&product.Price,
		&product.Stock,
		&product.CategoryID,
		&product.VendorID,
		&product.ImageURL,
		&product.SoldCount,
		&product.CreatedAt,
		&product.UpdatedAt,
	}
}

func scanProducts(rows *sql.Rows) ([]*domain.Product, error) {
	products := []*domain.Product{}
	for rows.Next() {
		product := &domain.Product{}
		if err := rows.Scan(productDest(product)...); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}
