package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"marketplace/internal/domain"

	"github.com/google/uuid"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	CreateVendor(ctx context.Context, vendor *domain.Vendor) error
	CreateCustomer(ctx context.Context, customer *domain.Customer) error
	FindByLogin(ctx context.Context, login string) (*domain.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	FindVendor(ctx context.Context, userID uuid.UUID) (*domain.Vendor, error)
	FindCustomer(ctx context.Context, userID uuid.UUID) (*domain.Customer, error)
}

type userRepository struct {
	db DBTX
}

// NewUserRepository creates a new instance of UserRepository
func NewUserRepository(db DBTX) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, email, username, password_hash, role, created_at, updated_at`

// Create inserts a new user into the database using parameterized queries
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, email, username, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		user.ID,
		user.Email,
		user.Username,
		user.PasswordHash,
		user.Role,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		// Duplicate email or username
		if isUniqueViolation(err, "") {
			return domain.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// CreateVendor inserts the vendor profile of an existing user
func (r *userRepository) CreateVendor(ctx context.Context, vendor *domain.Vendor) error {
	query := `
		INSERT INTO vendors (user_id, business_name, business_address)
		VALUES ($1, $2, $3)
	`

	if _, err := r.db.ExecContext(ctx, query, vendor.UserID, vendor.BusinessName, vendor.BusinessAddress); err != nil {
		return fmt.Errorf("failed to create vendor: %w", err)
	}
	return nil
}

// CreateCustomer inserts the customer profile of an existing user
func (r *userRepository) CreateCustomer(ctx context.Context, customer *domain.Customer) error {
	query := `
		INSERT INTO customers (user_id, shipping_address)
		VALUES ($1, $2)
	`

	if _, err := r.db.ExecContext(ctx, query, customer.UserID, customer.ShippingAddress); err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}
	return nil
}

// FindByLogin retrieves a user by email or username
func (r *userRepository) FindByLogin(ctx context.Context, login string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 OR username = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, login))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user by login: %w", err)
	}

	return user, nil
}

// FindByID retrieves a user by ID using parameterized queries
func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	return user, nil
}

// FindVendor retrieves the vendor profile of a user
func (r *userRepository) FindVendor(ctx context.Context, userID uuid.UUID) (*domain.Vendor, error) {
	query := `SELECT user_id, business_name, business_address FROM vendors WHERE user_id = $1`

	vendor := &domain.Vendor{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&vendor.UserID,
		&vendor.BusinessName,
		&vendor.BusinessAddress,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrVendorNotFound
		}
		return nil, fmt.Errorf("failed to find vendor: %w", err)
	}

	return vendor, nil
}

// FindCustomer retrieves the customer profile of a user
func (r *userRepository) FindCustomer(ctx context.Context, userID uuid.UUID) (*domain.Customer, error) {
	query := `SELECT user_id, shipping_address FROM customers WHERE user_id = $1`

	customer := &domain.Customer{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&customer.UserID, &customer.ShippingAddress)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to find customer: %w", err)
	}

	return customer, nil
}

func scanUser(row *sql.Row) (*domain.User, error) {
	user := &domain.User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}
