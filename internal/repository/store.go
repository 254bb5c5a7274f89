package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sethvargo/go-retry"
)

// PostgreSQL error codes the store reacts to
const (
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so every repository can run
// inside or outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repositories groups the repositories bound to one DBTX
type Repositories struct {
	Users         UserRepository
	RefreshTokens RefreshTokenRepository
	Categories    CategoryRepository
	Products      ProductRepository
	Carts         CartRepository
	Orders        OrderRepository
	Checkouts     CheckoutRepository
	Favorites     FavoriteRepository
}

// NewRepositories binds every repository to db
func NewRepositories(db DBTX) *Repositories {
	return &Repositories{
		Users:         NewUserRepository(db),
		RefreshTokens: NewRefreshTokenRepository(db),
		Categories:    NewCategoryRepository(db),
		Products:      NewProductRepository(db),
		Carts:         NewCartRepository(db),
		Orders:        NewOrderRepository(db),
		Checkouts:     NewCheckoutRepository(db),
		Favorites:     NewFavoriteRepository(db),
	}
}

// TxManager runs a unit of work inside a database transaction
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos *Repositories) error) error
}

// RetryPolicy bounds how often a conflicting transaction is replayed
type RetryPolicy struct {
	MaxRetries uint64
	BaseDelay  time.Duration
}

// DefaultRetryPolicy retries three times starting at 10ms
var DefaultRetryPolicy = RetryPolicy{MaxRetries: 3, BaseDelay: 10 * time.Millisecond}

type sqlTxManager struct {
	db     *sql.DB
	policy RetryPolicy
}

// NewTxManager creates a TxManager that replays transactions failing with a
// serialization failure, deadlock, or unique violation.
func NewTxManager(db *sql.DB, policy RetryPolicy) TxManager {
	return &sqlTxManager{db: db, policy: policy}
}

// WithinTx commits when fn returns nil and rolls back otherwise
func (m *sqlTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context, repos *Repositories) error) error {
	backoff := retry.WithMaxRetries(m.policy.MaxRetries, retry.NewExponential(m.policy.BaseDelay))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := m.runOnce(ctx, fn)
		if IsRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func (m *sqlTxManager) runOnce(ctx context.Context, fn func(ctx context.Context, repos *Repositories) error) (err error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, NewRepositories(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// IsRetryable reports whether err is a transient conflict worth replaying
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case pgSerializationFailure, pgDeadlockDetected, pgUniqueViolation:
		return true
	}
	return false
}

func isPgError(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation &&
		(constraint == "" || pgErr.ConstraintName == constraint)
}

func checkRowsAffected(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}
