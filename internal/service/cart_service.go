package service

import (
	"context"
	"errors"

	"marketplace/internal/domain"
	"marketplace/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CartService defines the interface for shopping cart business logic.
// Every mutation recomputes the cart total inside the same transaction.
type CartService interface {
	AddItem(ctx context.Context, customerID, productID uuid.UUID, quantity int) (*domain.Cart, error)
	UpdateItem(ctx context.Context, customerID, itemID uuid.UUID, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, customerID, itemID uuid.UUID) (*domain.Cart, error)
	ViewCart(ctx context.Context, customerID uuid.UUID) (*domain.Cart, error)
}

type cartService struct {
	repos  *repository.Repositories
	txm    repository.TxManager
	logger *zap.Logger
}

// NewCartService creates a new instance of CartService
func NewCartService(repos *repository.Repositories, txm repository.TxManager, logger *zap.Logger) CartService {
	return &cartService{repos: repos, txm: txm, logger: logger}
}

// AddItem adds quantity units of a product to the customer's cart, creating
// the cart on first use. A product already in the cart has its quantity
// increased and keeps the price it was first added at.
func (s *cartService) AddItem(ctx context.Context, customerID, productID uuid.UUID, quantity int) (*domain.Cart, error) {
	if quantity < 1 || quantity > domain.MaxItemQuantity {
		return nil, domain.ErrInvalidQuantity
	}

	var cart *domain.Cart
	err := s.txm.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		product, err := repos.Products.FindByID(ctx, productID)
		if err != nil {
			return err
		}

		cart, err = repos.Carts.GetOrCreateForUpdate(ctx, customerID)
		if err != nil {
			return err
		}

		if _, err := repos.Carts.AddItem(ctx, &domain.CartItem{
			ID:        uuid.New(),
			CartID:    cart.ID,
			ProductID: product.ID,
			Quantity:  quantity,
			Price:     product.Price,
		}); err != nil {
			return err
		}

		return recomputeCart(ctx, repos, cart)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Cart item added",
		zap.String("customer_id", customerID.String()),
		zap.String("product_id", productID.String()),
		zap.Int("quantity", quantity),
	)
	return cart, nil
}

// UpdateItem sets the quantity of a line in the customer's cart. A quantity
// of zero or less removes the line.
func (s *cartService) UpdateItem(ctx context.Context, customerID, itemID uuid.UUID, quantity int) (*domain.Cart, error) {
	if quantity > domain.MaxItemQuantity {
		return nil, domain.ErrInvalidQuantity
	}

	var cart *domain.Cart
	err := s.txm.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		var err error
		cart, err = repos.Carts.FindByCustomerForUpdate(ctx, customerID)
		if err != nil {
			return err
		}

		if _, err := repos.Carts.FindItem(ctx, cart.ID, itemID); err != nil {
			return err
		}

		if quantity <= 0 {
			err = repos.Carts.DeleteItem(ctx, cart.ID, itemID)
		} else {
			err = repos.Carts.UpdateItemQuantity(ctx, cart.ID, itemID, quantity)
		}
		if err != nil {
			return err
		}

		return recomputeCart(ctx, repos, cart)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Cart item updated",
		zap.String("customer_id", customerID.String()),
		zap.String("item_id", itemID.String()),
		zap.Int("quantity", quantity),
	)
	return cart, nil
}

func (s *cartService) RemoveItem(ctx context.Context, customerID, itemID uuid.UUID) (*domain.Cart, error) {
	var cart *domain.Cart
	err := s.txm.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		var err error
		cart, err = repos.Carts.FindByCustomerForUpdate(ctx, customerID)
		if err != nil {
			return err
		}

		if err := repos.Carts.DeleteItem(ctx, cart.ID, itemID); err != nil {
			return err
		}

		return recomputeCart(ctx, repos, cart)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Cart item removed",
		zap.String("customer_id", customerID.String()),
		zap.String("item_id", itemID.String()),
	)
	return cart, nil
}

// ViewCart returns the customer's cart. A customer without a cart gets
// ErrCartNotFound, which is an expected state rather than a failure.
func (s *cartService) ViewCart(ctx context.Context, customerID uuid.UUID) (*domain.Cart, error) {
	cart, err := s.repos.Carts.FindByCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, domain.ErrNoActiveCart) {
			return nil, domain.ErrCartNotFound
		}
		return nil, err
	}

	items, err := s.repos.Carts.ListItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	cart.Items = items

	return cart, nil
}

// recomputeCart reloads the lines of cart and stores their sum as its total.
// A merged line above MaxItemQuantity or a total above MaxTotal fails the
// surrounding transaction.
func recomputeCart(ctx context.Context, repos *repository.Repositories, cart *domain.Cart) error {
	items, err := repos.Carts.ListItems(ctx, cart.ID)
	if err != nil {
		return err
	}

	for _, item := range items {
		if item.Quantity > domain.MaxItemQuantity {
			return domain.ErrInvalidQuantity
		}
	}

	cart.Items = items
	cart.TotalPrice = domain.CalculateTotal(items)
	if cart.TotalPrice.GreaterThan(domain.MaxTotal) {
		return domain.ErrCartTotalTooLarge
	}

	return repos.Carts.UpdateTotal(ctx, cart.ID, cart.TotalPrice)
}
