package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"marketplace/internal/cache"
	"marketplace/internal/domain"
	"marketplace/internal/events"
	"marketplace/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

// CheckoutInput holds the customer's payment and shipping choice
type CheckoutInput struct {
	PaymentMethod   domain.PaymentMethod
	ShippingAddress string
}

// CheckoutResult is the outcome of a successful checkout
type CheckoutResult struct {
	Checkout *domain.Checkout
	Order    *domain.Order
}

// CheckoutService defines the interface for turning a cart into an order
type CheckoutService interface {
	Checkout(ctx context.Context, customerID uuid.UUID, input CheckoutInput) (*CheckoutResult, error)
	RetrieveCheckouts(ctx context.Context, customerID uuid.UUID) ([]*domain.Checkout, error)
}

type checkoutService struct {
	repos     *repository.Repositories
	txm       repository.TxManager
	cache     cache.ProductCache
	publisher events.Publisher
	logger    *zap.Logger
}

// NewCheckoutService creates a new instance of CheckoutService
func NewCheckoutService(
	repos *repository.Repositories,
	txm repository.TxManager,
	productCache cache.ProductCache,
	publisher events.Publisher,
	logger *zap.Logger,
) CheckoutService {
	return &checkoutService{
		repos:     repos,
		txm:       txm,
		cache:     productCache,
		publisher: publisher,
		logger:    logger,
	}
}

// Checkout places an order from the customer's cart. Order creation, stock
// consumption, the checkout record and cart removal commit together or not
// at all. Both payment methods settle immediately.
func (s *checkoutService) Checkout(ctx context.Context, customerID uuid.UUID, input CheckoutInput) (*CheckoutResult, error) {
	if !input.PaymentMethod.Valid() {
		return nil, domain.ErrInvalidPaymentMethod
	}

	address, err := s.shippingAddress(ctx, customerID, input.ShippingAddress)
	if err != nil {
		return nil, err
	}

	var result *CheckoutResult
	err = s.txm.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		cart, err := repos.Carts.FindByCustomerForUpdate(ctx, customerID)
		if err != nil {
			if errors.Is(err, domain.ErrNoActiveCart) {
				return domain.ErrCartNotFound
			}
			return err
		}

		items, err := repos.Carts.ListItems(ctx, cart.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return domain.ErrEmptyCart
		}
		cart.Items = items

		now := time.Now()
		order := domain.NewOrderFromCart(cart, address, now)
		if err := repos.Orders.Create(ctx, order); err != nil {
			return err
		}

		for _, item := range order.Items {
			if err := repos.Products.ConsumeStock(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}

		checkout := &domain.Checkout{
			ID:              uuid.New(),
			CustomerID:      customerID,
			OrderID:         order.ID,
			PaymentStatus:   domain.PaymentStatusPaid,
			PaymentMethod:   input.PaymentMethod,
			ShippingAddress: address,
			TotalPrice:      order.TotalPrice,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := repos.Checkouts.Create(ctx, checkout); err != nil {
			return err
		}

		if err := repos.Carts.Delete(ctx, cart.ID); err != nil {
			return err
		}

		result = &CheckoutResult{Checkout: checkout, Order: order}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Checkout completed",
		zap.String("customer_id", customerID.String()),
		zap.String("order_id", result.Order.ID.String()),
		zap.String("checkout_id", result.Checkout.ID.String()),
		zap.String("total", result.Order.TotalPrice.StringFixed(2)),
	)

	s.afterCommit(ctx, result)
	return result, nil
}

func (s *checkoutService) shippingAddress(ctx context.Context, customerID uuid.UUID, requested string) (string, error) {
	if address := strings.TrimSpace(requested); address != "" {
		return address, nil
	}

	customer, err := s.repos.Users.FindCustomer(ctx, customerID)
	if err != nil {
		return "", err
	}
	if address := strings.TrimSpace(customer.ShippingAddress); address != "" {
		return address, nil
	}
	return "", domain.ErrShippingAddressRequired
}

// afterCommit refreshes cached stock and announces the order. Failures are
// logged only; the checkout has already committed.
func (s *checkoutService) afterCommit(ctx context.Context, result *CheckoutResult) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	for _, item := range result.Order.Items {
		if err := s.cache.Invalidate(ctx, item.ProductID); err != nil {
			s.logger.Warn("Product cache invalidation failed",
				zap.String("product_id", item.ProductID.String()),
				zap.Error(err),
			)
		}
	}

	event := events.NewOrderPlacedEvent(result.Order, result.Checkout)
	if err := s.publisher.PublishOrderPlaced(ctx, event); err != nil {
		s.logger.Error("Failed to publish order event",
			zap.String("order_id", result.Order.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *checkoutService) RetrieveCheckouts(ctx context.Context, customerID uuid.UUID) ([]*domain.Checkout, error) {
	return s.repos.Checkouts.ListByCustomer(ctx, customerID)
}
