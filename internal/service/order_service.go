package service

import (
	"context"

	"marketplace/internal/domain"
	"marketplace/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderService defines the interface for placed order business logic
type OrderService interface {
	ListOrders(ctx context.Context, customerID uuid.UUID) ([]*domain.Order, error)
	GetOrder(ctx context.Context, customerID, orderID uuid.UUID) (*domain.Order, error)
	CancelOrder(ctx context.Context, customerID, orderID uuid.UUID) (*domain.Order, error)
}

type orderService struct {
	repos  *repository.Repositories
	txm    repository.TxManager
	logger *zap.Logger
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(repos *repository.Repositories, txm repository.TxManager, logger *zap.Logger) OrderService {
	return &orderService{repos: repos, txm: txm, logger: logger}
}

func (s *orderService) ListOrders(ctx context.Context, customerID uuid.UUID) ([]*domain.Order, error) {
	return s.repos.Orders.ListByCustomer(ctx, customerID)
}

func (s *orderService) GetOrder(ctx context.Context, customerID, orderID uuid.UUID) (*domain.Order, error) {
	return s.repos.Orders.FindForCustomer(ctx, orderID, customerID)
}

// CancelOrder cancels an order that has not shipped yet
func (s *orderService) CancelOrder(ctx context.Context, customerID, orderID uuid.UUID) (*domain.Order, error) {
	var order *domain.Order
	err := s.txm.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		var err error
		order, err = repos.Orders.FindForCustomerForUpdate(ctx, orderID, customerID)
		if err != nil {
			return err
		}

		if !order.Status.CanTransitionTo(domain.OrderStatusCancelled) {
			return domain.ErrInvalidOrderTransition
		}

		if err := repos.Orders.UpdateStatus(ctx, order.ID, domain.OrderStatusCancelled); err != nil {
			return err
		}
		order.Status = domain.OrderStatusCancelled
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order cancelled",
		zap.String("customer_id", customerID.String()),
		zap.String("order_id", orderID.String()),
	)
	return order, nil
}
