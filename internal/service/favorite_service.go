package service

import (
	"context"
	"time"

	"marketplace/internal/domain"
	"marketplace/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FavoriteService defines the interface for wishlist business logic
type FavoriteService interface {
	// AddFavorite reports whether the product was newly favorited.
	AddFavorite(ctx context.Context, customerID, productID uuid.UUID) (bool, error)
	RemoveFavorite(ctx context.Context, customerID, productID uuid.UUID) error
	ListFavorites(ctx context.Context, customerID uuid.UUID) ([]*domain.Product, error)
}

type favoriteService struct {
	repos  *repository.Repositories
	logger *zap.Logger
}

// NewFavoriteService creates a new instance of FavoriteService
func NewFavoriteService(repos *repository.Repositories, logger *zap.Logger) FavoriteService {
	return &favoriteService{repos: repos, logger: logger}
}

func (s *favoriteService) AddFavorite(ctx context.Context, customerID, productID uuid.UUID) (bool, error) {
	if _, err := s.repos.Products.FindByID(ctx, productID); err != nil {
		return false, err
	}

	created, err := s.repos.Favorites.Add(ctx, &domain.Favorite{
		ID:         uuid.New(),
		CustomerID: customerID,
		ProductID:  productID,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		return false, err
	}

	if created {
		s.logger.Debug("Favorite added",
			zap.String("customer_id", customerID.String()),
			zap.String("product_id", productID.String()),
		)
	}
	return created, nil
}

func (s *favoriteService) RemoveFavorite(ctx context.Context, customerID, productID uuid.UUID) error {
	return s.repos.Favorites.Remove(ctx, customerID, productID)
}

func (s *favoriteService) ListFavorites(ctx context.Context, customerID uuid.UUID) ([]*domain.Product, error) {
	return s.repos.Favorites.ListProducts(ctx, customerID)
}
