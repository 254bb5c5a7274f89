package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"marketplace/internal/cache"
	"marketplace/internal/domain"
	"marketplace/internal/images"
	"marketplace/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MaxPageSize caps product listing pages
const MaxPageSize = 100

// CategoryInput holds the writable fields of a category
type CategoryInput struct {
	Name     string
	ParentID *uuid.UUID
}

// ProductInput holds the fields of a new product
type ProductInput struct {
	Title       string
	Description string
	Price       decimal.Decimal
	Stock       int
	CategoryID  uuid.UUID
	ImageURL    string
}

// ProductPatch holds a partial product update; nil fields are left unchanged
type ProductPatch struct {
	Title       *string
	Description *string
	Price       *decimal.Decimal
	Stock       *int
	CategoryID  *uuid.UUID
	ImageURL    *string
}

// ProductPage is one page of a product listing
type ProductPage struct {
	Products []*domain.Product
	Total    int
	Page     int
	PageSize int
}

// Dashboard is a vendor's catalog overview
type Dashboard struct {
	Vendor   *domain.Vendor
	Products []*domain.Product
	Summary  domain.VendorSummary
}

// CatalogService defines the interface for category and product business logic
type CatalogService interface {
	ListCategories(ctx context.Context) ([]*domain.Category, error)
	CreateCategory(ctx context.Context, input CategoryInput) (*domain.Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, input CategoryInput) (*domain.Category, error)

	ListProducts(ctx context.Context, filter repository.ProductFilter) (*ProductPage, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	CreateProduct(ctx context.Context, vendorID uuid.UUID, input ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, vendorID, id uuid.UUID, patch ProductPatch) (*domain.Product, error)
	DeleteProduct(ctx context.Context, vendorID, id uuid.UUID) error
	VendorDashboard(ctx context.Context, vendorID uuid.UUID) (*Dashboard, error)
}

type catalogService struct {
	repos  *repository.Repositories
	txm    repository.TxManager
	cache  cache.ProductCache
	images images.Resolver
	logger *zap.Logger
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(
	repos *repository.Repositories,
	txm repository.TxManager,
	productCache cache.ProductCache,
	imageResolver images.Resolver,
	logger *zap.Logger,
) CatalogService {
	return &catalogService{
		repos:  repos,
		txm:    txm,
		cache:  productCache,
		images: imageResolver,
		logger: logger,
	}
}

func (s *catalogService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	return s.repos.Categories.List(ctx)
}

func (s *catalogService) CreateCategory(ctx context.Context, input CategoryInput) (*domain.Category, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, domain.ErrCategoryNameRequired
	}

	now := time.Now()
	category := &domain.Category{
		ID:        uuid.New(),
		Name:      name,
		ParentID:  input.ParentID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repos.Categories.Create(ctx, category); err != nil {
		return nil, err
	}

	s.logger.Info("Category created",
		zap.String("category_id", category.ID.String()),
		zap.String("name", category.Name),
	)
	return category, nil
}

// UpdateCategory renames and re-parents a category. The new parent may not
// be the category itself or any of its descendants.
func (s *catalogService) UpdateCategory(ctx context.Context, id uuid.UUID, input CategoryInput) (*domain.Category, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, domain.ErrCategoryNameRequired
	}

	var category *domain.Category
	err := s.txm.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		var err error
		category, err = repos.Categories.FindByID(ctx, id)
		if err != nil {
			return err
		}

		if input.ParentID != nil {
			if err := checkCategoryCycle(ctx, repos.Categories, id, *input.ParentID); err != nil {
				return err
			}
		}

		category.Name = name
		category.ParentID = input.ParentID
		category.UpdatedAt = time.Now()
		return repos.Categories.Update(ctx, category)
	})
	if err != nil {
		return nil, err
	}

	return category, nil
}

// checkCategoryCycle walks the ancestors of parentID and fails if id is among them
func checkCategoryCycle(ctx context.Context, categories repository.CategoryRepository, id, parentID uuid.UUID) error {
	seen := map[uuid.UUID]bool{}
	current := &parentID
	for current != nil {
		if *current == id {
			return domain.ErrCategoryCycle
		}
		if seen[*current] {
			// The stored tree already loops without reaching id.
			return nil
		}
		seen[*current] = true

		ancestor, err := categories.FindByID(ctx, *current)
		if err != nil {
			return err
		}
		current = ancestor.ParentID
	}
	return nil
}

func (s *catalogService) ListProducts(ctx context.Context, filter repository.ProductFilter) (*ProductPage, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	if filter.PageSize > MaxPageSize {
		filter.PageSize = MaxPageSize
	}

	products, total, err := s.repos.Products.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &ProductPage{
		Products: products,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}, nil
}

// GetProduct returns the product detail view, served from cache when possible
func (s *catalogService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, err := s.cache.Get(ctx, id)
	if err == nil {
		return product, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		s.logger.Warn("Product cache read failed", zap.String("product_id", id.String()), zap.Error(err))
	}

	product, err = s.repos.Products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, product); err != nil {
		s.logger.Warn("Product cache write failed", zap.String("product_id", id.String()), zap.Error(err))
	}

	return product, nil
}

func (s *catalogService) CreateProduct(ctx context.Context, vendorID uuid.UUID, input ProductInput) (*domain.Product, error) {
	now := time.Now()
	product := &domain.Product{
		ID:          uuid.New(),
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Price:       input.Price,
		Stock:       input.Stock,
		CategoryID:  input.CategoryID,
		VendorID:    vendorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := product.Validate(); err != nil {
		return nil, err
	}

	imageURL, err := s.images.Resolve(ctx, input.ImageURL)
	if err != nil {
		return nil, err
	}
	product.ImageURL = imageURL

	if err := s.repos.Products.Create(ctx, product); err != nil {
		return nil, err
	}

	s.logger.Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.String("vendor_id", vendorID.String()),
	)

	return s.repos.Products.FindByID(ctx, product.ID)
}

// UpdateProduct applies patch to a product owned by vendorID. Products of
// other vendors are reported as not found. Only the fields named by patch
// are written, so concurrent stock consumption is never overwritten.
func (s *catalogService) UpdateProduct(ctx context.Context, vendorID, id uuid.UUID, patch ProductPatch) (*domain.Product, error) {
	current, err := s.repos.Products.FindByIDForVendor(ctx, id, vendorID)
	if err != nil {
		return nil, err
	}

	update := repository.ProductUpdate{
		Description: patch.Description,
		Price:       patch.Price,
		Stock:       patch.Stock,
		CategoryID:  patch.CategoryID,
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		update.Title = &title
	}

	preview := *current
	applyProductUpdate(&preview, update)
	if err := preview.Validate(); err != nil {
		return nil, err
	}

	// The image fetch happens before any row is locked.
	if patch.ImageURL != nil && *patch.ImageURL != current.ImageURL {
		imageURL, err := s.images.Resolve(ctx, *patch.ImageURL)
		if err != nil {
			return nil, err
		}
		update.ImageURL = &imageURL
	}

	err = s.txm.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		product, err := repos.Products.FindByIDForVendorForUpdate(ctx, id, vendorID)
		if err != nil {
			return err
		}
		applyProductUpdate(product, update)
		if err := product.Validate(); err != nil {
			return err
		}

		update.UpdatedAt = time.Now()
		return repos.Products.Update(ctx, id, vendorID, update)
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)

	s.logger.Info("Product updated",
		zap.String("product_id", id.String()),
		zap.String("vendor_id", vendorID.String()),
	)

	return s.repos.Products.FindByID(ctx, id)
}

// applyProductUpdate mirrors the pending write on product for validation
func applyProductUpdate(product *domain.Product, update repository.ProductUpdate) {
	if update.Title != nil {
		product.Title = *update.Title
	}
	if update.Description != nil {
		product.Description = *update.Description
	}
	if update.Price != nil {
		product.Price = *update.Price
	}
	if update.Stock != nil {
		product.Stock = *update.Stock
	}
	if update.CategoryID != nil {
		product.CategoryID = *update.CategoryID
	}
	if update.ImageURL != nil {
		product.ImageURL = *update.ImageURL
	}
}

func (s *catalogService) DeleteProduct(ctx context.Context, vendorID, id uuid.UUID) error {
	if err := s.repos.Products.Delete(ctx, id, vendorID); err != nil {
		return err
	}
	s.invalidate(ctx, id)

	s.logger.Info("Product deleted",
		zap.String("product_id", id.String()),
		zap.String("vendor_id", vendorID.String()),
	)
	return nil
}

func (s *catalogService) VendorDashboard(ctx context.Context, vendorID uuid.UUID) (*Dashboard, error) {
	vendor, err := s.repos.Users.FindVendor(ctx, vendorID)
	if err != nil {
		return nil, err
	}

	products, err := s.repos.Products.ListByVendor(ctx, vendorID)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		Vendor:   vendor,
		Products: products,
		Summary:  domain.Summarize(products),
	}, nil
}

func (s *catalogService) invalidate(ctx context.Context, id uuid.UUID) {
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.Warn("Product cache invalidation failed", zap.String("product_id", id.String()), zap.Error(err))
	}
}
