package transport

import (
	"net/http"
	"strconv"
	"strings"

	"marketplace/internal/domain"
	"marketplace/internal/middleware"
	"marketplace/internal/repository"
	"marketplace/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var errInvalidQuery = domain.NewError(domain.ErrValidation, "invalid query parameter")

// CategoryRequest represents the category create/update payload
type CategoryRequest struct {
	Name     string     `json:"name" validate:"required,max=255"`
	ParentID *uuid.UUID `json:"parent_id"`
}

// CreateProductRequest represents the product create payload
type CreateProductRequest struct {
	Title       string          `json:"title" validate:"required,max=255"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price" validate:"money"`
	Stock       int             `json:"stock" validate:"gte=0,lte=2147483647"`
	CategoryID  uuid.UUID       `json:"category_id" validate:"required"`
	ImageURL    string          `json:"image_url" validate:"omitempty,url"`
}

// UpdateProductRequest represents a partial product update
type UpdateProductRequest struct {
	Title       *string          `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price" validate:"omitempty,money"`
	Stock       *int             `json:"stock" validate:"omitempty,gte=0,lte=2147483647"`
	CategoryID  *uuid.UUID       `json:"category_id"`
	ImageURL    *string          `json:"image_url" validate:"omitempty,url"`
}

// CatalogHandler handles HTTP requests for categories, products and the
// vendor store
type CatalogHandler struct {
	catalog service.CatalogService
	logger  *zap.Logger
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(catalog service.CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, logger: logger}
}

// RegisterRoutes registers catalog and store routes
func (h *CatalogHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Get("/api/categories", h.ListCategories)
	r.Get("/api/products", h.ListProducts)
	r.Get("/api/products/{id}", h.GetProduct)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(middleware.RequireVendor(h.logger))

		r.Post("/api/categories", h.CreateCategory)
		r.Patch("/api/categories/{id}", h.UpdateCategory)

		r.Post("/api/store/product/create", h.CreateProduct)
		r.Patch("/api/store/product/update/{id}", h.UpdateProduct)
		r.Delete("/api/store/product/delete/{id}", h.DeleteProduct)

		r.Get("/api/vendor/dashboard", h.Dashboard)
	})
}

// ListCategories returns the category choice list
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, toCategoryChoices(categories))
}

func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	category, err := h.catalog.CreateCategory(r.Context(), service.CategoryInput{Name: req.Name, ParentID: req.ParentID})
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}
	middleware.RespondWithMessage(w, http.StatusCreated, "category created successfully", category)
}

func (h *CatalogHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}

	var req CategoryRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	category, err := h.catalog.UpdateCategory(r.Context(), id, service.CategoryInput{Name: req.Name, ParentID: req.ParentID})
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}
	middleware.RespondWithMessage(w, http.StatusOK, "category updated successfully", category)
}

// ListProducts handles GET /api/products?id=&category=&q=&ordering=&page=&page_size=
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter, err := parseProductFilter(r)
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}

	page, err := h.catalog.ListProducts(r.Context(), filter)
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ProductPageResponse{
		Count:    page.Total,
		Page:     page.Page,
		PageSize: page.PageSize,
		Results:  toProductResponses(page.Products),
	})
}

func parseProductFilter(r *http.Request) (repository.ProductFilter, error) {
	query := r.URL.Query()
	filter := repository.ProductFilter{
		Search: query.Get("q"),
	}
	if filter.Search == "" {
		filter.Search = query.Get("search")
	}

	if raw := query.Get("id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filter, errInvalidQuery
		}
		filter.ID = &id
	}
	if raw := query.Get("category"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filter, errInvalidQuery
		}
		filter.CategoryID = &id
	}

	if ordering := query.Get("ordering"); ordering != "" {
		filter.SortOrder = repository.SortOrderAsc
		if strings.HasPrefix(ordering, "-") {
			filter.SortOrder = repository.SortOrderDesc
			ordering = strings.TrimPrefix(ordering, "-")
		}
		switch ordering {
		case "price", "sold_count", "title":
			filter.SortBy = ordering
		default:
			return filter, errInvalidQuery
		}
	}

	var err error
	if filter.Page, err = intQuery(query.Get("page")); err != nil {
		return filter, err
	}
	if filter.PageSize, err = intQuery(query.Get("page_size")); err != nil {
		return filter, err
	}
	return filter, nil
}

func intQuery(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errInvalidQuery
	}
	return n, nil
}

func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}

	product, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, toProductResponse(product))
}

func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}

	var req CreateProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	product, err := h.catalog.CreateProduct(r.Context(), caller.UserID, service.ProductInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		CategoryID:  req.CategoryID,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}
	middleware.RespondWithMessage(w, http.StatusCreated, "product created successfully", toProductResponse(product))
}

func (h *CatalogHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}
	id, err := uuidParam(r, "id")
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}

	var req UpdateProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	product, err := h.catalog.UpdateProduct(r.Context(), caller.UserID, id, service.ProductPatch{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		CategoryID:  req.CategoryID,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}
	middleware.RespondWithMessage(w, http.StatusOK, "product updated successfully", toProductResponse(product))
}

func (h *CatalogHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}
	id, err := uuidParam(r, "id")
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}

	if err := h.catalog.DeleteProduct(r.Context(), caller.UserID, id); err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}
	middleware.RespondWithMessage(w, http.StatusOK, "product deleted successfully", nil)
}

// Dashboard returns the calling vendor's products and totals
func (h *CatalogHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	caller, err := identity(r)
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}

	dashboard, err := h.catalog.VendorDashboard(r.Context(), caller.UserID)
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, toDashboardResponse(dashboard))
}
