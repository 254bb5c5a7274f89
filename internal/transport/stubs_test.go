package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"marketplace/internal/domain"
	"marketplace/internal/middleware"
	"marketplace/internal/repository"
	"marketplace/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubValidator accepts tokens of the form "<role>:<uuid>"
type stubValidator struct{}

func (stubValidator) ValidateToken(tokenString string) (*service.Claims, error) {
	for _, role := range []domain.Role{domain.RoleVendor, domain.RoleCustomer} {
		prefix := string(role) + ":"
		if len(tokenString) > len(prefix) && tokenString[:len(prefix)] == prefix {
			id, err := uuid.Parse(tokenString[len(prefix):])
			if err != nil {
				return nil, err
			}
			return &service.Claims{UserID: id, Role: role}, nil
		}
	}
	return nil, errors.New("bad token")
}

func bearer(role domain.Role, id uuid.UUID) string {
	return "Bearer " + string(role) + ":" + id.String()
}

type routeRegistrar interface {
	RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler)
}

func newRouter(handlers ...routeRegistrar) http.Handler {
	r := chi.NewRouter()
	auth := middleware.AuthMiddleware(stubValidator{}, zap.NewNop())
	for _, h := range handlers {
		h.RegisterRoutes(r, auth)
	}
	return r
}

func doRequest(t *testing.T, h http.Handler, method, path, authorization string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

// stubUserService

type stubUserService struct {
	registered   []service.RegisterCustomerInput
	loggedOut    []string
	loggedOutAll []uuid.UUID
	loginErr     error
}

func (s *stubUserService) RegisterVendor(_ context.Context, input service.RegisterVendorInput) (*domain.User, error) {
	return &domain.User{ID: uuid.New(), Email: input.Email, Username: input.Username, Role: domain.RoleVendor}, nil
}

func (s *stubUserService) RegisterCustomer(_ context.Context, input service.RegisterCustomerInput) (*domain.User, error) {
	s.registered = append(s.registered, input)
	return &domain.User{ID: uuid.New(), Email: input.Email, Username: input.Username, Role: domain.RoleCustomer}, nil
}

func (s *stubUserService) Login(_ context.Context, login, _ string) (string, string, *domain.User, error) {
	if s.loginErr != nil {
		return "", "", nil, s.loginErr
	}
	return "access-token", "refresh-token", &domain.User{ID: uuid.New(), Username: login, Role: domain.RoleCustomer}, nil
}

func (s *stubUserService) Logout(_ context.Context, refreshToken string) error {
	s.loggedOut = append(s.loggedOut, refreshToken)
	return nil
}

func (s *stubUserService) LogoutAll(_ context.Context, userID uuid.UUID) error {
	s.loggedOutAll = append(s.loggedOutAll, userID)
	return nil
}

func (s *stubUserService) RefreshToken(_ context.Context, refreshToken string) (string, error) {
	if refreshToken != "refresh-token" {
		return "", service.ErrInvalidToken
	}
	return "new-access-token", nil
}

func (s *stubUserService) ValidateToken(tokenString string) (*service.Claims, error) {
	return stubValidator{}.ValidateToken(tokenString)
}

func (s *stubUserService) GetProfile(_ context.Context, userID uuid.UUID) (*service.Profile, error) {
	return &service.Profile{
		User:     &domain.User{ID: userID, Username: "carol", Role: domain.RoleCustomer},
		Customer: &domain.Customer{UserID: userID, ShippingAddress: "1 Main St"},
	}, nil
}

// stubCatalogService

type stubCatalogService struct {
	products     map[uuid.UUID]*domain.Product
	lastFilter   repository.ProductFilter
	lastVendor   uuid.UUID
	lastPatch    service.ProductPatch
	createResult error
}

func newStubCatalog() *stubCatalogService {
	return &stubCatalogService{products: map[uuid.UUID]*domain.Product{}}
}

func (s *stubCatalogService) ListCategories(context.Context) ([]*domain.Category, error) {
	return []*domain.Category{{ID: uuid.New(), Name: "Kitchen"}}, nil
}

func (s *stubCatalogService) CreateCategory(_ context.Context, input service.CategoryInput) (*domain.Category, error) {
	return &domain.Category{ID: uuid.New(), Name: input.Name, ParentID: input.ParentID}, nil
}

func (s *stubCatalogService) UpdateCategory(_ context.Context, id uuid.UUID, input service.CategoryInput) (*domain.Category, error) {
	if input.ParentID != nil && *input.ParentID == id {
		return nil, domain.ErrCategoryCycle
	}
	return &domain.Category{ID: id, Name: input.Name, ParentID: input.ParentID}, nil
}

func (s *stubCatalogService) ListProducts(_ context.Context, filter repository.ProductFilter) (*service.ProductPage, error) {
	s.lastFilter = filter
	products := []*domain.Product{}
	for _, p := range s.products {
		products = append(products, p)
	}
	return &service.ProductPage{Products: products, Total: len(products), Page: max(filter.Page, 1), PageSize: 20}, nil
}

func (s *stubCatalogService) GetProduct(_ context.Context, id uuid.UUID) (*domain.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return p, nil
}

func (s *stubCatalogService) CreateProduct(_ context.Context, vendorID uuid.UUID, input service.ProductInput) (*domain.Product, error) {
	if s.createResult != nil {
		return nil, s.createResult
	}
	s.lastVendor = vendorID
	p := &domain.Product{ID: uuid.New(), Title: input.Title, Price: input.Price, Stock: input.Stock, CategoryID: input.CategoryID, VendorID: vendorID}
	s.products[p.ID] = p
	return p, nil
}

func (s *stubCatalogService) UpdateProduct(_ context.Context, vendorID, id uuid.UUID, patch service.ProductPatch) (*domain.Product, error) {
	s.lastPatch = patch
	p, ok := s.products[id]
	if !ok || p.VendorID != vendorID {
		return nil, domain.ErrProductNotFound
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	return p, nil
}

func (s *stubCatalogService) DeleteProduct(_ context.Context, vendorID, id uuid.UUID) error {
	p, ok := s.products[id]
	if !ok || p.VendorID != vendorID {
		return domain.ErrProductNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *stubCatalogService) VendorDashboard(_ context.Context, vendorID uuid.UUID) (*service.Dashboard, error) {
	products := []*domain.Product{}
	for _, p := range s.products {
		if p.VendorID == vendorID {
			products = append(products, p)
		}
	}
	return &service.Dashboard{
		Vendor:   &domain.Vendor{UserID: vendorID, BusinessName: "Acme"},
		Products: products,
		Summary:  domain.Summarize(products),
	}, nil
}
