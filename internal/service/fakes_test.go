package service

import (
	"context"
	"slices"
	"strings"
	"testing"
	"time"

	"marketplace/internal/cache"
	"marketplace/internal/domain"
	"marketplace/internal/events"
	"marketplace/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// memStore is an in-memory stand-in for the relational store. memTxManager
// snapshots it before a unit of work and restores the snapshot on error.
type memStore struct {
	users      map[uuid.UUID]domain.User
	vendors    map[uuid.UUID]domain.Vendor
	customers  map[uuid.UUID]domain.Customer
	tokens     map[string]domain.RefreshToken
	categories map[uuid.UUID]domain.Category
	products   map[uuid.UUID]domain.Product
	carts      map[uuid.UUID]domain.Cart // by customer
	cartItems  []domain.CartItem
	orders     []domain.Order
	orderItems []domain.OrderItem
	checkouts  []domain.Checkout
	favorites  []domain.Favorite
}

func newMemStore() *memStore {
	return &memStore{
		users:      map[uuid.UUID]domain.User{},
		vendors:    map[uuid.UUID]domain.Vendor{},
		customers:  map[uuid.UUID]domain.Customer{},
		tokens:     map[string]domain.RefreshToken{},
		categories: map[uuid.UUID]domain.Category{},
		products:   map[uuid.UUID]domain.Product{},
		carts:      map[uuid.UUID]domain.Cart{},
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memStore) snapshot() memStore {
	return memStore{
		users:      cloneMap(s.users),
		vendors:    cloneMap(s.vendors),
		customers:  cloneMap(s.customers),
		tokens:     cloneMap(s.tokens),
		categories: cloneMap(s.categories),
		products:   cloneMap(s.products),
		carts:      cloneMap(s.carts),
		cartItems:  slices.Clone(s.cartItems),
		orders:     slices.Clone(s.orders),
		orderItems: slices.Clone(s.orderItems),
		checkouts:  slices.Clone(s.checkouts),
		favorites:  slices.Clone(s.favorites),
	}
}

func (s *memStore) restore(snap memStore) {
	*s = snap
}

func (s *memStore) repositories() *repository.Repositories {
	return &repository.Repositories{
		Users:         memUsers{s},
		RefreshTokens: memTokens{s},
		Categories:    memCategories{s},
		Products:      memProducts{s},
		Carts:         memCarts{s},
		Orders:        memOrders{s},
		Checkouts:     memCheckouts{s},
		Favorites:     memFavorites{s},
	}
}

type memTxManager struct {
	store *memStore
	calls int
}

func (m *memTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context, repos *repository.Repositories) error) error {
	m.calls++
	snap := m.store.snapshot()
	if err := fn(ctx, m.store.repositories()); err != nil {
		m.store.restore(snap)
		return err
	}
	return nil
}

// users

type memUsers struct{ s *memStore }

func (r memUsers) Create(_ context.Context, user *domain.User) error {
	for _, u := range r.s.users {
		if u.Email == user.Email || u.Username == user.Username {
			return domain.ErrUserAlreadyExists
		}
	}
	r.s.users[user.ID] = *user
	return nil
}

func (r memUsers) CreateVendor(_ context.Context, vendor *domain.Vendor) error {
	r.s.vendors[vendor.UserID] = *vendor
	return nil
}

func (r memUsers) CreateCustomer(_ context.Context, customer *domain.Customer) error {
	r.s.customers[customer.UserID] = *customer
	return nil
}

func (r memUsers) FindByLogin(_ context.Context, login string) (*domain.User, error) {
	for _, u := range r.s.users {
		if u.Email == login || u.Username == login {
			return &u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r memUsers) FindByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (r memUsers) FindVendor(_ context.Context, userID uuid.UUID) (*domain.Vendor, error) {
	v, ok := r.s.vendors[userID]
	if !ok {
		return nil, domain.ErrVendorNotFound
	}
	return &v, nil
}

func (r memUsers) FindCustomer(_ context.Context, userID uuid.UUID) (*domain.Customer, error) {
	c, ok := r.s.customers[userID]
	if !ok {
		return nil, domain.ErrCustomerNotFound
	}
	return &c, nil
}

// refresh tokens

type memTokens struct{ s *memStore }

func (r memTokens) Create(_ context.Context, token *domain.RefreshToken) error {
	r.s.tokens[token.Token] = *token
	return nil
}

func (r memTokens) FindByToken(_ context.Context, token string) (*domain.RefreshToken, error) {
	t, ok := r.s.tokens[token]
	if !ok {
		return nil, domain.ErrRefreshTokenNotFound
	}
	if t.Revoked {
		return nil, domain.ErrRefreshTokenRevoked
	}
	return &t, nil
}

func (r memTokens) Revoke(_ context.Context, token string) error {
	t, ok := r.s.tokens[token]
	if !ok {
		return domain.ErrRefreshTokenNotFound
	}
	t.Revoked = true
	r.s.tokens[token] = t
	return nil
}

func (r memTokens) RevokeAllForUser(_ context.Context, userID uuid.UUID) error {
	for key, t := range r.s.tokens {
		if t.UserID == userID {
			t.Revoked = true
			r.s.tokens[key] = t
		}
	}
	return nil
}

// categories

type memCategories struct{ s *memStore }

func (r memCategories) Create(_ context.Context, category *domain.Category) error {
	for _, c := range r.s.categories {
		if c.Name == category.Name {
			return domain.ErrCategoryAlreadyExists
		}
	}
	if category.ParentID != nil {
		if _, ok := r.s.categories[*category.ParentID]; !ok {
			return domain.ErrCategoryNotFound
		}
	}
	r.s.categories[category.ID] = *category
	return nil
}

func (r memCategories) Update(_ context.Context, category *domain.Category) error {
	if _, ok := r.s.categories[category.ID]; !ok {
		return domain.ErrCategoryNotFound
	}
	r.s.categories[category.ID] = *category
	return nil
}

func (r memCategories) List(_ context.Context) ([]*domain.Category, error) {
	out := []*domain.Category{}
	for _, c := range r.s.categories {
		out = append(out, &c)
	}
	slices.SortFunc(out, func(a, b *domain.Category) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (r memCategories) FindByID(_ context.Context, id uuid.UUID) (*domain.Category, error) {
	c, ok := r.s.categories[id]
	if !ok {
		return nil, domain.ErrCategoryNotFound
	}
	return &c, nil
}

// products

type memProducts struct{ s *memStore }

func (r memProducts) Create(_ context.Context, product *domain.Product) error {
	if _, ok := r.s.categories[product.CategoryID]; !ok {
		return domain.ErrCategoryNotFound
	}
	r.s.products[product.ID] = *product
	return nil
}

func (r memProducts) Update(_ context.Context, id, vendorID uuid.UUID, update repository.ProductUpdate) error {
	p, ok := r.s.products[id]
	if !ok || p.VendorID != vendorID {
		return domain.ErrProductNotFound
	}
	if update.CategoryID != nil {
		if _, ok := r.s.categories[*update.CategoryID]; !ok {
			return domain.ErrCategoryNotFound
		}
	}
	applyProductUpdate(&p, update)
	p.UpdatedAt = update.UpdatedAt
	r.s.products[id] = p
	return nil
}

func (r memProducts) Delete(_ context.Context, id, vendorID uuid.UUID) error {
	p, ok := r.s.products[id]
	if !ok || p.VendorID != vendorID {
		return domain.ErrProductNotFound
	}
	delete(r.s.products, id)
	return nil
}

func (r memProducts) FindByID(_ context.Context, id uuid.UUID) (*domain.Product, error) {
	p, ok := r.s.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	p.VendorName = r.s.vendors[p.VendorID].BusinessName
	p.CategoryName = r.s.categories[p.CategoryID].Name
	return &p, nil
}

func (r memProducts) FindByIDForVendor(_ context.Context, id, vendorID uuid.UUID) (*domain.Product, error) {
	p, ok := r.s.products[id]
	if !ok || p.VendorID != vendorID {
		return nil, domain.ErrProductNotFound
	}
	return &p, nil
}

func (r memProducts) FindByIDForVendorForUpdate(ctx context.Context, id, vendorID uuid.UUID) (*domain.Product, error) {
	return r.FindByIDForVendor(ctx, id, vendorID)
}

func (r memProducts) List(_ context.Context, filter repository.ProductFilter) ([]*domain.Product, int, error) {
	out := []*domain.Product{}
	for _, p := range r.s.products {
		if filter.CategoryID != nil && p.CategoryID != *filter.CategoryID {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(p.Title), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, &p)
	}
	slices.SortFunc(out, func(a, b *domain.Product) int { return strings.Compare(a.Title, b.Title) })
	total := len(out)
	start := min((filter.Page-1)*filter.PageSize, total)
	end := min(start+filter.PageSize, total)
	return out[start:end], total, nil
}

func (r memProducts) ListByVendor(_ context.Context, vendorID uuid.UUID) ([]*domain.Product, error) {
	out := []*domain.Product{}
	for _, p := range r.s.products {
		if p.VendorID == vendorID {
			out = append(out, &p)
		}
	}
	return out, nil
}

func (r memProducts) ConsumeStock(_ context.Context, id uuid.UUID, quantity int) error {
	p, ok := r.s.products[id]
	if !ok || p.Stock < quantity {
		return domain.ErrInsufficientStock
	}
	p.Stock -= quantity
	p.SoldCount += quantity
	r.s.products[id] = p
	return nil
}

// carts

type memCarts struct{ s *memStore }

func (r memCarts) GetOrCreateForUpdate(_ context.Context, customerID uuid.UUID) (*domain.Cart, error) {
	cart, ok := r.s.carts[customerID]
	if !ok {
		now := time.Now()
		cart = domain.Cart{ID: uuid.New(), CustomerID: customerID, CreatedAt: now, UpdatedAt: now}
		r.s.carts[customerID] = cart
	}
	return &cart, nil
}

func (r memCarts) FindByCustomer(_ context.Context, customerID uuid.UUID) (*domain.Cart, error) {
	cart, ok := r.s.carts[customerID]
	if !ok {
		return nil, domain.ErrNoActiveCart
	}
	return &cart, nil
}

func (r memCarts) FindByCustomerForUpdate(ctx context.Context, customerID uuid.UUID) (*domain.Cart, error) {
	return r.FindByCustomer(ctx, customerID)
}

func (r memCarts) ListItems(_ context.Context, cartID uuid.UUID) ([]*domain.CartItem, error) {
	out := []*domain.CartItem{}
	for _, item := range r.s.cartItems {
		if item.CartID != cartID {
			continue
		}
		p := r.s.products[item.ProductID]
		item.ProductTitle = p.Title
		item.ProductImageURL = p.ImageURL
		item.ProductPrice = p.Price
		item.VendorName = r.s.vendors[p.VendorID].BusinessName
		out = append(out, &item)
	}
	return out, nil
}

func (r memCarts) AddItem(_ context.Context, item *domain.CartItem) (*domain.CartItem, error) {
	for i, existing := range r.s.cartItems {
		if existing.CartID == item.CartID && existing.ProductID == item.ProductID {
			r.s.cartItems[i].Quantity += item.Quantity
			saved := r.s.cartItems[i]
			return &saved, nil
		}
	}
	r.s.cartItems = append(r.s.cartItems, *item)
	saved := *item
	return &saved, nil
}

func (r memCarts) FindItem(_ context.Context, cartID, itemID uuid.UUID) (*domain.CartItem, error) {
	for _, item := range r.s.cartItems {
		if item.ID == itemID && item.CartID == cartID {
			return &item, nil
		}
	}
	return nil, domain.ErrCartItemNotFound
}

func (r memCarts) UpdateItemQuantity(_ context.Context, cartID, itemID uuid.UUID, quantity int) error {
	for i, item := range r.s.cartItems {
		if item.ID == itemID && item.CartID == cartID {
			r.s.cartItems[i].Quantity = quantity
			return nil
		}
	}
	return domain.ErrCartItemNotFound
}

func (r memCarts) DeleteItem(_ context.Context, cartID, itemID uuid.UUID) error {
	for i, item := range r.s.cartItems {
		if item.ID == itemID && item.CartID == cartID {
			r.s.cartItems = slices.Delete(r.s.cartItems, i, i+1)
			return nil
		}
	}
	return domain.ErrCartItemNotFound
}

func (r memCarts) UpdateTotal(_ context.Context, cartID uuid.UUID, total decimal.Decimal) error {
	for customerID, cart := range r.s.carts {
		if cart.ID == cartID {
			cart.TotalPrice = total
			r.s.carts[customerID] = cart
			return nil
		}
	}
	return domain.ErrNoActiveCart
}

func (r memCarts) Delete(_ context.Context, cartID uuid.UUID) error {
	for customerID, cart := range r.s.carts {
		if cart.ID == cartID {
			delete(r.s.carts, customerID)
			r.s.cartItems = slices.DeleteFunc(r.s.cartItems, func(item domain.CartItem) bool {
				return item.CartID == cartID
			})
			return nil
		}
	}
	return domain.ErrNoActiveCart
}

// orders

type memOrders struct{ s *memStore }

func (r memOrders) Create(_ context.Context, order *domain.Order) error {
	stored := *order
	stored.Items = nil
	r.s.orders = append(r.s.orders, stored)
	for _, item := range order.Items {
		r.s.orderItems = append(r.s.orderItems, *item)
	}
	return nil
}

func (r memOrders) FindForCustomer(_ context.Context, id, customerID uuid.UUID) (*domain.Order, error) {
	for _, order := range r.s.orders {
		if order.ID == id && order.CustomerID == customerID {
			for _, item := range r.s.orderItems {
				if item.OrderID == id {
					order.Items = append(order.Items, &item)
				}
			}
			return &order, nil
		}
	}
	return nil, domain.ErrOrderNotFound
}

func (r memOrders) FindForCustomerForUpdate(ctx context.Context, id, customerID uuid.UUID) (*domain.Order, error) {
	return r.FindForCustomer(ctx, id, customerID)
}

func (r memOrders) ListByCustomer(_ context.Context, customerID uuid.UUID) ([]*domain.Order, error) {
	out := []*domain.Order{}
	for _, order := range r.s.orders {
		if order.CustomerID == customerID {
			out = append(out, &order)
		}
	}
	return out, nil
}

func (r memOrders) UpdateStatus(_ context.Context, id uuid.UUID, status domain.OrderStatus) error {
	for i, order := range r.s.orders {
		if order.ID == id {
			r.s.orders[i].Status = status
			return nil
		}
	}
	return domain.ErrOrderNotFound
}

// checkouts

type memCheckouts struct{ s *memStore }

func (r memCheckouts) Create(_ context.Context, checkout *domain.Checkout) error {
	for _, c := range r.s.checkouts {
		if c.OrderID == checkout.OrderID {
			return domain.ErrAlreadyCheckedOut
		}
	}
	r.s.checkouts = append(r.s.checkouts, *checkout)
	return nil
}

func (r memCheckouts) ListByCustomer(_ context.Context, customerID uuid.UUID) ([]*domain.Checkout, error) {
	out := []*domain.Checkout{}
	for _, c := range r.s.checkouts {
		if c.CustomerID == customerID {
			out = append(out, &c)
		}
	}
	return out, nil
}

// favorites

type memFavorites struct{ s *memStore }

func (r memFavorites) Add(_ context.Context, favorite *domain.Favorite) (bool, error) {
	for _, f := range r.s.favorites {
		if f.CustomerID == favorite.CustomerID && f.ProductID == favorite.ProductID {
			return false, nil
		}
	}
	r.s.favorites = append(r.s.favorites, *favorite)
	return true, nil
}

func (r memFavorites) Remove(_ context.Context, customerID, productID uuid.UUID) error {
	before := len(r.s.favorites)
	r.s.favorites = slices.DeleteFunc(r.s.favorites, func(f domain.Favorite) bool {
		return f.CustomerID == customerID && f.ProductID == productID
	})
	if len(r.s.favorites) == before {
		return domain.ErrFavoriteNotFound
	}
	return nil
}

func (r memFavorites) ListProducts(_ context.Context, customerID uuid.UUID) ([]*domain.Product, error) {
	out := []*domain.Product{}
	for _, f := range r.s.favorites {
		if f.CustomerID != customerID {
			continue
		}
		if p, ok := r.s.products[f.ProductID]; ok {
			out = append(out, &p)
		}
	}
	return out, nil
}

// recordingPublisher captures published events

type recordingPublisher struct {
	events []events.OrderPlacedEvent
	err    error
}

func (p *recordingPublisher) PublishOrderPlaced(_ context.Context, event events.OrderPlacedEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

// staticResolver accepts any http(s) URL without fetching it

type staticResolver struct {
	err error
}

func (r staticResolver) Resolve(_ context.Context, rawURL string) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return rawURL, nil
}

// seeding helpers

type testEnv struct {
	store     *memStore
	txm       *memTxManager
	repos     *repository.Repositories
	cache     cache.ProductCache
	redis     *miniredis.Miniredis
	publisher *recordingPublisher
	logger    *zap.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newMemStore()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return &testEnv{
		store:     store,
		txm:       &memTxManager{store: store},
		repos:     store.repositories(),
		cache:     cache.NewProductCache(client, time.Minute),
		redis:     mr,
		publisher: &recordingPublisher{},
		logger:    zap.NewNop(),
	}
}

func (e *testEnv) vendor(name string) uuid.UUID {
	id := uuid.New()
	e.store.users[id] = domain.User{ID: id, Email: id.String() + "@v.test", Username: "v-" + id.String(), Role: domain.RoleVendor}
	e.store.vendors[id] = domain.Vendor{UserID: id, BusinessName: name}
	return id
}

func (e *testEnv) customer(address string) uuid.UUID {
	id := uuid.New()
	e.store.users[id] = domain.User{ID: id, Email: id.String() + "@c.test", Username: "c-" + id.String(), Role: domain.RoleCustomer}
	e.store.customers[id] = domain.Customer{UserID: id, ShippingAddress: address}
	return id
}

func (e *testEnv) category(name string, parent *uuid.UUID) uuid.UUID {
	id := uuid.New()
	e.store.categories[id] = domain.Category{ID: id, Name: name, ParentID: parent}
	return id
}

func (e *testEnv) product(vendorID uuid.UUID, title, price string, stock int) uuid.UUID {
	categoryID := e.category("cat-"+uuid.NewString(), nil)
	id := uuid.New()
	e.store.products[id] = domain.Product{
		ID:         id,
		Title:      title,
		Price:      decimal.RequireFromString(price),
		Stock:      stock,
		CategoryID: categoryID,
		VendorID:   vendorID,
	}
	return id
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
