package transport

import (
	"time"

	"marketplace/internal/domain"
	"marketplace/internal/service"

	"github.com/google/uuid"
)

// UserResponse represents user data
type UserResponse struct {
	ID        uuid.UUID   `json:"id"`
	Email     string      `json:"email"`
	Username  string      `json:"username"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
}

func toUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// ProfileResponse is a user with its role-specific profile
type ProfileResponse struct {
	User     UserResponse     `json:"user"`
	Vendor   *domain.Vendor   `json:"vendor,omitempty"`
	Customer *domain.Customer `json:"customer,omitempty"`
}

// CategoryChoice is one entry of the category choice list
type CategoryChoice struct {
	Value    uuid.UUID  `json:"value"`
	Label    string     `json:"label"`
	ParentID *uuid.UUID `json:"parent_id"`
}

func toCategoryChoices(categories []*domain.Category) []CategoryChoice {
	choices := make([]CategoryChoice, 0, len(categories))
	for _, c := range categories {
		choices = append(choices, CategoryChoice{Value: c.ID, Label: c.Name, ParentID: c.ParentID})
	}
	return choices
}

// ProductResponse is the product detail view
type ProductResponse struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       string    `json:"price"`
	Stock       int       `json:"stock"`
	IsInStock   bool      `json:"is_in_stock"`
	SoldCount   int       `json:"sold_count"`
	CategoryID  uuid.UUID `json:"category_id"`
	Category    string    `json:"category,omitempty"`
	VendorID    uuid.UUID `json:"vendor_id"`
	VendorName  string    `json:"vendor_name,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toProductResponse(p *domain.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Price:       p.Price.StringFixed(2),
		Stock:       p.Stock,
		IsInStock:   p.IsInStock(),
		SoldCount:   p.SoldCount,
		CategoryID:  p.CategoryID,
		Category:    p.CategoryName,
		VendorID:    p.VendorID,
		VendorName:  p.VendorName,
		ImageURL:    p.ImageURL,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toProductResponses(products []*domain.Product) []ProductResponse {
	out := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	return out
}

// ProductPageResponse is one page of a product listing
type ProductPageResponse struct {
	Count    int               `json:"count"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	Results  []ProductResponse `json:"results"`
}

// DashboardResponse is a vendor's catalog overview
type DashboardResponse struct {
	BusinessName    string               `json:"business_name"`
	BusinessAddress string               `json:"business_address"`
	Summary         domain.VendorSummary `json:"summary"`
	Products        []ProductResponse    `json:"products"`
}

func toDashboardResponse(d *service.Dashboard) DashboardResponse {
	return DashboardResponse{
		BusinessName:    d.Vendor.BusinessName,
		BusinessAddress: d.Vendor.BusinessAddress,
		Summary:         d.Summary,
		Products:        toProductResponses(d.Products),
	}
}

// CartItemResponse is one cart line
type CartItemResponse struct {
	ID           uuid.UUID `json:"id"`
	ProductID    uuid.UUID `json:"product_id"`
	ProductTitle string    `json:"product_title"`
	ProductImage string    `json:"product_image,omitempty"`
	VendorName   string    `json:"vendor_name,omitempty"`
	Quantity     int       `json:"quantity"`
	Price        string    `json:"price"`
	ProductPrice string    `json:"product_price"`
	LineTotal    string    `json:"line_total"`
}

// CartResponse is the cart view
type CartResponse struct {
	ID         uuid.UUID          `json:"id"`
	Items      []CartItemResponse `json:"items"`
	TotalPrice string             `json:"total_price"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

func toCartResponse(c *domain.Cart) CartResponse {
	items := make([]CartItemResponse, 0, len(c.Items))
	for _, item := range c.Items {
		items = append(items, CartItemResponse{
			ID:           item.ID,
			ProductID:    item.ProductID,
			ProductTitle: item.ProductTitle,
			ProductImage: item.ProductImageURL,
			VendorName:   item.VendorName,
			Quantity:     item.Quantity,
			Price:        item.Price.StringFixed(2),
			ProductPrice: item.ProductPrice.StringFixed(2),
			LineTotal:    item.LineTotal().StringFixed(2),
		})
	}
	return CartResponse{
		ID:         c.ID,
		Items:      items,
		TotalPrice: c.TotalPrice.StringFixed(2),
		UpdatedAt:  c.UpdatedAt,
	}
}

// OrderItemResponse is one order line
type OrderItemResponse struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	Title     string    `json:"title"`
	Quantity  int       `json:"quantity"`
	Price     string    `json:"price"`
	LineTotal string    `json:"line_total"`
}

// OrderResponse is a placed order
type OrderResponse struct {
	ID              uuid.UUID           `json:"id"`
	Status          domain.OrderStatus  `json:"status"`
	TotalPrice      string              `json:"total_price"`
	ShippingAddress string              `json:"shipping_address"`
	Items           []OrderItemResponse `json:"items,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

func toOrderResponse(o *domain.Order) OrderResponse {
	resp := OrderResponse{
		ID:              o.ID,
		Status:          o.Status,
		TotalPrice:      o.TotalPrice.StringFixed(2),
		ShippingAddress: o.ShippingAddress,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	for _, item := range o.Items {
		resp.Items = append(resp.Items, OrderItemResponse{
			ID:        item.ID,
			ProductID: item.ProductID,
			Title:     item.Title,
			Quantity:  item.Quantity,
			Price:     item.Price.StringFixed(2),
			LineTotal: item.LineTotal().StringFixed(2),
		})
	}
	return resp
}

// CheckoutResponse is a stored checkout record
type CheckoutResponse struct {
	ID              uuid.UUID            `json:"id"`
	OrderID         uuid.UUID            `json:"order_id"`
	PaymentStatus   domain.PaymentStatus `json:"payment_status"`
	PaymentMethod   domain.PaymentMethod `json:"payment_method"`
	ShippingAddress string               `json:"shipping_address"`
	TotalPrice      string               `json:"total_price"`
	CreatedAt       time.Time            `json:"created_at"`
}

func toCheckoutResponse(c *domain.Checkout) CheckoutResponse {
	return CheckoutResponse{
		ID:              c.ID,
		OrderID:         c.OrderID,
		PaymentStatus:   c.PaymentStatus,
		PaymentMethod:   c.PaymentMethod,
		ShippingAddress: c.ShippingAddress,
		TotalPrice:      c.TotalPrice.StringFixed(2),
		CreatedAt:       c.CreatedAt,
	}
}

// CheckoutResultResponse is the outcome of a checkout
type CheckoutResultResponse struct {
	CheckoutID    uuid.UUID            `json:"checkout_id"`
	OrderID       uuid.UUID            `json:"order_id"`
	TotalPrice    string               `json:"total_price"`
	OrderStatus   domain.OrderStatus   `json:"order_status"`
	PaymentStatus domain.PaymentStatus `json:"payment_status"`
}
