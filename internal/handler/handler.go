// Package handler serves the storefront REST API.
package handler

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/promotion"
	"github.com/xenking/storefront/internal/domain/user"
	"github.com/xenking/storefront/internal/domain/voucher"
)

// ProductService manages the catalog.
type ProductService interface {
	List(ctx context.Context) ([]product.Product, error)
	Get(ctx context.Context, id string) (*product.Product, error)
	Create(ctx context.Context, p *product.Product) error
	Update(ctx context.Context, id string, patch product.Patch) (*product.Product, error)
	Delete(ctx context.Context, id string) error
}

// VoucherService manages vouchers.
type VoucherService interface {
	ListActive(ctx context.Context) ([]voucher.Voucher, error)
	Get(ctx context.Context, id string) (*voucher.Voucher, error)
	Create(ctx context.Context, v *voucher.Voucher) error
	Update(ctx context.Context, id string, patch voucher.Patch) (*voucher.Voucher, error)
	Delete(ctx context.Context, id string) error
	ValidateCode(ctx context.Context, code string, amount decimal.Decimal) (*voucher.Voucher, error)
}

// PromotionService manages promotions.
type PromotionService interface {
	ListActive(ctx context.Context) ([]promotion.Promotion, error)
	Get(ctx context.Context, id string) (*promotion.Promotion, error)
	Create(ctx context.Context, p *promotion.Promotion) error
	Update(ctx context.Context, id string, patch promotion.Patch) (*promotion.Promotion, error)
	Delete(ctx context.Context, id string) error
	ValidateCode(ctx context.Context, code string, category product.Category) (*promotion.Promotion, error)
}

// UserService handles accounts and bearer tokens.
type UserService interface {
	Register(ctx context.Context, name, email, password string) (*user.User, string, error)
	Login(ctx context.Context, email, password string) (*user.User, string, error)
	Authenticate(ctx context.Context, token string) (string, error)
	List(ctx context.Context) ([]user.User, error)
	Get(ctx context.Context, id string) (*user.User, error)
	Delete(ctx context.Context, id string) error
}

// OrderService places and queries orders.
type OrderService interface {
	PlaceOrder(ctx context.Context, req order.PlaceOrderRequest) (*order.Order, error)
	Get(ctx context.Context, id string) (*order.Order, error)
	List(ctx context.Context) ([]order.Order, error)
	ListByUser(ctx context.Context, userID string) ([]order.Order, error)
}

// KeyAuthorizer checks admin API keys.
type KeyAuthorizer interface {
	Authorize(ctx context.Context, key, scope string) (*auth.APIKeyInfo, error)
}

// Deps holds the services a Handler delegates to.
type Deps struct {
	Products   ProductService
	Vouchers   VoucherService
	Promotions PromotionService
	Users      UserService
	Orders     OrderService
	Keys       KeyAuthorizer
}

// Handler translates HTTP requests into service calls.
type Handler struct {
	products   ProductService
	vouchers   VoucherService
	promotions PromotionService
	users      UserService
	orders     OrderService
	keys       KeyAuthorizer
}

// New constructs a Handler from deps.
func New(deps Deps) *Handler {
	return &Handler{
		products:   deps.Products,
		vouchers:   deps.Vouchers,
		promotions: deps.Promotions,
		users:      deps.Users,
		orders:     deps.Orders,
		keys:       deps.Keys,
	}
}

// Register mounts every API route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/users/register", h.register)
	mux.HandleFunc("POST /api/users/login", h.login)
	mux.HandleFunc("GET /api/users", h.listUsers)
	mux.HandleFunc("GET /api/users/{id}", h.getUser)
	mux.HandleFunc("DELETE /api/users/{id}", h.deleteUser)

	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/products/{id}", h.getProduct)
	mux.HandleFunc("POST /api/products", h.requireAdmin(h.createProduct))
	mux.HandleFunc("PUT /api/products/{id}", h.requireAdmin(h.updateProduct))
	mux.HandleFunc("DELETE /api/products/{id}", h.requireAdmin(h.deleteProduct))

	mux.HandleFunc("GET /api/vouchers", h.listVouchers)
	mux.HandleFunc("GET /api/vouchers/{id}", h.getVoucher)
	mux.HandleFunc("POST /api/vouchers", h.requireAdmin(h.createVoucher))
	mux.HandleFunc("PUT /api/vouchers/{id}", h.requireAdmin(h.updateVoucher))
	mux.HandleFunc("DELETE /api/vouchers/{id}", h.requireAdmin(h.deleteVoucher))
	mux.HandleFunc("POST /api/vouchers/validate", h.validateVoucher)

	mux.HandleFunc("GET /api/promotions", h.listPromotions)
	mux.HandleFunc("GET /api/promotions/{id}", h.getPromotion)
	mux.HandleFunc("POST /api/promotions", h.requireAdmin(h.createPromotion))
	mux.HandleFunc("PUT /api/promotions/{id}", h.requireAdmin(h.updatePromotion))
	mux.HandleFunc("DELETE /api/promotions/{id}", h.requireAdmin(h.deletePromotion))
	mux.HandleFunc("POST /api/promotions/validate", h.validatePromotion)

	mux.HandleFunc("POST /api/orders", h.requireUser(h.placeOrder))
	mux.HandleFunc("GET /api/orders", h.listOrders)
	mux.HandleFunc("GET /api/orders/{id}", h.getOrder)
	mux.HandleFunc("GET /api/orders/user/{userId}", h.listUserOrders)
}
