package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/discount"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/promotion"
	"github.com/xenking/storefront/internal/domain/user"
	"github.com/xenking/storefront/internal/domain/voucher"
	"github.com/xenking/storefront/internal/storage/memory"
)

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

// --- Mock implementations ---

type mockProducts struct {
	ProductService
	byID    map[string]*product.Product
	created *product.Product
}

func (m *mockProducts) Get(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

func (m *mockProducts) Create(_ context.Context, p *product.Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	p.ID = "new-product"
	m.created = p
	return nil
}

type mockVouchers struct {
	VoucherService
	v   *voucher.Voucher
	err error
}

func (m *mockVouchers) ValidateCode(_ context.Context, _ string, _ decimal.Decimal) (*voucher.Voucher, error) {
	return m.v, m.err
}

type mockUsers struct {
	UserService
	tokens map[string]string
}

func (m *mockUsers) Authenticate(_ context.Context, token string) (string, error) {
	id, ok := m.tokens[token]
	if !ok {
		return "", user.ErrInvalidToken
	}
	return id, nil
}

func (m *mockUsers) Register(_ context.Context, name, email, _ string) (*user.User, string, error) {
	if email == "taken@example.com" {
		return nil, "", user.ErrExists
	}
	return &user.User{ID: "u-new", Name: name, Email: email, PasswordHash: "secret-hash"}, "tok", nil
}

type mockKeys struct {
	keys map[string]*auth.APIKeyInfo
}

func (m *mockKeys) Authorize(_ context.Context, key, scope string) (*auth.APIKeyInfo, error) {
	info, ok := m.keys[key]
	if !ok {
		return nil, auth.ErrKeyNotFound
	}
	if !info.HasScope(scope) {
		return nil, auth.ErrForbidden
	}
	return info, nil
}

// --- Helpers ---

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func seedStore(t *testing.T) *memory.Store {
	t.Helper()
	s := memory.New()
	s.PutProduct(product.Product{
		ID:       "p1",
		Name:     "Trail Shoes",
		Price:    decimal.NewFromInt(100),
		Category: product.CategorySports,
		Stock:    10,
	})
	s.PutVoucher(voucher.Voucher{
		ID:                "v1",
		Code:              "TEN",
		DiscountType:      discount.Fixed,
		DiscountValue:     decimal.NewFromInt(10),
		ExpirationDate:    fixedNow.Add(24 * time.Hour),
		UsageLimit:        5,
		MinimumOrderValue: decimal.NewFromInt(50),
	})
	s.PutVoucher(voucher.Voucher{
		ID:             "v-old",
		Code:           "OLD",
		DiscountType:   discount.Fixed,
		DiscountValue:  decimal.NewFromInt(5),
		ExpirationDate: fixedNow.Add(-time.Hour),
		UsageLimit:     5,
	})
	s.PutPromotion(promotion.Promotion{
		ID:                 "pr1",
		Code:               "SPORTS20",
		EligibleCategories: []product.Category{product.CategorySports},
		DiscountType:       discount.Percentage,
		DiscountValue:      decimal.NewFromInt(20),
		ExpirationDate:     fixedNow.Add(24 * time.Hour),
		UsageLimit:         5,
	})
	return s
}

func newTestServer(t *testing.T, store *memory.Store) *httptest.Server {
	t.Helper()
	orders, err := order.NewService(store, store, order.WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)

	h := New(Deps{
		Products: &mockProducts{byID: map[string]*product.Product{}},
		Vouchers: &mockVouchers{},
		Users:    &mockUsers{tokens: map[string]string{"good": "u1"}},
		Orders:   orders,
		Keys: &mockKeys{keys: map[string]*auth.APIKeyInfo{
			"admin-key":  {Name: "admin", Scopes: []string{auth.ScopeAdmin}},
			"reader-key": {Name: "reader", Scopes: []string{"read"}},
		}},
	})
	mux := http.NewServeMux()
	h.Register(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string, header http.Header) (int, envelope) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), method, url, strings.NewReader(body))
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func bearer(token string) http.Header {
	return http.Header{"Authorization": {"Bearer " + token}}
}

// --- Tests ---

func TestPlaceOrder(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		header      http.Header
		wantStatus  int
		wantMessage string
		wantStock   int
	}{
		{
			name:        "voucher and promotion",
			body:        `{"product":"p1","quantity":2,"voucher":"v1","promotion":"pr1"}`,
			header:      bearer("good"),
			wantStatus:  http.StatusCreated,
			wantMessage: "Order created successfully",
			wantStock:   8,
		},
		{
			name:        "no token",
			body:        `{"product":"p1","quantity":1}`,
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "No token, authorization denied",
			wantStock:   10,
		},
		{
			name:        "bad token",
			body:        `{"product":"p1","quantity":1}`,
			header:      bearer("forged"),
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Token is not valid",
			wantStock:   10,
		},
		{
			name:        "unknown product",
			body:        `{"product":"nope","quantity":1}`,
			header:      bearer("good"),
			wantStatus:  http.StatusNotFound,
			wantMessage: "Product not found",
			wantStock:   10,
		},
		{
			name:        "insufficient stock",
			body:        `{"product":"p1","quantity":11}`,
			header:      bearer("good"),
			wantStatus:  http.StatusUnprocessableEntity,
			wantMessage: "Insufficient stock",
			wantStock:   10,
		},
		{
			name:        "expired voucher",
			body:        `{"product":"p1","quantity":1,"voucher":"v-old"}`,
			header:      bearer("good"),
			wantStatus:  http.StatusUnprocessableEntity,
			wantMessage: "Voucher expired",
			wantStock:   10,
		},
		{
			name:        "missing quantity",
			body:        `{"product":"p1"}`,
			header:      bearer("good"),
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Product and quantity are required",
			wantStock:   10,
		},
		{
			name:        "malformed body",
			body:        `{"product":`,
			header:      bearer("good"),
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Invalid request body",
			wantStock:   10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := seedStore(t)
			srv := newTestServer(t, store)

			status, env := do(t, http.MethodPost, srv.URL+"/api/orders", tt.body, tt.header)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantMessage, env.Message)
			assert.Equal(t, status < 300, env.Success)

			p, _ := store.Product("p1")
			assert.Equal(t, tt.wantStock, p.Stock)
		})
	}
}

func TestPlaceOrder_ResponseBody(t *testing.T) {
	store := seedStore(t)
	srv := newTestServer(t, store)

	status, env := do(t, http.MethodPost, srv.URL+"/api/orders",
		`{"product":"p1","quantity":2,"voucher":"v1","promotion":"pr1"}`, bearer("good"))
	require.Equal(t, http.StatusCreated, status)

	var o struct {
		ID          string  `json:"id"`
		User        string  `json:"user"`
		Product     string  `json:"product"`
		Quantity    int     `json:"quantity"`
		Discount    float64 `json:"discount"`
		TotalAmount float64 `json:"totalAmount"`
		Voucher     *string `json:"voucher"`
		Promotion   *string `json:"promotion"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &o))
	assert.NotEmpty(t, o.ID)
	assert.Equal(t, "u1", o.User)
	assert.Equal(t, "p1", o.Product)
	assert.Equal(t, 2, o.Quantity)
	assert.InDelta(t, 50.0, o.Discount, 0.001)
	assert.InDelta(t, 150.0, o.TotalAmount, 0.001)
	require.NotNil(t, o.Voucher)
	assert.Equal(t, "v1", *o.Voucher)
	require.NotNil(t, o.Promotion)
	assert.Equal(t, "pr1", *o.Promotion)

	status, env = do(t, http.MethodGet, srv.URL+"/api/orders/"+o.ID, "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)

	status, env = do(t, http.MethodGet, srv.URL+"/api/orders/user/u1", "", nil)
	assert.Equal(t, http.StatusOK, status)
	var list []json.RawMessage
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list, 1)
}

func TestGetOrder_NotFound(t *testing.T) {
	srv := newTestServer(t, seedStore(t))

	status, env := do(t, http.MethodGet, srv.URL+"/api/orders/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Order not found", env.Message)
	assert.False(t, env.Success)
}

func TestAdminRoutes(t *testing.T) {
	body := `{"name":"Lamp","description":"Desk lamp","price":"19.90","category":"Home","stock":3}`
	tests := []struct {
		name       string
		key        string
		wantStatus int
	}{
		{name: "missing key", wantStatus: http.StatusUnauthorized},
		{name: "unknown key", key: "nope", wantStatus: http.StatusUnauthorized},
		{name: "insufficient scope", key: "reader-key", wantStatus: http.StatusForbidden},
		{name: "admin", key: "admin-key", wantStatus: http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, seedStore(t))
			header := http.Header{}
			if tt.key != "" {
				header.Set(APIKeyHeader, tt.key)
			}

			status, env := do(t, http.MethodPost, srv.URL+"/api/products", body, header)
			assert.Equal(t, tt.wantStatus, status)
			if status == http.StatusCreated {
				assert.JSONEq(t, `"new-product"`, string(jsonField(t, env.Data, "id")))
				assert.JSONEq(t, `19.90`, string(jsonField(t, env.Data, "price")))
			}
		})
	}
}

func TestCreateProduct_Invalid(t *testing.T) {
	srv := newTestServer(t, seedStore(t))
	header := http.Header{}
	header.Set(APIKeyHeader, "admin-key")

	status, env := do(t, http.MethodPost, srv.URL+"/api/products",
		`{"name":"Lamp","description":"Desk lamp","price":5,"category":"Garden","stock":1}`, header)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, env.Message, "category")
}

func TestValidateVoucher(t *testing.T) {
	srv := newTestServer(t, seedStore(t))

	status, env := do(t, http.MethodPost, srv.URL+"/api/vouchers/validate", `{"orderAmount":10}`, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Voucher code is required", env.Message)
}

func TestRegister(t *testing.T) {
	srv := newTestServer(t, seedStore(t))

	status, env := do(t, http.MethodPost, srv.URL+"/api/users/register",
		`{"name":"Ada","email":"ada@example.com","password":"s3cret!"}`, nil)
	require.Equal(t, http.StatusCreated, status)
	assert.JSONEq(t, `"tok"`, string(jsonField(t, env.Data, "token")))
	assert.NotContains(t, string(env.Data), "secret-hash")

	status, env = do(t, http.MethodPost, srv.URL+"/api/users/register",
		`{"name":"Ada","email":"taken@example.com","password":"s3cret!"}`, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "User already exists", env.Message)
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "product not found",
			err:        &order.NotFoundError{Entity: order.EntityProduct, ID: "x", Err: product.ErrNotFound},
			wantStatus: http.StatusNotFound,
			wantMsg:    "Product not found",
		},
		{
			name:       "promotion usage",
			err:        &order.UsageLimitExceededError{Entity: order.EntityPromotion, ID: "x", Limit: 1},
			wantStatus: http.StatusUnprocessableEntity,
			wantMsg:    "Promotion usage limit exceeded",
		},
		{
			name:       "minimum not met",
			err:        &order.MinimumOrderNotMetError{VoucherID: "v", Minimum: decimal.NewFromInt(50), Amount: decimal.NewFromInt(10)},
			wantStatus: http.StatusUnprocessableEntity,
			wantMsg:    "Order value does not meet minimum requirement",
		},
		{
			name:       "not applicable",
			err:        &order.NotApplicableError{PromotionID: "p", Category: product.CategoryHome},
			wantStatus: http.StatusUnprocessableEntity,
			wantMsg:    "Promotion not applicable to this product",
		},
		{
			name:       "cap exceeded",
			err:        &order.DiscountCapExceededError{Discount: decimal.NewFromInt(120), Limit: decimal.NewFromInt(100)},
			wantStatus: http.StatusUnprocessableEntity,
			wantMsg:    "Maximum discount limit exceeded",
		},
		{
			name:       "conflict",
			err:        errors.Wrap(order.ErrConflict, "commit"),
			wantStatus: http.StatusConflict,
		},
		{
			name:       "invalid quantity",
			err:        order.ErrInvalidQuantity,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "store failure",
			err:        &order.StoreError{Op: "commit", Err: errors.New("connection reset")},
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "Internal server error",
		},
		{
			name:       "voucher preview minimum",
			err:        &voucher.MinimumNotMetError{Minimum: decimal.NewFromInt(50)},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "forbidden key",
			err:        auth.ErrForbidden,
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := errorStatus(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, msg)
			}
		})
	}
}

func TestDecodeDecimal(t *testing.T) {
	for _, input := range []string{`12.5`, `"12.50"`, `1.25e1`} {
		got, err := decodeDecimal(jx.DecodeStr(input))
		require.NoError(t, err, input)
		assert.True(t, decimal.RequireFromString("12.5").Equal(got), input)
	}

	_, err := decodeDecimal(jx.DecodeStr(`"abc"`))
	require.Error(t, err)
}

func TestDecodeTime_DateOnly(t *testing.T) {
	got, err := decodeTime(jx.DecodeStr(`"2025-12-31"`))
	require.NoError(t, err)
	assert.Equal(t, 2025, got.Year())
	assert.Equal(t, 23, got.Hour())
}

func jsonField(t *testing.T, raw json.RawMessage, key string) json.RawMessage {
	t.Helper()
	var obj map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &obj))
	v, ok := obj[key]
	require.True(t, ok, "field %q missing", key)
	return v
}
