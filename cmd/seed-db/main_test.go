package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/promotion"
	"github.com/xenking/storefront/internal/domain/voucher"
)

type fakeProducts struct {
	product.Repository
	items   map[string]product.Product
	created int
	updated int
}

func (f *fakeProducts) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := f.items[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (f *fakeProducts) Create(_ context.Context, p *product.Product) error {
	f.created++
	f.items[p.ID] = *p
	return nil
}

func (f *fakeProducts) Update(_ context.Context, p *product.Product, withStock bool) error {
	if !withStock {
		return errors.New("seed must write stock")
	}
	f.updated++
	f.items[p.ID] = *p
	return nil
}

func TestReadProducts(t *testing.T) {
	dir := t.TempDir()

	valid := filepath.Join(dir, "products.json")
	require.NoError(t, os.WriteFile(valid, []byte(`[
		{"id":"p1","name":"Mat","description":"Yoga mat","price":"35.00","category":"Sports","stock":8}
	]`), 0o600))

	products, err := readProducts(valid)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "p1", products[0].ID)
	assert.True(t, decimal.NewFromInt(35).Equal(products[0].Price))
	assert.Equal(t, product.CategorySports, products[0].Category)
	assert.Equal(t, 8, products[0].Stock)

	noID := filepath.Join(dir, "noid.json")
	require.NoError(t, os.WriteFile(noID, []byte(`[{"name":"Mat"}]`), 0o600))
	_, err = readProducts(noID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no id")

	_, err = readProducts(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
}

func TestReadProducts_Embedded(t *testing.T) {
	products, err := readProducts("")
	require.NoError(t, err)
	require.NotEmpty(t, products)

	ids := make(map[string]bool, len(products))
	for i := range products {
		require.NoError(t, products[i].Validate(), products[i].Name)
		assert.False(t, ids[products[i].ID], "duplicate id %s", products[i].ID)
		ids[products[i].ID] = true
	}
}

func TestSeedProducts(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := created.Add(48 * time.Hour)
	repo := &fakeProducts{items: map[string]product.Product{
		"p1": {ID: "p1", Name: "Old", Description: "Old", Category: product.CategoryHome, CreatedAt: created},
	}}

	products := []product.Product{
		{ID: "p1", Name: "Lamp", Description: "Desk lamp", Price: decimal.NewFromInt(20), Category: product.CategoryHome, Stock: 3},
		{ID: "p2", Name: "Serum", Description: "Face serum", Price: decimal.NewFromInt(25), Category: product.CategoryBeauty, Stock: 9},
	}
	require.NoError(t, seedProducts(context.Background(), repo, products, now))

	assert.Equal(t, 1, repo.created)
	assert.Equal(t, 1, repo.updated)
	assert.Equal(t, "Lamp", repo.items["p1"].Name)
	assert.Equal(t, created, repo.items["p1"].CreatedAt)
	assert.Equal(t, now, repo.items["p2"].CreatedAt)

	bad := []product.Product{{ID: "p3", Name: "Thing", Description: "x", Category: "Toys"}}
	err := seedProducts(context.Background(), repo, bad, now)
	require.Error(t, err)
	var verr *product.ValidationError
	assert.True(t, errors.As(err, &verr))
}

type fakeVouchers struct{ codes map[string]bool }

func (f *fakeVouchers) Create(_ context.Context, v *voucher.Voucher) error {
	if f.codes[v.Code] {
		return errors.Wrap(voucher.ErrCodeExists, "create voucher")
	}
	f.codes[v.Code] = true
	return nil
}

type fakePromotions struct {
	codes map[string]bool
	err   error
}

func (f *fakePromotions) Create(_ context.Context, p *promotion.Promotion) error {
	if f.err != nil {
		return f.err
	}
	if f.codes[p.Code] {
		return promotion.ErrCodeExists
	}
	f.codes[p.Code] = true
	return nil
}

func TestSeedDiscounts(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	vouchers := &fakeVouchers{codes: map[string]bool{"WELCOME10": true}}
	promotions := &fakePromotions{codes: map[string]bool{}}

	require.NoError(t, seedDiscounts(context.Background(), vouchers, promotions, now))
	assert.True(t, vouchers.codes["FLAT20"])
	assert.Len(t, promotions.codes, 2)

	// A rerun only hits existing codes.
	require.NoError(t, seedDiscounts(context.Background(), vouchers, promotions, now))

	promotions.err = errors.New("connection refused")
	err := seedDiscounts(context.Background(), vouchers, promotions, now)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

type fakeKeyStore struct{ got *auth.APIKeyInfo }

func (f *fakeKeyStore) Upsert(_ context.Context, k *auth.APIKeyInfo) error {
	f.got = k
	return nil
}

func TestSeedAPIKey(t *testing.T) {
	store := &fakeKeyStore{}
	require.NoError(t, seedAPIKey(context.Background(), store, "secret-key", "pepper"))

	require.NotNil(t, store.got)
	assert.Equal(t, auth.HashKey([]byte("pepper"), "secret-key"), store.got.KeyHash)
	assert.Equal(t, []string{auth.ScopeAdmin}, store.got.Scopes)
	assert.NotContains(t, store.got.KeyHash, "secret-key")
}
