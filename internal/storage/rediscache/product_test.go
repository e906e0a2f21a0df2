package rediscache

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/product"
)

type fakeClient struct {
	data   map[string]string
	getErr error
	sets   int
}

func newFakeClient() *fakeClient { return &fakeClient{data: map[string]string{}} }

func (f *fakeClient) Get(_ context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeClient) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	f.sets++
	f.data[key] = string(value.([]byte))
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeClient) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(f.data, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

type countingRepo struct {
	p     product.Product
	gets  int
	wrote bool
}

func (r *countingRepo) List(context.Context) ([]product.Product, error) {
	return []product.Product{r.p}, nil
}

func (r *countingRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	r.gets++
	if id != r.p.ID {
		return nil, product.ErrNotFound
	}
	cp := r.p
	return &cp, nil
}

func (r *countingRepo) Create(context.Context, *product.Product) error { return nil }

func (r *countingRepo) Update(_ context.Context, p *product.Product, withStock bool) error {
	if !withStock {
		p.Stock = r.p.Stock
	}
	r.p = *p
	r.wrote = true
	return nil
}

func (r *countingRepo) Delete(context.Context, string) error { return nil }

func testProduct() product.Product {
	ts := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	return product.Product{
		ID:          "p1",
		Name:        "Desk Lamp",
		Description: "Warm light",
		Price:       decimal.RequireFromString("19.99"),
		Category:    product.CategoryHome,
		Stock:       7,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
}

func TestProductCache_ReadThrough(t *testing.T) {
	repo := &countingRepo{p: testProduct()}
	client := newFakeClient()
	cache := NewProductCache(repo, client, time.Minute)
	ctx := context.Background()

	first, err := cache.GetByID(ctx, "p1")
	require.NoError(t, err)
	second, err := cache.GetByID(ctx, "p1")
	require.NoError(t, err)

	assert.Equal(t, 1, repo.gets)
	assert.Equal(t, 1, client.sets)
	assert.Equal(t, first.Name, second.Name)
	assert.True(t, first.Price.Equal(second.Price))
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt))
	assert.Equal(t, 7, second.Stock)
}

func TestProductCache_InvalidateOnUpdate(t *testing.T) {
	repo := &countingRepo{p: testProduct()}
	client := newFakeClient()
	cache := NewProductCache(repo, client, time.Minute)
	ctx := context.Background()

	p, err := cache.GetByID(ctx, "p1")
	require.NoError(t, err)

	p.Stock = 3
	require.NoError(t, cache.Update(ctx, p, true))
	assert.Empty(t, client.data)

	got, err := cache.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, got.Stock)
	assert.Equal(t, 2, repo.gets)
}

func TestProductCache_FallsThroughOnError(t *testing.T) {
	repo := &countingRepo{p: testProduct()}
	client := newFakeClient()
	client.getErr = errors.New("connection refused")
	cache := NewProductCache(repo, client, time.Minute)

	got, err := cache.GetByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Desk Lamp", got.Name)

	_, err = cache.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, product.ErrNotFound)
}

func TestProductCache_CorruptEntry(t *testing.T) {
	repo := &countingRepo{p: testProduct()}
	client := newFakeClient()
	client.data["product:p1"] = "{not json"
	cache := NewProductCache(repo, client, time.Minute)

	got, err := cache.GetByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", got.ID)
	assert.Equal(t, 1, repo.gets)
}
