// Package rediscache provides a read-through product cache on Redis.
package rediscache

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/product"
)

// Client is the subset of the go-redis API the cache uses.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

var _ product.Repository = (*ProductCache)(nil)

// ProductCache caches single-product lookups in front of a product.Repository.
// Cache failures are logged and fall through to the repository.
type ProductCache struct {
	next   product.Repository
	client Client
	ttl    time.Duration
}

// NewProductCache wraps next with a cache entry TTL of ttl.
func NewProductCache(next product.Repository, client Client, ttl time.Duration) *ProductCache {
	return &ProductCache{next: next, client: client, ttl: ttl}
}

func key(id string) string { return "product:" + id }

func (c *ProductCache) List(ctx context.Context) ([]product.Product, error) {
	return c.next.List(ctx)
}

func (c *ProductCache) GetByID(ctx context.Context, id string) (*product.Product, error) {
	lg := zctx.From(ctx)

	data, err := c.client.Get(ctx, key(id)).Bytes()
	switch {
	case err == nil:
		p, err := decodeProduct(data)
		if err == nil {
			return p, nil
		}
		lg.Warn("Drop corrupt cache entry", zap.String("product_id", id), zap.Error(err))
	case errors.Is(err, redis.Nil):
	default:
		lg.Warn("Cache get failed", zap.String("product_id", id), zap.Error(err))
	}

	p, err := c.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.client.Set(ctx, key(id), encodeProduct(p), c.ttl).Err(); err != nil {
		lg.Warn("Cache set failed", zap.String("product_id", id), zap.Error(err))
	}
	return p, nil
}

func (c *ProductCache) Create(ctx context.Context, p *product.Product) error {
	return c.next.Create(ctx, p)
}

func (c *ProductCache) Update(ctx context.Context, p *product.Product, withStock bool) error {
	err := c.next.Update(ctx, p, withStock)
	c.Invalidate(ctx, p.ID)
	return err
}

func (c *ProductCache) Delete(ctx context.Context, id string) error {
	err := c.next.Delete(ctx, id)
	c.Invalidate(ctx, id)
	return err
}

// Invalidate drops the cached entry for id.
func (c *ProductCache) Invalidate(ctx context.Context, id string) {
	if err := c.client.Del(ctx, key(id)).Err(); err != nil {
		zctx.From(ctx).Warn("Cache invalidate failed", zap.String("product_id", id), zap.Error(err))
	}
}

func encodeProduct(p *product.Product) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("description")
	e.Str(p.Description)
	e.FieldStart("price")
	e.Str(p.Price.String())
	e.FieldStart("category")
	e.Str(string(p.Category))
	e.FieldStart("stock")
	e.Int(p.Stock)
	e.FieldStart("createdAt")
	e.Str(p.CreatedAt.Format(time.RFC3339Nano))
	e.FieldStart("updatedAt")
	e.Str(p.UpdatedAt.Format(time.RFC3339Nano))
	e.ObjEnd()
	return e.Bytes()
}

func decodeProduct(data []byte) (*product.Product, error) {
	var p product.Product
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, k string) error {
		var err error
		switch k {
		case "id":
			p.ID, err = d.Str()
		case "name":
			p.Name, err = d.Str()
		case "description":
			p.Description, err = d.Str()
		case "price":
			var s string
			if s, err = d.Str(); err == nil {
				p.Price, err = decimal.NewFromString(s)
			}
		case "category":
			var s string
			s, err = d.Str()
			p.Category = product.Category(s)
		case "stock":
			p.Stock, err = d.Int()
		case "createdAt":
			p.CreatedAt, err = decodeTime(d)
		case "updatedAt":
			p.UpdatedAt, err = decodeTime(d)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode product")
	}
	return &p, nil
}

func decodeTime(d *jx.Decoder) (time.Time, error) {
	s, err := d.Str()
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, s)
}
