// Package memory implements the order store on in-process maps. Transactions
// are serialized by a single lock and staged writes are applied only on commit.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/promotion"
	"github.com/xenking/storefront/internal/domain/voucher"
)

var (
	_ order.Store      = (*Store)(nil)
	_ order.Repository = (*Store)(nil)
)

// Store holds products, vouchers, promotions and orders in memory.
type Store struct {
	mu         sync.Mutex
	products   map[string]product.Product
	vouchers   map[string]voucher.Voucher
	promotions map[string]promotion.Promotion
	orders     []order.Order
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		products:   make(map[string]product.Product),
		vouchers:   make(map[string]voucher.Voucher),
		promotions: make(map[string]promotion.Promotion),
	}
}

// PutProduct inserts or replaces p.
func (s *Store) PutProduct(p product.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

// PutVoucher inserts or replaces v.
func (s *Store) PutVoucher(v voucher.Voucher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vouchers[v.ID] = v
}

// PutPromotion inserts or replaces p.
func (s *Store) PutPromotion(p promotion.Promotion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.EligibleCategories = slices.Clone(p.EligibleCategories)
	s.promotions[p.ID] = p
}

// Product returns a snapshot of the product with the given id.
func (s *Store) Product(id string) (product.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	return p, ok
}

// Voucher returns a snapshot of the voucher with the given id.
func (s *Store) Voucher(id string) (voucher.Voucher, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vouchers[id]
	return v, ok
}

// Promotion returns a snapshot of the promotion with the given id.
func (s *Store) Promotion(id string) (promotion.Promotion, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.promotions[id]
	p.EligibleCategories = slices.Clone(p.EligibleCategories)
	return p, ok
}

// Execute runs fn with exclusive access to the store and applies the staged
// batch if fn succeeds.
func (s *Store) Execute(ctx context.Context, fn func(ctx context.Context, tx order.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &txn{s: s}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return &order.StoreError{Op: "commit", Err: err}
	}
	if tx.staged == nil {
		return nil
	}
	return s.apply(tx.staged)
}

// apply checks every guard before mutating anything, so a failed guard
// leaves the store untouched.
func (s *Store) apply(b *order.Batch) error {
	p, ok := s.products[b.ProductID]
	if !ok || p.Stock < b.Quantity {
		return order.ErrConflict
	}
	var (
		v  voucher.Voucher
		pr promotion.Promotion
	)
	if b.VoucherID != "" {
		if v, ok = s.vouchers[b.VoucherID]; !ok || v.Exhausted() {
			return order.ErrConflict
		}
	}
	if b.PromotionID != "" {
		if pr, ok = s.promotions[b.PromotionID]; !ok || pr.Exhausted() {
			return order.ErrConflict
		}
	}

	p.Stock -= b.Quantity
	s.products[p.ID] = p
	if b.VoucherID != "" {
		v.UsedCount++
		s.vouchers[v.ID] = v
	}
	if b.PromotionID != "" {
		pr.CurrentUses++
		s.promotions[pr.ID] = pr
	}
	s.orders = append(s.orders, *b.Order)
	return nil
}

// List returns every order, newest first.
func (s *Store) List(_ context.Context) ([]order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return newestFirst(s.orders), nil
}

// GetByID returns the order with the given id.
func (s *Store) GetByID(_ context.Context, id string) (*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.ID == id {
			return &o, nil
		}
	}
	return nil, order.ErrNotFound
}

// ListByUser returns the orders placed by userID, newest first.
func (s *Store) ListByUser(_ context.Context, userID string) ([]order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []order.Order
	for _, o := range s.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return newestFirst(out), nil
}

func newestFirst(orders []order.Order) []order.Order {
	out := slices.Clone(orders)
	slices.SortStableFunc(out, func(a, b order.Order) int {
		return cmp.Compare(b.CreatedAt.UnixNano(), a.CreatedAt.UnixNano())
	})
	return out
}

// txn reads committed state directly; the store lock held by Execute keeps it
// stable until the staged batch is applied.
type txn struct {
	s      *Store
	staged *order.Batch
}

func (t *txn) GetProduct(_ context.Context, id string) (*product.Product, error) {
	p, ok := t.s.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (t *txn) GetVoucher(_ context.Context, id string) (*voucher.Voucher, error) {
	v, ok := t.s.vouchers[id]
	if !ok {
		return nil, voucher.ErrNotFound
	}
	return &v, nil
}

func (t *txn) GetPromotion(_ context.Context, id string) (*promotion.Promotion, error) {
	p, ok := t.s.promotions[id]
	if !ok {
		return nil, promotion.ErrNotFound
	}
	p.EligibleCategories = slices.Clone(p.EligibleCategories)
	return &p, nil
}

func (t *txn) Write(_ context.Context, b *order.Batch) error {
	if b == nil || b.Order == nil {
		return errors.New("empty batch")
	}
	if t.staged != nil {
		return errors.New("batch already staged")
	}
	t.staged = b
	return nil
}
