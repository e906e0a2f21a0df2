package order

import (
	"context"

	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/promotion"
	"github.com/xenking/storefront/internal/domain/voucher"
)

// Batch is the unit of work staged by a successful placement. All of it is
// applied or none of it is.
type Batch struct {
	// ProductID stock is decremented by Quantity.
	ProductID string
	Quantity  int
	// VoucherID, when set, has its used count incremented by one.
	VoucherID string
	// PromotionID, when set, has its current uses incremented by one.
	PromotionID string
	// Order is inserted.
	Order *Order
}

// Tx is a transaction scope over the entity store. Reads observe the same
// snapshot the staged writes commit against.
type Tx interface {
	// GetProduct returns product.ErrNotFound when no product matches.
	GetProduct(ctx context.Context, id string) (*product.Product, error)
	// GetVoucher returns voucher.ErrNotFound when no voucher matches.
	GetVoucher(ctx context.Context, id string) (*voucher.Voucher, error)
	// GetPromotion returns promotion.ErrNotFound when no promotion matches.
	GetPromotion(ctx context.Context, id string) (*promotion.Promotion, error)
	// Write stages every mutation in b. Counter updates are guarded in the
	// store; a guard miss caused by a concurrent writer returns ErrConflict.
	Write(ctx context.Context, b *Batch) error
}

// Store opens transaction scopes for order placement.
type Store interface {
	// Execute runs fn inside a transaction. The transaction commits if fn
	// returns nil and rolls back otherwise, in which case fn's error is
	// returned unchanged. Commit failures caused by concurrent transactions
	// are reported as ErrConflict, any other failure as *StoreError.
	Execute(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
