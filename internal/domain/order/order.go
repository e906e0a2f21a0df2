package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Order is a committed purchase of a single product.
type Order struct {
	ID          string
	UserID      string
	ProductID   string
	Quantity    int
	UnitPrice   decimal.Decimal
	Discount    decimal.Decimal
	TotalAmount decimal.Decimal
	VoucherID   string // empty when no voucher was applied
	PromotionID string // empty when no promotion was applied
	CreatedAt   time.Time
}

// Subtotal returns the pre-discount amount of o.
func (o *Order) Subtotal() decimal.Decimal {
	return o.UnitPrice.Mul(decimal.NewFromInt(int64(o.Quantity)))
}

// Repository defines read access to committed orders. Orders are only ever
// written through Store as part of placement.
type Repository interface {
	List(ctx context.Context) ([]Order, error)
	GetByID(ctx context.Context, id string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
}
