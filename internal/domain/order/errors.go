package order

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/product"
)

// Entity names a record the placement pipeline reads.
type Entity string

const (
	EntityProduct   Entity = "product"
	EntityVoucher   Entity = "voucher"
	EntityPromotion Entity = "promotion"
)

// Sentinel errors for order placement and lookup.
var (
	ErrNotFound        = errors.New("order not found")
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
	ErrMissingField    = errors.New("missing required fields: product or quantity")
	// ErrConflict reports that a concurrent placement won the race for the same
	// stock or usage slot. Nothing was written; the whole placement may be retried.
	ErrConflict = errors.New("concurrent update conflict, retry the order")
)

// NotFoundError indicates a referenced record does not exist.
type NotFoundError struct {
	Entity Entity
	ID     string
	Err    error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// InsufficientStockError indicates the product cannot cover the quantity.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// ExpiredError indicates a voucher or promotion is past its expiration date.
type ExpiredError struct {
	Entity Entity
	ID     string
}

func (e *ExpiredError) Error() string {
	return fmt.Sprintf("%s %s expired", e.Entity, e.ID)
}

// UsageLimitExceededError indicates a voucher or promotion has no usage slot left.
type UsageLimitExceededError struct {
	Entity Entity
	ID     string
	Limit  int
}

func (e *UsageLimitExceededError) Error() string {
	return fmt.Sprintf("%s %s usage limit exceeded", e.Entity, e.ID)
}

// MinimumOrderNotMetError indicates the pre-discount amount is below the
// voucher's minimum order value.
type MinimumOrderNotMetError struct {
	VoucherID string
	Minimum   decimal.Decimal
	Amount    decimal.Decimal
}

func (e *MinimumOrderNotMetError) Error() string {
	return fmt.Sprintf("order value %s does not meet minimum requirement %s",
		e.Amount.StringFixed(2), e.Minimum.StringFixed(2))
}

// NotApplicableError indicates the promotion does not cover the product's category.
type NotApplicableError struct {
	PromotionID string
	Category    product.Category
}

func (e *NotApplicableError) Error() string {
	return fmt.Sprintf("promotion %s not applicable to category %s", e.PromotionID, e.Category)
}

// DiscountCapExceededError indicates the combined voucher and promotion
// discount is above the aggregate limit.
type DiscountCapExceededError struct {
	Discount decimal.Decimal
	Limit    decimal.Decimal
}

func (e *DiscountCapExceededError) Error() string {
	return fmt.Sprintf("maximum discount limit exceeded: %s > %s",
		e.Discount.StringFixed(2), e.Limit.StringFixed(2))
}

// StoreError wraps an underlying storage failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// wrapStore passes conflicts and already-wrapped store errors through and
// wraps anything else as a StoreError.
func wrapStore(op string, err error) error {
	var se *StoreError
	if errors.Is(err, ErrConflict) || errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// Reason returns a short, stable label for err, suitable for metrics.
func Reason(err error) string {
	var (
		notFound   *NotFoundError
		stock      *InsufficientStockError
		expired    *ExpiredError
		usage      *UsageLimitExceededError
		minimum    *MinimumOrderNotMetError
		applicable *NotApplicableError
		capped     *DiscountCapExceededError
		store      *StoreError
	)
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrMissingField):
		return "invalid_request"
	case errors.As(err, &notFound):
		return "not_found"
	case errors.As(err, &stock):
		return "insufficient_stock"
	case errors.As(err, &expired):
		return "expired"
	case errors.As(err, &usage):
		return "usage_limit_exceeded"
	case errors.As(err, &minimum):
		return "minimum_not_met"
	case errors.As(err, &applicable):
		return "not_applicable"
	case errors.As(err, &capped):
		return "discount_cap_exceeded"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.As(err, &store):
		return "store"
	default:
		return "unknown"
	}
}
