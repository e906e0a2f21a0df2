package voucher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/discount"
)

var (
	// ErrNotFound is returned when no voucher matches the id or code.
	ErrNotFound = errors.New("voucher not found")
	// ErrCodeExists is returned when creating a voucher whose code is taken.
	ErrCodeExists = errors.New("voucher code already exists")
	// ErrExpired is returned when the voucher's expiration date has passed.
	ErrExpired = errors.New("voucher expired")
	// ErrUsageLimitReached is returned when every usage slot is consumed.
	ErrUsageLimitReached = errors.New("voucher usage limit exceeded")
)

// MinimumNotMetError indicates the order amount is below the voucher minimum.
type MinimumNotMetError struct {
	Minimum decimal.Decimal
	Amount  decimal.Decimal
}

func (e *MinimumNotMetError) Error() string {
	return fmt.Sprintf("minimum order value of %s required", e.Minimum.StringFixed(2))
}

// ValidationError describes an invalid voucher field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

// Voucher is a single-code discount with a bounded number of uses.
type Voucher struct {
	ID                string
	Code              string
	DiscountType      discount.Type
	DiscountValue     decimal.Decimal
	ExpirationDate    time.Time
	UsageLimit        int
	UsedCount         int
	MinimumOrderValue decimal.Decimal // zero means no minimum
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Expired reports whether v can no longer be redeemed at now.
func (v *Voucher) Expired(now time.Time) bool {
	return v.ExpirationDate.Before(now)
}

// Exhausted reports whether every usage slot has been consumed.
func (v *Voucher) Exhausted() bool {
	return v.UsedCount >= v.UsageLimit
}

// MeetsMinimum reports whether amount satisfies the minimum order value.
func (v *Voucher) MeetsMinimum(amount decimal.Decimal) bool {
	return !amount.LessThan(v.MinimumOrderValue)
}

// Validate checks the invariants required to store v.
func (v *Voucher) Validate() error {
	switch {
	case strings.TrimSpace(v.Code) == "":
		return &ValidationError{Field: "code", Reason: "required"}
	case !v.DiscountType.Valid():
		return &ValidationError{Field: "discountType", Reason: "must be percentage or fixed"}
	case !v.DiscountValue.IsPositive():
		return &ValidationError{Field: "discountValue", Reason: "must be positive"}
	case !v.DiscountValue.Equal(v.DiscountValue.Round(2)):
		return &ValidationError{Field: "discountValue", Reason: "must not have more than 2 decimal places"}
	case v.ExpirationDate.IsZero():
		return &ValidationError{Field: "expirationDate", Reason: "required"}
	case v.UsageLimit <= 0:
		return &ValidationError{Field: "usageLimit", Reason: "must be positive"}
	case v.UsedCount < 0 || v.UsedCount > v.UsageLimit:
		return &ValidationError{Field: "usedCount", Reason: "must be between 0 and usageLimit"}
	case v.MinimumOrderValue.IsNegative():
		return &ValidationError{Field: "minimumOrderValue", Reason: "must not be negative"}
	case !v.MinimumOrderValue.Equal(v.MinimumOrderValue.Round(2)):
		return &ValidationError{Field: "minimumOrderValue", Reason: "must not have more than 2 decimal places"}
	}
	return nil
}

// NormalizeCode returns the canonical stored form of a voucher code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Patch holds a partial voucher update. The usage counter is not patchable.
type Patch struct {
	DiscountType      *discount.Type
	DiscountValue     *decimal.Decimal
	ExpirationDate    *time.Time
	UsageLimit        *int
	MinimumOrderValue *decimal.Decimal
}

// Apply copies the set fields of patch onto v.
func (patch Patch) Apply(v *Voucher) {
	if patch.DiscountType != nil {
		v.DiscountType = *patch.DiscountType
	}
	if patch.DiscountValue != nil {
		v.DiscountValue = *patch.DiscountValue
	}
	if patch.ExpirationDate != nil {
		v.ExpirationDate = *patch.ExpirationDate
	}
	if patch.UsageLimit != nil {
		v.UsageLimit = *patch.UsageLimit
	}
	if patch.MinimumOrderValue != nil {
		v.MinimumOrderValue = *patch.MinimumOrderValue
	}
}

// Repository provides voucher persistence.
type Repository interface {
	List(ctx context.Context) ([]Voucher, error)
	// ListActive returns vouchers that are unexpired at now and still have
	// usage slots left.
	ListActive(ctx context.Context, now time.Time) ([]Voucher, error)
	GetByID(ctx context.Context, id string) (*Voucher, error)
	GetByCode(ctx context.Context, code string) (*Voucher, error)
	// Create returns ErrCodeExists when the code is already taken.
	Create(ctx context.Context, v *Voucher) error
	Update(ctx context.Context, v *Voucher) error
	Delete(ctx context.Context, id string) error
}
