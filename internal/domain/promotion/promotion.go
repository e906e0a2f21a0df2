package promotion

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/discount"
	"github.com/xenking/storefront/internal/domain/product"
)

var (
	// ErrNotFound is returned when no promotion matches the id or code.
	ErrNotFound = errors.New("promotion not found")
	// ErrCodeExists is returned when creating a promotion whose code is taken.
	ErrCodeExists = errors.New("promotion code already exists")
	// ErrExpired is returned when the promotion's expiration date has passed.
	ErrExpired = errors.New("promotion expired")
	// ErrUsageLimitReached is returned when every usage slot is consumed.
	ErrUsageLimitReached = errors.New("promotion usage limit exceeded")
	// ErrNotApplicable is returned when the product category is not eligible.
	ErrNotApplicable = errors.New("this promotion is not applicable to the product category")
)

// ValidationError describes an invalid promotion field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

// Promotion is a category-scoped discount with a bounded number of uses.
type Promotion struct {
	ID                 string
	Code               string
	EligibleCategories []product.Category
	DiscountType       discount.Type
	DiscountValue      decimal.Decimal
	ExpirationDate     time.Time
	UsageLimit         int
	CurrentUses        int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Expired reports whether p can no longer be redeemed at now.
func (p *Promotion) Expired(now time.Time) bool {
	return p.ExpirationDate.Before(now)
}

// Exhausted reports whether every usage slot has been consumed.
func (p *Promotion) Exhausted() bool {
	return p.CurrentUses >= p.UsageLimit
}

// Eligible reports whether c is among the promotion's categories.
func (p *Promotion) Eligible(c product.Category) bool {
	return slices.Contains(p.EligibleCategories, c)
}

// Validate checks the invariants required to store p.
func (p *Promotion) Validate() error {
	switch {
	case strings.TrimSpace(p.Code) == "":
		return &ValidationError{Field: "code", Reason: "required"}
	case len(p.EligibleCategories) == 0:
		return &ValidationError{Field: "eligibleCategories", Reason: "at least one category required"}
	case !p.DiscountType.Valid():
		return &ValidationError{Field: "discountType", Reason: "must be percentage or fixed"}
	case !p.DiscountValue.IsPositive():
		return &ValidationError{Field: "discountValue", Reason: "must be positive"}
	case !p.DiscountValue.Equal(p.DiscountValue.Round(2)):
		return &ValidationError{Field: "discountValue", Reason: "must not have more than 2 decimal places"}
	case p.ExpirationDate.IsZero():
		return &ValidationError{Field: "expirationDate", Reason: "required"}
	case p.UsageLimit <= 0:
		return &ValidationError{Field: "usageLimit", Reason: "must be positive"}
	case p.CurrentUses < 0 || p.CurrentUses > p.UsageLimit:
		return &ValidationError{Field: "currentUses", Reason: "must be between 0 and usageLimit"}
	}
	for _, c := range p.EligibleCategories {
		if !c.Valid() {
			return &ValidationError{Field: "eligibleCategories", Reason: "unknown category " + string(c)}
		}
	}
	return nil
}

// NormalizeCode returns the canonical stored form of a promotion code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Patch holds a partial promotion update. The usage counter is not patchable.
type Patch struct {
	EligibleCategories []product.Category
	DiscountType       *discount.Type
	DiscountValue      *decimal.Decimal
	ExpirationDate     *time.Time
	UsageLimit         *int
}

// Apply copies the set fields of patch onto p.
func (patch Patch) Apply(p *Promotion) {
	if patch.EligibleCategories != nil {
		p.EligibleCategories = patch.EligibleCategories
	}
	if patch.DiscountType != nil {
		p.DiscountType = *patch.DiscountType
	}
	if patch.DiscountValue != nil {
		p.DiscountValue = *patch.DiscountValue
	}
	if patch.ExpirationDate != nil {
		p.ExpirationDate = *patch.ExpirationDate
	}
	if patch.UsageLimit != nil {
		p.UsageLimit = *patch.UsageLimit
	}
}

// Repository provides promotion persistence.
type Repository interface {
	List(ctx context.Context) ([]Promotion, error)
	// ListActive returns promotions that are unexpired at now and still have
	// usage slots left.
	ListActive(ctx context.Context, now time.Time) ([]Promotion, error)
	GetByID(ctx context.Context, id string) (*Promotion, error)
	GetByCode(ctx context.Context, code string) (*Promotion, error)
	// Create returns ErrCodeExists when the code is already taken.
	Create(ctx context.Context, p *Promotion) error
	Update(ctx context.Context, p *Promotion) error
	Delete(ctx context.Context, id string) error
}
