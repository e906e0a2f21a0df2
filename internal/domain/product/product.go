package product

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Category is the fixed catalog classification of a product.
type Category string

const (
	CategoryElectronics Category = "Electronics"
	CategoryFashion     Category = "Fashion"
	CategoryHome        Category = "Home"
	CategoryBeauty      Category = "Beauty"
	CategorySports      Category = "Sports"
)

// Categories lists every known category in display order.
var Categories = []Category{
	CategoryElectronics,
	CategoryFashion,
	CategoryHome,
	CategoryBeauty,
	CategorySports,
}

// Valid reports whether c is one of Categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ValidationError describes an invalid product field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

// Product represents a catalog item available for purchase.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	Category    Category
	Stock       int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate checks the catalog invariants of p.
func (p *Product) Validate() error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return &ValidationError{Field: "name", Reason: "required"}
	case strings.TrimSpace(p.Description) == "":
		return &ValidationError{Field: "description", Reason: "required"}
	case p.Price.IsNegative():
		return &ValidationError{Field: "price", Reason: "must not be negative"}
	case !p.Price.Equal(p.Price.Round(2)):
		return &ValidationError{Field: "price", Reason: "must not have more than 2 decimal places"}
	case !p.Category.Valid():
		return &ValidationError{Field: "category", Reason: "unknown category " + string(p.Category)}
	case p.Stock < 0:
		return &ValidationError{Field: "stock", Reason: "must not be negative"}
	}
	return nil
}

// Patch holds a partial product update. Nil fields are left unchanged.
type Patch struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Category    *Category
	Stock       *int
}

// Apply copies the set fields of patch onto p.
func (patch Patch) Apply(p *Product) {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
}

// Repository defines catalog persistence.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	Create(ctx context.Context, p *Product) error
	// Update overwrites the catalog fields of p. Stock is written only when
	// withStock is set; otherwise the stored value is kept and copied into p.
	Update(ctx context.Context, p *Product, withStock bool) error
	Delete(ctx context.Context, id string) error
}
