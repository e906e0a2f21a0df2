// Package discount computes voucher and promotion discounts.
package discount

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Type enumerates the supported discount strategies.
type Type string

const (
	// Percentage takes Value percent of the base amount.
	Percentage Type = "percentage"
	// Fixed takes Value as a flat amount regardless of the base amount.
	Fixed Type = "fixed"
)

// ErrUnknownType is returned by Parse for unsupported discount types.
var ErrUnknownType = errors.New("unknown discount type")

// MaxShare is the largest fraction of the base amount any discount may take.
var MaxShare = decimal.RequireFromString("0.5")

var hundred = decimal.NewFromInt(100)

// Parse converts s into a Type.
func Parse(s string) (Type, error) {
	switch t := Type(s); t {
	case Percentage, Fixed:
		return t, nil
	default:
		return "", errors.Wrapf(ErrUnknownType, "%q", s)
	}
}

// Valid reports whether t is a supported discount type.
func (t Type) Valid() bool {
	return t == Percentage || t == Fixed
}

// Compute returns the raw discount for value applied to base.
// Unknown types yield zero.
func Compute(t Type, value, base decimal.Decimal) decimal.Decimal {
	switch t {
	case Percentage:
		return base.Mul(value).Div(hundred)
	case Fixed:
		return value
	default:
		return decimal.Zero
	}
}

// Limit returns the maximum discount allowed against base.
func Limit(base decimal.Decimal) decimal.Decimal {
	return base.Mul(MaxShare)
}

// Capped returns Compute clamped to Limit(base).
func Capped(t Type, value, base decimal.Decimal) decimal.Decimal {
	amount := Compute(t, value, base)
	if limit := Limit(base); amount.GreaterThan(limit) {
		return limit
	}
	return amount
}
