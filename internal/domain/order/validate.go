package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/promotion"
	"github.com/xenking/storefront/internal/domain/voucher"
)

// validated is the bundle produced by a successful pipeline run.
type validated struct {
	product   *product.Product
	unitPrice decimal.Decimal
	base      decimal.Decimal
	voucher   *voucher.Voucher     // nil when the request carries no voucher
	promotion *promotion.Promotion // nil when the request carries no promotion
}

// validate runs the placement checks against tx, in order, stopping at the
// first failure.
func validate(ctx context.Context, tx Tx, req PlaceOrderRequest, now time.Time) (*validated, error) {
	p, err := tx.GetProduct(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return nil, &NotFoundError{Entity: EntityProduct, ID: req.ProductID, Err: err}
		}
		return nil, wrapStore("get product", err)
	}
	if p.Stock < req.Quantity {
		return nil, &InsufficientStockError{
			ProductID: p.ID,
			Requested: req.Quantity,
			Available: p.Stock,
		}
	}

	v := &validated{
		product:   p,
		unitPrice: p.Price,
		base:      p.Price.Mul(decimal.NewFromInt(int64(req.Quantity))),
	}

	if req.VoucherID != "" {
		if v.voucher, err = validateVoucher(ctx, tx, req.VoucherID, v.base, now); err != nil {
			return nil, err
		}
	}
	if req.PromotionID != "" {
		if v.promotion, err = validatePromotion(ctx, tx, req.PromotionID, p.Category, now); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func validateVoucher(ctx context.Context, tx Tx, id string, base decimal.Decimal, now time.Time) (*voucher.Voucher, error) {
	vc, err := tx.GetVoucher(ctx, id)
	if err != nil {
		if errors.Is(err, voucher.ErrNotFound) {
			return nil, &NotFoundError{Entity: EntityVoucher, ID: id, Err: err}
		}
		return nil, wrapStore("get voucher", err)
	}
	switch {
	case vc.Expired(now):
		return nil, &ExpiredError{Entity: EntityVoucher, ID: id}
	case vc.Exhausted():
		return nil, &UsageLimitExceededError{Entity: EntityVoucher, ID: id, Limit: vc.UsageLimit}
	case !vc.MeetsMinimum(base):
		return nil, &MinimumOrderNotMetError{VoucherID: id, Minimum: vc.MinimumOrderValue, Amount: base}
	}
	return vc, nil
}

func validatePromotion(ctx context.Context, tx Tx, id string, category product.Category, now time.Time) (*promotion.Promotion, error) {
	pr, err := tx.GetPromotion(ctx, id)
	if err != nil {
		if errors.Is(err, promotion.ErrNotFound) {
			return nil, &NotFoundError{Entity: EntityPromotion, ID: id, Err: err}
		}
		return nil, wrapStore("get promotion", err)
	}
	switch {
	case pr.Expired(now):
		return nil, &ExpiredError{Entity: EntityPromotion, ID: id}
	case pr.Exhausted():
		return nil, &UsageLimitExceededError{Entity: EntityPromotion, ID: id, Limit: pr.UsageLimit}
	case !pr.Eligible(category):
		return nil, &NotApplicableError{PromotionID: id, Category: category}
	}
	return pr, nil
}
