package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/promotion"
	"github.com/xenking/storefront/internal/domain/user"
	"github.com/xenking/storefront/internal/domain/voucher"
)

// errorStatus maps a domain error to an HTTP status and a client message.
func errorStatus(err error) (int, string) {
	var (
		badReq       *badRequestError
		notFound     *order.NotFoundError
		stock        *order.InsufficientStockError
		expired      *order.ExpiredError
		exhausted    *order.UsageLimitExceededError
		minimum      *order.MinimumOrderNotMetError
		notApplic    *order.NotApplicableError
		capExceeded  *order.DiscountCapExceededError
		productErr   *product.ValidationError
		voucherErr   *voucher.ValidationError
		promotionErr *promotion.ValidationError
		userErr      *user.ValidationError
		voucherMin   *voucher.MinimumNotMetError
	)

	switch {
	case errors.As(err, &badReq):
		return http.StatusBadRequest, "Invalid request body"
	case errors.As(err, &productErr):
		return http.StatusBadRequest, productErr.Error()
	case errors.As(err, &voucherErr):
		return http.StatusBadRequest, voucherErr.Error()
	case errors.As(err, &promotionErr):
		return http.StatusBadRequest, promotionErr.Error()
	case errors.As(err, &userErr):
		return http.StatusBadRequest, userErr.Error()
	case errors.Is(err, order.ErrMissingField):
		return http.StatusBadRequest, "Product and quantity are required"
	case errors.Is(err, order.ErrInvalidQuantity):
		return http.StatusBadRequest, "Quantity must be positive"

	case errors.As(err, &notFound):
		return http.StatusNotFound, entityTitle(notFound.Entity) + " not found"
	case errors.Is(err, order.ErrNotFound):
		return http.StatusNotFound, "Order not found"
	case errors.Is(err, product.ErrNotFound):
		return http.StatusNotFound, "Product not found"
	case errors.Is(err, voucher.ErrNotFound):
		return http.StatusNotFound, "Voucher not found"
	case errors.Is(err, promotion.ErrNotFound):
		return http.StatusNotFound, "Promotion not found"
	case errors.Is(err, user.ErrNotFound):
		return http.StatusNotFound, "User not found"

	case errors.As(err, &stock):
		return http.StatusUnprocessableEntity, "Insufficient stock"
	case errors.As(err, &expired):
		return http.StatusUnprocessableEntity, entityTitle(expired.Entity) + " expired"
	case errors.As(err, &exhausted):
		return http.StatusUnprocessableEntity, entityTitle(exhausted.Entity) + " usage limit exceeded"
	case errors.As(err, &minimum), errors.As(err, &voucherMin):
		return http.StatusUnprocessableEntity, "Order value does not meet minimum requirement"
	case errors.As(err, &notApplic), errors.Is(err, promotion.ErrNotApplicable):
		return http.StatusUnprocessableEntity, "Promotion not applicable to this product"
	case errors.As(err, &capExceeded):
		return http.StatusUnprocessableEntity, "Maximum discount limit exceeded"
	case errors.Is(err, voucher.ErrExpired):
		return http.StatusUnprocessableEntity, "Voucher expired"
	case errors.Is(err, voucher.ErrUsageLimitReached):
		return http.StatusUnprocessableEntity, "Voucher usage limit exceeded"
	case errors.Is(err, promotion.ErrExpired):
		return http.StatusUnprocessableEntity, "Promotion expired"
	case errors.Is(err, promotion.ErrUsageLimitReached):
		return http.StatusUnprocessableEntity, "Promotion usage limit exceeded"

	case errors.Is(err, order.ErrConflict):
		return http.StatusConflict, "Order conflicted with a concurrent update, please retry"
	case errors.Is(err, voucher.ErrCodeExists):
		return http.StatusConflict, "Voucher code already exists"
	case errors.Is(err, promotion.ErrCodeExists):
		return http.StatusConflict, "Promotion code already exists"
	case errors.Is(err, user.ErrExists):
		return http.StatusConflict, "User already exists"

	case errors.Is(err, user.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, user.ErrInvalidToken):
		return http.StatusUnauthorized, "Token is not valid"
	case errors.Is(err, auth.ErrKeyNotFound):
		return http.StatusUnauthorized, "Invalid API key"
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden, "API key lacks required permissions"
	}
	return http.StatusInternalServerError, "Internal server error"
}

func entityTitle(e order.Entity) string {
	switch e {
	case order.EntityProduct:
		return "Product"
	case order.EntityVoucher:
		return "Voucher"
	case order.EntityPromotion:
		return "Promotion"
	default:
		return string(e)
	}
}

// writeError writes the envelope for err. Server errors are logged with
// the request-scoped logger and their details are hidden from the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := errorStatus(err)
	if status >= http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
	}
	writeFailure(w, r, status, msg)
}
