package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/discount"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/promotion"
	"github.com/xenking/storefront/internal/domain/user"
	"github.com/xenking/storefront/internal/domain/voucher"
)

const maxBodySize = 1 << 20

// badRequestError marks a request body that could not be decoded.
type badRequestError struct {
	err error
}

func (e *badRequestError) Error() string { return "invalid request body: " + e.err.Error() }

func (e *badRequestError) Unwrap() error { return e.err }

// decodeObject reads the request body as a JSON object, calling fn for each field.
func decodeObject(w http.ResponseWriter, r *http.Request, fn func(d *jx.Decoder, key string) error) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return &badRequestError{err: err}
	}
	if err := jx.DecodeBytes(body).Obj(fn); err != nil {
		return &badRequestError{err: err}
	}
	return nil
}

// decodeDecimal accepts a JSON number or a numeric string.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(s)
	default:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(n.String())
	}
}

func decodeTime(d *jx.Decoder) (time.Time, error) {
	s, err := d.Str()
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		// Date-only values expire at the end of that day.
		day, dErr := time.Parse(time.DateOnly, s)
		if dErr != nil {
			return time.Time{}, errors.Wrapf(err, "parse time %q", s)
		}
		t = day.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

func decodeDiscountType(d *jx.Decoder) (discount.Type, error) {
	s, err := d.Str()
	if err != nil {
		return "", err
	}
	return discount.Type(s), nil
}

func decodeCategories(d *jx.Decoder) ([]product.Category, error) {
	var out []product.Category
	err := d.Arr(func(d *jx.Decoder) error {
		s, err := d.Str()
		if err != nil {
			return err
		}
		out = append(out, product.Category(s))
		return nil
	})
	return out, err
}

// --- Requests ---

type productRequest struct {
	patch product.Patch
}

func (p *productRequest) decode(d *jx.Decoder, key string) error {
	switch key {
	case "name":
		v, err := d.Str()
		p.patch.Name = &v
		return err
	case "description":
		v, err := d.Str()
		p.patch.Description = &v
		return err
	case "price":
		v, err := decodeDecimal(d)
		p.patch.Price = &v
		return err
	case "category":
		v, err := d.Str()
		c := product.Category(v)
		p.patch.Category = &c
		return err
	case "stock":
		v, err := d.Int()
		p.patch.Stock = &v
		return err
	default:
		return d.Skip()
	}
}

type voucherRequest struct {
	code  string
	patch voucher.Patch
}

func (v *voucherRequest) decode(d *jx.Decoder, key string) (err error) {
	switch key {
	case "code":
		v.code, err = d.Str()
	case "discountType":
		t, dErr := decodeDiscountType(d)
		v.patch.DiscountType, err = &t, dErr
	case "discountValue":
		x, dErr := decodeDecimal(d)
		v.patch.DiscountValue, err = &x, dErr
	case "expirationDate":
		t, dErr := decodeTime(d)
		v.patch.ExpirationDate, err = &t, dErr
	case "usageLimit":
		n, dErr := d.Int()
		v.patch.UsageLimit, err = &n, dErr
	case "minimumOrderValue":
		x, dErr := decodeDecimal(d)
		v.patch.MinimumOrderValue, err = &x, dErr
	default:
		err = d.Skip()
	}
	return err
}

type promotionRequest struct {
	code  string
	patch promotion.Patch
}

func (p *promotionRequest) decode(d *jx.Decoder, key string) (err error) {
	switch key {
	case "code":
		p.code, err = d.Str()
	case "eligibleCategories":
		cs, dErr := decodeCategories(d)
		p.patch.EligibleCategories, err = cs, dErr
	case "discountType":
		t, dErr := decodeDiscountType(d)
		p.patch.DiscountType, err = &t, dErr
	case "discountValue":
		x, dErr := decodeDecimal(d)
		p.patch.DiscountValue, err = &x, dErr
	case "expirationDate":
		t, dErr := decodeTime(d)
		p.patch.ExpirationDate, err = &t, dErr
	case "usageLimit":
		n, dErr := d.Int()
		p.patch.UsageLimit, err = &n, dErr
	default:
		err = d.Skip()
	}
	return err
}

type credentialsRequest struct {
	name, email, password string
}

func (c *credentialsRequest) decode(d *jx.Decoder, key string) (err error) {
	switch key {
	case "name", "username":
		c.name, err = d.Str()
	case "email":
		c.email, err = d.Str()
	case "password":
		c.password, err = d.Str()
	default:
		err = d.Skip()
	}
	return err
}

type orderRequest struct {
	req order.PlaceOrderRequest
}

func (o *orderRequest) decode(d *jx.Decoder, key string) (err error) {
	switch key {
	case "product", "productId":
		o.req.ProductID, err = d.Str()
	case "quantity":
		o.req.Quantity, err = d.Int()
	case "voucher", "voucherId":
		o.req.VoucherID, err = decodeOptionalStr(d)
	case "promotion", "promotionId":
		o.req.PromotionID, err = decodeOptionalStr(d)
	default:
		err = d.Skip()
	}
	return err
}

func decodeOptionalStr(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

// --- Responses ---

func writeMoney(e *jx.Encoder, v decimal.Decimal) {
	e.RawStr(v.StringFixed(2))
}

func writeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339))
}

func encodeProduct(e *jx.Encoder, p *product.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("description")
	e.Str(p.Description)
	e.FieldStart("price")
	writeMoney(e, p.Price)
	e.FieldStart("category")
	e.Str(string(p.Category))
	e.FieldStart("stock")
	e.Int(p.Stock)
	e.FieldStart("createdAt")
	writeTime(e, p.CreatedAt)
	e.FieldStart("updatedAt")
	writeTime(e, p.UpdatedAt)
	e.ObjEnd()
}

func encodeVoucher(e *jx.Encoder, v *voucher.Voucher) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(v.ID)
	e.FieldStart("code")
	e.Str(v.Code)
	e.FieldStart("discountType")
	e.Str(string(v.DiscountType))
	e.FieldStart("discountValue")
	writeMoney(e, v.DiscountValue)
	e.FieldStart("expirationDate")
	writeTime(e, v.ExpirationDate)
	e.FieldStart("usageLimit")
	e.Int(v.UsageLimit)
	e.FieldStart("usedCount")
	e.Int(v.UsedCount)
	e.FieldStart("minimumOrderValue")
	writeMoney(e, v.MinimumOrderValue)
	e.FieldStart("createdAt")
	writeTime(e, v.CreatedAt)
	e.FieldStart("updatedAt")
	writeTime(e, v.UpdatedAt)
	e.ObjEnd()
}

func encodePromotion(e *jx.Encoder, p *promotion.Promotion) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("code")
	e.Str(p.Code)
	e.FieldStart("eligibleCategories")
	e.ArrStart()
	for _, c := range p.EligibleCategories {
		e.Str(string(c))
	}
	e.ArrEnd()
	e.FieldStart("discountType")
	e.Str(string(p.DiscountType))
	e.FieldStart("discountValue")
	writeMoney(e, p.DiscountValue)
	e.FieldStart("expirationDate")
	writeTime(e, p.ExpirationDate)
	e.FieldStart("usageLimit")
	e.Int(p.UsageLimit)
	e.FieldStart("currentUses")
	e.Int(p.CurrentUses)
	e.FieldStart("createdAt")
	writeTime(e, p.CreatedAt)
	e.FieldStart("updatedAt")
	writeTime(e, p.UpdatedAt)
	e.ObjEnd()
}

// encodeUser never writes the password hash.
func encodeUser(e *jx.Encoder, u *user.User) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(u.ID)
	e.FieldStart("name")
	e.Str(u.Name)
	e.FieldStart("email")
	e.Str(u.Email)
	if !u.CreatedAt.IsZero() {
		e.FieldStart("createdAt")
		writeTime(e, u.CreatedAt)
	}
	e.ObjEnd()
}

func encodeSession(e *jx.Encoder, u *user.User, token string) {
	e.ObjStart()
	e.FieldStart("user")
	encodeUser(e, u)
	e.FieldStart("token")
	e.Str(token)
	e.ObjEnd()
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("user")
	e.Str(o.UserID)
	e.FieldStart("product")
	e.Str(o.ProductID)
	e.FieldStart("quantity")
	e.Int(o.Quantity)
	e.FieldStart("unitPrice")
	writeMoney(e, o.UnitPrice)
	e.FieldStart("discount")
	writeMoney(e, o.Discount)
	e.FieldStart("totalAmount")
	writeMoney(e, o.TotalAmount)
	e.FieldStart("voucher")
	if o.VoucherID != "" {
		e.Str(o.VoucherID)
	} else {
		e.Null()
	}
	e.FieldStart("promotion")
	if o.PromotionID != "" {
		e.Str(o.PromotionID)
	} else {
		e.Null()
	}
	e.FieldStart("createdAt")
	writeTime(e, o.CreatedAt)
	e.ObjEnd()
}

func encodeList[T any](items []T, fn func(*jx.Encoder, *T)) func(*jx.Encoder) {
	return func(e *jx.Encoder) {
		e.ArrStart()
		for i := range items {
			fn(e, &items[i])
		}
		e.ArrEnd()
	}
}
