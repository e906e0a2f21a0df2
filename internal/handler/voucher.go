package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/voucher"
)

func (h *Handler) listVouchers(w http.ResponseWriter, r *http.Request) {
	vouchers, err := h.vouchers.ListActive(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, "Vouchers retrieved successfully", encodeList(vouchers, encodeVoucher))
}

func (h *Handler) getVoucher(w http.ResponseWriter, r *http.Request) {
	v, err := h.vouchers.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, "Voucher retrieved successfully", func(e *jx.Encoder) {
		encodeVoucher(e, v)
	})
}

func (h *Handler) createVoucher(w http.ResponseWriter, r *http.Request) {
	var req voucherRequest
	if err := decodeObject(w, r, req.decode); err != nil {
		writeError(w, r, err)
		return
	}

	v := &voucher.Voucher{Code: req.code}
	req.patch.Apply(v)
	if err := h.vouchers.Create(r.Context(), v); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusCreated, "Voucher created successfully", func(e *jx.Encoder) {
		encodeVoucher(e, v)
	})
}

func (h *Handler) updateVoucher(w http.ResponseWriter, r *http.Request) {
	var req voucherRequest
	if err := decodeObject(w, r, req.decode); err != nil {
		writeError(w, r, err)
		return
	}

	v, err := h.vouchers.Update(r.Context(), r.PathValue("id"), req.patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, "Voucher updated successfully", func(e *jx.Encoder) {
		encodeVoucher(e, v)
	})
}

func (h *Handler) deleteVoucher(w http.ResponseWriter, r *http.Request) {
	if err := h.vouchers.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, "Voucher deleted successfully", nil)
}

// validateVoucher previews a code against an order amount without redeeming it.
func (h *Handler) validateVoucher(w http.ResponseWriter, r *http.Request) {
	var (
		code   string
		amount decimal.Decimal
	)
	err := decodeObject(w, r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "code":
			code, err = d.Str()
		case "orderAmount", "amount":
			amount, err = decodeDecimal(d)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if code == "" {
		writeFailure(w, r, http.StatusBadRequest, "Voucher code is required")
		return
	}

	v, err := h.vouchers.ValidateCode(r.Context(), code, amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, "Voucher is valid", func(e *jx.Encoder) {
		encodeVoucher(e, v)
	})
}
