package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/promotion"
)

func (h *Handler) listPromotions(w http.ResponseWriter, r *http.Request) {
	promotions, err := h.promotions.ListActive(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, "Promotions retrieved successfully", encodeList(promotions, encodePromotion))
}

func (h *Handler) getPromotion(w http.ResponseWriter, r *http.Request) {
	p, err := h.promotions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, "Promotion retrieved successfully", func(e *jx.Encoder) {
		encodePromotion(e, p)
	})
}

func (h *Handler) createPromotion(w http.ResponseWriter, r *http.Request) {
	var req promotionRequest
	if err := decodeObject(w, r, req.decode); err != nil {
		writeError(w, r, err)
		return
	}

	p := &promotion.Promotion{Code: req.code}
	req.patch.Apply(p)
	if err := h.promotions.Create(r.Context(), p); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusCreated, "Promotion created successfully", func(e *jx.Encoder) {
		encodePromotion(e, p)
	})
}

func (h *Handler) updatePromotion(w http.ResponseWriter, r *http.Request) {
	var req promotionRequest
	if err := decodeObject(w, r, req.decode); err != nil {
		writeError(w, r, err)
		return
	}

	p, err := h.promotions.Update(r.Context(), r.PathValue("id"), req.patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, "Promotion updated successfully", func(e *jx.Encoder) {
		encodePromotion(e, p)
	})
}

func (h *Handler) deletePromotion(w http.ResponseWriter, r *http.Request) {
	if err := h.promotions.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, "Promotion deleted successfully", nil)
}

// validatePromotion previews a code for a product category.
func (h *Handler) validatePromotion(w http.ResponseWriter, r *http.Request) {
	var code, category string
	err := decodeObject(w, r, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "code":
			code, err = d.Str()
		case "category", "productCategory":
			category, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if code == "" || category == "" {
		writeFailure(w, r, http.StatusBadRequest, "Promotion code and category are required")
		return
	}

	p, err := h.promotions.ValidateCode(r.Context(), code, product.Category(category))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, "Promotion is valid", func(e *jx.Encoder) {
		encodePromotion(e, p)
	})
}
