package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/product"
)

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, "Products retrieved successfully", encodeList(products, encodeProduct))
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, "Product retrieved successfully", func(e *jx.Encoder) {
		encodeProduct(e, p)
	})
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeObject(w, r, req.decode); err != nil {
		writeError(w, r, err)
		return
	}

	p := &product.Product{}
	req.patch.Apply(p)
	if err := h.products.Create(r.Context(), p); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusCreated, "Product created successfully", func(e *jx.Encoder) {
		encodeProduct(e, p)
	})
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeObject(w, r, req.decode); err != nil {
		writeError(w, r, err)
		return
	}

	p, err := h.products.Update(r.Context(), r.PathValue("id"), req.patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, "Product updated successfully", func(e *jx.Encoder) {
		encodeProduct(e, p)
	})
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.products.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, "Product deleted successfully", nil)
}
