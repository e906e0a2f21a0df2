package handler

import (
	"net/http"

	"github.com/go-faster/jx"
)

// placeOrder runs the placement pipeline for the authenticated user.
// Every rejection leaves stock and usage counters untouched.
func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := decodeObject(w, r, req.decode); err != nil {
		writeError(w, r, err)
		return
	}
	req.req.UserID, _ = UserID(r.Context())

	o, err := h.orders.PlaceOrder(r.Context(), req.req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusCreated, "Order created successfully", func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, "Orders retrieved successfully", encodeList(orders, encodeOrder))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, "Order retrieved successfully", func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}

func (h *Handler) listUserOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListByUser(r.Context(), r.PathValue("userId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, "Orders retrieved successfully", encodeList(orders, encodeOrder))
}
