package handler

import (
	"net/http"

	"github.com/go-faster/jx"
)

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeObject(w, r, req.decode); err != nil {
		writeError(w, r, err)
		return
	}

	u, token, err := h.users.Register(r.Context(), req.name, req.email, req.password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusCreated, "User registered successfully", func(e *jx.Encoder) {
		encodeSession(e, u, token)
	})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeObject(w, r, req.decode); err != nil {
		writeError(w, r, err)
		return
	}
	if req.email == "" || req.password == "" {
		writeFailure(w, r, http.StatusBadRequest, "Email and password are required")
		return
	}

	u, token, err := h.users.Login(r.Context(), req.email, req.password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, "Login successful", func(e *jx.Encoder) {
		encodeSession(e, u, token)
	})
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, "Users retrieved successfully", encodeList(users, encodeUser))
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, "User retrieved successfully", func(e *jx.Encoder) {
		encodeUser(e, u)
	})
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, "User deleted successfully", nil)
}
