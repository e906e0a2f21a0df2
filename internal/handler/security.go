package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/auth"
)

// APIKeyHeader carries the admin key on catalog writes.
const APIKeyHeader = "api_key"

type userIDKey struct{}

// UserID returns the authenticated user id stored by requireUser.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey{}).(string)
	return id, ok && id != ""
}

// requireAdmin rejects requests whose api_key header does not resolve to a
// key with the admin scope.
func (h *Handler) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(APIKeyHeader)
		if key == "" {
			writeFailure(w, r, http.StatusUnauthorized, "API key required")
			return
		}
		info, err := h.keys.Authorize(r.Context(), key, auth.ScopeAdmin)
		if err != nil {
			writeError(w, r, errors.Wrap(err, "authorize api key"))
			return
		}
		zctx.From(r.Context()).Debug("API key accepted", zap.String("key_name", info.Name))
		next(w, r)
	}
}

// requireUser verifies the bearer token and stores the user id in the
// request context.
func (h *Handler) requireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeFailure(w, r, http.StatusUnauthorized, "No token, authorization denied")
			return
		}
		id, err := h.users.Authenticate(r.Context(), token)
		if err != nil {
			writeFailure(w, r, http.StatusUnauthorized, "Token is not valid")
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey{}, id)
		ctx = zctx.With(ctx, zap.String("user_id", id))
		next(w, r.WithContext(ctx))
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
