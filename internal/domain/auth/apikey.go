package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"slices"

	"github.com/go-faster/errors"
)

// ScopeAdmin grants catalog, voucher and promotion management.
const ScopeAdmin = "admin"

var (
	// ErrKeyNotFound is returned when no active key matches a hash.
	ErrKeyNotFound = errors.New("api key not found")
	// ErrForbidden is returned when a key lacks the required scope.
	ErrForbidden = errors.New("api key lacks required scope")
)

// APIKeyInfo holds the identity and permission data for a validated API key.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	Scopes  []string
}

// HasScope reports whether the key grants scope.
func (k *APIKeyInfo) HasScope(scope string) bool {
	return slices.Contains(k.Scopes, scope)
}

// Repository provides lookup of API keys by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}

// HashKey returns the hex HMAC-SHA256 of key under pepper. Keys are stored
// and looked up by this hash only.
func HashKey(pepper []byte, key string) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

// Authorizer checks raw API keys against the repository.
type Authorizer struct {
	repo   Repository
	pepper []byte
}

// NewAuthorizer returns an Authorizer hashing keys with pepper.
func NewAuthorizer(repo Repository, pepper []byte) *Authorizer {
	return &Authorizer{repo: repo, pepper: pepper}
}

// Authorize resolves key and checks that it grants scope.
func (a *Authorizer) Authorize(ctx context.Context, key, scope string) (*APIKeyInfo, error) {
	if key == "" {
		return nil, ErrKeyNotFound
	}
	hash := HashKey(a.pepper, key)
	info, err := a.repo.FindByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if !hmac.Equal([]byte(info.KeyHash), []byte(hash)) {
		return nil, ErrKeyNotFound
	}
	if !info.HasScope(scope) {
		return nil, ErrForbidden
	}
	return info, nil
}
