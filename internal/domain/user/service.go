package user

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Service implements registration, login and user administration.
type Service struct {
	repo   Repository
	tokens *Tokens
	cost   int
	now    func() time.Time
}

// NewService creates a Service storing users in repo and issuing tokens with tokens.
func NewService(repo Repository, tokens *Tokens) *Service {
	return &Service{
		repo:   repo,
		tokens: tokens,
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
	}
}

// Register creates a user with a hashed password and returns it with a
// token, so a new customer is signed in straight away.
func (s *Service) Register(ctx context.Context, name, email, password string) (*User, string, error) {
	email = NormalizeEmail(email)
	if err := validateRegistration(name, email, password); err != nil {
		return nil, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, "", errors.Wrap(err, "hash password")
	}

	u := &User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now(),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, ErrExists) {
			return nil, "", ErrExists
		}
		return nil, "", errors.Wrap(err, "create user")
	}

	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// Login checks the credentials and returns the user with a fresh token.
func (s *Service) Login(ctx context.Context, email, password string) (*User, string, error) {
	u, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", errors.Wrap(err, "get user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// Authenticate resolves a bearer token to its user id.
func (s *Service) Authenticate(_ context.Context, token string) (string, error) {
	return s.tokens.Parse(token)
}

// List returns every registered user.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// Get returns the user with the given id.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// Delete removes the user with the given id.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
