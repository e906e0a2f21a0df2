package user

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type mockUserRepo struct {
	byEmail map[string]*User
}

func newMockRepo() *mockUserRepo {
	return &mockUserRepo{byEmail: map[string]*User{}}
}

func (m *mockUserRepo) List(_ context.Context) ([]User, error) {
	out := make([]User, 0, len(m.byEmail))
	for _, u := range m.byEmail {
		out = append(out, *u)
	}
	return out, nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*User, error) {
	for _, u := range m.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	u, ok := m.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	return u, nil
}

func (m *mockUserRepo) Create(_ context.Context, u *User) error {
	if _, ok := m.byEmail[u.Email]; ok {
		return ErrExists
	}
	m.byEmail[u.Email] = u
	return nil
}

func (m *mockUserRepo) Delete(_ context.Context, _ string) error { return nil }

func newTestService(repo Repository) *Service {
	svc := NewService(repo, NewTokens([]byte("test-secret"), time.Hour))
	svc.cost = bcrypt.MinCost
	return svc
}

func TestService_Register(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	u, token, err := svc.Register(context.Background(), "Ada", "  Ada@Example.com ", "s3cret!")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.NotEqual(t, "s3cret!", u.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("s3cret!")))

	_, _, err = svc.Register(context.Background(), "Ada", "ada@example.com", "another")
	require.ErrorIs(t, err, ErrExists)
}

func TestService_Register_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		userName  string
		email     string
		password  string
		wantField string
	}{
		{name: "no name", email: "a@b.co", password: "secret", wantField: "name"},
		{name: "no email", userName: "A", password: "secret", wantField: "email"},
		{name: "bad email", userName: "A", email: "nope", password: "secret", wantField: "email"},
		{name: "short password", userName: "A", email: "a@b.co", password: "123", wantField: "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(newMockRepo())
			_, _, err := svc.Register(context.Background(), tt.userName, tt.email, tt.password)

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.wantField, vErr.Field)
		})
	}
}

func TestService_Login(t *testing.T) {
	svc := newTestService(newMockRepo())
	ctx := context.Background()

	registered, _, err := svc.Register(ctx, "Ada", "ada@example.com", "s3cret!")
	require.NoError(t, err)

	t.Run("valid", func(t *testing.T) {
		u, token, err := svc.Login(ctx, "ADA@example.com", "s3cret!")
		require.NoError(t, err)
		assert.Equal(t, registered.ID, u.ID)

		id, err := svc.Authenticate(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, registered.ID, id)
	})
	t.Run("wrong password", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "ada@example.com", "nope")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})
	t.Run("unknown email", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "bob@example.com", "s3cret!")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestTokens(t *testing.T) {
	issued := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tokens := NewTokens([]byte("k"), time.Hour)
	tokens.now = func() time.Time { return issued }

	raw, err := tokens.Issue("u1")
	require.NoError(t, err)

	id, err := tokens.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "u1", id)

	t.Run("expired", func(t *testing.T) {
		late := NewTokens([]byte("k"), time.Hour)
		late.now = func() time.Time { return issued.Add(2 * time.Hour) }
		_, err := late.Parse(raw)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokens([]byte("other"), time.Hour)
		other.now = tokens.now
		_, err := other.Parse(raw)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
	t.Run("garbage", func(t *testing.T) {
		_, err := tokens.Parse("not.a.token")
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}
