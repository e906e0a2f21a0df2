package voucher

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service implements voucher administration and code previews.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a Service backed by the given Repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Create validates v, assigns an id, and stores it with a zero usage count.
func (s *Service) Create(ctx context.Context, v *Voucher) error {
	v.Code = NormalizeCode(v.Code)
	v.UsedCount = 0
	if err := v.Validate(); err != nil {
		return err
	}

	now := s.now()
	v.ID = uuid.New().String()
	v.CreatedAt = now
	v.UpdatedAt = now
	if err := s.repo.Create(ctx, v); err != nil {
		return errors.Wrap(err, "create voucher")
	}
	return nil
}

// Get returns the voucher with the given id.
func (s *Service) Get(ctx context.Context, id string) (*Voucher, error) {
	return s.repo.GetByID(ctx, id)
}

// ListActive returns the vouchers currently redeemable.
func (s *Service) ListActive(ctx context.Context) ([]Voucher, error) {
	return s.repo.ListActive(ctx, s.now())
}

// Update applies patch to the stored voucher and persists the result.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (*Voucher, error) {
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	patch.Apply(v)
	if err := v.Validate(); err != nil {
		return nil, err
	}
	v.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, v); err != nil {
		return nil, errors.Wrap(err, "update voucher")
	}
	return v, nil
}

// Delete removes the voucher with the given id.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// ValidateCode checks whether code could be redeemed against amount right now.
// It has no side effects; redemption only happens during order placement.
func (s *Service) ValidateCode(ctx context.Context, code string, amount decimal.Decimal) (*Voucher, error) {
	v, err := s.repo.GetByCode(ctx, NormalizeCode(code))
	if err != nil {
		return nil, err
	}

	if v.Expired(s.now()) {
		return nil, ErrExpired
	}
	if v.Exhausted() {
		return nil, ErrUsageLimitReached
	}
	if !v.MeetsMinimum(amount) {
		return nil, &MinimumNotMetError{Minimum: v.MinimumOrderValue, Amount: amount}
	}
	return v, nil
}
