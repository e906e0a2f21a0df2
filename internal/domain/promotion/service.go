package promotion

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/storefront/internal/domain/product"
)

// Service implements promotion administration and code previews.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a Service backed by the given Repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Create validates p, assigns an id, and stores it with a zero usage count.
func (s *Service) Create(ctx context.Context, p *Promotion) error {
	p.Code = NormalizeCode(p.Code)
	p.CurrentUses = 0
	if err := p.Validate(); err != nil {
		return err
	}

	now := s.now()
	p.ID = uuid.New().String()
	p.CreatedAt = now
	p.UpdatedAt = now
	if err := s.repo.Create(ctx, p); err != nil {
		return errors.Wrap(err, "create promotion")
	}
	return nil
}

// Get returns the promotion with the given id.
func (s *Service) Get(ctx context.Context, id string) (*Promotion, error) {
	return s.repo.GetByID(ctx, id)
}

// ListActive returns the promotions currently redeemable.
func (s *Service) ListActive(ctx context.Context) ([]Promotion, error) {
	return s.repo.ListActive(ctx, s.now())
}

// Update applies patch to the stored promotion and persists the result.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (*Promotion, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	patch.Apply(p)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, errors.Wrap(err, "update promotion")
	}
	return p, nil
}

// Delete removes the promotion with the given id.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// ValidateCode checks whether code could be redeemed for a product of the
// given category right now. It has no side effects.
func (s *Service) ValidateCode(ctx context.Context, code string, category product.Category) (*Promotion, error) {
	p, err := s.repo.GetByCode(ctx, NormalizeCode(code))
	if err != nil {
		return nil, err
	}

	if p.Expired(s.now()) {
		return nil, ErrExpired
	}
	if p.Exhausted() {
		return nil, ErrUsageLimitReached
	}
	if !p.Eligible(category) {
		return nil, ErrNotApplicable
	}
	return p, nil
}
