package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/promotion"
)

const (
	promotionColumns = `id, code, eligible_categories, discount_type, discount_value,
		expiration_date, usage_limit, current_uses, created_at, updated_at`

	listPromotionsSQL       = `SELECT ` + promotionColumns + ` FROM promotions ORDER BY created_at, id`
	listActivePromotionsSQL = `SELECT ` + promotionColumns + ` FROM promotions
		WHERE expiration_date >= $1 AND current_uses < usage_limit
		ORDER BY expiration_date, id`
	getPromotionByIDSQL   = `SELECT ` + promotionColumns + ` FROM promotions WHERE id = $1`
	getPromotionByCodeSQL = `SELECT ` + promotionColumns + ` FROM promotions WHERE code = $1`
	lockPromotionSQL      = getPromotionByIDSQL + ` FOR UPDATE`

	insertPromotionSQL = `INSERT INTO promotions (` + promotionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	// current_uses is owned by order placement and never written here.
	updatePromotionSQL = `UPDATE promotions
		SET eligible_categories = $2, discount_type = $3, discount_value = $4,
			expiration_date = $5, usage_limit = $6, updated_at = $7
		WHERE id = $1`

	deletePromotionSQL = `DELETE FROM promotions WHERE id = $1`
)

var _ promotion.Repository = (*PromotionRepository)(nil)

// PromotionRepository implements promotion.Repository backed by PostgreSQL.
type PromotionRepository struct {
	pool *pgxpool.Pool
}

// NewPromotionRepository returns a PromotionRepository that uses the given pool.
func NewPromotionRepository(pool *pgxpool.Pool) *PromotionRepository {
	return &PromotionRepository{pool: pool}
}

func (r *PromotionRepository) List(ctx context.Context) ([]promotion.Promotion, error) {
	rows, err := r.pool.Query(ctx, listPromotionsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing promotions: %w", err)
	}
	return pgx.CollectRows(rows, scanPromotion)
}

func (r *PromotionRepository) ListActive(ctx context.Context, now time.Time) ([]promotion.Promotion, error) {
	rows, err := r.pool.Query(ctx, listActivePromotionsSQL, now)
	if err != nil {
		return nil, fmt.Errorf("listing active promotions: %w", err)
	}
	return pgx.CollectRows(rows, scanPromotion)
}

func (r *PromotionRepository) GetByID(ctx context.Context, id string) (*promotion.Promotion, error) {
	return getPromotion(ctx, r.pool, getPromotionByIDSQL, id)
}

func (r *PromotionRepository) GetByCode(ctx context.Context, code string) (*promotion.Promotion, error) {
	return getPromotion(ctx, r.pool, getPromotionByCodeSQL, code)
}

func (r *PromotionRepository) Create(ctx context.Context, p *promotion.Promotion) error {
	_, err := r.pool.Exec(ctx, insertPromotionSQL,
		p.ID, p.Code, categoryStrings(p.EligibleCategories), p.DiscountType, p.DiscountValue,
		p.ExpirationDate, p.UsageLimit, p.CurrentUses, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return promotion.ErrCodeExists
		}
		return fmt.Errorf("inserting promotion %q: %w", p.Code, err)
	}
	return nil
}

func (r *PromotionRepository) Update(ctx context.Context, p *promotion.Promotion) error {
	tag, err := r.pool.Exec(ctx, updatePromotionSQL,
		p.ID, categoryStrings(p.EligibleCategories), p.DiscountType, p.DiscountValue,
		p.ExpirationDate, p.UsageLimit, p.UpdatedAt,
	)
	if err != nil {
		if pgCode(err) == codeCheckViolation {
			return &promotion.ValidationError{Field: "usageLimit", Reason: "below current usage"}
		}
		return fmt.Errorf("updating promotion %q: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return promotion.ErrNotFound
	}
	return nil
}

func (r *PromotionRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deletePromotionSQL, id)
	if err != nil {
		return fmt.Errorf("deleting promotion %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return promotion.ErrNotFound
	}
	return nil
}

func getPromotion(ctx context.Context, q querier, sql, arg string) (*promotion.Promotion, error) {
	rows, err := q.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("getting promotion %q: %w", arg, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanPromotion)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, promotion.ErrNotFound
		}
		return nil, fmt.Errorf("getting promotion %q: %w", arg, err)
	}
	return &p, nil
}

func scanPromotion(row pgx.CollectableRow) (promotion.Promotion, error) {
	var (
		p          promotion.Promotion
		categories []string
	)
	err := row.Scan(
		&p.ID, &p.Code, &categories, &p.DiscountType, &p.DiscountValue,
		&p.ExpirationDate, &p.UsageLimit, &p.CurrentUses, &p.CreatedAt, &p.UpdatedAt,
	)
	p.EligibleCategories = make([]product.Category, len(categories))
	for i, c := range categories {
		p.EligibleCategories[i] = product.Category(c)
	}
	return p, err
}

func categoryStrings(cs []product.Category) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = string(c)
	}
	return out
}
