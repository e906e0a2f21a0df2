package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/voucher"
)

const (
	voucherColumns = `id, code, discount_type, discount_value, expiration_date,
		usage_limit, used_count, minimum_order_value, created_at, updated_at`

	listVouchersSQL       = `SELECT ` + voucherColumns + ` FROM vouchers ORDER BY created_at, id`
	listActiveVouchersSQL = `SELECT ` + voucherColumns + ` FROM vouchers
		WHERE expiration_date >= $1 AND used_count < usage_limit
		ORDER BY expiration_date, id`
	getVoucherByIDSQL   = `SELECT ` + voucherColumns + ` FROM vouchers WHERE id = $1`
	getVoucherByCodeSQL = `SELECT ` + voucherColumns + ` FROM vouchers WHERE code = $1`
	lockVoucherSQL      = getVoucherByIDSQL + ` FOR UPDATE`

	insertVoucherSQL = `INSERT INTO vouchers (` + voucherColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	// used_count is owned by order placement and never written here.
	updateVoucherSQL = `UPDATE vouchers
		SET discount_type = $2, discount_value = $3, expiration_date = $4,
			usage_limit = $5, minimum_order_value = $6, updated_at = $7
		WHERE id = $1`

	deleteVoucherSQL = `DELETE FROM vouchers WHERE id = $1`

	// Codes that already exist are skipped.
	insertVoucherCodesSQL = `INSERT INTO vouchers (` + voucherColumns + `)
		SELECT t.id, t.code, $3, $4, $5, $6, 0, $7, $8, $8
		FROM unnest($1::text[], $2::text[]) AS t(id, code)
		ON CONFLICT (code) DO NOTHING`
)

var _ voucher.Repository = (*VoucherRepository)(nil)

// VoucherRepository implements voucher.Repository backed by PostgreSQL.
type VoucherRepository struct {
	pool *pgxpool.Pool
}

// NewVoucherRepository returns a VoucherRepository that uses the given pool.
func NewVoucherRepository(pool *pgxpool.Pool) *VoucherRepository {
	return &VoucherRepository{pool: pool}
}

func (r *VoucherRepository) List(ctx context.Context) ([]voucher.Voucher, error) {
	rows, err := r.pool.Query(ctx, listVouchersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing vouchers: %w", err)
	}
	return pgx.CollectRows(rows, scanVoucher)
}

func (r *VoucherRepository) ListActive(ctx context.Context, now time.Time) ([]voucher.Voucher, error) {
	rows, err := r.pool.Query(ctx, listActiveVouchersSQL, now)
	if err != nil {
		return nil, fmt.Errorf("listing active vouchers: %w", err)
	}
	return pgx.CollectRows(rows, scanVoucher)
}

func (r *VoucherRepository) GetByID(ctx context.Context, id string) (*voucher.Voucher, error) {
	return getVoucher(ctx, r.pool, getVoucherByIDSQL, id)
}

func (r *VoucherRepository) GetByCode(ctx context.Context, code string) (*voucher.Voucher, error) {
	return getVoucher(ctx, r.pool, getVoucherByCodeSQL, code)
}

func (r *VoucherRepository) Create(ctx context.Context, v *voucher.Voucher) error {
	_, err := r.pool.Exec(ctx, insertVoucherSQL,
		v.ID, v.Code, v.DiscountType, v.DiscountValue, v.ExpirationDate,
		v.UsageLimit, v.UsedCount, v.MinimumOrderValue, v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return voucher.ErrCodeExists
		}
		return fmt.Errorf("inserting voucher %q: %w", v.Code, err)
	}
	return nil
}

func (r *VoucherRepository) Update(ctx context.Context, v *voucher.Voucher) error {
	tag, err := r.pool.Exec(ctx, updateVoucherSQL,
		v.ID, v.DiscountType, v.DiscountValue, v.ExpirationDate,
		v.UsageLimit, v.MinimumOrderValue, v.UpdatedAt,
	)
	if err != nil {
		if pgCode(err) == codeCheckViolation {
			return &voucher.ValidationError{Field: "usageLimit", Reason: "below current usage"}
		}
		return fmt.Errorf("updating voucher %q: %w", v.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return voucher.ErrNotFound
	}
	return nil
}

func (r *VoucherRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteVoucherSQL, id)
	if err != nil {
		return fmt.Errorf("deleting voucher %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return voucher.ErrNotFound
	}
	return nil
}

// InsertCodes stores one voucher per code, all sharing the terms of tmpl,
// and returns how many were new.
func (r *VoucherRepository) InsertCodes(ctx context.Context, tmpl *voucher.Voucher, codes []string) (int64, error) {
	if len(codes) == 0 {
		return 0, nil
	}
	ids := make([]string, len(codes))
	for i := range codes {
		ids[i] = uuid.NewString()
	}
	tag, err := r.pool.Exec(ctx, insertVoucherCodesSQL,
		ids, codes, tmpl.DiscountType, tmpl.DiscountValue, tmpl.ExpirationDate,
		tmpl.UsageLimit, tmpl.MinimumOrderValue, tmpl.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting %d voucher codes: %w", len(codes), err)
	}
	return tag.RowsAffected(), nil
}

func getVoucher(ctx context.Context, q querier, sql, arg string) (*voucher.Voucher, error) {
	rows, err := q.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("getting voucher %q: %w", arg, err)
	}

	v, err := pgx.CollectExactlyOneRow(rows, scanVoucher)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, voucher.ErrNotFound
		}
		return nil, fmt.Errorf("getting voucher %q: %w", arg, err)
	}
	return &v, nil
}

func scanVoucher(row pgx.CollectableRow) (voucher.Voucher, error) {
	var v voucher.Voucher
	err := row.Scan(
		&v.ID, &v.Code, &v.DiscountType, &v.DiscountValue, &v.ExpirationDate,
		&v.UsageLimit, &v.UsedCount, &v.MinimumOrderValue, &v.CreatedAt, &v.UpdatedAt,
	)
	return v, err
}
