package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/promotion"
	"github.com/xenking/storefront/internal/domain/voucher"
)

const (
	orderColumns = `id, user_id, product_id, quantity, unit_price, discount, total_amount,
		voucher_id, promotion_id, created_at`

	listOrdersSQL       = `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC, id`
	listOrdersByUserSQL = `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id`
	getOrderByIDSQL     = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	insertOrderSQL = `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	decrementStockSQL = `UPDATE products SET stock = stock - $2, updated_at = $3
		WHERE id = $1 AND stock >= $2`
	incrementVoucherSQL = `UPDATE vouchers SET used_count = used_count + 1, updated_at = $2
		WHERE id = $1 AND used_count < usage_limit`
	incrementPromotionSQL = `UPDATE promotions SET current_uses = current_uses + 1, updated_at = $2
		WHERE id = $1 AND current_uses < usage_limit`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func (r *OrderRepository) List(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders of user %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o                      order.Order
		voucherID, promotionID *string
	)
	err := row.Scan(
		&o.ID, &o.UserID, &o.ProductID, &o.Quantity, &o.UnitPrice, &o.Discount, &o.TotalAmount,
		&voucherID, &promotionID, &o.CreatedAt,
	)
	if voucherID != nil {
		o.VoucherID = *voucherID
	}
	if promotionID != nil {
		o.PromotionID = *promotionID
	}
	return o, err
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ order.Store = (*OrderStore)(nil)

// OrderStore runs order placements in serializable transactions. Every row a
// placement reads is locked with FOR UPDATE and every counter update is
// guarded in SQL, so a concurrent placement either waits or fails with
// order.ErrConflict.
type OrderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore returns an OrderStore that uses the given pool.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// Execute runs fn in a transaction and commits when fn returns nil.
func (s *OrderStore) Execute(ctx context.Context, fn func(ctx context.Context, tx order.Tx) error) (rerr error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return &order.StoreError{Op: "begin", Err: err}
	}
	defer func() {
		if rerr == nil {
			return
		}
		if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			zctx.From(ctx).Warn("Rollback failed", zap.Error(err))
		}
	}()

	if err := fn(ctx, &orderTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return storeError("commit", err)
	}
	return nil
}

// storeError classifies err as a conflict or a store failure.
func storeError(op string, err error) error {
	if isConflict(err) {
		return errors.Wrap(order.ErrConflict, err.Error())
	}
	return &order.StoreError{Op: op, Err: err}
}

type orderTx struct {
	tx pgx.Tx
}

func (t *orderTx) GetProduct(ctx context.Context, id string) (*product.Product, error) {
	p, err := getProduct(ctx, t.tx, lockProductSQL, id)
	if err != nil && !errors.Is(err, product.ErrNotFound) {
		return nil, storeError("get product", err)
	}
	return p, err
}

func (t *orderTx) GetVoucher(ctx context.Context, id string) (*voucher.Voucher, error) {
	v, err := getVoucher(ctx, t.tx, lockVoucherSQL, id)
	if err != nil && !errors.Is(err, voucher.ErrNotFound) {
		return nil, storeError("get voucher", err)
	}
	return v, err
}

func (t *orderTx) GetPromotion(ctx context.Context, id string) (*promotion.Promotion, error) {
	p, err := getPromotion(ctx, t.tx, lockPromotionSQL, id)
	if err != nil && !errors.Is(err, promotion.ErrNotFound) {
		return nil, storeError("get promotion", err)
	}
	return p, err
}

// Write sends every mutation of b in one round trip. A guarded update that
// matches no row means another transaction consumed the stock or usage slot.
func (t *orderTx) Write(ctx context.Context, b *order.Batch) (rerr error) {
	o := b.Order
	now := o.CreatedAt

	type step struct {
		name    string
		guarded bool
	}
	var (
		batch pgx.Batch
		steps []step
	)
	batch.Queue(decrementStockSQL, b.ProductID, b.Quantity, now)
	steps = append(steps, step{name: "decrement stock", guarded: true})
	if b.VoucherID != "" {
		batch.Queue(incrementVoucherSQL, b.VoucherID, now)
		steps = append(steps, step{name: "increment voucher use", guarded: true})
	}
	if b.PromotionID != "" {
		batch.Queue(incrementPromotionSQL, b.PromotionID, now)
		steps = append(steps, step{name: "increment promotion use", guarded: true})
	}
	batch.Queue(insertOrderSQL,
		o.ID, o.UserID, o.ProductID, o.Quantity, o.UnitPrice, o.Discount, o.TotalAmount,
		nullable(o.VoucherID), nullable(o.PromotionID), o.CreatedAt,
	)
	steps = append(steps, step{name: "insert order"})

	br := t.tx.SendBatch(ctx, &batch)
	defer func() {
		if err := br.Close(); err != nil && rerr == nil {
			rerr = storeError("close batch", err)
		}
	}()

	for _, st := range steps {
		tag, err := br.Exec()
		if err != nil {
			return storeError(st.name, err)
		}
		if st.guarded && tag.RowsAffected() == 0 {
			return errors.Wrap(order.ErrConflict, st.name)
		}
	}
	return nil
}
