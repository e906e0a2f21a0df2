package order

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/discount"
)

// State is a step of the placement state machine.
type State string

const (
	StateValidating        State = "validating"
	StateComputingDiscount State = "computing_discount"
	StateReserving         State = "reserving"
	StateCommitted         State = "committed"
	StateAborted           State = "aborted"
)

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	UserID      string
	ProductID   string
	Quantity    int
	VoucherID   string
	PromotionID string
}

func (r PlaceOrderRequest) check() error {
	if strings.TrimSpace(r.ProductID) == "" || r.Quantity == 0 {
		return ErrMissingField
	}
	if r.Quantity < 0 {
		return ErrInvalidQuantity
	}
	return nil
}

// Option configures a Service.
type Option func(*Service)

// WithTracerProvider sets the tracer provider used for placement spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracerProvider = tp }
}

// WithMeterProvider sets the meter provider used for placement metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) { s.meterProvider = mp }
}

// WithClock overrides the time source used for expiry checks and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithAfterCommit registers fn to run after every committed placement.
// Hooks run outside the transaction and cannot fail the placement.
func WithAfterCommit(fn func(ctx context.Context, o *Order)) Option {
	return func(s *Service) { s.afterCommit = append(s.afterCommit, fn) }
}

// Service coordinates order placement and serves order lookups.
type Service struct {
	store  Store
	orders Repository
	now    func() time.Time

	afterCommit []func(ctx context.Context, o *Order)

	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	tracer         trace.Tracer
	placements     metric.Int64Counter
	duration       metric.Float64Histogram
}

// NewService creates an order Service. Placement goes through store, lookups
// through orders.
func NewService(store Store, orders Repository, opts ...Option) (*Service, error) {
	s := &Service{
		store:          store,
		orders:         orders,
		now:            time.Now,
		tracerProvider: tracenoop.NewTracerProvider(),
		meterProvider:  metricnoop.NewMeterProvider(),
	}
	for _, o := range opts {
		o(s)
	}

	const name = "github.com/xenking/storefront/internal/domain/order"
	s.tracer = s.tracerProvider.Tracer(name)
	meter := s.meterProvider.Meter(name)

	var err error
	if s.placements, err = meter.Int64Counter("order.placements",
		metric.WithDescription("Order placements by outcome"),
	); err != nil {
		return nil, errors.Wrap(err, "placements counter")
	}
	if s.duration, err = meter.Float64Histogram("order.placement.duration",
		metric.WithDescription("Order placement duration"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, errors.Wrap(err, "duration histogram")
	}
	return s, nil
}

// PlaceOrder validates req against the store, applies voucher and promotion
// discounts, and commits the stock decrement, usage increments and order
// record as one unit. On failure nothing is written and the returned error
// is one of the kinds declared in this package.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	ctx, span := s.tracer.Start(ctx, "PlaceOrder", trace.WithAttributes(
		attribute.String("order.product_id", req.ProductID),
		attribute.Int("order.quantity", req.Quantity),
		attribute.Bool("order.voucher", req.VoucherID != ""),
		attribute.Bool("order.promotion", req.PromotionID != ""),
	))
	defer span.End()

	start := time.Now()
	o, state, err := s.place(ctx, req)

	outcome := StateCommitted
	if err != nil {
		outcome = StateAborted
	}
	attrs := metric.WithAttributes(
		attribute.String("outcome", string(outcome)),
		attribute.String("reason", Reason(err)),
	)
	s.placements.Add(ctx, 1, attrs)
	s.duration.Record(ctx, time.Since(start).Seconds(), attrs)

	lg := zctx.From(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, Reason(err))
		lg.Info("Order aborted",
			zap.String("state", string(state)),
			zap.String("product_id", req.ProductID),
			zap.Error(err),
		)
		return nil, err
	}

	lg.Info("Order committed",
		zap.String("order_id", o.ID),
		zap.String("product_id", o.ProductID),
		zap.Int("quantity", o.Quantity),
		zap.Stringer("total", o.TotalAmount),
	)
	for _, fn := range s.afterCommit {
		fn(ctx, o)
	}
	return o, nil
}

// place runs the state machine and reports the state the placement ended in.
func (s *Service) place(ctx context.Context, req PlaceOrderRequest) (*Order, State, error) {
	if err := req.check(); err != nil {
		return nil, StateValidating, err
	}

	var (
		placed *Order
		state  State
	)
	err := s.store.Execute(ctx, func(ctx context.Context, tx Tx) error {
		state = StateValidating
		now := s.now()
		v, err := validate(ctx, tx, req, now)
		if err != nil {
			return err
		}

		state = StateComputingDiscount
		total, err := applyDiscounts(v)
		if err != nil {
			return err
		}

		state = StateReserving
		o := &Order{
			ID:          uuid.New().String(),
			UserID:      req.UserID,
			ProductID:   v.product.ID,
			Quantity:    req.Quantity,
			UnitPrice:   v.unitPrice,
			Discount:    total,
			TotalAmount: v.base.Sub(total),
			CreatedAt:   now,
		}
		b := &Batch{
			ProductID: v.product.ID,
			Quantity:  req.Quantity,
			Order:     o,
		}
		if v.voucher != nil {
			o.VoucherID = v.voucher.ID
			b.VoucherID = v.voucher.ID
		}
		if v.promotion != nil {
			o.PromotionID = v.promotion.ID
			b.PromotionID = v.promotion.ID
		}
		if err := tx.Write(ctx, b); err != nil {
			return wrapStore("write batch", err)
		}
		placed = o
		return nil
	})
	if err != nil {
		return nil, state, err
	}
	return placed, StateCommitted, nil
}

// applyDiscounts computes the capped voucher and promotion discounts against
// the same base and checks their sum against the aggregate cap. The result is
// rounded down to cents.
func applyDiscounts(v *validated) (decimal.Decimal, error) {
	total := decimal.Zero
	if vc := v.voucher; vc != nil {
		total = total.Add(discount.Capped(vc.DiscountType, vc.DiscountValue, v.base))
	}
	if pr := v.promotion; pr != nil {
		total = total.Add(discount.Capped(pr.DiscountType, pr.DiscountValue, v.base))
	}

	if limit := discount.Limit(v.base); total.GreaterThan(limit) {
		return decimal.Zero, &DiscountCapExceededError{Discount: total, Limit: limit}
	}
	return total.RoundFloor(2), nil
}

// Get returns the order with the given id.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.orders.GetByID(ctx, id)
}

// List returns every order, newest first.
func (s *Service) List(ctx context.Context) ([]Order, error) {
	return s.orders.List(ctx)
}

// ListByUser returns the orders placed by userID, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	return s.orders.ListByUser(ctx, userID)
}
