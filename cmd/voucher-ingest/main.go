// Command voucher-ingest loads single-use voucher codes from gzip batch files.
//
// Every *.gz file in the data directory holds one code per line. A code that
// shows up in more than one batch is treated as a collision and rejected;
// every other code becomes a voucher with the terms given on the command line.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/discount"
	"github.com/xenking/storefront/internal/domain/voucher"
	"github.com/xenking/storefront/internal/storage/postgres"
)

func main() {
	var (
		dataDir      string
		databaseURL  string
		discountType string
		value        string
		minimum      string
		usageLimit   int
		validFor     time.Duration
		opts         ingestOptions
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing *.gz voucher batches")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&discountType, "type", string(discount.Percentage), "discount type: percentage or fixed")
	flag.StringVar(&value, "value", "10", "discount value")
	flag.StringVar(&minimum, "minimum-order", "0", "minimum order value")
	flag.IntVar(&usageLimit, "usage-limit", 1, "redemptions allowed per code")
	flag.DurationVar(&validFor, "valid-for", 30*24*time.Hour, "time until the codes expire")
	flag.UintVar(&opts.capacity, "bloom-capacity", 10_000_000, "expected codes per batch file")
	flag.IntVar(&opts.batchSize, "batch-size", 5000, "codes per INSERT statement")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	tmpl, err := newTemplate(discountType, value, minimum, usageLimit, time.Now(), validFor)
	if err != nil {
		slog.Error("invalid voucher terms", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL, tmpl, opts); err != nil {
		slog.Error("voucher ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("voucher ingest completed successfully")
}

// newTemplate builds the shared voucher terms and validates them with a
// placeholder code.
func newTemplate(kind, value, minimum string, usageLimit int, now time.Time, validFor time.Duration) (*voucher.Voucher, error) {
	t, err := discount.Parse(kind)
	if err != nil {
		return nil, err
	}
	v, err := decimal.NewFromString(value)
	if err != nil {
		return nil, errors.Wrap(err, "parse value")
	}
	m, err := decimal.NewFromString(minimum)
	if err != nil {
		return nil, errors.Wrap(err, "parse minimum order")
	}

	tmpl := &voucher.Voucher{
		Code:              "TEMPLATE",
		DiscountType:      t,
		DiscountValue:     v,
		ExpirationDate:    now.Add(validFor),
		UsageLimit:        usageLimit,
		MinimumOrderValue: m,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	return tmpl, nil
}

func run(ctx context.Context, dataDir, databaseURL string, tmpl *voucher.Voucher, opts ingestOptions) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.gz"))
	if err != nil {
		return errors.Wrap(err, "list batch files")
	}
	if len(files) == 0 {
		return errors.Errorf("no *.gz batch files in %s", dataDir)
	}

	slog.Info("connecting to database")
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	repo := postgres.NewVoucherRepository(pool)
	res, err := ingest(ctx, files, opts, func(ctx context.Context, codes []string) (int64, error) {
		return repo.InsertCodes(ctx, tmpl, codes)
	})
	if err != nil {
		return err
	}

	slog.Info("ingest summary",
		slog.Int("files", len(files)),
		slog.Int64("inserted", res.inserted),
		slog.Int("rejected", res.rejected),
		slog.Int("false_positives", res.falsePositives),
	)
	return nil
}
