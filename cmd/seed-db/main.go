package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/db"
	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/discount"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/promotion"
	"github.com/xenking/storefront/internal/domain/voucher"
	"github.com/xenking/storefront/internal/storage/postgres"
)

type productJSON struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Stock       int             `json:"stock"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "", "path to products JSON file (defaults to the embedded demo catalog)")
	flag.StringVar(&apiKey, "api-key", "", "admin API key to seed (or SHOP_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or SHOP_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("SHOP_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or SHOP_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("SHOP_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	products, err := readProducts(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products")
	}
	if err := seedProducts(ctx, postgres.NewProductRepository(pool), products, time.Now()); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedDiscounts(ctx,
		voucher.NewService(postgres.NewVoucherRepository(pool)),
		promotion.NewService(postgres.NewPromotionRepository(pool)),
		time.Now(),
	); err != nil {
		return errors.Wrap(err, "seed discounts")
	}

	if err := seedAPIKey(ctx, postgres.NewAPIKeyRepository(pool), apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

func readProducts(path string) ([]product.Product, error) {
	if path == "" {
		slog.Info("using embedded demo catalog")
		return decodeProducts(db.SeedProducts)
	}

	slog.Info("reading products file", slog.String("path", path))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read products file")
	}
	return decodeProducts(data)
}

func decodeProducts(data []byte) ([]product.Product, error) {
	var raw []productJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "parse products JSON")
	}

	products := make([]product.Product, 0, len(raw))
	for _, p := range raw {
		if p.ID == "" {
			return nil, errors.Errorf("product %q has no id", p.Name)
		}
		products = append(products, product.Product{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price,
			Category:    product.Category(p.Category),
			Stock:       p.Stock,
		})
	}
	return products, nil
}

// seedProducts inserts new products and overwrites existing ones, keyed by id.
func seedProducts(ctx context.Context, repo product.Repository, products []product.Product, now time.Time) error {
	slog.Info("upserting products", slog.Int("count", len(products)))

	for i := range products {
		p := &products[i]
		if err := p.Validate(); err != nil {
			return errors.Wrapf(err, "product %s", p.ID)
		}
		p.UpdatedAt = now

		existing, err := repo.GetByID(ctx, p.ID)
		switch {
		case errors.Is(err, product.ErrNotFound):
			p.CreatedAt = now
			err = repo.Create(ctx, p)
		case err == nil:
			p.CreatedAt = existing.CreatedAt
			err = repo.Update(ctx, p, true)
		}
		if err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	return nil
}

type voucherCreator interface {
	Create(ctx context.Context, v *voucher.Voucher) error
}

type promotionCreator interface {
	Create(ctx context.Context, p *promotion.Promotion) error
}

// seedDiscounts creates the demo voucher and promotions. Codes that already
// exist are left untouched.
func seedDiscounts(ctx context.Context, vouchers voucherCreator, promotions promotionCreator, now time.Time) error {
	slog.Info("seeding demo vouchers and promotions")

	expires := now.AddDate(1, 0, 0)
	demoVouchers := []voucher.Voucher{
		{
			Code:              "WELCOME10",
			DiscountType:      discount.Percentage,
			DiscountValue:     decimal.NewFromInt(10),
			ExpirationDate:    expires,
			UsageLimit:        1000,
			MinimumOrderValue: decimal.NewFromInt(50),
		},
		{
			Code:           "FLAT20",
			DiscountType:   discount.Fixed,
			DiscountValue:  decimal.NewFromInt(20),
			ExpirationDate: expires,
			UsageLimit:     100,
		},
	}
	for i := range demoVouchers {
		v := &demoVouchers[i]
		err := vouchers.Create(ctx, v)
		if errors.Is(err, voucher.ErrCodeExists) {
			slog.Info("voucher exists, skipping", slog.String("code", v.Code))
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "create voucher %s", v.Code)
		}
		slog.Info("created voucher", slog.String("code", v.Code))
	}

	demoPromotions := []promotion.Promotion{
		{
			Code:               "SUMMERSPORT",
			EligibleCategories: []product.Category{product.CategorySports, product.CategoryFashion},
			DiscountType:       discount.Percentage,
			DiscountValue:      decimal.NewFromInt(15),
			ExpirationDate:     expires,
			UsageLimit:         500,
		},
		{
			Code:               "GADGET25",
			EligibleCategories: []product.Category{product.CategoryElectronics},
			DiscountType:       discount.Fixed,
			DiscountValue:      decimal.NewFromInt(25),
			ExpirationDate:     expires,
			UsageLimit:         200,
		},
	}
	for i := range demoPromotions {
		p := &demoPromotions[i]
		err := promotions.Create(ctx, p)
		if errors.Is(err, promotion.ErrCodeExists) {
			slog.Info("promotion exists, skipping", slog.String("code", p.Code))
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "create promotion %s", p.Code)
		}
		slog.Info("created promotion", slog.String("code", p.Code))
	}

	return nil
}

type apiKeyStore interface {
	Upsert(ctx context.Context, k *auth.APIKeyInfo) error
}

func seedAPIKey(ctx context.Context, store apiKeyStore, apiKey, pepper string) error {
	slog.Info("seeding admin API key")

	k := &auth.APIKeyInfo{
		ID:      "default",
		KeyHash: auth.HashKey([]byte(pepper), apiKey),
		Name:    "Default admin key",
		Scopes:  []string{auth.ScopeAdmin},
	}
	if err := store.Upsert(ctx, k); err != nil {
		return errors.Wrap(err, "upsert default API key")
	}

	slog.Info("upserted API key", slog.String("id", k.ID), slog.String("name", k.Name))

	return nil
}
