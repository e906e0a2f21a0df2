// Package app wires the storefront API server.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/promotion"
	"github.com/xenking/storefront/internal/domain/user"
	"github.com/xenking/storefront/internal/domain/voucher"
	"github.com/xenking/storefront/internal/handler"
	"github.com/xenking/storefront/internal/storage/postgres"
	"github.com/xenking/storefront/internal/storage/rediscache"
	"github.com/xenking/storefront/pkg/health"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

const serviceName = "storefront-api"

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck("postgres", pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc_pause", time.Second, health.GCMaxPauseCheck(time.Second))

	// Repositories.
	var products product.Repository = postgres.NewProductRepository(pool)
	vouchers := postgres.NewVoucherRepository(pool)
	promotions := postgres.NewPromotionRepository(pool)
	users := postgres.NewUserRepository(pool)
	orders := postgres.NewOrderRepository(pool)
	apiKeys := postgres.NewAPIKeyRepository(pool)

	var orderOpts []order.Option
	if cfg.Redis.URL != "" {
		cache, closeCache, err := newProductCache(products, cfg.Redis)
		if err != nil {
			return errors.Wrap(err, "create product cache")
		}
		defer closeCache()

		products = cache
		healthSvc.AddReadinessCheck("redis", time.Second, health.PingCheck("redis", cache))
		// Committed placements change stock, so cached entries go stale.
		orderOpts = append(orderOpts, order.WithAfterCommit(func(ctx context.Context, o *order.Order) {
			cache.Invalidate(ctx, o.ProductID)
		}))
		lg.Info("Product cache enabled", zap.Duration("ttl", cfg.Redis.TTL))
	}

	// Domain services.
	orderOpts = append(orderOpts,
		order.WithTracerProvider(m.TracerProvider()),
		order.WithMeterProvider(m.MeterProvider()),
	)
	orderService, err := order.NewService(postgres.NewOrderStore(pool), orders, orderOpts...)
	if err != nil {
		return errors.Wrap(err, "create order service")
	}
	userService := user.NewService(users, user.NewTokens([]byte(cfg.JWTSecret), cfg.TokenTTL))

	h := handler.New(handler.Deps{
		Products:   product.NewService(products),
		Vouchers:   voucher.NewService(vouchers),
		Promotions: promotion.NewService(promotions),
		Users:      userService,
		Orders:     orderService,
		Keys:       auth.NewAuthorizer(apiKeys, []byte(cfg.APIKeyPepper)),
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	h.Register(mux)

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     httpmiddleware.DefaultAllowHeaders,
				ExposeHeaders:    []string{httpmiddleware.RequestIDHeader},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument(serviceName, m.TracerProvider(), m.MeterProvider()),
			httpmiddleware.LogRequests(),
			httpmiddleware.Labeler(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// pingableCache is a product cache whose backing client can be pinged.
type pingableCache struct {
	*rediscache.ProductCache
	client *redis.Client
}

func (c pingableCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func newProductCache(next product.Repository, cfg RedisConfig) (pingableCache, func(), error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return pingableCache{}, nil, errors.Wrap(err, "parse redis url")
	}
	client := redis.NewClient(opts)
	cache := pingableCache{
		ProductCache: rediscache.NewProductCache(next, client, cfg.TTL),
		client:       client,
	}
	return cache, func() { _ = client.Close() }, nil
}
