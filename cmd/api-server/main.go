// Command api-server runs the storefront HTTP API.
package main

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	appkg "github.com/xenking/storefront/internal/app"
)

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, m *app.Telemetry) error {
		cfg, err := appkg.LoadConfig()
		if err != nil {
			return errors.Wrap(err, "load config")
		}
		lg.Info("Config loaded",
			zap.String("addr", cfg.Addr),
			zap.Bool("product_cache", cfg.Redis.URL != ""),
			zap.Int("rate_limit_max", cfg.RateLimit.Max),
			zap.Duration("rate_limit_window", cfg.RateLimit.Window),
		)
		return appkg.Run(ctx, lg, m, cfg)
	})
}
