// Package pricing implements the pricing bounded context: a USD price cache
// fed by CoinGecko.
package pricing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/lendscope/business/pricing/app"
	pricingDI "github.com/fd1az/lendscope/business/pricing/di"
	"github.com/fd1az/lendscope/business/pricing/infra/coingecko"
	"github.com/fd1az/lendscope/internal/asset"
	"github.com/fd1az/lendscope/internal/circuitbreaker"
	"github.com/fd1az/lendscope/internal/config"
	"github.com/fd1az/lendscope/internal/di"
	"github.com/fd1az/lendscope/internal/logger"
	"github.com/fd1az/lendscope/internal/monolith"
)

// Module implements the pricing bounded context.
type Module struct{}

// RegisterServices registers all pricing services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register Feed (CoinGecko) - private dependency
	di.RegisterToken(c, pricingDI.Feed, func(sr di.ServiceRegistry) app.Feed {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		client, err := coingecko.NewClient(coingecko.Config{
			BaseURL:           cfg.Pricing.BaseURL,
			APIKey:            cfg.Pricing.APIKey,
			Timeout:           cfg.Pricing.Timeout,
			RequestsPerMinute: cfg.Pricing.RequestsPerMinute,
			Breaker:           circuitbreaker.DefaultConfig("coingecko"),
		}, log)
		if err != nil {
			panic("failed to create coingecko client: " + err.Error())
		}
		return client
	})

	// Register PriceCache (public - exposed to other modules)
	di.RegisterToken(c, pricingDI.PriceCache, func(sr di.ServiceRegistry) *app.PriceCache {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		assets := sr.Get("assetRegistry").(*asset.Registry)

		return app.NewPriceCache(app.CacheConfig{
			StaleAfter: cfg.Pricing.StaleAfter,
			Static:     StaticPrices(cfg.Pricing.Static),
		}, pricingDI.GetFeed(sr), assets, log)
	})

	return nil
}

// StaticPrices converts configured static prices, pinning USDC to 1 when
// nothing is configured.
func StaticPrices(static []config.StaticPrice) map[string]decimal.Decimal {
	if len(static) == 0 {
		return map[string]decimal.Decimal{"USDC": decimal.NewFromInt(1)}
	}

	out := make(map[string]decimal.Decimal, len(static))
	for _, p := range static {
		out[p.Symbol] = p.USDDecimal()
	}
	return out
}

// Startup initializes the pricing module. A failed warm-up is not fatal;
// the engine refreshes again before each pass.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	cache := pricingDI.GetPriceCache(mono.Services())

	warmCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := cache.RefreshIfStale(warmCtx); err != nil {
		log.Warn(ctx, "price warm-up failed, will retry before the first pass", "error", err)
	}

	log.Info(ctx, "pricing module started", "prices", len(cache.Snapshot().Prices))
	return nil
}
