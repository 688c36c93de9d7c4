// Package portfolio implements the portfolio bounded context: it folds every
// chain's market into one report and runs passes on a schedule.
package portfolio

import (
	"context"

	"github.com/shopspring/decimal"

	marketDI "github.com/fd1az/lendscope/business/market/di"
	"github.com/fd1az/lendscope/business/portfolio/app"
	portfolioDI "github.com/fd1az/lendscope/business/portfolio/di"
	"github.com/fd1az/lendscope/business/portfolio/domain"
	pricingDI "github.com/fd1az/lendscope/business/pricing/di"
	"github.com/fd1az/lendscope/internal/asset"
	"github.com/fd1az/lendscope/internal/config"
	"github.com/fd1az/lendscope/internal/di"
	"github.com/fd1az/lendscope/internal/logger"
	"github.com/fd1az/lendscope/internal/monolith"
)

// Module implements the portfolio bounded context.
type Module struct{}

// RegisterServices registers all portfolio services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register Thresholds - private dependency
	di.RegisterToken(c, portfolioDI.Thresholds, func(sr di.ServiceRegistry) domain.Thresholds {
		cfg := sr.Get("config").(*config.Config)
		return ThresholdsFromConfig(cfg.Engine)
	})

	// Register Engine (public - exposed to other modules)
	di.RegisterToken(c, portfolioDI.Engine, func(sr di.ServiceRegistry) *app.Engine {
		log := sr.Get("logger").(logger.LoggerInterface)
		assets := sr.Get("assetRegistry").(*asset.Registry)

		engine, err := app.NewEngine(
			marketDI.GetMarketService(sr),
			pricingDI.GetPriceCache(sr),
			assets,
			portfolioDI.GetThresholds(sr),
			log,
		)
		if err != nil {
			panic("failed to create portfolio engine: " + err.Error())
		}
		return engine
	})

	return nil
}

// ThresholdsFromConfig converts the engine settings.
func ThresholdsFromConfig(cfg config.EngineConfig) domain.Thresholds {
	gp := cfg.GoodPools
	return domain.Thresholds{
		MaterialityUSD: decimal.NewFromFloat(cfg.MaterialityUSD),
		GoodPools: domain.GoodPoolThresholds{
			MinSuppliedUSD:  decimal.NewFromFloat(gp.MinSuppliedUSD),
			MinAPR:          decimal.NewFromFloat(gp.MinAPR),
			MinAvailableUSD: decimal.NewFromFloat(gp.MinAvailableUSD),
			HighAPR:         decimal.NewFromFloat(gp.HighAPR),
			MinTVLUSD:       decimal.NewFromFloat(gp.MinTVLUSD),
		},
	}
}

// Startup initializes the portfolio module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	thresholds := portfolioDI.GetThresholds(mono.Services())
	_ = portfolioDI.GetEngine(mono.Services())

	log.Info(ctx, "portfolio module started",
		"materiality_usd", thresholds.MaterialityUSD.String(),
		"min_apr", thresholds.GoodPools.MinAPR.String(),
	)
	return nil
}
