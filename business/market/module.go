// Package market implements the lending market bounded context: staged pool
// extraction and metric derivation.
package market

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	chainDI "github.com/fd1az/lendscope/business/chain/di"
	"github.com/fd1az/lendscope/business/market/app"
	marketDI "github.com/fd1az/lendscope/business/market/di"
	"github.com/fd1az/lendscope/business/market/domain"
	"github.com/fd1az/lendscope/business/market/infra/impermax"
	"github.com/fd1az/lendscope/internal/asset"
	"github.com/fd1az/lendscope/internal/config"
	"github.com/fd1az/lendscope/internal/di"
	"github.com/fd1az/lendscope/internal/logger"
	"github.com/fd1az/lendscope/internal/monolith"
)

// Module implements the market bounded context.
type Module struct{}

// RegisterServices registers all market services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register Extractor (Impermax) - private dependency
	di.RegisterToken(c, marketDI.Extractor, func(sr di.ServiceRegistry) app.Extractor {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		extractor, err := impermax.NewExtractor(impermax.Config{
			Users:           cfg.Engine.UserAddresses(),
			Multicall:       cfg.RPC.MulticallAddressHex(),
			HistoricalDepth: cfg.Engine.HistoricalDepth,
		}, chainDI.GetChainService(sr), log)
		if err != nil {
			panic("failed to create impermax extractor: " + err.Error())
		}
		return extractor
	})

	// Register Calculator - private dependency
	di.RegisterToken(c, marketDI.Calculator, func(sr di.ServiceRegistry) *app.Calculator {
		cfg := sr.Get("config").(*config.Config)
		return app.NewCalculator(decimal.NewFromFloat(cfg.Engine.VaultBalanceGuardPct))
	})

	// Register MarketService (public - exposed to other modules)
	di.RegisterToken(c, marketDI.MarketService, func(sr di.ServiceRegistry) *app.MarketService {
		cfg := sr.Get("config").(*config.Config)
		assets := sr.Get("assetRegistry").(*asset.Registry)

		return app.NewMarketService(
			ChainSpecs(cfg.Chains),
			marketDI.GetExtractor(sr),
			marketDI.GetCalculator(sr),
			assets,
		)
	})

	return nil
}

// ChainSpecs converts the configured chains into extractor specs, keeping
// config order.
func ChainSpecs(chains []config.ChainConfig) []domain.ChainSpec {
	specs := make([]domain.ChainSpec, 0, len(chains))
	for i := range chains {
		ch := &chains[i]

		staking := make(map[common.Address]domain.Staking, len(ch.Staking))
		for _, s := range ch.Staking {
			staking[common.HexToAddress(s.Borrowable)] = domain.Staking{
				Pool:        common.HexToAddress(s.Pool),
				RewardToken: common.HexToAddress(s.RewardToken),
			}
		}

		specs = append(specs, domain.ChainSpec{
			Name:        ch.Name,
			NativeAsset: ch.NativeAsset,
			Borrowables: ch.BorrowableAddresses(),
			Tokens:      ch.TokenSymbols(),
			Staking:     staking,
		})
	}
	return specs
}

// Startup initializes the market module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	svc := marketDI.GetMarketService(mono.Services())
	pools := 0
	for _, ch := range svc.Chains() {
		pools += len(ch.Borrowables)
	}

	log.Info(ctx, "market module started", "chains", len(svc.Chains()), "borrowables", pools)
	return nil
}
