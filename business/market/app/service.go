package app

import (
	"context"
	"fmt"

	"github.com/fd1az/lendscope/business/market/domain"
	"github.com/fd1az/lendscope/internal/asset"
)

// MarketService extracts chains and turns their raw state into pools.
type MarketService struct {
	chains     []domain.ChainSpec
	extractor  Extractor
	calculator *Calculator
	assets     *asset.Registry
}

// NewMarketService creates a new MarketService.
func NewMarketService(chains []domain.ChainSpec, extractor Extractor, calculator *Calculator, assets *asset.Registry) *MarketService {
	return &MarketService{
		chains:     chains,
		extractor:  extractor,
		calculator: calculator,
		assets:     assets,
	}
}

// Chains returns the configured chains.
func (s *MarketService) Chains() []domain.ChainSpec {
	return s.chains
}

// Load extracts chain and computes every pool at the given prices.
func (s *MarketService) Load(ctx context.Context, chain domain.ChainSpec, prices PriceSource) (*domain.ChainMarket, error) {
	snap, err := s.extractor.Extract(ctx, chain)
	if err != nil {
		return nil, err
	}
	return s.Compute(snap, prices)
}

// Compute derives pools from a snapshot.
func (s *MarketService) Compute(snap *domain.Snapshot, prices PriceSource) (*domain.ChainMarket, error) {
	market := &domain.ChainMarket{
		Chain:     snap.Chain,
		Block:     snap.Block,
		Timestamp: snap.Timestamp,
		Pools:     make([]domain.Pool, 0, len(snap.Pools)),
		Idle:      snap.Idle,
	}

	for _, raw := range snap.Pools {
		a, err := s.assets.Lookup(raw.Asset)
		if err != nil {
			return nil, fmt.Errorf("chain %s pool %s: %w", snap.Chain, raw.Borrowable.Hex(), err)
		}
		price, err := prices.Price(a.Symbol())
		if err != nil {
			return nil, err
		}
		market.Pools = append(market.Pools, s.calculator.Calculate(raw, a, price))
	}

	return market, nil
}
