package app

import (
	"context"

	marketapp "github.com/fd1az/lendscope/business/market/app"
	marketdomain "github.com/fd1az/lendscope/business/market/domain"
	"github.com/fd1az/lendscope/business/portfolio/domain"
	pricingdomain "github.com/fd1az/lendscope/business/pricing/domain"
)

// PriceSource resolves an asset symbol to its USD price.
type PriceSource = marketapp.PriceSource

// PriceCache is the price source refreshed before each pass.
type PriceCache interface {
	PriceSource
	RefreshIfStale(ctx context.Context) error
	Snapshot() pricingdomain.Snapshot
}

// MarketLoader extracts and computes one chain.
type MarketLoader interface {
	Chains() []marketdomain.ChainSpec
	Load(ctx context.Context, chain marketdomain.ChainSpec, prices PriceSource) (*marketdomain.ChainMarket, error)
}

// Reporter delivers a finished report.
type Reporter interface {
	Report(ctx context.Context, report *domain.Report) error
}
