package app

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/fd1az/lendscope/business/market/domain"
)

// Extractor reads the raw state of every configured pool on a chain.
type Extractor interface {
	// Extract runs the staged batches for chain and returns its snapshot.
	Extract(ctx context.Context, chain domain.ChainSpec) (*domain.Snapshot, error)
}

// PriceSource resolves USD prices by asset symbol.
type PriceSource interface {
	Price(symbol string) (decimal.Decimal, error)
}
