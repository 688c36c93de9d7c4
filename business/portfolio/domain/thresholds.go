package domain

import (
	"github.com/shopspring/decimal"

	marketdomain "github.com/fd1az/lendscope/business/market/domain"
)

// Thresholds drive pruning and the good pools view.
type Thresholds struct {
	// MaterialityUSD prunes summaries whose supplied plus idle USD is below it.
	MaterialityUSD decimal.Decimal
	GoodPools      GoodPoolThresholds
}

// GoodPoolThresholds select pools worth showing.
type GoodPoolThresholds struct {
	MinSuppliedUSD  decimal.Decimal
	MinAPR          decimal.Decimal
	MinAvailableUSD decimal.Decimal
	HighAPR         decimal.Decimal
	MinTVLUSD       decimal.Decimal
}

// DefaultThresholds returns $1 materiality and the standard good pools filter.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaterialityUSD: decimal.NewFromInt(1),
		GoodPools: GoodPoolThresholds{
			MinSuppliedUSD:  decimal.NewFromInt(1),
			MinAPR:          decimal.NewFromInt(8),
			MinAvailableUSD: decimal.NewFromInt(1000),
			HighAPR:         decimal.NewFromInt(15),
			MinTVLUSD:       decimal.NewFromInt(100_000),
		},
	}
}

// Material reports whether usd reaches the materiality threshold.
func (t Thresholds) Material(usd decimal.Decimal) bool {
	return !usd.LessThan(t.MaterialityUSD)
}

// IsGood reports whether p is already supplied to, or pays well with room
// to deposit, or pays very well with deep liquidity.
func (g GoodPoolThresholds) IsGood(p marketdomain.Pool) bool {
	if p.SuppliedUSD.GreaterThan(g.MinSuppliedUSD) {
		return true
	}
	if p.APRNew.GreaterThan(g.MinAPR) && p.AvailableToDepositUSD.GreaterThan(g.MinAvailableUSD) {
		return true
	}
	return p.APRNew.GreaterThan(g.HighAPR) && p.TVLUSD.GreaterThan(g.MinTVLUSD)
}
