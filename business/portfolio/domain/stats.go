package domain

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/fd1az/lendscope/internal/asset"
	"github.com/fd1az/lendscope/internal/fixedpoint"
)

// AssetStats accumulates supplied principal and daily earnings in raw
// asset units.
type AssetStats struct {
	OldSupplied      *big.Int
	NewSupplied      *big.Int
	OldDailyEarnings *big.Int
	NewDailyEarnings *big.Int
	MaxDailyEarnings *big.Int
}

// NewAssetStats returns zeroed stats.
func NewAssetStats() *AssetStats {
	return &AssetStats{
		OldSupplied:      new(big.Int),
		NewSupplied:      new(big.Int),
		OldDailyEarnings: new(big.Int),
		NewDailyEarnings: new(big.Int),
		MaxDailyEarnings: new(big.Int),
	}
}

// Add folds one pool into the stats. The max earnings take the larger of
// the old and new daily earnings.
func (s *AssetStats) Add(oldSupplied, newSupplied, oldEarnings, newEarnings *big.Int) {
	s.OldSupplied.Add(s.OldSupplied, oldSupplied)
	s.NewSupplied.Add(s.NewSupplied, newSupplied)
	s.OldDailyEarnings.Add(s.OldDailyEarnings, oldEarnings)
	s.NewDailyEarnings.Add(s.NewDailyEarnings, newEarnings)
	s.MaxDailyEarnings.Add(s.MaxDailyEarnings, fixedpoint.Max(oldEarnings, newEarnings))
}

// AssetSummary is finalized AssetStats plus idle balances.
type AssetSummary struct {
	Chain            string          `json:"chain,omitempty"`
	Asset            string          `json:"asset"`
	Supplied         Deposit         `json:"supplied"`
	OldDailyEarnings Deposit         `json:"oldDailyEarnings"`
	NewDailyEarnings Deposit         `json:"newDailyEarnings"`
	MaxDailyEarnings Deposit         `json:"maxDailyEarnings"`
	Idle             Deposit         `json:"idle"`
	CurrentAPR       decimal.Decimal `json:"currentAPR"`
	MaxAPR           decimal.Decimal `json:"maxAPR"`
}

// Summarize finalizes stats at price. stats may be nil for idle-only assets.
// The current APR is based on the pre-sync earnings.
func Summarize(chain string, a *asset.Asset, stats *AssetStats, idle *big.Int, price decimal.Decimal) AssetSummary {
	if stats == nil {
		stats = NewAssetStats()
	}
	return AssetSummary{
		Chain:            chain,
		Asset:            a.Symbol(),
		Supplied:         NewDeposit(a, stats.NewSupplied, price),
		OldDailyEarnings: NewDeposit(a, stats.OldDailyEarnings, price),
		NewDailyEarnings: NewDeposit(a, stats.NewDailyEarnings, price),
		MaxDailyEarnings: NewDeposit(a, stats.MaxDailyEarnings, price),
		Idle:             NewDeposit(a, idle, price),
		CurrentAPR:       fixedpoint.AnnualPercentOf(stats.OldDailyEarnings, stats.NewSupplied),
		MaxAPR:           fixedpoint.AnnualPercentOf(stats.MaxDailyEarnings, stats.NewSupplied),
	}
}

// TotalUSD is supplied plus idle USD.
func (s AssetSummary) TotalUSD() decimal.Decimal {
	return s.Supplied.USD.Add(s.Idle.USD)
}

// TotalRaw is supplied plus idle raw units.
func (s AssetSummary) TotalRaw() *big.Int {
	return fixedpoint.Sum(s.Supplied.Raw, s.Idle.Raw)
}
