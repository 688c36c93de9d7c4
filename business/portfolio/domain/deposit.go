// Package domain contains the core domain types for the portfolio context.
package domain

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/fd1az/lendscope/internal/asset"
	"github.com/fd1az/lendscope/internal/fixedpoint"
)

// Deposit is an amount of one asset. Raw, Amount and USD always describe
// the same integer at the same price.
type Deposit struct {
	Raw    *big.Int        `json:"raw"`
	Amount decimal.Decimal `json:"amount"`
	USD    decimal.Decimal `json:"usd"`
}

// NewDeposit scales raw by the asset decimals and values it at price.
func NewDeposit(a *asset.Asset, raw *big.Int, price decimal.Decimal) Deposit {
	return DepositOf(asset.NewAmount(a, raw), price)
}

// DepositOf values amt at price.
func DepositOf(amt asset.Amount, price decimal.Decimal) Deposit {
	return Deposit{
		Raw:    amt.Raw(),
		Amount: fixedpoint.Amount(amt.ToDecimal()),
		USD:    fixedpoint.Rate(amt.Value(price)),
	}
}

// IsZero reports whether the raw amount is zero.
func (d Deposit) IsZero() bool {
	return d.Raw == nil || d.Raw.Sign() == 0
}

// Valuation is a USD total across assets. Raw amounts of different assets
// cannot be summed, so rollups that mix assets carry only this.
type Valuation struct {
	USD decimal.Decimal `json:"usd"`
}

// Add returns v plus usd.
func (v Valuation) Add(usd decimal.Decimal) Valuation {
	return Valuation{USD: v.USD.Add(usd)}
}
