// Package app contains application services and port definitions for the market context.
package app

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fd1az/lendscope/business/market/domain"
	"github.com/fd1az/lendscope/internal/asset"
	"github.com/fd1az/lendscope/internal/fixedpoint"
)

// vaultYearFactor is 100 * 3600 * 24 * 365: percent per year from a
// per-second rate.
var vaultYearFactor = decimal.NewFromInt(360000 * 24 * 365)

// Calculator derives pool metrics from raw extracted state. It holds no
// state between calls; identical inputs give identical pools.
type Calculator struct {
	vaultGuardPct decimal.Decimal
}

// NewCalculator creates a Calculator. vaultGuardPct is the largest vault
// balance change, in percent, for which a vault APR is still reported.
func NewCalculator(vaultGuardPct decimal.Decimal) *Calculator {
	return &Calculator{vaultGuardPct: vaultGuardPct}
}

// Calculate builds the pool metrics for raw, valued at price.
func (c *Calculator) Calculate(raw domain.RawPool, a *asset.Asset, price decimal.Decimal) domain.Pool {
	decimals := int32(a.Decimals())
	one := fixedpoint.One()

	newSupply := raw.New.Supply()

	oldAPR := DailyAPR(raw.Old, raw.ReserveFactor)
	newAPR := DailyAPR(raw.New, raw.ReserveFactor)

	shares := raw.TotalShares()
	oldSupplied := fixedpoint.MulDiv(shares, raw.Old.ExchangeRate, one)
	newSupplied := fixedpoint.MulDiv(shares, raw.New.ExchangeRate, one)
	oldEarnings := fixedpoint.MulOne(oldSupplied, oldAPR)
	newEarnings := fixedpoint.MulOne(newSupplied, newAPR)

	utilization := fixedpoint.Ratio(raw.New.TotalBorrows, newSupply)
	available := AvailableToDeposit(raw.New.TotalBorrows, newSupply, raw.Kink)

	amount := func(v *big.Int) decimal.Decimal {
		return fixedpoint.Amount(fixedpoint.Scale(v, decimals))
	}
	usd := func(v *big.Int) decimal.Decimal {
		return fixedpoint.Rate(fixedpoint.Scale(v, decimals).Mul(price))
	}

	pool := domain.Pool{
		Platform:       Platform(raw.Name),
		Chain:          raw.Chain,
		Asset:          a.Symbol(),
		Borrowable:     raw.Borrowable,
		Collateral:     raw.Collateral,
		Vault:          raw.Vault,
		Opposite:       raw.Opposite,
		OppositeSymbol: raw.OppositeSymbol,
		Stable:         raw.Stable,
		Staking:        raw.Staking,

		Supplied:              amount(newSupplied),
		SuppliedUSD:           usd(newSupplied),
		TVL:                   amount(newSupply),
		TVLUSD:                usd(newSupply),
		AvailableToDeposit:    amount(available),
		AvailableToDepositUSD: usd(available),
		EarningsOld:           amount(oldEarnings),
		EarningsNew:           amount(newEarnings),
		EarningsOldUSD:        usd(oldEarnings),
		EarningsNewUSD:        usd(newEarnings),
		APROld:                fixedpoint.AnnualPercent(oldAPR),
		APRNew:                fixedpoint.AnnualPercent(newAPR),
		Utilization:           fixedpoint.PercentOf(utilization),
		Kink:                  fixedpoint.PercentOf(raw.Kink),
		VaultAPR:              c.VaultAPR(raw.VaultBefore, raw.VaultAfter),

		Raw: domain.PoolRaw{
			OldSupplied:      oldSupplied,
			NewSupplied:      newSupplied,
			OldDailyEarnings: oldEarnings,
			NewDailyEarnings: newEarnings,
			OldDailyAPR:      oldAPR,
			NewDailyAPR:      newAPR,
			Supply:           newSupply,
			Available:        available,
			Utilization:      utilization,
		},
	}

	pool.Positions = make([]domain.Position, 0, len(raw.UserShares))
	for _, u := range raw.UserShares {
		userOld := fixedpoint.MulDiv(u.Shares, raw.Old.ExchangeRate, one)
		userNew := fixedpoint.MulDiv(u.Shares, raw.New.ExchangeRate, one)
		pool.Positions = append(pool.Positions, domain.Position{
			User:             u.User,
			OldSupplied:      userOld,
			NewSupplied:      userNew,
			OldDailyEarnings: fixedpoint.MulOne(userOld, oldAPR),
			NewDailyEarnings: fixedpoint.MulOne(userNew, newAPR),
		})
	}

	return pool
}

// DailyAPR returns the supplier's daily rate, ONE-scaled:
// (borrowRate*86400*totalBorrows / supply) * (ONE - reserveFactor) / ONE.
func DailyAPR(s domain.State, reserveFactor *big.Int) *big.Int {
	supply := s.Supply()
	if supply.Sign() == 0 {
		return new(big.Int)
	}

	yield := fixedpoint.DailyYield(s.BorrowRate, s.TotalBorrows)
	perUnit := yield.Quo(yield, supply)

	keep := new(big.Int).Sub(fixedpoint.One(), reserveFactor)
	return fixedpoint.MulOne(perUnit, keep)
}

// AvailableToDeposit is how much supply can be added before utilization
// falls to the kink: zero when already at or below it. The target supply is
// floored, so a tiny pool just above the kink can also round to zero.
func AvailableToDeposit(totalBorrows, supply, kink *big.Int) *big.Int {
	if kink == nil || kink.Sign() == 0 {
		return new(big.Int)
	}

	utilization := fixedpoint.Ratio(totalBorrows, supply)
	if kink.Cmp(utilization) >= 0 {
		return new(big.Int)
	}

	target := fixedpoint.Ratio(totalBorrows, kink)
	return target.Sub(target, supply)
}

// VaultAPR annualizes the vault exchange rate growth between two samples.
// It is unknown when either sample is missing, the elapsed time is not
// positive, or the vault balance moved by more than the guard.
func (c *Calculator) VaultAPR(before, after domain.VaultSample) domain.VaultAPR {
	if !before.Known || !after.Known {
		return domain.UnknownVaultAPR()
	}
	if before.ExchangeRate == nil || before.ExchangeRate.Sign() == 0 || after.ExchangeRate == nil {
		return domain.UnknownVaultAPR()
	}
	if after.Timestamp <= before.Timestamp {
		return domain.UnknownVaultAPR()
	}
	if before.TotalBalance == nil || before.TotalBalance.Sign() == 0 || after.TotalBalance == nil {
		return domain.UnknownVaultAPR()
	}

	if exceedsGuard(before.TotalBalance, after.TotalBalance, c.vaultGuardPct) {
		return domain.UnknownVaultAPR()
	}

	delta := new(big.Int).Sub(after.ExchangeRate, before.ExchangeRate)
	period := decimal.NewFromInt(int64(after.Timestamp - before.Timestamp))

	apr := decimal.NewFromBigInt(delta, 0).
		Mul(vaultYearFactor).
		Div(period).
		Div(decimal.NewFromBigInt(before.ExchangeRate, 0))
	return domain.KnownVaultAPR(fixedpoint.Rate(apr))
}

// exceedsGuard reports whether |after-before|*100/before > guardPct, exactly.
func exceedsGuard(before, after *big.Int, guardPct decimal.Decimal) bool {
	moved := new(big.Int).Sub(after, before)
	lhs := moved.Mul(moved.Abs(moved), big.NewInt(100))
	rhs := new(big.Int).Mul(guardPct.Coefficient(), before)

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(absInt32(guardPct.Exponent()))), nil)
	if guardPct.Exponent() < 0 {
		lhs.Mul(lhs, scale)
	} else {
		rhs.Mul(rhs, scale)
	}
	return lhs.Cmp(rhs) > 0
}

func absInt32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// Platform is the pool name up to its first space.
func Platform(name string) string {
	if i := strings.IndexByte(name, ' '); i >= 0 {
		return name[:i]
	}
	return name
}
