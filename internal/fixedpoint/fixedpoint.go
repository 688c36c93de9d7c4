// Package fixedpoint holds the 1e18 fixed-point arithmetic shared by the
// market calculator and the aggregator. Big-integer math stays exact; the
// conversion to decimal happens once per value through Scale.
package fixedpoint

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Decimals of the ONE unit.
const Decimals = 18

// Display precisions.
const (
	AmountPlaces int32 = 4
	RatePlaces   int32 = 2
)

// SecondsPerDay is the borrow-rate accrual window used for daily yields.
const SecondsPerDay = 86400

var (
	one           = new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimals), nil)
	secondsPerDay = big.NewInt(SecondsPerDay)
	percentYear   = decimal.NewFromInt(36500)
)

// One returns a fresh copy of 10^18.
func One() *big.Int {
	return new(big.Int).Set(one)
}

// Zero returns a fresh zero.
func Zero() *big.Int {
	return new(big.Int)
}

// MulDiv returns floor(a*b/denom), or zero when denom is zero.
func MulDiv(a, b, denom *big.Int) *big.Int {
	if denom == nil || denom.Sign() == 0 {
		return new(big.Int)
	}
	n := new(big.Int).Mul(a, b)
	return n.Quo(n, denom)
}

// MulOne returns floor(a*b/ONE).
func MulOne(a, b *big.Int) *big.Int {
	return MulDiv(a, b, one)
}

// Ratio returns floor(a*ONE/b), or zero when b is zero.
func Ratio(a, b *big.Int) *big.Int {
	return MulDiv(a, one, b)
}

// DailyYield returns rate*86400*amount.
func DailyYield(ratePerSecond, amount *big.Int) *big.Int {
	y := new(big.Int).Mul(ratePerSecond, secondsPerDay)
	return y.Mul(y, amount)
}

// Sum adds values into a fresh integer; nils are skipped.
func Sum(values ...*big.Int) *big.Int {
	total := new(big.Int)
	for _, v := range values {
		if v != nil {
			total.Add(total, v)
		}
	}
	return total
}

// Max returns a copy of the larger value.
func Max(a, b *big.Int) *big.Int {
	if a.Cmp(b) >= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}

// Scale converts a raw integer with the given decimals to a decimal.
func Scale(raw *big.Int, decimals int32) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -decimals)
}

// ToDecimal converts a ONE-scaled integer to a decimal ratio.
func ToDecimal(raw *big.Int) decimal.Decimal {
	return Scale(raw, Decimals)
}

// Amount rounds to display precision for amounts.
func Amount(d decimal.Decimal) decimal.Decimal {
	return d.Round(AmountPlaces)
}

// Rate rounds to display precision for rates, APRs and USD values.
func Rate(d decimal.Decimal) decimal.Decimal {
	return d.Round(RatePlaces)
}

// AnnualPercent turns a daily ONE-scaled rate into an annual percentage.
func AnnualPercent(dailyRate *big.Int) decimal.Decimal {
	return Rate(ToDecimal(dailyRate).Mul(percentYear))
}

// AnnualPercentOf returns daily*36500/base, or zero when base is zero. Both
// values share the same unit so decimals cancel.
func AnnualPercentOf(daily, base *big.Int) decimal.Decimal {
	if base == nil || base.Sign() == 0 {
		return decimal.Zero
	}
	num := decimal.NewFromBigInt(daily, 0).Mul(percentYear)
	return Rate(num.Div(decimal.NewFromBigInt(base, 0)))
}

// PercentOf returns a ONE-scaled ratio as a percentage (ratio/1e16).
func PercentOf(ratio *big.Int) decimal.Decimal {
	return Rate(Scale(ratio, Decimals-2))
}
