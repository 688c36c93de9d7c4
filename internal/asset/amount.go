package asset

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/fd1az/lendscope/internal/apperror"
)

// Amount is an immutable quantity of an asset in its smallest unit.
type Amount struct {
	raw   *big.Int
	asset *Asset
}

// NewAmount creates an Amount from raw units. A nil raw is zero; a negative
// raw panics since balances and supplies are never negative.
func NewAmount(asset *Asset, raw *big.Int) Amount {
	if asset == nil {
		panic("asset: nil asset")
	}
	if raw == nil {
		raw = new(big.Int)
	}
	if raw.Sign() < 0 {
		panic(fmt.Sprintf("asset: negative %s amount %s", asset.Symbol(), raw))
	}

	return Amount{
		raw:   new(big.Int).Set(raw),
		asset: asset,
	}
}

// Raw returns a copy of the raw value.
func (a Amount) Raw() *big.Int {
	if a.raw == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(a.raw)
}

// Asset returns the asset this amount is denominated in.
func (a Amount) Asset() *Asset {
	return a.asset
}

// IsZero returns true if the amount is zero.
func (a Amount) IsZero() bool {
	return a.raw == nil || a.raw.Sign() == 0
}

// Add adds two amounts of the same asset.
func (a Amount) Add(b Amount) (Amount, error) {
	if a.asset == nil || b.asset == nil || !a.asset.Equals(b.asset) {
		return Amount{}, apperror.New(apperror.CodeInvalidInput,
			apperror.WithContextf("cannot add %s to %s", symbolOf(b.asset), symbolOf(a.asset)))
	}
	return NewAmount(a.asset, new(big.Int).Add(a.raw, b.raw)), nil
}

func symbolOf(a *Asset) string {
	if a == nil {
		return "???"
	}
	return a.Symbol()
}

// ToDecimal scales the raw value by the asset decimals.
func (a Amount) ToDecimal() decimal.Decimal {
	if a.raw == nil || a.asset == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(a.raw, -int32(a.asset.Decimals()))
}

// Value prices the amount at rate per whole unit.
func (a Amount) Value(rate decimal.Decimal) decimal.Decimal {
	return a.ToDecimal().Mul(rate)
}

// String returns a human-readable representation, e.g. "1.5 ETH".
func (a Amount) String() string {
	if a.asset == nil {
		return "0 ???"
	}
	return fmt.Sprintf("%s %s", a.ToDecimal().String(), a.asset.Symbol())
}
