package fixedpoint_test

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fd1az/lendscope/internal/fixedpoint"
)

func bi(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad int " + s)
	}
	return v
}

func TestMulDiv(t *testing.T) {
	tests := []struct {
		name        string
		a, b, denom string
		want        string
	}{
		{"exact", "10", "10", "4", "25"},
		{"floors", "10", "1", "3", "3"},
		{"zero denominator", "10", "10", "0", "0"},
		{"large", "1000000000000000000000000", "1020000000000000000", "1000000000000000000", "1020000000000000000000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fixedpoint.MulDiv(bi(tt.a), bi(tt.b), bi(tt.denom))
			if got.Cmp(bi(tt.want)) != 0 {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestOne_ReturnsCopy(t *testing.T) {
	a := fixedpoint.One()
	a.SetInt64(7)

	if fixedpoint.One().Cmp(bi("1000000000000000000")) != 0 {
		t.Error("mutating a returned One must not change the constant")
	}
}

func TestScale(t *testing.T) {
	usdc := fixedpoint.Scale(big.NewInt(1_234_567), 6)
	if !usdc.Equal(decimal.RequireFromString("1.234567")) {
		t.Errorf("expected 1.234567, got %s", usdc)
	}

	if !fixedpoint.Amount(usdc).Equal(decimal.RequireFromString("1.2346")) {
		t.Errorf("expected 1.2346, got %s", fixedpoint.Amount(usdc))
	}

	if !fixedpoint.Scale(nil, 18).IsZero() {
		t.Error("expected nil raw to scale to zero")
	}
}

func TestAnnualPercent(t *testing.T) {
	// 0.0001 per day -> 3.65% per year
	daily := bi("100000000000000")
	if got := fixedpoint.AnnualPercent(daily); !got.Equal(decimal.RequireFromString("3.65")) {
		t.Errorf("expected 3.65, got %s", got)
	}
}

func TestAnnualPercentOf(t *testing.T) {
	// earning 1 unit per day on 365 units -> 100%
	got := fixedpoint.AnnualPercentOf(big.NewInt(1), big.NewInt(365))
	if !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected 100, got %s", got)
	}

	if !fixedpoint.AnnualPercentOf(big.NewInt(5), big.NewInt(0)).IsZero() {
		t.Error("expected zero when base is zero")
	}
}

func TestPercentOf(t *testing.T) {
	// 0.8 as a ONE ratio -> 80%
	if got := fixedpoint.PercentOf(bi("800000000000000000")); !got.Equal(decimal.NewFromInt(80)) {
		t.Errorf("expected 80, got %s", got)
	}
}

func TestDailyYieldAndSum(t *testing.T) {
	y := fixedpoint.DailyYield(big.NewInt(2), big.NewInt(10))
	if y.Int64() != 2*86400*10 {
		t.Errorf("unexpected daily yield %s", y)
	}

	if got := fixedpoint.Sum(big.NewInt(1), nil, big.NewInt(2)); got.Int64() != 3 {
		t.Errorf("expected 3, got %s", got)
	}

	if got := fixedpoint.Max(big.NewInt(4), big.NewInt(9)); got.Int64() != 9 {
		t.Errorf("expected 9, got %s", got)
	}
}
