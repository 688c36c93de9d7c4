package domain_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	marketdomain "github.com/fd1az/lendscope/business/market/domain"
	"github.com/fd1az/lendscope/business/portfolio/domain"
	"github.com/fd1az/lendscope/internal/asset"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestNewDeposit(t *testing.T) {
	tests := []struct {
		name   string
		asset  *asset.Asset
		raw    *big.Int
		price  string
		amount string
		usd    string
	}{
		{"usdc", asset.USDC, big.NewInt(1_234_567), "1", "1.2346", "1.23"},
		{"eth", asset.ETH, big.NewInt(5e17), "2000", "0.5", "1000"},
		{"nil raw", asset.ETH, nil, "2000", "0", "0"},
		{"usd rounds half away from zero", asset.USDC, big.NewInt(5_000), "1", "0.005", "0.01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := domain.NewDeposit(tt.asset, tt.raw, dec(tt.price))
			if !d.Amount.Equal(dec(tt.amount)) {
				t.Errorf("amount: expected %s, got %s", tt.amount, d.Amount)
			}
			if !d.USD.Equal(dec(tt.usd)) {
				t.Errorf("usd: expected %s, got %s", tt.usd, d.USD)
			}
		})
	}
}

func TestNewDeposit_CopiesRaw(t *testing.T) {
	raw := big.NewInt(100)
	d := domain.NewDeposit(asset.USDC, raw, decimal.NewFromInt(1))
	raw.SetInt64(7)

	if d.Raw.Int64() != 100 {
		t.Errorf("expected deposit to keep 100, got %s", d.Raw)
	}
}

func TestAssetStats_Add(t *testing.T) {
	s := domain.NewAssetStats()
	s.Add(big.NewInt(100), big.NewInt(110), big.NewInt(3), big.NewInt(5))
	s.Add(big.NewInt(50), big.NewInt(40), big.NewInt(4), big.NewInt(2))

	checks := []struct {
		name string
		got  *big.Int
		want int64
	}{
		{"old supplied", s.OldSupplied, 150},
		{"new supplied", s.NewSupplied, 150},
		{"old earnings", s.OldDailyEarnings, 7},
		{"new earnings", s.NewDailyEarnings, 7},
		{"max earnings", s.MaxDailyEarnings, 9},
	}
	for _, c := range checks {
		if c.got.Int64() != c.want {
			t.Errorf("%s: expected %d, got %s", c.name, c.want, c.got)
		}
	}
}

func TestSummarize(t *testing.T) {
	s := domain.NewAssetStats()
	s.Add(big.NewInt(1_000e6), big.NewInt(1_000e6), big.NewInt(200_000), big.NewInt(300_000))

	sum := domain.Summarize("BASE", asset.USDC, s, big.NewInt(2e6), decimal.NewFromInt(1))

	if !sum.CurrentAPR.Equal(dec("7.3")) {
		t.Errorf("expected current apr 7.3 from old earnings, got %s", sum.CurrentAPR)
	}
	if !sum.MaxAPR.Equal(dec("10.95")) {
		t.Errorf("expected max apr 10.95, got %s", sum.MaxAPR)
	}
	if !sum.TotalUSD().Equal(dec("1002")) {
		t.Errorf("expected total usd 1002, got %s", sum.TotalUSD())
	}
	if sum.TotalRaw().Int64() != 1_002e6 {
		t.Errorf("expected total raw 1002e6, got %s", sum.TotalRaw())
	}
}

func TestSummarize_IdleOnly(t *testing.T) {
	sum := domain.Summarize("", asset.ETH, nil, big.NewInt(1e18), decimal.NewFromInt(2000))

	if !sum.CurrentAPR.IsZero() || !sum.MaxAPR.IsZero() {
		t.Errorf("expected zero aprs without supply, got %s/%s", sum.CurrentAPR, sum.MaxAPR)
	}
	if !sum.Idle.USD.Equal(dec("2000")) || !sum.Supplied.IsZero() {
		t.Errorf("unexpected idle-only summary: %+v", sum)
	}
}

func TestGoodPoolThresholds_IsGood(t *testing.T) {
	g := domain.DefaultThresholds().GoodPools

	tests := []struct {
		name string
		pool marketdomain.Pool
		want bool
	}{
		{"already supplied", marketdomain.Pool{SuppliedUSD: dec("1.01")}, true},
		{"supplied at the threshold", marketdomain.Pool{SuppliedUSD: dec("1")}, false},
		{"good apr with room", marketdomain.Pool{APRNew: dec("8.01"), AvailableToDepositUSD: dec("1000.01")}, true},
		{"good apr without room", marketdomain.Pool{APRNew: dec("9"), AvailableToDepositUSD: dec("1000")}, false},
		{"high apr with depth", marketdomain.Pool{APRNew: dec("15.01"), TVLUSD: dec("100001")}, true},
		{"high apr shallow", marketdomain.Pool{APRNew: dec("20"), TVLUSD: dec("100000")}, false},
		{"nothing", marketdomain.Pool{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.IsGood(tt.pool); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestPositionKey_String(t *testing.T) {
	k := domain.PositionKey{
		Chain:      "BASE",
		Asset:      "USDC",
		Borrowable: common.HexToAddress("0x1"),
		User:       common.HexToAddress("0x2"),
	}
	want := "BASE/USDC/0x0000000000000000000000000000000000000001/0x0000000000000000000000000000000000000002"
	if k.String() != want {
		t.Errorf("expected %s, got %s", want, k.String())
	}
}
