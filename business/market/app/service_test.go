package app_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fd1az/lendscope/business/market/app"
	"github.com/fd1az/lendscope/business/market/domain"
	"github.com/fd1az/lendscope/internal/apperror"
	"github.com/fd1az/lendscope/internal/asset"
)

type fakeExtractor struct {
	snap *domain.Snapshot
	err  error
}

func (f *fakeExtractor) Extract(ctx context.Context, chain domain.ChainSpec) (*domain.Snapshot, error) {
	return f.snap, f.err
}

type fakePrices map[string]decimal.Decimal

func (f fakePrices) Price(symbol string) (decimal.Decimal, error) {
	p, ok := f[symbol]
	if !ok {
		return decimal.Zero, apperror.New(apperror.CodePriceUnavailable, apperror.WithContext(symbol))
	}
	return p, nil
}

func newService(x app.Extractor) *app.MarketService {
	return app.NewMarketService(
		[]domain.ChainSpec{{Name: "BASE"}},
		x,
		app.NewCalculator(decimal.NewFromInt(8)),
		asset.DefaultRegistry(),
	)
}

func TestMarketService_Load(t *testing.T) {
	snap := &domain.Snapshot{
		Chain:     "BASE",
		Block:     5000,
		Timestamp: 1_700_000_000,
		Pools:     []domain.RawPool{usdcRaw()},
		Idle:      []domain.IdleBalance{{Asset: "ETH", User: alice, Raw: e(1, 17)}},
	}
	svc := newService(&fakeExtractor{snap: snap})

	market, err := svc.Load(context.Background(), svc.Chains()[0], fakePrices{"USDC": decimal.NewFromInt(1)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if market.Chain != "BASE" || market.Block != 5000 {
		t.Errorf("unexpected market header: %s %d", market.Chain, market.Block)
	}
	if len(market.Pools) != 1 || !market.Pools[0].SuppliedUSD.Equal(dec("55")) {
		t.Errorf("unexpected pools: %+v", market.Pools)
	}
	if len(market.Idle) != 1 {
		t.Errorf("expected idle balances carried over, got %d", len(market.Idle))
	}
}

func TestMarketService_LoadPropagatesExtractError(t *testing.T) {
	boom := errors.New("boom")
	svc := newService(&fakeExtractor{err: boom})

	_, err := svc.Load(context.Background(), svc.Chains()[0], fakePrices{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected extract error, got %v", err)
	}
}

func TestMarketService_ComputeNeedsPrice(t *testing.T) {
	svc := newService(&fakeExtractor{})
	snap := &domain.Snapshot{Chain: "BASE", Pools: []domain.RawPool{usdcRaw()}}

	_, err := svc.Compute(snap, fakePrices{})
	if !apperror.HasCode(err, apperror.CodePriceUnavailable) {
		t.Fatalf("expected price unavailable, got %v", err)
	}
}

func TestMarketService_ComputeNeedsAsset(t *testing.T) {
	svc := newService(&fakeExtractor{})
	raw := usdcRaw()
	raw.Asset = "NOPE"
	snap := &domain.Snapshot{Chain: "BASE", Pools: []domain.RawPool{raw}}

	_, err := svc.Compute(snap, fakePrices{"USDC": decimal.NewFromInt(1)})
	if err == nil {
		t.Fatal("expected unknown asset error")
	}
}
