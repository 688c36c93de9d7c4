package app_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/lendscope/business/pricing/app"
	"github.com/fd1az/lendscope/business/pricing/domain"
	"github.com/fd1az/lendscope/internal/apperror"
	"github.com/fd1az/lendscope/internal/asset"
)

// mockLogger implements logger.LoggerInterface for testing.
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, args ...any)              {}
func (m *mockLogger) Info(ctx context.Context, msg string, args ...any)               {}
func (m *mockLogger) Warn(ctx context.Context, msg string, args ...any)               {}
func (m *mockLogger) Error(ctx context.Context, msg string, args ...any)              {}
func (m *mockLogger) Debugc(ctx context.Context, caller int, msg string, args ...any) {}
func (m *mockLogger) Infoc(ctx context.Context, caller int, msg string, args ...any)  {}
func (m *mockLogger) Warnc(ctx context.Context, caller int, msg string, args ...any)  {}
func (m *mockLogger) Errorc(ctx context.Context, caller int, msg string, args ...any) {}

type fakeFeed struct {
	mu     sync.Mutex
	prices map[string]decimal.Decimal
	err    error
	gate   chan struct{}
	calls  atomic.Int32
	ids    []string
}

func (f *fakeFeed) FetchUSD(ctx context.Context, ids []string) (map[string]decimal.Decimal, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = ids
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]decimal.Decimal, len(f.prices))
	for k, v := range f.prices {
		out[k] = v
	}
	return out, nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func registry() *asset.Registry {
	r := asset.NewRegistry()
	_ = r.Register(asset.NewAsset("USDC", 6, "usd-coin"))
	_ = r.Register(asset.NewAsset("ETH", 18, "weth"))
	_ = r.Register(asset.NewAsset("OP", 18, "optimism"))
	return r
}

func newCache(feed app.Feed, clk *clock) *app.PriceCache {
	return app.NewPriceCache(app.CacheConfig{
		StaleAfter: time.Minute,
		Static:     map[string]decimal.Decimal{"USDC": decimal.NewFromInt(1)},
	}, feed, registry(), &mockLogger{}, app.WithClock(clk.Now))
}

func TestPriceCache_StaticSeed(t *testing.T) {
	clk := &clock{now: time.Unix(1_700_000_000, 0)}
	c := newCache(&fakeFeed{}, clk)

	p, err := c.Price("USDC")
	if err != nil || !p.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("expected static USDC 1, got %s %v", p, err)
	}

	_, err = c.Price("ETH")
	if !apperror.HasCode(err, apperror.CodePriceUnavailable) {
		t.Fatalf("expected price unavailable before refresh, got %v", err)
	}
}

func TestPriceCache_RefreshSkipsStatic(t *testing.T) {
	clk := &clock{now: time.Unix(1_700_000_000, 0)}
	feed := &fakeFeed{prices: map[string]decimal.Decimal{
		"weth":     decimal.NewFromInt(3000),
		"optimism": decimal.RequireFromString("1.5"),
	}}
	c := newCache(feed, clk)

	if err := c.RefreshIfStale(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(feed.ids) != 2 || feed.ids[0] != "optimism" || feed.ids[1] != "weth" {
		t.Errorf("expected sorted non-static ids, got %v", feed.ids)
	}
	if p, _ := c.Price("ETH"); !p.Equal(decimal.NewFromInt(3000)) {
		t.Errorf("expected ETH 3000, got %s", p)
	}

	snap := c.Snapshot()
	if snap.Prices["OP"].Source != domain.SourceFeed || snap.Prices["USDC"].Source != domain.SourceStatic {
		t.Errorf("unexpected sources: %+v", snap.Prices)
	}
	if !snap.RefreshedAt.Equal(clk.Now()) {
		t.Errorf("expected refresh time %v, got %v", clk.Now(), snap.RefreshedAt)
	}
}

func TestPriceCache_RefreshIfStale(t *testing.T) {
	clk := &clock{now: time.Unix(1_700_000_000, 0)}
	feed := &fakeFeed{prices: map[string]decimal.Decimal{"weth": decimal.NewFromInt(3000)}}
	c := newCache(feed, clk)
	ctx := context.Background()

	_ = c.RefreshIfStale(ctx)
	clk.Advance(30 * time.Second)
	_ = c.RefreshIfStale(ctx)
	if got := feed.calls.Load(); got != 1 {
		t.Fatalf("expected fresh prices to skip the feed, got %d calls", got)
	}

	clk.Advance(31 * time.Second)
	_ = c.RefreshIfStale(ctx)
	if got := feed.calls.Load(); got != 2 {
		t.Fatalf("expected a refresh after 61s, got %d calls", got)
	}
}

func TestPriceCache_FailedRefreshKeepsPrices(t *testing.T) {
	clk := &clock{now: time.Unix(1_700_000_000, 0)}
	feed := &fakeFeed{prices: map[string]decimal.Decimal{"weth": decimal.NewFromInt(3000)}}
	c := newCache(feed, clk)
	ctx := context.Background()

	if err := c.Refresh(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	feed.err = errors.New("boom")
	clk.Advance(2 * time.Minute)
	err := c.RefreshIfStale(ctx)
	if !apperror.HasCode(err, apperror.CodePriceFetchFailed) {
		t.Fatalf("expected price fetch failed, got %v", err)
	}

	if p, _ := c.Price("ETH"); !p.Equal(decimal.NewFromInt(3000)) {
		t.Errorf("expected previous ETH price kept, got %s", p)
	}
	if !c.Stale() {
		t.Error("expected cache to stay stale after a failed refresh")
	}
}

func TestPriceCache_MissingQuoteKeepsPrevious(t *testing.T) {
	clk := &clock{now: time.Unix(1_700_000_000, 0)}
	feed := &fakeFeed{prices: map[string]decimal.Decimal{"weth": decimal.NewFromInt(3000), "optimism": decimal.NewFromInt(2)}}
	c := newCache(feed, clk)
	ctx := context.Background()
	_ = c.Refresh(ctx)

	feed.prices = map[string]decimal.Decimal{"weth": decimal.NewFromInt(3100)}
	_ = c.Refresh(ctx)

	if p, _ := c.Price("OP"); !p.Equal(decimal.NewFromInt(2)) {
		t.Errorf("expected OP kept at 2, got %s", p)
	}
	if p, _ := c.Price("ETH"); !p.Equal(decimal.NewFromInt(3100)) {
		t.Errorf("expected ETH updated to 3100, got %s", p)
	}
}

func TestPriceCache_ConcurrentRefreshIsShared(t *testing.T) {
	clk := &clock{now: time.Unix(1_700_000_000, 0)}
	feed := &fakeFeed{
		prices: map[string]decimal.Decimal{"weth": decimal.NewFromInt(3000)},
		gate:   make(chan struct{}),
	}
	c := newCache(feed, clk)

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- c.Refresh(context.Background())
		}()
	}

	// let the callers pile up on the in-flight request
	for feed.calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(feed.gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := feed.calls.Load(); got != 1 {
		t.Errorf("expected one shared feed request, got %d", got)
	}
}
