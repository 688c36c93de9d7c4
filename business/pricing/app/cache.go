package app

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/fd1az/lendscope/business/pricing/domain"
	"github.com/fd1az/lendscope/internal/apperror"
	"github.com/fd1az/lendscope/internal/asset"
	"github.com/fd1az/lendscope/internal/logger"
)

const defaultStaleAfter = 60 * time.Second

// CacheConfig holds price cache settings.
type CacheConfig struct {
	StaleAfter time.Duration
	// Static prices never hit the feed.
	Static map[string]decimal.Decimal
}

// CacheOption configures a PriceCache.
type CacheOption func(*PriceCache)

// WithClock overrides the time source.
func WithClock(now func() time.Time) CacheOption {
	return func(c *PriceCache) {
		c.now = now
	}
}

// PriceCache holds the latest USD price of every registered asset. Reads are
// lock-light; refreshes are shared between concurrent callers.
type PriceCache struct {
	feed       Feed
	assets     *asset.Registry
	staleAfter time.Duration
	now        func() time.Time
	logger     logger.LoggerInterface

	group singleflight.Group

	mu          sync.RWMutex
	prices      map[string]domain.Price
	refreshedAt time.Time
}

// NewPriceCache creates a cache seeded with the static prices.
func NewPriceCache(cfg CacheConfig, feed Feed, assets *asset.Registry, log logger.LoggerInterface, opts ...CacheOption) *PriceCache {
	c := &PriceCache{
		feed:       feed,
		assets:     assets,
		staleAfter: cfg.StaleAfter,
		now:        time.Now,
		logger:     log,
		prices:     make(map[string]domain.Price, len(cfg.Static)),
	}
	if c.staleAfter <= 0 {
		c.staleAfter = defaultStaleAfter
	}
	for _, opt := range opts {
		opt(c)
	}

	seeded := c.now()
	for symbol, usd := range cfg.Static {
		c.prices[symbol] = domain.NewPrice(symbol, usd, domain.SourceStatic, seeded)
	}
	return c
}

// Price returns the cached USD price of symbol.
func (c *PriceCache) Price(symbol string) (decimal.Decimal, error) {
	c.mu.RLock()
	p, ok := c.prices[symbol]
	c.mu.RUnlock()

	if !ok {
		return decimal.Zero, apperror.New(apperror.CodePriceUnavailable,
			apperror.WithContextf("no price for %s", symbol))
	}
	return p.USD, nil
}

// Snapshot returns a copy of the cached prices.
func (c *PriceCache) Snapshot() domain.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	prices := make(map[string]domain.Price, len(c.prices))
	for k, v := range c.prices {
		prices[k] = v
	}
	return domain.Snapshot{Prices: prices, RefreshedAt: c.refreshedAt}
}

// Stale reports whether the feed prices need a refresh.
func (c *PriceCache) Stale() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refreshedAt.IsZero() || c.now().Sub(c.refreshedAt) > c.staleAfter
}

// RefreshIfStale refreshes when never refreshed or older than StaleAfter.
func (c *PriceCache) RefreshIfStale(ctx context.Context) error {
	if !c.Stale() {
		return nil
	}
	return c.Refresh(ctx)
}

// Refresh fetches every feed-priced asset. Concurrent callers share one
// request. On failure the previous prices are kept.
func (c *PriceCache) Refresh(ctx context.Context) error {
	_, err, shared := c.group.Do("refresh", func() (any, error) {
		return nil, c.refresh(ctx)
	})
	if shared {
		c.logger.Debug(ctx, "joined in-flight price refresh")
	}
	return err
}

func (c *PriceCache) refresh(ctx context.Context) error {
	ids := c.feedIDs()
	if len(ids) == 0 {
		c.mu.Lock()
		c.refreshedAt = c.now()
		c.mu.Unlock()
		return nil
	}

	quotes, err := c.feed.FetchUSD(ctx, ids)
	if err != nil {
		c.logger.Warn(ctx, "price refresh failed, keeping previous prices", "error", err)
		if apperror.IsAppError(err) {
			return err
		}
		return apperror.New(apperror.CodePriceFetchFailed, apperror.WithCause(err))
	}

	at := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, id := range ids {
		a, ok := c.assets.ByPriceID(id)
		if !ok {
			continue
		}
		usd, ok := quotes[id]
		if !ok {
			c.logger.Warn(ctx, "price missing from feed", "asset", a.Symbol(), "price_id", id)
			continue
		}
		c.prices[a.Symbol()] = domain.NewPrice(a.Symbol(), usd, domain.SourceFeed, at)
	}
	c.refreshedAt = at

	c.logger.Debug(ctx, "prices refreshed", "count", len(quotes))
	return nil
}

// feedIDs lists the price ids of registered assets that are not static.
func (c *PriceCache) feedIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var ids []string
	for _, id := range c.assets.PriceIDs() {
		a, ok := c.assets.ByPriceID(id)
		if !ok {
			continue
		}
		if p, ok := c.prices[a.Symbol()]; ok && p.Source == domain.SourceStatic {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
