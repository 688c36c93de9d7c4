package app

import (
	"cmp"
	"fmt"
	"math/big"
	"slices"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	marketdomain "github.com/fd1az/lendscope/business/market/domain"
	"github.com/fd1az/lendscope/business/portfolio/domain"
	"github.com/fd1az/lendscope/internal/apperror"
	"github.com/fd1az/lendscope/internal/asset"
	"github.com/fd1az/lendscope/internal/fixedpoint"
)

var daysPerYearPercent = decimal.NewFromInt(36500)

type chainMeta struct {
	block     uint64
	timestamp uint64
	pools     int
}

type position struct {
	key    domain.PositionKey
	values marketdomain.Position
}

// Aggregator folds chain markets into portfolio totals. AddChain may be
// called concurrently; Finalize runs once every chain has been added.
type Aggregator struct {
	assets     *asset.Registry
	thresholds domain.Thresholds

	mu     sync.Mutex
	chains map[string]chainMeta
	seen   map[domain.PositionKey]struct{}

	byAsset      map[domain.AssetKey]*domain.AssetStats
	byChainAsset map[domain.ChainAssetKey]*domain.AssetStats

	idleByAsset          map[domain.AssetKey]*big.Int
	idleByChainAsset     map[domain.ChainAssetKey]*big.Int
	idleByAssetUser      map[domain.AssetUserKey]*big.Int
	idleByChainAssetUser map[domain.ChainAssetUserKey]*big.Int

	suppliedByAssetUser      map[domain.AssetUserKey]*big.Int
	suppliedByChainAssetUser map[domain.ChainAssetUserKey]*big.Int

	positions []position
	pools     []marketdomain.Pool
}

// NewAggregator creates an empty Aggregator.
func NewAggregator(assets *asset.Registry, thresholds domain.Thresholds) *Aggregator {
	return &Aggregator{
		assets:                   assets,
		thresholds:               thresholds,
		chains:                   make(map[string]chainMeta),
		seen:                     make(map[domain.PositionKey]struct{}),
		byAsset:                  make(map[domain.AssetKey]*domain.AssetStats),
		byChainAsset:             make(map[domain.ChainAssetKey]*domain.AssetStats),
		idleByAsset:              make(map[domain.AssetKey]*big.Int),
		idleByChainAsset:         make(map[domain.ChainAssetKey]*big.Int),
		idleByAssetUser:          make(map[domain.AssetUserKey]*big.Int),
		idleByChainAssetUser:     make(map[domain.ChainAssetUserKey]*big.Int),
		suppliedByAssetUser:      make(map[domain.AssetUserKey]*big.Int),
		suppliedByChainAssetUser: make(map[domain.ChainAssetUserKey]*big.Int),
	}
}

// AddChain folds one chain into the running totals. A chain is rejected
// whole when it repeats a chain or a position already added.
func (a *Aggregator) AddChain(m *marketdomain.ChainMarket) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.chains[m.Chain]; ok {
		return apperror.New(apperror.CodeDuplicateDeposit,
			apperror.WithContextf("chain %s already added", m.Chain))
	}

	batch := make(map[domain.PositionKey]struct{})
	for _, p := range m.Pools {
		for _, pos := range p.Positions {
			key := domain.PositionKey{Chain: m.Chain, Asset: p.Asset, Borrowable: p.Borrowable, User: pos.User}
			if _, dup := a.seen[key]; dup {
				return duplicate(key)
			}
			if _, dup := batch[key]; dup {
				return duplicate(key)
			}
			batch[key] = struct{}{}
		}
	}

	a.chains[m.Chain] = chainMeta{block: m.Block, timestamp: m.Timestamp, pools: len(m.Pools)}
	for key := range batch {
		a.seen[key] = struct{}{}
	}

	for _, p := range m.Pools {
		a.pools = append(a.pools, p)
		statsFor(a.byAsset, domain.AssetKey{Asset: p.Asset}).
			Add(p.Raw.OldSupplied, p.Raw.NewSupplied, p.Raw.OldDailyEarnings, p.Raw.NewDailyEarnings)
		statsFor(a.byChainAsset, domain.ChainAssetKey{Chain: m.Chain, Asset: p.Asset}).
			Add(p.Raw.OldSupplied, p.Raw.NewSupplied, p.Raw.OldDailyEarnings, p.Raw.NewDailyEarnings)

		for _, pos := range p.Positions {
			if pos.NewSupplied == nil || pos.NewSupplied.Sign() == 0 {
				continue
			}
			key := domain.PositionKey{Chain: m.Chain, Asset: p.Asset, Borrowable: p.Borrowable, User: pos.User}
			a.positions = append(a.positions, position{key: key, values: pos})
			addTo(a.suppliedByAssetUser, key.AssetUser(), pos.NewSupplied)
			addTo(a.suppliedByChainAssetUser, key.ChainAssetUser(), pos.NewSupplied)
		}
	}

	for _, idle := range m.Idle {
		if idle.Raw == nil || idle.Raw.Sign() == 0 {
			continue
		}
		addTo(a.idleByAsset, domain.AssetKey{Asset: idle.Asset}, idle.Raw)
		addTo(a.idleByChainAsset, domain.ChainAssetKey{Chain: m.Chain, Asset: idle.Asset}, idle.Raw)
		addTo(a.idleByAssetUser, domain.AssetUserKey{Asset: idle.Asset, User: idle.User}, idle.Raw)
		addTo(a.idleByChainAssetUser, domain.ChainAssetUserKey{Chain: m.Chain, Asset: idle.Asset, User: idle.User}, idle.Raw)
	}

	return nil
}

func duplicate(key domain.PositionKey) error {
	return apperror.New(apperror.CodeDuplicateDeposit, apperror.WithContext(key.String()))
}

func statsFor[K comparable](m map[K]*domain.AssetStats, k K) *domain.AssetStats {
	s, ok := m[k]
	if !ok {
		s = domain.NewAssetStats()
		m[k] = s
	}
	return s
}

func addTo[K comparable](m map[K]*big.Int, k K, v *big.Int) {
	cur, ok := m[k]
	if !ok {
		cur = new(big.Int)
		m[k] = cur
	}
	cur.Add(cur, v)
}

type priced struct {
	asset *asset.Asset
	price decimal.Decimal
}

// Finalize converts the raw totals to a report at the given prices. Grand
// totals include everything added; the per-chain, per-asset, per-user and
// per-position views drop entries below the materiality threshold.
func (a *Aggregator) Finalize(prices PriceSource) (*domain.Report, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	resolved, err := a.resolve(prices)
	if err != nil {
		return nil, err
	}

	report := &domain.Report{
		Prices: make(map[string]decimal.Decimal, len(resolved)),
	}
	for symbol, r := range resolved {
		report.Prices[symbol] = r.price
	}

	report.Assets, report.Totals = a.finalizeAssets(resolved)
	report.Chains = a.finalizeChains(resolved)
	report.Users = a.finalizeUsers(resolved)
	report.Positions = a.finalizePositions(resolved)
	report.GoodPools = a.goodPools()

	return report, nil
}

// resolve looks up every asset seen so far with its price.
func (a *Aggregator) resolve(prices PriceSource) (map[string]priced, error) {
	symbols := make(map[string]struct{})
	for k := range a.byAsset {
		symbols[k.Asset] = struct{}{}
	}
	for k := range a.idleByAsset {
		symbols[k.Asset] = struct{}{}
	}

	resolved := make(map[string]priced, len(symbols))
	for _, symbol := range sortedKeys(symbols) {
		as, err := a.assets.Lookup(symbol)
		if err != nil {
			return nil, err
		}
		price, err := prices.Price(symbol)
		if err != nil {
			return nil, fmt.Errorf("asset %s: %w", symbol, err)
		}
		resolved[symbol] = priced{asset: as, price: price}
	}
	return resolved, nil
}

func (a *Aggregator) finalizeAssets(resolved map[string]priced) ([]domain.AssetSummary, domain.Totals) {
	totals := domain.Totals{}
	var out []domain.AssetSummary

	for _, symbol := range sortedKeys(resolved) {
		r := resolved[symbol]
		key := domain.AssetKey{Asset: symbol}
		s := domain.Summarize("", r.asset, a.byAsset[key], a.idleByAsset[key], r.price)

		totals.TotalDeposited = totals.TotalDeposited.Add(s.Supplied.USD)
		totals.OldTotalEarnings = totals.OldTotalEarnings.Add(s.OldDailyEarnings.USD)
		totals.NewTotalEarnings = totals.NewTotalEarnings.Add(s.NewDailyEarnings.USD)
		totals.MaxTotalEarnings = totals.MaxTotalEarnings.Add(s.MaxDailyEarnings.USD)
		totals.IdleUSD = totals.IdleUSD.Add(s.Idle.USD)

		if a.thresholds.Material(s.TotalUSD()) {
			out = append(out, s)
		}
	}

	totals.CurrentAPR = blendedAPR(totals.OldTotalEarnings, totals.TotalDeposited)
	totals.MaxAPR = blendedAPR(totals.MaxTotalEarnings, totals.TotalDeposited)

	sortAssets(out)
	return out, totals
}

func blendedAPR(earnings, deposited decimal.Decimal) decimal.Decimal {
	if deposited.IsZero() {
		return decimal.Zero
	}
	return earnings.Mul(daysPerYearPercent).Div(deposited).Round(2)
}

func (a *Aggregator) finalizeChains(resolved map[string]priced) []domain.ChainSummary {
	keys := make(map[domain.ChainAssetKey]struct{})
	for k := range a.byChainAsset {
		keys[k] = struct{}{}
	}
	for k := range a.idleByChainAsset {
		keys[k] = struct{}{}
	}

	byChain := make(map[string]*domain.ChainSummary, len(a.chains))
	for name, meta := range a.chains {
		byChain[name] = &domain.ChainSummary{
			Chain:     name,
			Block:     meta.block,
			Timestamp: meta.timestamp,
			Pools:     meta.pools,
		}
	}

	for k := range keys {
		cs, ok := byChain[k.Chain]
		if !ok {
			continue
		}
		r := resolved[k.Asset]
		s := domain.Summarize(k.Chain, r.asset, a.byChainAsset[k], a.idleByChainAsset[k], r.price)
		cs.SuppliedUSD = cs.SuppliedUSD.Add(s.Supplied.USD)
		cs.IdleUSD = cs.IdleUSD.Add(s.Idle.USD)
		if a.thresholds.Material(s.TotalUSD()) {
			cs.Assets = append(cs.Assets, s)
		}
	}

	out := make([]domain.ChainSummary, 0, len(byChain))
	for _, cs := range byChain {
		sortAssets(cs.Assets)
		out = append(out, *cs)
	}
	slices.SortFunc(out, func(x, y domain.ChainSummary) int {
		if c := y.SuppliedUSD.Cmp(x.SuppliedUSD); c != 0 {
			return c
		}
		return cmp.Compare(x.Chain, y.Chain)
	})
	return out
}

func (a *Aggregator) finalizeUsers(resolved map[string]priced) []domain.UserSummary {
	users := make(map[common.Address]*domain.UserSummary)
	user := func(addr common.Address) *domain.UserSummary {
		u, ok := users[addr]
		if !ok {
			u = &domain.UserSummary{User: addr}
			users[addr] = u
		}
		return u
	}

	holdings := make(map[domain.AssetUserKey]struct{})
	for k := range a.suppliedByAssetUser {
		holdings[k] = struct{}{}
	}
	for k := range a.idleByAssetUser {
		holdings[k] = struct{}{}
	}
	for k := range holdings {
		r := resolved[k.Asset]
		h := domain.UserAssetSummary{
			Asset:    k.Asset,
			Supplied: domain.NewDeposit(r.asset, a.suppliedByAssetUser[k], r.price),
			Idle:     domain.NewDeposit(r.asset, a.idleByAssetUser[k], r.price),
		}
		u := user(k.User)
		u.Supplied = u.Supplied.Add(h.Supplied.USD)
		u.Idle = u.Idle.Add(h.Idle.USD)
		if a.thresholds.Material(h.Supplied.USD.Add(h.Idle.USD)) {
			u.Assets = append(u.Assets, h)
		}
	}

	perChain := make(map[domain.ChainUserKey]*domain.UserChainSummary)
	chainOf := func(k domain.ChainAssetUserKey) *domain.UserChainSummary {
		ck := domain.ChainUserKey{Chain: k.Chain, User: k.User}
		c, ok := perChain[ck]
		if !ok {
			c = &domain.UserChainSummary{Chain: k.Chain}
			perChain[ck] = c
		}
		return c
	}
	for k, raw := range a.suppliedByChainAssetUser {
		r := resolved[k.Asset]
		c := chainOf(k)
		c.Supplied = c.Supplied.Add(domain.NewDeposit(r.asset, raw, r.price).USD)
	}
	for k, raw := range a.idleByChainAssetUser {
		r := resolved[k.Asset]
		c := chainOf(k)
		c.Idle = c.Idle.Add(domain.NewDeposit(r.asset, raw, r.price).USD)
	}
	for k, c := range perChain {
		if a.thresholds.Material(c.Supplied.USD.Add(c.Idle.USD)) {
			u := user(k.User)
			u.Chains = append(u.Chains, *c)
		}
	}

	out := make([]domain.UserSummary, 0, len(users))
	for _, u := range users {
		if !a.thresholds.Material(u.TotalUSD()) {
			continue
		}
		slices.SortFunc(u.Assets, func(x, y domain.UserAssetSummary) int {
			if c := y.Supplied.USD.Add(y.Idle.USD).Cmp(x.Supplied.USD.Add(x.Idle.USD)); c != 0 {
				return c
			}
			if c := fixedpoint.Sum(y.Supplied.Raw, y.Idle.Raw).Cmp(fixedpoint.Sum(x.Supplied.Raw, x.Idle.Raw)); c != 0 {
				return c
			}
			return cmp.Compare(x.Asset, y.Asset)
		})
		slices.SortFunc(u.Chains, func(x, y domain.UserChainSummary) int {
			if c := y.Supplied.USD.Add(y.Idle.USD).Cmp(x.Supplied.USD.Add(x.Idle.USD)); c != 0 {
				return c
			}
			return cmp.Compare(x.Chain, y.Chain)
		})
		out = append(out, *u)
	}
	slices.SortFunc(out, func(x, y domain.UserSummary) int {
		if c := y.TotalUSD().Cmp(x.TotalUSD()); c != 0 {
			return c
		}
		return cmp.Compare(x.User.Hex(), y.User.Hex())
	})
	return out
}

func (a *Aggregator) finalizePositions(resolved map[string]priced) []domain.PositionSummary {
	out := make([]domain.PositionSummary, 0, len(a.positions))
	for _, p := range a.positions {
		r := resolved[p.key.Asset]
		s := domain.PositionSummary{
			Chain:            p.key.Chain,
			Asset:            p.key.Asset,
			Borrowable:       p.key.Borrowable,
			User:             p.key.User,
			Supplied:         domain.NewDeposit(r.asset, p.values.NewSupplied, r.price),
			OldDailyEarnings: domain.NewDeposit(r.asset, p.values.OldDailyEarnings, r.price),
			NewDailyEarnings: domain.NewDeposit(r.asset, p.values.NewDailyEarnings, r.price),
		}
		if a.thresholds.Material(s.Supplied.USD) {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(x, y domain.PositionSummary) int {
		if c := y.Supplied.USD.Cmp(x.Supplied.USD); c != 0 {
			return c
		}
		if c := y.Supplied.Raw.Cmp(x.Supplied.Raw); c != 0 {
			return c
		}
		return cmp.Compare(positionKey(x).String(), positionKey(y).String())
	})
	return out
}

func positionKey(s domain.PositionSummary) domain.PositionKey {
	return domain.PositionKey{Chain: s.Chain, Asset: s.Asset, Borrowable: s.Borrowable, User: s.User}
}

// goodPools keeps pools passing the good pools filter, best new APR first.
func (a *Aggregator) goodPools() []marketdomain.Pool {
	var out []marketdomain.Pool
	for _, p := range a.pools {
		if a.thresholds.GoodPools.IsGood(p) {
			out = append(out, p)
		}
	}
	slices.SortStableFunc(out, func(x, y marketdomain.Pool) int {
		if c := y.APRNew.Cmp(x.APRNew); c != 0 {
			return c
		}
		if c := y.TVLUSD.Cmp(x.TVLUSD); c != 0 {
			return c
		}
		if c := cmp.Compare(x.Chain, y.Chain); c != 0 {
			return c
		}
		return cmp.Compare(x.Borrowable.Hex(), y.Borrowable.Hex())
	})
	return out
}

// sortAssets orders by supplied plus idle USD, then raw units, descending.
func sortAssets(s []domain.AssetSummary) {
	slices.SortFunc(s, func(x, y domain.AssetSummary) int {
		if c := y.TotalUSD().Cmp(x.TotalUSD()); c != 0 {
			return c
		}
		if c := y.TotalRaw().Cmp(x.TotalRaw()); c != 0 {
			return c
		}
		return cmp.Compare(x.Asset, y.Asset)
	})
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
