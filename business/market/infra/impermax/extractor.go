// Package impermax extracts Impermax-style lending pools through batched
// Multicall3 reads.
package impermax

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	chainapp "github.com/fd1az/lendscope/business/chain/app"
	chaindomain "github.com/fd1az/lendscope/business/chain/domain"
	"github.com/fd1az/lendscope/business/market/app"
	"github.com/fd1az/lendscope/business/market/domain"
	"github.com/fd1az/lendscope/internal/apperror"
	"github.com/fd1az/lendscope/internal/logger"
)

const (
	tracerName = "impermax"
	meterName  = "impermax"
)

// Ensure Extractor implements Extractor.
var _ app.Extractor = (*Extractor)(nil)

// Config holds extractor settings.
type Config struct {
	Users     []common.Address
	Multicall common.Address
	// HistoricalDepth is how many blocks back the vault history is sampled.
	HistoricalDepth uint64
}

// extractorMetrics holds OTEL metric instruments.
type extractorMetrics struct {
	extractions metric.Int64Counter
	errors      metric.Int64Counter
	pools       metric.Int64Counter
	latency     metric.Float64Histogram
}

// Extractor walks a chain's pools in four ordered batches.
type Extractor struct {
	config Config
	chains *chainapp.ChainService
	logger logger.LoggerInterface

	tracer  trace.Tracer
	metrics *extractorMetrics
}

// NewExtractor creates a new Extractor.
func NewExtractor(cfg Config, chains *chainapp.ChainService, log logger.LoggerInterface) (*Extractor, error) {
	x := &Extractor{
		config: cfg,
		chains: chains,
		logger: log,
		tracer: otel.Tracer(tracerName),
	}

	if err := x.initMetrics(); err != nil {
		return nil, apperror.New(apperror.CodeInternalError,
			apperror.WithCause(err),
			apperror.WithContext("init extractor metrics"))
	}
	return x, nil
}

// initMetrics initializes OTEL metric instruments.
func (x *Extractor) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	x.metrics = &extractorMetrics{}

	x.metrics.extractions, err = meter.Int64Counter(
		"market_extractions_total",
		metric.WithDescription("Total chain extractions"),
		metric.WithUnit("{extraction}"),
	)
	if err != nil {
		return err
	}

	x.metrics.errors, err = meter.Int64Counter(
		"market_extraction_errors_total",
		metric.WithDescription("Total failed chain extractions"),
		metric.WithUnit("{extraction}"),
	)
	if err != nil {
		return err
	}

	x.metrics.pools, err = meter.Int64Counter(
		"market_pools_extracted_total",
		metric.WithDescription("Total pools extracted"),
		metric.WithUnit("{pool}"),
	)
	if err != nil {
		return err
	}

	x.metrics.latency, err = meter.Float64Histogram(
		"market_extraction_latency_ms",
		metric.WithDescription("Chain extraction latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	return nil
}

// discoverSlots are the result indices of one borrowable in stage 1.
type discoverSlots struct {
	collateral    int
	underlying    int
	oldBalance    int
	oldBorrows    int
	oldRate       int
	oldBorrowRate int
	newBorrowRate int
	newBalance    int
	newBorrows    int
	newRate       int
	reserveFactor int
	name          int
	kink          int
	users         []int
}

// historySlots are the result indices of one pool in stage 3.
type historySlots struct {
	oppositeUnderlying int
	timestamp          int
	stable             int
	exchangeRate       int
	totalBalance       int
}

// currentSlots are the result indices of one pool in stage 4.
type currentSlots struct {
	symbol       int // -1 when the opposite underlying is unknown
	exchangeRate int
	totalBalance int
}

// Extract runs the four stages for chain.
func (x *Extractor) Extract(ctx context.Context, chain domain.ChainSpec) (*domain.Snapshot, error) {
	ctx, span := x.tracer.Start(ctx, "market.extract",
		trace.WithAttributes(
			attribute.String("chain", chain.Name),
			attribute.Int("borrowables", len(chain.Borrowables)),
		),
	)
	defer span.End()

	attrs := metric.WithAttributes(attribute.String("chain", chain.Name))
	x.metrics.extractions.Add(ctx, 1, attrs)
	start := time.Now()

	snap, err := x.extract(ctx, span, chain)
	if err != nil {
		x.metrics.errors.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, "extraction failed")
		return nil, err
	}

	x.metrics.pools.Add(ctx, int64(len(snap.Pools)), attrs)
	x.metrics.latency.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
	span.SetStatus(codes.Ok, "")

	x.logger.Debug(ctx, "chain extracted",
		"chain", chain.Name,
		"block", snap.Block,
		"pools", len(snap.Pools),
		"duration", time.Since(start),
	)
	return snap, nil
}

func (x *Extractor) extract(ctx context.Context, span trace.Span, chain domain.ChainSpec) (*domain.Snapshot, error) {
	exec, err := x.chains.Executor(chain.Name)
	if err != nil {
		return nil, err
	}

	block, err := exec.LatestBlock(ctx)
	if err != nil {
		return nil, err
	}

	snap := &domain.Snapshot{
		Chain:           chain.Name,
		Block:           block.Number,
		HistoricalBlock: block.Past(x.config.HistoricalDepth),
		Timestamp:       block.Timestamp,
		Pools:           make([]domain.RawPool, len(chain.Borrowables)),
	}
	span.SetAttributes(attribute.Int64("block", int64(snap.Block)))

	current := chaindomain.CallOpts{Block: snap.Block}
	fromMulticall := chaindomain.CallOpts{Block: snap.Block, From: x.config.Multicall}
	historical := chaindomain.CallOpts{Block: snap.HistoricalBlock, From: x.config.Multicall}

	span.AddEvent("discover")
	underlyings, err := x.discover(ctx, exec, chain, snap, current)
	if err != nil {
		return nil, err
	}

	span.AddEvent("resolve_collateral")
	if err := x.resolveCollateral(ctx, exec, chain, snap, current); err != nil {
		return nil, err
	}

	span.AddEvent("vault_history")
	opposites, err := x.vaultHistory(ctx, exec, chain, snap, historical)
	if err != nil {
		return nil, err
	}

	span.AddEvent("vault_current")
	if err := x.vaultCurrent(ctx, exec, chain, snap, fromMulticall, opposites, underlyings); err != nil {
		return nil, err
	}

	return snap, nil
}

// discover reads every borrowable before and after sync, plus the tracked
// users' balances. It returns the distinct underlyings in first-seen order.
func (x *Extractor) discover(ctx context.Context, exec chainapp.BatchExecutor, chain domain.ChainSpec, snap *domain.Snapshot, opts chaindomain.CallOpts) ([]common.Address, error) {
	batch := chaindomain.NewBatch(chain.Name + ":discover")
	slots := make([]discoverSlots, len(chain.Borrowables))

	for i, b := range chain.Borrowables {
		s := discoverSlots{
			collateral:    batch.Add(b, borrowableABI, "collateral"),
			underlying:    batch.Add(b, borrowableABI, "underlying"),
			oldBalance:    batch.Add(b, borrowableABI, "totalBalance"),
			oldBorrows:    batch.Add(b, borrowableABI, "totalBorrows"),
			oldRate:       batch.Add(b, borrowableABI, "exchangeRateLast"),
			oldBorrowRate: batch.Add(b, borrowableABI, "borrowRate"),
		}
		batch.Add(b, borrowableABI, "sync")
		s.newBorrowRate = batch.Add(b, borrowableABI, "borrowRate")
		s.newBalance = batch.Add(b, borrowableABI, "totalBalance")
		s.newBorrows = batch.Add(b, borrowableABI, "totalBorrows")
		s.newRate = batch.Add(b, borrowableABI, "exchangeRate")
		s.reserveFactor = batch.Add(b, borrowableABI, "reserveFactor")
		s.name = batch.Add(b, borrowableABI, "name")
		s.kink = batch.Add(b, borrowableABI, "kinkUtilizationRate")
		for _, u := range x.config.Users {
			s.users = append(s.users, batch.Add(b, borrowableABI, "balanceOf", u))
		}
		slots[i] = s
	}

	res, err := exec.Execute(ctx, batch, opts)
	if err != nil {
		return nil, err
	}

	rd := res.Reader()
	seen := make(map[common.Address]bool)
	var underlyings []common.Address

	for i, b := range chain.Borrowables {
		s := slots[i]
		p := domain.RawPool{
			Chain:      chain.Name,
			Borrowable: b,
			Collateral: rd.Address(s.collateral),
			Underlying: rd.Address(s.underlying),
			Old: domain.State{
				TotalBalance: rd.Big(s.oldBalance),
				TotalBorrows: rd.Big(s.oldBorrows),
				ExchangeRate: rd.Big(s.oldRate),
				BorrowRate:   rd.Big(s.oldBorrowRate),
			},
			New: domain.State{
				TotalBalance: rd.Big(s.newBalance),
				TotalBorrows: rd.Big(s.newBorrows),
				ExchangeRate: rd.Big(s.newRate),
				BorrowRate:   rd.Big(s.newBorrowRate),
			},
			ReserveFactor: rd.Big(s.reserveFactor),
			Name:          rd.String(s.name),
			Kink:          rd.Big(s.kink),
		}
		for j, u := range x.config.Users {
			p.UserShares = append(p.UserShares, domain.UserShares{User: u, Shares: rd.Big(s.users[j])})
		}
		if err := rd.Err(); err != nil {
			return nil, err
		}

		symbol, ok := chain.Tokens[p.Underlying]
		if !ok {
			return nil, apperror.New(apperror.CodeUnknownUnderlying,
				apperror.WithContextf("chain %s: underlying %s of pool %s", chain.Name, p.Underlying.Hex(), b.Hex()))
		}
		p.Asset = symbol

		if st, ok := chain.Staking[b]; ok {
			staking := st
			p.Staking = &staking
		}

		if !seen[p.Underlying] {
			seen[p.Underlying] = true
			underlyings = append(underlyings, p.Underlying)
		}
		snap.Pools[i] = p
	}

	return underlyings, nil
}

// resolveCollateral finds each pool's vault and opposite borrowable.
func (x *Extractor) resolveCollateral(ctx context.Context, exec chainapp.BatchExecutor, chain domain.ChainSpec, snap *domain.Snapshot, opts chaindomain.CallOpts) error {
	batch := chaindomain.NewBatch(chain.Name + ":collateral")
	type slots struct{ b0, b1, vault int }
	idx := make([]slots, len(snap.Pools))

	for i, p := range snap.Pools {
		idx[i] = slots{
			b0:    batch.Add(p.Collateral, collateralABI, "borrowable0"),
			b1:    batch.Add(p.Collateral, collateralABI, "borrowable1"),
			vault: batch.Add(p.Collateral, collateralABI, "underlying"),
		}
	}

	res, err := exec.Execute(ctx, batch, opts)
	if err != nil {
		return err
	}

	rd := res.Reader()
	for i := range snap.Pools {
		p := &snap.Pools[i]
		b0 := rd.Address(idx[i].b0)
		b1 := rd.Address(idx[i].b1)
		p.Vault = rd.Address(idx[i].vault)

		if b0 != p.Borrowable {
			p.Opposite = b0
		} else {
			p.Opposite = b1
		}
	}
	return rd.Err()
}

// vaultHistory samples each vault and opposite borrowable at the historical
// block. Failures leave the sample unknown. It returns each pool's opposite
// underlying, zero when it could not be read.
func (x *Extractor) vaultHistory(ctx context.Context, exec chainapp.BatchExecutor, chain domain.ChainSpec, snap *domain.Snapshot, opts chaindomain.CallOpts) ([]common.Address, error) {
	batch := chaindomain.NewBatch(chain.Name + ":vault_history")
	idx := make([]historySlots, len(snap.Pools))

	for i, p := range snap.Pools {
		idx[i].oppositeUnderlying = batch.Add(p.Opposite, borrowableABI, "underlying")
		idx[i].timestamp = batch.Add(p.Opposite, borrowableABI, "getBlockTimestamp")
		idx[i].stable = batch.Add(p.Vault, vaultABI, "stable")
		batch.Add(p.Vault, vaultABI, "reinvest")
		idx[i].exchangeRate = batch.Add(p.Vault, vaultABI, "exchangeRate")
		idx[i].totalBalance = batch.Add(p.Vault, vaultABI, "totalBalance")
	}

	res, err := exec.TryExecute(ctx, batch, opts)
	if err != nil {
		return nil, err
	}

	opposites := make([]common.Address, len(snap.Pools))
	for i := range snap.Pools {
		p := &snap.Pools[i]
		s := idx[i]

		if u, ok := res.TryAddress(s.oppositeUnderlying); ok {
			opposites[i] = u
		}
		if stable, ok := res.TryBool(s.stable); ok {
			p.Stable = stable
		}

		ts, tsOK := res.TryBig(s.timestamp)
		er, erOK := res.TryBig(s.exchangeRate)
		tb, tbOK := res.TryBig(s.totalBalance)
		if tsOK && erOK && tbOK && ts.IsUint64() {
			p.VaultBefore = domain.VaultSample{
				Known:        true,
				ExchangeRate: er,
				TotalBalance: tb,
				Timestamp:    ts.Uint64(),
			}
		} else {
			x.logger.Warn(ctx, "vault history unavailable",
				"chain", chain.Name,
				"pool", p.Borrowable.Hex(),
				"vault", p.Vault.Hex(),
				"block", opts.Block,
			)
		}
	}
	return opposites, nil
}

// vaultCurrent reads the opposite symbols, the vaults after reinvest and the
// idle balances of every tracked user.
func (x *Extractor) vaultCurrent(ctx context.Context, exec chainapp.BatchExecutor, chain domain.ChainSpec, snap *domain.Snapshot, opts chaindomain.CallOpts, opposites, underlyings []common.Address) error {
	batch := chaindomain.NewBatch(chain.Name + ":vault_current")
	idx := make([]currentSlots, len(snap.Pools))

	for i, p := range snap.Pools {
		idx[i].symbol = -1
		if opposites[i] != (common.Address{}) {
			idx[i].symbol = batch.Add(opposites[i], erc20ABI, "symbol")
		}
		batch.Add(p.Vault, vaultABI, "reinvest")
		idx[i].exchangeRate = batch.Add(p.Vault, vaultABI, "exchangeRate")
		idx[i].totalBalance = batch.Add(p.Vault, vaultABI, "totalBalance")
	}

	native := make([]int, len(x.config.Users))
	for j, u := range x.config.Users {
		native[j] = batch.Add(x.config.Multicall, chaindomain.Multicall3(), "getEthBalance", u)
	}

	tokens := make([][]int, len(underlyings))
	for k, token := range underlyings {
		tokens[k] = make([]int, len(x.config.Users))
		for j, u := range x.config.Users {
			tokens[k][j] = batch.Add(token, erc20ABI, "balanceOf", u)
		}
	}

	res, err := exec.Execute(ctx, batch, opts)
	if err != nil {
		return err
	}

	rd := res.Reader()
	for i := range snap.Pools {
		p := &snap.Pools[i]
		s := idx[i]
		if s.symbol >= 0 {
			p.OppositeSymbol = rd.String(s.symbol)
		}
		p.VaultAfter = domain.VaultSample{
			Known:        true,
			ExchangeRate: rd.Big(s.exchangeRate),
			TotalBalance: rd.Big(s.totalBalance),
			Timestamp:    snap.Timestamp,
		}
	}

	for j, u := range x.config.Users {
		snap.Idle = append(snap.Idle, domain.IdleBalance{
			Asset: chain.NativeAsset,
			User:  u,
			Raw:   rd.Big(native[j]),
		})
	}
	for k, token := range underlyings {
		for j, u := range x.config.Users {
			snap.Idle = append(snap.Idle, domain.IdleBalance{
				Asset: chain.Tokens[token],
				User:  u,
				Raw:   rd.Big(tokens[k][j]),
			})
		}
	}

	return rd.Err()
}
