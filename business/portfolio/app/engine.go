// Package app contains the aggregation engine and port definitions for the
// portfolio context.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/fd1az/lendscope/business/portfolio/domain"
	"github.com/fd1az/lendscope/internal/apperror"
	"github.com/fd1az/lendscope/internal/asset"
	"github.com/fd1az/lendscope/internal/logger"
)

const (
	tracerName = "portfolio"
	meterName  = "portfolio"

	// DefaultInterval is the pause between passes in watch mode.
	DefaultInterval = 60 * time.Second
)

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithEngineClock overrides the time source.
func WithEngineClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// engineMetrics holds OTEL metric instruments.
type engineMetrics struct {
	passes  metric.Int64Counter
	errors  metric.Int64Counter
	latency metric.Float64Histogram
}

// Engine runs aggregation passes over every configured chain.
type Engine struct {
	market     MarketLoader
	prices     PriceCache
	assets     *asset.Registry
	thresholds domain.Thresholds
	logger     logger.LoggerInterface
	now        func() time.Time

	tracer  trace.Tracer
	metrics *engineMetrics

	mu     sync.RWMutex
	last   *domain.Report
	lastAt time.Time
}

// NewEngine creates a new Engine.
func NewEngine(
	market MarketLoader,
	prices PriceCache,
	assets *asset.Registry,
	thresholds domain.Thresholds,
	log logger.LoggerInterface,
	opts ...EngineOption,
) (*Engine, error) {
	e := &Engine{
		market:     market,
		prices:     prices,
		assets:     assets,
		thresholds: thresholds,
		logger:     log,
		now:        time.Now,
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := e.initMetrics(); err != nil {
		return nil, apperror.New(apperror.CodeInternalError,
			apperror.WithCause(err),
			apperror.WithContext("init engine metrics"))
	}
	return e, nil
}

// initMetrics initializes OTEL metric instruments.
func (e *Engine) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	e.metrics = &engineMetrics{}

	e.metrics.passes, err = meter.Int64Counter(
		"portfolio_passes_total",
		metric.WithDescription("Total aggregation passes"),
		metric.WithUnit("{pass}"),
	)
	if err != nil {
		return err
	}

	e.metrics.errors, err = meter.Int64Counter(
		"portfolio_pass_errors_total",
		metric.WithDescription("Total failed aggregation passes"),
		metric.WithUnit("{pass}"),
	)
	if err != nil {
		return err
	}

	e.metrics.latency, err = meter.Float64Histogram(
		"portfolio_pass_latency_ms",
		metric.WithDescription("Aggregation pass latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Run performs one pass: refresh prices, load every chain concurrently,
// then finalize. Any chain failure fails the whole pass.
func (e *Engine) Run(ctx context.Context) (*domain.Report, error) {
	chains := e.market.Chains()
	ctx, span := e.tracer.Start(ctx, "portfolio.run",
		trace.WithAttributes(attribute.Int("chains", len(chains))),
	)
	defer span.End()

	e.metrics.passes.Add(ctx, 1)
	start := time.Now()

	report, err := e.run(ctx)
	if err != nil {
		e.metrics.errors.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "pass failed")
		return nil, err
	}

	e.metrics.latency.Record(ctx, float64(time.Since(start).Milliseconds()))
	span.SetStatus(codes.Ok, "")

	e.mu.Lock()
	e.last = report
	e.lastAt = report.GeneratedAt
	e.mu.Unlock()

	e.logger.Info(ctx, "pass complete",
		"chains", len(report.Chains),
		"total_deposited", report.Totals.TotalDeposited.StringFixed(2),
		"current_apr", report.Totals.CurrentAPR.StringFixed(2),
		"good_pools", len(report.GoodPools),
		"duration", time.Since(start),
	)
	return report, nil
}

func (e *Engine) run(ctx context.Context) (*domain.Report, error) {
	if err := e.prices.RefreshIfStale(ctx); err != nil {
		e.logger.Warn(ctx, "price refresh failed, using cached prices", "error", err)
	}

	agg := NewAggregator(e.assets, e.thresholds)

	g, gctx := errgroup.WithContext(ctx)
	for _, chain := range e.market.Chains() {
		g.Go(func() error {
			m, err := e.market.Load(gctx, chain, e.prices)
			if err != nil {
				return fmt.Errorf("chain %s: %w", chain.Name, err)
			}
			return agg.AddChain(m)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report, err := agg.Finalize(e.prices)
	if err != nil {
		return nil, err
	}
	report.GeneratedAt = e.now()
	return report, nil
}

// Watch runs a pass immediately and then every interval until ctx is done.
// Failed passes are logged and the loop keeps going.
func (e *Engine) Watch(ctx context.Context, interval time.Duration, reporter Reporter) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	e.logger.Info(ctx, "starting watch", "interval", interval)

	e.pass(ctx, reporter)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info(ctx, "watch stopping", "reason", ctx.Err())
			return
		case <-ticker.C:
			e.pass(ctx, reporter)
		}
	}
}

func (e *Engine) pass(ctx context.Context, reporter Reporter) {
	report, err := e.Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		e.logger.Error(ctx, "pass failed", "error", err)
		return
	}
	if err := reporter.Report(ctx, report); err != nil {
		e.logger.Error(ctx, "report delivery failed", "error", err)
	}
}

// LastReport returns the most recent successful report, or nil.
func (e *Engine) LastReport() *domain.Report {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.last
}

// Fresh reports whether a successful pass finished within maxAge.
func (e *Engine) Fresh(maxAge time.Duration) (bool, string) {
	e.mu.RLock()
	lastAt := e.lastAt
	e.mu.RUnlock()

	if lastAt.IsZero() {
		return false, "no report yet"
	}
	age := e.now().Sub(lastAt)
	if age > maxAge {
		return false, fmt.Sprintf("last report is %s old", age.Truncate(time.Second))
	}
	return true, fmt.Sprintf("last report %s ago", age.Truncate(time.Second))
}
