package ethereum

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/lendscope/business/chain/app"
	"github.com/fd1az/lendscope/business/chain/domain"
	"github.com/fd1az/lendscope/internal/apperror"
	"github.com/fd1az/lendscope/internal/logger"
)

const (
	tracerName = "github.com/fd1az/lendscope/business/chain/infra/ethereum"
	meterName  = "github.com/fd1az/lendscope/business/chain/infra/ethereum"
)

// Ensure Executor implements BatchExecutor.
var _ app.BatchExecutor = (*Executor)(nil)

// ExecutorConfig holds configuration for a chain executor.
type ExecutorConfig struct {
	Chain       string
	Multicall   common.Address
	CallTimeout time.Duration // per attempt
	BackoffStep time.Duration // multiplied by the error count
}

// DefaultExecutorConfig returns sensible defaults.
func DefaultExecutorConfig(chain string, multicall common.Address) ExecutorConfig {
	return ExecutorConfig{
		Chain:       chain,
		Multicall:   multicall,
		CallTimeout: 15 * time.Second,
		BackoffStep: time.Second,
	}
}

// executorMetrics holds OTEL metric instruments.
type executorMetrics struct {
	batches   metric.Int64Counter
	errors    metric.Int64Counter
	failovers metric.Int64Counter
	latency   metric.Float64Histogram
}

// Executor runs batches through Multicall3 aggregate3 with endpoint failover.
type Executor struct {
	config ExecutorConfig
	pool   *ProviderPool
	logger logger.LoggerInterface

	tracer  trace.Tracer
	metrics *executorMetrics
}

// NewExecutor creates an executor over pool.
func NewExecutor(cfg ExecutorConfig, pool *ProviderPool, log logger.LoggerInterface) (*Executor, error) {
	e := &Executor{
		config: cfg,
		pool:   pool,
		logger: log,
		tracer: otel.Tracer(tracerName),
	}

	if err := e.initMetrics(); err != nil {
		return nil, apperror.New(apperror.CodeInternalError,
			apperror.WithCause(err),
			apperror.WithContext("init executor metrics"))
	}
	return e, nil
}

// initMetrics initializes OTEL metric instruments.
func (e *Executor) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	e.metrics = &executorMetrics{}

	e.metrics.batches, err = meter.Int64Counter(
		"rpc_batches_total",
		metric.WithDescription("Total multicall batches executed"),
		metric.WithUnit("{batch}"),
	)
	if err != nil {
		return err
	}

	e.metrics.errors, err = meter.Int64Counter(
		"rpc_batch_errors_total",
		metric.WithDescription("Total multicall batches that failed"),
		metric.WithUnit("{batch}"),
	)
	if err != nil {
		return err
	}

	e.metrics.failovers, err = meter.Int64Counter(
		"rpc_failovers_total",
		metric.WithDescription("Total provider switches"),
		metric.WithUnit("{switch}"),
	)
	if err != nil {
		return err
	}

	e.metrics.latency, err = meter.Float64Histogram(
		"rpc_batch_latency_ms",
		metric.WithDescription("Multicall batch latency including retries"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Chain returns the chain name.
func (e *Executor) Chain() string {
	return e.config.Chain
}

// Pool returns the provider pool.
func (e *Executor) Pool() *ProviderPool {
	return e.pool
}

// Close releases endpoint clients.
func (e *Executor) Close() error {
	return e.pool.Close()
}

// LatestBlock discovers the latest block number and timestamp.
func (e *Executor) LatestBlock(ctx context.Context) (domain.Block, error) {
	ctx, span := e.tracer.Start(ctx, "chain.latest_block",
		trace.WithAttributes(attribute.String("chain", e.config.Chain)),
	)
	defer span.End()

	header, err := withFailover(ctx, e, "latest_block", func(ctx context.Context, c Caller) (*types.Header, error) {
		h, err := c.HeaderByNumber(ctx, nil)
		if err != nil {
			return nil, err
		}
		if h == nil || h.Number == nil {
			return nil, apperror.New(apperror.CodeBlockNotFound, apperror.WithContext("latest"))
		}
		return h, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "latest block failed")
		return domain.Block{}, err
	}

	block := domain.Block{Number: header.Number.Uint64(), Timestamp: header.Time}
	span.SetAttributes(attribute.Int64("block", int64(block.Number)))
	return block, nil
}

// Execute runs the batch with allowFailure disabled for every call.
func (e *Executor) Execute(ctx context.Context, batch *domain.Batch, opts domain.CallOpts) (*domain.Results, error) {
	return e.execute(ctx, batch, opts, false)
}

// TryExecute runs the batch with allowFailure enabled for every call. If
// every endpoint is exhausted the batch degrades to all-failed results.
func (e *Executor) TryExecute(ctx context.Context, batch *domain.Batch, opts domain.CallOpts) (*domain.Results, error) {
	res, err := e.execute(ctx, batch, opts, true)
	if err != nil && apperror.HasCode(err, apperror.CodeRPCRetriesExhausted) {
		e.logger.Warn(ctx, "tolerant batch exhausted, continuing without results",
			"chain", e.config.Chain,
			"batch", batch.Name(),
			"error", err,
		)
		return domain.FailedResults(batch), nil
	}
	return res, err
}

func (e *Executor) execute(ctx context.Context, batch *domain.Batch, opts domain.CallOpts, allowFailure bool) (*domain.Results, error) {
	ctx, span := e.tracer.Start(ctx, "chain.execute_batch",
		trace.WithAttributes(
			attribute.String("chain", e.config.Chain),
			attribute.String("batch", batch.Name()),
			attribute.Int("calls", batch.Len()),
			attribute.Int64("block", int64(opts.Block)),
			attribute.Bool("allow_failure", allowFailure),
		),
	)
	defer span.End()

	attrs := metric.WithAttributes(
		attribute.String("chain", e.config.Chain),
		attribute.String("batch", batch.Name()),
	)
	e.metrics.batches.Add(ctx, 1, attrs)
	start := time.Now()

	data, err := domain.EncodeAggregate3(batch, allowFailure)
	if err != nil {
		e.metrics.errors.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, "encode failed")
		return nil, err
	}

	multicall := e.config.Multicall
	msg := ethereum.CallMsg{
		From: opts.From,
		To:   &multicall,
		Data: data,
	}

	raw, err := withFailover(ctx, e, batch.Name(), func(ctx context.Context, c Caller) ([]domain.Result, error) {
		out, err := c.CallContract(ctx, msg, opts.BlockNumber())
		if err != nil {
			return nil, err
		}
		return domain.DecodeAggregate3(out)
	})
	if err != nil {
		e.metrics.errors.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, "batch failed")
		return nil, err
	}

	results, err := domain.NewResults(batch, raw)
	if err != nil {
		e.metrics.errors.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, "result count mismatch")
		return nil, err
	}

	e.metrics.latency.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
	span.SetStatus(codes.Ok, "")
	return results, nil
}

// withFailover retries attempt on the pool's current endpoint, advancing the
// cursor after every failure. It gives up once the error count exceeds twice
// the endpoint count.
func withFailover[T any](ctx context.Context, e *Executor, op string, attempt func(context.Context, Caller) (T, error)) (T, error) {
	var zero T
	maxErrors := 2 * e.pool.Len()
	errCount := 0

	for {
		idx := e.pool.Current()
		out, err := try(ctx, e, idx, attempt)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		errCount++
		e.logger.Warn(ctx, "rpc attempt failed",
			"chain", e.config.Chain,
			"op", op,
			"endpoint", idx,
			"errors", errCount,
			"error", err,
		)

		if errCount > maxErrors {
			return zero, apperror.New(apperror.CodeRPCRetriesExhausted,
				apperror.WithCause(err),
				apperror.WithContextf("chain %s: %s failed %d times", e.config.Chain, op, errCount))
		}

		if e.pool.RecordFailureAndAdvance(ctx, idx) {
			e.metrics.failovers.Add(ctx, 1, metric.WithAttributes(attribute.String("chain", e.config.Chain)))
		}

		if err := sleep(ctx, time.Duration(errCount)*e.config.BackoffStep); err != nil {
			return zero, err
		}
	}
}

// try runs one attempt against endpoint idx behind its breaker.
func try[T any](ctx context.Context, e *Executor, idx int, attempt func(context.Context, Caller) (T, error)) (T, error) {
	var out T
	_, err := e.pool.breaker(idx).Execute(func() (struct{}, error) {
		client, err := e.pool.client(ctx, idx)
		if err != nil {
			return struct{}{}, err
		}
		out, err = race(ctx, e.config.CallTimeout, func(ctx context.Context) (T, error) {
			return attempt(ctx, client)
		})
		return struct{}{}, err
	})
	return out, err
}

type raceResult[T any] struct {
	val T
	err error
}

// race runs fn and abandons it once timeout elapses.
func race[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if timeout <= 0 {
		return fn(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan raceResult[T], 1)
	go func() {
		v, err := fn(ctx)
		done <- raceResult[T]{val: v, err: err}
	}()

	select {
	case r := <-done:
		return r.val, r.err
	case <-ctx.Done():
		return zero, apperror.New(apperror.CodeServiceTimeout,
			apperror.WithCause(ctx.Err()),
			apperror.WithContextf("rpc call exceeded %s", timeout))
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
