// Package coingecko fetches USD prices from the CoinGecko simple price API.
package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/lendscope/business/pricing/app"
	"github.com/fd1az/lendscope/internal/apperror"
	"github.com/fd1az/lendscope/internal/circuitbreaker"
	"github.com/fd1az/lendscope/internal/httpclient"
	"github.com/fd1az/lendscope/internal/logger"
	"github.com/fd1az/lendscope/internal/ratelimit"
)

const (
	tracerName = "coingecko"
	meterName  = "coingecko"

	// BaseURL is the public API.
	BaseURL = "https://api.coingecko.com"

	simplePriceEndpoint = "/api/v3/simple/price"
	apiKeyHeader        = "x-cg-demo-api-key"

	httpTimeout = 10 * time.Second
)

// Ensure Client implements Feed.
var _ app.Feed = (*Client)(nil)

// Config holds configuration for the CoinGecko client.
type Config struct {
	BaseURL           string        // API base URL (empty = default)
	APIKey            string        // optional demo key
	Timeout           time.Duration // request timeout
	RequestsPerMinute int
	Breaker           circuitbreaker.Config
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:           BaseURL,
		Timeout:           httpTimeout,
		RequestsPerMinute: 30,
		Breaker:           circuitbreaker.DefaultConfig("coingecko"),
	}
}

// Client provides CoinGecko price access.
type Client struct {
	client  httpclient.Client
	limiter *ratelimit.Limiter
	breaker *circuitbreaker.CircuitBreaker[map[string]decimal.Decimal]
	logger  logger.LoggerInterface
	tracer  trace.Tracer
	fetches metric.Int64Counter
}

// NewClient creates a new CoinGecko client.
func NewClient(cfg Config, log logger.LoggerInterface) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = BaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = httpTimeout
	}

	breaker := cfg.Breaker
	if breaker.Name == "" {
		breaker = circuitbreaker.DefaultConfig("coingecko")
	}

	headers := map[string]string{"Accept": "application/json"}
	if cfg.APIKey != "" {
		headers[apiKeyHeader] = cfg.APIKey
	}

	tracer := otel.Tracer(tracerName)

	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("coingecko"),
		httpclient.WithBaseURL(baseURL),
		httpclient.WithRequestTimeout(timeout),
		httpclient.WithTracer(tracer, false),
		httpclient.WithHeaders(headers),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	fetches, err := otel.Meter(meterName).Int64Counter(
		"price_fetches_total",
		metric.WithDescription("Total price feed requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	return &Client{
		client:  client,
		limiter: ratelimit.New(cfg.RequestsPerMinute),
		breaker: circuitbreaker.New[map[string]decimal.Decimal](breaker),
		logger:  log,
		tracer:  tracer,
		fetches: fetches,
	}, nil
}

// usdQuote is one entry of the simple price response.
type usdQuote struct {
	USD *decimal.Decimal `json:"usd"`
}

// FetchUSD fetches the USD price of every id.
func (c *Client) FetchUSD(ctx context.Context, ids []string) (map[string]decimal.Decimal, error) {
	ctx, span := c.tracer.Start(ctx, "coingecko.fetch_usd",
		trace.WithAttributes(attribute.StringSlice("ids", ids)),
	)
	defer span.End()

	if err := c.limiter.Wait(ctx); err != nil {
		span.RecordError(err)
		return nil, err
	}

	prices, err := c.breaker.Execute(func() (map[string]decimal.Decimal, error) {
		return c.fetch(ctx, ids)
	})
	c.fetches.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", err == nil)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "price fetch failed")
		if apperror.HasCode(err, apperror.CodeCircuitOpen) {
			return nil, err
		}
		return nil, apperror.New(apperror.CodePriceFetchFailed,
			apperror.WithCause(err),
			apperror.WithContextf("ids %s", strings.Join(ids, ",")))
	}

	span.SetAttributes(attribute.Int("prices", len(prices)))
	c.logger.Debug(ctx, "fetched prices", "requested", len(ids), "received", len(prices))
	return prices, nil
}

func (c *Client) fetch(ctx context.Context, ids []string) (map[string]decimal.Decimal, error) {
	var result map[string]usdQuote
	resp, err := c.client.NewRequestWithOptions(
		httpclient.WithLabels(httpclient.NewLabel("endpoint", "simple_price")),
		httpclient.WithHeadersLogConfig(true, apiKeyHeader),
		httpclient.WithResponseErrorHandler(coingeckoErrorHandler),
	).
		SetQueryParam("ids", strings.Join(ids, ",")).
		SetQueryParam("vs_currencies", "usd").
		SetResult(&result).
		Get(ctx, simplePriceEndpoint)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	prices := make(map[string]decimal.Decimal, len(result))
	for id, q := range result {
		if q.USD == nil {
			continue
		}
		prices[id] = *q.USD
	}
	return prices, nil
}

// APIError is an error response from CoinGecko.
type APIError struct {
	StatusCode int
	Code       int    `json:"error_code"`
	Message    string `json:"error_message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("coingecko API error %d (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
}

// coingeckoErrorHandler parses CoinGecko error responses. The API answers
// either {"status":{...}} or {"error":"..."}.
func coingeckoErrorHandler(statusCode int, body []byte) error {
	if statusCode < 400 {
		return nil
	}

	var envelope struct {
		Status *APIError `json:"status"`
		Error  string    `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Status != nil && envelope.Status.Message != "" {
			envelope.Status.StatusCode = statusCode
			return envelope.Status
		}
		if envelope.Error != "" {
			return &APIError{StatusCode: statusCode, Message: envelope.Error}
		}
	}
	return fmt.Errorf("HTTP %d: %s", statusCode, string(body))
}
