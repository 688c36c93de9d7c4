// Package main is the entry point for lendscope.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/fd1az/lendscope/business/chain"
	"github.com/fd1az/lendscope/business/market"
	"github.com/fd1az/lendscope/business/portfolio"
	portfolioApp "github.com/fd1az/lendscope/business/portfolio/app"
	portfolioDI "github.com/fd1az/lendscope/business/portfolio/di"
	portfolioInfra "github.com/fd1az/lendscope/business/portfolio/infra"
	"github.com/fd1az/lendscope/business/pricing"
	"github.com/fd1az/lendscope/internal/apm"
	"github.com/fd1az/lendscope/internal/config"
	"github.com/fd1az/lendscope/internal/health"
	"github.com/fd1az/lendscope/internal/logger"
	"github.com/fd1az/lendscope/internal/metrics"
	"github.com/fd1az/lendscope/internal/monolith"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

type options struct {
	configPath string
	once       bool
	json       bool
	quiet      bool
}

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	// Report decimals as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	flag.BoolVar(&opts.once, "once", false, "Run a single pass, print the report and exit")
	flag.BoolVar(&opts.json, "json", false, "Print reports as JSON")
	flag.BoolVar(&opts.quiet, "quiet", false, "Discard logs")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("lendscope %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		if !opts.quiet {
			fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		}
		cancel()
	}()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	// Load configuration
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var logOut io.Writer = os.Stderr
	if opts.quiet {
		logOut = io.Discard
	}
	log := logger.New(logOut, logger.ParseLevel(cfg.App.LogLevel), cfg.App.Name, nil)
	log.Info(ctx, "starting lendscope",
		"version", version,
		"environment", cfg.App.Environment,
		"chains", len(cfg.Chains),
	)

	// Initialize observability if enabled
	if cfg.Telemetry.Enabled {
		stop, err := startTelemetry(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer stop()
	}

	// Create monolith (application container)
	mono, err := monolith.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer mono.Close()

	// Define modules in dependency order
	modules := []monolith.Module{
		&chain.Module{},     // Must be first - provides batch executors
		&pricing.Module{},   // Price cache and CoinGecko feed
		&market.Module{},    // Depends on chain for extraction
		&portfolio.Module{}, // Depends on market and pricing
	}

	// Register all module services
	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}
	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}

	engine := portfolioDI.GetEngine(mono.Services())
	reporter := newReporter(opts)

	if opts.once {
		report, err := engine.Run(ctx)
		if err != nil {
			return fmt.Errorf("pass failed: %w", err)
		}
		return reporter.Report(ctx, report)
	}

	if cfg.Health.Enabled {
		stop := startHealth(ctx, cfg, engine, log)
		defer stop()
	}

	log.Info(ctx, "all modules started, watching markets", "interval", cfg.Engine.Interval)
	engine.Watch(ctx, cfg.Engine.Interval, reporter)

	log.Info(ctx, "shutting down")
	return nil
}

func newReporter(opts options) portfolioApp.Reporter {
	if opts.json {
		return portfolioInfra.NewJSONReporter(os.Stdout)
	}
	return portfolioInfra.NewConsoleReporter(os.Stdout)
}

// startTelemetry installs the trace and meter providers and serves /metrics.
func startTelemetry(ctx context.Context, cfg *config.Config, log logger.LoggerInterface) (func(), error) {
	tel := cfg.Telemetry

	headers, err := apm.ParseHeaders(tel.OTLPHeaders)
	if err != nil {
		return nil, fmt.Errorf("invalid otlp headers: %w", err)
	}

	provider := apm.Provider(tel.TraceProvider)
	traceProvider, err := apm.NewTraceProvider(tel.ServiceName,
		apm.WithProvider(provider, apm.ExporterConfig{Endpoint: tel.OTLPEndpoint, Headers: headers}, log))
	if err != nil {
		return nil, fmt.Errorf("failed to start tracing: %w", err)
	}
	log.Info(ctx, "tracing initialized", "provider", provider, "endpoint", tel.OTLPEndpoint)

	metricOpts := []metrics.OptionFn{
		metrics.WithServiceName(tel.ServiceName),
		metrics.WithProviderConfig(metrics.ProviderCfg{Provider: metrics.PrometheusProvider}),
	}
	if tel.MetricsEndpoint != "" {
		metricOpts = append(metricOpts, metrics.WithProviderConfig(
			metrics.NewOtelCollectorConfig(tel.MetricsEndpoint, headers, true)))
	}
	if _, err := metrics.NewMetricProvider(metricOpts...); err != nil {
		_ = traceProvider.Stop()
		return nil, fmt.Errorf("failed to start metrics: %w", err)
	}

	// Start Prometheus metrics server in background
	port := tel.PrometheusPort
	if port == 0 {
		port = 9090
	}
	promServer := metrics.NewPrometheusServer(metrics.WithPort(strconv.Itoa(port)))
	go func() {
		if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "prometheus server failed", "error", err)
		}
	}()
	log.Info(ctx, "prometheus metrics server started", "port", port)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = promServer.Shutdown(shutdownCtx)
		_ = traceProvider.Stop()
	}, nil
}

// startHealth serves /health, /ready, /live and /report. The last_report
// check fails once no pass has succeeded for three intervals.
func startHealth(ctx context.Context, cfg *config.Config, engine *portfolioApp.Engine, log logger.LoggerInterface) func() {
	interval := cfg.Engine.Interval
	if interval <= 0 {
		interval = portfolioApp.DefaultInterval
	}

	healthServer := health.NewServer(cfg.Health.Port, version, log)
	healthServer.RegisterCheck("last_report", func(context.Context) (bool, string) {
		return engine.Fresh(3 * interval)
	})
	healthServer.Handle("/report", portfolioInfra.ReportHandler(engine))

	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
		return func() {}
	}
	log.Info(ctx, "health server started", "port", cfg.Health.Port)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = healthServer.Stop(shutdownCtx)
	}
}
