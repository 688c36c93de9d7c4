// Package config provides configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/fd1az/lendscope/internal/apperror"
)

// DefaultMulticallAddress is the Multicall3 deployment shared by every EVM chain.
const DefaultMulticallAddress = "0xcA11bde05977b3631167028862bE2a173976CA11"

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Engine    EngineConfig    `mapstructure:"engine"`
	RPC       RPCConfig       `mapstructure:"rpc"`
	Pricing   PricingConfig   `mapstructure:"pricing"`
	Assets    []AssetConfig   `mapstructure:"assets"`
	Chains    []ChainConfig   `mapstructure:"chains"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Health    HealthConfig    `mapstructure:"health"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// EngineConfig drives the aggregation pass.
type EngineConfig struct {
	Users                []string        `mapstructure:"users"`
	HistoricalDepth      uint64          `mapstructure:"historical_depth"`
	Interval             time.Duration   `mapstructure:"interval"`
	VaultBalanceGuardPct float64         `mapstructure:"vault_balance_guard_pct"`
	MaterialityUSD       float64         `mapstructure:"materiality_usd"`
	GoodPools            GoodPoolsConfig `mapstructure:"good_pools"`
}

// GoodPoolsConfig holds the thresholds of the good pools view.
type GoodPoolsConfig struct {
	MinSuppliedUSD  float64 `mapstructure:"min_supplied_usd"`
	MinAPR          float64 `mapstructure:"min_apr"`
	MinAvailableUSD float64 `mapstructure:"min_available_usd"`
	HighAPR         float64 `mapstructure:"high_apr"`
	MinTVLUSD       float64 `mapstructure:"min_tvl_usd"`
}

// UserAddresses returns the tracked users as addresses.
func (c *EngineConfig) UserAddresses() []common.Address {
	out := make([]common.Address, len(c.Users))
	for i, u := range c.Users {
		out[i] = common.HexToAddress(u)
	}
	return out
}

// RPCConfig holds batch executor settings shared by all chains.
type RPCConfig struct {
	MulticallAddress string        `mapstructure:"multicall_address"`
	CallTimeout      time.Duration `mapstructure:"call_timeout"`
	BackoffStep      time.Duration `mapstructure:"backoff_step"`
	BreakerFailures  uint32        `mapstructure:"breaker_failures"`
	BreakerCooldown  time.Duration `mapstructure:"breaker_cooldown"`
}

// MulticallAddressHex returns the multicall address as common.Address.
func (c *RPCConfig) MulticallAddressHex() common.Address {
	return common.HexToAddress(c.MulticallAddress)
}

// PricingConfig holds the price feed settings.
type PricingConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	StaleAfter        time.Duration `mapstructure:"stale_after"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	Timeout           time.Duration `mapstructure:"timeout"`
	Static            []StaticPrice `mapstructure:"static"`
}

// StaticPrice seeds the price cache before the first refresh.
type StaticPrice struct {
	Symbol string  `mapstructure:"symbol"`
	USD    float64 `mapstructure:"usd"`
}

// USDDecimal returns the static price as decimal.Decimal.
func (p StaticPrice) USDDecimal() decimal.Decimal {
	return decimal.NewFromFloat(p.USD)
}

// AssetConfig declares a logical asset.
type AssetConfig struct {
	Symbol   string `mapstructure:"symbol"`
	Name     string `mapstructure:"name"`
	Decimals uint8  `mapstructure:"decimals"`
	PriceID  string `mapstructure:"price_id"`
}

// ChainConfig is the static description of one chain.
type ChainConfig struct {
	Name        string          `mapstructure:"name"`
	ChainID     uint64          `mapstructure:"chain_id"`
	RPCURLs     []string        `mapstructure:"rpc_urls"`
	NativeAsset string          `mapstructure:"native_asset"`
	Borrowables []string        `mapstructure:"borrowables"`
	Tokens      []TokenConfig   `mapstructure:"tokens"`
	Staking     []StakingConfig `mapstructure:"staking"`
}

// TokenConfig maps an underlying token address to an asset symbol.
type TokenConfig struct {
	Address string `mapstructure:"address"`
	Symbol  string `mapstructure:"symbol"`
}

// StakingConfig attaches staking metadata to a borrowable.
type StakingConfig struct {
	Borrowable  string `mapstructure:"borrowable"`
	Pool        string `mapstructure:"pool"`
	RewardToken string `mapstructure:"reward_token"`
}

// BorrowableAddresses returns the borrowables as addresses, in config order.
func (c *ChainConfig) BorrowableAddresses() []common.Address {
	out := make([]common.Address, len(c.Borrowables))
	for i, b := range c.Borrowables {
		out[i] = common.HexToAddress(b)
	}
	return out
}

// TokenSymbols returns the underlying address to asset symbol map.
func (c *ChainConfig) TokenSymbols() map[common.Address]string {
	out := make(map[common.Address]string, len(c.Tokens))
	for _, t := range c.Tokens {
		out[common.HexToAddress(t.Address)] = t.Symbol
	}
	return out
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	ServiceName     string `mapstructure:"service_name"`
	TraceProvider   string `mapstructure:"trace_provider"`
	OTLPEndpoint    string `mapstructure:"otlp_endpoint"`
	OTLPHeaders     string `mapstructure:"otlp_headers"`
	MetricsEndpoint string `mapstructure:"metrics_endpoint"`
	PrometheusPort  int    `mapstructure:"prometheus_port"`
}

// HealthConfig holds the health server settings.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("LENDSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	_ = v.BindEnv("app.name", "LENDSCOPE_APP_NAME", "SERVICE_NAME")
	_ = v.BindEnv("app.environment", "LENDSCOPE_ENVIRONMENT", "ENVIRONMENT")
	_ = v.BindEnv("app.log_level", "LENDSCOPE_LOG_LEVEL", "LOG_LEVEL")

	// Engine
	_ = v.BindEnv("engine.users", "LENDSCOPE_USERS")
	_ = v.BindEnv("engine.interval", "LENDSCOPE_INTERVAL")

	// Pricing
	_ = v.BindEnv("pricing.base_url", "LENDSCOPE_PRICING_URL", "COINGECKO_URL")
	_ = v.BindEnv("pricing.api_key", "LENDSCOPE_PRICING_API_KEY", "COINGECKO_API_KEY")

	// Telemetry
	_ = v.BindEnv("telemetry.enabled", "LENDSCOPE_OTEL_ENABLED", "OTEL_ENABLED")
	_ = v.BindEnv("telemetry.service_name", "LENDSCOPE_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	_ = v.BindEnv("telemetry.otlp_endpoint", "LENDSCOPE_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	_ = v.BindEnv("telemetry.otlp_headers", "LENDSCOPE_OTEL_HEADERS", "OTEL_EXPORTER_OTLP_HEADERS")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "lendscope")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Engine defaults
	v.SetDefault("engine.historical_depth", 100)
	v.SetDefault("engine.interval", "60s")
	v.SetDefault("engine.vault_balance_guard_pct", 8)
	v.SetDefault("engine.materiality_usd", 1)
	v.SetDefault("engine.good_pools.min_supplied_usd", 1)
	v.SetDefault("engine.good_pools.min_apr", 8)
	v.SetDefault("engine.good_pools.min_available_usd", 1000)
	v.SetDefault("engine.good_pools.high_apr", 15)
	v.SetDefault("engine.good_pools.min_tvl_usd", 100000)

	// RPC defaults
	v.SetDefault("rpc.multicall_address", DefaultMulticallAddress)
	v.SetDefault("rpc.call_timeout", "15s")
	v.SetDefault("rpc.backoff_step", "1s")
	v.SetDefault("rpc.breaker_failures", 5)
	v.SetDefault("rpc.breaker_cooldown", "30s")

	// Pricing defaults
	v.SetDefault("pricing.base_url", "https://api.coingecko.com")
	v.SetDefault("pricing.stale_after", "60s")
	v.SetDefault("pricing.requests_per_minute", 30)
	v.SetDefault("pricing.timeout", "10s")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "lendscope")
	v.SetDefault("telemetry.trace_provider", "zipkin")
	v.SetDefault("telemetry.prometheus_port", 9090)

	// Health defaults
	v.SetDefault("health.enabled", true)
	v.SetDefault("health.port", 8081)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if len(c.Chains) == 0 {
		return invalid("at least one chain is required")
	}
	if !common.IsHexAddress(c.RPC.MulticallAddress) {
		return invalid("invalid rpc.multicall_address: %s", c.RPC.MulticallAddress)
	}
	if c.RPC.CallTimeout <= 0 {
		return invalid("rpc.call_timeout must be positive")
	}
	if c.Engine.HistoricalDepth == 0 {
		return invalid("engine.historical_depth must be positive")
	}
	if c.Engine.Interval <= 0 {
		return invalid("engine.interval must be positive")
	}
	if c.Engine.VaultBalanceGuardPct < 0 || c.Engine.MaterialityUSD < 0 {
		return invalid("engine thresholds cannot be negative")
	}
	if c.Pricing.StaleAfter <= 0 {
		return invalid("pricing.stale_after must be positive")
	}
	for _, u := range c.Engine.Users {
		if !common.IsHexAddress(u) {
			return invalid("invalid user address: %s", u)
		}
	}

	for _, a := range c.Assets {
		if a.Symbol == "" {
			return invalid("asset symbol cannot be empty")
		}
	}

	seen := make(map[string]bool, len(c.Chains))
	for i := range c.Chains {
		ch := &c.Chains[i]
		if err := ch.validate(); err != nil {
			return err
		}
		if seen[ch.Name] {
			return invalid("duplicate chain %s", ch.Name)
		}
		seen[ch.Name] = true
	}

	return nil
}

func (c *ChainConfig) validate() error {
	if c.Name == "" {
		return invalid("chain name cannot be empty")
	}
	if len(c.RPCURLs) == 0 {
		return invalid("chain %s: rpc_urls cannot be empty", c.Name)
	}
	if c.NativeAsset == "" {
		return invalid("chain %s: native_asset is required", c.Name)
	}
	for _, b := range c.Borrowables {
		if !common.IsHexAddress(b) {
			return invalid("chain %s: invalid borrowable %s", c.Name, b)
		}
	}
	for _, t := range c.Tokens {
		if !common.IsHexAddress(t.Address) || t.Symbol == "" {
			return invalid("chain %s: invalid token entry %s=%s", c.Name, t.Address, t.Symbol)
		}
	}
	for _, s := range c.Staking {
		if !common.IsHexAddress(s.Borrowable) || !common.IsHexAddress(s.Pool) || !common.IsHexAddress(s.RewardToken) {
			return invalid("chain %s: invalid staking entry for %s", c.Name, s.Borrowable)
		}
	}
	return nil
}

func invalid(format string, args ...any) error {
	return apperror.New(apperror.CodeConfigurationError, apperror.WithContextf(format, args...))
}

// Chain returns the named chain config.
func (c *Config) Chain(name string) (*ChainConfig, bool) {
	for i := range c.Chains {
		if c.Chains[i].Name == name {
			return &c.Chains[i], true
		}
	}
	return nil, false
}
