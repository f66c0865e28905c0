package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ducminhle1904/momentum-trader/internal/allocation"
	boterrors "github.com/ducminhle1904/momentum-trader/internal/errors"
	"github.com/ducminhle1904/momentum-trader/internal/exchange"
	"github.com/ducminhle1904/momentum-trader/internal/logger"
	"github.com/ducminhle1904/momentum-trader/internal/orders"
	"github.com/ducminhle1904/momentum-trader/internal/state"
	"github.com/ducminhle1904/momentum-trader/internal/trading"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// EnvironmentReal selects production endpoints; anything else uses the sandbox
const EnvironmentReal = "real"

// BotConfig represents the complete configuration of the trading bot
type BotConfig struct {
	// Environment is "real" for production endpoints
	Environment string `json:"environment" yaml:"environment" toml:"environment"`

	Trading    TradingConfig           `json:"trading" yaml:"trading" toml:"trading"`
	Deposit    DepositConfig           `json:"deposit" yaml:"deposit" toml:"deposit"`
	Orders     OrdersConfig            `json:"orders" yaml:"orders" toml:"orders"`
	Exchange   exchange.ExchangeConfig `json:"exchange" yaml:"exchange" toml:"exchange"`
	Checkpoint state.Config            `json:"checkpoint" yaml:"checkpoint" toml:"checkpoint"`
	Journal    JournalConfig           `json:"journal" yaml:"journal" toml:"journal"`
	Monitoring MonitoringConfig        `json:"monitoring" yaml:"monitoring" toml:"monitoring"`
	Logging    LoggingConfig           `json:"logging" yaml:"logging" toml:"logging"`

	// Notification configuration (optional)
	Notifications *NotificationConfig `json:"notifications,omitempty" yaml:"notifications,omitempty" toml:"notifications,omitempty"`
}

// TradingConfig holds the pair and the swing thresholds
type TradingConfig struct {
	BaseCurrency   string `json:"base_currency" yaml:"base_currency" toml:"base_currency"`
	QuoteCurrency  string `json:"quote_currency" yaml:"quote_currency" toml:"quote_currency"`
	TradingProfile string `json:"trading_profile" yaml:"trading_profile" toml:"trading_profile"`

	BuyDelta        float64 `json:"buy_delta" yaml:"buy_delta" toml:"buy_delta"`                         // Rise off the low that triggers a buy
	SellDelta       float64 `json:"sell_delta" yaml:"sell_delta" toml:"sell_delta"`                      // Fall off the high that triggers a sell
	OrderPriceDelta float64 `json:"order_price_delta" yaml:"order_price_delta" toml:"order_price_delta"` // Limit price allowance
	MinProfitDelta  float64 `json:"min_profit_delta" yaml:"min_profit_delta" toml:"min_profit_delta"`
	BalanceMinimum  float64 `json:"balance_minimum" yaml:"balance_minimum" toml:"balance_minimum"` // Quote left untouched for rounding
}

// DepositConfig routes a share of every profit to a second profile
type DepositConfig struct {
	Enabled       bool    `json:"enabled" yaml:"enabled" toml:"enabled"`
	Profile       string  `json:"profile" yaml:"profile" toml:"profile"`
	ShareFraction float64 `json:"share_fraction" yaml:"share_fraction" toml:"share_fraction"`
}

// OrdersConfig bounds the order supervisor
type OrdersConfig struct {
	PollAttempts int    `json:"poll_attempts" yaml:"poll_attempts" toml:"poll_attempts"`
	PollInterval string `json:"poll_interval" yaml:"poll_interval" toml:"poll_interval"`
	TimeInForce  string `json:"time_in_force" yaml:"time_in_force" toml:"time_in_force"`
	// ErrorBackoff is the pause after a cycle fails on a recoverable error
	ErrorBackoff string `json:"error_backoff" yaml:"error_backoff" toml:"error_backoff"`
	// TickInterval is how often the engine samples the latest price
	TickInterval string `json:"tick_interval" yaml:"tick_interval" toml:"tick_interval"`
}

// JournalConfig enables the postgres trade journal when DSN is set
type JournalConfig struct {
	DSN string `json:"dsn" yaml:"dsn" toml:"dsn"`
}

// MonitoringConfig controls the metrics endpoint
type MonitoringConfig struct {
	MetricsAddr     string `json:"metrics_addr" yaml:"metrics_addr" toml:"metrics_addr"`
	HealthStaleness string `json:"health_staleness" yaml:"health_staleness" toml:"health_staleness"`
}

// LoggingConfig mirrors logger.Config
type LoggingConfig struct {
	Level      string `json:"level" yaml:"level" toml:"level"`
	File       string `json:"file" yaml:"file" toml:"file"`
	MaxSize    int    `json:"max_size" yaml:"max_size" toml:"max_size"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups" toml:"max_backups"`
	MaxAge     int    `json:"max_age" yaml:"max_age" toml:"max_age"`
	Compress   bool   `json:"compress" yaml:"compress" toml:"compress"`
	JSON       bool   `json:"json" yaml:"json" toml:"json"`
}

// NotificationConfig holds notification settings
type NotificationConfig struct {
	Enabled       bool   `json:"enabled" yaml:"enabled" toml:"enabled"`
	TelegramToken string `json:"telegram_token,omitempty" yaml:"telegram_token,omitempty" toml:"telegram_token,omitempty"`
	TelegramChat  string `json:"telegram_chat,omitempty" yaml:"telegram_chat,omitempty" toml:"telegram_chat,omitempty"`
}

// Default returns the configuration used when nothing is set
func Default() *BotConfig {
	return &BotConfig{
		Environment: "sandbox",
		Trading: TradingConfig{
			BaseCurrency:    "BTC",
			QuoteCurrency:   "USD",
			TradingProfile:  "default",
			BuyDelta:        0.015,
			SellDelta:       0.02,
			OrderPriceDelta: 0.001,
			MinProfitDelta:  0,
			BalanceMinimum:  0.06,
		},
		Deposit: DepositConfig{
			Enabled:       true,
			Profile:       "BTC trader",
			ShareFraction: 0.5,
		},
		Orders: OrdersConfig{
			PollAttempts: orders.DefaultPollAttempts,
			PollInterval: orders.DefaultPollInterval.String(),
			TimeInForce:  string(exchange.TimeInForceFOK),
			ErrorBackoff: trading.DefaultErrorBackoff.String(),
			TickInterval: "250ms",
		},
		Exchange:   exchange.ExchangeConfig{Name: exchange.VenueCoinbase},
		Checkpoint: state.Config{Backend: state.BackendFile},
		Monitoring: MonitoringConfig{HealthStaleness: "1m"},
		Logging:    LoggingConfig{Level: "info"},
	}
}

// Load builds the configuration: defaults, then the file when given, then
// the environment, then overrides such as command line flags. The result is
// validated.
func Load(configFile string, overrides ...func(*BotConfig)) (*BotConfig, error) {
	cfg := Default()

	if configFile != "" {
		if err := loadFile(resolvePath(configFile), cfg); err != nil {
			return nil, boterrors.NewConfigurationError("config", "load", err.Error())
		}
	}

	ApplyEnv(cfg)
	for _, override := range overrides {
		override(cfg)
	}
	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, boterrors.NewConfigurationError("config", "validate", err.Error())
	}
	return cfg, nil
}

// resolvePath looks in configs/ for bare names and defaults the extension to .json
func resolvePath(configFile string) string {
	if !strings.ContainsAny(configFile, "/\\") {
		if _, err := os.Stat(configFile); err != nil {
			configFile = filepath.Join("configs", configFile)
		}
	}
	if filepath.Ext(configFile) == "" {
		configFile += ".json"
	}
	return configFile
}

func loadFile(path string, cfg *BotConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// setDefaults fills what the file and environment left empty
func (c *BotConfig) setDefaults() {
	isReal := c.IsReal()

	switch strings.ToLower(c.Exchange.Name) {
	case exchange.VenueCoinbase:
		if c.Exchange.Coinbase == nil {
			c.Exchange.Coinbase = &exchange.CoinbaseConfig{}
		}
		c.Exchange.Coinbase.Sandbox = !isReal
	case exchange.VenueBybit:
		if c.Exchange.Bybit == nil {
			c.Exchange.Bybit = &exchange.BybitConfig{}
		}
		c.Exchange.Bybit.Testnet = !isReal && !c.Exchange.Bybit.Demo
	case exchange.VenuePaper:
		if c.Exchange.Paper == nil {
			c.Exchange.Paper = &exchange.PaperConfig{}
		}
		p := c.Exchange.Paper
		if len(p.Balances) == 0 {
			p.Balances = map[string]string{c.Trading.QuoteCurrency: "500"}
		}
		if p.FeeRate == "" {
			p.FeeRate = "0.005"
		}
		if len(p.Profiles) == 0 {
			p.Profiles = []string{c.Trading.TradingProfile}
			if c.Deposit.Profile != "" && c.Deposit.Profile != c.Trading.TradingProfile {
				p.Profiles = append(p.Profiles, c.Deposit.Profile)
			}
		}
	}

	if c.Checkpoint.Backend == "" {
		c.Checkpoint.Backend = state.BackendFile
	}
	if c.Orders.TimeInForce == "" {
		c.Orders.TimeInForce = string(exchange.TimeInForceFOK)
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks the configuration
func (c *BotConfig) Validate() error {
	for name, v := range map[string]float64{
		"buy delta":         c.Trading.BuyDelta,
		"sell delta":        c.Trading.SellDelta,
		"order price delta": c.Trading.OrderPriceDelta,
		"min profit delta":  c.Trading.MinProfitDelta,
	} {
		if v < 0 || v >= 1 {
			return fmt.Errorf("%s must be in [0,1), got %v", name, v)
		}
	}
	if c.Trading.BalanceMinimum < 0 {
		return fmt.Errorf("balance minimum must not be negative")
	}
	if c.Deposit.ShareFraction < 0 || c.Deposit.ShareFraction > 1 {
		return fmt.Errorf("deposit share fraction must be in [0,1], got %v", c.Deposit.ShareFraction)
	}
	if c.Trading.BaseCurrency == "" || c.Trading.QuoteCurrency == "" {
		return fmt.Errorf("base and quote currency are required")
	}
	if c.Trading.TradingProfile == "" {
		return fmt.Errorf("trading profile is required")
	}
	if c.Deposit.Enabled && c.Deposit.Profile == "" {
		return fmt.Errorf("deposit profile is required when depositing is enabled")
	}
	if c.Orders.PollAttempts <= 0 {
		return fmt.Errorf("poll attempts must be greater than 0")
	}
	for name, v := range map[string]string{
		"poll interval":    c.Orders.PollInterval,
		"error backoff":    c.Orders.ErrorBackoff,
		"tick interval":    c.Orders.TickInterval,
		"health staleness": c.Monitoring.HealthStaleness,
	} {
		if _, err := parseDuration(v); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	switch exchange.TimeInForce(strings.ToUpper(c.Orders.TimeInForce)) {
	case exchange.TimeInForceGTC, exchange.TimeInForceIOC, exchange.TimeInForceFOK:
	default:
		return fmt.Errorf("unknown time in force %q", c.Orders.TimeInForce)
	}

	known := false
	for _, b := range state.Backends() {
		if strings.EqualFold(b, c.Checkpoint.Backend) {
			known = true
		}
	}
	if !known {
		return fmt.Errorf("unknown checkpoint backend %q, supported: %v", c.Checkpoint.Backend, state.Backends())
	}

	// Validate exchange config using factory
	factory := exchange.NewExchangeFactory()
	if err := factory.ValidateConfig(c.Exchange); err != nil {
		return fmt.Errorf("exchange config validation failed: %w", err)
	}
	return nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

func mustDuration(s string) time.Duration {
	d, _ := parseDuration(s)
	return d
}

// ProductID returns BASE-QUOTE
func (c *BotConfig) ProductID() string {
	return exchange.ProductID(c.Trading.BaseCurrency, c.Trading.QuoteCurrency)
}

// IsReal reports whether production endpoints are selected
func (c *BotConfig) IsReal() bool {
	return strings.EqualFold(c.Environment, EnvironmentReal)
}

// TradingParams converts the thresholds into the engine's decimal config
func (c *BotConfig) TradingParams() trading.Config {
	return trading.Config{
		BuyDelta:        decimal.NewFromFloat(c.Trading.BuyDelta),
		SellDelta:       decimal.NewFromFloat(c.Trading.SellDelta),
		OrderPriceDelta: decimal.NewFromFloat(c.Trading.OrderPriceDelta),
		MinProfitDelta:  decimal.NewFromFloat(c.Trading.MinProfitDelta),
		BalanceMinimum:  decimal.NewFromFloat(c.Trading.BalanceMinimum),
		ErrorBackoff:    mustDuration(c.Orders.ErrorBackoff),
	}
}

// DepositParams converts the deposit settings for the allocator
func (c *BotConfig) DepositParams() allocation.Config {
	return allocation.Config{
		Enabled:       c.Deposit.Enabled,
		ShareFraction: decimal.NewFromFloat(c.Deposit.ShareFraction),
	}
}

// MarketParams names what bootstrap must resolve
func (c *BotConfig) MarketParams() trading.MarketConfig {
	return trading.MarketConfig{
		BaseCurrency:   c.Trading.BaseCurrency,
		QuoteCurrency:  c.Trading.QuoteCurrency,
		TradingProfile: c.Trading.TradingProfile,
		DepositProfile: c.Deposit.Profile,
		DepositEnabled: c.Deposit.Enabled,
	}
}

// SupervisorParams converts the order settings
func (c *BotConfig) SupervisorParams() orders.Config {
	return orders.Config{
		PollAttempts: c.Orders.PollAttempts,
		PollInterval: mustDuration(c.Orders.PollInterval),
		TimeInForce:  exchange.TimeInForce(strings.ToUpper(c.Orders.TimeInForce)),
	}
}

// TickInterval is how often the live source samples the price cell
func (c *BotConfig) TickInterval() time.Duration {
	return mustDuration(c.Orders.TickInterval)
}

// HealthStaleness is how old the last price may be before the bot reports unhealthy
func (c *BotConfig) HealthStaleness() time.Duration {
	return mustDuration(c.Monitoring.HealthStaleness)
}

// LoggerParams converts the logging settings
func (c *BotConfig) LoggerParams() logger.Config {
	return logger.Config{
		Level:      c.Logging.Level,
		OutputFile: c.Logging.File,
		MaxSize:    c.Logging.MaxSize,
		MaxBackups: c.Logging.MaxBackups,
		MaxAge:     c.Logging.MaxAge,
		Compress:   c.Logging.Compress,
		JSON:       c.Logging.JSON,
	}
}
