package exchange

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Supported venue names
const (
	VenueCoinbase = "coinbase"
	VenueBybit    = "bybit"
	VenuePaper    = "paper"
)

// ExchangeConfig holds configuration for creating a venue client
type ExchangeConfig struct {
	Name     string          `json:"name" yaml:"name" toml:"name"`
	Coinbase *CoinbaseConfig `json:"coinbase,omitempty" yaml:"coinbase,omitempty" toml:"coinbase,omitempty"`
	Bybit    *BybitConfig    `json:"bybit,omitempty" yaml:"bybit,omitempty" toml:"bybit,omitempty"`
	Paper    *PaperConfig    `json:"paper,omitempty" yaml:"paper,omitempty" toml:"paper,omitempty"`
}

// CoinbaseConfig holds Coinbase Exchange credentials and endpoints
type CoinbaseConfig struct {
	APIKey     string `json:"api_key" yaml:"api_key" toml:"api_key"`
	APISecret  string `json:"api_secret" yaml:"api_secret" toml:"api_secret"`
	Passphrase string `json:"passphrase" yaml:"passphrase" toml:"passphrase"`
	Sandbox    bool   `json:"sandbox" yaml:"sandbox" toml:"sandbox"`
	// Optional endpoint overrides
	RESTURL      string `json:"rest_url,omitempty" yaml:"rest_url,omitempty" toml:"rest_url,omitempty"`
	WebsocketURL string `json:"websocket_url,omitempty" yaml:"websocket_url,omitempty" toml:"websocket_url,omitempty"`
}

// BybitConfig holds Bybit-specific configuration
type BybitConfig struct {
	APIKey    string `json:"api_key" yaml:"api_key" toml:"api_key"`
	APISecret string `json:"api_secret" yaml:"api_secret" toml:"api_secret"`
	Testnet   bool   `json:"testnet" yaml:"testnet" toml:"testnet"`
	Demo      bool   `json:"demo" yaml:"demo" toml:"demo"`
	// Profiles maps a profile name to a sub-member UID
	Profiles map[string]string `json:"profiles,omitempty" yaml:"profiles,omitempty" toml:"profiles,omitempty"`
}

// PaperConfig seeds the in-memory venue
type PaperConfig struct {
	// Balances per currency of the trading profile
	Balances map[string]string `json:"balances" yaml:"balances" toml:"balances"`
	FeeRate  string            `json:"fee_rate" yaml:"fee_rate" toml:"fee_rate"`
	// Profiles lists profile names; the first is the trading profile
	Profiles       []string `json:"profiles" yaml:"profiles" toml:"profiles"`
	BaseIncrement  string   `json:"base_increment" yaml:"base_increment" toml:"base_increment"`
	QuoteIncrement string   `json:"quote_increment" yaml:"quote_increment" toml:"quote_increment"`
}

// ExchangeFactory validates venue configuration
type ExchangeFactory struct{}

// NewExchangeFactory creates a new exchange factory instance
func NewExchangeFactory() *ExchangeFactory {
	return &ExchangeFactory{}
}

// GetSupportedExchanges returns a list of supported exchange names
func (f *ExchangeFactory) GetSupportedExchanges() []string {
	return []string{VenueCoinbase, VenueBybit, VenuePaper}
}

// ValidateConfig validates the exchange configuration
func (f *ExchangeFactory) ValidateConfig(config ExchangeConfig) error {
	name := strings.ToLower(strings.TrimSpace(config.Name))
	if name == "" {
		return &ExchangeError{
			Code:    "MISSING_EXCHANGE_NAME",
			Message: "Exchange name is required",
		}
	}

	switch name {
	case VenueCoinbase:
		return f.validateCoinbaseConfig(config.Coinbase)
	case VenueBybit:
		return f.validateBybitConfig(config.Bybit)
	case VenuePaper:
		return f.validatePaperConfig(config.Paper)
	default:
		return &ExchangeError{
			Code:    "UNSUPPORTED_EXCHANGE",
			Message: fmt.Sprintf("Exchange '%s' is not supported", config.Name),
			Details: fmt.Sprintf("Supported exchanges: %v", f.GetSupportedExchanges()),
		}
	}
}

func (f *ExchangeFactory) validateCoinbaseConfig(config *CoinbaseConfig) error {
	if config == nil {
		return &ExchangeError{Code: "MISSING_COINBASE_CONFIG", Message: "Coinbase configuration is required"}
	}
	if config.APIKey == "" || config.APISecret == "" || config.Passphrase == "" {
		return &ExchangeError{
			Code:    "MISSING_CREDENTIALS",
			Message: "Coinbase API key, secret and passphrase are required",
			Details: "Set API_KEY, API_SECRET and API_PASSPHRASE or provide them in config",
		}
	}
	return nil
}

func (f *ExchangeFactory) validateBybitConfig(config *BybitConfig) error {
	if config == nil {
		return &ExchangeError{Code: "MISSING_BYBIT_CONFIG", Message: "Bybit configuration is required"}
	}
	if config.APIKey == "" || config.APISecret == "" {
		return &ExchangeError{
			Code:    "MISSING_CREDENTIALS",
			Message: "Bybit API key and secret are required",
			Details: "Set API_KEY and API_SECRET or provide them in config",
		}
	}
	if config.Testnet && config.Demo {
		return &ExchangeError{
			Code:    "INVALID_ENVIRONMENT_CONFIG",
			Message: "Cannot use both testnet and demo mode simultaneously",
		}
	}
	return nil
}

func (f *ExchangeFactory) validatePaperConfig(config *PaperConfig) error {
	if config == nil {
		return nil
	}
	if config.FeeRate != "" {
		rate, err := decimal.NewFromString(config.FeeRate)
		if err != nil || rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return &ExchangeError{Code: "INVALID_FEE_RATE", Message: "Paper fee rate must be in [0,1)", Details: config.FeeRate}
		}
	}
	for currency, amount := range config.Balances {
		if _, err := decimal.NewFromString(amount); err != nil {
			return &ExchangeError{Code: "INVALID_BALANCE", Message: "Paper balance is not a number", Details: currency}
		}
	}
	return nil
}
