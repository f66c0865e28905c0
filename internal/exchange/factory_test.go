package exchange

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExchangeFactory_ValidateConfig(t *testing.T) {
	f := NewExchangeFactory()

	tests := []struct {
		name    string
		config  ExchangeConfig
		wantErr string
	}{
		{"missing name", ExchangeConfig{}, "MISSING_EXCHANGE_NAME"},
		{"unsupported", ExchangeConfig{Name: "kraken"}, "UNSUPPORTED_EXCHANGE"},
		{"coinbase without config", ExchangeConfig{Name: "coinbase"}, "MISSING_COINBASE_CONFIG"},
		{"coinbase missing passphrase", ExchangeConfig{Name: "Coinbase", Coinbase: &CoinbaseConfig{APIKey: "k", APISecret: "s"}}, "MISSING_CREDENTIALS"},
		{"coinbase ok", ExchangeConfig{Name: "coinbase", Coinbase: &CoinbaseConfig{APIKey: "k", APISecret: "s", Passphrase: "p"}}, ""},
		{"bybit testnet and demo", ExchangeConfig{Name: "bybit", Bybit: &BybitConfig{APIKey: "k", APISecret: "s", Testnet: true, Demo: true}}, "INVALID_ENVIRONMENT_CONFIG"},
		{"paper default", ExchangeConfig{Name: "paper"}, ""},
		{"paper bad fee", ExchangeConfig{Name: "paper", Paper: &PaperConfig{FeeRate: "1.5"}}, "INVALID_FEE_RATE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.ValidateConfig(tt.config)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			exErr, ok := err.(*ExchangeError)
			if assert.True(t, ok, "unexpected error type %T", err) {
				assert.Equal(t, tt.wantErr, exErr.Code)
			}
		})
	}
}
