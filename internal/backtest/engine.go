// Package backtest replays a recorded price series through the live engine
// against the paper venue.
package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/ducminhle1904/momentum-trader/internal/allocation"
	boterrors "github.com/ducminhle1904/momentum-trader/internal/errors"
	"github.com/ducminhle1904/momentum-trader/internal/exchange"
	"github.com/ducminhle1904/momentum-trader/internal/exchange/paper"
	"github.com/ducminhle1904/momentum-trader/internal/feed"
	"github.com/ducminhle1904/momentum-trader/internal/journal"
	"github.com/ducminhle1904/momentum-trader/internal/logger"
	"github.com/ducminhle1904/momentum-trader/internal/orders"
	"github.com/ducminhle1904/momentum-trader/internal/state"
	"github.com/ducminhle1904/momentum-trader/internal/trading"
	"github.com/shopspring/decimal"
)

const (
	tradingProfile = "trading"
	depositProfile = "deposit"
)

// BacktestConfig represents backtest configuration
type BacktestConfig struct {
	BaseCurrency   string
	QuoteCurrency  string
	InitialBalance decimal.Decimal
	FeeRate        decimal.Decimal
	BaseIncrement  string
	QuoteIncrement string
	Trading        trading.Config
	Deposit        allocation.Config
	// Logger is optional; replays are silent by default
	Logger *logger.Logger
}

// DefaultConfig mirrors the live defaults with a 500 quote starting balance
func DefaultConfig() BacktestConfig {
	return BacktestConfig{
		BaseCurrency:   "BTC",
		QuoteCurrency:  "USD",
		InitialBalance: decimal.NewFromInt(500),
		FeeRate:        decimal.RequireFromString("0.005"),
		Trading: trading.Config{
			BuyDelta:        decimal.RequireFromString("0.015"),
			SellDelta:       decimal.RequireFromString("0.02"),
			OrderPriceDelta: decimal.RequireFromString("0.001"),
			MinProfitDelta:  decimal.Zero,
			BalanceMinimum:  decimal.RequireFromString("0.06"),
		},
		Deposit: allocation.Config{Enabled: true, ShareFraction: decimal.RequireFromString("0.5")},
	}
}

// Report is the outcome of one replay
type Report struct {
	Config BacktestConfig

	Prices      int
	Buys        int
	Sells       int
	Profit      decimal.Decimal
	Transferred decimal.Decimal
	FinalQuote  decimal.Decimal
	FinalBase   decimal.Decimal
	LastPrice   decimal.Decimal
	// FinalValue marks any open position to the last price and adds transferred profit
	FinalValue  decimal.Decimal
	TotalReturn float64
	OpenAtEnd   bool

	WinningTrades int
	LosingTrades  int
	ProfitFactor  float64
	MaxDrawdown   float64

	// Halted holds the fatal error that ended the replay early, if any
	Halted   error
	Trades   []journal.TradeRecord
	Duration time.Duration
}

// Run replays prices through a fresh engine. A fatal engine error ends the
// replay early and is reported in Report.Halted rather than returned.
func Run(ctx context.Context, cfg BacktestConfig, prices []decimal.Decimal) (*Report, error) {
	start := time.Now()
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}

	productID := exchange.ProductID(cfg.BaseCurrency, cfg.QuoteCurrency)
	venue, err := paper.NewVenue(productID, exchange.PaperConfig{
		Balances:       map[string]string{cfg.QuoteCurrency: cfg.InitialBalance.String()},
		FeeRate:        cfg.FeeRate.String(),
		Profiles:       []string{tradingProfile, depositProfile},
		BaseIncrement:  cfg.BaseIncrement,
		QuoteIncrement: cfg.QuoteIncrement,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create paper venue: %w", err)
	}

	market, err := trading.ResolveMarket(ctx, venue, trading.MarketConfig{
		BaseCurrency:   cfg.BaseCurrency,
		QuoteCurrency:  cfg.QuoteCurrency,
		TradingProfile: tradingProfile,
		DepositProfile: depositProfile,
		DepositEnabled: cfg.Deposit.Enabled,
	})
	if err != nil {
		return nil, err
	}

	// orders cross the simulated market at once, so polls run back to back
	supervisor := orders.NewSupervisor(venue, orders.Config{
		PollAttempts: 1,
		TimeInForce:  exchange.TimeInForceGTC,
	}, noWait, cfg.Logger.Entry())

	allocator := allocation.NewAllocator(venue, cfg.Deposit, allocation.Route{
		FromProfileID:  market.TradingProfileID,
		ToProfileID:    market.DepositProfileID,
		Currency:       cfg.QuoteCurrency,
		QuotePrecision: market.QuotePrecision,
	}, cfg.Logger.Entry())

	trades := journal.NewMemoryJournal()
	tradingCfg := cfg.Trading
	tradingCfg.ErrorBackoff = 0

	engine, err := trading.NewEngine(tradingCfg, *market, state.Flat(), trading.Deps{
		Client:     venue,
		Supervisor: supervisor,
		Allocator:  allocator,
		Store:      state.NewMemoryStore(),
		Journal:    trades,
		Logger:     cfg.Logger,
		Sleep:      noWait,
	})
	if err != nil {
		return nil, err
	}

	src := feed.NewReplaySource(prices)
	src.OnPrice = venue.SetPrice

	report := &Report{Config: cfg, Prices: len(prices)}
	if err := engine.Run(ctx, src); err != nil {
		if !boterrors.IsFatal(err) {
			return nil, err
		}
		report.Halted = err
	}

	report.Trades = trades.Records()
	report.FinalQuote = venue.Balance(tradingProfile, cfg.QuoteCurrency)
	report.FinalBase = venue.Balance(tradingProfile, cfg.BaseCurrency)
	report.OpenAtEnd = engine.Position().Exists
	if len(prices) > 0 {
		report.LastPrice = prices[len(prices)-1]
	}
	report.UpdateMetrics()
	report.Duration = time.Since(start)
	return report, nil
}

// noWait never pauses; the replay has no wall clock
func noWait(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}
