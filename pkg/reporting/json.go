package reporting

import (
	"encoding/json"
	"math"
	"os"

	"github.com/ducminhle1904/momentum-trader/internal/backtest"
	"github.com/ducminhle1904/momentum-trader/internal/journal"
	"github.com/shopspring/decimal"
)

// jsonReport is the file layout of a replay report
type jsonReport struct {
	Product        string                `json:"product"`
	BuyDelta       decimal.Decimal       `json:"buy_delta"`
	SellDelta      decimal.Decimal       `json:"sell_delta"`
	OrderDelta     decimal.Decimal       `json:"order_price_delta"`
	MinProfitDelta decimal.Decimal       `json:"min_profit_delta"`
	FeeRate        decimal.Decimal       `json:"fee_rate"`
	InitialBalance decimal.Decimal       `json:"initial_balance"`
	Prices         int                   `json:"prices"`
	Buys           int                   `json:"buys"`
	Sells          int                   `json:"sells"`
	Profit         decimal.Decimal       `json:"profit"`
	Transferred    decimal.Decimal       `json:"transferred"`
	FinalQuote     decimal.Decimal       `json:"final_quote"`
	FinalBase      decimal.Decimal       `json:"final_base"`
	FinalValue     decimal.Decimal       `json:"final_value"`
	TotalReturn    float64               `json:"total_return"`
	MaxDrawdown    float64               `json:"max_drawdown"`
	ProfitFactor   *float64              `json:"profit_factor"`
	WinRate        float64               `json:"win_rate"`
	OpenAtEnd      bool                  `json:"open_at_end"`
	Halted         string                `json:"halted,omitempty"`
	Trades         []journal.TradeRecord `json:"trades"`
}

// FormatReport encodes a report as indented JSON. An unbounded profit
// factor is written as null.
func FormatReport(report *backtest.Report) ([]byte, error) {
	cfg := report.Config
	out := jsonReport{
		Product:        cfg.BaseCurrency + "-" + cfg.QuoteCurrency,
		BuyDelta:       cfg.Trading.BuyDelta,
		SellDelta:      cfg.Trading.SellDelta,
		OrderDelta:     cfg.Trading.OrderPriceDelta,
		MinProfitDelta: cfg.Trading.MinProfitDelta,
		FeeRate:        cfg.FeeRate,
		InitialBalance: cfg.InitialBalance,
		Prices:         report.Prices,
		Buys:           report.Buys,
		Sells:          report.Sells,
		Profit:         report.Profit,
		Transferred:    report.Transferred,
		FinalQuote:     report.FinalQuote,
		FinalBase:      report.FinalBase,
		FinalValue:     report.FinalValue,
		TotalReturn:    report.TotalReturn,
		MaxDrawdown:    report.MaxDrawdown,
		WinRate:        report.WinRate(),
		OpenAtEnd:      report.OpenAtEnd,
		Trades:         report.Trades,
	}
	if !math.IsInf(report.ProfitFactor, 0) {
		pf := report.ProfitFactor
		out.ProfitFactor = &pf
	}
	if report.Halted != nil {
		out.Halted = report.Halted.Error()
	}
	if out.Trades == nil {
		out.Trades = []journal.TradeRecord{}
	}
	return json.MarshalIndent(out, "", "  ")
}

// WriteReportJSON writes a report as JSON to path
func WriteReportJSON(report *backtest.Report, path string) error {
	data, err := FormatReport(report)
	if err != nil {
		return err
	}
	if err := EnsureDirectoryExists(path); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
