package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ducminhle1904/momentum-trader/cmd/common"
	"github.com/ducminhle1904/momentum-trader/internal/backtest"
	"github.com/ducminhle1904/momentum-trader/internal/logger"
	"github.com/ducminhle1904/momentum-trader/pkg/data"
	"github.com/ducminhle1904/momentum-trader/pkg/reporting"
	"github.com/ducminhle1904/momentum-trader/pkg/types"
	"github.com/shopspring/decimal"
)

type options struct {
	dataFile     string
	column       string
	base         string
	quote        string
	balance      float64
	buyDelta     float64
	sellDelta    float64
	orderDelta   float64
	minProfit    float64
	fee          float64
	depositShare float64
	sweep        bool
	workers      int
	top          int
	xlsxPath     string
	jsonPath     string
	csvPath      string
	verbose      bool
}

func main() {
	defaults := backtest.DefaultConfig()
	var opts options
	flag.StringVar(&opts.dataFile, "data", "", "CSV price file with a header row (required)")
	flag.StringVar(&opts.column, "column", data.DefaultCSVFormat.PriceColumn, "Price column to replay")
	flag.StringVar(&opts.base, "base", defaults.BaseCurrency, "Base currency")
	flag.StringVar(&opts.quote, "quote", defaults.QuoteCurrency, "Quote currency")
	flag.Float64Var(&opts.balance, "balance", defaults.InitialBalance.InexactFloat64(), "Starting quote balance")
	flag.Float64Var(&opts.buyDelta, "buy-delta", defaults.Trading.BuyDelta.InexactFloat64(), "Rise off the low that triggers a buy")
	flag.Float64Var(&opts.sellDelta, "sell-delta", defaults.Trading.SellDelta.InexactFloat64(), "Fall off the high that triggers a sell")
	flag.Float64Var(&opts.orderDelta, "order-delta", defaults.Trading.OrderPriceDelta.InexactFloat64(), "Limit price allowance")
	flag.Float64Var(&opts.minProfit, "min-profit", defaults.Trading.MinProfitDelta.InexactFloat64(), "Minimum profit over cost for a sell")
	flag.Float64Var(&opts.fee, "fee", defaults.FeeRate.InexactFloat64(), "Fee rate charged on both legs")
	flag.Float64Var(&opts.depositShare, "deposit-share", defaults.Deposit.ShareFraction.InexactFloat64(), "Share of each profit moved to the deposit profile; 0 disables")
	flag.BoolVar(&opts.sweep, "sweep", false, "Sweep buy/sell deltas from 0.5% to 5% and rank by profit")
	flag.IntVar(&opts.workers, "workers", 0, "Concurrent replays during a sweep (0 = CPU count)")
	flag.IntVar(&opts.top, "top", 10, "Sweep results to print")
	flag.StringVar(&opts.xlsxPath, "xlsx", "", "Write the report workbook to this path")
	flag.StringVar(&opts.jsonPath, "json", "", "Write the report as JSON to this path")
	flag.StringVar(&opts.csvPath, "csv", "", "Write the trades as CSV to this path")
	flag.BoolVar(&opts.verbose, "verbose", false, "Log engine decisions during a single replay")
	version := flag.Bool("version", false, "Show version information")

	usage := common.NewUsageFormatter("momentum-backtest", "Replay a price history through the momentum engine").
		AddExample("momentum-backtest -data data/btc_usd.csv", "Replay with the live defaults").
		AddExample("momentum-backtest -data data/btc_usd.csv -sweep -top 5", "Rank delta combinations").
		AddExample("momentum-backtest -data data/btc_usd.csv -xlsx results/btc.xlsx", "Export a workbook")
	flag.Usage = usage.PrintUsage
	flag.Parse()

	if *version {
		common.PrintVersion("momentum-backtest")
		return
	}

	if err := validate(opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		stop()
		log.Fatalf("Backtest failed: %v", err)
	}
}

func validate(opts options) error {
	v := common.NewFlagValidator().
		ValidateFile("data", opts.dataFile, true).
		ValidateFloat("balance", opts.balance, 0.01, 1e15).
		ValidateFraction("buy-delta", opts.buyDelta).
		ValidateFraction("sell-delta", opts.sellDelta).
		ValidateFraction("order-delta", opts.orderDelta).
		ValidateFraction("min-profit", opts.minProfit).
		ValidateFraction("fee", opts.fee).
		ValidateFloat("deposit-share", opts.depositShare, 0, 1).
		ValidateInt("workers", opts.workers, 0, 1024)
	if strings.TrimSpace(opts.column) == "" {
		v.AddError("column must not be empty")
	}
	return v.GetError()
}

func buildConfig(opts options) backtest.BacktestConfig {
	cfg := backtest.DefaultConfig()
	cfg.BaseCurrency = strings.ToUpper(opts.base)
	cfg.QuoteCurrency = strings.ToUpper(opts.quote)
	cfg.InitialBalance = decimal.NewFromFloat(opts.balance)
	cfg.FeeRate = decimal.NewFromFloat(opts.fee)
	cfg.Trading.BuyDelta = decimal.NewFromFloat(opts.buyDelta)
	cfg.Trading.SellDelta = decimal.NewFromFloat(opts.sellDelta)
	cfg.Trading.OrderPriceDelta = decimal.NewFromFloat(opts.orderDelta)
	cfg.Trading.MinProfitDelta = decimal.NewFromFloat(opts.minProfit)
	cfg.Deposit.ShareFraction = decimal.NewFromFloat(opts.depositShare)
	cfg.Deposit.Enabled = opts.depositShare > 0
	return cfg
}

func loadPrices(opts options) ([]decimal.Decimal, error) {
	format := data.DefaultCSVFormat
	format.PriceColumn = opts.column
	provider := data.NewCSVProviderWithFormat(format)

	points, err := provider.LoadPrices(opts.dataFile)
	if err != nil {
		return nil, err
	}
	if skipped := provider.Skipped(); skipped > 0 {
		log.Printf("Skipped %d rows without a usable %q value", skipped, opts.column)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("no prices in %s", opts.dataFile)
	}
	return types.Prices(points), nil
}

func run(ctx context.Context, opts options) error {
	prices, err := loadPrices(opts)
	if err != nil {
		return err
	}
	cfg := buildConfig(opts)
	fmt.Printf("📊 Loaded %d prices from %s\n", len(prices), opts.dataFile)

	if opts.sweep {
		return runSweep(ctx, cfg, prices, opts)
	}

	if opts.verbose {
		cfg.Logger = logger.New(cfg.BaseCurrency+"-"+cfg.QuoteCurrency, os.Stdout, logger.Config{Level: "debug"})
	}
	report, err := backtest.Run(ctx, cfg, prices)
	if err != nil {
		return err
	}
	reporting.OutputConsole(report)
	return writeOutputs(report, opts)
}

func runSweep(ctx context.Context, cfg backtest.BacktestConfig, prices []decimal.Decimal, opts options) error {
	grid := backtest.DefaultSweepGrid()
	progress := backtest.NewProgressTracker(grid.Size())

	done := make(chan struct{})
	go reportProgress(progress, done)
	results, err := backtest.Sweep(ctx, cfg, grid, prices, opts.workers, progress)
	close(done)
	if err != nil {
		return err
	}

	reporting.NewDefaultConsoleReporter(os.Stdout).OutputSweep(results, opts.top)
	if len(results) == 0 || results[0].Report == nil {
		return fmt.Errorf("no sweep combination completed")
	}

	best := results[0].Report
	fmt.Printf("🏆 Best combination: %s\n", results[0].ID)
	reporting.OutputConsole(best)
	return writeOutputs(best, opts)
}

func reportProgress(progress *backtest.ProgressTracker, done <-chan struct{}) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			completed, total, pct, _ := progress.GetProgress()
			fmt.Printf("🔄 %d/%d (%.0f%%), about %s left\n", completed, total, pct,
				progress.EstimateTimeRemaining().Round(time.Second))
		}
	}
}

func writeOutputs(report *backtest.Report, opts options) error {
	if opts.xlsxPath != "" {
		if err := reporting.WriteReportXLSX(report, opts.xlsxPath); err != nil {
			return fmt.Errorf("failed to write workbook: %w", err)
		}
		fmt.Printf("📁 Workbook written to %s\n", opts.xlsxPath)
	}
	if opts.jsonPath != "" {
		if err := reporting.WriteReportJSON(report, opts.jsonPath); err != nil {
			return fmt.Errorf("failed to write json report: %w", err)
		}
		fmt.Printf("📁 JSON report written to %s\n", opts.jsonPath)
	}
	if opts.csvPath != "" {
		if err := reporting.WriteTradesCSV(report, opts.csvPath); err != nil {
			return fmt.Errorf("failed to write trades csv: %w", err)
		}
		fmt.Printf("📁 Trades written to %s\n", opts.csvPath)
	}
	return nil
}
