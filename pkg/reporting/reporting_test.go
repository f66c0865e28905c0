package reporting

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ducminhle1904/momentum-trader/internal/backtest"
	"github.com/ducminhle1904/momentum-trader/internal/journal"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sampleReport() *backtest.Report {
	r := &backtest.Report{
		Config: backtest.DefaultConfig(),
		Prices: 5,
		Trades: []journal.TradeRecord{
			{Side: "buy", OrderID: "paper-order-1", Price: d("101"), Size: d("4.9"), ExecutedValue: d("494.9"), Fees: d("2.4745")},
			{Side: "sell", OrderID: "paper-order-2", Price: d("107.8"), Size: d("4.9"), ExecutedValue: d("528.22"), Fees: d("2.6411"),
				Profit: d("28.2044"), Transferred: d("14.1")},
		},
		FinalQuote: d("514.9044"),
		LastPrice:  d("107"),
	}
	r.UpdateMetrics()
	return r
}

func TestConsoleReporter_OutputReport(t *testing.T) {
	var buf bytes.Buffer
	r := NewDefaultConsoleReporter(&buf)
	report := sampleReport()
	report.Halted = errors.New("unprofitable fill")

	r.OutputReport(report)
	r.OutputTrades(report)

	out := buf.String()
	assert.Contains(t, out, "BACKTEST RESULTS")
	assert.Contains(t, out, "BTC-USD")
	assert.Contains(t, out, "28.20 USD")
	assert.Contains(t, out, "∞")
	assert.Contains(t, out, "unprofitable fill")
	assert.Contains(t, out, "107.8")
}

func TestConsoleReporter_OutputSweep(t *testing.T) {
	var buf bytes.Buffer
	good := sampleReport()
	results := []backtest.BacktestResult{
		{ID: "buy_0.015_sell_0.02", Report: good},
		{ID: "buy_1.5_sell_0.02", Error: errors.New("invalid buy delta")},
	}

	NewDefaultConsoleReporter(&buf).OutputSweep(results, 0)

	out := buf.String()
	assert.Contains(t, out, "top 2 of 2")
	assert.Contains(t, out, "1.50%")
	assert.Contains(t, out, "invalid buy delta")
}

func TestPrintStartupTable(t *testing.T) {
	var buf bytes.Buffer
	PrintStartupTable(&buf, "BOT INITIALIZATION", []StartupRow{
		{Label: "Product", Value: "BTC-USD"},
		{},
		{Label: "Mode", Value: "dry run"},
	})
	out := buf.String()
	assert.Contains(t, out, "BOT INITIALIZATION")
	assert.Contains(t, out, "BTC-USD")
	assert.Contains(t, out, "dry run")
}

func TestWriteReportJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report.json")
	require.NoError(t, WriteReportJSON(sampleReport(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "BTC-USD", decoded["product"])
	assert.Equal(t, "28.2044", decoded["profit"])
	assert.Nil(t, decoded["profit_factor"])
	assert.Len(t, decoded["trades"], 2)
}

func TestFormatReport_FiniteProfitFactor(t *testing.T) {
	r := sampleReport()
	r.ProfitFactor = 2.5
	require.False(t, math.IsInf(r.ProfitFactor, 0))

	data, err := FormatReport(r)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"profit_factor": 2.5`)
}

func TestWriteTradesCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	require.NoError(t, WriteTradesCSV(sampleReport(), path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, tradeColumns, rows[0])
	assert.Equal(t, "buy", rows[1][0])
	assert.Equal(t, "", rows[1][6])
	assert.Equal(t, "28.2044", rows[2][6])
	assert.Equal(t, "14.1", rows[2][7])
}

func TestWriteReportXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, WriteTradesCSV(sampleReport(), path))

	fx, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer fx.Close()

	assert.Equal(t, []string{summarySheet, tradesSheet}, fx.GetSheetList())

	product, err := fx.GetCellValue(summarySheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "BTC-USD", product)

	side, err := fx.GetCellValue(tradesSheet, "A3")
	require.NoError(t, err)
	assert.Equal(t, "sell", side)

	order, err := fx.GetCellValue(tradesSheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "paper-order-1", order)
}

func TestDefaultOutputDir(t *testing.T) {
	assert.Equal(t, filepath.Join("results", "BTC-USD"), DefaultOutputDir(" btc-usd "))
	assert.Equal(t, filepath.Join("results", "UNKNOWN"), DefaultOutputDir(""))
}
