// Package reporting renders replay reports to the console, workbooks, CSV and JSON.
package reporting

import (
	"github.com/ducminhle1904/momentum-trader/internal/backtest"
)

// ConsoleReporter defines interface for console output
type ConsoleReporter interface {
	OutputReport(report *backtest.Report)
	OutputSweep(results []backtest.BacktestResult, top int)
}

// FileReporter defines interface for file output
type FileReporter interface {
	WriteTradesCSV(report *backtest.Report, path string) error
	WriteReportXLSX(report *backtest.Report, path string) error
	WriteReportJSON(report *backtest.Report, path string) error
}

// ExcelStyles holds Excel formatting styles
type ExcelStyles struct {
	HeaderStyle   int
	CurrencyStyle int
	PercentStyle  int
	BaseStyle     int
	BuyStyle      int
	SellStyle     int
	SummaryStyle  int
}
