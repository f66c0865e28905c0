package reporting

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/ducminhle1904/momentum-trader/internal/backtest"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// DefaultConsoleReporter renders reports as go-pretty tables
type DefaultConsoleReporter struct {
	out io.Writer
}

// NewDefaultConsoleReporter creates a console reporter writing to out, or stdout when nil
func NewDefaultConsoleReporter(out io.Writer) *DefaultConsoleReporter {
	if out == nil {
		out = os.Stdout
	}
	return &DefaultConsoleReporter{out: out}
}

func (r *DefaultConsoleReporter) newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)
	return t
}

// OutputReport prints the summary of one replay
func (r *DefaultConsoleReporter) OutputReport(report *backtest.Report) {
	cfg := report.Config
	quote := cfg.QuoteCurrency

	t := r.newTable("BACKTEST RESULTS")
	t.AppendRows([]table.Row{
		{"📊 Product", cfg.BaseCurrency + "-" + quote},
		{"🔢 Prices", report.Prices},
		{"📈 Buy Delta", formatPercent(cfg.Trading.BuyDelta.InexactFloat64())},
		{"📉 Sell Delta", formatPercent(cfg.Trading.SellDelta.InexactFloat64())},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"💰 Initial Balance", formatMoney(cfg.InitialBalance.StringFixed(2), quote)},
		{"💰 Final Value", formatMoney(report.FinalValue.StringFixed(2), quote)},
		{"💵 Realized Profit", formatMoney(report.Profit.StringFixed(2), quote)},
		{"🏦 Transferred", formatMoney(report.Transferred.StringFixed(2), quote)},
		{"📈 Total Return", formatPercent(report.TotalReturn)},
		{"📉 Max Drawdown", formatPercent(report.MaxDrawdown)},
		{"💹 Profit Factor", formatRatio(report.ProfitFactor)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"🔄 Buys / Sells", fmt.Sprintf("%d / %d", report.Buys, report.Sells)},
		{"✅ Winning Trades", fmt.Sprintf("%d (%.1f%%)", report.WinningTrades, report.WinRate()*100)},
		{"❌ Losing Trades", report.LosingTrades},
		{"🎯 Open At End", report.OpenAtEnd},
	})
	if report.Halted != nil {
		t.AppendSeparator()
		t.AppendRow(table.Row{"🚨 Halted", report.Halted.Error()})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 18, WidthMax: 18, Align: text.AlignLeft},
		{Number: 2, WidthMin: 20, WidthMax: 60, Align: text.AlignLeft},
	})
	t.Render()
	fmt.Fprintln(r.out)
}

// OutputTrades prints every journaled fill of a replay
func (r *DefaultConsoleReporter) OutputTrades(report *backtest.Report) {
	t := r.newTable("TRADES")
	t.AppendHeader(table.Row{"#", "Side", "Price", "Size", "Value", "Fees", "Profit", "Transferred"})
	for i, tr := range report.Trades {
		row := table.Row{i + 1, tr.Side, tr.Price.String(), tr.Size.String(),
			tr.ExecutedValue.StringFixed(2), tr.Fees.StringFixed(4), "", ""}
		if tr.Side == "sell" {
			row[6] = tr.Profit.StringFixed(2)
			row[7] = tr.Transferred.StringFixed(2)
		}
		t.AppendRow(row)
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
		{Number: 8, Align: text.AlignRight},
	})
	t.Render()
	fmt.Fprintln(r.out)
}

// OutputSweep prints the best top results of a ranked sweep; top <= 0 prints all
func (r *DefaultConsoleReporter) OutputSweep(results []backtest.BacktestResult, top int) {
	if top <= 0 || top > len(results) {
		top = len(results)
	}

	t := r.newTable(fmt.Sprintf("SWEEP RANKING (top %d of %d)", top, len(results)))
	t.AppendHeader(table.Row{"Rank", "Buy Delta", "Sell Delta", "Profit", "Return", "Trades", "Max DD"})
	for i, res := range results[:top] {
		if res.Report == nil {
			t.AppendRow(table.Row{i + 1, res.ID, "", "error", res.Error, "", ""})
			continue
		}
		rep := res.Report
		t.AppendRow(table.Row{
			i + 1,
			formatPercent(rep.Config.Trading.BuyDelta.InexactFloat64()),
			formatPercent(rep.Config.Trading.SellDelta.InexactFloat64()),
			rep.Profit.StringFixed(2),
			formatPercent(rep.TotalReturn),
			rep.Buys + rep.Sells,
			formatPercent(rep.MaxDrawdown),
		})
	}
	t.Render()
	fmt.Fprintln(r.out)
}

// StartupRow is one label/value line of a startup table
type StartupRow struct {
	Label string
	Value interface{}
}

// PrintStartupTable prints a two-column titled table
func PrintStartupTable(out io.Writer, title string, rows []StartupRow) {
	r := NewDefaultConsoleReporter(out)
	t := r.newTable(title)
	for _, row := range rows {
		if row.Label == "" {
			t.AppendSeparator()
			continue
		}
		t.AppendRow(table.Row{row.Label, row.Value})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 18, WidthMax: 18, Align: text.AlignLeft},
		{Number: 2, WidthMin: 25, WidthMax: 40, Align: text.AlignLeft},
	})
	t.Render()
	fmt.Fprintln(out)
}

func formatMoney(amount, currency string) string {
	return amount + " " + currency
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

func formatRatio(v float64) string {
	if math.IsInf(v, 1) {
		return "∞"
	}
	return fmt.Sprintf("%.2f", v)
}

// OutputConsole prints a report and its trades to stdout
func OutputConsole(report *backtest.Report) {
	r := NewDefaultConsoleReporter(nil)
	r.OutputReport(report)
	if len(report.Trades) > 0 {
		r.OutputTrades(report)
	}
}
