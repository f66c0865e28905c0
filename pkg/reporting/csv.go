package reporting

import (
	"encoding/csv"
	"os"
	"strings"

	"github.com/ducminhle1904/momentum-trader/internal/backtest"
)

var tradeColumns = []string{
	"Side",
	"Order_ID",
	"Price",
	"Size",
	"Executed_Value",
	"Fees",
	"Profit",
	"Transferred",
}

func tradeCells(report *backtest.Report) [][]string {
	rows := make([][]string, 0, len(report.Trades))
	for _, t := range report.Trades {
		profit, transferred := "", ""
		if t.Side == "sell" {
			profit = t.Profit.String()
			transferred = t.Transferred.String()
		}
		rows = append(rows, []string{
			t.Side,
			t.OrderID,
			t.Price.String(),
			t.Size.String(),
			t.ExecutedValue.String(),
			t.Fees.String(),
			profit,
			transferred,
		})
	}
	return rows
}

// WriteTradesCSV writes the replay fills to path. A .xlsx path is written as a workbook.
func WriteTradesCSV(report *backtest.Report, path string) error {
	if err := EnsureDirectoryExists(path); err != nil {
		return err
	}
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return WriteReportXLSX(report, path)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(tradeColumns); err != nil {
		return err
	}
	if err := w.WriteAll(tradeCells(report)); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
