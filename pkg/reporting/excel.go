package reporting

import (
	"fmt"
	"math"

	"github.com/ducminhle1904/momentum-trader/internal/backtest"
	"github.com/xuri/excelize/v2"
)

const (
	summarySheet = "Summary"
	tradesSheet  = "Trades"
)

// DefaultExcelReporter writes replay reports as workbooks
type DefaultExcelReporter struct{}

// NewDefaultExcelReporter creates a new Excel reporter
func NewDefaultExcelReporter() *DefaultExcelReporter {
	return &DefaultExcelReporter{}
}

// WriteReportXLSX writes a Summary and a Trades sheet to path
func (r *DefaultExcelReporter) WriteReportXLSX(report *backtest.Report, path string) error {
	if err := EnsureDirectoryExists(path); err != nil {
		return err
	}

	fx := excelize.NewFile()
	defer fx.Close()

	fx.SetSheetName(fx.GetSheetName(0), summarySheet)
	if _, err := fx.NewSheet(tradesSheet); err != nil {
		return err
	}

	styles, err := r.createExcelStyles(fx)
	if err != nil {
		return err
	}
	if err := r.writeSummarySheet(fx, report, styles); err != nil {
		return err
	}
	if err := r.writeTradesSheet(fx, report, styles); err != nil {
		return err
	}
	return fx.SaveAs(path)
}

func (r *DefaultExcelReporter) createExcelStyles(fx *excelize.File) (ExcelStyles, error) {
	var styles ExcelStyles
	var err error

	border := []excelize.Border{
		{Type: "left", Color: "E0E0E0", Style: 1},
		{Type: "right", Color: "E0E0E0", Style: 1},
		{Type: "bottom", Color: "E0E0E0", Style: 1},
	}

	styles.HeaderStyle, err = fx.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF", Family: "Calibri"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"2F4F4F"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return styles, err
	}

	// 4 is #,##0.00
	styles.CurrencyStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    4,
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    border,
	})
	if err != nil {
		return styles, err
	}

	styles.PercentStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    10,
		Alignment: &excelize.Alignment{Horizontal: "right"},
		Border:    border,
	})
	if err != nil {
		return styles, err
	}

	styles.BaseStyle, err = fx.NewStyle(&excelize.Style{Border: border})
	if err != nil {
		return styles, err
	}

	styles.BuyStyle, err = fx.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Color: "1F6F1F", Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"E8F5E8"}, Pattern: 1},
		Border: border,
	})
	if err != nil {
		return styles, err
	}

	styles.SellStyle, err = fx.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Color: "8B1A1A", Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"FDECEA"}, Pattern: 1},
		Border: border,
	})
	if err != nil {
		return styles, err
	}

	styles.SummaryStyle, err = fx.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"F2F2F2"}, Pattern: 1},
		Border: border,
	})
	return styles, err
}

func (r *DefaultExcelReporter) writeSummarySheet(fx *excelize.File, report *backtest.Report, styles ExcelStyles) error {
	sheet := summarySheet
	cfg := report.Config
	fx.SetColWidth(sheet, "A", "A", 24)
	fx.SetColWidth(sheet, "B", "B", 22)

	for i, h := range []string{"Metric", "Value"} {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		fx.SetCellValue(sheet, cell, h)
		fx.SetCellStyle(sheet, cell, cell, styles.HeaderStyle)
	}

	profitFactor := interface{}(report.ProfitFactor)
	if math.IsInf(report.ProfitFactor, 1) {
		profitFactor = "∞"
	}

	rows := []struct {
		label string
		value interface{}
		style int
	}{
		{"Product", cfg.BaseCurrency + "-" + cfg.QuoteCurrency, styles.BaseStyle},
		{"Prices", report.Prices, styles.BaseStyle},
		{"Buy Delta", cfg.Trading.BuyDelta.InexactFloat64(), styles.PercentStyle},
		{"Sell Delta", cfg.Trading.SellDelta.InexactFloat64(), styles.PercentStyle},
		{"Order Price Delta", cfg.Trading.OrderPriceDelta.InexactFloat64(), styles.PercentStyle},
		{"Min Profit Delta", cfg.Trading.MinProfitDelta.InexactFloat64(), styles.PercentStyle},
		{"Fee Rate", cfg.FeeRate.InexactFloat64(), styles.PercentStyle},
		{"Initial Balance", cfg.InitialBalance.InexactFloat64(), styles.CurrencyStyle},
		{"Final Quote", report.FinalQuote.InexactFloat64(), styles.CurrencyStyle},
		{"Final Base", report.FinalBase.String(), styles.BaseStyle},
		{"Final Value", report.FinalValue.InexactFloat64(), styles.CurrencyStyle},
		{"Realized Profit", report.Profit.InexactFloat64(), styles.CurrencyStyle},
		{"Transferred", report.Transferred.InexactFloat64(), styles.CurrencyStyle},
		{"Total Return", report.TotalReturn, styles.PercentStyle},
		{"Max Drawdown", report.MaxDrawdown, styles.PercentStyle},
		{"Profit Factor", profitFactor, styles.BaseStyle},
		{"Buys", report.Buys, styles.BaseStyle},
		{"Sells", report.Sells, styles.BaseStyle},
		{"Win Rate", report.WinRate(), styles.PercentStyle},
		{"Open At End", report.OpenAtEnd, styles.BaseStyle},
	}
	if report.Halted != nil {
		rows = append(rows, struct {
			label string
			value interface{}
			style int
		}{"Halted", report.Halted.Error(), styles.SellStyle})
	}

	for i, row := range rows {
		n := i + 2
		label := fmt.Sprintf("A%d", n)
		value := fmt.Sprintf("B%d", n)
		fx.SetCellValue(sheet, label, row.label)
		fx.SetCellStyle(sheet, label, label, styles.SummaryStyle)
		fx.SetCellValue(sheet, value, row.value)
		fx.SetCellStyle(sheet, value, value, row.style)
	}
	return nil
}

func (r *DefaultExcelReporter) writeTradesSheet(fx *excelize.File, report *backtest.Report, styles ExcelStyles) error {
	sheet := tradesSheet
	widths := []float64{8, 24, 14, 14, 16, 12, 14, 14}
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		fx.SetColWidth(sheet, col, col, w)
	}

	for i, h := range tradeColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		fx.SetCellValue(sheet, cell, h)
		fx.SetCellStyle(sheet, cell, cell, styles.HeaderStyle)
	}

	for i, t := range report.Trades {
		row := i + 2
		values := []interface{}{
			t.Side,
			t.OrderID,
			t.Price.InexactFloat64(),
			t.Size.String(),
			t.ExecutedValue.InexactFloat64(),
			t.Fees.InexactFloat64(),
			nil,
			nil,
		}
		if t.Side == "sell" {
			values[6] = t.Profit.InexactFloat64()
			values[7] = t.Transferred.InexactFloat64()
		}

		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if v != nil {
				fx.SetCellValue(sheet, cell, v)
			}
			switch {
			case col == 0 && t.Side == "buy":
				fx.SetCellStyle(sheet, cell, cell, styles.BuyStyle)
			case col == 0:
				fx.SetCellStyle(sheet, cell, cell, styles.SellStyle)
			case col == 2 || col >= 4:
				fx.SetCellStyle(sheet, cell, cell, styles.CurrencyStyle)
			default:
				fx.SetCellStyle(sheet, cell, cell, styles.BaseStyle)
			}
		}
	}

	if len(report.Trades) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(tradeColumns), len(report.Trades)+1)
		if err := fx.AutoFilter(sheet, "A1:"+last, []excelize.AutoFilterOptions{}); err != nil {
			return err
		}
	}
	return fx.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

// WriteReportXLSX is a convenience function using the default Excel reporter
func WriteReportXLSX(report *backtest.Report, path string) error {
	return NewDefaultExcelReporter().WriteReportXLSX(report, path)
}
