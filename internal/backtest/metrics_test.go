package backtest

import (
	"testing"

	"github.com/ducminhle1904/momentum-trader/internal/journal"
	"github.com/stretchr/testify/assert"
)

func TestReport_ProfitFactorAndDrawdown(t *testing.T) {
	r := &Report{
		Config: BacktestConfig{InitialBalance: d("1000")},
		Trades: []journal.TradeRecord{
			{Side: "buy", Price: d("100"), Size: d("10"), ExecutedValue: d("1000")},
			{Side: "sell", Price: d("90"), Size: d("10"), ExecutedValue: d("900"), Profit: d("-100")},
			{Side: "buy", Price: d("90"), Size: d("10"), ExecutedValue: d("900")},
			{Side: "sell", Price: d("120"), Size: d("10"), ExecutedValue: d("1200"), Profit: d("300")},
		},
		FinalQuote: d("1200"),
	}
	r.UpdateMetrics()

	assert.Equal(t, 2, r.Buys)
	assert.Equal(t, 2, r.Sells)
	assert.True(t, r.Profit.Equal(d("200")))
	assert.Equal(t, 1, r.WinningTrades)
	assert.Equal(t, 1, r.LosingTrades)
	assert.Equal(t, 0.5, r.WinRate())
	assert.InDelta(t, 3.0, r.ProfitFactor, 1e-9)
	// 1000 -> 900 is the deepest fall
	assert.InDelta(t, 0.1, r.MaxDrawdown, 1e-9)
	assert.True(t, r.FinalValue.Equal(d("1200")))
	assert.InDelta(t, 0.2, r.TotalReturn, 1e-9)
}

func TestReport_WinRateWithoutSells(t *testing.T) {
	r := &Report{}
	r.UpdateMetrics()
	assert.Equal(t, 0.0, r.WinRate())
	assert.Equal(t, 0.0, r.MaxDrawdown)
}
