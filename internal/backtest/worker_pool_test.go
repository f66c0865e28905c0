package backtest

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSweepGrid(t *testing.T) {
	grid := DefaultSweepGrid()
	assert.Equal(t, 100, grid.Size())
	assert.True(t, grid.BuyDeltas[0].Equal(d("0.005")))
	assert.True(t, grid.SellDeltas[9].Equal(d("0.05")))
}

func TestSweep_RanksByProfit(t *testing.T) {
	grid := SweepGrid{
		BuyDeltas:  []decimal.Decimal{d("0.5"), d("0.01")},
		SellDeltas: []decimal.Decimal{d("0.02")},
	}
	progress := NewProgressTracker(grid.Size())

	results, err := Sweep(context.Background(), testConfig(), grid,
		series("100", "101", "110", "107.8", "107"), 2, progress)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "buy_0.01_sell_0.02", results[0].ID)
	require.NoError(t, results[0].Error)
	assert.True(t, results[0].Report.Profit.IsPositive())
	assert.Equal(t, "buy_0.5_sell_0.02", results[1].ID)
	assert.True(t, results[1].Report.Profit.IsZero())

	done, total, pct, _ := progress.GetProgress()
	assert.Equal(t, 2, done)
	assert.Equal(t, 2, total)
	assert.Equal(t, 100.0, pct)
}

func TestSweep_InvalidJobRanksLast(t *testing.T) {
	grid := SweepGrid{
		BuyDeltas:  []decimal.Decimal{d("1.5"), d("0.01")},
		SellDeltas: []decimal.Decimal{d("0.02")},
	}

	results, err := Sweep(context.Background(), testConfig(), grid, series("100", "101"), 0, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.NoError(t, results[0].Error)
	assert.Error(t, results[1].Error)
	assert.Nil(t, results[1].Report)
}

func TestSweep_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Sweep(ctx, testConfig(), DefaultSweepGrid(), series("100"), 1, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
