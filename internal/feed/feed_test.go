package feed

import (
	"context"
	"testing"
	"time"

	"github.com/ducminhle1904/momentum-trader/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceCell_LastWriteWins(t *testing.T) {
	var cell PriceCell
	_, _, ok := cell.Load()
	assert.False(t, ok)

	cell.OnTick(types.Ticker{Price: decimal.NewFromInt(1)})
	cell.OnTick(types.Ticker{Price: decimal.NewFromInt(2)})

	price, at, ok := cell.Load()
	require.True(t, ok)
	assert.Equal(t, "2", price.String())
	assert.False(t, at.IsZero())
}

func TestLiveSource_WaitsForFirstPrice(t *testing.T) {
	var cell PriceCell
	src := NewLiveSource(&cell, time.Millisecond)

	go func() {
		time.Sleep(5 * time.Millisecond)
		cell.Store(decimal.NewFromInt(42), time.Now())
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	price, err := src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "42", price.String())

	cell.Store(decimal.NewFromInt(43), time.Now())
	price, err = src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "43", price.String())
}

func TestLiveSource_Cancelled(t *testing.T) {
	var cell PriceCell
	src := NewLiveSource(&cell, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := src.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReplaySource(t *testing.T) {
	var observed []string
	src := NewReplaySource([]decimal.Decimal{decimal.NewFromInt(1), decimal.NewFromInt(2)})
	src.OnPrice = func(p decimal.Decimal) { observed = append(observed, p.String()) }

	ctx := context.Background()
	for _, want := range []string{"1", "2"} {
		p, err := src.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, p.String())
	}
	_, err := src.Next(ctx)
	assert.ErrorIs(t, err, ErrSourceExhausted)
	assert.Equal(t, 2, src.Position())
	assert.Equal(t, []string{"1", "2"}, observed)
}
