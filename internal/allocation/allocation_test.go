package allocation

import (
	"context"
	stderrors "errors"
	"testing"

	boterrors "github.com/ducminhle1904/momentum-trader/internal/errors"
	"github.com/ducminhle1904/momentum-trader/internal/exchange"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type stubTransfers struct {
	calls []exchange.TransferParams
	err   error
}

func (s *stubTransfers) TransferFunds(ctx context.Context, params exchange.TransferParams) (*exchange.TransferResult, error) {
	s.calls = append(s.calls, params)
	if s.err != nil {
		return nil, s.err
	}
	return &exchange.TransferResult{ID: "t-1"}, nil
}

var route = Route{FromProfileID: "trade", ToProfileID: "deposit", Currency: "USD", QuotePrecision: 2}

func TestProfitFloor(t *testing.T) {
	acquiredCost := d("100.5")
	minProfit := d("0.01")
	size := d("1")

	// floor is 100.5 × 1.02 = 102.51
	assert.Equal(t, "102.51", RequiredProceeds(acquiredCost, minProfit, d("0.005")).String())

	tests := []struct {
		name   string
		valley string
		delta  string
		fee    string
		want   bool
	}{
		{"well above floor", "107.8", "0.001", "0.005", true},
		{"below floor", "102", "0.001", "0.005", false},
		// without fees the floor is 100.5 × 1.01 = 101.505
		{"exactly at floor is rejected", "101.505", "0", "0", false},
		{"just above floor", "101.506", "0", "0", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClearsProfitFloor(d(tt.valley), d(tt.delta), size, d(tt.fee), acquiredCost, minProfit)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRealizedProfit(t *testing.T) {
	assert.Equal(t, "5.9", RealizedProfit(d("107"), d("0.6"), d("100.5")).String())
	assert.Equal(t, "100.5", AcquisitionCost(d("100"), d("0.5")).String())
}

func TestAllocator_TransfersRoundedShare(t *testing.T) {
	stub := &stubTransfers{}
	a := NewAllocator(stub, Config{Enabled: true, ShareFraction: d("0.5")}, route, nil)

	res, err := a.Allocate(context.Background(), d("3.337"))
	require.NoError(t, err)

	require.Len(t, stub.calls, 1)
	assert.Equal(t, "1.67", stub.calls[0].Amount.String())
	assert.Equal(t, "trade", stub.calls[0].FromProfileID)
	assert.Equal(t, "deposit", stub.calls[0].ToProfileID)
	assert.Equal(t, "USD", stub.calls[0].Currency)
	assert.Equal(t, "t-1", res.TransferID)
	assert.False(t, res.Skipped)
}

func TestAllocator_Skips(t *testing.T) {
	tests := []struct {
		name   string
		cfg    Config
		profit string
	}{
		{"disabled", Config{Enabled: false, ShareFraction: d("0.5")}, "10"},
		{"non-positive profit", Config{Enabled: true, ShareFraction: d("0.5")}, "0"},
		{"zero share", Config{Enabled: true, ShareFraction: decimal.Zero}, "10"},
		{"rounds to zero", Config{Enabled: true, ShareFraction: d("0.1")}, "0.01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubTransfers{}
			res, err := NewAllocator(stub, tt.cfg, route, nil).Allocate(context.Background(), d(tt.profit))
			require.NoError(t, err)
			assert.True(t, res.Skipped)
			assert.Empty(t, stub.calls)
		})
	}
}

func TestAllocator_TransferFailureIsNotFatal(t *testing.T) {
	stub := &stubTransfers{err: stderrors.New("transfer rejected")}
	a := NewAllocator(stub, Config{Enabled: true, ShareFraction: d("0.4")}, route, nil)

	res, err := a.Allocate(context.Background(), d("10"))
	require.Error(t, err)
	assert.False(t, boterrors.IsFatal(err))
	assert.Equal(t, "4", res.Amount.String())
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, Config{ShareFraction: d("1")}.Validate())
	assert.Error(t, Config{ShareFraction: d("1.1")}.Validate())
	assert.Error(t, Config{ShareFraction: d("-0.1")}.Validate())
}
