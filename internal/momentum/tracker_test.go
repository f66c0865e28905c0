package momentum

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func series(values ...string) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		out[i] = d(v)
	}
	return out
}

func TestTracker_DistributeMonotonicity(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	price := decimal.NewFromInt(100)
	tr := NewTracker(Distribute, price)

	maxSinceReset, minSinceReset := price, price
	for i := 0; i < 2000; i++ {
		step := decimal.NewFromFloat(rng.Float64()*2 - 1).Round(4)
		price = price.Add(step)

		sig := tr.Observe(price)
		if sig == NewPeak {
			maxSinceReset, minSinceReset = price, price
		} else {
			maxSinceReset = decimal.Max(maxSinceReset, price)
			minSinceReset = decimal.Min(minSinceReset, price)
		}

		ex := tr.Extremes()
		require.True(t, ex.Peak.Equal(maxSinceReset), "step %d peak %s want %s", i, ex.Peak, maxSinceReset)
		require.True(t, ex.Valley.Equal(minSinceReset), "step %d valley %s want %s", i, ex.Valley, minSinceReset)
	}
}

func TestTracker_AccumulateMonotonicity(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	price := decimal.NewFromInt(100)
	tr := NewTracker(Accumulate, price)

	maxSinceReset, minSinceReset := price, price
	for i := 0; i < 2000; i++ {
		price = price.Add(decimal.NewFromFloat(rng.Float64()*2 - 1).Round(4))

		if tr.Observe(price) == NewValley {
			maxSinceReset, minSinceReset = price, price
		} else {
			maxSinceReset = decimal.Max(maxSinceReset, price)
			minSinceReset = decimal.Min(minSinceReset, price)
		}

		ex := tr.Extremes()
		require.True(t, ex.Peak.Equal(maxSinceReset))
		require.True(t, ex.Valley.Equal(minSinceReset))
	}
}

func TestUpdate_Classification(t *testing.T) {
	start := Extremes{Peak: d("100"), Valley: d("95")}

	tests := []struct {
		name   string
		phase  Phase
		price  string
		want   Extremes
		signal Signal
	}{
		{"distribute new high resets both", Distribute, "101", Extremes{d("101"), d("101")}, NewPeak},
		{"distribute new low moves valley", Distribute, "94", Extremes{d("100"), d("94")}, NewValley},
		{"accumulate new high moves peak", Accumulate, "101", Extremes{d("101"), d("95")}, NewPeak},
		{"accumulate new low resets both", Accumulate, "94", Extremes{d("94"), d("94")}, NewValley},
		{"inside range", Distribute, "97", start, NoChange},
		{"equal to peak", Accumulate, "100", start, NoChange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, sig := Update(tt.phase, start, d(tt.price))
			assert.Equal(t, tt.signal, sig)
			assert.True(t, got.Peak.Equal(tt.want.Peak), "peak %s", got.Peak)
			assert.True(t, got.Valley.Equal(tt.want.Valley), "valley %s", got.Valley)
		})
	}
}

func TestTracker_BuyThresholdScenario(t *testing.T) {
	delta := d("0.01")
	tr := NewTracker(Accumulate, d("100"))

	var hits []string
	for _, p := range series("100", "100.5", "101", "101.5") {
		if tr.Observe(p) == NewPeak && tr.Extremes().RiseReached(delta) {
			hits = append(hits, p.String())
		}
	}
	// 101.5 also clears the threshold; the engine leaves the cycle after the first hit
	assert.Equal(t, []string{"101", "101.5"}, hits)
}

func TestTracker_FallingSeriesNeverReachesBuy(t *testing.T) {
	delta := d("0.01")
	tr := NewTracker(Accumulate, d("100"))

	for _, p := range series("100", "99", "98") {
		tr.Observe(p)
		assert.False(t, tr.Extremes().RiseReached(delta))
	}
	assert.True(t, tr.Extremes().Valley.Equal(d("98")))
	assert.True(t, tr.Extremes().Peak.Equal(d("98")))
}

func TestExtremes_FallReached(t *testing.T) {
	ex := Extremes{Peak: d("110"), Valley: d("107.8")}
	assert.True(t, ex.FallReached(d("0.02")))
	assert.False(t, Extremes{Peak: d("110"), Valley: d("107.81")}.FallReached(d("0.02")))
}

func TestSignal_String(t *testing.T) {
	assert.Equal(t, "NEW_PEAK", NewPeak.String())
	assert.Equal(t, "NEW_VALLEY", NewValley.String())
	assert.Equal(t, "NO_CHANGE", NoChange.String())
	assert.Equal(t, "distribute", Distribute.String())
}
