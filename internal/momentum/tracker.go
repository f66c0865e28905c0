// Package momentum tracks running price extremes for the swing trigger.
package momentum

import "github.com/shopspring/decimal"

// Signal classifies a price sample against the current extremes
type Signal int

const (
	NoChange Signal = iota
	NewPeak
	NewValley
)

func (s Signal) String() string {
	switch s {
	case NewPeak:
		return "NEW_PEAK"
	case NewValley:
		return "NEW_VALLEY"
	default:
		return "NO_CHANGE"
	}
}

// Phase selects which extreme anchors a run
type Phase int

const (
	// Accumulate watches for a rise off the most recent low. A new low resets
	// both extremes; a new high moves only the peak.
	Accumulate Phase = iota
	// Distribute watches for a fall off the most recent high. A new high resets
	// both extremes; a new low moves only the valley.
	Distribute
)

func (p Phase) String() string {
	if p == Distribute {
		return "distribute"
	}
	return "accumulate"
}

// Extremes is the running peak/valley pair of one cycle
type Extremes struct {
	Peak   decimal.Decimal
	Valley decimal.Decimal
}

// Tracker owns the extremes of the active cycle
type Tracker struct {
	phase    Phase
	extremes Extremes
}

// NewTracker starts a run with both extremes at price
func NewTracker(phase Phase, price decimal.Decimal) *Tracker {
	return &Tracker{
		phase:    phase,
		extremes: Extremes{Peak: price, Valley: price},
	}
}

// Phase returns the phase the tracker was started in
func (t *Tracker) Phase() Phase {
	return t.phase
}

// Extremes returns the current pair
func (t *Tracker) Extremes() Extremes {
	return t.extremes
}

// Reset moves both extremes to price
func (t *Tracker) Reset(price decimal.Decimal) {
	t.extremes = Extremes{Peak: price, Valley: price}
}

// Observe folds a sample into the extremes and classifies it
func (t *Tracker) Observe(price decimal.Decimal) Signal {
	var sig Signal
	t.extremes, sig = Update(t.phase, t.extremes, price)
	return sig
}

// Update is the pure transition function behind Tracker.Observe
func Update(phase Phase, prev Extremes, price decimal.Decimal) (Extremes, Signal) {
	switch {
	case price.GreaterThan(prev.Peak):
		if phase == Distribute {
			return Extremes{Peak: price, Valley: price}, NewPeak
		}
		return Extremes{Peak: price, Valley: prev.Valley}, NewPeak
	case price.LessThan(prev.Valley):
		if phase == Accumulate {
			return Extremes{Peak: price, Valley: price}, NewValley
		}
		return Extremes{Peak: prev.Peak, Valley: price}, NewValley
	default:
		return prev, NoChange
	}
}

// RiseReached reports peak >= valley*(1+delta)
func (e Extremes) RiseReached(delta decimal.Decimal) bool {
	return e.Peak.GreaterThanOrEqual(e.Valley.Mul(decimal.NewFromInt(1).Add(delta)))
}

// FallReached reports valley <= peak*(1-delta)
func (e Extremes) FallReached(delta decimal.Decimal) bool {
	return e.Valley.LessThanOrEqual(e.Peak.Mul(decimal.NewFromInt(1).Sub(delta)))
}
