// Package feed turns ticker streams and recorded series into the price
// sequence the trading engine consumes.
package feed

import (
	"sync/atomic"
	"time"

	"github.com/ducminhle1904/momentum-trader/pkg/types"
	"github.com/shopspring/decimal"
)

type sample struct {
	price decimal.Decimal
	at    time.Time
}

// PriceCell holds the latest observed price. One writer (the ticker feed)
// stores, any number of readers load; last write wins.
type PriceCell struct {
	v atomic.Pointer[sample]
}

// Store records price as the latest value
func (c *PriceCell) Store(price decimal.Decimal, at time.Time) {
	c.v.Store(&sample{price: price, at: at})
}

// OnTick adapts the cell to an exchange.TickerFeed callback
func (c *PriceCell) OnTick(t types.Ticker) {
	at := t.Timestamp
	if at.IsZero() {
		at = time.Now()
	}
	c.Store(t.Price, at)
}

// Load returns the latest price, or false before the first store
func (c *PriceCell) Load() (decimal.Decimal, time.Time, bool) {
	s := c.v.Load()
	if s == nil {
		return decimal.Zero, time.Time{}, false
	}
	return s.price, s.at, true
}
