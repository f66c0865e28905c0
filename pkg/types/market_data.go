package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ticker is one price update from a streaming feed
type Ticker struct {
	ProductID string
	Price     decimal.Decimal
	Sequence  int64
	Timestamp time.Time
}

// PricePoint is one sample of a historical price series
type PricePoint struct {
	Timestamp time.Time
	Price     decimal.Decimal
}

// Prices returns the bare price values of a series
func Prices(points []PricePoint) []decimal.Decimal {
	out := make([]decimal.Decimal, len(points))
	for i, p := range points {
		out[i] = p.Price
	}
	return out
}
