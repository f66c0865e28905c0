package data

import (
	"time"

	"github.com/ducminhle1904/momentum-trader/pkg/types"
)

// PriceProvider loads a historical price series for replay
type PriceProvider interface {
	// LoadPrices loads the price series from the specified source
	LoadPrices(source string) ([]types.PricePoint, error)

	// GetName returns the name of the data provider
	GetName() string
}

// CSVFormat describes which columns of a headered CSV file to read
type CSVFormat struct {
	PriceColumn     string
	TimestampColumn string
	// DateFormats are tried in order; a numeric value is read as unix seconds or milliseconds
	DateFormats []string
}

// DefaultCSVFormat reads the "high" column, the series the momentum analyzer was tuned on
var DefaultCSVFormat = CSVFormat{
	PriceColumn:     "high",
	TimestampColumn: "timestamp",
	DateFormats: []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02",
	},
}
