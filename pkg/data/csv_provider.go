package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ducminhle1904/momentum-trader/pkg/types"
	"github.com/shopspring/decimal"
)

// CSVProvider implements PriceProvider for headered CSV files
type CSVProvider struct {
	format  CSVFormat
	skipped int
}

// NewCSVProvider creates a new CSV data provider with default format
func NewCSVProvider() *CSVProvider {
	return &CSVProvider{format: DefaultCSVFormat}
}

// NewCSVProviderWithFormat creates a new CSV data provider with custom format
func NewCSVProviderWithFormat(format CSVFormat) *CSVProvider {
	if len(format.DateFormats) == 0 {
		format.DateFormats = DefaultCSVFormat.DateFormats
	}
	return &CSVProvider{format: format}
}

// GetName returns the name of the data provider
func (p *CSVProvider) GetName() string {
	return "CSV Provider"
}

// Skipped returns how many rows the last load dropped
func (p *CSVProvider) Skipped() int {
	return p.skipped
}

// LoadPrices loads a price series from a CSV file
func (p *CSVProvider) LoadPrices(source string) ([]types.PricePoint, error) {
	file, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("failed to open price file: %w", err)
	}
	defer file.Close()

	return p.Read(file)
}

// Read parses a CSV stream. Rows without a positive price in the selected
// column are skipped and counted.
func (p *CSVProvider) Read(r io.Reader) ([]types.PricePoint, error) {
	p.skipped = 0

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	priceCol, tsCol := -1, -1
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		switch name {
		case strings.ToLower(p.format.PriceColumn):
			priceCol = i
		case strings.ToLower(p.format.TimestampColumn):
			tsCol = i
		}
	}
	if priceCol < 0 {
		return nil, fmt.Errorf("price column %q not found in header %v", p.format.PriceColumn, header)
	}

	var points []types.PricePoint
	lineNum := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		lineNum++
		if err != nil {
			return nil, fmt.Errorf("error reading CSV at line %d: %w", lineNum, err)
		}

		if priceCol >= len(record) {
			p.skipped++
			continue
		}
		price, err := decimal.NewFromString(strings.TrimSpace(record[priceCol]))
		if err != nil || !price.IsPositive() {
			p.skipped++
			continue
		}

		point := types.PricePoint{Price: price}
		if tsCol >= 0 && tsCol < len(record) {
			point.Timestamp = p.parseTime(strings.TrimSpace(record[tsCol]))
		}
		points = append(points, point)
	}

	if len(points) == 0 {
		return nil, fmt.Errorf("no usable prices in column %q", p.format.PriceColumn)
	}
	return points, nil
}

func (p *CSVProvider) parseTime(value string) time.Time {
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		if n > 1e12 {
			return time.UnixMilli(n).UTC()
		}
		return time.Unix(n, 0).UTC()
	}
	for _, layout := range p.format.DateFormats {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
