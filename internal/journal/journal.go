// Package journal records every fill for later review.
package journal

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TradeRecord is one committed fill
type TradeRecord struct {
	ID            string
	ProductID     string
	Side          string
	OrderID       string
	Price         decimal.Decimal
	Size          decimal.Decimal
	ExecutedValue decimal.Decimal
	Fees          decimal.Decimal
	// Profit and Transferred are set on sells only
	Profit      decimal.Decimal
	Transferred decimal.Decimal
	ExecutedAt  time.Time
}

// Journal stores trade records
type Journal interface {
	Record(ctx context.Context, rec TradeRecord) error
	Close() error
}

// stamp fills in the id and time when the caller left them empty
func stamp(rec TradeRecord) TradeRecord {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.ExecutedAt.IsZero() {
		rec.ExecutedAt = time.Now().UTC()
	}
	return rec
}

// NopJournal discards records
type NopJournal struct{}

func (NopJournal) Record(ctx context.Context, rec TradeRecord) error { return nil }
func (NopJournal) Close() error                                      { return nil }

// MemoryJournal keeps records in order; the replay driver builds its trade list from it
type MemoryJournal struct {
	mu      sync.Mutex
	records []TradeRecord
}

// NewMemoryJournal creates an empty journal
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{}
}

// Record appends rec
func (m *MemoryJournal) Record(ctx context.Context, rec TradeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, stamp(rec))
	return nil
}

// Records returns a copy of everything recorded
func (m *MemoryJournal) Records() []TradeRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TradeRecord, len(m.records))
	copy(out, m.records)
	return out
}

// Close is a no-op
func (m *MemoryJournal) Close() error { return nil }
