package state

import (
	"context"
	"sync"
)

// MemoryStore keeps the checkpoint in process; used for replay
type MemoryStore struct {
	mu    sync.Mutex
	pos   *Position
	saves []Position
	// FailSaves makes every Save return this error
	FailSaves error
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns the last saved position
func (m *MemoryStore) Load(ctx context.Context) (Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pos == nil {
		return Flat(), ErrNotFound
	}
	return *m.pos, nil
}

// Save records p
func (m *MemoryStore) Save(ctx context.Context, p Position) error {
	if err := p.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSaves != nil {
		return m.FailSaves
	}
	m.pos = &p
	m.saves = append(m.saves, p)
	return nil
}

// Saves returns every position saved so far, oldest first
func (m *MemoryStore) Saves() []Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Position, len(m.saves))
	copy(out, m.saves)
	return out
}

// Close is a no-op
func (m *MemoryStore) Close() error {
	return nil
}
