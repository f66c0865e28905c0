package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
)

// BadgerStore keeps checkpoints in an embedded badger database, one key per product
type BadgerStore struct {
	db  *badger.DB
	key []byte
}

// BadgerKey is the key a product's checkpoint is stored under
func BadgerKey(product string) string {
	return "checkpoint/" + product
}

// OpenBadgerStore opens or creates the database in dir
func OpenBadgerStore(dir, product string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger checkpoint db: %w", err)
	}
	return &BadgerStore{db: db, key: []byte(BadgerKey(product))}, nil
}

// Load reads the product's checkpoint
func (b *BadgerStore) Load(ctx context.Context) (Position, error) {
	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(b.key)
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Flat(), ErrNotFound
	}
	if err != nil {
		return Flat(), fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var p Position
	if err := json.Unmarshal(data, &p); err != nil {
		return Flat(), fmt.Errorf("failed to parse checkpoint: %w", err)
	}
	return p, nil
}

// Save writes the checkpoint in one transaction
func (b *BadgerStore) Save(ctx context.Context, p Position) error {
	if err := p.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}
	if err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(b.key, data)
	}); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	return nil
}

// Close closes the database
func (b *BadgerStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}
