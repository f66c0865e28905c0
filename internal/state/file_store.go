package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps the checkpoint in a JSON file
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store at path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the checkpoint file location
func (f *FileStore) Path() string {
	return f.path
}

// Load reads the checkpoint file
func (f *FileStore) Load(ctx context.Context) (Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Flat(), ErrNotFound
	}
	if err != nil {
		return Flat(), fmt.Errorf("failed to read checkpoint file: %w", err)
	}

	var p Position
	if err := json.Unmarshal(data, &p); err != nil {
		return Flat(), fmt.Errorf("failed to parse checkpoint file: %w", err)
	}
	return p, nil
}

// Save writes to a temporary file and renames it over the checkpoint, so a
// crash mid-write leaves the previous checkpoint intact
func (f *FileStore) Save(ctx context.Context, p Position) error {
	if err := p.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create checkpoint directory: %w", err)
		}
	}

	tempFile := f.path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp checkpoint file: %w", err)
	}
	if err := os.Rename(tempFile, f.path); err != nil {
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to move checkpoint file: %w", err)
	}
	return nil
}

// Close is a no-op
func (f *FileStore) Close() error {
	return nil
}
