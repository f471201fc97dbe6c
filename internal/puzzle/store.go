package puzzle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"

	"splatdle/internal/catalog"
)

// ErrCorrupt marks a persisted puzzle record that exists but cannot be used.
// Callers treat it the same as a missing record.
var ErrCorrupt = errors.New("puzzle state corrupt")

// Record is the persisted daily puzzle
type Record struct {
	Weapon   catalog.Key  `json:"weapon"`
	Date     string       `json:"date"`
	Previous *catalog.Key `json:"previous,omitempty"`
}

// Validate checks the record has a weapon and an ISO-8601 date
func (r Record) Validate() error {
	if r.Weapon.Name == "" {
		return fmt.Errorf("%w: missing weapon name", ErrCorrupt)
	}
	if _, err := time.Parse(time.DateOnly, r.Date); err != nil {
		return fmt.Errorf("%w: bad date %q", ErrCorrupt, r.Date)
	}
	return nil
}

// Store persists the daily puzzle. LoadPuzzle returns (nil, nil) when nothing
// has been saved yet.
type Store interface {
	LoadPuzzle(ctx context.Context) (*Record, error)
	SavePuzzle(ctx context.Context, rec Record) error
}

// FileStore keeps the puzzle in a small JSON file
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore writing to path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// LoadPuzzle reads the puzzle file
func (s *FileStore) LoadPuzzle(ctx context.Context) (*Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read puzzle file: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return &rec, nil
}

// SavePuzzle writes the record through a temp file so readers never see a
// partial write
func (s *FileStore) SavePuzzle(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal puzzle: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create puzzle directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".puzzle-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write puzzle: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close puzzle file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace puzzle file: %w", err)
	}
	return nil
}
