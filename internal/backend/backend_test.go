package backend

import (
	"context"
	"path/filepath"
	"testing"

	"splatdle/internal/config"
	"splatdle/internal/puzzle"
)

// TestOpen_SQLite tests opening a file-backed SQLite store with its schema
func TestOpen_SQLite(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.SQLitePath = filepath.Join(t.TempDir(), "nested", "splatdle.db")

	b, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer b.Close()

	targets, err := b.AnnouncementTargets(context.Background())
	if err != nil {
		t.Fatalf("Expected schema to exist, got: %v", err)
	}
	if len(targets) != 0 {
		t.Errorf("Expected no targets, got: %d", len(targets))
	}
}

// TestOpen_UnknownDriver tests the driver guard
func TestOpen_UnknownDriver(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.StoreDriver = "mysql"

	if _, err := Open(context.Background(), cfg); err == nil {
		t.Error("Expected error for unknown driver")
	}
}

// TestPuzzleStore tests choosing between the file and database puzzle stores
func TestPuzzleStore(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.SQLitePath = ":memory:"
	cfg.PuzzleStatePath = filepath.Join(t.TempDir(), "weapon.json")

	b, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer b.Close()

	if _, ok := PuzzleStore(cfg, b).(*puzzle.FileStore); !ok {
		t.Error("Expected a FileStore for the file puzzle store")
	}

	cfg.PuzzleStore = config.PuzzleStoreDB
	if _, ok := PuzzleStore(cfg, b).(*puzzle.FileStore); ok {
		t.Error("Expected the backend to hold the puzzle for the db puzzle store")
	}
}
