// Package backend opens the relational store selected by configuration.
package backend

import (
	"context"
	"fmt"
	"log"

	"splatdle/internal/config"
	"splatdle/internal/data"
	"splatdle/internal/db"
	"splatdle/internal/puzzle"
	"splatdle/internal/scheduler"
	"splatdle/internal/stats"
)

// Store is everything the server and CLI need from a backend
type Store interface {
	stats.Store
	scheduler.Store
	puzzle.Store
	SetAnnouncementTarget(ctx context.Context, t scheduler.Target) error
	AnnouncementTarget(ctx context.Context, guildID string) (*scheduler.Target, error)
}

var (
	_ Store = (*db.DB)(nil)
	_ Store = (*data.Store)(nil)
)

// Backend is an open store and the function that releases it
type Backend struct {
	Store
	Driver string
	close  func()
}

// Close releases the underlying connection pool
func (b *Backend) Close() {
	if b.close != nil {
		b.close()
	}
}

// Open connects to the store named by cfg.StoreDriver. SQLite and libsql
// stores get their schema applied; Postgres is migrated separately.
func Open(ctx context.Context, cfg config.Config) (*Backend, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pg, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		log.Println("[Backend] Connected to Postgres")
		return &Backend{Store: pg, Driver: cfg.StoreDriver, close: pg.Close}, nil

	case config.DriverSQLite, config.DriverLibSQL:
		var (
			s   *data.Store
			err error
		)
		if cfg.StoreDriver == config.DriverSQLite {
			s, err = data.OpenSQLite(cfg.SQLitePath)
		} else {
			s, err = data.OpenTurso(cfg.TursoURL, cfg.TursoAuthToken)
		}
		if err != nil {
			return nil, err
		}
		if err := s.EnsureSchema(ctx); err != nil {
			s.Close()
			return nil, err
		}
		log.Printf("[Backend] Opened %s store", s.Driver())
		return &Backend{Store: s, Driver: cfg.StoreDriver, close: func() {
			if err := s.Close(); err != nil {
				log.Printf("[Backend] Close failed: %v", err)
			}
		}}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// PuzzleStore picks where the daily puzzle record lives
func PuzzleStore(cfg config.Config, b *Backend) puzzle.Store {
	if cfg.PuzzleStore == config.PuzzleStoreDB {
		return b.Store
	}
	return puzzle.NewFileStore(cfg.PuzzleStatePath)
}
