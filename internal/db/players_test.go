package db

import (
	"context"
	"os"
	"sync"
	"testing"

	"splatdle/internal/stats"
)

// newTestDB connects to DATABASE_URL and skips when it is unset
func newTestDB(t *testing.T) *DB {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := New(ctx, url)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(db.Close)
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	return db
}

// deletePlayer removes playerID's rows before and after the test
func deletePlayer(t *testing.T, db *DB, playerID string) {
	t.Helper()
	del := func() {
		ctx := context.Background()
		if _, err := db.pool.Exec(ctx, `DELETE FROM daily_leaderboard WHERE player_id = $1`, playerID); err != nil {
			t.Fatalf("failed to delete leaderboard row: %v", err)
		}
		if _, err := db.pool.Exec(ctx, `DELETE FROM player_stats WHERE player_id = $1`, playerID); err != nil {
			t.Fatalf("failed to delete player row: %v", err)
		}
	}
	del()
	t.Cleanup(del)
}

// TestWithPlayer_Concurrent tests that concurrent submissions count once
func TestWithPlayer_Concurrent(t *testing.T) {
	db := newTestDB(t)
	deletePlayer(t, db, "pg-racer")

	ctx := context.Background()
	svc := stats.NewService(db)

	var wg sync.WaitGroup
	var mu sync.Mutex
	counted := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.Submit(ctx, "pg-racer", 3)
			if err != nil {
				t.Errorf("Submit failed: %v", err)
				return
			}
			if res.Status == stats.StatusOK {
				mu.Lock()
				counted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if counted != 1 {
		t.Errorf("Expected exactly 1 counted submission, got: %d", counted)
	}
	p, err := db.GetPlayer(ctx, "pg-racer")
	if err != nil {
		t.Fatalf("GetPlayer failed: %v", err)
	}
	if p == nil || p.TimesPlayed != 1 {
		t.Errorf("Expected timesPlayed 1, got: %+v", p)
	}
	entry, err := db.GetTodaysEntry(ctx, "pg-racer")
	if err != nil {
		t.Fatalf("GetTodaysEntry failed: %v", err)
	}
	if entry == nil || entry.GuessCount != 3 {
		t.Errorf("Expected one leaderboard entry with 3 guesses, got: %+v", entry)
	}
}
