package data

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"splatdle/internal/catalog"
	"splatdle/internal/puzzle"
	"splatdle/internal/scheduler"
	"splatdle/internal/stats"
)

var (
	_ stats.Store     = (*Store)(nil)
	_ puzzle.Store    = (*Store)(nil)
	_ scheduler.Store = (*Store)(nil)
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return s
}

// TestEnsureSchema_Idempotent tests that the schema can be applied twice
func TestEnsureSchema_Idempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.EnsureSchema(context.Background()); err != nil {
		t.Errorf("Expected second EnsureSchema to succeed, got: %v", err)
	}
	if s.Driver() != "sqlite" {
		t.Errorf("Expected driver sqlite, got: %s", s.Driver())
	}
}

// TestOpenTurso_RequiresURL tests that a missing Turso URL is rejected
func TestOpenTurso_RequiresURL(t *testing.T) {
	if _, err := OpenTurso("", "token"); err == nil {
		t.Error("Expected error for empty Turso URL")
	}
}

// TestSubmit_ThroughSQLite tests the submission flow against a real database
func TestSubmit_ThroughSQLite(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	svc := stats.NewService(s)
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	svc.SetClock(func() time.Time { return now })

	res, err := svc.Submit(ctx, "player-1", 4)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if res.Status != stats.StatusOK || res.Streak != 1 || res.TotalGames != 1 {
		t.Errorf("Unexpected first result: %+v", res)
	}

	again, err := svc.Submit(ctx, "player-1", 1)
	if err != nil {
		t.Fatalf("Second submit failed: %v", err)
	}
	if again.Status != stats.StatusAlreadyPlayed {
		t.Errorf("Expected already_played, got: %s", again.Status)
	}
	if again.TodaysGuesses != 4 {
		t.Errorf("Expected today's guesses 4, got: %d", again.TodaysGuesses)
	}
	if again.PlayedAt == nil || !again.PlayedAt.Equal(now) {
		t.Errorf("Expected playedAt %v, got: %v", now, again.PlayedAt)
	}

	p, err := s.GetPlayer(ctx, "player-1")
	if err != nil || p == nil {
		t.Fatalf("GetPlayer failed: %v", err)
	}
	if p.TimesPlayed != 1 || p.AverageGuesses != 4 || !p.PlayedToday {
		t.Errorf("Unexpected stored player: %+v", *p)
	}
}

// TestResetDaily tests that only players who missed the day lose their streak
func TestResetDaily(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	svc := stats.NewService(s)

	for _, id := range []string{"a", "b"} {
		if _, err := svc.Submit(ctx, id, 3); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}

	// Day 2: only "a" plays
	if err := s.ResetDaily(ctx, "2025-03-15"); err != nil {
		t.Fatalf("ResetDaily failed: %v", err)
	}
	if _, err := svc.Submit(ctx, "a", 2); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	// Rolling into day 3 breaks b's streak
	if err := s.ResetDaily(ctx, "2025-03-16"); err != nil {
		t.Fatalf("ResetDaily failed: %v", err)
	}

	a, _ := s.GetPlayer(ctx, "a")
	b, _ := s.GetPlayer(ctx, "b")
	if a.Streak != 2 || a.PlayedToday {
		t.Errorf("Expected a to keep streak 2 and be reset for the day, got: %+v", *a)
	}
	if b.Streak != 0 || b.TimesPlayed != 1 {
		t.Errorf("Expected b to lose streak but keep history, got: %+v", *b)
	}
}

// TestRolloverState tests that reset and clear record their dates
func TestRolloverState(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	st, err := s.RolloverState(ctx)
	if err != nil {
		t.Fatalf("RolloverState failed: %v", err)
	}
	if st != (scheduler.RolloverState{}) {
		t.Errorf("Expected empty state on a new store, got: %+v", st)
	}

	if err := s.ResetDaily(ctx, "2025-03-15"); err != nil {
		t.Fatalf("ResetDaily failed: %v", err)
	}
	st, _ = s.RolloverState(ctx)
	if st.ResetDate != "2025-03-15" || st.ClearedDate != "" || st.Done("2025-03-15") {
		t.Errorf("Expected only the reset recorded, got: %+v", st)
	}

	if err := s.ClearLeaderboard(ctx, "2025-03-15"); err != nil {
		t.Fatalf("ClearLeaderboard failed: %v", err)
	}
	st, _ = s.RolloverState(ctx)
	if !st.Done("2025-03-15") {
		t.Errorf("Expected rollover into 2025-03-15 recorded, got: %+v", st)
	}
}

// TestLeaderboards tests ordering of both leaderboards and clearing today's
func TestLeaderboards(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	svc := stats.NewService(s)

	submits := []struct {
		id      string
		guesses int
	}{
		{"slow", 6},
		{"fast", 1},
		{"mid", 3},
	}
	for _, sub := range submits {
		if _, err := svc.Submit(ctx, sub.id, sub.guesses); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}

	today, err := s.TodaysLeaderboard(ctx)
	if err != nil {
		t.Fatalf("TodaysLeaderboard failed: %v", err)
	}
	if len(today) != 3 || today[0].PlayerID != "fast" || today[2].PlayerID != "slow" {
		t.Errorf("Unexpected today's order: %+v", today)
	}

	global, err := s.GlobalLeaderboard(ctx, 2)
	if err != nil {
		t.Fatalf("GlobalLeaderboard failed: %v", err)
	}
	if len(global) != 2 {
		t.Fatalf("Expected limit of 2, got: %d", len(global))
	}
	if global[0].PlayerID != "fast" || global[0].WeightedScore != 5 {
		t.Errorf("Expected fast first with score 5, got: %+v", global[0])
	}

	avg, err := s.GlobalAverage(ctx)
	if err != nil {
		t.Fatalf("GlobalAverage failed: %v", err)
	}
	if avg != 10.0/3.0 {
		t.Errorf("Expected global average %v, got: %v", 10.0/3.0, avg)
	}

	if err := s.ClearLeaderboard(ctx, "2025-03-15"); err != nil {
		t.Fatalf("ClearLeaderboard failed: %v", err)
	}
	today, _ = s.TodaysLeaderboard(ctx)
	if len(today) != 0 {
		t.Errorf("Expected empty leaderboard after clear, got: %d entries", len(today))
	}
}

// TestWithPlayer_Concurrent tests that concurrent submissions count once
func TestWithPlayer_Concurrent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	svc := stats.NewService(s)

	var wg sync.WaitGroup
	var mu sync.Mutex
	counted := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.Submit(ctx, "racer", 2)
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
	p, _ := s.GetPlayer(ctx, "racer")
	if p.TimesPlayed != 1 {
		t.Errorf("Expected timesPlayed 1, got: %d", p.TimesPlayed)
	}
}

// TestWithPlayer_RollsBack tests that a failing transaction leaves no trace
func TestWithPlayer_RollsBack(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	boom := errors.New("boom")

	err := s.WithPlayer(ctx, "ghost", func(tx stats.Tx) error {
		if err := tx.SavePlayer(ctx, stats.PlayerStats{PlayerID: "ghost", Streak: 1, TimesPlayed: 1, AverageGuesses: 2, PlayedToday: true}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("Expected boom, got: %v", err)
	}

	p, err := s.GetPlayer(ctx, "ghost")
	if err != nil {
		t.Fatalf("GetPlayer failed: %v", err)
	}
	if p != nil {
		t.Errorf("Expected no row after rollback, got: %+v", *p)
	}
}

// TestPuzzleState tests saving and loading the puzzle row
func TestPuzzleState(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rec, err := s.LoadPuzzle(ctx)
	if err != nil || rec != nil {
		t.Fatalf("Expected no puzzle yet, got: %+v, %v", rec, err)
	}

	want := puzzle.Record{
		Weapon:   catalog.Key{Name: "Splattershot", Game: catalog.Splatoon3},
		Date:     "2025-03-14",
		Previous: &catalog.Key{Name: "Explosher", Game: catalog.Splatoon2},
	}
	if err := s.SavePuzzle(ctx, want); err != nil {
		t.Fatalf("SavePuzzle failed: %v", err)
	}
	got, err := s.LoadPuzzle(ctx)
	if err != nil {
		t.Fatalf("LoadPuzzle failed: %v", err)
	}
	if got.Weapon != want.Weapon || got.Date != want.Date || got.Previous == nil || *got.Previous != *want.Previous {
		t.Errorf("Expected %+v, got: %+v", want, got)
	}

	if _, err := s.DB().ExecContext(ctx, `UPDATE puzzle_state SET puzzle_date = 'yesterday'`); err != nil {
		t.Fatalf("Failed to corrupt row: %v", err)
	}
	if _, err := s.LoadPuzzle(ctx); !errors.Is(err, puzzle.ErrCorrupt) {
		t.Errorf("Expected ErrCorrupt, got: %v", err)
	}
}

// TestAnnouncementTargets tests that each guild keeps a single channel
func TestAnnouncementTargets(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.SetAnnouncementTarget(ctx, scheduler.Target{GuildID: "g1", ChannelID: "c1"}); err != nil {
		t.Fatalf("SetAnnouncementTarget failed: %v", err)
	}
	if err := s.SetAnnouncementTarget(ctx, scheduler.Target{GuildID: "g1", ChannelID: "c2"}); err != nil {
		t.Fatalf("SetAnnouncementTarget failed: %v", err)
	}
	if err := s.SetAnnouncementTarget(ctx, scheduler.Target{GuildID: "g2", ChannelID: "c3"}); err != nil {
		t.Fatalf("SetAnnouncementTarget failed: %v", err)
	}

	targets, err := s.AnnouncementTargets(ctx)
	if err != nil {
		t.Fatalf("AnnouncementTargets failed: %v", err)
	}
	if len(targets) != 2 || targets[0].ChannelID != "c2" {
		t.Errorf("Unexpected targets: %+v", targets)
	}

	target, err := s.AnnouncementTarget(ctx, "missing")
	if err != nil || target != nil {
		t.Errorf("Expected no target for unknown guild, got: %+v, %v", target, err)
	}
}
