package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"splatdle/internal/stats"
)

// playerTx is a submission transaction holding one player's row lock
type playerTx struct {
	tx       pgx.Tx
	playerID string
}

// WithPlayer runs fn in a transaction that holds playerID's row lock. The row
// is created first so two first-ever submissions also serialize on it.
func (db *DB) WithPlayer(ctx context.Context, playerID string, fn func(tx stats.Tx) error) error {
	return pgx.BeginFunc(ctx, db.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO player_stats (player_id) VALUES ($1)
			ON CONFLICT (player_id) DO NOTHING
		`, playerID); err != nil {
			return fmt.Errorf("failed to create player row: %w", err)
		}
		return fn(&playerTx{tx: tx, playerID: playerID})
	})
}

// Player reads the locked row
func (t *playerTx) Player(ctx context.Context) (stats.PlayerStats, error) {
	var p stats.PlayerStats
	err := t.tx.QueryRow(ctx, `
		SELECT player_id, streak, times_played, average_guesses, played_today
		FROM player_stats WHERE player_id = $1
		FOR UPDATE
	`, t.playerID).Scan(&p.PlayerID, &p.Streak, &p.TimesPlayed, &p.AverageGuesses, &p.PlayedToday)
	return p, err
}

func (t *playerTx) SavePlayer(ctx context.Context, p stats.PlayerStats) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE player_stats
		SET streak = $2, times_played = $3, average_guesses = $4, played_today = $5
		WHERE player_id = $1
	`, p.PlayerID, p.Streak, p.TimesPlayed, p.AverageGuesses, p.PlayedToday)
	return err
}

func (t *playerTx) TodaysEntry(ctx context.Context) (*stats.LeaderboardEntry, error) {
	return todaysEntry(ctx, t.tx, t.playerID)
}

func (t *playerTx) UpsertEntry(ctx context.Context, e stats.LeaderboardEntry) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO daily_leaderboard (player_id, guess_count, submitted_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (player_id) DO UPDATE SET
			guess_count = EXCLUDED.guess_count,
			submitted_at = EXCLUDED.submitted_at
	`, e.PlayerID, e.GuessCount, e.SubmittedAt)
	return err
}

func (t *playerTx) GlobalAverage(ctx context.Context) (float64, error) {
	return globalAverage(ctx, t.tx)
}

// querier is satisfied by both the pool and a transaction
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func todaysEntry(ctx context.Context, q querier, playerID string) (*stats.LeaderboardEntry, error) {
	var e stats.LeaderboardEntry
	err := q.QueryRow(ctx, `
		SELECT player_id, guess_count, submitted_at
		FROM daily_leaderboard WHERE player_id = $1
	`, playerID).Scan(&e.PlayerID, &e.GuessCount, &e.SubmittedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func globalAverage(ctx context.Context, q querier) (float64, error) {
	var avg float64
	err := q.QueryRow(ctx, `
		SELECT COALESCE(AVG(average_guesses), 0)
		FROM player_stats WHERE times_played > 0
	`).Scan(&avg)
	return avg, err
}

// GetPlayer returns a player's stats, or nil if the player is unknown
func (db *DB) GetPlayer(ctx context.Context, playerID string) (*stats.PlayerStats, error) {
	var p stats.PlayerStats
	err := db.pool.QueryRow(ctx, `
		SELECT player_id, streak, times_played, average_guesses, played_today
		FROM player_stats WHERE player_id = $1
	`, playerID).Scan(&p.PlayerID, &p.Streak, &p.TimesPlayed, &p.AverageGuesses, &p.PlayedToday)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetTodaysEntry returns a player's leaderboard entry for today, if any
func (db *DB) GetTodaysEntry(ctx context.Context, playerID string) (*stats.LeaderboardEntry, error) {
	return todaysEntry(ctx, db.pool, playerID)
}

// GlobalAverage returns the mean average guess count of everyone who has played
func (db *DB) GlobalAverage(ctx context.Context) (float64, error) {
	return globalAverage(ctx, db.pool)
}

// GlobalLeaderboard returns players ordered by weighted score, best first
func (db *DB) GlobalLeaderboard(ctx context.Context, limit int) ([]stats.RankedPlayer, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.pool.Query(ctx, `
		SELECT player_id, streak, times_played, average_guesses, played_today
		FROM player_stats
		WHERE times_played > 0
		ORDER BY average_guesses + 4.0 / SQRT(times_played) ASC, times_played DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []stats.RankedPlayer
	for rows.Next() {
		var r stats.RankedPlayer
		if err := rows.Scan(&r.PlayerID, &r.Streak, &r.TimesPlayed, &r.AverageGuesses, &r.PlayedToday); err != nil {
			return nil, err
		}
		r.WeightedScore = stats.WeightedScore(r.AverageGuesses, r.TimesPlayed)
		players = append(players, r)
	}
	return players, rows.Err()
}

// TodaysLeaderboard returns today's entries, fewest guesses first
func (db *DB) TodaysLeaderboard(ctx context.Context) ([]stats.LeaderboardEntry, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT player_id, guess_count, submitted_at
		FROM daily_leaderboard
		ORDER BY guess_count ASC, submitted_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []stats.LeaderboardEntry
	for rows.Next() {
		var e stats.LeaderboardEntry
		if err := rows.Scan(&e.PlayerID, &e.GuessCount, &e.SubmittedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
