package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"splatdle/internal/stats"
)

type playerTx struct {
	tx       *sql.Tx
	playerID string
}

// WithPlayer runs fn in one transaction. The single connection means no
// other transaction can touch the player until it commits.
func (s *Store) WithPlayer(ctx context.Context, playerID string, fn func(tx stats.Tx) error) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO player_stats (player_id) VALUES (?)
			ON CONFLICT (player_id) DO NOTHING
		`, playerID); err != nil {
			return fmt.Errorf("failed to create player row: %w", err)
		}
		return fn(&playerTx{tx: tx, playerID: playerID})
	})
}

func (t *playerTx) Player(ctx context.Context) (stats.PlayerStats, error) {
	p, err := scanPlayer(t.tx.QueryRowContext(ctx, `
		SELECT player_id, streak, times_played, average_guesses, played_today
		FROM player_stats WHERE player_id = ?
	`, t.playerID))
	if err != nil {
		return stats.PlayerStats{}, err
	}
	return *p, nil
}

func (t *playerTx) SavePlayer(ctx context.Context, p stats.PlayerStats) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE player_stats
		SET streak = ?, times_played = ?, average_guesses = ?, played_today = ?
		WHERE player_id = ?
	`, p.Streak, p.TimesPlayed, p.AverageGuesses, p.PlayedToday, p.PlayerID)
	return err
}

func (t *playerTx) TodaysEntry(ctx context.Context) (*stats.LeaderboardEntry, error) {
	return todaysEntry(ctx, t.tx, t.playerID)
}

func (t *playerTx) UpsertEntry(ctx context.Context, e stats.LeaderboardEntry) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO daily_leaderboard (player_id, guess_count, submitted_at)
		VALUES (?, ?, ?)
		ON CONFLICT (player_id) DO UPDATE SET
			guess_count = excluded.guess_count,
			submitted_at = excluded.submitted_at
	`, e.PlayerID, e.GuessCount, formatTime(e.SubmittedAt))
	return err
}

func (t *playerTx) GlobalAverage(ctx context.Context) (float64, error) {
	return globalAverage(ctx, t.tx)
}

// queryer is satisfied by both *sql.DB and *sql.Tx
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scanPlayer(row *sql.Row) (*stats.PlayerStats, error) {
	var p stats.PlayerStats
	err := row.Scan(&p.PlayerID, &p.Streak, &p.TimesPlayed, &p.AverageGuesses, &p.PlayedToday)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func todaysEntry(ctx context.Context, q queryer, playerID string) (*stats.LeaderboardEntry, error) {
	var e stats.LeaderboardEntry
	var at string
	err := q.QueryRowContext(ctx, `
		SELECT player_id, guess_count, submitted_at
		FROM daily_leaderboard WHERE player_id = ?
	`, playerID).Scan(&e.PlayerID, &e.GuessCount, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if e.SubmittedAt, err = parseTime(at); err != nil {
		return nil, err
	}
	return &e, nil
}

func globalAverage(ctx context.Context, q queryer) (float64, error) {
	var avg float64
	err := q.QueryRowContext(ctx, `
		SELECT COALESCE(AVG(average_guesses), 0)
		FROM player_stats WHERE times_played > 0
	`).Scan(&avg)
	return avg, err
}

// GetPlayer returns a player's stats, or nil if the player is unknown
func (s *Store) GetPlayer(ctx context.Context, playerID string) (*stats.PlayerStats, error) {
	p, err := scanPlayer(s.db.QueryRowContext(ctx, `
		SELECT player_id, streak, times_played, average_guesses, played_today
		FROM player_stats WHERE player_id = ?
	`, playerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

// GetTodaysEntry returns a player's leaderboard entry for today, if any
func (s *Store) GetTodaysEntry(ctx context.Context, playerID string) (*stats.LeaderboardEntry, error) {
	return todaysEntry(ctx, s.db, playerID)
}

// GlobalAverage returns the mean average guess count of everyone who has played
func (s *Store) GlobalAverage(ctx context.Context) (float64, error) {
	return globalAverage(ctx, s.db)
}

// GlobalLeaderboard returns players ordered by weighted score, best first.
// The score is computed here because SQLite builds may lack SQRT.
func (s *Store) GlobalLeaderboard(ctx context.Context, limit int) ([]stats.RankedPlayer, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT player_id, streak, times_played, average_guesses, played_today
		FROM player_stats WHERE times_played > 0
	`)
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
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(players, func(i, j int) bool {
		if players[i].WeightedScore != players[j].WeightedScore {
			return players[i].WeightedScore < players[j].WeightedScore
		}
		return players[i].TimesPlayed > players[j].TimesPlayed
	})
	if len(players) > limit {
		players = players[:limit]
	}
	return players, nil
}

// TodaysLeaderboard returns today's entries, fewest guesses first
func (s *Store) TodaysLeaderboard(ctx context.Context) ([]stats.LeaderboardEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
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
		var at string
		if err := rows.Scan(&e.PlayerID, &e.GuessCount, &at); err != nil {
			return nil, err
		}
		if e.SubmittedAt, err = parseTime(at); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
