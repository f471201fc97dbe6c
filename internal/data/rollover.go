package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"splatdle/internal/catalog"
	"splatdle/internal/puzzle"
	"splatdle/internal/scheduler"
)

// RolloverState returns the recorded progress of the latest rollover
func (s *Store) RolloverState(ctx context.Context) (scheduler.RolloverState, error) {
	var st scheduler.RolloverState
	err := s.db.QueryRowContext(ctx, `
		SELECT reset_date, cleared_date FROM rollover_state WHERE id = 1
	`).Scan(&st.ResetDate, &st.ClearedDate)
	if errors.Is(err, sql.ErrNoRows) {
		return scheduler.RolloverState{}, nil
	}
	return st, err
}

// ResetDaily breaks the streak of everyone who missed the day, then opens
// the new day for all players. Both updates commit together with date.
func (s *Store) ResetDaily(ctx context.Context, date string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE player_stats SET streak = 0 WHERE played_today = 0`); err != nil {
			return fmt.Errorf("failed to reset streaks: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE player_stats SET played_today = 0`); err != nil {
			return fmt.Errorf("failed to reset played flags: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO rollover_state (id, reset_date) VALUES (1, ?)
			ON CONFLICT (id) DO UPDATE SET reset_date = excluded.reset_date
		`, date); err != nil {
			return fmt.Errorf("failed to record reset: %w", err)
		}
		return nil
	})
}

// ClearLeaderboard removes every entry of the daily leaderboard and records date
func (s *Store) ClearLeaderboard(ctx context.Context, date string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM daily_leaderboard`); err != nil {
			return fmt.Errorf("failed to clear leaderboard: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO rollover_state (id, cleared_date) VALUES (1, ?)
			ON CONFLICT (id) DO UPDATE SET cleared_date = excluded.cleared_date
		`, date); err != nil {
			return fmt.Errorf("failed to record clear: %w", err)
		}
		return nil
	})
}

// AnnouncementTargets returns every registered channel
func (s *Store) AnnouncementTargets(ctx context.Context) ([]scheduler.Target, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT guild_id, channel_id FROM announcement_targets ORDER BY guild_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var targets []scheduler.Target
	for rows.Next() {
		var t scheduler.Target
		if err := rows.Scan(&t.GuildID, &t.ChannelID); err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

// SetAnnouncementTarget registers or replaces a guild's channel
func (s *Store) SetAnnouncementTarget(ctx context.Context, t scheduler.Target) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO announcement_targets (guild_id, channel_id) VALUES (?, ?)
		ON CONFLICT (guild_id) DO UPDATE SET channel_id = excluded.channel_id
	`, t.GuildID, t.ChannelID)
	return err
}

// AnnouncementTarget returns a guild's channel, or nil if none is set
func (s *Store) AnnouncementTarget(ctx context.Context, guildID string) (*scheduler.Target, error) {
	t := scheduler.Target{GuildID: guildID}
	err := s.db.QueryRowContext(ctx, `
		SELECT channel_id FROM announcement_targets WHERE guild_id = ?
	`, guildID).Scan(&t.ChannelID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// LoadPuzzle returns the persisted puzzle row, or nil if there is none
func (s *Store) LoadPuzzle(ctx context.Context) (*puzzle.Record, error) {
	var rec puzzle.Record
	var game string
	var prevName, prevGame sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT weapon_name, weapon_game, puzzle_date, previous_name, previous_game
		FROM puzzle_state WHERE id = 1
	`).Scan(&rec.Weapon.Name, &game, &rec.Date, &prevName, &prevGame)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.Weapon.Game = catalog.Game(game)
	if prevName.Valid && prevGame.Valid {
		rec.Previous = &catalog.Key{Name: prevName.String, Game: catalog.Game(prevGame.String)}
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return &rec, nil
}

// SavePuzzle replaces the puzzle row
func (s *Store) SavePuzzle(ctx context.Context, rec puzzle.Record) error {
	var prevName, prevGame sql.NullString
	if rec.Previous != nil {
		prevName = sql.NullString{String: rec.Previous.Name, Valid: true}
		prevGame = sql.NullString{String: string(rec.Previous.Game), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO puzzle_state (id, weapon_name, weapon_game, puzzle_date, previous_name, previous_game)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			weapon_name = excluded.weapon_name,
			weapon_game = excluded.weapon_game,
			puzzle_date = excluded.puzzle_date,
			previous_name = excluded.previous_name,
			previous_game = excluded.previous_game
	`, rec.Weapon.Name, string(rec.Weapon.Game), rec.Date, prevName, prevGame)
	return err
}
