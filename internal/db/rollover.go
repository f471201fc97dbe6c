package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"splatdle/internal/catalog"
	"splatdle/internal/puzzle"
	"splatdle/internal/scheduler"
)

// RolloverState returns the recorded progress of the latest rollover
func (db *DB) RolloverState(ctx context.Context) (scheduler.RolloverState, error) {
	var st scheduler.RolloverState
	err := db.pool.QueryRow(ctx, `
		SELECT reset_date, cleared_date FROM rollover_state WHERE id = 1
	`).Scan(&st.ResetDate, &st.ClearedDate)
	if errors.Is(err, pgx.ErrNoRows) {
		return scheduler.RolloverState{}, nil
	}
	return st, err
}

// ResetDaily breaks the streak of everyone who missed the day, then opens
// the new day for all players. Both updates commit together with date.
func (db *DB) ResetDaily(ctx context.Context, date string) error {
	return pgx.BeginFunc(ctx, db.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `UPDATE player_stats SET streak = 0 WHERE played_today = FALSE`); err != nil {
			return fmt.Errorf("failed to reset streaks: %w", err)
		}
		if _, err := tx.Exec(ctx, `UPDATE player_stats SET played_today = FALSE`); err != nil {
			return fmt.Errorf("failed to reset played flags: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO rollover_state (id, reset_date) VALUES (1, $1)
			ON CONFLICT (id) DO UPDATE SET reset_date = EXCLUDED.reset_date
		`, date); err != nil {
			return fmt.Errorf("failed to record reset: %w", err)
		}
		return nil
	})
}

// ClearLeaderboard removes every entry of the daily leaderboard and records date
func (db *DB) ClearLeaderboard(ctx context.Context, date string) error {
	return pgx.BeginFunc(ctx, db.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM daily_leaderboard`); err != nil {
			return fmt.Errorf("failed to clear leaderboard: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO rollover_state (id, cleared_date) VALUES (1, $1)
			ON CONFLICT (id) DO UPDATE SET cleared_date = EXCLUDED.cleared_date
		`, date); err != nil {
			return fmt.Errorf("failed to record clear: %w", err)
		}
		return nil
	})
}

// AnnouncementTargets returns every registered channel
func (db *DB) AnnouncementTargets(ctx context.Context) ([]scheduler.Target, error) {
	rows, err := db.pool.Query(ctx, `SELECT guild_id, channel_id FROM announcement_targets ORDER BY guild_id`)
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
func (db *DB) SetAnnouncementTarget(ctx context.Context, t scheduler.Target) error {
	_, err := db.pool.Exec(ctx, `
		INSERT INTO announcement_targets (guild_id, channel_id) VALUES ($1, $2)
		ON CONFLICT (guild_id) DO UPDATE SET channel_id = EXCLUDED.channel_id
	`, t.GuildID, t.ChannelID)
	return err
}

// AnnouncementTarget returns a guild's channel, or nil if none is set
func (db *DB) AnnouncementTarget(ctx context.Context, guildID string) (*scheduler.Target, error) {
	t := scheduler.Target{GuildID: guildID}
	err := db.pool.QueryRow(ctx, `
		SELECT channel_id FROM announcement_targets WHERE guild_id = $1
	`, guildID).Scan(&t.ChannelID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// LoadPuzzle returns the persisted puzzle row, or nil if there is none
func (db *DB) LoadPuzzle(ctx context.Context) (*puzzle.Record, error) {
	var rec puzzle.Record
	var game string
	var prevName, prevGame *string
	err := db.pool.QueryRow(ctx, `
		SELECT weapon_name, weapon_game, puzzle_date, previous_name, previous_game
		FROM puzzle_state WHERE id = 1
	`).Scan(&rec.Weapon.Name, &game, &rec.Date, &prevName, &prevGame)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.Weapon.Game = catalog.Game(game)
	if prevName != nil && prevGame != nil {
		rec.Previous = &catalog.Key{Name: *prevName, Game: catalog.Game(*prevGame)}
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return &rec, nil
}

// SavePuzzle replaces the puzzle row
func (db *DB) SavePuzzle(ctx context.Context, rec puzzle.Record) error {
	var prevName, prevGame *string
	if rec.Previous != nil {
		name, game := rec.Previous.Name, string(rec.Previous.Game)
		prevName, prevGame = &name, &game
	}
	_, err := db.pool.Exec(ctx, `
		INSERT INTO puzzle_state (id, weapon_name, weapon_game, puzzle_date, previous_name, previous_game)
		VALUES (1, $1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			weapon_name = EXCLUDED.weapon_name,
			weapon_game = EXCLUDED.weapon_game,
			puzzle_date = EXCLUDED.puzzle_date,
			previous_name = EXCLUDED.previous_name,
			previous_game = EXCLUDED.previous_game
	`, rec.Weapon.Name, string(rec.Weapon.Game), rec.Date, prevName, prevGame)
	return err
}
