package stats

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Submission statuses
const (
	StatusOK            = "ok"
	StatusAlreadyPlayed = "already_played"
)

// Performance compares a game's guess count against the player's own average
type Performance string

const (
	PerformanceAbove Performance = "above" // fewer guesses than average
	PerformanceBelow Performance = "below"
	PerformanceEqual Performance = "equal"
)

var (
	ErrInvalidGuessCount = errors.New("guess count must be a positive integer")
	ErrMissingPlayer     = errors.New("player id is required")
	ErrPlayerNotFound    = errors.New("player has not played yet")
	// ErrStorage wraps every backend failure returned by the service
	ErrStorage = errors.New("statistics storage error")
)

// Result is returned by Submit. Fields that do not apply to a status are left
// zero and omitted from JSON.
type Result struct {
	Status              string      `json:"status"`
	Message             string      `json:"message,omitempty"`
	Streak              int         `json:"streak"`
	TotalGames          int         `json:"totalGames"`
	AverageGuesses      float64     `json:"averageGuesses"`
	GlobalAverage       float64     `json:"globalAverage"`
	GuessCount          int         `json:"guessCount,omitempty"`
	PersonalPerformance Performance `json:"personalPerformance,omitempty"`
	IsNewStreak         bool        `json:"isNewStreak,omitempty"`
	TodaysGuesses       int         `json:"todaysGuesses,omitempty"`
	PlayedAt            *time.Time  `json:"playedAt,omitempty"`
}

// RunningAverage folds guess into an average taken over n games
func RunningAverage(avg float64, n int, guess int) float64 {
	return (avg*float64(n) + float64(guess)) / float64(n+1)
}

// Advance applies a counted submission to p
func Advance(p PlayerStats, guess int) PlayerStats {
	return PlayerStats{
		PlayerID:       p.PlayerID,
		Streak:         p.Streak + 1,
		TimesPlayed:    p.TimesPlayed + 1,
		AverageGuesses: RunningAverage(p.AverageGuesses, p.TimesPlayed, guess),
		PlayedToday:    true,
	}
}

// Compare rates guess against avg
func Compare(guess int, avg float64) Performance {
	switch g := float64(guess); {
	case g < avg:
		return PerformanceAbove
	case g > avg:
		return PerformanceBelow
	default:
		return PerformanceEqual
	}
}

// WeightedScore ranks players by average while penalising small samples.
// Lower is better.
func WeightedScore(avg float64, timesPlayed int) float64 {
	if timesPlayed <= 0 {
		return math.Inf(1)
	}
	return avg + 4.0/math.Sqrt(float64(timesPlayed))
}

// Service handles guess submissions and stats queries
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates a stats service over store
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// SetClock overrides the time source (for testing)
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Submit records a player's guess count for today. A second submission on
// the same day changes nothing and reports the first one.
func (s *Service) Submit(ctx context.Context, playerID string, guessCount int) (Result, error) {
	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return Result{}, ErrMissingPlayer
	}
	if guessCount < 1 {
		return Result{}, ErrInvalidGuessCount
	}

	var result Result
	err := s.store.WithPlayer(ctx, playerID, func(tx Tx) error {
		cur, err := tx.Player(ctx)
		if err != nil {
			return fmt.Errorf("failed to read player: %w", err)
		}

		if cur.PlayedToday {
			entry, err := tx.TodaysEntry(ctx)
			if err != nil {
				return fmt.Errorf("failed to read today's entry: %w", err)
			}
			global, err := tx.GlobalAverage(ctx)
			if err != nil {
				return fmt.Errorf("failed to read global average: %w", err)
			}

			result = Result{
				Status:         StatusAlreadyPlayed,
				Message:        "Stats already posted for today",
				Streak:         cur.Streak,
				TotalGames:     cur.TimesPlayed,
				AverageGuesses: cur.AverageGuesses,
				GlobalAverage:  global,
				TodaysGuesses:  guessCount,
			}
			if entry != nil {
				at := entry.SubmittedAt
				result.TodaysGuesses = entry.GuessCount
				result.PlayedAt = &at
			}
			return nil
		}

		next := Advance(cur, guessCount)
		next.PlayerID = playerID
		if err := tx.SavePlayer(ctx, next); err != nil {
			return fmt.Errorf("failed to save player: %w", err)
		}
		if err := tx.UpsertEntry(ctx, LeaderboardEntry{
			PlayerID:    playerID,
			GuessCount:  guessCount,
			SubmittedAt: s.now().UTC(),
		}); err != nil {
			return fmt.Errorf("failed to save leaderboard entry: %w", err)
		}

		global, err := tx.GlobalAverage(ctx)
		if err != nil {
			return fmt.Errorf("failed to read global average: %w", err)
		}

		result = Result{
			Status:              StatusOK,
			Streak:              next.Streak,
			TotalGames:          next.TimesPlayed,
			AverageGuesses:      next.AverageGuesses,
			GlobalAverage:       global,
			GuessCount:          guessCount,
			PersonalPerformance: Compare(guessCount, next.AverageGuesses),
			IsNewStreak:         true,
		}
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return result, nil
}

// Tier buckets an average guess count the way the stats card shows it
func Tier(avg float64) string {
	switch {
	case avg <= 2.0:
		return "Excellent"
	case avg <= 3.0:
		return "Great"
	case avg <= 4.0:
		return "Good"
	case avg <= 5.0:
		return "Average"
	default:
		return "Improving"
	}
}

// PlayerCard is a player's stats together with today's result
type PlayerCard struct {
	PlayerStats
	TodaysGuesses int    `json:"todaysGuesses,omitempty"`
	Performance   string `json:"performance"`
}

// Player returns the stats card for playerID
func (s *Service) Player(ctx context.Context, playerID string) (PlayerCard, error) {
	p, err := s.store.GetPlayer(ctx, playerID)
	if err != nil {
		return PlayerCard{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if p == nil || p.TimesPlayed == 0 {
		return PlayerCard{}, ErrPlayerNotFound
	}

	card := PlayerCard{PlayerStats: *p, Performance: Tier(p.AverageGuesses)}
	entry, err := s.store.GetTodaysEntry(ctx, playerID)
	if err != nil {
		return PlayerCard{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if entry != nil {
		card.TodaysGuesses = entry.GuessCount
	}
	return card, nil
}

// GlobalLeaderboard returns players ordered by weighted score
func (s *Service) GlobalLeaderboard(ctx context.Context, limit int) ([]RankedPlayer, error) {
	players, err := s.store.GlobalLeaderboard(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return players, nil
}

// TodaysLeaderboard returns today's entries ordered by guess count
func (s *Service) TodaysLeaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	entries, err := s.store.TodaysLeaderboard(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return entries, nil
}

// GlobalAverage returns the mean of all players' averages
func (s *Service) GlobalAverage(ctx context.Context) (float64, error) {
	avg, err := s.store.GlobalAverage(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return avg, nil
}
