package stats

import (
	"context"
	"time"
)

// PlayerStats is the aggregate record kept for each player
type PlayerStats struct {
	PlayerID       string  `json:"playerId"`
	Streak         int     `json:"streak"`
	TimesPlayed    int     `json:"timesPlayed"`
	AverageGuesses float64 `json:"averageGuesses"`
	PlayedToday    bool    `json:"playedToday"`
}

// LeaderboardEntry is one player's result for the current day
type LeaderboardEntry struct {
	PlayerID    string    `json:"playerId"`
	GuessCount  int       `json:"guessCount"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// RankedPlayer is a row of the all-time leaderboard
type RankedPlayer struct {
	PlayerStats
	WeightedScore float64 `json:"weightedScore"`
}

// Tx is the view of the store inside a player's submission transaction.
// The player's row is locked for the lifetime of the transaction.
type Tx interface {
	// Player returns the locked stats row. A player seen for the first time
	// has a zero-valued row (TimesPlayed == 0).
	Player(ctx context.Context) (PlayerStats, error)
	SavePlayer(ctx context.Context, p PlayerStats) error
	TodaysEntry(ctx context.Context) (*LeaderboardEntry, error)
	UpsertEntry(ctx context.Context, e LeaderboardEntry) error
	GlobalAverage(ctx context.Context) (float64, error)
}

// Store is the persistent statistics backend
type Store interface {
	// WithPlayer runs fn in one transaction holding playerID's row lock.
	// The transaction commits when fn returns nil and rolls back otherwise.
	WithPlayer(ctx context.Context, playerID string, fn func(tx Tx) error) error

	GetPlayer(ctx context.Context, playerID string) (*PlayerStats, error)
	GetTodaysEntry(ctx context.Context, playerID string) (*LeaderboardEntry, error)
	GlobalAverage(ctx context.Context) (float64, error)
	GlobalLeaderboard(ctx context.Context, limit int) ([]RankedPlayer, error)
	TodaysLeaderboard(ctx context.Context) ([]LeaderboardEntry, error)
}
