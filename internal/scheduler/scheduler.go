package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/bits-and-blooms/bloom/v3"

	"splatdle/internal/catalog"
	"splatdle/internal/puzzle"
	"splatdle/internal/stats"
)

// Target is a Discord channel registered for rollover announcements
type Target struct {
	GuildID   string `json:"guildId"`
	ChannelID string `json:"channelId"`
}

// PuzzleRotator is the daily puzzle state as seen by the scheduler
type PuzzleRotator interface {
	Rotate(ctx context.Context) (puzzle.Rotation, error)
	LastDate(ctx context.Context) (string, bool)
}

// RolloverState is the persisted progress of the latest rollover
type RolloverState struct {
	ResetDate   string `json:"resetDate"`
	ClearedDate string `json:"clearedDate"`
}

// Done reports whether the reset and clear both ran for date
func (r RolloverState) Done(date string) bool {
	return r.ResetDate == date && r.ClearedDate == date
}

// Store holds the per-day player state the rollover resets
type Store interface {
	RolloverState(ctx context.Context) (RolloverState, error)
	// ResetDaily zeroes the streak of every player who did not play, then
	// clears playedToday for everyone. date is recorded as ResetDate in the
	// same transaction.
	ResetDaily(ctx context.Context, date string) error
	TodaysLeaderboard(ctx context.Context) ([]stats.LeaderboardEntry, error)
	// ClearLeaderboard empties the daily leaderboard and records date as
	// ClearedDate in the same transaction
	ClearLeaderboard(ctx context.Context, date string) error
	AnnouncementTargets(ctx context.Context) ([]Target, error)
}

// Sender delivers the rollover announcement to one channel
type Sender interface {
	Announce(ctx context.Context, channelID, date string, previous *catalog.Weapon) error
}

// Archiver stores a finished day's leaderboard before it is cleared
type Archiver interface {
	ArchiveDay(date string, entries []stats.LeaderboardEntry) error
}

// Listener is told about every completed rollover (e.g. websocket clients)
type Listener interface {
	Rollover(date string, previous *catalog.Weapon)
}

// NotifyFunc is called to send ops alerts (e.g. Discord webhook)
type NotifyFunc func(ctx context.Context, message string) error

// Config holds configuration for the scheduler
type Config struct {
	// AnnouncementsEnabled toggles Discord announcements (default: true)
	AnnouncementsEnabled bool
	// RetryInterval is how long to wait after a failed step (default: 5 minutes)
	RetryInterval time.Duration
	// MaxAnnounceAttempts bounds retries for channels that failed (default: 3)
	MaxAnnounceAttempts int
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		AnnouncementsEnabled: true,
		RetryInterval:        5 * time.Minute,
		MaxAnnounceAttempts:  3,
	}
}

// rollover tracks how far the transition into date has got, so a retry
// resumes at the first unfinished step instead of repeating the reset
type rollover struct {
	date   string
	ending string

	reset    bool
	cleared  bool
	rotated  bool
	rotation puzzle.Rotation

	announced        bool
	announceAttempts int
	failures         int
}

// Scheduler runs the daily rollover
type Scheduler struct {
	config  Config
	puzzles PuzzleRotator
	store   Store
	sender  Sender

	archiver  Archiver
	listeners []Listener
	notify    NotifyFunc

	now   func() time.Time
	after func(time.Duration) <-chan time.Time

	loaded    bool
	state     RolloverState
	lastDate  string
	progress  *rollover
	delivered *bloom.BloomFilter
	sent      map[string]bool
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithArchiver archives each day's leaderboard before clearing it
func WithArchiver(a Archiver) Option {
	return func(s *Scheduler) {
		s.archiver = a
	}
}

// WithListener registers a rollover listener
func WithListener(l Listener) Option {
	return func(s *Scheduler) {
		s.listeners = append(s.listeners, l)
	}
}

// WithNotify sets the ops alert function
func WithNotify(fn NotifyFunc) Option {
	return func(s *Scheduler) {
		s.notify = fn
	}
}

// WithClock overrides the time source and timer (for testing)
func WithClock(now func() time.Time, after func(time.Duration) <-chan time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
		if after != nil {
			s.after = after
		}
	}
}

// New creates a scheduler. sender may be nil when no bot is configured.
func New(config Config, puzzles PuzzleRotator, store Store, sender Sender, opts ...Option) *Scheduler {
	s := &Scheduler{
		config:    config,
		puzzles:   puzzles,
		store:     store,
		sender:    sender,
		now:       time.Now,
		after:     time.After,
		delivered: bloom.NewWithEstimates(10000, 0.001),
		sent:      make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.config.MaxAnnounceAttempts <= 0 {
		s.config.MaxAnnounceAttempts = 1
	}
	if s.config.RetryInterval <= 0 {
		s.config.RetryInterval = DefaultConfig().RetryInterval
	}
	return s
}

// Run blocks until ctx is cancelled, rolling the day over at each UTC midnight
func (s *Scheduler) Run(ctx context.Context) error {
	log.Println("[Scheduler] Starting...")

	for {
		wait := s.Tick(ctx)
		log.Printf("[Scheduler] Sleeping %v", wait.Round(time.Second))

		select {
		case <-ctx.Done():
			log.Println("[Scheduler] Context cancelled, stopping")
			return ctx.Err()
		case <-s.after(wait):
		}
	}
}

// Prepare loads the persisted rollover state. Tick calls it when needed; the
// server calls it before accepting requests.
func (s *Scheduler) Prepare(ctx context.Context) error {
	state, err := s.store.RolloverState(ctx)
	if err != nil {
		return fmt.Errorf("failed to load rollover state: %w", err)
	}
	s.state = state
	today := puzzle.Today(s.now())

	switch {
	case state.Done(today):
		s.lastDate = today
	case state.ResetDate == "":
		// Nothing recorded yet: fall back to the puzzle date
		if date, ok := s.puzzles.LastDate(ctx); ok {
			s.lastDate = date
		}
	default:
		s.lastDate = state.ClearedDate
	}

	s.loaded = true
	log.Printf("[Scheduler] Last rollover: reset %q, cleared %q", state.ResetDate, state.ClearedDate)
	return nil
}

// LastDate returns the last day the scheduler fully rotated into
func (s *Scheduler) LastDate() string {
	return s.lastDate
}

// Tick performs any due work and returns how long to sleep before the next one
func (s *Scheduler) Tick(ctx context.Context) time.Duration {
	now := s.now()
	today := puzzle.Today(now)

	if !s.loaded {
		if err := s.Prepare(ctx); err != nil {
			log.Printf("[Scheduler] %v", err)
			return s.retryWait(now)
		}
	}

	switch {
	case today != s.lastDate:
		if err := s.rollover(ctx, today); err != nil {
			log.Printf("[Scheduler] Rollover to %s incomplete: %v", today, err)
			return s.retryWait(now)
		}
		s.announce(ctx, s.progress)
	case s.progress != nil && s.progress.date == today && !s.progress.announced:
		s.announce(ctx, s.progress)
	}

	if s.progress != nil && s.progress.date == today && !s.progress.announced {
		return s.retryWait(now)
	}
	return untilMidnight(now)
}

func (s *Scheduler) rollover(ctx context.Context, today string) error {
	if s.progress == nil || s.progress.date != today {
		ending := s.lastDate
		if ending == "" {
			ending = puzzle.Today(s.now().AddDate(0, 0, -1))
		}
		s.progress = &rollover{
			date:    today,
			ending:  ending,
			reset:   s.state.ResetDate == today,
			cleared: s.state.ClearedDate == today,
		}
		s.delivered.ClearAll()
		clear(s.sent)
		log.Printf("[Scheduler] Rolling over %s -> %s", ending, today)
	}
	p := s.progress

	if !p.reset {
		if err := s.store.ResetDaily(ctx, today); err != nil {
			return s.fail(ctx, p, "reset streaks", err)
		}
		p.reset = true
		s.state.ResetDate = today
		log.Println("[Scheduler] Reset streaks and played flags")
	}

	if !p.cleared {
		s.archive(ctx, p.ending)
		if err := s.store.ClearLeaderboard(ctx, today); err != nil {
			return s.fail(ctx, p, "clear leaderboard", err)
		}
		p.cleared = true
		s.state.ClearedDate = today
		log.Println("[Scheduler] Cleared daily leaderboard")
	}

	if !p.rotated {
		rot, err := s.puzzles.Rotate(ctx)
		if err != nil {
			return s.fail(ctx, p, "rotate puzzle", err)
		}
		p.rotation = rot
		p.rotated = true
		log.Printf("[Scheduler] Puzzle for %s is ready", rot.Date)
	}

	s.lastDate = today
	for _, l := range s.listeners {
		l.Rollover(today, p.rotation.Previous)
	}
	return nil
}

// archive logs failures and never blocks the rollover
func (s *Scheduler) archive(ctx context.Context, date string) {
	if s.archiver == nil {
		return
	}
	entries, err := s.store.TodaysLeaderboard(ctx)
	if err != nil {
		log.Printf("[Scheduler] Failed to read leaderboard for archive: %v", err)
		return
	}
	if err := s.archiver.ArchiveDay(date, entries); err != nil {
		log.Printf("[Scheduler] Failed to archive leaderboard for %s: %v", date, err)
		return
	}
	log.Printf("[Scheduler] Archived %d results for %s", len(entries), date)
}

func (s *Scheduler) fail(ctx context.Context, p *rollover, step string, err error) error {
	p.failures++
	if p.failures == 1 && s.notify != nil {
		msg := fmt.Sprintf("Splatdle rollover to %s failed at %q: %v (retrying every %v)", p.date, step, err, s.config.RetryInterval)
		if nerr := s.notify(ctx, msg); nerr != nil {
			log.Printf("[Scheduler] Failed to send ops alert: %v", nerr)
		}
	}
	return fmt.Errorf("failed to %s: %w", step, err)
}

func (s *Scheduler) announce(ctx context.Context, p *rollover) {
	if p == nil || p.announced {
		return
	}
	if !s.config.AnnouncementsEnabled || s.sender == nil {
		p.announced = true
		return
	}
	p.announceAttempts++

	targets, err := s.store.AnnouncementTargets(ctx)
	if err != nil {
		log.Printf("[Scheduler] Failed to load announcement targets: %v", err)
		if p.announceAttempts >= s.config.MaxAnnounceAttempts {
			p.announced = true
		}
		return
	}

	failed := 0
	for _, t := range targets {
		key := p.date + "|" + t.ChannelID
		if s.delivered.TestString(key) && s.sent[key] {
			continue
		}
		if err := s.sender.Announce(ctx, t.ChannelID, p.date, p.rotation.Previous); err != nil {
			log.Printf("[Scheduler] Failed to announce to guild %s channel %s: %v", t.GuildID, t.ChannelID, err)
			failed++
			continue
		}
		s.delivered.AddString(key)
		s.sent[key] = true
	}

	if failed == 0 {
		log.Printf("[Scheduler] Announced %s to %d channels", p.date, len(targets))
		p.announced = true
		return
	}
	if p.announceAttempts >= s.config.MaxAnnounceAttempts {
		log.Printf("[Scheduler] Giving up on %d channels after %d attempts", failed, p.announceAttempts)
		p.announced = true
	}
}

func (s *Scheduler) retryWait(now time.Time) time.Duration {
	wait := s.config.RetryInterval
	if m := untilMidnight(now); m < wait {
		wait = m
	}
	return wait
}

// untilMidnight returns the time left until the next UTC midnight
func untilMidnight(now time.Time) time.Duration {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	d := next.Sub(now)
	if d <= 0 {
		d = time.Second
	}
	return d
}
