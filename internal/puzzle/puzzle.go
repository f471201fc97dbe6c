package puzzle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"splatdle/internal/catalog"
)

// Today returns the UTC calendar date of t as YYYY-MM-DD
func Today(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

// Rotation describes the puzzle in force for a date
type Rotation struct {
	Date     string
	Current  catalog.Weapon
	Previous *catalog.Weapon
	// Selected is true when this call picked a new weapon
	Selected bool
}

// Service selects and persists the daily weapon. The store is the source of
// truth; the service remembers the record it last served so an unreachable
// store never changes the answer mid-day.
type Service struct {
	catalog *catalog.Catalog
	store   Store
	now     func() time.Time

	mu   sync.Mutex
	rng  *rand.Rand
	last *Record
}

// Option configures a Service
type Option func(*Service)

// WithClock overrides the time source (for testing)
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithRand sets the random source used for selection
func WithRand(r *rand.Rand) Option {
	return func(s *Service) {
		s.rng = r
	}
}

// NewService creates a puzzle service over the catalog and store
func NewService(c *catalog.Catalog, store Store, opts ...Option) *Service {
	s := &Service{
		catalog: c,
		store:   store,
		now:     time.Now,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catalog returns the weapon catalog the service picks from
func (s *Service) Catalog() *catalog.Catalog {
	return s.catalog
}

// Current returns today's weapon, selecting one if needed. It never fails:
// storage errors are logged and the in-memory pick is served.
func (s *Service) Current(ctx context.Context) catalog.Weapon {
	rot, err := s.ensure(ctx)
	if err != nil {
		log.Printf("[Puzzle] %v (serving %s from memory)", err, rot.Current.Label())
	}
	return rot.Current
}

// Rotate makes sure today's puzzle is selected and persisted. Unlike Current
// it reports storage failures so the scheduler can retry.
func (s *Service) Rotate(ctx context.Context) (Rotation, error) {
	return s.ensure(ctx)
}

// LastDate returns the date of the persisted puzzle, if any
func (s *Service) LastDate(ctx context.Context) (string, bool) {
	rec, err := s.store.LoadPuzzle(ctx)
	if err != nil {
		log.Printf("[Puzzle] Failed to load puzzle state: %v", err)
		return "", false
	}
	if rec == nil {
		return "", false
	}
	return rec.Date, true
}

func (s *Service) ensure(ctx context.Context) (Rotation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	today := Today(s.now())

	rec, err := s.store.LoadPuzzle(ctx)
	switch {
	case errors.Is(err, ErrCorrupt):
		log.Printf("[Puzzle] Ignoring corrupt puzzle state: %v", err)
		rec = nil
	case err != nil:
		// The persisted answer is unknown, so nothing is written until the
		// store can be read again
		loadErr := fmt.Errorf("failed to load puzzle state: %w", err)
		if rot, ok := s.remembered(today); ok {
			return rot, loadErr
		}
		return s.selectFor(today, s.lastKey()), loadErr
	}

	if rec != nil && rec.Date == today {
		if w, ok := s.catalog.Find(rec.Weapon); ok {
			r := *rec
			s.last = &r
			return Rotation{Date: today, Current: w, Previous: s.lookup(rec.Previous)}, nil
		}
		log.Printf("[Puzzle] Weapon %s is no longer in the catalog, reselecting", rec.Weapon)
	}

	// Today's answer was served from memory but never saved
	if rot, ok := s.remembered(today); ok {
		if err := s.store.SavePuzzle(ctx, *s.last); err != nil {
			return rot, fmt.Errorf("failed to save puzzle: %w", err)
		}
		return rot, nil
	}

	prev := s.lastKey()
	if rec != nil {
		k := rec.Weapon
		prev = &k
	}

	rot := s.selectFor(today, prev)
	if err := s.store.SavePuzzle(ctx, *s.last); err != nil {
		return rot, fmt.Errorf("failed to save puzzle: %w", err)
	}
	return rot, nil
}

// remembered returns the in-memory record when it is today's and its weapon
// is still in the catalog
func (s *Service) remembered(today string) (Rotation, bool) {
	if s.last == nil || s.last.Date != today {
		return Rotation{}, false
	}
	w, ok := s.catalog.Find(s.last.Weapon)
	if !ok {
		return Rotation{}, false
	}
	return Rotation{Date: today, Current: w, Previous: s.lookup(s.last.Previous)}, true
}

func (s *Service) lastKey() *catalog.Key {
	if s.last == nil {
		return nil
	}
	k := s.last.Weapon
	return &k
}

// selectFor picks a weapon other than prev and remembers it as today's
func (s *Service) selectFor(today string, prev *catalog.Key) Rotation {
	w := s.pick(prev)
	s.last = &Record{Weapon: w.Key(), Date: today, Previous: prev}
	log.Printf("[Puzzle] Selected %s for %s", w.Label(), today)
	return Rotation{Date: today, Current: w, Previous: s.lookup(prev), Selected: true}
}

// pick chooses uniformly among catalog weapons other than exclude
func (s *Service) pick(exclude *catalog.Key) catalog.Weapon {
	n := s.catalog.Len()
	if n == 1 || exclude == nil {
		return s.catalog.At(s.rng.Intn(n))
	}

	skip, ok := s.catalog.Index(*exclude)
	if !ok {
		return s.catalog.At(s.rng.Intn(n))
	}

	i := s.rng.Intn(n - 1)
	if i >= skip {
		i++
	}
	return s.catalog.At(i)
}

func (s *Service) lookup(k *catalog.Key) *catalog.Weapon {
	if k == nil {
		return nil
	}
	w, ok := s.catalog.Find(*k)
	if !ok {
		return nil
	}
	return &w
}
