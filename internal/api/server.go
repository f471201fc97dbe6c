package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"splatdle/internal/archive"
	"splatdle/internal/catalog"
	"splatdle/internal/logger"
	"splatdle/internal/stats"
)

// PuzzleSource serves today's weapon
type PuzzleSource interface {
	Current(ctx context.Context) catalog.Weapon
	Catalog() *catalog.Catalog
}

// StatsService is the submission and stats API used by the handlers
type StatsService interface {
	Submit(ctx context.Context, playerID string, guessCount int) (stats.Result, error)
	Player(ctx context.Context, playerID string) (stats.PlayerCard, error)
	GlobalLeaderboard(ctx context.Context, limit int) ([]stats.RankedPlayer, error)
	TodaysLeaderboard(ctx context.Context) ([]stats.LeaderboardEntry, error)
	GlobalAverage(ctx context.Context) (float64, error)
}

// Authenticator guards routes that need a player identity
type Authenticator interface {
	Middleware(next http.Handler) http.Handler
}

// LiveFeed is the websocket endpoint plus its result notifications
type LiveFeed interface {
	http.Handler
	Submitted(playerID string, guessCount int)
}

// History serves archived daily leaderboards
type History interface {
	Days() ([]string, error)
	ReadDay(date string) ([]archive.Record, error)
}

// Server holds the HTTP handlers' dependencies
type Server struct {
	puzzles       PuzzleSource
	stats         StatsService
	auth          Authenticator
	live          LiveFeed
	history       History
	allowedOrigin string
}

// Option configures a Server
type Option func(*Server)

// WithLiveFeed mounts the websocket feed and reports counted results to it
func WithLiveFeed(feed LiveFeed) Option {
	return func(s *Server) {
		s.live = feed
	}
}

// WithHistory mounts the archived leaderboard routes
func WithHistory(h History) Option {
	return func(s *Server) {
		s.history = h
	}
}

// WithAllowedOrigin enables CORS with credentials for origin
func WithAllowedOrigin(origin string) Option {
	return func(s *Server) {
		s.allowedOrigin = origin
	}
}

// NewServer creates the API server
func NewServer(puzzles PuzzleSource, statsService StatsService, authenticator Authenticator, opts ...Option) *Server {
	s := &Server{
		puzzles: puzzles,
		stats:   statsService,
		auth:    authenticator,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the route table
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(RequestLogger)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api/splatdle").Subrouter()
	api.HandleFunc("", s.handlePuzzle).Methods(http.MethodGet)
	api.HandleFunc("/leaderboard", s.handleLeaderboard).Methods(http.MethodGet)
	api.HandleFunc("/players/{id}", s.handlePlayer).Methods(http.MethodGet)
	api.Handle("/stats", s.auth.Middleware(http.HandlerFunc(s.handleSubmit))).Methods(http.MethodPost)

	if s.history != nil {
		api.HandleFunc("/leaderboard/history", s.handleHistoryDays).Methods(http.MethodGet)
		api.HandleFunc("/leaderboard/history/{date}", s.handleHistoryDay).Methods(http.MethodGet)
	}
	if s.live != nil {
		api.Handle("/live", s.live).Methods(http.MethodGet)
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Warning("404 Not Found: %s %s", r.Method, r.URL.Path)
		writeError(w, http.StatusNotFound, "Route not found")
	})

	if s.allowedOrigin == "" {
		return r
	}
	return CORS(s.allowedOrigin)(r)
}
