package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"splatdle/internal/archive"
	"splatdle/internal/auth"
	"splatdle/internal/catalog"
	"splatdle/internal/logger"
	"splatdle/internal/puzzle"
	"splatdle/internal/stats"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
	maxBodyBytes            = 1 << 12
)

// PuzzleResponse is the game payload: every weapon plus today's answer
type PuzzleResponse struct {
	Weapons []catalog.Weapon `json:"weapons"`
	Answer  string           `json:"answer"`
}

// SubmitRequest is the body of POST /api/splatdle/stats
type SubmitRequest struct {
	GuessCount *int `json:"guess_count"`
}

// TodaysLeaderboardResponse lists today's results
type TodaysLeaderboardResponse struct {
	Date    string                   `json:"date"`
	Entries []stats.LeaderboardEntry `json:"entries"`
}

// GlobalLeaderboardResponse lists the all-time ranking
type GlobalLeaderboardResponse struct {
	Players       []stats.RankedPlayer `json:"players"`
	GlobalAverage float64              `json:"globalAverage"`
}

// HistoryResponse is one archived day
type HistoryResponse struct {
	Date    string           `json:"date"`
	Entries []archive.Record `json:"entries"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"date":   puzzle.Today(time.Now()),
	})
}

func (s *Server) handlePuzzle(w http.ResponseWriter, r *http.Request) {
	current := s.puzzles.Current(r.Context())
	weapons := s.puzzles.Catalog().All()
	writeJSON(w, http.StatusOK, PuzzleResponse{
		Weapons: weapons,
		Answer:  current.Label(),
	})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req SubmitRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Could not read request body")
		return
	}
	if err := json.Unmarshal(body, &req); err != nil || req.GuessCount == nil {
		writeError(w, http.StatusBadRequest, "guess_count is required")
		return
	}

	result, err := s.stats.Submit(r.Context(), id.PlayerID, *req.GuessCount)
	switch {
	case errors.Is(err, stats.ErrInvalidGuessCount), errors.Is(err, stats.ErrMissingPlayer):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		logger.Error("Submit failed for %s: %v", id.PlayerID, err)
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	if result.Status == stats.StatusOK && s.live != nil {
		s.live.Submitted(id.PlayerID, *req.GuessCount)
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if today, _ := strconv.ParseBool(q.Get("today")); today {
		entries, err := s.stats.TodaysLeaderboard(r.Context())
		if err != nil {
			logger.Error("Today's leaderboard failed: %v", err)
			writeError(w, http.StatusInternalServerError, "Database error")
			return
		}
		if entries == nil {
			entries = []stats.LeaderboardEntry{}
		}
		writeJSON(w, http.StatusOK, TodaysLeaderboardResponse{
			Date:    puzzle.Today(time.Now()),
			Entries: entries,
		})
		return
	}

	limit := defaultLeaderboardLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxLeaderboardLimit {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	players, err := s.stats.GlobalLeaderboard(r.Context(), limit)
	if err != nil {
		logger.Error("Global leaderboard failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	avg, err := s.stats.GlobalAverage(r.Context())
	if err != nil {
		logger.Error("Global average failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if players == nil {
		players = []stats.RankedPlayer{}
	}
	writeJSON(w, http.StatusOK, GlobalLeaderboardResponse{Players: players, GlobalAverage: avg})
}

func (s *Server) handlePlayer(w http.ResponseWriter, r *http.Request) {
	playerID := mux.Vars(r)["id"]

	card, err := s.stats.Player(r.Context(), playerID)
	switch {
	case errors.Is(err, stats.ErrPlayerNotFound):
		writeError(w, http.StatusNotFound, "Player has not played Splatdle yet")
		return
	case err != nil:
		logger.Error("Player lookup failed for %s: %v", playerID, err)
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func (s *Server) handleHistoryDays(w http.ResponseWriter, r *http.Request) {
	days, err := s.history.Days()
	if err != nil {
		logger.Error("Listing archive failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Archive error")
		return
	}
	if days == nil {
		days = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"days": days})
}

func (s *Server) handleHistoryDay(w http.ResponseWriter, r *http.Request) {
	date := mux.Vars(r)["date"]

	records, err := s.history.ReadDay(date)
	switch {
	case errors.Is(err, archive.ErrNotFound):
		writeError(w, http.StatusNotFound, "No leaderboard archived for "+date)
		return
	case err != nil:
		logger.Error("Reading archive for %s failed: %v", date, err)
		writeError(w, http.StatusInternalServerError, "Archive error")
		return
	}
	if records == nil {
		records = []archive.Record{}
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Date: date, Entries: records})
}
