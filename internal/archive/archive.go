package archive

import (
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"splatdle/internal/stats"
)

// DefaultKeepWarm is how many recent days stay uncompressed
const DefaultKeepWarm = 7

const (
	filePrefix = "leaderboard_"
	fileSuffix = ".jsonl"
)

// ErrNotFound is returned when no archive exists for a date
var ErrNotFound = errors.New("no archived leaderboard for date")

// Record is one line of an archived day: a player's final placing
type Record struct {
	Date        string    `json:"date"`
	Rank        int       `json:"rank"`
	PlayerID    string    `json:"playerId"`
	GuessCount  int       `json:"guessCount"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Archive keeps one JSONL file per finished day. Recent days live in warm/,
// older ones are gzipped into cold/.
type Archive struct {
	mu       sync.Mutex
	warmDir  string
	coldDir  string
	keepWarm int
}

// New creates an archive rooted at baseDir
func New(baseDir string) (*Archive, error) {
	warmDir := filepath.Join(baseDir, "warm")
	coldDir := filepath.Join(baseDir, "cold")

	for _, dir := range []string{warmDir, coldDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return &Archive{
		warmDir:  warmDir,
		coldDir:  coldDir,
		keepWarm: DefaultKeepWarm,
	}, nil
}

// SetKeepWarm changes how many days stay uncompressed
func (a *Archive) SetKeepWarm(n int) {
	a.mu.Lock()
	a.keepWarm = n
	a.mu.Unlock()
}

// ArchiveDay writes a finished day's leaderboard. entries must already be in
// leaderboard order. Archiving the same date twice replaces the file.
func (a *Archive) ArchiveDay(date string, entries []stats.LeaderboardEntry) error {
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return fmt.Errorf("invalid archive date %q: %w", date, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	path := filepath.Join(a.warmDir, fileName(date))
	tmp, err := os.CreateTemp(a.warmDir, ".tmp-"+date+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriterSize(tmp, 64*1024)
	for i, e := range entries {
		data, err := json.Marshal(Record{
			Date:        date,
			Rank:        i + 1,
			PlayerID:    e.PlayerID,
			GuessCount:  e.GuessCount,
			SubmittedAt: e.SubmittedAt,
		})
		if err != nil {
			tmp.Close()
			return fmt.Errorf("failed to marshal record: %w", err)
		}
		w.Write(data)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close archive: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move archive into place: %w", err)
	}
	os.Remove(filepath.Join(a.coldDir, fileName(date)+".gz"))

	log.Printf("[Archive] Wrote %s (%d results)", fileName(date), len(entries))
	return a.compressOld()
}

// compressOld moves every warm file beyond the newest keepWarm into cold storage
func (a *Archive) compressOld() error {
	dates, err := listDates(a.warmDir, fileSuffix)
	if err != nil {
		return err
	}
	if len(dates) <= a.keepWarm {
		return nil
	}
	for _, date := range dates[:len(dates)-a.keepWarm] {
		if err := CompressToCold(filepath.Join(a.warmDir, fileName(date)), a.coldDir); err != nil {
			return fmt.Errorf("failed to compress %s: %w", date, err)
		}
	}
	return nil
}

// ReadDay returns the archived leaderboard for date
func (a *Archive) ReadDay(date string) ([]Record, error) {
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return nil, ErrNotFound
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	f, err := os.Open(filepath.Join(a.warmDir, fileName(date)))
	if err == nil {
		defer f.Close()
		return readRecords(f)
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	f, err = os.Open(filepath.Join(a.coldDir, fileName(date)+".gz"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to open gzip: %w", err)
	}
	defer gz.Close()
	return readRecords(gz)
}

// Days lists every archived date, oldest first
func (a *Archive) Days() ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	warm, err := listDates(a.warmDir, fileSuffix)
	if err != nil {
		return nil, err
	}
	cold, err := listDates(a.coldDir, fileSuffix+".gz")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(warm)+len(cold))
	var days []string
	for _, d := range append(cold, warm...) {
		if !seen[d] {
			seen[d] = true
			days = append(days, d)
		}
	}
	sort.Strings(days)
	return days, nil
}

func readRecords(r io.Reader) ([]Record, error) {
	var records []Record
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("failed to parse archive line: %w", err)
		}
		records = append(records, rec)
	}
	return records, scanner.Err()
}

func fileName(date string) string {
	return filePrefix + date + fileSuffix
}

// listDates returns the dates of files in dir ending in suffix, sorted
func listDates(dir, suffix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var dates []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, suffix) {
			continue
		}
		dates = append(dates, strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), suffix))
	}
	sort.Strings(dates)
	return dates, nil
}

// CompressToCold compresses a warm file and moves it to cold storage
func CompressToCold(warmPath, coldDir string) error {
	src, err := os.Open(warmPath)
	if err != nil {
		return err
	}
	defer src.Close()

	coldPath := filepath.Join(coldDir, filepath.Base(warmPath)+".gz")
	dst, err := os.Create(coldPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	gzWriter := gzip.NewWriter(dst)
	if _, err := io.Copy(gzWriter, src); err != nil {
		return err
	}
	if err := gzWriter.Close(); err != nil {
		return err
	}

	// Remove warm copy
	if err := os.Remove(warmPath); err != nil {
		return err
	}

	log.Printf("[Archive] Compressed %s to cold storage", filepath.Base(warmPath))
	return nil
}
