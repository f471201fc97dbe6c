package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"splatdle/internal/discord"
)

// Store drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverLibSQL   = "libsql"
)

// Puzzle state backends
const (
	PuzzleStoreFile = "file"
	PuzzleStoreDB   = "db"
)

// EnvPaths are the .env locations tried in order
var EnvPaths = []string{".env", "../.env", "../../.env"}

// Config is the process configuration, built once in main
type Config struct {
	Port string

	StoreDriver    string
	DatabaseURL    string
	SQLitePath     string
	TursoURL       string
	TursoAuthToken string

	CatalogPath     string
	PuzzleStore     string
	PuzzleStatePath string
	ArchivePath     string

	DiscordToken         string
	DiscordAPIURL        string
	OpsWebhookURL        string
	AnnouncementsEnabled bool
	RetryInterval        time.Duration
	ImageBaseURL         string
	PlayURL              string
	ThemeColour          int

	AllowedOrigin   string
	ShutdownTimeout time.Duration
}

// DefaultConfig returns settings for a local run against SQLite
func DefaultConfig() Config {
	return Config{
		Port:                 "8080",
		StoreDriver:          DriverSQLite,
		SQLitePath:           "data/splatdle.db",
		CatalogPath:          "data/weapons.json",
		PuzzleStore:          PuzzleStoreFile,
		PuzzleStatePath:      "data/weapon.json",
		ArchivePath:          "data/archive",
		DiscordAPIURL:        "https://discord.com/api/v10",
		AnnouncementsEnabled: true,
		RetryInterval:        5 * time.Minute,
		ThemeColour:          discord.DefaultThemeColour,
		ShutdownTimeout:      10 * time.Second,
	}
}

// LoadEnvFile loads the first .env found in EnvPaths. Missing files are not an error.
func LoadEnvFile() string {
	for _, path := range EnvPaths {
		if err := godotenv.Load(path); err == nil {
			log.Printf("[Config] Loaded .env from: %s", path)
			return path
		}
	}
	log.Println("[Config] No .env file found, using environment variables")
	return ""
}

// Load reads .env then the environment over DefaultConfig and validates the result
func Load() (Config, error) {
	LoadEnvFile()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := DefaultConfig()
	var errs []error

	str := func(key string, dst *string) {
		if v := strings.Trim(getenv(key), "\""); v != "" {
			*dst = v
		}
	}

	str("PORT", &cfg.Port)
	str("STORE_DRIVER", &cfg.StoreDriver)
	str("DATABASE_URL", &cfg.DatabaseURL)
	str("SQLITE_PATH", &cfg.SQLitePath)
	str("TURSO_DATABASE_URL", &cfg.TursoURL)
	str("TURSO_AUTH_TOKEN", &cfg.TursoAuthToken)
	str("CATALOG_PATH", &cfg.CatalogPath)
	str("PUZZLE_STORE", &cfg.PuzzleStore)
	str("PUZZLE_STATE_PATH", &cfg.PuzzleStatePath)
	str("ARCHIVE_PATH", &cfg.ArchivePath)
	str("DISCORD_TOKEN", &cfg.DiscordToken)
	str("DISCORD_API_URL", &cfg.DiscordAPIURL)
	str("OPS_WEBHOOK_URL", &cfg.OpsWebhookURL)
	str("IMAGE_BASE_URL", &cfg.ImageBaseURL)
	str("SPLATDLE_URL", &cfg.PlayURL)
	str("ALLOWED_ORIGIN", &cfg.AllowedOrigin)

	if v := getenv("ANNOUNCEMENTS_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("ANNOUNCEMENTS_ENABLED: %w", err))
		}
		cfg.AnnouncementsEnabled = b
	}
	if v := getenv("ROLLOVER_RETRY_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("ROLLOVER_RETRY_INTERVAL: %w", err))
		}
		cfg.RetryInterval = d
	}
	if v := getenv("THEME_COLOUR"); v != "" {
		n, err := parseColour(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("THEME_COLOUR: %w", err))
		}
		cfg.ThemeColour = n
	}

	if err := errors.Join(errs...); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// parseColour accepts decimal or hex ("#F5A623", "0xF5A623")
func parseColour(v string) (int, error) {
	v = strings.TrimSpace(v)
	switch {
	case strings.HasPrefix(v, "#"):
		n, err := strconv.ParseInt(v[1:], 16, 32)
		return int(n), err
	case strings.HasPrefix(v, "0x"), strings.HasPrefix(v, "0X"):
		n, err := strconv.ParseInt(v[2:], 16, 32)
		return int(n), err
	}
	n, err := strconv.Atoi(v)
	return n, err
}

// Validate checks that the selected backends have what they need
func (c Config) Validate() error {
	var errs []error

	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite store"))
		}
	case DriverLibSQL:
		if c.TursoURL == "" {
			errs = append(errs, errors.New("TURSO_DATABASE_URL is required for the libsql store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}

	switch c.PuzzleStore {
	case PuzzleStoreFile:
		if c.PuzzleStatePath == "" {
			errs = append(errs, errors.New("PUZZLE_STATE_PATH is required for the file puzzle store"))
		}
	case PuzzleStoreDB:
	default:
		errs = append(errs, fmt.Errorf("unknown PUZZLE_STORE %q", c.PuzzleStore))
	}

	if c.CatalogPath == "" {
		errs = append(errs, errors.New("CATALOG_PATH is required"))
	}
	if c.RetryInterval <= 0 {
		errs = append(errs, errors.New("ROLLOVER_RETRY_INTERVAL must be positive"))
	}
	if c.ThemeColour < 0 || c.ThemeColour > 0xFFFFFF {
		errs = append(errs, fmt.Errorf("THEME_COLOUR %d is out of range", c.ThemeColour))
	}

	return errors.Join(errs...)
}

// Addr is the listen address for the HTTP server
func (c Config) Addr() string {
	return ":" + c.Port
}
