package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func envMap(m map[string]string) func(string) string {
	return func(key string) string {
		return m[key]
	}
}

// TestFromEnv_Defaults tests that an empty environment yields a valid SQLite config
func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(envMap(nil))
	if err != nil {
		t.Fatalf("Expected defaults to validate, got: %v", err)
	}
	if cfg.StoreDriver != DriverSQLite {
		t.Errorf("Expected sqlite driver, got: %s", cfg.StoreDriver)
	}
	if !cfg.AnnouncementsEnabled {
		t.Error("Expected announcements enabled by default")
	}
	if cfg.Addr() != ":8080" {
		t.Errorf("Expected :8080, got: %s", cfg.Addr())
	}
}

// TestFromEnv_Overrides tests reading every kind of value
func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{
		"PORT":                    "3000",
		"STORE_DRIVER":            "postgres",
		"DATABASE_URL":            `"postgres://localhost/splatdle"`,
		"PUZZLE_STORE":            "db",
		"ANNOUNCEMENTS_ENABLED":   "false",
		"ROLLOVER_RETRY_INTERVAL": "30s",
		"THEME_COLOUR":            "#F5A623",
		"SPLATDLE_URL":            "https://splatdle.example.com",
	}))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.DatabaseURL != "postgres://localhost/splatdle" {
		t.Errorf("Expected quotes trimmed, got: %s", cfg.DatabaseURL)
	}
	if cfg.AnnouncementsEnabled {
		t.Error("Expected announcements disabled")
	}
	if cfg.RetryInterval != 30*time.Second {
		t.Errorf("Expected 30s, got: %v", cfg.RetryInterval)
	}
	if cfg.ThemeColour != 0xF5A623 {
		t.Errorf("Expected 0xF5A623, got: %d", cfg.ThemeColour)
	}
	if cfg.PlayURL != "https://splatdle.example.com" {
		t.Errorf("Unexpected play URL: %s", cfg.PlayURL)
	}
}

// TestFromEnv_Invalid tests validation failures
func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"postgres without url", map[string]string{"STORE_DRIVER": "postgres"}, "DATABASE_URL"},
		{"libsql without url", map[string]string{"STORE_DRIVER": "libsql"}, "TURSO_DATABASE_URL"},
		{"unknown driver", map[string]string{"STORE_DRIVER": "mysql"}, "STORE_DRIVER"},
		{"unknown puzzle store", map[string]string{"PUZZLE_STORE": "redis"}, "PUZZLE_STORE"},
		{"bad bool", map[string]string{"ANNOUNCEMENTS_ENABLED": "sometimes"}, "ANNOUNCEMENTS_ENABLED"},
		{"bad duration", map[string]string{"ROLLOVER_RETRY_INTERVAL": "soon"}, "ROLLOVER_RETRY_INTERVAL"},
		{"negative duration", map[string]string{"ROLLOVER_RETRY_INTERVAL": "-1m"}, "ROLLOVER_RETRY_INTERVAL"},
		{"bad colour", map[string]string{"THEME_COLOUR": "orange"}, "THEME_COLOUR"},
		{"colour out of range", map[string]string{"THEME_COLOUR": "99999999"}, "THEME_COLOUR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromEnv(envMap(tt.env))
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error mentioning %s, got: %v", tt.wantErr, err)
			}
		})
	}
}

// TestParseColour tests decimal and hex colour formats
func TestParseColour(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"16099875", 16099875},
		{"#F5A623", 0xF5A623},
		{"0xf5a623", 0xF5A623},
	}
	for _, tt := range tests {
		got, err := parseColour(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("parseColour(%q) = %d, %v; want %d", tt.in, got, err, tt.want)
		}
	}
}

// TestLoad_EnvFile tests that Load picks up a .env in the working directory
func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("SPLATDLE_URL=https://from-dotenv.example.com\n"), 0644); err != nil {
		t.Fatalf("Failed to write .env: %v", err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
	t.Setenv("SPLATDLE_URL", "")
	os.Unsetenv("SPLATDLE_URL")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.PlayURL != "https://from-dotenv.example.com" {
		t.Errorf("Expected value from .env, got: %q", cfg.PlayURL)
	}
}
