package discord

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"splatdle/internal/catalog"
)

var splattershot = catalog.Weapon{
	Name:    "Splattershot",
	Game:    catalog.Splatoon3,
	Class:   "Shooter",
	Sub:     "Burst Bomb",
	Special: "Trizooka",
	Image:   "images/splattershot.png",
}

// TestWeaponRevealPayload_Format tests that the reveal embed shows yesterday's weapon
func TestWeaponRevealPayload_Format(t *testing.T) {
	payload := NewWeaponRevealPayload(Reveal{
		Date:     "2025-03-15",
		Previous: &splattershot,
		ImageURL: "https://cdn.example.com/splattershot.png",
		PlayURL:  "https://example.com/splatdle",
	})

	if len(payload.Embeds) != 1 {
		t.Fatalf("Expected 1 embed, got %d", len(payload.Embeds))
	}
	embed := payload.Embeds[0]

	if !strings.Contains(embed.Description, "Splattershot (Splatoon 3)") {
		t.Errorf("Expected description to name the weapon, got: %s", embed.Description)
	}
	if embed.Color != DefaultThemeColour {
		t.Errorf("Expected default theme colour, got: %d", embed.Color)
	}
	if embed.Image == nil || embed.Image.URL != "https://cdn.example.com/splattershot.png" {
		t.Errorf("Expected image URL, got: %+v", embed.Image)
	}
	if embed.URL != "https://example.com/splatdle" {
		t.Errorf("Expected play URL, got: %s", embed.URL)
	}
	if embed.Timestamp != "2025-03-15T00:00:00Z" {
		t.Errorf("Expected midnight timestamp, got: %s", embed.Timestamp)
	}
	if len(embed.Fields) != 4 || embed.Fields[0].Value != "Splatoon 3" {
		t.Errorf("Expected 4 weapon fields starting with the game, got: %+v", embed.Fields)
	}
}

// TestWeaponRevealPayload_FirstDay tests the announcement when there is no previous weapon
func TestWeaponRevealPayload_FirstDay(t *testing.T) {
	payload := NewWeaponRevealPayload(Reveal{Date: "2025-03-15", Colour: 42})
	embed := payload.Embeds[0]

	if embed.Image != nil || len(embed.Fields) != 0 {
		t.Errorf("Expected no weapon details on the first day, got: %+v", embed)
	}
	if embed.Color != 42 {
		t.Errorf("Expected custom colour 42, got: %d", embed.Color)
	}
}

// TestWebhookClient_Notify tests the HTTP call for an ops alert
func TestWebhookClient_Notify(t *testing.T) {
	var receivedBody []byte
	var receivedContentType string
	var receivedMethod string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedMethod = r.Method
		receivedContentType = r.Header.Get("Content-Type")
		receivedBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent) // Discord returns 204 on success
	}))
	defer server.Close()

	client := NewWebhookClient(server.URL)

	if err := client.Notify(context.Background(), "reset failed"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if receivedMethod != "POST" {
		t.Errorf("Expected POST method, got: %s", receivedMethod)
	}
	if receivedContentType != "application/json" {
		t.Errorf("Expected application/json content type, got: %s", receivedContentType)
	}

	var payload WebhookPayload
	if err := json.Unmarshal(receivedBody, &payload); err != nil {
		t.Fatalf("Failed to parse sent payload: %v", err)
	}
	if len(payload.Embeds) != 1 || payload.Embeds[0].Description != "reset failed" {
		t.Errorf("Expected alert embed with message, got: %+v", payload.Embeds)
	}
	if payload.Embeds[0].Color != 15158332 {
		t.Errorf("Expected red color (15158332), got: %d", payload.Embeds[0].Color)
	}
}

// TestWebhookClient_WebhookError tests handling of webhook errors
func TestWebhookClient_WebhookError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message": "Invalid webhook"}`))
	}))
	defer server.Close()

	client := NewWebhookClient(server.URL)

	if err := client.Notify(context.Background(), "x"); err == nil {
		t.Error("Expected error for bad request")
	}
}

// TestWebhookClient_ContextCancelled tests handling of cancelled context
func TestWebhookClient_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(1 * time.Second)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewWebhookClient(server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	if err := client.Notify(ctx, "x"); err == nil {
		t.Error("Expected context cancelled error")
	}
}

// TestWebhookClient_RateLimited tests handling of Discord rate limiting
func TestWebhookClient_RateLimited(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("Retry-After", "0.1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewWebhookClient(server.URL)

	// Should succeed after retry
	if err := client.Notify(context.Background(), "x"); err != nil {
		t.Errorf("Expected success after retry, got: %v", err)
	}
	if attempts != 2 {
		t.Errorf("Expected 2 attempts (1 retry), got: %d", attempts)
	}
}

// TestWebhookClient_RateLimitedExhausted tests giving up after repeated 429s
func TestWebhookClient_RateLimitedExhausted(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewWebhookClient(server.URL)

	if err := client.Notify(context.Background(), "x"); err == nil {
		t.Error("Expected error after exhausting retries")
	}
	if attempts != maxRetries {
		t.Errorf("Expected %d attempts, got: %d", maxRetries, attempts)
	}
}

// TestRetryAfter tests parsing of the Retry-After header
func TestRetryAfter(t *testing.T) {
	tests := []struct {
		header string
		want   time.Duration
	}{
		{"", time.Second},
		{"2", 2 * time.Second},
		{"0.5", 500 * time.Millisecond},
		{"soon", time.Second},
		{"-1", time.Second},
	}

	for _, tt := range tests {
		if got := retryAfter(tt.header); got != tt.want {
			t.Errorf("retryAfter(%q) = %v, want %v", tt.header, got, tt.want)
		}
	}
}
