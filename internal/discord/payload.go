package discord

import (
	"fmt"
	"strings"
	"time"

	"splatdle/internal/catalog"
)

const (
	// Colors for Discord embeds
	colorRed = 15158332 // 0xE74C3C - for errors

	// DefaultThemeColour is Splatoon orange (0xF5A623)
	DefaultThemeColour = 16099875
)

// WebhookPayload represents a Discord message body, for both webhooks and
// bot channel messages
type WebhookPayload struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

// Embed represents a Discord embed
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	URL         string       `json:"url,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Image       *EmbedImage  `json:"image,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

// EmbedField represents a field in a Discord embed
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// EmbedImage is the large image shown under an embed
type EmbedImage struct {
	URL string `json:"url"`
}

// EmbedFooter represents the footer of a Discord embed
type EmbedFooter struct {
	Text string `json:"text"`
}

// Reveal describes a rollover announcement
type Reveal struct {
	Date     string          // the new puzzle day
	Previous *catalog.Weapon // yesterday's answer, nil on the very first day
	ImageURL string
	PlayURL  string
	Colour   int
}

// NewWeaponRevealPayload creates the daily announcement: yesterday's weapon
// plus a pointer to the new puzzle
func NewWeaponRevealPayload(r Reveal) WebhookPayload {
	colour := r.Colour
	if colour == 0 {
		colour = DefaultThemeColour
	}

	embed := Embed{
		Title:     "🦑 A new Splatdle is live!",
		URL:       r.PlayURL,
		Color:     colour,
		Timestamp: revealTimestamp(r.Date),
		Footer: &EmbedFooter{
			Text: "Splatdle for " + r.Date,
		},
	}

	if r.Previous == nil {
		embed.Description = "Today's weapon is ready. Can you guess it?"
		return WebhookPayload{Embeds: []Embed{embed}}
	}

	embed.Description = fmt.Sprintf("Yesterday's weapon was **%s**", r.Previous.Label())
	embed.Fields = weaponFields(*r.Previous)
	if r.ImageURL != "" {
		embed.Image = &EmbedImage{URL: r.ImageURL}
	}
	return WebhookPayload{Embeds: []Embed{embed}}
}

// NewRolloverAlertPayload creates an ops alert for a failed rollover step
func NewRolloverAlertPayload(message string) WebhookPayload {
	return WebhookPayload{
		Embeds: []Embed{
			{
				Title:       "⚠️ Splatdle Rollover Failed",
				Description: message,
				Color:       colorRed,
				Timestamp:   time.Now().UTC().Format(time.RFC3339),
			},
		},
	}
}

func weaponFields(w catalog.Weapon) []EmbedField {
	var fields []EmbedField
	add := func(name, value string) {
		if strings.TrimSpace(value) != "" {
			fields = append(fields, EmbedField{Name: name, Value: value, Inline: true})
		}
	}
	add("Game", string(w.Game))
	add("Class", w.Class)
	add("Sub", w.Sub)
	add("Special", w.Special)
	return fields
}

// revealTimestamp is midnight UTC of date, or empty if date does not parse
func revealTimestamp(date string) string {
	t, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
