package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"splatdle/internal/catalog"
)

const (
	// Discord API base URL
	defaultDiscordBaseURL = "https://discord.com/api/v10"

	// Default timeout for Discord API requests
	defaultDiscordTimeout = 10 * time.Second
)

// ErrUnauthorized is returned when Discord rejects a user's access token
var ErrUnauthorized = errors.New("discord rejected the access token")

// User is the subset of a Discord user object the service needs
type User struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name,omitempty"`
	Avatar     string `json:"avatar,omitempty"`
}

// BotClient talks to the Discord REST API
type BotClient struct {
	botToken   string
	baseURL    string
	httpClient *http.Client
}

// BotOption configures a BotClient
type BotOption func(*BotClient)

// WithDiscordBaseURL sets a custom Discord API base URL (for testing)
func WithDiscordBaseURL(url string) BotOption {
	return func(c *BotClient) {
		if url != "" {
			c.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// NewBotClient creates a new BotClient. botToken may be empty when the
// client is only used for user lookups.
func NewBotClient(botToken string, opts ...BotOption) *BotClient {
	c := &BotClient{
		botToken: botToken,
		baseURL:  defaultDiscordBaseURL,
		httpClient: &http.Client{
			Timeout: defaultDiscordTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// SendEmbed sends an embed message to a channel
func (c *BotClient) SendEmbed(ctx context.Context, channelID string, payload WebhookPayload) error {
	if c.botToken == "" {
		return fmt.Errorf("bot token not configured")
	}
	url := fmt.Sprintf("%s/channels/%s/messages", c.baseURL, channelID)
	return postWithRetry(ctx, c.httpClient, url, "Bot "+c.botToken, payload)
}

// CurrentUser resolves an OAuth access token to the Discord user owning it
func (c *BotClient) CurrentUser(ctx context.Context, accessToken string) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/users/@me", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Discord API returned status %d", resp.StatusCode)
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	if user.ID == "" {
		return nil, ErrUnauthorized
	}
	return &user, nil
}

// Announcer posts the daily reveal to channels through a BotClient
type Announcer struct {
	bot          *BotClient
	imageBaseURL string
	playURL      string
	colour       int
}

// NewAnnouncer creates an Announcer. Weapon image paths are resolved
// against imageBaseURL.
func NewAnnouncer(bot *BotClient, imageBaseURL, playURL string, colour int) *Announcer {
	return &Announcer{
		bot:          bot,
		imageBaseURL: strings.TrimRight(imageBaseURL, "/"),
		playURL:      playURL,
		colour:       colour,
	}
}

// Announce sends the reveal for date to one channel
func (a *Announcer) Announce(ctx context.Context, channelID, date string, previous *catalog.Weapon) error {
	payload := NewWeaponRevealPayload(Reveal{
		Date:     date,
		Previous: previous,
		ImageURL: a.imageURL(previous),
		PlayURL:  a.playURL,
		Colour:   a.colour,
	})
	return a.bot.SendEmbed(ctx, channelID, payload)
}

func (a *Announcer) imageURL(w *catalog.Weapon) string {
	if w == nil || w.Image == "" {
		return ""
	}
	if strings.HasPrefix(w.Image, "http://") || strings.HasPrefix(w.Image, "https://") {
		return w.Image
	}
	if a.imageBaseURL == "" {
		return ""
	}
	return a.imageBaseURL + "/" + strings.TrimLeft(w.Image, "/")
}
