package auth

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"splatdle/internal/discord"
)

// CookieName is the cookie the website stores the Discord access token in
const CookieName = "discord_access_token"

// Error codes returned in 401 bodies
const (
	CodeTokenMissing = "ACCESS_TOKEN_MISSING"
	CodeTokenInvalid = "ACCESS_TOKEN_INVALID"
)

// DefaultCacheTTL is how long a resolved token is trusted
const DefaultCacheTTL = 5 * time.Minute

// Identity is the authenticated player behind a request
type Identity struct {
	PlayerID string `json:"playerId"`
	Username string `json:"username"`
}

// UserLookup resolves a Discord access token
type UserLookup interface {
	CurrentUser(ctx context.Context, accessToken string) (*discord.User, error)
}

type contextKey string

const identityContextKey = contextKey("identity")

// WithIdentity returns a copy of ctx carrying id
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// FromContext returns the identity set by the middleware
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(Identity)
	return id, ok
}

// Authenticator validates access tokens against Discord
type Authenticator struct {
	lookup UserLookup
	cache  *TokenCache
}

// New creates an Authenticator. cache may be nil to disable caching.
func New(lookup UserLookup, cache *TokenCache) *Authenticator {
	return &Authenticator{lookup: lookup, cache: cache}
}

// TokenFromRequest reads the access token from the cookie, falling back to
// an Authorization: Bearer header
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	h := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// Resolve maps a token to an identity
func (a *Authenticator) Resolve(ctx context.Context, token string) (Identity, error) {
	if a.cache != nil {
		if id, ok := a.cache.Get(token); ok {
			return id, nil
		}
	}

	user, err := a.lookup.CurrentUser(ctx, token)
	if err != nil {
		return Identity{}, err
	}

	id := Identity{PlayerID: user.ID, Username: user.Username}
	if a.cache != nil {
		a.cache.Set(token, id)
	}
	return id, nil
}

// Middleware rejects requests without a valid token and stores the
// identity in the request context
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := TokenFromRequest(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, CodeTokenMissing, "Access token is missing.")
			return
		}

		id, err := a.Resolve(r.Context(), token)
		if errors.Is(err, discord.ErrUnauthorized) {
			writeError(w, http.StatusUnauthorized, CodeTokenInvalid, "Discord rejected access token.")
			return
		}
		if err != nil {
			log.Printf("[Auth] Token lookup failed: %v", err)
			writeError(w, http.StatusServiceUnavailable, "IDENTITY_UNAVAILABLE", "Could not verify access token, try again later.")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorBody{Code: code, Message: message})
}
