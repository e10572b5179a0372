package discord

import (
	"context"       // Request-scoped cancellation
	"encoding/json" // Profile decoding
	"errors"        // Sentinel errors
	"fmt"           // Error wrapping
	"io"            // Error body reading
	"net/http"      // Profile request
	"strings"       // URL trimming
	"time"          // Timeouts

	"discord_polls/internal/domain"

	"golang.org/x/oauth2" // OAuth2 authorization code flow
)

var (
	// ErrExchange means Discord rejected the authorization code
	ErrExchange = errors.New("discord token exchange failed")
	// ErrProfile means the token worked but /users/@me did not
	ErrProfile = errors.New("discord profile fetch failed")
)

// Config describes the registered Discord application
type Config struct {
	ClientID     string        // OAuth client id
	ClientSecret string        // OAuth client secret
	RedirectURL  string        // Callback registered with Discord
	APIBase      string        // e.g. https://discord.com/api
	Timeout      time.Duration // Per outbound call
}

// User is the subset of GET /users/@me the app reads
type User struct {
	ID            string `json:"id"`            // Snowflake, logged only
	Username      string `json:"username"`      // Part of the identity key
	Discriminator string `json:"discriminator"` // "0" for migrated accounts
}

// Identity converts the profile into the app's identity key
func (u User) Identity() domain.Identity {
	return domain.Identity{Username: u.Username, Discriminator: u.Discriminator}
}

// Client talks to Discord's OAuth2 endpoints with the identify scope
type Client struct {
	oauth      *oauth2.Config
	apiBase    string
	httpClient *http.Client
}

// NewClient builds a client for the application described by cfg
func NewClient(cfg Config) *Client {
	apiBase := strings.TrimRight(cfg.APIBase, "/")
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"identify"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   apiBase + "/oauth2/authorize",
				TokenURL:  apiBase + "/oauth2/token",
				AuthStyle: oauth2.AuthStyleInParams, // Discord expects the secret in the form body
			},
		},
		apiBase:    apiBase,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// AuthURL is the link that starts the login flow. state comes back
// verbatim on the callback.
func (c *Client) AuthURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// Authenticate exchanges an authorization code for a token and returns the
// profile of the user who granted it. The token itself is not kept.
func (c *Client) Authenticate(ctx context.Context, code string) (*User, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient) // Apply the timeout to oauth2 calls

	token, err := c.oauth.Exchange(ctx, code) // Trade the code for an access token
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExchange, err)
	}

	return c.currentUser(ctx, token)
}

func (c *Client) currentUser(ctx context.Context, token *oauth2.Token) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/users/@me", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProfile, err)
	}

	resp, err := c.oauth.Client(ctx, token).Do(req) // Sends the bearer token
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProfile, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512)) // Enough for Discord's error JSON
		return nil, fmt.Errorf("%w: status %d: %s", ErrProfile, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrProfile, err)
	}
	if user.Username == "" {
		return nil, fmt.Errorf("%w: profile has no username", ErrProfile)
	}

	return &user, nil
}
