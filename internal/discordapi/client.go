// Package discordapi talks to the Discord HTTP API: OAuth2 code exchange,
// the current user lookup and webhook execution.
package discordapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Defaults for the public Discord API
const (
	DefaultAPIBase  = "https://discord.com/api/v10"
	DefaultRedirect = "https://palacemc.net/discord"
)

// ErrIncompleteGrant is returned when a token response lacks a required field
var ErrIncompleteGrant = errors.New("discord token response incomplete")

// Config holds the application credentials
type Config struct {
	ClientID    string
	Secret      string
	RedirectURL string
	APIBase     string
	Timeout     time.Duration
}

// Grant is the token pair issued for an authorization code
type Grant struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64 // seconds
}

// User is the subset of a Discord user the site needs
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// AllowedMentions controls which mentions in a message ping anyone
type AllowedMentions struct {
	Parse []string `json:"parse"`
}

// WebhookMessage is the body of a webhook execution
type WebhookMessage struct {
	Content         string          `json:"content"`
	Username        string          `json:"username,omitempty"`
	AvatarURL       string          `json:"avatar_url,omitempty"`
	TTS             bool            `json:"tts"`
	AllowedMentions AllowedMentions `json:"allowed_mentions"`
}

// Client is a Discord API client
type Client struct {
	oauth      *oauth2.Config
	apiBase    string
	httpClient *http.Client
}

// New creates a Client
func New(cfg Config) *Client {
	apiBase := strings.TrimSuffix(cfg.APIBase, "/")
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.Secret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"identify"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   apiBase + "/oauth2/authorize",
				TokenURL:  apiBase + "/oauth2/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		apiBase:    apiBase,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// AuthCodeURL returns the authorize page that sends the user back with a
// code and the given state
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// Exchange trades an authorization code for a token pair
func (c *Client) Exchange(ctx context.Context, code string) (*Grant, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	grant := &Grant{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    tok.ExpiresIn,
	}
	if grant.ExpiresIn == 0 && !tok.Expiry.IsZero() {
		grant.ExpiresIn = int64(time.Until(tok.Expiry).Round(time.Second).Seconds())
	}
	switch {
	case grant.AccessToken == "":
		return nil, fmt.Errorf("%w: missing access_token", ErrIncompleteGrant)
	case grant.RefreshToken == "":
		return nil, fmt.Errorf("%w: missing refresh_token", ErrIncompleteGrant)
	case grant.ExpiresIn <= 0:
		return nil, fmt.Errorf("%w: missing expires_in", ErrIncompleteGrant)
	}
	return grant, nil
}

// apiError is the error body Discord returns
type apiError struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// CurrentUser returns the user an access token belongs to
func (c *Client) CurrentUser(ctx context.Context, accessToken string) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/users/@me", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	var user User
	if err := c.do(req, &user); err != nil {
		return nil, fmt.Errorf("get current user: %w", err)
	}
	if user.ID == "" {
		return nil, errors.New("get current user: missing id")
	}
	return &user, nil
}

// ExecuteWebhook posts a message through a webhook
func (c *Client) ExecuteWebhook(ctx context.Context, id, token string, msg WebhookMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook message: %w", err)
	}
	endpoint := fmt.Sprintf("%s/webhooks/%s/%s", c.apiBase, id, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("execute webhook %s: %w", id, err)
	}
	return nil
}

func (c *Client) do(req *http.Request, result any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// the URL of a webhook carries its token
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("discord responded %d: %s", resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("discord responded %d", resp.StatusCode)
	}

	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}
