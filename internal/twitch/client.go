// Package twitch provides the streaming platform client used for stream
// correlation: account lookup and video archive listing via the Helix API.
//
// Auth follows the client-credential flow. Tokens are requested per call
// and deliberately not cached; archive lookups are infrequent and the
// token endpoint is cheap compared to keeping refresh bookkeeping correct.
package twitch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultAuthURL = "https://id.twitch.tv"
	defaultAPIURL  = "https://api.twitch.tv/helix"
)

// Account is a streaming platform account.
type Account struct {
	ID              string `json:"id"`
	Login           string `json:"login"`
	DisplayName     string `json:"display_name"`
	Description     string `json:"description"`
	ProfileImageURL string `json:"profile_image_url"`
	CreatedAt       string `json:"created_at"`
}

// Video is one recorded broadcast. Duration is the platform's compact
// encoding, e.g. "3h21m33s".
type Video struct {
	ID        string    `json:"id"`
	StreamID  string    `json:"stream_id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	URL       string    `json:"url"`
	Duration  string    `json:"duration"`
}

// Archive is an account's video archive. A nil Account with zero videos is
// the defined result for display names the platform does not know.
type Archive struct {
	Account *Account `json:"user"`
	Videos  []Video  `json:"videos"`
}

// Client is the Helix API client.
type Client struct {
	httpClient   *http.Client
	authURL      string
	apiURL       string
	clientID     string
	clientSecret string
	logger       *slog.Logger
}

// ClientConfig carries client construction parameters. Zero-value URLs
// fall back to the public Twitch endpoints.
type ClientConfig struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	APIURL       string
}

// NewClient creates a Helix client.
func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultAuthURL
	}
	if cfg.APIURL == "" {
		cfg.APIURL = defaultAPIURL
	}
	return &Client{
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		authURL:      cfg.AuthURL,
		apiURL:       cfg.APIURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		logger:       logger,
	}
}

// IsConfigured reports whether client id and secret are both set.
func (c *Client) IsConfigured() bool {
	return c.clientID != "" && c.clientSecret != ""
}

// Authenticate obtains a bearer token via the client-credential flow.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	params := url.Values{}
	params.Set("client_id", c.clientID)
	params.Set("client_secret", c.clientSecret)
	params.Set("grant_type", "client_credentials")

	u := c.authURL + "/oauth2/token?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned %d", resp.StatusCode)
	}

	var token struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &token); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned empty access token")
	}
	return token.AccessToken, nil
}

// get performs an authorized Helix GET and decodes the data wrapper.
func (c *Client) get(ctx context.Context, token, path string, params url.Values, out any) error {
	u := c.apiURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Client-Id", c.clientID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("helix request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("helix %s returned %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode helix response: %w", err)
	}
	return nil
}

// FindAccount looks up an account by login name. A missing account is
// returned as (nil, nil), not an error.
func (c *Client) FindAccount(ctx context.Context, token, login string) (*Account, error) {
	params := url.Values{}
	params.Set("login", login)

	var result struct {
		Data []Account `json:"data"`
	}
	if err := c.get(ctx, token, "/users", params, &result); err != nil {
		return nil, err
	}
	if len(result.Data) == 0 {
		return nil, nil
	}
	return &result.Data[0], nil
}

// ListVideos lists an account's recorded broadcasts, newest first, in the
// order the platform returns them.
func (c *Client) ListVideos(ctx context.Context, token, userID string) ([]Video, error) {
	params := url.Values{}
	params.Set("user_id", userID)

	var result struct {
		Data []Video `json:"data"`
	}
	if err := c.get(ctx, token, "/videos", params, &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

// PullArchive fetches the complete archive for a display name: account
// lookup plus video listing. Unknown display names yield an empty archive.
func (c *Client) PullArchive(ctx context.Context, displayName string) (*Archive, error) {
	token, err := c.Authenticate(ctx)
	if err != nil {
		return nil, err
	}

	account, err := c.FindAccount(ctx, token, displayName)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return &Archive{Videos: []Video{}}, nil
	}

	videos, err := c.ListVideos(ctx, token, account.ID)
	if err != nil {
		return nil, err
	}
	return &Archive{Account: account, Videos: videos}, nil
}
