// Package bungie provides the HTTP client for the Bungie stats API.
//
// All requests carry X-API-Key header auth. Outbound traffic is throttled
// through a token bucket limiter. Carnage report lookups are additionally
// served from a write-once on-disk cache keyed by instance id.
package bungie

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultPlatformURL = "https://www.bungie.net/Platform"
	defaultStatsURL    = "https://stats.bungie.net/Platform"
	defaultContentURL  = "https://www.bungie.net"
)

// Client is the Bungie stats API client.
type Client struct {
	httpClient  *http.Client
	platformURL string
	statsURL    string
	contentURL  string
	apiKey      string
	limiter     *rate.Limiter
	logger      *slog.Logger
	reports     *ReportCache
}

// ClientConfig carries client construction parameters. Zero-value URLs
// fall back to the public Bungie endpoints.
type ClientConfig struct {
	APIKey            string
	RequestsPerSecond int
	PlatformURL       string
	StatsURL          string
	ContentURL        string
	Reports           *ReportCache
}

// NewClient creates a Bungie API client with rate limiting.
func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PlatformURL == "" {
		cfg.PlatformURL = defaultPlatformURL
	}
	if cfg.StatsURL == "" {
		cfg.StatsURL = defaultStatsURL
	}
	if cfg.ContentURL == "" {
		cfg.ContentURL = defaultContentURL
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 20
	}
	return &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		platformURL: cfg.PlatformURL,
		statsURL:    cfg.StatsURL,
		contentURL:  cfg.ContentURL,
		apiKey:      cfg.APIKey,
		limiter:     rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.RequestsPerSecond),
		logger:      logger,
		reports:     cfg.Reports,
	}
}

// envelope is the common Bungie response wrapper.
type envelope struct {
	Response    json.RawMessage `json:"Response"`
	ErrorCode   int             `json:"ErrorCode"`
	ErrorStatus string          `json:"ErrorStatus"`
	Message     string          `json:"Message"`
}

// get performs a rate-limited GET request and unwraps the response envelope.
func (c *Client) get(ctx context.Context, base, path string, params url.Values) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	u := base + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bungie %s returned %d: %s", path, resp.StatusCode, truncate(body, 200))
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	// ErrorCode 1 is "Success" on every Bungie endpoint.
	if env.ErrorCode != 1 {
		return nil, fmt.Errorf("bungie %s error %d (%s): %s", path, env.ErrorCode, env.ErrorStatus, env.Message)
	}

	return env.Response, nil
}

// HistoryParams select a page of a character's activity history.
type HistoryParams struct {
	Page  int
	Count int
	Mode  int
}

// GetActivityHistory fetches one page of a character's activity history.
func (c *Client) GetActivityHistory(ctx context.Context, membershipType int, membershipID, characterID string, p HistoryParams) ([]ActivitySummary, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(p.Page))
	params.Set("count", strconv.Itoa(p.Count))
	params.Set("mode", strconv.Itoa(p.Mode))

	path := fmt.Sprintf("/Destiny2/%d/Account/%s/Character/%s/Stats/Activities/", membershipType, membershipID, characterID)
	raw, err := c.get(ctx, c.platformURL, path, params)
	if err != nil {
		return nil, err
	}

	var result activityHistoryResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode activity history: %w", err)
	}
	return result.Activities, nil
}

// GetPostGameReport fetches the full carnage report for one match instance.
// Reports are immutable, so a configured on-disk cache serves repeat
// lookups without touching the network.
func (c *Client) GetPostGameReport(ctx context.Context, instanceID string) (*PostGameReport, error) {
	if c.reports != nil {
		if body, ok, err := c.reports.Get(ctx, instanceID); err != nil {
			c.logger.Warn("report cache read failed", "instance_id", instanceID, "error", err)
		} else if ok {
			var report PostGameReport
			if err := json.Unmarshal(body, &report); err == nil {
				return &report, nil
			}
			c.logger.Warn("report cache entry corrupt", "instance_id", instanceID)
		}
	}

	path := fmt.Sprintf("/Destiny2/Stats/PostGameCarnageReport/%s/", instanceID)
	raw, err := c.get(ctx, c.statsURL, path, nil)
	if err != nil {
		return nil, err
	}

	var report PostGameReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("decode carnage report: %w", err)
	}

	if c.reports != nil {
		if err := c.reports.Put(ctx, instanceID, raw); err != nil {
			c.logger.Warn("report cache write failed", "instance_id", instanceID, "error", err)
		}
	}
	return &report, nil
}

// Profile component ids.
const (
	componentProfiles   = 100
	componentCharacters = 200
)

// GetProfile fetches the profile and character components for an account.
func (c *Client) GetProfile(ctx context.Context, membershipType int, membershipID string) (*ProfileResponse, error) {
	params := url.Values{}
	params.Set("components", fmt.Sprintf("%d,%d", componentProfiles, componentCharacters))

	path := fmt.Sprintf("/Destiny2/%d/Profile/%s/", membershipType, membershipID)
	raw, err := c.get(ctx, c.platformURL, path, params)
	if err != nil {
		return nil, err
	}

	var profile ProfileResponse
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &profile, nil
}

// SearchByGlobalNamePrefix searches for accounts whose global display name
// starts with the given prefix.
func (c *Client) SearchByGlobalNamePrefix(ctx context.Context, prefix string, page int) (*UserSearchResponse, error) {
	path := fmt.Sprintf("/User/Search/Prefix/%s/%d/", url.PathEscape(prefix), page)
	raw, err := c.get(ctx, c.platformURL, path, nil)
	if err != nil {
		return nil, err
	}

	var result UserSearchResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode user search: %w", err)
	}
	return &result, nil
}

// GetMembershipDataByID fetches the cross-platform membership record for a
// platform account, including the linked Twitch display name when present.
func (c *Client) GetMembershipDataByID(ctx context.Context, membershipType int, membershipID string) (*UserMembershipData, error) {
	path := fmt.Sprintf("/User/GetMembershipsById/%s/%d/", membershipID, membershipType)
	raw, err := c.get(ctx, c.platformURL, path, nil)
	if err != nil {
		return nil, err
	}

	var data UserMembershipData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode membership data: %w", err)
	}
	return &data, nil
}

// GetHistoricalStatsForAccount fetches account-wide aggregate stats.
func (c *Client) GetHistoricalStatsForAccount(ctx context.Context, membershipType int, membershipID string) (*HistoricalStatsAccountResult, error) {
	path := fmt.Sprintf("/Destiny2/%d/Account/%s/Stats/", membershipType, membershipID)
	raw, err := c.get(ctx, c.platformURL, path, nil)
	if err != nil {
		return nil, err
	}

	var result HistoricalStatsAccountResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode account stats: %w", err)
	}
	return &result, nil
}

// GetHistoricalStats fetches per-character daily stats for the last month,
// keyed by mode group.
func (c *Client) GetHistoricalStats(ctx context.Context, membershipType int, membershipID, characterID string) (map[string]json.RawMessage, error) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -31)

	params := url.Values{}
	params.Set("periodType", "1") // daily
	params.Set("daystart", start.Format("2006-01-02"))
	params.Set("dayend", end.Format("2006-01-02"))

	path := fmt.Sprintf("/Destiny2/%d/Account/%s/Character/%s/Stats/", membershipType, membershipID, characterID)
	raw, err := c.get(ctx, c.platformURL, path, params)
	if err != nil {
		return nil, err
	}

	var result map[string]json.RawMessage
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode character stats: %w", err)
	}
	return result, nil
}

// GetManifestTable downloads one manifest world component table for a
// language, e.g. "DestinyActivityDefinition", decoding into out.
func (c *Client) GetManifestTable(ctx context.Context, table, language string, out any) error {
	raw, err := c.get(ctx, c.platformURL, "/Destiny2/Manifest/", nil)
	if err != nil {
		return err
	}

	var info manifestInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return fmt.Errorf("decode manifest info: %w", err)
	}

	paths, ok := info.JSONWorldComponentContentPaths[language]
	if !ok {
		return fmt.Errorf("manifest has no language %q", language)
	}
	path, ok := paths[table]
	if !ok {
		return fmt.Errorf("manifest has no table %q", table)
	}

	// Content tables are plain JSON blobs, not enveloped platform responses.
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.contentURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch manifest table %s: %w", table, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("manifest table %s returned %d", table, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode manifest table %s: %w", table, err)
	}
	return nil
}

// truncate returns a truncated string representation for error messages.
func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
