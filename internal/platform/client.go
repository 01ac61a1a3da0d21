// Package platform talks to the external creator-metrics provider. The
// provider proxies every supported social platform behind one API, so a
// single client serves all of them.
package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"creatorsync/internal/errs"
	"creatorsync/internal/model"
)

const (
	defaultPostLimit = 30
	httpTimeout      = 15 * time.Second
)

// API is the collaborator contract consumed by the evaluator and the
// aggregation engine. Implementations may rate-limit or fail transiently;
// callers decide whether to retry, fall back or skip.
type API interface {
	GetProfile(ctx context.Context, platform model.Platform, username string) (*model.Profile, error)
	GetRecentPosts(ctx context.Context, platform model.Platform, username string, limit int) ([]model.Post, error)
}

// Client is the HTTP implementation of API.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

var _ API = (*Client)(nil)

// NewClient constructs a Client with a shared HTTP client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: httpTimeout},
	}
}

// GetProfile fetches the live profile for (platform, username).
func (c *Client) GetProfile(ctx context.Context, platform model.Platform, username string) (*model.Profile, error) {
	endpoint := fmt.Sprintf("%s/v1/%s/users/%s", c.baseURL, platform, url.PathEscape(username))

	var profile model.Profile
	if err := c.getJSON(ctx, endpoint, &profile); err != nil {
		return nil, err
	}
	profile.Platform = platform
	return &profile, nil
}

// GetRecentPosts fetches up to limit recent posts, newest first.
func (c *Client) GetRecentPosts(ctx context.Context, platform model.Platform, username string, limit int) ([]model.Post, error) {
	if limit <= 0 {
		limit = defaultPostLimit
	}
	endpoint := fmt.Sprintf("%s/v1/%s/users/%s/posts?limit=%s",
		c.baseURL, platform, url.PathEscape(username), strconv.Itoa(limit))

	var posts []model.Post
	if err := c.getJSON(ctx, endpoint, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	if c.baseURL == "" || c.apiKey == "" {
		return fmt.Errorf("platform api credentials not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return errs.Transient("platform api", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.Transient("platform api read body", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusNotFound:
		return errs.ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode == http.StatusBadGateway,
		resp.StatusCode == http.StatusServiceUnavailable,
		resp.StatusCode == http.StatusGatewayTimeout:
		return errs.Transient("platform api",
			fmt.Errorf("status %d: %s", resp.StatusCode, string(body)))
	default:
		return fmt.Errorf("platform api returned %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("json unmarshal: %w", err)
	}
	return nil
}
