package autoria

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://developers.ria.com"
	siteURL        = "https://auto.ria.com"

	// expireDate layout returned by /auto/info
	expireDateLayout = "2006-01-02 15:04:05"

	// stateData.statusId of a published ad
	statusActive = 1
)

var (
	// ErrNotFound is returned when AutoRIA has no ad with the requested id
	ErrNotFound = errors.New("autoria: ad not found")

	// ErrRateLimited is returned when every retry hit the rate limit
	ErrRateLimited = errors.New("autoria: rate limited")
)

// Config holds AutoRIA API configuration
type Config struct {
	APIKey  string
	BaseURL string

	// MaxRetries bounds attempts on HTTP 429; RetryWait grows linearly per attempt
	MaxRetries int
	RetryWait  time.Duration

	// Location interprets expireDate, which carries no zone
	Location *time.Location
}

// Client is the AutoRIA API client
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new AutoRIA API client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = 60 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// IsConfigured returns true if an API key is set
func (c *Client) IsConfigured() bool {
	return c.config.APIKey != ""
}

// AdInfo is the subset of an AutoRIA ad the bot tracks
type AdInfo struct {
	AutoID     int64     `json:"autoId"`
	Title      string    `json:"title"`
	Link       string    `json:"link"`
	ExpireAt   time.Time `json:"expireAt"`
	StatusID   int       `json:"statusId"`
	StatusName string    `json:"statusName"`
	PriceUSD   int64     `json:"priceUsd,omitempty"`
}

// Active reports whether the ad is published
func (a *AdInfo) Active() bool {
	return a.StatusID == statusActive
}

type adInfoResponse struct {
	AutoID     int64  `json:"autoId"`
	Title      string `json:"title"`
	LinkToView string `json:"linkToView"`
	ExpireDate string `json:"expireDate"`
	USD        int64  `json:"USD"`
	StateData  struct {
		StatusID int    `json:"statusId"`
		Status   string `json:"status"`
	} `json:"stateData"`
}

// GetAdInfo fetches an ad by id
func (c *Client) GetAdInfo(ctx context.Context, autoID int64) (*AdInfo, error) {
	query := url.Values{}
	query.Set("api_key", c.config.APIKey)
	query.Set("auto_id", strconv.FormatInt(autoID, 10))

	resp, err := c.doRequest(ctx, "/auto/info", query)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var raw adInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	info := &AdInfo{
		AutoID:     raw.AutoID,
		Title:      raw.Title,
		Link:       FullLink(raw.LinkToView),
		StatusID:   raw.StateData.StatusID,
		StatusName: raw.StateData.Status,
		PriceUSD:   raw.USD,
	}
	if info.AutoID == 0 {
		info.AutoID = autoID
	}
	if raw.ExpireDate != "" {
		info.ExpireAt, err = time.ParseInLocation(expireDateLayout, raw.ExpireDate, c.config.Location)
		if err != nil {
			return nil, fmt.Errorf("invalid expireDate %q: %w", raw.ExpireDate, err)
		}
	}
	return info, nil
}

// doRequest performs a GET, retrying rate-limited responses with linear backoff.
// The caller owns the body of a successful response.
func (c *Client) doRequest(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	reqURL := c.config.BaseURL + path + "?" + query.Encode()

	for attempt := 1; attempt <= c.config.MaxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, requestError(path, err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, requestError(path, err)
		}

		switch resp.StatusCode {
		case http.StatusOK:
			return resp, nil
		case http.StatusNotFound:
			resp.Body.Close()
			return nil, ErrNotFound
		case http.StatusTooManyRequests:
			resp.Body.Close()
			wait := c.config.RetryWait * time.Duration(attempt)
			c.logger.Warn("AutoRIA rate limit hit",
				zap.Int("attempt", attempt), zap.Int("maxRetries", c.config.MaxRetries), zap.Duration("wait", wait))
			if attempt < c.config.MaxRetries {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(wait):
				}
			}
		default:
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
		}
	}
	return nil, ErrRateLimited
}

// requestError drops the request URL, whose query carries the API key
func requestError(path string, err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	return fmt.Errorf("autoria: request %s failed: %w", path, err)
}

// FullLink turns a relative linkToView into an absolute auto.ria.com URL
func FullLink(link string) string {
	if link == "" || strings.Contains(link, "auto.ria.com") {
		return link
	}
	if !strings.HasPrefix(link, "/") {
		link = "/" + link
	}
	return siteURL + link
}
