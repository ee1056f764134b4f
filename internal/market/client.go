// Package market implements domain.MarketDataProvider against the launchpad's
// REST API, plus a websocket feed for token launch announcements.
package market

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

	"github.com/alanyoungcy/curvefleet/internal/domain"
)

// Client is the REST client for the launchpad API. Every provider method is
// failure-soft: upstream problems are logged and degrade to zero values so a
// flaky API never aborts a fleet cycle.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a launchpad API client.
//
// baseURL is the API root, e.g. "https://api.curvelaunch.example". apiKey may
// be empty for unauthenticated access.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.With("component", "market"),
	}
}

// ListRecentTokens returns the most recently active tokens, newest first.
func (c *Client) ListRecentTokens(ctx context.Context, limit int) []domain.TokenSummary {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("sort", "created_desc")

	body, err := c.doGet(ctx, "/tokens?"+params.Encode())
	if err != nil {
		c.logger.Warn("list recent tokens failed", "error", err)
		return nil
	}

	var apiTokens []APIToken
	if err := json.Unmarshal(body, &apiTokens); err != nil {
		c.logger.Warn("decode token listing failed", "error", err)
		return nil
	}

	tokens := make([]domain.TokenSummary, 0, len(apiTokens))
	for i := range apiTokens {
		tokens = append(tokens, apiTokens[i].ToDomainSummary())
	}
	return tokens
}

// GetMarketSnapshot returns a point-in-time view of one token's market state.
func (c *Client) GetMarketSnapshot(ctx context.Context, token string) (domain.MarketSnapshot, bool) {
	path := fmt.Sprintf("/tokens/%s", url.PathEscape(domain.NormalizeToken(token)))

	body, err := c.doGet(ctx, path)
	if err != nil {
		c.logger.Warn("get snapshot failed", "token", token, "error", err)
		return domain.MarketSnapshot{}, false
	}

	var apiToken APIToken
	if err := json.Unmarshal(body, &apiToken); err != nil {
		c.logger.Warn("decode snapshot failed", "token", token, "error", err)
		return domain.MarketSnapshot{}, false
	}
	return apiToken.ToDomainSnapshot(), true
}

// GetPriceSeries returns the token's recent price/volume buckets at the given
// interval, oldest first.
func (c *Client) GetPriceSeries(ctx context.Context, token string, interval time.Duration) []domain.PricePoint {
	params := url.Values{}
	params.Set("interval", interval.String())

	path := fmt.Sprintf("/tokens/%s/chart?%s", url.PathEscape(domain.NormalizeToken(token)), params.Encode())

	body, err := c.doGet(ctx, path)
	if err != nil {
		c.logger.Warn("get price series failed", "token", token, "error", err)
		return nil
	}

	var candles []APICandle
	if err := json.Unmarshal(body, &candles); err != nil {
		c.logger.Warn("decode price series failed", "token", token, "error", err)
		return nil
	}

	points := make([]domain.PricePoint, 0, len(candles))
	for i := range candles {
		points = append(points, candles[i].ToDomainPoint())
	}
	return points
}

// GetHolders returns the token's top holders with their supply share.
func (c *Client) GetHolders(ctx context.Context, token string) []domain.HolderBalance {
	path := fmt.Sprintf("/tokens/%s/holders", url.PathEscape(domain.NormalizeToken(token)))

	body, err := c.doGet(ctx, path)
	if err != nil {
		c.logger.Warn("get holders failed", "token", token, "error", err)
		return nil
	}

	var apiHolders []APIHolder
	if err := json.Unmarshal(body, &apiHolders); err != nil {
		c.logger.Warn("decode holders failed", "token", token, "error", err)
		return nil
	}

	holders := make([]domain.HolderBalance, 0, len(apiHolders))
	for i := range apiHolders {
		holders = append(holders, apiHolders[i].ToDomainBalance())
	}
	return holders
}

// doGet sends a GET request to the launchpad API.
func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, truncate(body, 200))
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}

var _ domain.MarketDataProvider = (*Client)(nil)
