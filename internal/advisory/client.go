// Package advisory is the HTTP client for the data-fetch collaborators:
// price forecast, mandi recommendation, harvest window, full advisory and
// weather. Response shapes are loosely typed; callers read them
// defensively.
package advisory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config holds advisory backend configuration
type Config struct {
	BaseURL string        `json:"base_url"`
	Timeout time.Duration `json:"timeout"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{Timeout: 12 * time.Second}
}

// Client calls the advisory backend.
type Client struct {
	client *http.Client
	logger zerolog.Logger
	config *Config
}

// NewClient creates an advisory client
func NewClient(logger zerolog.Logger, config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	return &Client{
		client: &http.Client{Timeout: config.Timeout},
		logger: logger.With().Str("component", "advisory").Logger(),
		config: config,
	}
}

// Result is a loosely-typed response object.
type Result map[string]any

// String reads a string field, empty when missing or of another type.
func (r Result) String(key string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}

// Number reads a numeric field. JSON numbers decode as float64.
func (r Result) Number(key string) (float64, bool) {
	if v, ok := r[key].(float64); ok {
		return v, true
	}
	return 0, false
}

// Nested reads a nested object field.
func (r Result) Nested(key string) Result {
	if v, ok := r[key].(map[string]any); ok {
		return Result(v)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, params map[string]string) (Result, error) {
	u := strings.TrimRight(c.config.BaseURL, "/") + path
	q := url.Values{}
	for k, v := range params {
		if v != "" {
			q.Set(k, v)
		}
	}
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("advisory request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read advisory response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Error().Int("status", resp.StatusCode).Str("path", path).Msg("advisory backend error")
		return nil, fmt.Errorf("advisory error: status=%d", resp.StatusCode)
	}

	var result Result
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse advisory response: %w", err)
	}
	return result, nil
}

// PriceForecast returns the projected price curve for a crop.
func (c *Client) PriceForecast(ctx context.Context, params map[string]string) (Result, error) {
	return c.get(ctx, "/prices/forecast", params)
}

// BestMandi recommends where to sell.
func (c *Client) BestMandi(ctx context.Context, params map[string]string) (Result, error) {
	return c.get(ctx, "/mandis/best", params)
}

// HarvestWindow returns the recommended harvest dates.
func (c *Client) HarvestWindow(ctx context.Context, params map[string]string) (Result, error) {
	return c.get(ctx, "/harvest/window", params)
}

// FullAdvisory returns the combined recommendation.
func (c *Client) FullAdvisory(ctx context.Context, params map[string]string) (Result, error) {
	return c.get(ctx, "/advisory", params)
}

// Weather returns the local weather outlook.
func (c *Client) Weather(ctx context.Context, params map[string]string) (Result, error) {
	return c.get(ctx, "/weather", params)
}
