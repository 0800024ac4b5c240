// Package nlu calls the remote natural-language-understanding endpoint
// that backs the second intent-resolution tier.
package nlu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Reply is the structured NLU result. When the endpoint returns a body
// that is not valid JSON, Malformed is set and Response carries the raw
// text so the caller can degrade to a chat reply instead of failing the
// turn.
type Reply struct {
	Intent    string            `json:"intent"` // navigate, fetch, stop, chat
	Screen    string            `json:"screen,omitempty"`
	Action    string            `json:"action,omitempty"`
	Params    map[string]string `json:"params,omitempty"`
	Response  string            `json:"response"`
	Malformed bool              `json:"-"`
}

// Config holds NLU endpoint configuration
type Config struct {
	Endpoint string        `json:"endpoint"`
	APIKey   string        `json:"api_key"`
	Timeout  time.Duration `json:"timeout"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{Timeout: 15 * time.Second}
}

// Client posts transcripts plus ambient context to the NLU endpoint.
type Client struct {
	apiKey string
	client *http.Client
	logger zerolog.Logger
	config *Config
}

// NewClient creates a new NLU client
func NewClient(logger zerolog.Logger, config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ARIAVOICE_NLU_API_KEY")
	}

	return &Client{
		apiKey: apiKey,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger.With().Str("component", "nlu").Logger(),
		config: config,
	}
}

type interpretRequest struct {
	Transcript string            `json:"transcript"`
	Context    map[string]string `json:"context,omitempty"`
}

// Interpret sends the transcript for intent extraction. Network failures
// and bad statuses return an error; a 200 with an unparseable body
// returns a malformed Reply, not an error.
func (c *Client) Interpret(ctx context.Context, transcript string, userContext map[string]string) (*Reply, error) {
	body, err := json.Marshal(interpretRequest{Transcript: transcript, Context: userContext})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nlu request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read nlu response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("nlu error: status=%d body=%s", resp.StatusCode, string(raw))
	}

	var reply Reply
	if err := json.Unmarshal(raw, &reply); err != nil {
		// Some model backends answer with plain prose. Treat it as a
		// chat reply rather than failing the whole turn.
		text := strings.TrimSpace(string(raw))
		c.logger.Warn().Str("body", truncate(text, 120)).Msg("non-JSON NLU reply, degrading to chat")
		return &Reply{Response: text, Malformed: true}, nil
	}

	c.logger.Debug().Str("intent", reply.Intent).Str("action", reply.Action).Msg("nlu reply")
	return &reply, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
