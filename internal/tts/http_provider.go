package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// HTTPProvider synthesizes speech through the remote TTS endpoint.
type HTTPProvider struct {
	apiKey string
	client *http.Client
	logger zerolog.Logger
	config *HTTPConfig
}

// HTTPConfig holds TTS endpoint configuration
type HTTPConfig struct {
	Endpoint string        `json:"endpoint"`
	APIKey   string        `json:"api_key"`
	Timeout  time.Duration `json:"timeout"`
}

// DefaultHTTPConfig returns sensible defaults
func DefaultHTTPConfig() *HTTPConfig {
	return &HTTPConfig{Timeout: 20 * time.Second}
}

// NewHTTPProvider creates an HTTP synthesis provider
func NewHTTPProvider(logger zerolog.Logger, config *HTTPConfig) *HTTPProvider {
	if config == nil {
		config = DefaultHTTPConfig()
	}

	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ARIAVOICE_TTS_API_KEY")
	}

	return &HTTPProvider{
		apiKey: apiKey,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger.With().Str("provider", "tts-http").Logger(),
		config: config,
	}
}

// Name returns the provider identifier
func (p *HTTPProvider) Name() string {
	return "http"
}

type synthesizeRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voice_id,omitempty"`
	Locale  string `json:"locale,omitempty"`
	Format  string `json:"format"`
}

// Synthesize posts text and returns the audio bytes.
func (p *HTTPProvider) Synthesize(ctx context.Context, text, voiceID, locale string) ([]byte, error) {
	startTime := time.Now()

	body, err := json.Marshal(synthesizeRequest{
		Text:    text,
		VoiceID: voiceID,
		Locale:  locale,
		Format:  "mp3",
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		p.logger.Error().Int("status", resp.StatusCode).Str("body", string(b)).Msg("TTS endpoint error")
		return nil, fmt.Errorf("tts error: status=%d", resp.StatusCode)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}

	p.logger.Info().Int("bytes", len(audio)).Dur("took", time.Since(startTime)).Msg("synthesis complete")
	return audio, nil
}
