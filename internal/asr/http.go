package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// HTTPProvider posts captured audio to the remote ASR endpoint as a
// multipart upload and reads back a JSON transcript.
type HTTPProvider struct {
	apiKey string
	client *http.Client
	logger zerolog.Logger
	config *HTTPConfig
}

// HTTPConfig holds ASR endpoint configuration
type HTTPConfig struct {
	Endpoint string        `json:"endpoint"`
	APIKey   string        `json:"api_key"`
	Language string        `json:"language"` // Optional language hint
	Timeout  time.Duration `json:"timeout"`
}

// DefaultHTTPConfig returns sensible defaults
func DefaultHTTPConfig() *HTTPConfig {
	return &HTTPConfig{
		Language: "hi",
		Timeout:  30 * time.Second,
	}
}

// NewHTTPProvider creates a new HTTP transcription provider
func NewHTTPProvider(logger zerolog.Logger, config *HTTPConfig) *HTTPProvider {
	if config == nil {
		config = DefaultHTTPConfig()
	}

	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ARIAVOICE_ASR_API_KEY")
	}

	return &HTTPProvider{
		apiKey: apiKey,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger.With().Str("provider", "asr-http").Logger(),
		config: config,
	}
}

// Name returns the provider identifier
func (p *HTTPProvider) Name() string {
	return "http"
}

// Transcribe sends audio to the remote ASR endpoint.
func (p *HTTPProvider) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	startTime := time.Now()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("write audio data: %w", err)
	}
	if err := writer.WriteField("mime_type", mimeType); err != nil {
		return "", fmt.Errorf("write mime field: %w", err)
	}
	if p.config.Language != "" {
		if err := writer.WriteField("language", p.config.Language); err != nil {
			return "", fmt.Errorf("write language field: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.config.Endpoint, &buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return "", fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrNetwork, err)
	}

	if resp.StatusCode != http.StatusOK {
		p.logger.Error().Int("status", resp.StatusCode).Str("body", string(body)).Msg("ASR endpoint error")
		return "", fmt.Errorf("%w: status %d", ErrService, resp.StatusCode)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("%w: parse response: %v", ErrService, err)
	}

	text := strings.TrimSpace(result.Text)
	if text == SilenceSentinel {
		text = ""
	}

	p.logger.Info().Str("text", text).Dur("took", time.Since(startTime)).Msg("transcription complete")
	return text, nil
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
