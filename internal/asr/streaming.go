package asr

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const streamChunkSize = 8192

// StreamingProvider transcribes over a websocket: it ships the audio in
// chunks, signals end-of-stream, and collects final transcript frames.
// One connection per Transcribe call; the wake loop's short chunks keep
// connections cheap and avoid holding a socket open across idle periods.
type StreamingProvider struct {
	apiKey string
	logger zerolog.Logger
	config *StreamingConfig
	dialer *websocket.Dialer
}

// StreamingConfig holds streaming ASR configuration
type StreamingConfig struct {
	Endpoint   string        `json:"endpoint"` // ws:// or wss://
	APIKey     string        `json:"api_key"`
	Language   string        `json:"language"`
	SampleRate int           `json:"sample_rate"`
	Timeout    time.Duration `json:"timeout"`
}

// DefaultStreamingConfig returns sensible defaults
func DefaultStreamingConfig() *StreamingConfig {
	return &StreamingConfig{
		Language:   "hi",
		SampleRate: 16000,
		Timeout:    30 * time.Second,
	}
}

// NewStreamingProvider creates a websocket transcription provider
func NewStreamingProvider(logger zerolog.Logger, config *StreamingConfig) *StreamingProvider {
	if config == nil {
		config = DefaultStreamingConfig()
	}

	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ARIAVOICE_ASR_API_KEY")
	}

	return &StreamingProvider{
		apiKey: apiKey,
		logger: logger.With().Str("provider", "asr-streaming").Logger(),
		config: config,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

// Name returns the provider identifier
func (p *StreamingProvider) Name() string {
	return "streaming"
}

type streamFrame struct {
	Type    string `json:"type"` // "transcript" or "error"
	Text    string `json:"text,omitempty"`
	IsFinal bool   `json:"is_final,omitempty"`
	Message string `json:"message,omitempty"`
}

// Transcribe streams the audio and returns the concatenated final frames.
func (p *StreamingProvider) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	url := fmt.Sprintf("%s?language=%s&sample_rate=%d&mime_type=%s",
		p.config.Endpoint, p.config.Language, p.config.SampleRate, mimeType)

	header := http.Header{}
	if p.apiKey != "" {
		header.Set("Authorization", "Bearer "+p.apiKey)
	}

	conn, _, err := p.dialer.DialContext(ctx, url, header)
	if err != nil {
		return "", fmt.Errorf("%w: dial: %v", ErrNetwork, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(p.config.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetWriteDeadline(deadline)
	_ = conn.SetReadDeadline(deadline)

	for off := 0; off < len(audio); off += streamChunkSize {
		end := off + streamChunkSize
		if end > len(audio) {
			end = len(audio)
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, audio[off:end]); err != nil {
			return "", fmt.Errorf("%w: send audio: %v", ErrNetwork, err)
		}
	}
	// Empty text frame marks end of audio.
	if err := conn.WriteJSON(map[string]string{"type": "close_stream"}); err != nil {
		return "", fmt.Errorf("%w: close stream: %v", ErrNetwork, err)
	}

	var sb strings.Builder
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				break
			}
			if isTimeout(err) {
				return "", fmt.Errorf("%w: %v", ErrTimeout, err)
			}
			return "", fmt.Errorf("%w: read: %v", ErrNetwork, err)
		}

		var frame streamFrame
		if err := json.Unmarshal(msg, &frame); err != nil {
			p.logger.Warn().Err(err).Msg("unparseable transcript frame")
			continue
		}
		switch frame.Type {
		case "error":
			return "", fmt.Errorf("%w: %s", ErrService, frame.Message)
		case "transcript":
			if !frame.IsFinal {
				continue
			}
			if frame.Text == SilenceSentinel {
				continue
			}
			if sb.Len() > 0 && frame.Text != "" {
				sb.WriteString(" ")
			}
			sb.WriteString(frame.Text)
		case "done":
			text := strings.TrimSpace(sb.String())
			p.logger.Info().Str("text", text).Msg("streaming transcription complete")
			return text, nil
		}
	}

	return strings.TrimSpace(sb.String()), nil
}
