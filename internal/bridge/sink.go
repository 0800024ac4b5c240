package bridge

import (
	"context"
	"encoding/base64"
	"sync"

	"github.com/google/uuid"

	"github.com/kisanmitra/ariavoice/internal/bus"
	"github.com/kisanmitra/ariavoice/internal/tts"
)

// WebviewSink plays synthesized audio through the frontend. It publishes
// a play event carrying the audio and blocks until the frontend reports
// the playback finished or the context is cancelled, in which case it
// tells the frontend to stop immediately.
type WebviewSink struct {
	events *bus.EventBus

	mu   sync.Mutex
	id   string
	done chan struct{}
}

// NewWebviewSink creates a sink publishing on the given bus.
func NewWebviewSink(events *bus.EventBus) *WebviewSink {
	return &WebviewSink{events: events}
}

// Play sends audio to the frontend and waits for it to finish.
func (s *WebviewSink) Play(ctx context.Context, audio []byte, format string) error {
	id := uuid.NewString()
	done := make(chan struct{})

	s.mu.Lock()
	s.id = id
	s.done = done
	s.mu.Unlock()

	s.events.Publish(bus.Event{Type: bus.EventTypeSpeakPlay, Data: map[string]any{
		"id":     id,
		"audio":  base64.StdEncoding.EncodeToString(audio),
		"format": format,
	}})

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.events.Publish(bus.Event{Type: bus.EventTypeSpeakStop, Data: map[string]any{"id": id}})
		return tts.ErrPlaybackStopped
	}
}

// Finished marks the playback with the given id done. An empty id, or an
// id that no longer matches, closes nothing; a stale finish report from
// the frontend must not complete a newer utterance.
func (s *WebviewSink) Finished(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil || id != s.id {
		return
	}
	close(s.done)
	s.done = nil
}
