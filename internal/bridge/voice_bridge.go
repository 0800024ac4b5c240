// Package bridge provides Wails Go-JS bindings.
package bridge

import (
	"context"
	"encoding/base64"

	"github.com/rs/zerolog"
	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/kisanmitra/ariavoice/internal/audio"
	"github.com/kisanmitra/ariavoice/internal/bus"
	"github.com/kisanmitra/ariavoice/internal/intent"
	"github.com/kisanmitra/ariavoice/internal/session"
)

// VoiceBridge exposes the session controller to the frontend. The
// frontend owns the actual microphone (getUserMedia) and speaker; it
// pushes captured audio down and plays synthesized audio back up.
type VoiceBridge struct {
	ctx        context.Context
	controller *session.Controller
	audio      *audio.Service
	sink       *WebviewSink
	eventBus   *bus.EventBus
	logger     zerolog.Logger
}

// NewVoiceBridge creates the voice bridge
func NewVoiceBridge(controller *session.Controller, audioSvc *audio.Service, sink *WebviewSink, eventBus *bus.EventBus, logger zerolog.Logger) *VoiceBridge {
	return &VoiceBridge{
		controller: controller,
		audio:      audioSvc,
		sink:       sink,
		eventBus:   eventBus,
		logger:     logger.With().Str("component", "voice-bridge").Logger(),
	}
}

// Bind sets the Wails runtime context and forwards bus events to the
// frontend.
func (b *VoiceBridge) Bind(ctx context.Context) {
	b.ctx = ctx

	b.eventBus.Subscribe(bus.EventTypeModeChanged, func(e bus.Event) {
		runtime.EventsEmit(b.ctx, "session:mode", e.Data)
	})
	b.eventBus.Subscribe(bus.EventTypeTranscript, func(e bus.Event) {
		if text, ok := e.Data["text"].(string); ok {
			runtime.EventsEmit(b.ctx, "session:transcript", text)
		}
	})
	b.eventBus.Subscribe(bus.EventTypeResponse, func(e bus.Event) {
		if text, ok := e.Data["text"].(string); ok {
			runtime.EventsEmit(b.ctx, "session:response", text)
		}
	})
	b.eventBus.Subscribe(bus.EventTypeSessionError, func(e bus.Event) {
		if msg, ok := e.Data["message"].(string); ok {
			runtime.EventsEmit(b.ctx, "session:error", msg)
		}
	})
	b.eventBus.Subscribe(bus.EventTypeContextUpdated, func(e bus.Event) {
		runtime.EventsEmit(b.ctx, "session:context", e.Data)
	})

	b.eventBus.SubscribeMultiple([]bus.EventType{
		bus.EventTypeWakeEnabled,
		bus.EventTypeWakeDisabled,
		bus.EventTypeWakeDetected,
	}, func(e bus.Event) {
		runtime.EventsEmit(b.ctx, string(e.Type), e.Data)
	})

	b.eventBus.Subscribe(bus.EventTypeCaptureStarted, func(e bus.Event) {
		runtime.EventsEmit(b.ctx, "capture:start", e.Data)
	})
	b.eventBus.Subscribe(bus.EventTypeCaptureStopped, func(e bus.Event) {
		runtime.EventsEmit(b.ctx, "capture:stop", e.Data)
	})

	b.eventBus.Subscribe(bus.EventTypeNavigate, func(e bus.Event) {
		runtime.EventsEmit(b.ctx, "action:navigate", e.Data)
	})

	b.eventBus.Subscribe(bus.EventTypeSpeakPlay, func(e bus.Event) {
		runtime.EventsEmit(b.ctx, "tts:play", e.Data)
	})
	b.eventBus.Subscribe(bus.EventTypeSpeakStop, func(e bus.Event) {
		runtime.EventsEmit(b.ctx, "tts:stop", e.Data)
	})
}

// MicPressed handles a tap on the mic button.
func (b *VoiceBridge) MicPressed() {
	b.controller.OnMicPress()
}

// ToggleWakeWord flips passive listening and returns the new state.
func (b *VoiceBridge) ToggleWakeWord() bool {
	return b.controller.ToggleWakeWord()
}

// FinishListening ends the current command capture early.
func (b *VoiceBridge) FinishListening() {
	b.controller.FinishListening()
}

// Dismiss cancels the current interaction.
func (b *VoiceBridge) Dismiss() {
	b.controller.Dismiss()
}

// UpdateContext patches the ambient crop and district.
func (b *VoiceBridge) UpdateContext(crop, district string) {
	b.controller.UpdateContext(intent.Context{Crop: crop, District: district})
}

// GetSnapshot returns the current session view for initial render.
func (b *VoiceBridge) GetSnapshot() session.Snapshot {
	return b.controller.Snapshot()
}

// PushAudioChunk receives base64-encoded audio from the frontend
// recorder and appends it to the open capture.
func (b *VoiceBridge) PushAudioChunk(audioBase64 string) error {
	data, err := base64.StdEncoding.DecodeString(audioBase64)
	if err != nil {
		b.logger.Warn().Err(err).Msg("bad audio chunk from frontend")
		return err
	}
	b.audio.PushChunk(data)
	return nil
}

// ReportDeviceStatus is called by the frontend when microphone device
// enumeration changes.
func (b *VoiceBridge) ReportDeviceStatus(available bool) {
	b.audio.SetDeviceAvailable(available)
}

// ReportPermission is called by the frontend after the getUserMedia
// permission prompt resolves.
func (b *VoiceBridge) ReportPermission(granted bool) {
	b.audio.SetPermission(granted)
}

// PlaybackFinished is called by the frontend when an utterance finishes
// playing.
func (b *VoiceBridge) PlaybackFinished(id string) {
	b.sink.Finished(id)
}
