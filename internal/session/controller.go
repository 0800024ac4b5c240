package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kisanmitra/ariavoice/internal/asr"
	"github.com/kisanmitra/ariavoice/internal/audio"
	"github.com/kisanmitra/ariavoice/internal/bus"
	"github.com/kisanmitra/ariavoice/internal/intent"
	"github.com/kisanmitra/ariavoice/internal/tts"
	"github.com/kisanmitra/ariavoice/internal/wakeword"
)

// Recorder is the audio capture collaborator.
type Recorder interface {
	Start() (*audio.Handle, error)
	Stop(h *audio.Handle) *audio.Clip
	MimeType() string
}

// Resolver maps transcripts to intents.
type Resolver interface {
	Resolve(ctx context.Context, transcript string, uc intent.Context) intent.Intent
}

// Executor performs an intent's side effect and returns the text to speak.
type Executor interface {
	Execute(ctx context.Context, it intent.Intent, uc intent.Context) string
}

// Controller is the session state machine. All public methods are safe
// for concurrent use; internal goroutines (wake loop, turn pipeline)
// check a generation counter before touching state, so a dismissed or
// interrupted turn can never resurface its results.
type Controller struct {
	cfg      *Config
	recorder Recorder
	asr      asr.Provider
	resolver Resolver
	executor Executor
	speaker  tts.Synthesizer
	detector *wakeword.Detector
	events   *bus.EventBus
	logger   zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	mode        Mode
	transcript  string
	response    string
	errMsg      string
	overlay     bool
	wakeEnabled bool
	userCtx     intent.Context

	// handle is the single open recording. The controller opens at most
	// one at a time, whether for a command capture or a wake chunk.
	handle *audio.Handle

	// turn invalidates in-flight pipeline goroutines and pending timers.
	// Dismiss, interrupt and every new capture bump it.
	turn uint64
	// wakeGen invalidates the running wake loop goroutine.
	wakeGen     uint64
	wakeRunning bool

	autoStop    *time.Timer
	autoDismiss *time.Timer
	wakeRestart *time.Timer
}

// NewController wires the state machine. Detector and events may be nil
// only in tests that exercise paths not touching them.
func NewController(cfg *Config, recorder Recorder, provider asr.Provider, resolver Resolver, executor Executor, speaker tts.Synthesizer, detector *wakeword.Detector, events *bus.EventBus, logger zerolog.Logger) *Controller {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if detector == nil {
		detector = wakeword.NewDetector()
	}
	if events == nil {
		events = bus.NewEventBus()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		cfg:      cfg,
		recorder: recorder,
		asr:      provider,
		resolver: resolver,
		executor: executor,
		speaker:  speaker,
		detector: detector,
		events:   events,
		logger:   logger.With().Str("component", "session").Logger(),
		ctx:      ctx,
		cancel:   cancel,
		mode:     ModeIdle,
	}
}

// Start applies the initial wake-word preference.
func (c *Controller) Start(wakeEnabled bool) {
	if wakeEnabled {
		c.mu.Lock()
		c.wakeEnabled = true
		if c.mode == ModeIdle {
			c.startWakeLoopLocked()
		}
		c.mu.Unlock()
	}
}

// Close tears the controller down: cancels the wake loop and any
// in-flight turn, stops speech and closes an open recording.
func (c *Controller) Close() {
	c.mu.Lock()
	c.turn++
	c.wakeEnabled = false
	c.stopWakeLoopLocked()
	c.clearTimersLocked()
	c.closeHandleLocked()
	c.mu.Unlock()
	c.speaker.Stop()
	c.cancel()
}

// Snapshot returns the current view of the session.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Mode:            c.mode,
		Transcript:      c.transcript,
		Response:        c.response,
		Error:           c.errMsg,
		OverlayVisible:  c.overlay,
		WakeWordEnabled: c.wakeEnabled,
	}
}

// UpdateContext overlays non-empty fields onto the ambient user context.
func (c *Controller) UpdateContext(patch intent.Context) {
	c.mu.Lock()
	c.userCtx = c.userCtx.Merge(patch)
	merged := c.userCtx
	c.mu.Unlock()
	c.events.Publish(bus.Event{Type: bus.EventTypeContextUpdated, Data: map[string]any{
		"crop":     merged.Crop,
		"district": merged.District,
	}})
}

// OnMicPress is the single physical affordance. What it does depends on
// the mode: start listening, finish listening, or interrupt speech.
func (c *Controller) OnMicPress() {
	c.mu.Lock()
	interrupted := false

	switch c.mode {
	case ModeIdle:
		c.beginListeningLocked()
	case ModeWakeListening:
		c.stopWakeLoopLocked()
		c.closeHandleLocked()
		c.beginListeningLocked()
	case ModeListening:
		c.finishListeningLocked()
	case ModeSpeaking, ModeExecuting:
		c.interruptLocked()
		interrupted = true
	case ModeActivated, ModeProcessing:
		// A tap mid-transition is noise.
	}
	c.mu.Unlock()

	if interrupted {
		c.speaker.Stop()
	}
}

// ToggleWakeWord flips passive listening on or off.
func (c *Controller) ToggleWakeWord() bool {
	c.mu.Lock()
	if c.wakeEnabled {
		c.wakeEnabled = false
		c.stopWakeLoopLocked()
		// Only a wake chunk belongs to the loop; a command capture in
		// any other mode keeps running.
		if c.mode == ModeWakeListening {
			c.closeHandleLocked()
			c.setModeLocked(ModeIdle)
		}
		c.mu.Unlock()
		c.events.Publish(bus.Event{Type: bus.EventTypeWakeDisabled})
		return false
	}

	c.wakeEnabled = true
	if c.mode == ModeIdle {
		c.startWakeLoopLocked()
	}
	c.mu.Unlock()
	c.events.Publish(bus.Event{Type: bus.EventTypeWakeEnabled})
	return true
}

// FinishListening closes the current capture and starts processing. It
// is a no-op unless a command recording is actually open, so a late
// auto-stop timer firing after a manual finish does nothing.
func (c *Controller) FinishListening() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != ModeListening || c.handle == nil {
		return
	}
	c.finishListeningLocked()
}

// Dismiss cancels whatever is in flight and returns to idle. If the wake
// word is enabled the loop restarts after a short delay.
func (c *Controller) Dismiss() {
	c.mu.Lock()
	c.turn++
	c.clearTimersLocked()
	c.stopWakeLoopLocked()
	c.closeHandleLocked()
	c.transcript = ""
	c.response = ""
	c.errMsg = ""
	c.toIdleLocked()
	c.mu.Unlock()
	c.speaker.Stop()
}

// beginListeningLocked opens a command capture, arming the auto-stop
// timer. Capture failures speak a notice and fall back to idle.
func (c *Controller) beginListeningLocked() {
	c.turn++
	gen := c.turn
	c.clearTimersLocked()
	c.closeHandleLocked()
	c.transcript = ""
	c.response = ""
	c.errMsg = ""

	h, err := c.recorder.Start()
	if err != nil {
		c.captureFailedLocked(gen, err)
		return
	}
	c.handle = h
	c.overlay = true
	c.setModeLocked(ModeListening)
	c.events.Publish(bus.Event{Type: bus.EventTypeCaptureStarted, Data: map[string]any{"handle": h.ID}})

	c.autoStop = time.AfterFunc(c.cfg.MaxCommandDuration, func() {
		c.FinishListening()
	})
}

func (c *Controller) captureFailedLocked(gen uint64, err error) {
	key := "mic_error"
	switch {
	case errors.Is(err, audio.ErrPermissionDenied):
		key = "mic_permission"
		c.wakeEnabled = false
		c.stopWakeLoopLocked()
	case errors.Is(err, audio.ErrDeviceUnavailable):
		key = "mic_unavailable"
		c.wakeEnabled = false
		c.stopWakeLoopLocked()
	}
	c.logger.Error().Err(err).Msg("capture failed to start")
	msg := c.cfg.message(key)
	c.errMsg = msg
	c.overlay = true
	c.events.Publish(bus.Event{Type: bus.EventTypeSessionError, Data: map[string]any{"message": msg}})
	go c.speakAndSettle(gen, msg, ModeSpeaking)
}

// finishListeningLocked hands the clip to the processing pipeline.
func (c *Controller) finishListeningLocked() {
	if c.handle == nil {
		return
	}
	if c.autoStop != nil {
		c.autoStop.Stop()
		c.autoStop = nil
	}
	h := c.handle
	c.handle = nil
	clip := c.recorder.Stop(h)
	c.setModeLocked(ModeProcessing)
	c.events.Publish(bus.Event{Type: bus.EventTypeCaptureStopped, Data: map[string]any{"handle": h.ID}})

	gen := c.turn
	go c.processClip(gen, clip)
}

// interruptLocked invalidates the turn and returns to idle. The caller
// stops the speaker after releasing the lock, so the cancel has taken
// effect by the time OnMicPress returns.
func (c *Controller) interruptLocked() {
	c.turn++
	c.clearTimersLocked()
	c.toIdleLocked()
}

// processClip transcribes a finished capture and runs the turn. Runs off
// the lock; every state mutation is gated on the turn generation.
func (c *Controller) processClip(gen uint64, clip *audio.Clip) {
	if clip == nil {
		c.speakAndSettle(gen, c.cfg.message("didnt_hear"), ModeSpeaking)
		return
	}

	data, err := clip.Bytes()
	if delErr := clip.Delete(); delErr != nil {
		c.logger.Warn().Err(delErr).Msg("failed to delete clip")
	}
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to read clip")
		c.speakAndSettle(gen, c.cfg.message("asr_failed"), ModeSpeaking)
		return
	}

	text, err := c.asr.Transcribe(c.ctx, data, c.recorder.MimeType())
	if err != nil {
		key := "asr_failed"
		if errors.Is(err, asr.ErrNetwork) || errors.Is(err, asr.ErrTimeout) {
			key = "asr_unreachable"
		}
		c.logger.Error().Err(err).Msg("transcription failed")
		c.speakAndSettle(gen, c.cfg.message(key), ModeSpeaking)
		return
	}

	if text == "" {
		c.speakAndSettle(gen, c.cfg.message("didnt_hear"), ModeSpeaking)
		return
	}

	c.processTranscript(gen, text)
}

// processTranscript resolves and executes a transcript. The transcript
// is published before any speech starts so the UI always shows what was
// heard ahead of the reply.
func (c *Controller) processTranscript(gen uint64, text string) {
	ok := c.ifTurn(gen, func() {
		c.transcript = text
		c.overlay = true
		if c.mode != ModeProcessing {
			c.setModeLocked(ModeProcessing)
		}
	})
	if !ok {
		return
	}
	c.events.Publish(bus.Event{Type: bus.EventTypeTranscript, Data: map[string]any{"text": text}})

	c.mu.Lock()
	uc := c.userCtx
	c.mu.Unlock()

	it := c.resolver.Resolve(c.ctx, text, uc)
	c.logger.Info().Str("kind", string(it.Kind)).Str("transcript", text).Msg("intent resolved")

	speakMode := ModeSpeaking
	if it.Kind == intent.KindFetch {
		speakMode = ModeExecuting
		if !c.ifTurn(gen, func() { c.setModeLocked(ModeExecuting) }) {
			return
		}
	}

	spoken := c.executor.Execute(c.ctx, it, uc)
	c.speakAndSettle(gen, spoken, speakMode)
}

// speakAndSettle publishes the response, speaks it, then arms the
// auto-dismiss timer. A stopped utterance means somebody else already
// took over the session; it settles nothing.
func (c *Controller) speakAndSettle(gen uint64, text string, mode Mode) {
	ok := c.ifTurn(gen, func() {
		c.response = text
		c.overlay = true
		c.setModeLocked(mode)
	})
	if !ok {
		return
	}
	c.events.Publish(bus.Event{Type: bus.EventTypeResponse, Data: map[string]any{"text": text}})
	c.events.Publish(bus.Event{Type: bus.EventTypeSpeakStarted, Data: map[string]any{"text": text}})

	outcome := c.speaker.Speak(c.ctx, text, c.cfg.Locale)
	c.events.Publish(bus.Event{Type: bus.EventTypeSpeakEnded, Data: map[string]any{"outcome": string(outcome)}})

	if outcome == tts.OutcomeStopped {
		return
	}

	c.ifTurn(gen, func() {
		c.autoDismiss = time.AfterFunc(c.cfg.AutoDismissDelay, func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if c.turn != gen {
				return
			}
			c.toIdleLocked()
		})
	})
}

// toIdleLocked drops back to idle and schedules the wake loop restart
// when the wake word is enabled.
func (c *Controller) toIdleLocked() {
	c.overlay = false
	c.setModeLocked(ModeIdle)
	if c.wakeEnabled && !c.wakeRunning {
		if c.wakeRestart != nil {
			c.wakeRestart.Stop()
		}
		c.wakeRestart = time.AfterFunc(c.cfg.WakeRestartDelay, func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if c.wakeEnabled && c.mode == ModeIdle && !c.wakeRunning {
				c.startWakeLoopLocked()
			}
		})
	}
}

func (c *Controller) setModeLocked(m Mode) {
	if c.mode == m {
		return
	}
	prev := c.mode
	c.mode = m
	c.logger.Debug().Str("from", string(prev)).Str("to", string(m)).Msg("mode changed")
	c.events.Publish(bus.Event{Type: bus.EventTypeModeChanged, Data: map[string]any{
		"from": string(prev),
		"to":   string(m),
	}})
}

func (c *Controller) clearTimersLocked() {
	if c.autoStop != nil {
		c.autoStop.Stop()
		c.autoStop = nil
	}
	if c.autoDismiss != nil {
		c.autoDismiss.Stop()
		c.autoDismiss = nil
	}
	if c.wakeRestart != nil {
		c.wakeRestart.Stop()
		c.wakeRestart = nil
	}
}

// closeHandleLocked stops and discards an open recording, if any.
func (c *Controller) closeHandleLocked() {
	if c.handle == nil {
		return
	}
	h := c.handle
	c.handle = nil
	if clip := c.recorder.Stop(h); clip != nil {
		if err := clip.Delete(); err != nil {
			c.logger.Warn().Err(err).Msg("failed to delete discarded clip")
		}
	}
}

// ifTurn runs fn under the lock only when the turn is still current.
func (c *Controller) ifTurn(gen uint64, fn func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.turn != gen {
		return false
	}
	fn()
	return true
}
