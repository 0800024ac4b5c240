package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/kisanmitra/ariavoice/internal/asr"
	"github.com/kisanmitra/ariavoice/internal/audio"
	"github.com/kisanmitra/ariavoice/internal/bus"
	"github.com/kisanmitra/ariavoice/internal/intent"
	"github.com/kisanmitra/ariavoice/internal/tts"
	"github.com/kisanmitra/ariavoice/internal/wakeword"
)

func testConfig() *Config {
	return &Config{
		Locale:             "en-IN",
		MaxCommandDuration: 500 * time.Millisecond,
		AutoDismissDelay:   30 * time.Millisecond,
		WakeRestartDelay:   10 * time.Millisecond,
		WakeChunkDuration:  20 * time.Millisecond,
		WakeRetryBackoff:   5 * time.Millisecond,
		WakeMaxRetries:     0,
	}
}

// fakeASR returns queued transcripts in order, repeating the last one.
type fakeASR struct {
	mu    sync.Mutex
	texts []string
	err   error
	calls int
}

func (f *fakeASR) Name() string { return "fake" }

func (f *fakeASR) Transcribe(ctx context.Context, data []byte, mimeType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if len(f.texts) == 0 {
		return "", nil
	}
	text := f.texts[0]
	if len(f.texts) > 1 {
		f.texts = f.texts[1:]
	}
	return text, nil
}

type fakeResolver struct {
	mu  sync.Mutex
	it  *intent.Intent
	got []string
}

func (f *fakeResolver) Resolve(ctx context.Context, transcript string, uc intent.Context) intent.Intent {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, transcript)
	if f.it != nil {
		return *f.it
	}
	return intent.Intent{Kind: intent.KindChat, Response: "heard: " + transcript}
}

func (f *fakeResolver) transcripts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.got...)
}

type fakeExecutor struct {
	mu    sync.Mutex
	kinds []intent.Kind
}

func (f *fakeExecutor) Execute(ctx context.Context, it intent.Intent, uc intent.Context) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kinds = append(f.kinds, it.Kind)
	return it.Response
}

// fakeSpeaker records utterances. With block set, Speak hangs until Stop.
type fakeSpeaker struct {
	mu     sync.Mutex
	spoken []string
	stops  int
	block  chan struct{}
}

func (f *fakeSpeaker) Speak(ctx context.Context, text, locale string) tts.Outcome {
	f.mu.Lock()
	f.spoken = append(f.spoken, text)
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
			return tts.OutcomeStopped
		case <-ctx.Done():
			return tts.OutcomeStopped
		}
	}
	return tts.OutcomeCompleted
}

func (f *fakeSpeaker) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	if f.block != nil {
		close(f.block)
		f.block = nil
	}
}

func (f *fakeSpeaker) utterances() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.spoken...)
}

func (f *fakeSpeaker) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

// fakeRecorder serves wake-loop tests: each Start/Stop cycle yields the
// next queued chunk of audio, nil meaning an empty capture.
type fakeRecorder struct {
	mu       sync.Mutex
	fs       afero.Fs
	chunks   [][]byte
	startErr error
	active   *audio.Handle
	starts   int
}

func newFakeRecorder(chunks ...[]byte) *fakeRecorder {
	return &fakeRecorder{fs: afero.NewMemMapFs(), chunks: chunks}
}

func (f *fakeRecorder) Start() (*audio.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	if f.startErr != nil {
		return nil, f.startErr
	}
	if f.active != nil {
		return nil, audio.ErrCaptureBusy
	}
	f.active = &audio.Handle{ID: uuid.NewString(), StartedAt: time.Now()}
	return f.active, nil
}

func (f *fakeRecorder) Stop(h *audio.Handle) *audio.Clip {
	f.mu.Lock()
	defer f.mu.Unlock()
	if h == nil || f.active == nil || f.active.ID != h.ID {
		return nil
	}
	f.active = nil

	var data []byte
	if len(f.chunks) > 0 {
		data = f.chunks[0]
		f.chunks = f.chunks[1:]
	}
	if data == nil {
		return nil
	}
	path := fmt.Sprintf("/rec-%s.wav", h.ID)
	if err := afero.WriteFile(f.fs, path, data, 0644); err != nil {
		return nil
	}
	return audio.NewClip(f.fs, path)
}

func (f *fakeRecorder) MimeType() string { return "audio/wav" }

func (f *fakeRecorder) remaining() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.chunks)
}

func newTestService(t *testing.T) *audio.Service {
	t.Helper()
	svc := audio.NewService(afero.NewMemMapFs(), nil, zerolog.Nop())
	svc.SetPermission(true)
	return svc
}

func newController(cfg *Config, rec Recorder, provider asr.Provider, resolver Resolver, executor Executor, speaker tts.Synthesizer) *Controller {
	return NewController(cfg, rec, provider, resolver, executor, speaker, wakeword.NewDetector(), bus.NewEventBus(), zerolog.Nop())
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

func TestMicPress_OpensRecording(t *testing.T) {
	svc := newTestService(t)
	c := newController(testConfig(), svc, &fakeASR{}, &fakeResolver{}, &fakeExecutor{}, &fakeSpeaker{})
	defer c.Close()

	c.OnMicPress()

	snap := c.Snapshot()
	if snap.Mode != ModeListening {
		t.Fatalf("expected listening, got %s", snap.Mode)
	}
	if !snap.OverlayVisible {
		t.Error("overlay should be visible while listening")
	}
	if svc.ActiveHandle() == nil {
		t.Error("expected an open recording")
	}
}

func TestMicPress_SecondPressRunsTheTurn(t *testing.T) {
	svc := newTestService(t)
	stt := &fakeASR{texts: []string{"show mandi prices"}}
	resolver := &fakeResolver{}
	speaker := &fakeSpeaker{}
	c := newController(testConfig(), svc, stt, resolver, &fakeExecutor{}, speaker)
	defer c.Close()

	c.OnMicPress()
	svc.PushChunk([]byte("audio"))
	c.OnMicPress()

	waitFor(t, func() bool {
		return len(speaker.utterances()) > 0
	}, "response to be spoken")

	got := resolver.transcripts()
	if len(got) != 1 || got[0] != "show mandi prices" {
		t.Fatalf("resolver got %v", got)
	}
	if speaker.utterances()[0] != "heard: show mandi prices" {
		t.Errorf("spoke %q", speaker.utterances()[0])
	}

	// Transcript must be visible in the snapshot alongside the reply.
	snap := c.Snapshot()
	if snap.Transcript != "show mandi prices" {
		t.Errorf("transcript = %q", snap.Transcript)
	}

	waitFor(t, func() bool { return c.Snapshot().Mode == ModeIdle }, "auto dismiss")
	if svc.ActiveHandle() != nil {
		t.Error("no recording should remain open")
	}
}

func TestAutoStopTimer_FinishesCapture(t *testing.T) {
	cfg := testConfig()
	cfg.MaxCommandDuration = 40 * time.Millisecond
	svc := newTestService(t)
	stt := &fakeASR{texts: []string{"harvest time"}}
	speaker := &fakeSpeaker{}
	c := newController(cfg, svc, stt, &fakeResolver{}, &fakeExecutor{}, speaker)
	defer c.Close()

	c.OnMicPress()
	svc.PushChunk([]byte("audio"))

	waitFor(t, func() bool {
		return len(speaker.utterances()) > 0
	}, "auto-stop to finish the capture")
}

func TestFinishListening_NoOpWithoutOpenCapture(t *testing.T) {
	svc := newTestService(t)
	c := newController(testConfig(), svc, &fakeASR{}, &fakeResolver{}, &fakeExecutor{}, &fakeSpeaker{})
	defer c.Close()

	c.FinishListening()
	if got := c.Snapshot().Mode; got != ModeIdle {
		t.Fatalf("expected idle, got %s", got)
	}
}

func TestEmptyCapture_SpeaksDidntHear(t *testing.T) {
	svc := newTestService(t)
	speaker := &fakeSpeaker{}
	resolver := &fakeResolver{}
	c := newController(testConfig(), svc, &fakeASR{}, resolver, &fakeExecutor{}, speaker)
	defer c.Close()

	c.OnMicPress()
	// No chunks pushed: the capture is empty.
	c.OnMicPress()

	waitFor(t, func() bool { return len(speaker.utterances()) > 0 }, "fallback speech")
	if !strings.Contains(speaker.utterances()[0], "didn't hear") {
		t.Errorf("spoke %q", speaker.utterances()[0])
	}
	if len(resolver.transcripts()) != 0 {
		t.Error("resolver must not run on an empty capture")
	}
	waitFor(t, func() bool { return c.Snapshot().Mode == ModeIdle }, "return to idle")
}

func TestASRNetworkFailure_SpeaksConnectionMessage(t *testing.T) {
	svc := newTestService(t)
	stt := &fakeASR{err: fmt.Errorf("%w: connection refused", asr.ErrNetwork)}
	speaker := &fakeSpeaker{}
	c := newController(testConfig(), svc, stt, &fakeResolver{}, &fakeExecutor{}, speaker)
	defer c.Close()

	c.OnMicPress()
	svc.PushChunk([]byte("audio"))
	c.OnMicPress()

	waitFor(t, func() bool { return len(speaker.utterances()) > 0 }, "fallback speech")
	if !strings.Contains(speaker.utterances()[0], "connection") {
		t.Errorf("spoke %q", speaker.utterances()[0])
	}
	waitFor(t, func() bool { return c.Snapshot().Mode == ModeIdle }, "return to idle")
}

func TestDismiss_ClosesRecordingAndReturnsToIdle(t *testing.T) {
	svc := newTestService(t)
	speaker := &fakeSpeaker{}
	c := newController(testConfig(), svc, &fakeASR{}, &fakeResolver{}, &fakeExecutor{}, speaker)
	defer c.Close()

	c.OnMicPress()
	svc.PushChunk([]byte("audio"))
	c.Dismiss()

	snap := c.Snapshot()
	if snap.Mode != ModeIdle {
		t.Fatalf("expected idle, got %s", snap.Mode)
	}
	if snap.Transcript != "" || snap.Response != "" {
		t.Error("dismiss must clear transcript and response")
	}
	if svc.ActiveHandle() != nil {
		t.Error("dismiss must close the open recording")
	}
	// The dismissed capture must never produce speech.
	time.Sleep(50 * time.Millisecond)
	if len(speaker.utterances()) != 0 {
		t.Errorf("unexpected speech after dismiss: %v", speaker.utterances())
	}
}

func TestMicPress_InterruptsSpeech(t *testing.T) {
	svc := newTestService(t)
	stt := &fakeASR{texts: []string{"hello"}}
	speaker := &fakeSpeaker{block: make(chan struct{})}
	c := newController(testConfig(), svc, stt, &fakeResolver{}, &fakeExecutor{}, speaker)
	defer c.Close()

	c.OnMicPress()
	svc.PushChunk([]byte("audio"))
	c.OnMicPress()

	waitFor(t, func() bool { return c.Snapshot().Mode == ModeSpeaking }, "speech to start")

	c.OnMicPress()

	// The cancel happens before the press returns, not on a goroutine.
	if speaker.stopCount() == 0 {
		t.Error("interrupt must stop the speaker synchronously")
	}
	waitFor(t, func() bool { return c.Snapshot().Mode == ModeIdle }, "interrupt to idle")
}

func TestCapturePermissionDenied_SpeaksNotice(t *testing.T) {
	svc := audio.NewService(afero.NewMemMapFs(), nil, zerolog.Nop())
	// Permission never granted.
	speaker := &fakeSpeaker{}
	c := newController(testConfig(), svc, &fakeASR{}, &fakeResolver{}, &fakeExecutor{}, speaker)
	defer c.Close()

	c.OnMicPress()

	waitFor(t, func() bool { return len(speaker.utterances()) > 0 }, "permission notice")
	if !strings.Contains(speaker.utterances()[0], "permission") {
		t.Errorf("spoke %q", speaker.utterances()[0])
	}
	if c.Snapshot().WakeWordEnabled {
		t.Error("wake word must be disabled after a permission failure")
	}
}

func TestWakeLoop_ResidualCommandSkipsPrompt(t *testing.T) {
	rec := newFakeRecorder([]byte("chunk"))
	stt := &fakeASR{texts: []string{"hi aria show mandi prices"}}
	resolver := &fakeResolver{}
	speaker := &fakeSpeaker{}
	c := newController(testConfig(), rec, stt, resolver, &fakeExecutor{}, speaker)
	defer c.Close()

	c.Start(true)

	waitFor(t, func() bool {
		got := resolver.transcripts()
		return len(got) > 0 && got[0] == "show mandi prices"
	}, "residual command to reach the resolver")

	utterances := speaker.utterances()
	for _, u := range utterances {
		if strings.Contains(u, "listening") {
			t.Errorf("prompt %q must be skipped with a residual command", u)
		}
	}
}

func TestWakeLoop_BareWakePromptsThenListens(t *testing.T) {
	rec := newFakeRecorder([]byte("chunk"))
	stt := &fakeASR{texts: []string{"hi aria"}}
	speaker := &fakeSpeaker{}
	c := newController(testConfig(), rec, stt, &fakeResolver{}, &fakeExecutor{}, speaker)
	defer c.Close()

	c.Start(true)

	waitFor(t, func() bool { return c.Snapshot().Mode == ModeListening }, "activation to open a capture")

	utterances := speaker.utterances()
	if len(utterances) == 0 || !strings.Contains(utterances[0], "listening") {
		t.Errorf("expected activation prompt, spoke %v", utterances)
	}
}

func TestWakeLoop_IgnoresNonWakeSpeech(t *testing.T) {
	rec := newFakeRecorder([]byte("a"), []byte("b"), []byte("c"))
	stt := &fakeASR{texts: []string{"just people talking", "more chatter", ""}}
	resolver := &fakeResolver{}
	c := newController(testConfig(), rec, stt, resolver, &fakeExecutor{}, &fakeSpeaker{})
	defer c.Close()

	c.Start(true)

	time.Sleep(150 * time.Millisecond)
	if got := resolver.transcripts(); len(got) != 0 {
		t.Errorf("resolver must not run without a wake word, got %v", got)
	}
	if mode := c.Snapshot().Mode; mode != ModeWakeListening {
		t.Errorf("expected wake_listening, got %s", mode)
	}
}

func TestWakeLoop_TransientFailuresHitRetryCap(t *testing.T) {
	rec := newFakeRecorder()
	rec.startErr = errors.New("backend hiccup")
	cfg := testConfig()
	cfg.WakeMaxRetries = 2
	c := newController(cfg, rec, &fakeASR{}, &fakeResolver{}, &fakeExecutor{}, &fakeSpeaker{})
	defer c.Close()

	c.Start(true)

	waitFor(t, func() bool { return !c.Snapshot().WakeWordEnabled }, "wake loop to disable itself")
	if mode := c.Snapshot().Mode; mode != ModeIdle {
		t.Errorf("expected idle after disable, got %s", mode)
	}
}

func TestWakeLoop_PermissionFailureDisablesImmediately(t *testing.T) {
	rec := newFakeRecorder()
	rec.startErr = audio.ErrPermissionDenied
	speaker := &fakeSpeaker{}
	c := newController(testConfig(), rec, &fakeASR{}, &fakeResolver{}, &fakeExecutor{}, speaker)
	defer c.Close()

	c.Start(true)

	waitFor(t, func() bool { return !c.Snapshot().WakeWordEnabled }, "wake loop to disable itself")
	waitFor(t, func() bool { return len(speaker.utterances()) > 0 }, "spoken notice")
	if !strings.Contains(speaker.utterances()[0], "permission") {
		t.Errorf("spoke %q", speaker.utterances()[0])
	}
}

func TestToggleWakeWord(t *testing.T) {
	rec := newFakeRecorder()
	c := newController(testConfig(), rec, &fakeASR{}, &fakeResolver{}, &fakeExecutor{}, &fakeSpeaker{})
	defer c.Close()

	if !c.ToggleWakeWord() {
		t.Fatal("first toggle should enable")
	}
	waitFor(t, func() bool { return c.Snapshot().Mode == ModeWakeListening }, "wake loop to start")

	if c.ToggleWakeWord() {
		t.Fatal("second toggle should disable")
	}
	waitFor(t, func() bool { return c.Snapshot().Mode == ModeIdle }, "wake loop to stop")
}

func TestMicPress_DuringWakeListeningOpensCommandCapture(t *testing.T) {
	rec := newFakeRecorder()
	c := newController(testConfig(), rec, &fakeASR{}, &fakeResolver{}, &fakeExecutor{}, &fakeSpeaker{})
	defer c.Close()

	c.Start(true)
	waitFor(t, func() bool { return c.Snapshot().Mode == ModeWakeListening }, "wake loop to start")

	c.OnMicPress()

	waitFor(t, func() bool { return c.Snapshot().Mode == ModeListening }, "command capture to open")
	snap := c.Snapshot()
	if !snap.WakeWordEnabled {
		t.Error("manual capture must not disable the wake preference")
	}
}

func TestToggleWakeWord_DuringListeningKeepsCapture(t *testing.T) {
	svc := newTestService(t)
	stt := &fakeASR{texts: []string{"show mandi prices"}}
	speaker := &fakeSpeaker{}
	c := newController(testConfig(), svc, stt, &fakeResolver{}, &fakeExecutor{}, speaker)
	defer c.Close()

	c.ToggleWakeWord()
	waitFor(t, func() bool { return c.Snapshot().Mode == ModeWakeListening }, "wake loop to start")

	c.OnMicPress()
	waitFor(t, func() bool { return c.Snapshot().Mode == ModeListening }, "command capture to open")

	// Disabling the wake word mid-capture must leave the recording alone.
	c.ToggleWakeWord()

	snap := c.Snapshot()
	if snap.Mode != ModeListening {
		t.Fatalf("expected listening, got %s", snap.Mode)
	}
	if snap.WakeWordEnabled {
		t.Error("wake word should be disabled")
	}
	if svc.ActiveHandle() == nil {
		t.Fatal("command capture must survive the toggle")
	}

	svc.PushChunk([]byte("audio"))
	c.OnMicPress()

	waitFor(t, func() bool { return len(speaker.utterances()) > 0 }, "turn to complete")
	if speaker.utterances()[0] != "heard: show mandi prices" {
		t.Errorf("spoke %q", speaker.utterances()[0])
	}
}

func TestWakeLoop_RestartsAfterTurn(t *testing.T) {
	rec := newFakeRecorder([]byte("wake"), []byte("command"))
	stt := &fakeASR{texts: []string{"hi aria, what's the weather"}}
	c := newController(testConfig(), rec, stt, &fakeResolver{}, &fakeExecutor{}, &fakeSpeaker{})
	defer c.Close()

	c.Start(true)

	// Full turn: wake with residual command, reply, auto dismiss, then
	// the loop must come back.
	waitFor(t, func() bool { return c.Snapshot().Mode == ModeWakeListening && rec.remaining() == 0 }, "wake loop restart")
}

func TestUpdateContext_Merges(t *testing.T) {
	c := newController(testConfig(), newFakeRecorder(), &fakeASR{}, &fakeResolver{}, &fakeExecutor{}, &fakeSpeaker{})
	defer c.Close()

	c.UpdateContext(intent.Context{Crop: "onion"})
	c.UpdateContext(intent.Context{District: "Pune"})

	c.mu.Lock()
	uc := c.userCtx
	c.mu.Unlock()
	if uc.Crop != "onion" || uc.District != "Pune" {
		t.Errorf("context = %+v", uc)
	}
}

func TestFetchIntent_GoesThroughExecuting(t *testing.T) {
	svc := newTestService(t)
	stt := &fakeASR{texts: []string{"best mandi for wheat"}}
	resolver := &fakeResolver{it: &intent.Intent{
		Kind:     intent.KindFetch,
		Action:   intent.ActionBestMandi,
		Response: "Let me find the best mandi for you.",
	}}
	executor := &fakeExecutor{}
	speaker := &fakeSpeaker{}
	c := newController(testConfig(), svc, stt, resolver, executor, speaker)
	defer c.Close()

	c.OnMicPress()
	svc.PushChunk([]byte("audio"))
	c.OnMicPress()

	waitFor(t, func() bool { return len(speaker.utterances()) > 0 }, "fetch reply")

	executor.mu.Lock()
	kinds := append([]intent.Kind(nil), executor.kinds...)
	executor.mu.Unlock()
	if len(kinds) != 1 || kinds[0] != intent.KindFetch {
		t.Fatalf("executor kinds = %v", kinds)
	}
}
