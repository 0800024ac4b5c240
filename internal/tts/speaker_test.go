package tts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type fakeProvider struct {
	audio []byte
	err   error
	delay time.Duration
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Synthesize(ctx context.Context, text, voiceID, locale string) ([]byte, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.audio, f.err
}

// blockingSink plays until its context is cancelled, signalling each
// playback start.
type blockingSink struct {
	starts chan struct{}
}

func (s *blockingSink) Play(ctx context.Context, audio []byte, format string) error {
	s.starts <- struct{}{}
	<-ctx.Done()
	return ErrPlaybackStopped
}

func TestSpeak_Completed(t *testing.T) {
	s := NewSpeaker(&fakeProvider{audio: []byte("mp3")}, NopSink{}, "aria-hi", zerolog.Nop())

	outcome := s.Speak(context.Background(), "नमस्ते", "hi-IN")
	assert.Equal(t, OutcomeCompleted, outcome)
}

func TestSpeak_EmptyTextCompletesImmediately(t *testing.T) {
	s := NewSpeaker(&fakeProvider{}, NopSink{}, "aria-hi", zerolog.Nop())

	outcome := s.Speak(context.Background(), "", "hi-IN")
	assert.Equal(t, OutcomeCompleted, outcome)
}

func TestSpeak_ProviderErrorIsFailed(t *testing.T) {
	s := NewSpeaker(&fakeProvider{err: errors.New("quota exceeded")}, NopSink{}, "aria-hi", zerolog.Nop())

	outcome := s.Speak(context.Background(), "hello", "en-IN")
	assert.Equal(t, OutcomeFailed, outcome)
}

func TestStop_CancelsInFlightUtterance(t *testing.T) {
	sink := &blockingSink{starts: make(chan struct{}, 2)}
	s := NewSpeaker(&fakeProvider{audio: []byte("mp3")}, sink, "aria-hi", zerolog.Nop())

	done := make(chan Outcome, 1)
	go func() {
		done <- s.Speak(context.Background(), "a long announcement", "en-IN")
	}()

	<-sink.starts
	s.Stop()

	select {
	case outcome := <-done:
		assert.Equal(t, OutcomeStopped, outcome)
	case <-time.After(2 * time.Second):
		t.Fatal("Speak did not return after Stop")
	}
}

func TestStop_DuringSynthesisIsStopped(t *testing.T) {
	s := NewSpeaker(&fakeProvider{audio: []byte("mp3"), delay: 5 * time.Second}, NopSink{}, "aria-hi", zerolog.Nop())

	done := make(chan Outcome, 1)
	go func() {
		done <- s.Speak(context.Background(), "hello", "en-IN")
	}()

	time.Sleep(50 * time.Millisecond)
	s.Stop()

	select {
	case outcome := <-done:
		assert.Equal(t, OutcomeStopped, outcome)
	case <-time.After(2 * time.Second):
		t.Fatal("Speak did not return after Stop")
	}
}

func TestStop_Idempotent(t *testing.T) {
	s := NewSpeaker(&fakeProvider{audio: []byte("mp3")}, NopSink{}, "aria-hi", zerolog.Nop())

	// Nothing playing: both calls are harmless no-ops.
	s.Stop()
	s.Stop()

	outcome := s.Speak(context.Background(), "hello", "en-IN")
	assert.Equal(t, OutcomeCompleted, outcome)

	s.Stop()
	s.Stop()
}

func TestSpeak_NewUtteranceCancelsPrevious(t *testing.T) {
	sink := &blockingSink{starts: make(chan struct{}, 2)}
	s := NewSpeaker(&fakeProvider{audio: []byte("mp3")}, sink, "aria-hi", zerolog.Nop())

	first := make(chan Outcome, 1)
	go func() {
		first <- s.Speak(context.Background(), "first", "en-IN")
	}()
	<-sink.starts

	second := make(chan Outcome, 1)
	go func() {
		second <- s.Speak(context.Background(), "second", "en-IN")
	}()
	<-sink.starts

	select {
	case outcome := <-first:
		assert.Equal(t, OutcomeStopped, outcome)
	case <-time.After(2 * time.Second):
		t.Fatal("first utterance did not end")
	}

	s.Stop()
	select {
	case outcome := <-second:
		assert.Equal(t, OutcomeStopped, outcome)
	case <-time.After(2 * time.Second):
		t.Fatal("second utterance did not end")
	}
}
