// Package tts provides speech synthesis and playback for AriaVoice.
package tts

import (
	"context"
	"errors"
)

// Outcome tags how an utterance ended. Speak always returns one of these;
// it never leaves the caller blocked or forces error branching just to
// avoid a hang.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeStopped   Outcome = "stopped"
	OutcomeFailed    Outcome = "failed"
)

// Synthesizer speaks text aloud.
type Synthesizer interface {
	// Speak synthesizes and plays the text, returning when playback
	// completes, is stopped, or fails.
	Speak(ctx context.Context, text, locale string) Outcome
	// Stop cancels any in-flight utterance immediately. Idempotent.
	Stop()
}

// Provider converts text into audio bytes.
type Provider interface {
	Name() string
	Synthesize(ctx context.Context, text, voiceID, locale string) ([]byte, error)
}

// Sink plays synthesized audio. Play blocks until playback finishes or
// the context is cancelled.
type Sink interface {
	Play(ctx context.Context, audio []byte, format string) error
}

// ErrPlaybackStopped is returned by sinks when playback was cancelled.
var ErrPlaybackStopped = errors.New("playback stopped")

// NopSink discards audio immediately. Used headless and in tests.
type NopSink struct{}

func (NopSink) Play(ctx context.Context, audio []byte, format string) error {
	select {
	case <-ctx.Done():
		return ErrPlaybackStopped
	default:
		return nil
	}
}
