// Package asr provides remote speech-to-text transcription for AriaVoice.
package asr

import (
	"context"
	"errors"
)

// Typed failures the session controller branches on for its spoken
// fallback message. An empty transcript is not an error: it means the
// service heard nothing.
var (
	ErrNetwork = errors.New("transcription service unreachable")
	ErrTimeout = errors.New("transcription timed out")
	ErrService = errors.New("transcription service error")
)

// SilenceSentinel is the value the remote ASR returns when it detects no
// speech in the submitted audio. Providers map it to an empty transcript.
const SilenceSentinel = "[SILENCE]"

// Provider converts captured audio into text.
type Provider interface {
	Name() string
	// Transcribe returns the transcript for the given audio. An empty
	// string means silence was detected, never a failure.
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}
