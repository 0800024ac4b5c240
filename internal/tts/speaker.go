package tts

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// Speaker combines a synthesis provider with a playback sink and tracks
// the single in-flight utterance so Stop can cancel it synchronously.
type Speaker struct {
	provider Provider
	sink     Sink
	voiceID  string
	logger   zerolog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	gen     uint64
	stopped bool
}

// NewSpeaker creates a speaker.
func NewSpeaker(provider Provider, sink Sink, voiceID string, logger zerolog.Logger) *Speaker {
	if sink == nil {
		sink = NopSink{}
	}
	return &Speaker{
		provider: provider,
		sink:     sink,
		voiceID:  voiceID,
		logger:   logger.With().Str("component", "tts").Logger(),
	}
}

// Speak synthesizes and plays text. Only one utterance is in flight at a
// time; starting a new one cancels the previous.
func (s *Speaker) Speak(ctx context.Context, text, locale string) Outcome {
	if text == "" {
		return OutcomeCompleted
	}

	playCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	s.cancel = cancel
	s.stopped = false
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		// A newer utterance may own s.cancel by now; only clear our own.
		if s.gen == gen {
			s.cancel = nil
		}
		s.mu.Unlock()
	}()

	audio, err := s.provider.Synthesize(playCtx, text, s.voiceID, locale)
	if err != nil {
		if s.wasStopped() || errors.Is(err, context.Canceled) {
			s.logger.Debug().Msg("synthesis cancelled")
			return OutcomeStopped
		}
		s.logger.Error().Err(err).Msg("synthesis failed")
		return OutcomeFailed
	}

	if err := s.sink.Play(playCtx, audio, "mp3"); err != nil {
		if s.wasStopped() || errors.Is(err, ErrPlaybackStopped) || errors.Is(err, context.Canceled) {
			s.logger.Debug().Msg("playback stopped")
			return OutcomeStopped
		}
		s.logger.Error().Err(err).Msg("playback failed")
		return OutcomeFailed
	}

	return OutcomeCompleted
}

// Stop cancels any in-flight utterance. Calling it with nothing playing,
// or twice in a row, does nothing.
func (s *Speaker) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.stopped = true
		s.cancel()
		s.cancel = nil
	}
}

func (s *Speaker) wasStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}
