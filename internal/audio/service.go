// Package audio owns microphone recording sessions. Audio bytes arrive
// from the webview (capture happens browser-side, like playback); this
// package tracks the open handle, spools chunks to a temp file, and
// enforces the one-recording-at-a-time discipline.
package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// Capture errors
var (
	ErrPermissionDenied  = errors.New("microphone permission denied")
	ErrDeviceUnavailable = errors.New("audio capture device unavailable")
	ErrCaptureBusy       = errors.New("a recording is already open")
)

// Handle represents an open microphone capture.
type Handle struct {
	ID        string
	StartedAt time.Time
	path      string
}

// Clip is the captured audio of a finished recording. The underlying
// file lives on the service's filesystem until Delete is called.
type Clip struct {
	Path string
	fs   afero.Fs
}

// NewClip wraps an existing file on the given filesystem as a captured
// clip.
func NewClip(fs afero.Fs, path string) *Clip {
	return &Clip{Path: path, fs: fs}
}

// Bytes reads the captured audio.
func (c *Clip) Bytes() ([]byte, error) {
	return afero.ReadFile(c.fs, c.Path)
}

// Delete removes the temp audio file. Safe to call more than once.
func (c *Clip) Delete() error {
	err := c.fs.Remove(c.Path)
	if err != nil && !errors.Is(err, os.ErrNotExist) && !errors.Is(err, afero.ErrFileNotFound) {
		return err
	}
	return nil
}

// Config holds capture configuration
type Config struct {
	SampleRate int
	Channels   int
	MimeType   string
	TempDir    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		SampleRate: 16000,
		Channels:   1,
		MimeType:   "audio/wav",
	}
}

// Service is the capability-checked capture backend. The webview reports
// device availability and permission state through the bridge; Start
// branches on those instead of discovering failures mid-recording.
type Service struct {
	fs     afero.Fs
	cfg    *Config
	logger zerolog.Logger

	mu        sync.Mutex
	active    *Handle
	file      afero.File
	wrote     bool
	available bool
	permitted bool
}

// NewService creates a capture service backed by the given filesystem.
// Tests pass an afero.MemMapFs.
func NewService(fs afero.Fs, cfg *Config, logger zerolog.Logger) *Service {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Service{
		fs:     fs,
		cfg:    cfg,
		logger: logger.With().Str("component", "audio").Logger(),
		// Assume a device until the frontend reports otherwise; the
		// permission prompt resolves on first use.
		available: true,
	}
}

// SetDeviceAvailable records whether a capture backend exists.
func (s *Service) SetDeviceAvailable(ok bool) {
	s.mu.Lock()
	s.available = ok
	s.mu.Unlock()
	s.logger.Info().Bool("available", ok).Msg("capture device status")
}

// SetPermission records the microphone permission decision.
func (s *Service) SetPermission(granted bool) {
	s.mu.Lock()
	s.permitted = granted
	s.mu.Unlock()
	s.logger.Info().Bool("granted", granted).Msg("microphone permission")
}

// Available reports whether a capture backend exists.
func (s *Service) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.available
}

// Start opens a new recording. At most one may be open at a time.
func (s *Service) Start() (*Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.available {
		return nil, ErrDeviceUnavailable
	}
	if !s.permitted {
		return nil, ErrPermissionDenied
	}
	if s.active != nil {
		return nil, ErrCaptureBusy
	}

	id := uuid.NewString()
	path := filepath.Join(s.cfg.TempDir, fmt.Sprintf("aria-rec-%s.wav", id))
	file, err := s.fs.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create capture file: %w", err)
	}

	h := &Handle{ID: id, StartedAt: time.Now(), path: path}
	s.active = h
	s.file = file
	s.wrote = false

	s.logger.Debug().Str("id", id).Msg("recording started")
	return h, nil
}

// PushChunk appends captured audio to the open recording. Chunks arriving
// with no open handle are dropped; the webview keeps streaming for a short
// moment after a stop.
func (s *Service) PushChunk(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil || s.file == nil || len(data) == 0 {
		return
	}
	if _, err := s.file.Write(data); err != nil {
		s.logger.Error().Err(err).Msg("failed to write capture chunk")
		return
	}
	s.wrote = true
}

// Stop closes the recording for the given handle and returns the captured
// clip, or nil when the capture never materialized (no audio arrived).
// Stopping a handle that is not the open one is a no-op.
func (s *Service) Stop(h *Handle) *Clip {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h == nil || s.active == nil || s.active.ID != h.ID {
		return nil
	}

	file := s.file
	wrote := s.wrote
	s.active = nil
	s.file = nil
	s.wrote = false

	if file != nil {
		if err := file.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("close capture file")
		}
	}

	if !wrote {
		// Empty capture: delete the file and signal a failed capture.
		if err := s.fs.Remove(h.path); err != nil {
			s.logger.Warn().Err(err).Str("path", h.path).Msg("remove empty capture")
		}
		s.logger.Debug().Str("id", h.ID).Msg("recording stopped with no audio")
		return nil
	}

	s.logger.Debug().Str("id", h.ID).Dur("took", time.Since(h.StartedAt)).Msg("recording stopped")
	return &Clip{Path: h.path, fs: s.fs}
}

// ActiveHandle returns the currently open handle, if any.
func (s *Service) ActiveHandle() *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// MimeType returns the configured capture mime type.
func (s *Service) MimeType() string {
	return s.cfg.MimeType
}
