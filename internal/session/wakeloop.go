package session

import (
	"errors"
	"time"

	"github.com/kisanmitra/ariavoice/internal/audio"
	"github.com/kisanmitra/ariavoice/internal/bus"
)

// startWakeLoopLocked launches the passive listening goroutine. The
// generation counter lets stop requests invalidate a loop without
// waiting for it: the goroutine checks liveness at every boundary and
// exits quietly when stale.
func (c *Controller) startWakeLoopLocked() {
	if c.wakeRunning {
		return
	}
	c.wakeRunning = true
	c.wakeGen++
	c.setModeLocked(ModeWakeListening)
	go c.wakeLoop(c.wakeGen)
}

// stopWakeLoopLocked marks the loop stale. The goroutine notices at its
// next boundary, within one chunk duration.
func (c *Controller) stopWakeLoopLocked() {
	if !c.wakeRunning {
		return
	}
	c.wakeRunning = false
	c.wakeGen++
}

func (c *Controller) wakeAlive(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wakeRunning && c.wakeGen == gen
}

// errWakeStale signals the loop was superseded while opening a chunk.
var errWakeStale = errors.New("wake loop superseded")

// startWakeChunk opens the next chunk recording and registers the handle
// under the same lock, so Dismiss and mic-press always see an open wake
// recording and can close it.
func (c *Controller) startWakeChunk(gen uint64) (*audio.Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.wakeRunning || c.wakeGen != gen {
		return nil, errWakeStale
	}
	h, err := c.recorder.Start()
	if err != nil {
		return nil, err
	}
	c.handle = h
	return h, nil
}

// wakeLoop records short chunks and transcribes them until the wake word
// shows up. Transient failures back off and retry; permission or device
// failures disable the loop outright.
func (c *Controller) wakeLoop(gen uint64) {
	c.logger.Info().Msg("wake loop started")
	retries := 0

	for {
		if !c.wakeAlive(gen) {
			c.logger.Debug().Msg("wake loop stopped")
			return
		}

		h, err := c.startWakeChunk(gen)
		if errors.Is(err, errWakeStale) {
			c.logger.Debug().Msg("wake loop stopped")
			return
		}
		if err != nil {
			if errors.Is(err, audio.ErrPermissionDenied) || errors.Is(err, audio.ErrDeviceUnavailable) {
				c.disableWakeLoop(gen, err)
				return
			}
			retries++
			if c.retriesExhausted(retries) {
				c.disableWakeLoop(gen, err)
				return
			}
			c.logger.Warn().Err(err).Int("retries", retries).Msg("wake capture failed, backing off")
			c.events.Publish(bus.Event{Type: bus.EventTypeWakeRetry, Data: map[string]any{"retries": retries}})
			c.sleep(c.cfg.WakeRetryBackoff)
			continue
		}

		c.sleep(c.cfg.WakeChunkDuration)

		c.mu.Lock()
		if c.handle == h {
			c.handle = nil
		}
		c.mu.Unlock()
		clip := c.recorder.Stop(h)

		if !c.wakeAlive(gen) {
			if clip != nil {
				_ = clip.Delete()
			}
			return
		}
		if clip == nil {
			continue
		}

		data, err := clip.Bytes()
		if delErr := clip.Delete(); delErr != nil {
			c.logger.Warn().Err(delErr).Msg("failed to delete wake chunk")
		}
		if err != nil {
			retries++
			if c.retriesExhausted(retries) {
				c.disableWakeLoop(gen, err)
				return
			}
			c.sleep(c.cfg.WakeRetryBackoff)
			continue
		}

		text, err := c.asr.Transcribe(c.ctx, data, c.recorder.MimeType())
		if err != nil {
			retries++
			if c.retriesExhausted(retries) {
				c.disableWakeLoop(gen, err)
				return
			}
			c.logger.Warn().Err(err).Int("retries", retries).Msg("wake transcription failed, backing off")
			c.events.Publish(bus.Event{Type: bus.EventTypeWakeRetry, Data: map[string]any{"retries": retries}})
			c.sleep(c.cfg.WakeRetryBackoff)
			continue
		}
		retries = 0

		if !c.wakeAlive(gen) {
			return
		}
		if text == "" || !c.detector.ContainsWakeWord(text) {
			continue
		}

		c.onWake(gen, text)
		return
	}
}

// retriesExhausted reports whether consecutive failures hit the cap.
// A cap of zero never exhausts.
func (c *Controller) retriesExhausted(retries int) bool {
	return c.cfg.WakeMaxRetries > 0 && retries >= c.cfg.WakeMaxRetries
}

// disableWakeLoop shuts the loop down after an unrecoverable failure and
// tells the user why.
func (c *Controller) disableWakeLoop(gen uint64, err error) {
	c.mu.Lock()
	if c.wakeGen != gen {
		c.mu.Unlock()
		return
	}
	c.wakeRunning = false
	c.wakeEnabled = false
	key := "mic_error"
	switch {
	case errors.Is(err, audio.ErrPermissionDenied):
		key = "mic_permission"
	case errors.Is(err, audio.ErrDeviceUnavailable):
		key = "mic_unavailable"
	}
	msg := c.cfg.message(key)
	c.errMsg = msg
	if c.mode == ModeWakeListening {
		c.setModeLocked(ModeIdle)
	}
	c.mu.Unlock()

	c.logger.Error().Err(err).Msg("wake loop disabled")
	c.events.Publish(bus.Event{Type: bus.EventTypeWakeDisabled, Data: map[string]any{"reason": err.Error()}})
	c.events.Publish(bus.Event{Type: bus.EventTypeSessionError, Data: map[string]any{"message": msg}})
	c.speaker.Speak(c.ctx, msg, c.cfg.Locale)
}

// onWake handles a detected wake word. A residual command in the same
// utterance skips the prompt and goes straight to processing; a bare
// wake word prompts and opens a fresh capture.
func (c *Controller) onWake(gen uint64, text string) {
	c.mu.Lock()
	if !c.wakeRunning || c.wakeGen != gen {
		c.mu.Unlock()
		return
	}
	c.wakeRunning = false
	c.wakeGen++
	c.turn++
	turn := c.turn

	c.events.Publish(bus.Event{Type: bus.EventTypeWakeDetected, Data: map[string]any{"text": text}})
	c.logger.Info().Str("text", text).Msg("wake word detected")

	if c.detector.HasResidualCommand(text) {
		cmd := c.detector.ExtractCommand(text)
		c.overlay = true
		c.setModeLocked(ModeProcessing)
		c.mu.Unlock()
		go c.processTranscript(turn, cmd)
		return
	}

	c.overlay = true
	c.setModeLocked(ModeActivated)
	c.mu.Unlock()
	go c.promptAndListen(turn)
}

// promptAndListen speaks the activation prompt, then opens the command
// capture.
func (c *Controller) promptAndListen(gen uint64) {
	// A stopped prompt means the turn was taken over; the generation
	// check below catches that, no need to branch on the outcome.
	c.speaker.Speak(c.ctx, c.cfg.message("wake_prompt"), c.cfg.Locale)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.turn != gen || c.mode != ModeActivated {
		return
	}
	c.beginListeningLocked()
}

// sleep waits without holding the lock, returning early on shutdown.
func (c *Controller) sleep(d time.Duration) {
	select {
	case <-time.After(d):
	case <-c.ctx.Done():
	}
}
