// Package session contains the voice-interaction state machine. The
// controller sequences capture, transcription, wake-word detection,
// intent resolution, action execution and spoken feedback, and owns the
// timers and the single open recording handle.
package session

import (
	"strings"
	"time"
)

// Mode is the session state. Exactly one value is active at any time and
// only the controller transitions it.
type Mode string

const (
	ModeIdle          Mode = "idle"
	ModeWakeListening Mode = "wake_listening"
	ModeActivated     Mode = "activated"
	ModeListening     Mode = "listening"
	ModeProcessing    Mode = "processing"
	ModeSpeaking      Mode = "speaking"
	ModeExecuting     Mode = "executing"
)

// Snapshot is the read-only view exposed to the UI layer.
type Snapshot struct {
	Mode            Mode   `json:"mode"`
	Transcript      string `json:"transcript"`
	Response        string `json:"response"`
	Error           string `json:"error"`
	OverlayVisible  bool   `json:"overlayVisible"`
	WakeWordEnabled bool   `json:"wakeWordEnabled"`
}

// Config holds the controller's timing and locale settings.
type Config struct {
	Locale string

	// MaxCommandDuration bounds a command capture; the auto-stop timer
	// fires FinishListening when it elapses.
	MaxCommandDuration time.Duration
	// AutoDismissDelay is how long a response stays up before the
	// session returns to idle.
	AutoDismissDelay time.Duration
	// WakeRestartDelay defers restarting the wake loop after a dismiss
	// or interrupt, so the restart does not race the teardown.
	WakeRestartDelay time.Duration

	WakeChunkDuration time.Duration
	WakeRetryBackoff  time.Duration
	// WakeMaxRetries caps consecutive failed wake cycles. 0 retries
	// forever, matching the original behavior.
	WakeMaxRetries int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Locale:             "hi-IN",
		MaxCommandDuration: 8 * time.Second,
		AutoDismissDelay:   6 * time.Second,
		WakeRestartDelay:   1 * time.Second,
		WakeChunkDuration:  4 * time.Second,
		WakeRetryBackoff:   1500 * time.Millisecond,
		WakeMaxRetries:     0,
	}
}

// Spoken fallback messages. Every failure path ends in one of these plus
// a return to idle, never a silent hang.
var messages = map[string][2]string{
	// key: {english, hindi}
	"didnt_hear":      {"Sorry, I didn't hear anything. Please try again.", "माफ़ कीजिए, मुझे कुछ सुनाई नहीं दिया। फिर से कोशिश करें।"},
	"asr_unreachable": {"I couldn't reach the transcription service. Please check your connection.", "आवाज़ पहचान सेवा से संपर्क नहीं हो पाया। कृपया अपना नेटवर्क जांचें।"},
	"asr_failed":      {"Something went wrong while understanding you. Please try again.", "आपकी बात समझने में दिक्कत हुई। कृपया फिर से कोशिश करें।"},
	"mic_permission":  {"I need microphone permission to listen.", "सुनने के लिए मुझे माइक्रोफ़ोन की अनुमति चाहिए।"},
	"mic_unavailable": {"No microphone is available on this device.", "इस डिवाइस पर माइक्रोफ़ोन उपलब्ध नहीं है।"},
	"mic_error":       {"I couldn't start recording. Please try again.", "रिकॉर्डिंग शुरू नहीं हो पाई। कृपया फिर से कोशिश करें।"},
	"wake_prompt":     {"Yes? I'm listening.", "जी? मैं सुन रही हूँ।"},
}

func (c *Config) message(key string) string {
	pair, ok := messages[key]
	if !ok {
		return ""
	}
	if strings.HasPrefix(c.Locale, "hi") {
		return pair[1]
	}
	return pair[0]
}
