// Package wakeword detects the "Hi Aria" activation phrase in transcripts
// and strips it to yield the residual command.
package wakeword

import (
	"regexp"
	"strings"
)

// Strict patterns match the activation phrase at the start of the
// transcript, with the transliterations the ASR commonly produces for
// Hindi speech. Order matters: prefixes are tried first-to-last when
// stripping.
var strictPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*(hi|hey|hello)[,!. ]+\s*(aria|arya|ariya|aaria)\b`),
	regexp.MustCompile(`(?i)^\s*(ok|okay)[,!. ]+\s*(aria|arya|ariya|aaria)\b`),
	regexp.MustCompile(`^\s*(हाय|हे|हेलो|नमस्ते|ओके)[,!. ]*\s*(आरिया|आरीया|आरया|अरिया)`),
	// Bare token at the very start still counts as a spoken prefix.
	regexp.MustCompile(`(?i)^\s*(aria|arya|ariya)\b`),
	regexp.MustCompile(`^\s*(आरिया|आरीया|आरया|अरिया)`),
}

// Loose fallback tolerates noisy transcription: the name showing up
// anywhere in the utterance is treated as a wake attempt.
var loosePattern = regexp.MustCompile(`(?i)(^|[^\p{L}])(aria|ariya|arya|आरिया|आरीया|अरिया)($|[^\p{L}])`)

// Detector checks transcripts for the activation phrase.
type Detector struct{}

// NewDetector creates a wake word detector.
func NewDetector() *Detector {
	return &Detector{}
}

// ContainsWakeWord reports whether the transcript contains the activation
// phrase, either as a strict prefix or as a loose single-token match.
func (d *Detector) ContainsWakeWord(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	for _, p := range strictPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return loosePattern.MatchString(text)
}

// ExtractCommand strips a recognized wake-word prefix, plus any
// punctuation that follows it, and returns the residual command. When no
// prefix is found, or stripping would leave nothing, the original text is
// returned unchanged: the result is never empty for non-empty input.
func (d *Detector) ExtractCommand(text string) string {
	for _, p := range strictPatterns {
		loc := p.FindStringIndex(text)
		if loc == nil {
			continue
		}
		rest := text[loc[1]:]
		rest = strings.TrimLeft(rest, " \t,.!?।-")
		rest = strings.TrimSpace(rest)
		if rest == "" {
			return text
		}
		return rest
	}
	return text
}

// HasResidualCommand reports whether the transcript carries a command
// beyond the wake phrase itself.
func (d *Detector) HasResidualCommand(text string) bool {
	if !d.ContainsWakeWord(text) {
		return false
	}
	return d.ExtractCommand(text) != text
}
