// Package config provides configuration management for AriaVoice
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	User     UserConfig     `mapstructure:"user"`
	Audio    AudioConfig    `mapstructure:"audio"`
	Wake     WakeConfig     `mapstructure:"wake"`
	ASR      ASRConfig      `mapstructure:"asr"`
	NLU      NLUConfig      `mapstructure:"nlu"`
	TTS      TTSConfig      `mapstructure:"tts"`
	Advisory AdvisoryConfig `mapstructure:"advisory"`
	Session  SessionConfig  `mapstructure:"session"`
	Window   WindowConfig   `mapstructure:"window"`
}

// UserConfig carries the ambient parameters merged into fetch intents.
// It is edited from the settings screen or directly in config.yaml; the
// config watcher pushes changes into the running session controller.
type UserConfig struct {
	Crop     string `mapstructure:"crop"`
	District string `mapstructure:"district"`
	Locale   string `mapstructure:"locale"` // hi-IN or en-IN
}

// AudioConfig configures microphone capture
type AudioConfig struct {
	SampleRate int    `mapstructure:"sample_rate"`
	Channels   int    `mapstructure:"channels"`
	MimeType   string `mapstructure:"mime_type"`
	TempDir    string `mapstructure:"temp_dir"` // empty means OS temp
}

// WakeConfig configures the passive wake-word loop
type WakeConfig struct {
	EnabledOnStart bool          `mapstructure:"enabled_on_start"`
	ChunkDuration  time.Duration `mapstructure:"chunk_duration"`
	RetryBackoff   time.Duration `mapstructure:"retry_backoff"`
	// MaxRetries caps consecutive failed wake cycles before the loop
	// disables itself. 0 keeps retrying forever.
	MaxRetries int `mapstructure:"max_retries"`
}

// ASRConfig configures remote transcription
type ASRConfig struct {
	Provider string        `mapstructure:"provider"` // http or streaming
	Endpoint string        `mapstructure:"endpoint"`
	APIKey   string        `mapstructure:"api_key"`
	Language string        `mapstructure:"language"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// NLUConfig configures the remote intent fallback
type NLUConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// TTSConfig configures speech synthesis
type TTSConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	APIKey   string        `mapstructure:"api_key"`
	VoiceID  string        `mapstructure:"voice_id"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// AdvisoryConfig configures the data-fetch backend
type AdvisoryConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SessionConfig configures the controller's timers
type SessionConfig struct {
	MaxCommandDuration time.Duration `mapstructure:"max_command_duration"`
	AutoDismissDelay   time.Duration `mapstructure:"auto_dismiss_delay"`
	WakeRestartDelay   time.Duration `mapstructure:"wake_restart_delay"`
}

// WindowConfig configures the desktop window
type WindowConfig struct {
	Title       string `mapstructure:"title"`
	Width       int    `mapstructure:"width"`
	Height      int    `mapstructure:"height"`
	AlwaysOnTop bool   `mapstructure:"always_on_top"`
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		User: UserConfig{
			Crop:     "wheat",
			District: "Nashik",
			Locale:   "hi-IN",
		},
		Audio: AudioConfig{
			SampleRate: 16000,
			Channels:   1,
			MimeType:   "audio/wav",
		},
		Wake: WakeConfig{
			EnabledOnStart: false,
			ChunkDuration:  4 * time.Second,
			RetryBackoff:   1500 * time.Millisecond,
			MaxRetries:     0,
		},
		ASR: ASRConfig{
			Provider: "http",
			Endpoint: "https://api.kisanmitra.in/v1/transcribe",
			Language: "hi",
			Timeout:  30 * time.Second,
		},
		NLU: NLUConfig{
			Endpoint: "https://api.kisanmitra.in/v1/interpret",
			Timeout:  15 * time.Second,
		},
		TTS: TTSConfig{
			Endpoint: "https://api.kisanmitra.in/v1/speak",
			VoiceID:  "aria-hi",
			Timeout:  20 * time.Second,
		},
		Advisory: AdvisoryConfig{
			BaseURL: "https://api.kisanmitra.in/v1",
			Timeout: 12 * time.Second,
		},
		Session: SessionConfig{
			MaxCommandDuration: 8 * time.Second,
			AutoDismissDelay:   6 * time.Second,
			WakeRestartDelay:   1 * time.Second,
		},
		Window: WindowConfig{
			Title:  "AriaVoice",
			Width:  420,
			Height: 640,
		},
	}
}

// Load reads configuration from file and environment
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configDir, err := GetConfigDir()
	if err != nil {
		return cfg, err
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return cfg, err
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("ARIAVOICE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, err
		}
		// Config file not found, use defaults and create one
		if err := Save(cfg); err != nil {
			return cfg, err
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Save writes the configuration to file
func Save(cfg *Config) error {
	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	viper.Set("user", cfg.User)
	viper.Set("audio", cfg.Audio)
	viper.Set("wake", cfg.Wake)
	viper.Set("asr", cfg.ASR)
	viper.Set("nlu", cfg.NLU)
	viper.Set("tts", cfg.TTS)
	viper.Set("advisory", cfg.Advisory)
	viper.Set("session", cfg.Session)
	viper.Set("window", cfg.Window)

	return viper.WriteConfigAs(filepath.Join(configDir, "config.yaml"))
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".ariavoice"), nil
}

// ConfigFilePath returns the path of the config file the watcher observes.
func ConfigFilePath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}
