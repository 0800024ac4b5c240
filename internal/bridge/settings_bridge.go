package bridge

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/kisanmitra/ariavoice/internal/config"
	"github.com/kisanmitra/ariavoice/internal/intent"
	"github.com/kisanmitra/ariavoice/internal/session"
)

// SettingsBridge exposes configuration to the frontend settings screen.
type SettingsBridge struct {
	ctx        context.Context
	cfg        *config.Config
	controller *session.Controller
	logger     zerolog.Logger
}

// NewSettingsBridge creates the settings bridge
func NewSettingsBridge(cfg *config.Config, controller *session.Controller, logger zerolog.Logger) *SettingsBridge {
	return &SettingsBridge{
		cfg:        cfg,
		controller: controller,
		logger:     logger.With().Str("component", "settings-bridge").Logger(),
	}
}

// Bind sets the Wails context
func (b *SettingsBridge) Bind(ctx context.Context) {
	b.ctx = ctx
}

// GetSettings returns the current configuration.
func (b *SettingsBridge) GetSettings() *config.Config {
	return b.cfg
}

// UpdateUser saves the user's crop, district and locale and pushes the
// new context into the running session.
func (b *SettingsBridge) UpdateUser(crop, district, locale string) error {
	if crop != "" {
		b.cfg.User.Crop = crop
	}
	if district != "" {
		b.cfg.User.District = district
	}
	if locale != "" {
		b.cfg.User.Locale = locale
	}

	if err := config.Save(b.cfg); err != nil {
		b.logger.Error().Err(err).Msg("failed to save settings")
		return err
	}

	b.controller.UpdateContext(intent.Context{Crop: crop, District: district})

	if b.ctx != nil {
		runtime.EventsEmit(b.ctx, "settings:changed", b.cfg.User)
	}
	b.logger.Info().Str("crop", b.cfg.User.Crop).Str("district", b.cfg.User.District).Msg("user settings updated")
	return nil
}

// SetWakeOnStart persists whether the wake loop starts with the app.
func (b *SettingsBridge) SetWakeOnStart(enabled bool) error {
	b.cfg.Wake.EnabledOnStart = enabled
	return config.Save(b.cfg)
}

// GetConfigPath returns the config file location for display.
func (b *SettingsBridge) GetConfigPath() string {
	path, err := config.ConfigFilePath()
	if err != nil {
		return ""
	}
	return path
}
