// AriaVoice - the voice of KisanMitra
package main

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"os"

	"github.com/spf13/afero"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/mac"

	"github.com/kisanmitra/ariavoice/internal/actions"
	"github.com/kisanmitra/ariavoice/internal/advisory"
	"github.com/kisanmitra/ariavoice/internal/asr"
	"github.com/kisanmitra/ariavoice/internal/audio"
	"github.com/kisanmitra/ariavoice/internal/bridge"
	"github.com/kisanmitra/ariavoice/internal/bus"
	"github.com/kisanmitra/ariavoice/internal/config"
	"github.com/kisanmitra/ariavoice/internal/intent"
	"github.com/kisanmitra/ariavoice/internal/logging"
	"github.com/kisanmitra/ariavoice/internal/nlu"
	"github.com/kisanmitra/ariavoice/internal/session"
	"github.com/kisanmitra/ariavoice/internal/tts"
	"github.com/kisanmitra/ariavoice/internal/wakeword"
)

//go:embed all:frontend/dist
var assets embed.FS

// Global logger instance
var syslog *logging.Logger

// getAssets returns the frontend assets with the correct path
func getAssets() fs.FS {
	fsys, err := fs.Sub(assets, "frontend/dist")
	if err != nil {
		syslog.Error("assets", "Failed to get assets", err, nil)
		panic(err)
	}
	return fsys
}

// newASRProvider selects the transcription transport from config.
func newASRProvider(cfg *config.Config) asr.Provider {
	zlogger := syslog.Zerolog()
	if cfg.ASR.Provider == "streaming" {
		return asr.NewStreamingProvider(zlogger, &asr.StreamingConfig{
			Endpoint:   cfg.ASR.Endpoint,
			APIKey:     cfg.ASR.APIKey,
			Language:   cfg.ASR.Language,
			SampleRate: cfg.Audio.SampleRate,
			Timeout:    cfg.ASR.Timeout,
		})
	}
	return asr.NewHTTPProvider(zlogger, &asr.HTTPConfig{
		Endpoint: cfg.ASR.Endpoint,
		APIKey:   cfg.ASR.APIKey,
		Language: cfg.ASR.Language,
		Timeout:  cfg.ASR.Timeout,
	})
}

func main() {
	// Initialize structured logger FIRST
	var err error
	syslog, err = logging.New(nil)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer syslog.Close()

	syslog.Info("main", "AriaVoice starting...", nil)

	zlogger := syslog.Zerolog()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		syslog.Warn("config", "Failed to load config, using defaults", map[string]interface{}{
			"error": err.Error(),
		})
		cfg = config.DefaultConfig()
	}
	syslog.Info("config", "Configuration loaded", map[string]interface{}{
		"crop":     cfg.User.Crop,
		"district": cfg.User.District,
		"locale":   cfg.User.Locale,
	})

	// Create event bus
	eventBus := bus.NewEventBus()

	// Audio capture backed by temp files on the OS filesystem
	audioService := audio.NewService(afero.NewOsFs(), &audio.Config{
		SampleRate: cfg.Audio.SampleRate,
		Channels:   cfg.Audio.Channels,
		MimeType:   cfg.Audio.MimeType,
		TempDir:    cfg.Audio.TempDir,
	}, zlogger)

	// Remote services
	asrProvider := newASRProvider(cfg)
	nluClient := nlu.NewClient(zlogger, &nlu.Config{
		Endpoint: cfg.NLU.Endpoint,
		APIKey:   cfg.NLU.APIKey,
		Timeout:  cfg.NLU.Timeout,
	})
	advisoryClient := advisory.NewClient(zlogger, &advisory.Config{
		BaseURL: cfg.Advisory.BaseURL,
		Timeout: cfg.Advisory.Timeout,
	})
	ttsProvider := tts.NewHTTPProvider(zlogger, &tts.HTTPConfig{
		Endpoint: cfg.TTS.Endpoint,
		APIKey:   cfg.TTS.APIKey,
		Timeout:  cfg.TTS.Timeout,
	})

	// Playback goes through the webview; the sink blocks until the
	// frontend reports the utterance done.
	sink := bridge.NewWebviewSink(eventBus)
	speaker := tts.NewSpeaker(ttsProvider, sink, cfg.TTS.VoiceID, zlogger)

	// Intent resolution and execution
	resolver := intent.NewResolver(nluClient, cfg.User.Locale, zlogger)
	navigator := bridge.NewBusNavigator(eventBus)
	executor := actions.NewExecutor(navigator, advisoryClient, cfg.User.Locale, zlogger)

	// Session controller
	sessionCfg := &session.Config{
		Locale:             cfg.User.Locale,
		MaxCommandDuration: cfg.Session.MaxCommandDuration,
		AutoDismissDelay:   cfg.Session.AutoDismissDelay,
		WakeRestartDelay:   cfg.Session.WakeRestartDelay,
		WakeChunkDuration:  cfg.Wake.ChunkDuration,
		WakeRetryBackoff:   cfg.Wake.RetryBackoff,
		WakeMaxRetries:     cfg.Wake.MaxRetries,
	}
	controller := session.NewController(sessionCfg, audioService, asrProvider, resolver, executor, speaker, wakeword.NewDetector(), eventBus, zlogger)
	controller.UpdateContext(intent.Context{Crop: cfg.User.Crop, District: cfg.User.District})

	// Watch the config file so edits to crop/district reach the running
	// session without a restart.
	watcher, err := config.NewWatcher(zlogger, func(uc config.UserConfig) {
		controller.UpdateContext(intent.Context{Crop: uc.Crop, District: uc.District})
	})
	if err != nil {
		syslog.Warn("config", "Config watcher unavailable", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Create bridges
	voiceBridge := bridge.NewVoiceBridge(controller, audioService, sink, eventBus, zlogger)
	settingsBridge := bridge.NewSettingsBridge(cfg, controller, zlogger)
	logBridge := bridge.NewLogBridge(syslog)

	app := &App{
		cfg:            cfg,
		syslog:         syslog,
		eventBus:       eventBus,
		controller:     controller,
		watcher:        watcher,
		voiceBridge:    voiceBridge,
		settingsBridge: settingsBridge,
		logBridge:      logBridge,
	}

	appOptions := &options.App{
		Title:     cfg.Window.Title,
		Width:     cfg.Window.Width,
		Height:    cfg.Window.Height,
		MinWidth:  300,
		MinHeight: 480,
		AssetServer: &assetserver.Options{
			Assets: getAssets(),
		},
		BackgroundColour: &options.RGBA{R: 18, G: 34, B: 24, A: 255},
		AlwaysOnTop:      cfg.Window.AlwaysOnTop,
		OnStartup:        app.startup,
		OnShutdown:       app.shutdown,
		Bind: []interface{}{
			app,
			voiceBridge,
			settingsBridge,
			logBridge,
		},
		Mac: &mac.Options{
			TitleBar: &mac.TitleBar{
				TitlebarAppearsTransparent: true,
				FullSizeContent:            true,
			},
			WebviewIsTransparent: true,
			About: &mac.AboutInfo{
				Title:   "AriaVoice",
				Message: "The voice of KisanMitra\nVersion 1.0.0",
			},
			// Microphone access happens inside the webview
			Preferences: &mac.Preferences{
				TabFocusesLinks:        mac.Enabled,
				TextInteractionEnabled: mac.Enabled,
				FullscreenEnabled:      mac.Enabled,
			},
		},
	}

	syslog.Info("wails", "Starting Wails application...", nil)
	if err := wails.Run(appOptions); err != nil {
		syslog.Error("wails", "Wails.Run failed", err, nil)
		os.Exit(1)
	}

	syslog.Info("main", "Application exited normally", nil)
}

// App struct holds the main application state
type App struct {
	ctx            context.Context
	cfg            *config.Config
	syslog         *logging.Logger
	eventBus       *bus.EventBus
	controller     *session.Controller
	watcher        *config.Watcher
	voiceBridge    *bridge.VoiceBridge
	settingsBridge *bridge.SettingsBridge
	logBridge      *bridge.LogBridge
}

// startup is called when the app starts
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	a.voiceBridge.Bind(ctx)
	a.settingsBridge.Bind(ctx)
	a.logBridge.Bind(ctx)

	a.controller.Start(a.cfg.Wake.EnabledOnStart)

	a.syslog.Info("lifecycle", "App.startup() complete", nil)
}

// shutdown is called when the app is closing
func (a *App) shutdown(ctx context.Context) {
	a.syslog.Info("lifecycle", "App.shutdown() called", nil)
	if a.watcher != nil {
		a.watcher.Close()
	}
	a.controller.Close()
	a.syslog.Info("lifecycle", "AriaVoice shutdown complete", nil)
}

// GetVersion returns the application version
func (a *App) GetVersion() string {
	return "1.0.0"
}

// GetConfig returns the current configuration
func (a *App) GetConfig() *config.Config {
	return a.cfg
}

// Greet returns a greeting message (for testing)
func (a *App) Greet(name string) string {
	return fmt.Sprintf("Namaste %s, I am Aria!", name)
}
