package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher observes the config file and re-reads the user section when it
// changes, so crop/district edits reach the running session without a
// restart. Editors tend to fire several events per save, so reloads are
// debounced.
type Watcher struct {
	logger   zerolog.Logger
	onChange func(UserConfig)

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	pending *time.Timer
	closed  bool
}

const reloadDebounce = 300 * time.Millisecond

// NewWatcher starts watching the config file. onChange is called with the
// freshly loaded user section after each change.
func NewWatcher(logger zerolog.Logger, onChange func(UserConfig)) (*Watcher, error) {
	path, err := ConfigFilePath()
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory, not the file: many editors replace the file on
	// save, which drops a watch registered on the file itself.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		logger:   logger.With().Str("component", "config-watch").Logger(),
		onChange: onChange,
		fsw:      fsw,
	}

	go w.run(filepath.Base(path))
	return w, nil
}

func (w *Watcher) run(fileName string) {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != fileName {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("config watch error")
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = time.AfterFunc(reloadDebounce, w.reload)
}

func (w *Watcher) reload() {
	cfg, err := Load()
	if err != nil {
		w.logger.Warn().Err(err).Msg("config reload failed")
		return
	}
	w.logger.Info().
		Str("crop", cfg.User.Crop).
		Str("district", cfg.User.District).
		Msg("config reloaded")
	if w.onChange != nil {
		w.onChange(cfg.User)
	}
}

// Close stops the watcher
func (w *Watcher) Close() error {
	w.mu.Lock()
	w.closed = true
	if w.pending != nil {
		w.pending.Stop()
	}
	w.mu.Unlock()
	return w.fsw.Close()
}
