package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/marco/recofilms/internal/debounce"
	"github.com/marco/recofilms/internal/logging"
)

// DefaultReloadDelay is how long the file must stay quiet before a reload.
const DefaultReloadDelay = 250 * time.Millisecond

// Watcher reloads the configuration file when it changes on disk.
type Watcher struct {
	path     string
	name     string
	onChange func(*Config)
	watcher  *fsnotify.Watcher
	reload   *debounce.Query
	stopChan chan struct{}
	doneChan chan struct{}
}

// Watch starts watching path. onChange receives every configuration that
// loads and validates; a broken edit is logged and the previous
// configuration stays in effect.
func Watch(path string, delay time.Duration, onChange func(*Config)) (*Watcher, error) {
	if delay <= 0 {
		delay = DefaultReloadDelay
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	// Editors often replace the file instead of writing it, so watch the
	// directory and filter on the name.
	if err := fsWatcher.Add(filepath.Dir(path)); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	w := &Watcher{
		path:     path,
		name:     filepath.Base(path),
		onChange: onChange,
		watcher:  fsWatcher,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
	w.reload = debounce.New(debounce.Config{
		Name:   "config",
		Delay:  delay,
		OnFire: func(string) { w.load() },
	})

	go w.processEvents()

	logging.Info().Str("path", path).Msg("Watching config file")
	return w, nil
}

func (w *Watcher) processEvents() {
	defer close(w.doneChan)

	for {
		select {
		case <-w.stopChan:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != w.name {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				logging.Debug().Str("event", event.Op.String()).Msg("Config file event")
				w.reload.Input(event.Op.String())
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Error().Err(err).Msg("Config watcher error")
		}
	}
}

func (w *Watcher) load() {
	cfg, err := Load(w.path)
	if err != nil {
		logging.Error().Err(err).Str("path", w.path).Msg("Config reload failed, keeping previous settings")
		return
	}
	logging.Info().Str("path", w.path).Msg("Config reloaded")
	w.onChange(cfg)
}

// Stop stops watching and drops a pending reload.
func (w *Watcher) Stop() error {
	close(w.stopChan)
	<-w.doneChan
	w.reload.Cancel()
	return w.watcher.Close()
}
