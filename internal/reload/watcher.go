// Package reload watches the configuration file and publishes valid changes.
package reload

import (
	"context"
	"fmt"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"hooknotify/pkg/config"
	"hooknotify/pkg/listener"

	"github.com/fsnotify/fsnotify"
)

// DefaultDelay is how long the watcher waits for writes to settle
const DefaultDelay = 250 * time.Millisecond

// Watcher reloads a YAML configuration file when it changes.
// Files that fail to parse or validate are logged and skipped.
type Watcher struct {
	path     string
	delay    time.Duration
	logger   listener.Logger
	onChange func(config.Config)

	mu   sync.Mutex
	last config.Config
}

// New creates a watcher for path. onChange receives each new, normalized
// configuration. It is never called concurrently.
func New(path string, logger listener.Logger, onChange func(config.Config)) *Watcher {
	if logger == nil {
		logger = listener.DiscardLogger()
	}
	return &Watcher{
		path:     path,
		delay:    DefaultDelay,
		logger:   logger,
		onChange: onChange,
	}
}

// SetDelay overrides the debounce delay
func (w *Watcher) SetDelay(delay time.Duration) {
	w.delay = delay
}

// Watch blocks until ctx is done. The parent directory is watched so
// editors that replace the file by rename are followed.
func (w *Watcher) Watch(ctx context.Context) error {
	if cfg, err := w.load(); err == nil {
		w.mu.Lock()
		w.last = cfg
		w.mu.Unlock()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w.logger.Debug("Watching configuration", "path", w.path)

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	schedule := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(w.delay, w.reload)
	}
	defer func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timerMu.Unlock()
	}()

	name := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				schedule()
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Configuration watch error", "path", w.path, "error", err)
		}
	}
}

func (w *Watcher) load() (config.Config, error) {
	cfg, err := config.LoadFile(w.path)
	if err != nil {
		return nil, err
	}
	return config.ValidateConfig(cfg)
}

// reload runs on the debounce timer
func (w *Watcher) reload() {
	cfg, err := w.load()
	if err != nil {
		w.logger.Warn("Configuration rejected", "path", w.path, "error", err)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if reflect.DeepEqual(cfg, w.last) {
		w.logger.Debug("Configuration unchanged", "path", w.path)
		return
	}
	w.last = cfg

	w.logger.Info("Configuration reloaded", "path", w.path)
	w.onChange(cfg)
}
