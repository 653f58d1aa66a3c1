package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reloads the config file on change and hands validated configs
// to the callback. Invalid configs are logged and discarded; the running
// config is never replaced by a broken one.
type Watcher struct {
	path     string
	cooldown time.Duration
	log      *zap.Logger

	mu         sync.Mutex
	lastReload time.Time
}

// NewWatcher creates a watcher for path. A cooldown of zero defaults to
// one second to absorb editor write bursts.
func NewWatcher(path string, cooldown time.Duration, log *zap.Logger) *Watcher {
	if cooldown <= 0 {
		cooldown = time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{path: path, cooldown: cooldown, log: log}
}

// Run watches until the context is canceled. onUpdate is called with each
// successfully reloaded config.
func (w *Watcher) Run(ctx context.Context, onUpdate func(AppConfig)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.path); err != nil {
		return fmt.Errorf("watch %s: %w", w.path, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.reload(onUpdate)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("config watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload(onUpdate func(AppConfig)) {
	w.mu.Lock()
	if time.Since(w.lastReload) < w.cooldown {
		w.mu.Unlock()
		return
	}
	w.lastReload = time.Now()
	w.mu.Unlock()

	cfg, err := LoadWithEnvOverrides(w.path)
	if err != nil {
		w.log.Warn("config reload rejected", zap.Error(err))
		return
	}
	w.log.Info("config reloaded", zap.String("path", w.path))
	if onUpdate != nil {
		onUpdate(cfg)
	}
}
