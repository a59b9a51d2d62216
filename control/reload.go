// control/reload.go
// Author: momentics <momentics@gmail.com>
//
// Config file watcher dispatching hot-reload hooks.

package control

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher keeps the current Config of one file and notifies hooks when a
// changed version has been loaded.
type Watcher struct {
	path    string
	log     zerolog.Logger
	current atomic.Pointer[Config]

	mu    sync.Mutex
	hooks []func(*Config)
}

// NewWatcher loads path once; the file must be valid at startup.
func NewWatcher(path string, log zerolog.Logger) (*Watcher, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	w := &Watcher{path: path, log: log}
	w.current.Store(cfg)
	return w, nil
}

// Current returns the last successfully loaded config.
func (w *Watcher) Current() *Config {
	return w.current.Load()
}

// OnReload registers a hook called with every newly loaded config.
func (w *Watcher) OnReload(fn func(*Config)) {
	w.mu.Lock()
	w.hooks = append(w.hooks, fn)
	w.mu.Unlock()
}

// Reload re-reads the file. An invalid file keeps the previous config and is
// reported as an error; an unchanged one triggers no hooks.
func (w *Watcher) Reload() error {
	cfg, err := LoadConfig(w.path)
	if err != nil {
		return err
	}
	if prev := w.current.Load(); prev != nil && *prev == *cfg {
		return nil
	}
	w.current.Store(cfg)
	w.log.Info().Str("path", w.path).Dur("poll_timeout", cfg.PollTimeout.Duration).Msg("config reloaded")

	w.mu.Lock()
	hooks := slices.Clone(w.hooks)
	w.mu.Unlock()
	for _, fn := range hooks {
		fn(cfg)
	}
	return nil
}

// Watch reloads the config whenever its file changes, until ctx is done.
// The directory is watched rather than the file so editors that replace the
// file on save are handled.
func (w *Watcher) Watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer fw.Close()

	dir, file := filepath.Split(w.path)
	if dir == "" {
		dir = "."
	}
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("fsnotify add %s: %w", dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != file {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if err := w.Reload(); err != nil {
				w.log.Warn().Err(err).Str("path", w.path).Msg("config reload failed; keeping previous config")
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn().Err(err).Msg("config watcher error")
		}
	}
}
