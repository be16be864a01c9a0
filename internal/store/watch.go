package store

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"surflog-cli/internal/debounce"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// configSettle collapses the write+rename burst of SaveConfig into one reload.
const configSettle = 150 * time.Millisecond

// ConfigWatcher reloads config.json when it changes on disk.
type ConfigWatcher struct {
	w    *fsnotify.Watcher
	deb  *debounce.Debouncer[struct{}]
	log  *zap.Logger
	done chan struct{}
}

// WatchConfig calls onChange with the freshly loaded config after config.json is
// written, replaced or removed. Parse failures are logged and skipped; the
// previous config stays in effect.
func WatchConfig(ctx context.Context, log *zap.Logger, onChange func(*Config)) (*ConfigWatcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	path = filepath.Clean(path)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory: SaveConfig replaces the file, which drops a file watch.
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, err
	}

	cw := &ConfigWatcher{w: w, log: log, done: make(chan struct{})}
	cw.deb = debounce.New(configSettle, func(struct{}) {
		cfg, err := LoadConfig()
		if err != nil {
			log.Warn("reload config", zap.String("path", path), zap.Error(err))
			return
		}
		log.Info("config reloaded", zap.String("path", path))
		onChange(cfg)
	})
	go cw.run(ctx, path)
	return cw, nil
}

func (cw *ConfigWatcher) run(ctx context.Context, path string) {
	defer close(cw.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-cw.w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != path {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			cw.deb.Trigger(struct{}{})
		case err, ok := <-cw.w.Errors:
			if !ok {
				return
			}
			cw.log.Warn("config watcher", zap.Error(err))
		}
	}
}

// Close stops watching. Pending reloads are dropped.
func (cw *ConfigWatcher) Close() error {
	if cw == nil {
		return nil
	}
	err := cw.w.Close()
	<-cw.done
	cw.deb.Stop()
	return err
}
