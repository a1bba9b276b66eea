package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/glint-nvim/glint/internal/timing"
)

const reloadQuiet = 200 * time.Millisecond

// Watch reloads the configuration when the config file changes on disk and
// invokes onChange with the refreshed config. It returns without error when
// no config file is in use. Watching stops when ctx is cancelled.
func Watch(ctx context.Context, onChange func(*Config)) error {
	if cfg == nil {
		return fmt.Errorf("config not loaded")
	}
	file := viper.ConfigFileUsed()
	if file == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating config watcher: %w", err)
	}
	// Watch the directory: editors typically replace the file on save, which
	// would orphan a watch on the file itself.
	if err := watcher.Add(filepath.Dir(file)); err != nil {
		watcher.Close()
		return fmt.Errorf("watching config dir: %w", err)
	}

	// Saves often arrive as several events in quick succession.
	reload, cancelReload := timing.Debounce(func(struct{}) {
		if err := reloadConfig(); err != nil {
			slog.Warn("config reload failed", "error", err)
			return
		}
		slog.Info("config reloaded", "file", file)
		if onChange != nil {
			onChange(cfg)
		}
	}, reloadQuiet)

	go func() {
		defer watcher.Close()
		defer cancelReload()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != file {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					reload(struct{}{})
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("config watcher error", "error", err)
			}
		}
	}()

	return nil
}

func reloadConfig() error {
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("re-reading config: %w", err)
	}
	mergeLocalConfig(cfg.WorkingDir)
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unmarshal reloaded config: %w", err)
	}
	return Validate()
}
