package server

import (
	"path/filepath"
	"time"

	"saavnrelay/internal/config"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// startConfigWatcher watches the config file's directory so that editors
// which replace the file on save are still noticed.
func (ms *RelayServer) startConfigWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	ms.watcher = watcher

	go ms.watchConfig(watcher)

	if err := watcher.Add(filepath.Dir(ms.configPath)); err != nil {
		return err
	}

	ms.logger.WithField("config_path", ms.configPath).Info("Config watcher started")
	return nil
}

// watchConfig selects on watcher channels and dispatches events.
func (ms *RelayServer) watchConfig(watcher *fsnotify.Watcher) {
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			ms.handleConfigEvent(event)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			ms.logger.WithError(err).Error("Config watcher error")
		}
	}
}

// handleConfigEvent reloads the config when the watched file is written.
func (ms *RelayServer) handleConfigEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != filepath.Clean(ms.configPath) {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}

	go func() {
		time.Sleep(200 * time.Millisecond) // let the writer finish
		ms.reloadConfig()
	}()
}

// reloadConfig applies settings that are safe to change at runtime. Only the
// log level is hot-reloaded; everything else needs a restart.
func (ms *RelayServer) reloadConfig() {
	cfg, err := config.LoadConfig(ms.configPath)
	if err != nil {
		ms.logger.WithError(err).Warn("Ignoring invalid config change")
		return
	}

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		ms.logger.WithError(err).Warn("Ignoring invalid log level")
		return
	}

	if level != ms.logger.GetLevel() {
		ms.logger.SetLevel(level)
		ms.logger.WithField("level", level.String()).Info("Log level reloaded")
	}
}

// stopConfigWatcher closes the watcher (idempotent).
func (ms *RelayServer) stopConfigWatcher() {
	if ms.watcher != nil {
		ms.watcher.Close()
		ms.watcher = nil
	}
}
