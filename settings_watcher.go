// settings_watcher.go: hot reload of the global settings file
//
// Copyright (c) 2025 leteee
// SPDX-License-Identifier: MIT

package replay

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/agilira/argus"
)

// SettingsWatcher hot-reloads the global settings file while a run is in
// progress. Only operational settings are applied live: the log level is
// pushed to the console logger's level gate. Pipeline topology and the
// cases root are fixed per run and only picked up by the next run.
type SettingsWatcher struct {
	runner *Runner
	logger *ConsoleLogger

	watcher     *argus.Watcher
	auditLogger *argus.AuditLogger

	settingsPath    string
	currentSettings atomic.Pointer[GlobalSettings]

	enabled  atomic.Bool
	stopped  atomic.Bool
	stopOnce sync.Once
	mutex    sync.Mutex

	options SettingsWatchOptions
}

// SettingsWatchOptions configures the settings watcher behavior.
type SettingsWatchOptions struct {
	// Argus polling interval for file changes
	PollInterval time.Duration

	// Cache TTL for file stat operations
	CacheTTL time.Duration

	// Audit configuration for tracking settings changes
	AuditConfig argus.AuditConfig
}

// DefaultSettingsWatchOptions returns defaults tuned for a settings file
// that changes rarely: a relaxed poll interval and audit logging enabled.
func DefaultSettingsWatchOptions() SettingsWatchOptions {
	return SettingsWatchOptions{
		PollInterval: 10 * time.Second,
		CacheTTL:     5 * time.Second,
		AuditConfig: argus.AuditConfig{
			Enabled:       true,
			OutputFile:    "replay-settings-audit.jsonl",
			MinLevel:      argus.AuditInfo,
			BufferSize:    1000,
			FlushInterval: 10 * time.Second,
		},
	}
}

// NewSettingsWatcher creates a watcher applying settings changes to the
// runner and the console logger's level gate.
func NewSettingsWatcher(runner *Runner, logger *ConsoleLogger, settingsPath string, options SettingsWatchOptions) (*SettingsWatcher, error) {
	argusConfig := argus.Config{
		PollInterval:         options.PollInterval,
		CacheTTL:             options.CacheTTL,
		MaxWatchedFiles:      5,
		Audit:                options.AuditConfig,
		OptimizationStrategy: argus.OptimizationSingleEvent,
		ErrorHandler: func(err error, path string) {
			logger.Error("settings file watching error", "error", err, "file", path)
		},
	}

	var auditLogger *argus.AuditLogger
	if options.AuditConfig.Enabled {
		var err error
		auditLogger, err = argus.NewAuditLogger(options.AuditConfig)
		if err != nil {
			return nil, NewSettingsWatchError("failed to create audit logger", err)
		}
	}

	return &SettingsWatcher{
		runner:       runner,
		logger:       logger,
		watcher:      argus.New(argusConfig),
		auditLogger:  auditLogger,
		settingsPath: settingsPath,
		options:      options,
	}, nil
}

// Start loads the settings once, applies them, and begins watching the
// file for changes.
func (w *SettingsWatcher) Start() error {
	if w.stopped.Load() {
		return NewSettingsWatchError("settings watcher has been permanently stopped", nil)
	}

	w.mutex.Lock()
	defer w.mutex.Unlock()

	if !w.enabled.CompareAndSwap(false, true) {
		return NewSettingsWatchError("settings watcher is already running", nil)
	}

	settings := w.runner.LoadSettings(w.settingsPath)
	w.applySettings(settings)
	w.currentSettings.Store(&settings)
	w.auditEvent("settings_loaded", map[string]interface{}{
		"path":      w.settingsPath,
		"log_level": settings.LogLevel,
		"source":    "initial_load",
	})

	if err := w.watcher.Watch(w.settingsPath, w.handleChange); err != nil {
		w.enabled.Store(false)
		return NewSettingsWatchError("failed to watch settings file", err)
	}
	if err := w.watcher.Start(); err != nil {
		w.enabled.Store(false)
		return NewSettingsWatchError("failed to start settings watcher", err)
	}

	w.logger.Info("settings watcher started",
		"path", w.settingsPath,
		"poll_interval", w.options.PollInterval)
	return nil
}

// Stop permanently stops the watcher. It cannot be restarted.
func (w *SettingsWatcher) Stop() error {
	if w.stopped.Load() {
		return NewSettingsWatchError("settings watcher is already stopped", nil)
	}

	var stopErr error
	w.stopOnce.Do(func() {
		w.mutex.Lock()
		defer w.mutex.Unlock()

		if !w.enabled.CompareAndSwap(true, false) {
			stopErr = NewSettingsWatchError("settings watcher is not running", nil)
			return
		}
		w.stopped.Store(true)

		if err := w.watcher.Stop(); err != nil {
			stopErr = NewSettingsWatchError("failed to stop settings watcher", err)
			return
		}
		if w.auditLogger != nil {
			if err := w.auditLogger.Close(); err != nil {
				w.logger.Warn("failed to close settings audit logger", "error", err)
			}
		}
		w.logger.Info("settings watcher stopped")
	})
	return stopErr
}

// IsRunning reports whether the watcher is active.
func (w *SettingsWatcher) IsRunning() bool {
	return w.enabled.Load() && !w.stopped.Load()
}

// CurrentSettings returns the last applied settings (thread-safe).
func (w *SettingsWatcher) CurrentSettings() *GlobalSettings {
	return w.currentSettings.Load()
}

// handleChange reloads and applies the settings when Argus reports a change.
func (w *SettingsWatcher) handleChange(event argus.ChangeEvent) {
	if event.IsDelete {
		w.logger.Warn("settings file deleted, keeping current settings", "path", event.Path)
		w.auditEvent("settings_file_deleted", map[string]interface{}{"path": event.Path})
		return
	}

	settings := w.runner.LoadSettings(event.Path)
	old := w.currentSettings.Swap(&settings)
	w.applySettings(settings)

	w.logger.Info("settings reloaded", "path", event.Path, "log_level", settings.LogLevel)
	w.auditEvent("settings_changed", map[string]interface{}{
		"path":          event.Path,
		"old_log_level": oldLogLevel(old),
		"new_log_level": settings.LogLevel,
	})
}

// applySettings pushes the hot-applicable subset of the settings live.
func (w *SettingsWatcher) applySettings(settings GlobalSettings) {
	if settings.LogLevel != "" {
		level := ParseLogLevel(settings.LogLevel)
		if w.logger.Level() != level {
			w.logger.SetLevel(level)
			w.logger.Info("log level applied", "level", level.String())
		}
	}
}

func oldLogLevel(settings *GlobalSettings) string {
	if settings == nil {
		return "unknown"
	}
	return settings.LogLevel
}

// auditEvent records a settings lifecycle event in the audit trail.
func (w *SettingsWatcher) auditEvent(eventType string, context map[string]interface{}) {
	if w.auditLogger != nil {
		w.auditLogger.LogSecurityEvent(eventType, "Global settings change", context)
	}
}
