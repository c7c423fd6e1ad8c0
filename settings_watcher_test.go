// settings_watcher_test.go: lifecycle tests for the settings hot-reload watcher
//
// Copyright (c) 2025 leteee
// SPDX-License-Identifier: MIT

package replay

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/agilira/argus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func watcherFixture(t *testing.T, body string) (*SettingsWatcher, *Runner, *ConsoleLogger, string) {
	t.Helper()
	projectRoot := t.TempDir()
	settingsPath := filepath.Join(projectRoot, "global.yaml")
	require.NoError(t, os.WriteFile(settingsPath, []byte(body), 0o644))

	logger := NewConsoleLogger(io.Discard, LevelInfo)
	runner := NewRunner(NewPluginRegistry(), NewHandlerRegistry(), NewNoOpLogger(), projectRoot)

	options := SettingsWatchOptions{
		PollInterval: 50 * time.Millisecond,
		CacheTTL:     25 * time.Millisecond,
		AuditConfig:  argus.AuditConfig{Enabled: false},
	}
	watcher, err := NewSettingsWatcher(runner, logger, settingsPath, options)
	require.NoError(t, err)
	return watcher, runner, logger, settingsPath
}

func TestSettingsWatcher_StartAppliesSettings(t *testing.T) {
	watcher, runner, logger, _ := watcherFixture(t, "log_level: debug\ncases_root: scenarios\n")

	require.NoError(t, watcher.Start())
	defer func() { _ = watcher.Stop() }()

	assert.True(t, watcher.IsRunning())
	assert.Equal(t, LevelDebug, logger.Level())
	assert.Equal(t, "scenarios", runner.Settings().CasesRoot)

	current := watcher.CurrentSettings()
	require.NotNil(t, current)
	assert.Equal(t, "debug", current.LogLevel)
}

func TestSettingsWatcher_DoubleStart(t *testing.T) {
	watcher, _, _, _ := watcherFixture(t, "log_level: info\n")

	require.NoError(t, watcher.Start())
	defer func() { _ = watcher.Stop() }()

	assert.Error(t, watcher.Start())
}

func TestSettingsWatcher_ChangeReloads(t *testing.T) {
	watcher, _, logger, settingsPath := watcherFixture(t, "log_level: info\n")

	require.NoError(t, watcher.Start())
	defer func() { _ = watcher.Stop() }()
	assert.Equal(t, LevelInfo, logger.Level())

	require.NoError(t, os.WriteFile(settingsPath, []byte("log_level: error\n"), 0o644))
	watcher.handleChange(argus.ChangeEvent{Path: settingsPath, IsModify: true})

	assert.Equal(t, LevelError, logger.Level())
	current := watcher.CurrentSettings()
	require.NotNil(t, current)
	assert.Equal(t, "error", current.LogLevel)
}

func TestSettingsWatcher_DeleteKeepsCurrent(t *testing.T) {
	watcher, _, logger, settingsPath := watcherFixture(t, "log_level: warn\n")

	require.NoError(t, watcher.Start())
	defer func() { _ = watcher.Stop() }()
	assert.Equal(t, LevelWarn, logger.Level())

	watcher.handleChange(argus.ChangeEvent{Path: settingsPath, IsDelete: true})

	assert.Equal(t, LevelWarn, logger.Level())
	current := watcher.CurrentSettings()
	require.NotNil(t, current)
	assert.Equal(t, "warn", current.LogLevel)
}

func TestSettingsWatcher_StopIsPermanent(t *testing.T) {
	watcher, _, _, _ := watcherFixture(t, "log_level: info\n")

	require.NoError(t, watcher.Start())
	require.NoError(t, watcher.Stop())

	assert.False(t, watcher.IsRunning())
	assert.Error(t, watcher.Stop())
	assert.Error(t, watcher.Start())
}
