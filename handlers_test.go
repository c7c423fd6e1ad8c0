// handlers_test.go: tests for format handlers and the handler registry
//
// Copyright (c) 2025 leteee
// SPDX-License-Identifier: MIT

package replay

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerRegistry_Lookup(t *testing.T) {
	registry := NewHandlerRegistry()

	t.Run("ExplicitNameWinsOverExtension", func(t *testing.T) {
		_, name, err := registry.Lookup("json", "data.csv")
		require.NoError(t, err)
		assert.Equal(t, "json", name)
	})

	t.Run("ExtensionFallback", func(t *testing.T) {
		tests := []struct {
			path string
			want string
		}{
			{"data.csv", "csv"},
			{"data.json", "json"},
			{"data.yaml", "yaml"},
			{"data.YML", "yaml"},
			{"notes.txt", "text"},
			{"run.log", "text"},
			{"state.db", "sqlite"},
		}
		for _, tt := range tests {
			_, name, err := registry.Lookup("", tt.path)
			require.NoError(t, err, tt.path)
			assert.Equal(t, tt.want, name, tt.path)
		}
	})

	t.Run("UnknownNameAndExtensionError", func(t *testing.T) {
		_, _, err := registry.Lookup("parquet", "data.parquet")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Unknown data handler")

		_, _, err = registry.Lookup("", "data.parquet")
		require.Error(t, err)

		_, _, err = registry.Lookup("", "no-extension")
		require.Error(t, err)
	})

	t.Run("ReRegisterOverwrites", func(t *testing.T) {
		registry := NewHandlerRegistry()
		registry.Register("csv", []string{".csv"}, &textHandler{})
		h, _, err := registry.Lookup("csv", "")
		require.NoError(t, err)
		assert.IsType(t, &textHandler{}, h)
	})
}

func TestCSVHandler_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	handler := &csvHandler{}

	records := []map[string]string{
		{"t": "0.0", "x": "1.5", "y": "2.0"},
		{"t": "0.1", "x": "1.6", "y": "2.1"},
	}
	require.NoError(t, handler.Save(records, path, nil))

	loaded, err := handler.Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, records, loaded)
}

func TestCSVHandler_AcceptsAnyValuedRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	handler := &csvHandler{}

	require.NoError(t, handler.Save([]map[string]any{{"n": 1, "ok": true}}, path, nil))

	loaded, err := handler.Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, []map[string]string{{"n": "1", "ok": "true"}}, loaded)
}

func TestCSVHandler_RejectsUnsupportedShapes(t *testing.T) {
	err := (&csvHandler{}).Save("not records", filepath.Join(t.TempDir(), "x.csv"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported value type")
}

func TestCSVHandler_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	loaded, err := (&csvHandler{}).Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, []map[string]string{}, loaded)
}

func TestJSONHandler_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	handler := &jsonHandler{}

	value := map[string]any{"name": "demo", "count": float64(3)}
	require.NoError(t, handler.Save(value, path, nil))

	loaded, err := handler.Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, value, loaded)
}

func TestYAMLHandler_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.yaml")
	handler := &yamlHandler{}

	value := map[string]any{"name": "demo", "nested": map[string]any{"k": "v"}}
	require.NoError(t, handler.Save(value, path, nil))

	loaded, err := handler.Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, value, loaded)
}

func TestTextHandler_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.txt")
	handler := &textHandler{}

	require.NoError(t, handler.Save("summary line\n", path, nil))

	loaded, err := handler.Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "summary line\n", loaded)
}

func TestDirectoryHandler(t *testing.T) {
	handler := &directoryHandler{}
	assert.True(t, handler.Directory())

	path := filepath.Join(t.TempDir(), "output", "frames")
	value, err := handler.Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, path, value)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	require.NoError(t, handler.Save(nil, path, nil))
}
