// handler_sqlite_test.go: tests for the SQLite table handler
//
// Copyright (c) 2025 leteee
// SPDX-License-Identifier: MIT

package replay

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteHandler_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	handler := &sqliteHandler{}

	records := []map[string]string{
		{"t": "0.0", "x": "1.5"},
		{"t": "0.1", "x": "1.6"},
	}
	require.NoError(t, handler.Save(records, path, nil))

	loaded, err := handler.Load(path, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, records, loaded)
}

func TestSQLiteHandler_TableArg(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	handler := &sqliteHandler{}
	args := map[string]any{"table": "trajectory"}

	records := []map[string]string{{"id": "1", "label": `quoted "name"`}}
	require.NoError(t, handler.Save(records, path, args))

	loaded, err := handler.Load(path, args)
	require.NoError(t, err)
	assert.Equal(t, records, loaded)

	// The default table does not exist in this database.
	_, err = handler.Load(path, nil)
	require.Error(t, err)
}

func TestSQLiteHandler_SaveReplacesTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	handler := &sqliteHandler{}

	require.NoError(t, handler.Save([]map[string]string{{"a": "1"}, {"a": "2"}}, path, nil))
	require.NoError(t, handler.Save([]map[string]string{{"b": "9"}}, path, nil))

	loaded, err := handler.Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, []map[string]string{{"b": "9"}}, loaded)
}

func TestSQLiteHandler_EmptyRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	handler := &sqliteHandler{}

	require.NoError(t, handler.Save([]map[string]string{}, path, nil))
}
