// hub_test.go: tests for the lazy-loading, auto-persisting data hub
//
// Copyright (c) 2025 leteee
// SPDX-License-Identifier: MIT

package replay

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/agilira/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingHandler wraps the text handler and counts load invocations.
type countingHandler struct {
	textHandler
	loads int
}

func (h *countingHandler) Load(path string, args map[string]any) (any, error) {
	h.loads++
	return h.textHandler.Load(path, args)
}

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	return NewHub(t.TempDir(), NewHandlerRegistry(), NewNoOpLogger())
}

func TestHub_RegisterWithoutDescriptorStaysInMemory(t *testing.T) {
	hub := newTestHub(t)

	require.NoError(t, hub.Register("n", 42))

	value, err := hub.Get("n")
	require.NoError(t, err)
	assert.Equal(t, 42, value)

	entries, err := os.ReadDir(hub.CaseRoot())
	require.NoError(t, err)
	assert.Empty(t, entries, "no descriptor means no file is written")
}

func TestHub_RegisterWithDescriptorPersistsAndRoundTrips(t *testing.T) {
	caseRoot := t.TempDir()
	handlers := NewHandlerRegistry()
	hub := NewHub(caseRoot, handlers, NewNoOpLogger())

	descriptor := DataSource{Name: "n", Path: "intermediate/n.csv", Handler: "csv"}
	hub.Describe(descriptor)

	records := []map[string]string{{"t": "0", "x": "1"}, {"t": "1", "x": "2"}}
	require.NoError(t, hub.Register("n", records))

	written := filepath.Join(caseRoot, "intermediate", "n.csv")
	_, err := os.Stat(written)
	require.NoError(t, err, "registration must persist through the descriptor's handler")

	// A fresh hub instance loads the same value back from disk.
	fresh := NewHub(caseRoot, handlers, NewNoOpLogger())
	fresh.Describe(descriptor)
	value, err := fresh.Get("n")
	require.NoError(t, err)
	assert.Equal(t, records, value)
}

func TestHub_GetLoadsAtMostOnce(t *testing.T) {
	caseRoot := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(caseRoot, "note.txt"), []byte("hello"), 0o644))

	handlers := NewHandlerRegistry()
	counting := &countingHandler{}
	handlers.Register("counting", nil, counting)

	hub := NewHub(caseRoot, handlers, NewNoOpLogger())
	hub.Describe(DataSource{Name: "note", Path: "note.txt", Handler: "counting", MustExist: true})

	first, err := hub.Get("note")
	require.NoError(t, err)
	second, err := hub.Get("note")
	require.NoError(t, err)

	assert.Equal(t, "hello", first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, counting.loads)
}

func TestHub_GetErrors(t *testing.T) {
	t.Run("NotFound", func(t *testing.T) {
		hub := newTestHub(t)
		_, err := hub.Get("missing")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Data source not found")
	})

	t.Run("RequiredFileMissing", func(t *testing.T) {
		hub := newTestHub(t)
		hub.Describe(DataSource{Name: "n", Path: "raw_data/absent.csv", Handler: "csv", MustExist: true})
		_, err := hub.Get("n")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Required data file missing")
	})

	t.Run("OptionalDirectoryCreatedOnDemand", func(t *testing.T) {
		hub := newTestHub(t)
		hub.Describe(DataSource{Name: "frames", Path: "output/frames", Handler: "directory", MustExist: true})
		value, err := hub.Get("frames")
		require.NoError(t, err, "directory handlers skip the must-exist check")
		info, statErr := os.Stat(value.(string))
		require.NoError(t, statErr)
		assert.True(t, info.IsDir())
	})

	t.Run("UnknownHandler", func(t *testing.T) {
		hub := newTestHub(t)
		hub.Describe(DataSource{Name: "n", Path: "n.parquet", Handler: "parquet"})
		_, err := hub.Get("n")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Unknown data handler")
	})
}

func TestHub_DescribeLastWriterWins(t *testing.T) {
	hub := newTestHub(t)
	hub.Describe(DataSource{Name: "n", Path: "old.csv", Handler: "csv"})
	hub.Describe(DataSource{Name: "n", Path: "new.csv", Handler: "csv"})

	ds, ok := hub.Source("n")
	require.True(t, ok)
	assert.Equal(t, "new.csv", ds.Path)
}

func TestHub_SaveBypassesDescriptorTable(t *testing.T) {
	hub := newTestHub(t)

	require.NoError(t, hub.Save("note", "standalone", "output/note.txt", "text", nil))

	raw, err := os.ReadFile(filepath.Join(hub.CaseRoot(), "output", "note.txt"))
	require.NoError(t, err)
	assert.Equal(t, "standalone", string(raw))

	_, ok := hub.Source("note")
	assert.False(t, ok, "one-shot save must not register a descriptor")
}

func TestHub_SaveErrorCarriesNameAndPath(t *testing.T) {
	hub := newTestHub(t)

	err := hub.Save("note", "standalone", "output/note.txt", "bogus", nil)
	require.Error(t, err)

	var rich *errors.Error
	require.ErrorAs(t, err, &rich)
	assert.Equal(t, errors.ErrorCode(ErrCodeDataSaveFailed), rich.ErrorCode())
	assert.Equal(t, "note", rich.Context["logical_name"])
	assert.Equal(t, filepath.Join(hub.CaseRoot(), "output", "note.txt"), rich.Context["path"])
	assert.Equal(t, "save", rich.Context["operation"])
}

func TestHub_ResolvePath(t *testing.T) {
	hub := NewHub("/case/root", NewHandlerRegistry(), NewNoOpLogger())

	assert.Equal(t, filepath.Join("/case/root", "intermediate/x.csv"), hub.ResolvePath("intermediate/x.csv"))
	assert.Equal(t, "/abs/x.csv", hub.ResolvePath("/abs/x.csv"))
	assert.Equal(t, "", hub.ResolvePath(""))
}

func TestHub_NamesIncludeCachedAndDescribed(t *testing.T) {
	hub := newTestHub(t)
	require.NoError(t, hub.Register("cached", 1))
	hub.Describe(DataSource{Name: "described", Path: "x.csv", Handler: "csv"})

	assert.Equal(t, []string{"cached", "described"}, hub.Names())
}
