// handlers.go: pluggable data format handlers and their registry
//
// Copyright (c) 2025 leteee
// SPDX-License-Identifier: MIT

package replay

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Handler is a pluggable codec behind a data source: it loads a value from
// a path and saves a value to a path. Handler args come from the IO
// declaration and the case mapping, merged by the discovery pass.
type Handler interface {
	// Load reads and decodes the value at path.
	Load(path string, args map[string]any) (any, error)

	// Save encodes and writes value to path. Parent directories already
	// exist when the hub calls Save.
	Save(value any, path string, args map[string]any) error

	// Directory reports whether the handler addresses a directory rather
	// than a file. Directory handlers skip the must-exist check and create
	// their target on demand.
	Directory() bool
}

// HandlerRegistry is the open set of named handlers with their file
// extensions. Lookup by explicit name takes precedence over lookup by
// extension; an unmatched lookup is a configuration error.
type HandlerRegistry struct {
	mu     sync.RWMutex
	byName map[string]Handler
	byExt  map[string]string
}

// NewHandlerRegistry creates a registry pre-populated with the built-in
// handlers: csv, json, yaml, text, directory and sqlite.
func NewHandlerRegistry() *HandlerRegistry {
	r := &HandlerRegistry{
		byName: make(map[string]Handler),
		byExt:  make(map[string]string),
	}
	r.Register("csv", []string{".csv"}, &csvHandler{})
	r.Register("json", []string{".json"}, &jsonHandler{})
	r.Register("yaml", []string{".yaml", ".yml"}, &yamlHandler{})
	r.Register("text", []string{".txt", ".log"}, &textHandler{})
	r.Register("directory", nil, &directoryHandler{})
	r.Register("sqlite", []string{".db", ".sqlite"}, &sqliteHandler{})
	return r
}

// Register adds or replaces a handler under name, binding the given file
// extensions to it. Re-registering a name or extension overwrites the
// previous binding (last writer wins).
func (r *HandlerRegistry) Register(name string, extensions []string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[name] = h
	for _, ext := range extensions {
		r.byExt[strings.ToLower(ext)] = name
	}
}

// Lookup resolves a handler: by explicit name when given, otherwise by the
// path's extension. Returns the handler and the name it resolved to.
func (r *HandlerRegistry) Lookup(name, path string) (Handler, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name != "" {
		if h, ok := r.byName[name]; ok {
			return h, name, nil
		}
		return nil, "", NewUnknownHandlerError(name)
	}
	ext := strings.ToLower(filepath.Ext(path))
	if mapped, ok := r.byExt[ext]; ok {
		return r.byName[mapped], mapped, nil
	}
	if ext == "" {
		return nil, "", NewUnknownHandlerError(path)
	}
	return nil, "", NewUnknownHandlerError(ext)
}

// Names returns the sorted names of all registered handlers.
func (r *HandlerRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// csvHandler reads and writes header-row CSV files as []map[string]string.
type csvHandler struct{}

func (h *csvHandler) Directory() bool { return false }

func (h *csvHandler) Load(path string, args map[string]any) (any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []map[string]string{}, nil
	}
	header := rows[0]
	records := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		record := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(row) {
				record[col] = row[i]
			}
		}
		records = append(records, record)
	}
	return records, nil
}

func (h *csvHandler) Save(value any, path string, args map[string]any) error {
	records, err := toStringRecords(value)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	header := recordColumns(records)
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, record := range records {
		row := make([]string, len(header))
		for i, col := range header {
			row[i] = record[col]
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// toStringRecords normalizes the record shapes plugins return into the
// CSV handler's canonical []map[string]string.
func toStringRecords(value any) ([]map[string]string, error) {
	switch v := value.(type) {
	case []map[string]string:
		return v, nil
	case []map[string]any:
		out := make([]map[string]string, len(v))
		for i, record := range v {
			out[i] = make(map[string]string, len(record))
			for k, val := range record {
				out[i][k] = fmt.Sprint(val)
			}
		}
		return out, nil
	case []any:
		out := make([]map[string]string, 0, len(v))
		for _, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("csv handler: unsupported record type %T", item)
			}
			record := make(map[string]string, len(m))
			for k, val := range m {
				record[k] = fmt.Sprint(val)
			}
			out = append(out, record)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("csv handler: unsupported value type %T", value)
	}
}

// recordColumns returns the sorted union of all record keys so the column
// order is stable across runs.
func recordColumns(records []map[string]string) []string {
	seen := map[string]bool{}
	for _, record := range records {
		for k := range record {
			seen[k] = true
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// jsonHandler reads and writes arbitrary JSON documents.
type jsonHandler struct{}

func (h *jsonHandler) Directory() bool { return false }

func (h *jsonHandler) Load(path string, args map[string]any) (any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, err
	}
	return value, nil
}

func (h *jsonHandler) Save(value any, path string, args map[string]any) error {
	raw, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(raw, '\n'), 0o644)
}

// yamlHandler reads and writes arbitrary YAML documents.
type yamlHandler struct{}

func (h *yamlHandler) Directory() bool { return false }

func (h *yamlHandler) Load(path string, args map[string]any) (any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var value any
	if err := yaml.Unmarshal(raw, &value); err != nil {
		return nil, err
	}
	return value, nil
}

func (h *yamlHandler) Save(value any, path string, args map[string]any) error {
	raw, err := yaml.Marshal(value)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

// textHandler reads and writes plain text files as strings.
type textHandler struct{}

func (h *textHandler) Directory() bool { return false }

func (h *textHandler) Load(path string, args map[string]any) (any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (h *textHandler) Save(value any, path string, args map[string]any) error {
	return os.WriteFile(path, []byte(fmt.Sprint(value)), 0o644)
}

// directoryHandler addresses a directory sink: renderers and other
// frame-producing plugins write files into it themselves. Load ensures the
// directory exists and returns its path; Save does the same, ignoring the
// value (the plugin already wrote the contents).
type directoryHandler struct{}

func (h *directoryHandler) Directory() bool { return true }

func (h *directoryHandler) Load(path string, args map[string]any) (any, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, err
	}
	return path, nil
}

func (h *directoryHandler) Save(value any, path string, args map[string]any) error {
	return os.MkdirAll(path, 0o755)
}
