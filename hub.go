// hub.go: lazy-loading, auto-persisting data registry
//
// Copyright (c) 2025 leteee
// SPDX-License-Identifier: MIT

package replay

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// DataSource describes the storage behind a logical data name: where it
// lives, which handler decodes it, and whether the file must already exist
// when first read.
type DataSource struct {
	// Name is the unique logical key.
	Name string

	// Path is absolute or relative to the case root.
	Path string

	// Handler is an explicit handler name. Empty means the handler is
	// inferred from the path's extension.
	Handler string

	// MustExist requires the backing file to be present on first load.
	MustExist bool

	// ProducedBy optionally tags the plugin expected to produce the value.
	ProducedBy string

	// HandlerArgs are passed to the handler on load and save.
	HandlerArgs map[string]any
}

// Hub is the engine's data registry. It keeps an in-memory value cache and
// a descriptor table: Get lazy-loads through the descriptor's handler at
// most once, Register caches a value and persists it immediately when a
// descriptor exists. Values registered without a descriptor stay purely
// in memory for the run's lifetime.
type Hub struct {
	caseRoot string
	handlers *HandlerRegistry
	logger   Logger

	mu      sync.RWMutex
	values  map[string]any
	sources map[string]DataSource
}

// NewHub creates a data hub resolving relative descriptor paths against
// caseRoot. A nil logger defaults to the console logger.
func NewHub(caseRoot string, handlers *HandlerRegistry, logger Logger) *Hub {
	if logger == nil {
		logger = DefaultLogger()
	}
	return &Hub{
		caseRoot: caseRoot,
		handlers: handlers,
		logger:   logger,
		values:   make(map[string]any),
		sources:  make(map[string]DataSource),
	}
}

// CaseRoot returns the directory relative paths resolve against.
func (h *Hub) CaseRoot() string { return h.caseRoot }

// Describe registers a data source descriptor. Re-describing the same
// logical name overwrites the previous descriptor (last writer wins).
func (h *Hub) Describe(ds DataSource) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.sources[ds.Name]; exists {
		h.logger.Debug("data source descriptor overwritten", "name", ds.Name, "path", ds.Path)
	}
	h.sources[ds.Name] = ds
}

// Source returns the descriptor registered under name, if any.
func (h *Hub) Source(name string) (DataSource, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ds, ok := h.sources[name]
	return ds, ok
}

// Names returns the sorted logical names known to the hub, cached or
// descriptor-registered.
func (h *Hub) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	seen := make(map[string]bool, len(h.values)+len(h.sources))
	for name := range h.values {
		seen[name] = true
	}
	for name := range h.sources {
		seen[name] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolvePath resolves a descriptor path against the case root.
func (h *Hub) ResolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(h.caseRoot, path)
}

// Get returns the value behind a logical name, loading it through the
// descriptor's handler on first access. Repeated calls return the cached
// value unchanged. A name with neither a cached value nor a descriptor is
// a not-found error.
func (h *Hub) Get(name string) (any, error) {
	h.mu.RLock()
	if value, ok := h.values[name]; ok {
		h.mu.RUnlock()
		return value, nil
	}
	ds, ok := h.sources[name]
	h.mu.RUnlock()
	if !ok {
		return nil, NewDataNotFoundError(name)
	}

	path := h.ResolvePath(ds.Path)
	handler, handlerName, err := h.handlers.Lookup(ds.Handler, path)
	if err != nil {
		return nil, err
	}
	if ds.MustExist && !handler.Directory() {
		if _, statErr := os.Stat(path); statErr != nil {
			return nil, NewDataFileMissingError(name, path)
		}
	}

	h.logger.Debug("loading data source", "name", name, "path", path, "handler", handlerName)
	value, err := handler.Load(path, ds.HandlerArgs)
	if err != nil {
		return nil, NewDataLoadError(name, path, err)
	}

	h.mu.Lock()
	// Another Get may have raced here in a concurrent caller; first load wins
	// so the at-most-once guarantee holds.
	if cached, ok := h.values[name]; ok {
		h.mu.Unlock()
		return cached, nil
	}
	h.values[name] = value
	h.mu.Unlock()
	return value, nil
}

// Register stores a value in the cache unconditionally. If a descriptor
// exists for the name, the value is persisted immediately through the
// matching handler; registration is the only trigger for persistence.
func (h *Hub) Register(name string, value any) error {
	h.mu.Lock()
	h.values[name] = value
	ds, hasSource := h.sources[name]
	h.mu.Unlock()

	if !hasSource {
		h.logger.Debug("value registered in memory only", "name", name)
		return nil
	}
	path := h.ResolvePath(ds.Path)
	if err := h.save(value, path, ds.Handler, ds.HandlerArgs); err != nil {
		return NewDataSaveError(name, path, err)
	}
	h.logger.Info("data source persisted", "name", name, "path", path)
	return nil
}

// Save persists a value one-shot, bypassing the descriptor table. Used for
// outputs routed to a sink path that is not itself a registered logical
// name; name only labels the error context.
func (h *Hub) Save(name string, value any, path, handlerName string, args map[string]any) error {
	resolved := h.ResolvePath(path)
	if err := h.save(value, resolved, handlerName, args); err != nil {
		return NewDataSaveError(name, resolved, err)
	}
	return nil
}

func (h *Hub) save(value any, path, handlerName string, args map[string]any) error {
	handler, _, err := h.handlers.Lookup(handlerName, path)
	if err != nil {
		return err
	}
	if !handler.Directory() {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
	}
	return handler.Save(value, path, args)
}
