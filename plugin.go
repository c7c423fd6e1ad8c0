// plugin.go: plugin specifications and the process-wide plugin registry
//
// Copyright (c) 2025 leteee
// SPDX-License-Identifier: MIT

package replay

import (
	"sort"
	"sync"
)

// ParamKind identifies the closed set of injectable parameter kinds.
// The executor matches on this tag instead of inspecting runtime types.
type ParamKind int

const (
	// ParamLogger injects the step's logger.
	ParamLogger ParamKind = iota
	// ParamHub injects the shared data hub.
	ParamHub
	// ParamConfig injects the step's hydrated configuration object.
	ParamConfig
)

// String returns a human-readable kind name for error messages.
func (k ParamKind) String() string {
	switch k {
	case ParamLogger:
		return "logger"
	case ParamHub:
		return "hub"
	case ParamConfig:
		return "config"
	default:
		return "unknown"
	}
}

// Param declares one entry-point parameter: its name (for error reporting)
// and the injectable kind attached at registration time.
type Param struct {
	Name string
	Kind ParamKind
}

// IODirection marks a declaration as a plugin input or output.
type IODirection int

const (
	// Input declarations are hydrated from the data hub before the step runs.
	Input IODirection = iota
	// Output declarations describe what the plugin produces.
	Output
)

// IODeclaration statically describes one data dependency of a plugin.
// Declarations are attached to the PluginSpec at registration time and
// consumed by IO discovery without any runtime introspection.
type IODeclaration struct {
	// Field is the configuration schema field backing the declaration.
	// The field is excluded from plain config merging and hydrated from
	// the data hub (inputs) or the resolved sink path (sinks).
	Field string

	// Direction marks the declaration as input or output.
	Direction IODirection

	// Name is the logical data name, decoupled from any storage path.
	Name string

	// Sink marks an output whose resolved path is handed to the plugin so
	// it writes the data itself. A sink plugin may legitimately return nil.
	Sink bool

	// Optional inputs do not require the backing file to exist.
	Optional bool

	// HandlerArgs are passed through to the handler on load/save.
	HandlerArgs map[string]any
}

// EntryPoint is a plugin's callable. Arguments arrive in the order the
// spec declares its Params; the return value is routed per the spec's
// output declaration.
type EntryPoint func(args []any) (any, error)

// PluginSpec describes one registered plugin.
type PluginSpec struct {
	// Name uniquely identifies the plugin within a registry.
	Name string

	// Entry is the plugin's entry point.
	Entry EntryPoint

	// Params declares the entry point's parameters in call order.
	Params []Param

	// Output is the logical name the return value is registered under.
	// Empty means the plugin produces nothing through the hub.
	Output string

	// NewConfig constructs an empty instance of the plugin's configuration
	// schema. Nil means the plugin takes no configuration object.
	NewConfig func() any

	// Defaults are the plugin's built-in configuration defaults, the
	// lowest-precedence layer in resolution.
	Defaults map[string]any

	// IO lists the plugin's static input/output declarations.
	IO []IODeclaration
}

// Inputs returns the spec's input declarations.
func (s PluginSpec) Inputs() []IODeclaration {
	return s.byDirection(Input)
}

// Outputs returns the spec's output declarations.
func (s PluginSpec) Outputs() []IODeclaration {
	return s.byDirection(Output)
}

func (s PluginSpec) byDirection(dir IODirection) []IODeclaration {
	var out []IODeclaration
	for _, decl := range s.IO {
		if decl.Direction == dir {
			out = append(out, decl)
		}
	}
	return out
}

// HasSink reports whether any output declaration is a sink.
func (s PluginSpec) HasSink() bool {
	for _, decl := range s.IO {
		if decl.Direction == Output && decl.Sink {
			return true
		}
	}
	return false
}

// PluginRegistry maps plugin names to specifications.
//
// The registry is populated once at process start by a discovery or import
// pass and is read-only during pipeline execution. Duplicate names are a
// registration error; there is no unregister.
type PluginRegistry struct {
	mu    sync.RWMutex
	specs map[string]PluginSpec
}

// NewPluginRegistry creates an empty plugin registry.
func NewPluginRegistry() *PluginRegistry {
	return &PluginRegistry{specs: make(map[string]PluginSpec)}
}

// Register adds a plugin specification. The name must be unique and the
// entry point non-nil.
func (r *PluginRegistry) Register(spec PluginSpec) error {
	if spec.Name == "" {
		return NewInvalidPluginSpecError(spec.Name, "plugin name is required")
	}
	if spec.Entry == nil {
		return NewInvalidPluginSpecError(spec.Name, "entry point is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.specs[spec.Name]; exists {
		return NewDuplicatePluginNameError(spec.Name)
	}
	r.specs[spec.Name] = spec
	return nil
}

// Lookup returns the specification registered under name.
func (r *PluginRegistry) Lookup(name string) (PluginSpec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.specs[name]
	if !ok {
		return PluginSpec{}, NewPluginNotFoundError(name)
	}
	return spec, nil
}

// Names returns the sorted names of all registered plugins.
func (r *PluginRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.specs))
	for name := range r.specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
