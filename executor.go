// executor.go: per-plugin dependency-injection executor
//
// Copyright (c) 2025 leteee
// SPDX-License-Identifier: MIT

package replay

import (
	"fmt"
)

// Context is the per-step execution bundle handed to the executor. It is
// created fresh for each step, owned exclusively by that step's execution,
// and discarded afterwards.
type Context struct {
	Hub         *Hub
	Logger      Logger
	ProjectRoot string
	CaseRoot    string

	// Config is the step's hydrated configuration object, produced by
	// spec.NewConfig and filled from the merged layers plus hub-hydrated
	// IO fields. Nil when the plugin declares no schema.
	Config any
}

// Executor resolves a plugin's declared parameters, invokes its entry
// point, and routes the return value. The io mapping is consulted only at
// return time: a sink's final storage path is the authority, never a
// defaulted one.
type Executor struct {
	mapping IOMapping
}

// NewExecutor creates an executor routing outputs through mapping.
func NewExecutor(mapping IOMapping) *Executor {
	return &Executor{mapping: mapping}
}

// Execute runs one plugin against its context. Parameters are resolved
// through an ordered chain: service resolver (logger, hub) first, then the
// config-model resolver. An unmatched parameter is a dependency-resolution
// error; every resolved value is validated before invocation. Errors and
// panics raised by the plugin body are wrapped as plugin-execution errors
// and are fatal to the pipeline.
func (e *Executor) Execute(spec PluginSpec, ctx *Context) error {
	log := ctx.Logger.With("plugin", spec.Name)
	log.Info("plugin started")

	args, err := e.resolveParams(spec, ctx)
	if err != nil {
		return err
	}

	value, err := invoke(spec, args)
	if err != nil {
		log.Error("plugin failed", "error", err)
		return err
	}

	if err := e.routeReturn(spec, ctx, value, log); err != nil {
		return err
	}

	log.Info("plugin finished")
	return nil
}

// resolveParams binds each declared parameter via the fixed resolver chain
// and validates the resolved values against the declared kinds.
func (e *Executor) resolveParams(spec PluginSpec, ctx *Context) ([]any, error) {
	args := make([]any, len(spec.Params))
	for i, param := range spec.Params {
		value, resolver, err := resolveParam(spec, param, ctx)
		if err != nil {
			return nil, err
		}
		if err := validateParam(spec, param, value, resolver); err != nil {
			return nil, err
		}
		args[i] = value
	}
	return args, nil
}

func resolveParam(spec PluginSpec, param Param, ctx *Context) (any, string, error) {
	switch param.Kind {
	case ParamLogger:
		return ctx.Logger, "service", nil
	case ParamHub:
		return ctx.Hub, "service", nil
	case ParamConfig:
		if spec.NewConfig == nil {
			// A config parameter without a schema constructor is an
			// inconsistent registration.
			return nil, "", NewConfigTypeMismatchError(spec.Name, "declared schema", "none")
		}
		if ctx.Config == nil {
			return nil, "", NewConfigTypeMismatchError(spec.Name,
				fmt.Sprintf("%T", spec.NewConfig()), "nil")
		}
		expected := fmt.Sprintf("%T", spec.NewConfig())
		actual := fmt.Sprintf("%T", ctx.Config)
		if expected != actual {
			return nil, "", NewConfigTypeMismatchError(spec.Name, expected, actual)
		}
		return ctx.Config, "config-model", nil
	default:
		return nil, "", NewUnresolvedParameterError(spec.Name, param.Name)
	}
}

// validateParam is the post-resolution structural check: the resolved value
// must actually satisfy the declared kind.
func validateParam(spec PluginSpec, param Param, value any, resolver string) error {
	switch param.Kind {
	case ParamLogger:
		if _, ok := value.(Logger); !ok {
			return NewParameterTypeError(spec.Name, param.Name, "Logger", resolver)
		}
	case ParamHub:
		if _, ok := value.(*Hub); !ok {
			return NewParameterTypeError(spec.Name, param.Name, "*Hub", resolver)
		}
	case ParamConfig:
		if value == nil {
			return NewParameterTypeError(spec.Name, param.Name, "config object", resolver)
		}
	}
	return nil
}

// invoke calls the entry point, converting panics and returned errors into
// plugin-execution errors.
func invoke(spec PluginSpec, args []any) (value any, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = NewPluginPanicError(spec.Name, recovered)
		}
	}()
	value, callErr := spec.Entry(args)
	if callErr != nil {
		return nil, NewPluginExecutionError(spec.Name, callErr)
	}
	return value, nil
}

// routeReturn handles the plugin's return value. A declared output key with
// a non-nil value is registered into the hub (which persists it when the io
// mapping supplied a descriptor). A nil return from a declared producer is
// a warning, unless the plugin declared a sink field and wrote its output
// directly.
func (e *Executor) routeReturn(spec PluginSpec, ctx *Context, value any, log Logger) error {
	if spec.Output == "" {
		return nil
	}
	if value == nil {
		if spec.HasSink() {
			log.Debug("sink plugin returned nil, output written directly")
			return nil
		}
		log.Warn("declared producer returned nil", "output", spec.Output)
		return nil
	}

	// Attach the mapping's descriptor now so registration persists to the
	// authoritative path. Discovery deliberately never did this for outputs.
	if _, described := ctx.Hub.Source(spec.Output); !described {
		if entry, ok := e.mapping[spec.Output]; ok {
			ctx.Hub.Describe(DataSource{
				Name:        spec.Output,
				Path:        entry.Path,
				Handler:     entry.Handler,
				ProducedBy:  spec.Name,
				HandlerArgs: outputHandlerArgs(spec),
			})
		}
	}
	return ctx.Hub.Register(spec.Output, value)
}

// outputHandlerArgs returns the handler args of the spec's declaration for
// its primary output, if any.
func outputHandlerArgs(spec PluginSpec) map[string]any {
	for _, decl := range spec.Outputs() {
		if decl.Name == spec.Output {
			return decl.HandlerArgs
		}
	}
	return nil
}
