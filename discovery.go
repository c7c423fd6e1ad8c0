// discovery.go: static IO-declaration discovery over enabled pipeline steps
//
// Copyright (c) 2025 leteee
// SPDX-License-Identifier: MIT

package replay

// MappingEntry is one row of the case's io-mapping table: where a logical
// name lives and which handler to use.
type MappingEntry struct {
	Path    string `yaml:"path" json:"path"`
	Handler string `yaml:"handler" json:"handler"`
}

// IOMapping maps logical data names to their storage, as declared by the
// case definition's io_mapping (or data_sources) section.
type IOMapping map[string]MappingEntry

// DiscoveryResult is the output of the static IO pass: the base data
// source descriptors for all declared inputs, plus the per-plugin input
// and output declaration lists.
type DiscoveryResult struct {
	Sources []DataSource
	Inputs  map[string][]IODeclaration
	Outputs map[string][]IODeclaration
}

// Discover walks the enabled steps' plugin IO declarations and builds the
// dependency wiring for a run.
//
// Inputs contribute data source descriptors: path and handler come from the
// mapping table (empty when unmapped, caught later at access time), handler
// args from the declaration. Outputs are recorded per plugin but do not add
// descriptors; a sink's final storage path is resolved only when the
// plugin's return value is handled. Disabled steps contribute nothing.
//
// A logical name read by several plugins is an ordinary shared dependency;
// when such a name is also declared as an output the situation is logged as
// a multiple-producer warning, not an error.
func Discover(steps []Step, registry *PluginRegistry, mapping IOMapping, logger Logger) (DiscoveryResult, error) {
	if logger == nil {
		logger = DefaultLogger()
	}
	result := DiscoveryResult{
		Inputs:  make(map[string][]IODeclaration),
		Outputs: make(map[string][]IODeclaration),
	}

	inputReaders := map[string][]string{}
	outputProducers := map[string][]string{}
	described := map[string]bool{}

	for i, step := range steps {
		if !step.Enabled() {
			continue
		}
		spec, err := registry.Lookup(step.Plugin)
		if err != nil {
			return result, NewRunAbortedError(step.Plugin, i, err)
		}

		for _, decl := range spec.Inputs() {
			result.Inputs[spec.Name] = append(result.Inputs[spec.Name], decl)
			inputReaders[decl.Name] = append(inputReaders[decl.Name], spec.Name)
			if described[decl.Name] {
				continue
			}
			described[decl.Name] = true
			entry := mapping[decl.Name]
			result.Sources = append(result.Sources, DataSource{
				Name:        decl.Name,
				Path:        entry.Path,
				Handler:     entry.Handler,
				MustExist:   !decl.Optional,
				HandlerArgs: decl.HandlerArgs,
			})
		}

		for _, decl := range spec.Outputs() {
			result.Outputs[spec.Name] = append(result.Outputs[spec.Name], decl)
			outputProducers[decl.Name] = append(outputProducers[decl.Name], spec.Name)
		}
	}

	for name, readers := range inputReaders {
		if len(readers) < 2 {
			continue
		}
		if producers := outputProducers[name]; len(producers) > 0 {
			logger.Warn("logical name has multiple producers",
				"name", name, "readers", readers, "producers", producers)
		}
	}

	return result, nil
}
