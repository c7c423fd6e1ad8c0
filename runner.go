// runner.go: top-level pipeline sequencer
//
// Copyright (c) 2025 leteee
// SPDX-License-Identifier: MIT

package replay

import (
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Runner sequences a case's pipeline: for each enabled step it resolves
// the layered configuration, wires the step's discovered inputs into the
// data hub, and delegates to the executor. The first failing step aborts
// the run; persisted side effects of earlier steps remain on disk.
type Runner struct {
	registry    *PluginRegistry
	handlers    *HandlerRegistry
	logger      Logger
	projectRoot string

	globalLayer Layer
	envLayer    Layer
	settings    GlobalSettings
}

// NewRunner creates a pipeline runner. The plugin registry must already be
// populated; it is read-only for the runner's lifetime. A nil logger
// defaults to the console logger.
func NewRunner(registry *PluginRegistry, handlers *HandlerRegistry, logger Logger, projectRoot string) *Runner {
	if logger == nil {
		logger = DefaultLogger()
	}
	if handlers == nil {
		handlers = NewHandlerRegistry()
	}
	return &Runner{
		registry:    registry,
		handlers:    handlers,
		logger:      logger,
		projectRoot: projectRoot,
		globalLayer: Layer{Name: "global", Root: MapNode()},
		envLayer:    BuildEnvLayer(),
	}
}

// LoadSettings loads the global settings file and the environment layer
// and resolves the engine settings (defaults < global < environment).
// Missing or malformed files resolve to defaults.
func (r *Runner) LoadSettings(globalPath string) GlobalSettings {
	r.globalLayer = LoadLayerFile("global", globalPath, r.logger)
	r.envLayer = BuildEnvLayer()
	merged := Resolve([]Layer{DefaultSettingsLayer(), r.globalLayer, r.envLayer})
	settings, err := DecodeGlobalSettings(merged)
	if err != nil {
		r.logger.Warn("settings tree undecodable, using defaults", "error", err)
		settings = GlobalSettings{CasesRoot: "cases", LogLevel: "info"}
	}
	r.settings = settings
	return settings
}

// Settings returns the engine settings resolved by LoadSettings.
func (r *Runner) Settings() GlobalSettings { return r.settings }

// CaseRoot resolves a case name against the configured cases root.
func (r *Runner) CaseRoot(caseName string) string {
	root := r.settings.CasesRoot
	if root == "" {
		root = "cases"
	}
	if !filepath.IsAbs(root) {
		root = filepath.Join(r.projectRoot, root)
	}
	return filepath.Join(root, caseName)
}

// ListCases returns the case directory names under the configured cases root.
func (r *Runner) ListCases() ([]string, error) {
	root := r.CaseRoot("")
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// Run executes the full pipeline of the case at caseRoot. The cli layer is
// the highest-precedence configuration source for every step.
func (r *Runner) Run(caseRoot string, cli Layer) *RunReport {
	return r.run(caseRoot, cli, "")
}

// RunPlugin executes a single named step standalone, reusing the identical
// config-resolution and wiring logic of a full run. The step's fragment is
// taken from the case pipeline when present (regardless of its enable
// flag), otherwise the step runs with an empty fragment.
func (r *Runner) RunPlugin(pluginName, caseRoot string, cli Layer) *RunReport {
	return r.run(caseRoot, cli, pluginName)
}

func (r *Runner) run(caseRoot string, cli Layer, onlyPlugin string) *RunReport {
	report := &RunReport{RunID: uuid.NewString()}
	log := r.logger.With("run_id", report.RunID)

	def, err := LoadCaseDefinition(caseRoot)
	if err != nil {
		report.Err = err
		log.Error("case definition unusable", "case_root", caseRoot, "error", err)
		return report
	}
	report.CaseName = def.CaseName
	log = log.With("case", def.CaseName)

	steps := def.Pipeline
	if onlyPlugin != "" {
		steps = selectStep(def.Pipeline, onlyPlugin)
	}
	if len(steps) == 0 {
		report.Err = NewEmptyPipelineError(def.Path)
		log.Error("nothing to run", "case_path", def.Path)
		return report
	}

	enabled := enabledOf(steps)
	discovered, err := Discover(enabled, r.registry, def.IOMapping, log)
	if err != nil {
		report.Err = err
		log.Error("io discovery failed", "error", err)
		return report
	}

	hub := NewHub(caseRoot, r.handlers, log)
	executor := NewExecutor(def.IOMapping)

	log.Info("pipeline started", "steps", len(steps), "enabled", len(enabled))
	for index, step := range steps {
		if !step.Enabled() {
			log.Info("step skipped", "step", index, "plugin", step.Plugin)
			report.Steps = append(report.Steps, StepResult{
				Plugin: step.Plugin, Index: index, Status: StepSkipped,
			})
			continue
		}

		start := time.Now()
		err := r.runStep(step, hub, executor, discovered, cli, log.With("step", index))
		result := StepResult{
			Plugin:   step.Plugin,
			Index:    index,
			Duration: time.Since(start),
		}
		if err != nil {
			result.Status = StepFailed
			result.Err = err
			report.Steps = append(report.Steps, result)
			report.Err = NewRunAbortedError(step.Plugin, index, err)
			log.Error("pipeline aborted", "step", index, "plugin", step.Plugin, "error", err)
			return report
		}
		result.Status = StepDone
		report.Steps = append(report.Steps, result)
	}

	log.Info("pipeline finished", "steps", len(report.Steps))
	return report
}

// runStep performs one step's ConfigResolve, Wire and Execute phases.
func (r *Runner) runStep(step Step, hub *Hub, executor *Executor, discovered DiscoveryResult, cli Layer, log Logger) error {
	spec, err := r.registry.Lookup(step.Plugin)
	if err != nil {
		return err
	}

	// ConfigResolve: fold the five layers, lowest precedence first, and
	// strip the reserved and IO-declared keys.
	layers := []Layer{
		NewLayer("defaults", spec.Defaults),
		{Name: "global", Root: r.globalLayer.Root.Field("plugins").Field(spec.Name)},
		r.envLayer,
		NewLayer("case", step.Config),
		cli,
	}
	merged := ResolvePluginConfig(layers, spec.IO)

	// Wire: attach this step's discovered input descriptors to the hub.
	inputNames := map[string]bool{}
	for _, decl := range discovered.Inputs[spec.Name] {
		inputNames[decl.Name] = true
	}
	for _, source := range discovered.Sources {
		if inputNames[source.Name] {
			if _, exists := hub.Source(source.Name); !exists {
				hub.Describe(source)
			}
		}
	}

	ctx := &Context{
		Hub:         hub,
		Logger:      log.With("plugin", spec.Name),
		ProjectRoot: r.projectRoot,
		CaseRoot:    hub.CaseRoot(),
	}
	if spec.NewConfig != nil {
		cfg, err := r.hydrateConfig(spec, merged, hub, executor.mapping)
		if err != nil {
			return err
		}
		ctx.Config = cfg
	}

	return executor.Execute(spec, ctx)
}

// hydrateConfig decodes the merged tree into the plugin's schema after
// injecting the IO-declared fields: inputs are filled from the data hub,
// sink fields receive their resolved storage path.
func (r *Runner) hydrateConfig(spec PluginSpec, merged *Node, hub *Hub, mapping IOMapping) (any, error) {
	node := merged.Clone()
	if node.Kind != KindMap {
		node = MapNode()
	}

	for _, decl := range spec.IO {
		if decl.Field == "" {
			continue
		}
		switch {
		case decl.Direction == Input:
			value, err := hub.Get(decl.Name)
			if err != nil {
				if decl.Optional {
					continue
				}
				return nil, err
			}
			node.Fields[decl.Field] = FromAny(value)
		case decl.Sink:
			path, err := r.resolveSinkPath(decl, hub, mapping)
			if err != nil {
				return nil, err
			}
			node.Fields[decl.Field] = ScalarNode(path)
		}
	}

	cfg := spec.NewConfig()
	if err := DecodeConfig(node, cfg); err != nil {
		return nil, NewConfigDecodeError(spec.Name, err)
	}
	return cfg, nil
}

// resolveSinkPath resolves a sink declaration to its storage path, mapped
// path first, conventional intermediate location otherwise, and makes sure
// the plugin can write there.
func (r *Runner) resolveSinkPath(decl IODeclaration, hub *Hub, mapping IOMapping) (string, error) {
	entry, mapped := mapping[decl.Name]
	path := entry.Path
	if !mapped || path == "" {
		path = filepath.Join("intermediate", decl.Name)
	}
	resolved := hub.ResolvePath(path)

	if entry.Handler == "directory" || filepath.Ext(resolved) == "" {
		if err := os.MkdirAll(resolved, 0o755); err != nil {
			return "", NewDataSaveError(decl.Name, resolved, err)
		}
	} else if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return "", NewDataSaveError(decl.Name, resolved, err)
	}
	return resolved, nil
}

// selectStep picks the pipeline entry for a standalone plugin run, forcing
// it enabled. A plugin absent from the pipeline still runs, with an empty
// configuration fragment.
func selectStep(pipeline []Step, pluginName string) []Step {
	enabled := true
	for _, step := range pipeline {
		if step.Plugin == pluginName {
			step.Enable = &enabled
			return []Step{step}
		}
	}
	return []Step{{Plugin: pluginName, Enable: &enabled}}
}

func enabledOf(steps []Step) []Step {
	var out []Step
	for _, step := range steps {
		if step.Enabled() {
			out = append(out, step)
		}
	}
	return out
}
