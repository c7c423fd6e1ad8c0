// Package replay provides a plugin-orchestration engine for data-replay
// pipelines. A case directory declares an ordered sequence of plugin steps
// and a mapping from logical data names to files on disk; the engine merges
// each plugin's configuration from layered sources, wires declared inputs
// and outputs through a lazy-loading data hub, and runs the steps strictly
// in order with abort-on-first-failure semantics.
//
// Key Features:
//   - Hierarchical configuration: plugin defaults < global settings <
//     environment variables < case file < command-line overrides
//   - Data hub with pluggable format handlers (CSV, JSON, YAML, text,
//     SQLite, directory sinks) and load-at-most-once caching
//   - Static IO discovery: plugin declarations become data source
//     descriptors before any step executes
//   - Dependency-injection executor with a closed set of injectable
//     services (logger, data hub, hydrated configuration)
//   - Hot reload of global settings (log level) via Argus file watching
//
// Basic Usage:
//
//	registry := replay.NewPluginRegistry()
//	err := registry.Register(replay.PluginSpec{
//		Name:   "smooth",
//		Params: []replay.Param{{Name: "cfg", Kind: replay.ParamConfig}},
//		Output: "smoothed",
//		NewConfig: func() any { return &SmoothConfig{} },
//		IO: []replay.IODeclaration{
//			{Field: "trajectory", Direction: replay.Input, Name: "trajectory"},
//		},
//		Entry: func(args []any) (any, error) {
//			cfg := args[0].(*SmoothConfig)
//			return smooth(cfg.Trajectory, cfg.Window), nil
//		},
//	})
//
//	runner := replay.NewRunner(registry, replay.NewHandlerRegistry(), logger, projectRoot)
//	report := runner.Run(caseRoot, replay.Layer{})
//	if report.Aborted() {
//		// handle report.Err
//	}
//
// Execution is single-threaded and strictly sequential: one step completes
// (config merge, wiring, invocation, output persistence) before the next
// begins. The first failing step aborts the run; side effects already
// persisted by earlier steps remain on disk.
package replay
