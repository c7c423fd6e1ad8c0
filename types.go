// types.go: shared data types for case definitions and run reporting
//
// Copyright (c) 2025 leteee
// SPDX-License-Identifier: MIT

package replay

import (
	"encoding/json"
	"time"

	"gopkg.in/yaml.v3"
)

// Step is one entry of a case's pipeline: the plugin to run, its raw
// configuration fragment (the case layer of resolution), and whether the
// step participates in the run at all.
type Step struct {
	Plugin string
	Config map[string]any
	Enable *bool
}

// Enabled reports whether the step participates in the run. A step with no
// explicit enable flag is enabled.
func (s Step) Enabled() bool {
	return s.Enable == nil || *s.Enable
}

// rawStep mirrors the on-disk step entry. The configuration fragment is
// accepted under both `config` and the older `params` key.
type rawStep struct {
	Plugin string         `yaml:"plugin" json:"plugin"`
	Config map[string]any `yaml:"config" json:"config"`
	Params map[string]any `yaml:"params" json:"params"`
	Enable *bool          `yaml:"enable" json:"enable"`
}

func (s *Step) fromRaw(raw rawStep) {
	s.Plugin = raw.Plugin
	s.Config = raw.Config
	if s.Config == nil {
		s.Config = raw.Params
	}
	s.Enable = raw.Enable
}

// UnmarshalYAML accepts both `config` and the older `params` key for the
// step's configuration fragment.
func (s *Step) UnmarshalYAML(value *yaml.Node) error {
	var raw rawStep
	if err := value.Decode(&raw); err != nil {
		return err
	}
	s.fromRaw(raw)
	return nil
}

// UnmarshalJSON mirrors UnmarshalYAML for JSON case definitions.
func (s *Step) UnmarshalJSON(data []byte) error {
	var raw rawStep
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.fromRaw(raw)
	return nil
}

// CaseDefinition is the parsed per-case document: an ordered pipeline and
// the io-mapping table resolving logical names to storage.
type CaseDefinition struct {
	CaseName    string
	Description string
	Pipeline    []Step
	IOMapping   IOMapping

	// Path is where the definition was loaded from, for error context.
	Path string
}

// EnabledSteps returns the pipeline steps that participate in the run.
func (c CaseDefinition) EnabledSteps() []Step {
	var out []Step
	for _, step := range c.Pipeline {
		if step.Enabled() {
			out = append(out, step)
		}
	}
	return out
}

// GlobalSettings is the project-wide settings document. The same keys are
// recognized from the environment (see BuildEnvLayer).
type GlobalSettings struct {
	CasesRoot     string   `yaml:"cases_root" json:"cases_root"`
	LogLevel      string   `yaml:"log_level" json:"log_level"`
	LogFile       string   `yaml:"log_file" json:"log_file"`
	PluginModules []string `yaml:"plugin_modules" json:"plugin_modules"`
	PluginEnable  *bool    `yaml:"plugin_enable" json:"plugin_enable"`
}

// StepStatus is the terminal state of one pipeline step.
type StepStatus int

const (
	StepDone StepStatus = iota
	StepFailed
	StepSkipped
)

// String returns a human-readable status name.
func (s StepStatus) String() string {
	switch s {
	case StepDone:
		return "done"
	case StepFailed:
		return "failed"
	case StepSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// StepResult records the outcome of one pipeline step.
type StepResult struct {
	Plugin   string
	Index    int
	Status   StepStatus
	Duration time.Duration
	Err      error
}

// RunReport summarizes a pipeline run: per-step outcomes and the aborting
// error, if the run did not finish.
type RunReport struct {
	RunID    string
	CaseName string
	Steps    []StepResult
	Err      error
}

// Aborted reports whether the run halted before completing all steps.
func (r *RunReport) Aborted() bool { return r.Err != nil }
