// errors.go: structured error definitions for the replay engine
//
// Copyright (c) 2025 leteee
// SPDX-License-Identifier: MIT

package replay

import (
	"github.com/agilira/go-errors"
)

// Error codes for the replay engine
const (
	// Configuration errors (1100-1199)
	ErrCodeConfigParseError   = "CONFIG_1101"
	ErrCodeConfigFileError    = "CONFIG_1102"
	ErrCodeUnknownHandler     = "CONFIG_1103"
	ErrCodeInvalidCaseFile    = "CONFIG_1104"
	ErrCodeConfigDecodeError  = "CONFIG_1105"
	ErrCodeSettingsWatchError = "CONFIG_1106"

	// Data access errors (1200-1299)
	ErrCodeDataNotFound    = "DATA_1201"
	ErrCodeDataFileMissing = "DATA_1202"
	ErrCodeDataLoadFailed  = "DATA_1203"
	ErrCodeDataSaveFailed  = "DATA_1204"

	// Dependency resolution errors (1300-1399)
	ErrCodeUnresolvedParameter = "RESOLVE_1301"
	ErrCodeParameterTypeError  = "RESOLVE_1302"
	ErrCodeConfigTypeMismatch  = "RESOLVE_1303"

	// Plugin errors (1400-1499)
	ErrCodePluginNotFound        = "PLUGIN_1401"
	ErrCodeDuplicatePluginName   = "PLUGIN_1402"
	ErrCodeInvalidPluginSpec     = "PLUGIN_1403"
	ErrCodePluginExecutionFailed = "PLUGIN_1404"
	ErrCodePluginPanic           = "PLUGIN_1405"

	// Pipeline run errors (1500-1599)
	ErrCodeRunAborted    = "RUN_1501"
	ErrCodeEmptyPipeline = "RUN_1502"
)

// Configuration error constructors

func NewConfigParseError(path string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeConfigParseError, "Configuration parse error").
		WithUserMessage("Failed to parse configuration file").
		WithContext("config_path", path).
		WithSeverity("error")
}

func NewConfigFileError(path string, message string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeConfigFileError, "Configuration file error: "+message).
		WithUserMessage("Configuration file access failed").
		WithContext("config_path", path).
		WithSeverity("error")
}

func NewUnknownHandlerError(key string) *errors.Error {
	return errors.New(ErrCodeUnknownHandler, "Unknown data handler").
		WithUserMessage("No handler is registered for the requested name or extension").
		WithContext("handler_key", key).
		WithSeverity("error")
}

func NewInvalidCaseFileError(path string, message string) *errors.Error {
	return errors.New(ErrCodeInvalidCaseFile, "Invalid case definition: "+message).
		WithUserMessage("The case definition file is not usable").
		WithContext("case_path", path).
		WithSeverity("error")
}

func NewConfigDecodeError(plugin string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeConfigDecodeError, "Configuration decode error").
		WithUserMessage("Merged configuration could not be decoded into the plugin's schema").
		WithContext("plugin_name", plugin).
		WithSeverity("error")
}

func NewSettingsWatchError(message string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeSettingsWatchError, "Settings watcher error: "+message).
		WithUserMessage("Global settings monitoring failed").
		WithSeverity("error")
}

// Data access error constructors

func NewDataNotFoundError(name string) *errors.Error {
	return errors.New(ErrCodeDataNotFound, "Data source not found").
		WithUserMessage("No value or descriptor is registered under the logical name").
		WithContext("logical_name", name).
		WithSeverity("error")
}

func NewDataFileMissingError(name, path string) *errors.Error {
	return errors.New(ErrCodeDataFileMissing, "Required data file missing").
		WithUserMessage("The data source requires a file that does not exist").
		WithContext("logical_name", name).
		WithContext("path", path).
		WithSeverity("error")
}

func NewDataLoadError(name, path string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeDataLoadFailed, "Data load failed").
		WithUserMessage("The handler failed to load the data source").
		WithContext("logical_name", name).
		WithContext("path", path).
		WithContext("operation", "load").
		WithSeverity("error")
}

func NewDataSaveError(name, path string, cause error) *errors.Error {
	err := errors.Wrap(cause, ErrCodeDataSaveFailed, "Data save failed").
		WithUserMessage("The handler failed to persist the data source").
		WithContext("path", path).
		WithContext("operation", "save").
		WithSeverity("error")
	if name != "" {
		err = err.WithContext("logical_name", name)
	}
	return err
}

// Dependency resolution error constructors

func NewUnresolvedParameterError(plugin, param string) *errors.Error {
	return errors.New(ErrCodeUnresolvedParameter, "Unresolved plugin parameter").
		WithUserMessage("No resolver could bind the declared parameter").
		WithContext("plugin_name", plugin).
		WithContext("parameter", param).
		WithSeverity("error")
}

func NewParameterTypeError(plugin, param, expected, resolver string) *errors.Error {
	return errors.New(ErrCodeParameterTypeError, "Parameter type mismatch").
		WithUserMessage("A resolver produced a value incompatible with the declared parameter").
		WithContext("plugin_name", plugin).
		WithContext("parameter", param).
		WithContext("expected", expected).
		WithContext("resolver", resolver).
		WithSeverity("error")
}

func NewConfigTypeMismatchError(plugin, expected, actual string) *errors.Error {
	return errors.New(ErrCodeConfigTypeMismatch, "Configuration type mismatch").
		WithUserMessage("The step's configuration object does not match the plugin's declared schema").
		WithContext("plugin_name", plugin).
		WithContext("expected_type", expected).
		WithContext("actual_type", actual).
		WithSeverity("error")
}

// Plugin error constructors

func NewPluginNotFoundError(name string) *errors.Error {
	return errors.New(ErrCodePluginNotFound, "Plugin not found").
		WithUserMessage("The named plugin is not present in the registry").
		WithContext("plugin_name", name).
		WithSeverity("error")
}

func NewDuplicatePluginNameError(name string) *errors.Error {
	return errors.New(ErrCodeDuplicatePluginName, "Duplicate plugin name").
		WithUserMessage("Plugin names must be unique within the registry").
		WithContext("plugin_name", name).
		WithSeverity("error")
}

func NewInvalidPluginSpecError(name, message string) *errors.Error {
	return errors.New(ErrCodeInvalidPluginSpec, "Invalid plugin specification: "+message).
		WithUserMessage("The plugin specification is not registrable").
		WithContext("plugin_name", name).
		WithSeverity("error")
}

func NewPluginExecutionError(name string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodePluginExecutionFailed, "Plugin execution failed").
		WithUserMessage("The plugin entry point returned an error").
		WithContext("plugin_name", name).
		WithSeverity("critical")
}

func NewPluginPanicError(name string, recovered any) *errors.Error {
	return errors.New(ErrCodePluginPanic, "Plugin panicked").
		WithUserMessage("The plugin entry point panicked during execution").
		WithContext("plugin_name", name).
		WithContext("panic", recovered).
		WithSeverity("critical")
}

// Pipeline run error constructors

func NewRunAbortedError(plugin string, stepIndex int, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeRunAborted, "Pipeline run aborted").
		WithUserMessage("A step failed and all subsequent steps were halted").
		WithContext("plugin_name", plugin).
		WithContext("step_index", stepIndex).
		WithSeverity("critical")
}

func NewEmptyPipelineError(casePath string) *errors.Error {
	return errors.New(ErrCodeEmptyPipeline, "Empty pipeline").
		WithUserMessage("The case definition declares no pipeline steps").
		WithContext("case_path", casePath).
		WithSeverity("error")
}
