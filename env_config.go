// env_config.go: environment variable layer construction
//
// Copyright (c) 2025 leteee
// SPDX-License-Identifier: MIT

package replay

import (
	"os"
	"strings"
)

// envCoercion selects how a recognized variable's value is turned into a
// configuration value.
type envCoercion int

const (
	coerceString envCoercion = iota
	coerceBool
	coerceList
)

// envBinding binds one recognized environment variable to a configuration
// key with its coercion rule.
type envBinding struct {
	variable string
	key      string
	coercion envCoercion
}

// The fixed set of recognized environment variables. Anything else in the
// environment is ignored; the environment layer never carries ad-hoc keys.
var envBindings = []envBinding{
	{"CASES_ROOT", "cases_root", coerceString},
	{"LOG_LEVEL", "log_level", coerceString},
	{"LOG_FILE", "log_file", coerceString},
	{"PLUGIN_ENABLE", "plugin_enable", coerceBool},
	{"PLUGIN_MODULES", "plugin_modules", coerceList},
	{"PLUGIN_PATHS", "plugin_paths", coerceList},
	{"HANDLER_PATHS", "handler_paths", coerceList},
}

// BuildEnvLayer builds the environment configuration layer from the fixed
// set of recognized variables, applying type coercion: boolean keys accept
// case-insensitive true/1/yes/on, list keys split on commas with whitespace
// trimmed, everything else passes through as a string.
func BuildEnvLayer() Layer {
	return buildEnvLayer(os.Getenv)
}

// buildEnvLayer is the testable core of BuildEnvLayer.
func buildEnvLayer(getenv func(string) string) Layer {
	values := map[string]any{}
	for _, binding := range envBindings {
		raw := getenv(binding.variable)
		if raw == "" {
			continue
		}
		switch binding.coercion {
		case coerceBool:
			values[binding.key] = parseEnvBool(raw)
		case coerceList:
			values[binding.key] = splitEnvList(raw)
		default:
			values[binding.key] = raw
		}
	}
	return NewLayer("environment", values)
}

// parseEnvBool parses the accepted truthy spellings; everything else is false.
func parseEnvBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "on":
		return true
	default:
		return false
	}
}

// splitEnvList splits a comma-separated value, trimming whitespace and
// dropping empty elements.
func splitEnvList(raw string) []any {
	parts := strings.Split(raw, ",")
	out := make([]any, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
