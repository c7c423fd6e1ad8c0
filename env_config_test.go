// env_config_test.go: tests for environment layer construction
//
// Copyright (c) 2025 leteee
// SPDX-License-Identifier: MIT

package replay

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildEnvLayer_Coercions(t *testing.T) {
	env := map[string]string{
		"CASES_ROOT":     "/data/cases",
		"LOG_LEVEL":      "debug",
		"PLUGIN_ENABLE":  "Yes",
		"PLUGIN_MODULES": "sim, render ,export",
		"HANDLER_PATHS":  " , ",
		"UNRELATED":      "ignored",
	}
	layer := buildEnvLayer(func(key string) string { return env[key] })

	values, ok := layer.Root.ToAny().(map[string]any)
	if !ok {
		t.Fatalf("environment layer is not a map: %T", layer.Root.ToAny())
	}

	assert.Equal(t, "/data/cases", values["cases_root"])
	assert.Equal(t, "debug", values["log_level"])
	assert.Equal(t, true, values["plugin_enable"])
	assert.Equal(t, []any{"sim", "render", "export"}, values["plugin_modules"])
	assert.Equal(t, []any{}, values["handler_paths"], "blank-only list coerces to empty")
	assert.NotContains(t, values, "UNRELATED")
	assert.NotContains(t, values, "log_file", "unset variables contribute nothing")
}

func TestParseEnvBool(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"true", true},
		{"TRUE", true},
		{"1", true},
		{"yes", true},
		{"On", true},
		{"false", false},
		{"0", false},
		{"anything", false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, parseEnvBool(tt.raw))
		})
	}
}
