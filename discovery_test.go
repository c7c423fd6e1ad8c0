// discovery_test.go: tests for the static IO discovery pass
//
// Copyright (c) 2025 leteee
// SPDX-License-Identifier: MIT

package replay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discoveryRegistry(t *testing.T) *PluginRegistry {
	t.Helper()
	registry := NewPluginRegistry()
	require.NoError(t, registry.Register(PluginSpec{
		Name:  "producer",
		Entry: noopEntry,
		IO: []IODeclaration{
			{Field: "out", Direction: Output, Name: "mid"},
		},
	}))
	require.NoError(t, registry.Register(PluginSpec{
		Name:  "consumer",
		Entry: noopEntry,
		IO: []IODeclaration{
			{Field: "in", Direction: Input, Name: "mid"},
			{Field: "aux", Direction: Input, Name: "aux", Optional: true},
		},
	}))
	return registry
}

func TestDiscover_InputDescriptorsFromMapping(t *testing.T) {
	registry := discoveryRegistry(t)
	mapping := IOMapping{
		"mid": {Path: "intermediate/mid.csv", Handler: "csv"},
	}
	steps := []Step{{Plugin: "producer"}, {Plugin: "consumer"}}

	result, err := Discover(steps, registry, mapping, NewNoOpLogger())
	require.NoError(t, err)

	require.Len(t, result.Sources, 2)
	byName := map[string]DataSource{}
	for _, src := range result.Sources {
		byName[src.Name] = src
	}

	mid := byName["mid"]
	assert.Equal(t, "intermediate/mid.csv", mid.Path)
	assert.Equal(t, "csv", mid.Handler)
	assert.True(t, mid.MustExist)

	// Unmapped optional input: empty path, not required to exist.
	aux := byName["aux"]
	assert.Empty(t, aux.Path)
	assert.False(t, aux.MustExist)

	assert.Len(t, result.Inputs["consumer"], 2)
	assert.Len(t, result.Outputs["producer"], 1)
}

func TestDiscover_OutputsAddNoDescriptors(t *testing.T) {
	registry := discoveryRegistry(t)

	result, err := Discover([]Step{{Plugin: "producer"}}, registry, IOMapping{}, NewNoOpLogger())
	require.NoError(t, err)

	assert.Empty(t, result.Sources)
	assert.Len(t, result.Outputs["producer"], 1)
}

func TestDiscover_DisabledStepsSkipped(t *testing.T) {
	registry := discoveryRegistry(t)
	disabled := false

	result, err := Discover([]Step{
		{Plugin: "producer", Enable: &disabled},
		{Plugin: "consumer"},
	}, registry, IOMapping{}, NewNoOpLogger())
	require.NoError(t, err)

	assert.Empty(t, result.Outputs["producer"])
	assert.Len(t, result.Inputs["consumer"], 2)
}

func TestDiscover_UnknownPluginAborts(t *testing.T) {
	registry := discoveryRegistry(t)

	_, err := Discover([]Step{{Plugin: "ghost"}}, registry, IOMapping{}, NewNoOpLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Pipeline run aborted")
}

func TestDiscover_SharedInputDescribedOnce(t *testing.T) {
	registry := discoveryRegistry(t)
	require.NoError(t, registry.Register(PluginSpec{
		Name:  "second-consumer",
		Entry: noopEntry,
		IO: []IODeclaration{
			{Field: "in", Direction: Input, Name: "mid"},
		},
	}))

	result, err := Discover([]Step{
		{Plugin: "consumer"},
		{Plugin: "second-consumer"},
	}, registry, IOMapping{}, NewNoOpLogger())
	require.NoError(t, err)

	seen := 0
	for _, src := range result.Sources {
		if src.Name == "mid" {
			seen++
		}
	}
	assert.Equal(t, 1, seen)
}

func TestDiscover_MultipleProducerWarning(t *testing.T) {
	registry := discoveryRegistry(t)
	require.NoError(t, registry.Register(PluginSpec{
		Name:  "second-consumer",
		Entry: noopEntry,
		IO: []IODeclaration{
			{Field: "in", Direction: Input, Name: "mid"},
		},
	}))

	logger := NewTestLogger()
	_, err := Discover([]Step{
		{Plugin: "producer"},
		{Plugin: "consumer"},
		{Plugin: "second-consumer"},
	}, registry, IOMapping{}, logger)
	require.NoError(t, err)

	assert.True(t, logger.HasMessage("WARN", "logical name has multiple producers"))
}
