// config_loader.go: global settings and case definition loading
//
// Copyright (c) 2025 leteee
// SPDX-License-Identifier: MIT

package replay

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/agilira/argus"
	"gopkg.in/yaml.v3"
)

// Case definition file names probed inside a case directory, in order.
var caseFileNames = []string{"case.yaml", "case.yml", "case.json"}

// LoadLayerFile reads a structured configuration file into a layer.
//
// Missing files and unparsable content both yield an empty layer, never an
// error: a broken or absent settings file must not make the built-in
// defaults unusable. The problem is logged so it is not silent.
func LoadLayerFile(name, path string, logger Logger) Layer {
	if logger == nil {
		logger = DefaultLogger()
	}
	empty := Layer{Name: name, Root: MapNode()}
	if path == "" {
		return empty
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("settings file unreadable, using empty layer", "path", path, "error", err)
		}
		return empty
	}

	values, err := parseDocument(raw, path)
	if err != nil {
		logger.Warn("settings file unparsable, using empty layer", "path", path, "error", err)
		return empty
	}
	return Layer{Name: name, Root: FromAny(values)}
}

// parseDocument decodes a YAML or JSON document into a generic map, with
// the format selected from the file extension.
func parseDocument(raw []byte, path string) (map[string]any, error) {
	var values map[string]any
	switch argus.DetectFormat(path) {
	case argus.FormatJSON:
		if err := json.Unmarshal(raw, &values); err != nil {
			return nil, err
		}
	default:
		if err := yaml.Unmarshal(raw, &values); err != nil {
			return nil, err
		}
	}
	return values, nil
}

// DecodeGlobalSettings decodes a merged settings tree into GlobalSettings.
func DecodeGlobalSettings(n *Node) (GlobalSettings, error) {
	var settings GlobalSettings
	if err := DecodeConfig(n, &settings); err != nil {
		return settings, err
	}
	return settings, nil
}

// DefaultSettingsLayer returns the engine's built-in settings defaults,
// the lowest-precedence layer of settings resolution.
func DefaultSettingsLayer() Layer {
	return NewLayer("defaults", map[string]any{
		"cases_root": "cases",
		"log_level":  "info",
	})
}

// rawCaseFile mirrors the on-disk case document. The io-mapping table is
// accepted under both its current and its legacy key.
type rawCaseFile struct {
	CaseName    string    `yaml:"case_name" json:"case_name"`
	Description string    `yaml:"description" json:"description"`
	Pipeline    []Step    `yaml:"pipeline" json:"pipeline"`
	IOMapping   IOMapping `yaml:"io_mapping" json:"io_mapping"`
	DataSources IOMapping `yaml:"data_sources" json:"data_sources"`
}

// LoadCaseDefinition reads the case definition from a case directory,
// probing case.yaml, case.yml and case.json in that order.
//
// Unlike settings layers, a case definition is required input: a missing
// or unparsable case file is an error, not an empty document.
func LoadCaseDefinition(caseRoot string) (CaseDefinition, error) {
	var path string
	for _, name := range caseFileNames {
		candidate := filepath.Join(caseRoot, name)
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
			break
		}
	}
	if path == "" {
		return CaseDefinition{}, NewInvalidCaseFileError(caseRoot, "no case definition file found")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return CaseDefinition{}, NewConfigFileError(path, "failed to read case definition", err)
	}

	var file rawCaseFile
	switch argus.DetectFormat(path) {
	case argus.FormatJSON:
		err = json.Unmarshal(raw, &file)
	default:
		err = yaml.Unmarshal(raw, &file)
	}
	if err != nil {
		return CaseDefinition{}, NewConfigParseError(path, err)
	}

	mapping := file.IOMapping
	if mapping == nil {
		mapping = file.DataSources
	}
	if mapping == nil {
		mapping = IOMapping{}
	}

	def := CaseDefinition{
		CaseName:    file.CaseName,
		Description: file.Description,
		Pipeline:    file.Pipeline,
		IOMapping:   mapping,
		Path:        path,
	}
	if def.CaseName == "" {
		def.CaseName = filepath.Base(caseRoot)
	}
	for _, step := range def.Pipeline {
		if step.Plugin == "" {
			return CaseDefinition{}, NewInvalidCaseFileError(path, "pipeline step without a plugin name")
		}
	}
	return def, nil
}
