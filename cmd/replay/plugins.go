// plugins.go: built-in demo plugins shipped with the CLI
//
// Copyright (c) 2025 leteee
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	replay "github.com/leteee/data-replay-sub000"
)

// SimConfig configures the trajectory simulator.
type SimConfig struct {
	Points   int     `yaml:"points"`
	DT       float64 `yaml:"dt"`
	SpeedMPS float64 `yaml:"speed_mps"`
}

// SmoothConfig configures the moving-average smoother. Trajectory is
// hydrated from the data hub, never set by configuration files.
type SmoothConfig struct {
	Window     int                 `yaml:"window"`
	Trajectory []map[string]string `yaml:"trajectory"`
}

// ReportConfig configures the report writer. Smoothed is hydrated from the
// hub; ReportPath receives the resolved sink path.
type ReportConfig struct {
	Smoothed   []map[string]string `yaml:"smoothed"`
	ReportPath string              `yaml:"report_path"`
}

// registerBuiltinPlugins populates the registry with the demo pipeline:
// simulate a straight-line trajectory, smooth it, write a summary report.
func registerBuiltinPlugins(registry *replay.PluginRegistry) error {
	specs := []replay.PluginSpec{
		{
			Name:      "trajectory-sim",
			Output:    "trajectory",
			NewConfig: func() any { return &SimConfig{} },
			Defaults:  map[string]any{"points": 100, "dt": 0.1, "speed_mps": 10.0},
			Params:    []replay.Param{{Name: "cfg", Kind: replay.ParamConfig}, {Name: "log", Kind: replay.ParamLogger}},
			IO: []replay.IODeclaration{
				{Direction: replay.Output, Name: "trajectory"},
			},
			Entry: func(args []any) (any, error) {
				cfg := args[0].(*SimConfig)
				log := args[1].(replay.Logger)
				log.Debug("simulating trajectory", "points", cfg.Points)
				return simulateTrajectory(cfg), nil
			},
		},
		{
			Name:      "smooth",
			Output:    "smoothed",
			NewConfig: func() any { return &SmoothConfig{} },
			Defaults:  map[string]any{"window": 5},
			Params:    []replay.Param{{Name: "cfg", Kind: replay.ParamConfig}},
			IO: []replay.IODeclaration{
				{Field: "trajectory", Direction: replay.Input, Name: "trajectory"},
				{Direction: replay.Output, Name: "smoothed"},
			},
			Entry: func(args []any) (any, error) {
				cfg := args[0].(*SmoothConfig)
				return smoothTrajectory(cfg.Trajectory, cfg.Window)
			},
		},
		{
			Name:      "report",
			Output:    "report",
			NewConfig: func() any { return &ReportConfig{} },
			Params:    []replay.Param{{Name: "cfg", Kind: replay.ParamConfig}, {Name: "log", Kind: replay.ParamLogger}},
			IO: []replay.IODeclaration{
				{Field: "smoothed", Direction: replay.Input, Name: "smoothed"},
				{Field: "report_path", Direction: replay.Output, Name: "report", Sink: true},
			},
			Entry: func(args []any) (any, error) {
				cfg := args[0].(*ReportConfig)
				log := args[1].(replay.Logger)
				if err := writeReport(cfg); err != nil {
					return nil, err
				}
				log.Info("report written", "path", cfg.ReportPath)
				return nil, nil
			},
		},
	}
	for _, spec := range specs {
		if err := registry.Register(spec); err != nil {
			return err
		}
	}
	return nil
}

func simulateTrajectory(cfg *SimConfig) []map[string]string {
	records := make([]map[string]string, 0, cfg.Points)
	for i := 0; i < cfg.Points; i++ {
		t := float64(i) * cfg.DT
		records = append(records, map[string]string{
			"t": strconv.FormatFloat(t, 'f', 3, 64),
			"x": strconv.FormatFloat(cfg.SpeedMPS*t, 'f', 3, 64),
			"y": strconv.FormatFloat(2.0*math.Sin(t/2), 'f', 3, 64),
		})
	}
	return records
}

func smoothTrajectory(records []map[string]string, window int) ([]map[string]string, error) {
	if window < 1 {
		return nil, fmt.Errorf("smoothing window must be positive, got %d", window)
	}
	out := make([]map[string]string, len(records))
	for i, record := range records {
		lo := i - window/2
		if lo < 0 {
			lo = 0
		}
		hi := i + window/2 + 1
		if hi > len(records) {
			hi = len(records)
		}
		var sx, sy float64
		for _, neighbor := range records[lo:hi] {
			x, _ := strconv.ParseFloat(neighbor["x"], 64)
			y, _ := strconv.ParseFloat(neighbor["y"], 64)
			sx += x
			sy += y
		}
		n := float64(hi - lo)
		out[i] = map[string]string{
			"t": record["t"],
			"x": strconv.FormatFloat(sx/n, 'f', 3, 64),
			"y": strconv.FormatFloat(sy/n, 'f', 3, 64),
		}
	}
	return out, nil
}

func writeReport(cfg *ReportConfig) error {
	var minX, maxX float64
	for i, record := range cfg.Smoothed {
		x, _ := strconv.ParseFloat(record["x"], 64)
		if i == 0 || x < minX {
			minX = x
		}
		if i == 0 || x > maxX {
			maxX = x
		}
	}
	summary := fmt.Sprintf("points: %d\nx range: [%.3f, %.3f]\n", len(cfg.Smoothed), minX, maxX)
	return os.WriteFile(cfg.ReportPath, []byte(summary), 0o644)
}

// newGenerateDataCommand writes a demo raw trajectory CSV into the case's
// raw_data directory so the example pipeline has something to chew on.
func newGenerateDataCommand(flags *engineFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "generate-data",
		Short: "Write demo raw data into a case directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireCase(flags); err != nil {
				return err
			}
			runner, _, err := buildRunner(flags)
			if err != nil {
				return err
			}
			dir := filepath.Join(runner.CaseRoot(flags.caseName), "raw_data")
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			records := simulateTrajectory(&SimConfig{Points: 200, DT: 0.05, SpeedMPS: 12})
			hub := replay.NewHub(runner.CaseRoot(flags.caseName), replay.NewHandlerRegistry(), replay.NewNoOpLogger())
			if err := hub.Save("trajectory", records, filepath.Join("raw_data", "trajectory.csv"), "csv", nil); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", filepath.Join(dir, "trajectory.csv"))
			return nil
		},
	}
}
