// main.go: replay CLI entry point
//
// Copyright (c) 2025 leteee
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	replay "github.com/leteee/data-replay-sub000"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// engineFlags holds the persistent flags shared by all subcommands.
type engineFlags struct {
	configPath string
	caseName   string
	logLevel   string
	sets       []string
}

func newRootCommand() *cobra.Command {
	flags := &engineFlags{}

	rootCmd := &cobra.Command{
		Use:   "replay",
		Short: "Data-replay pipeline engine",
		Long: `replay runs plugin pipelines against case directories: each plugin's
configuration is merged from layered sources and its data dependencies are
wired automatically through the engine's data hub.`,
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "global.yaml", "global settings file")
	rootCmd.PersistentFlags().StringVar(&flags.caseName, "case", "", "case name under the cases root")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "override the log level")
	rootCmd.PersistentFlags().StringArrayVar(&flags.sets, "set", nil, "config override key=value (repeatable, highest precedence)")

	rootCmd.AddCommand(newPipelineCommand(flags))
	rootCmd.AddCommand(newPluginCommand(flags))
	rootCmd.AddCommand(newCasesCommand(flags))
	rootCmd.AddCommand(newGenerateDataCommand(flags))

	return rootCmd
}

// buildRunner assembles the engine: logger, demo plugin registrations,
// handler registry and settings.
func buildRunner(flags *engineFlags) (*replay.Runner, *replay.ConsoleLogger, error) {
	logger := replay.NewConsoleLogger(os.Stderr, replay.LevelInfo)

	registry := replay.NewPluginRegistry()
	if err := registerBuiltinPlugins(registry); err != nil {
		return nil, nil, err
	}

	projectRoot, err := os.Getwd()
	if err != nil {
		return nil, nil, err
	}

	runner := replay.NewRunner(registry, replay.NewHandlerRegistry(), logger, projectRoot)
	settings := runner.LoadSettings(flags.configPath)

	level := settings.LogLevel
	if flags.logLevel != "" {
		level = flags.logLevel
	}
	logger.SetLevel(replay.ParseLogLevel(level))

	return runner, logger, nil
}

// cliLayer turns the repeated --set flags into the highest-precedence
// configuration layer. Dotted keys nest: --set window=5 --set render.fps=30.
// Values are parsed as YAML scalars so numbers and booleans override typed
// schema fields; anything unparsable stays a plain string.
func cliLayer(flags *engineFlags) replay.Layer {
	values := map[string]any{}
	for _, set := range flags.sets {
		key, raw, found := strings.Cut(set, "=")
		if !found || key == "" {
			continue
		}
		node := values
		parts := strings.Split(key, ".")
		for _, part := range parts[:len(parts)-1] {
			child, ok := node[part].(map[string]any)
			if !ok {
				child = map[string]any{}
				node[part] = child
			}
			node = child
		}
		node[parts[len(parts)-1]] = parseSetValue(raw)
	}
	return replay.NewLayer("cli", values)
}

// parseSetValue interprets a --set value the way a YAML scalar would be:
// 9 becomes an int, true a bool, 0.5 a float. An empty or unparsable value
// is kept as the literal string.
func parseSetValue(raw string) any {
	if raw == "" {
		return ""
	}
	var value any
	if err := yaml.Unmarshal([]byte(raw), &value); err != nil || value == nil {
		return raw
	}
	return value
}

func requireCase(flags *engineFlags) error {
	if flags.caseName == "" {
		return fmt.Errorf("--case is required")
	}
	return nil
}

func reportOutcome(report *replay.RunReport) error {
	for _, step := range report.Steps {
		fmt.Printf("  %-24s %-8s %s\n", step.Plugin, step.Status, step.Duration.Round(time.Millisecond))
	}
	if report.Aborted() {
		return fmt.Errorf("run %s aborted: %v", report.RunID, report.Err)
	}
	fmt.Printf("run %s finished\n", report.RunID)
	return nil
}

func newPipelineCommand(flags *engineFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "pipeline",
		Short: "Run the full pipeline of a case",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireCase(flags); err != nil {
				return err
			}
			runner, logger, err := buildRunner(flags)
			if err != nil {
				return err
			}
			watcher, err := replay.NewSettingsWatcher(runner, logger, flags.configPath, replay.DefaultSettingsWatchOptions())
			if err == nil {
				if startErr := watcher.Start(); startErr == nil {
					defer func() { _ = watcher.Stop() }()
				}
			}
			report := runner.Run(runner.CaseRoot(flags.caseName), cliLayer(flags))
			return reportOutcome(report)
		},
	}
}

func newPluginCommand(flags *engineFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "plugin <name>",
		Short: "Run one named step standalone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireCase(flags); err != nil {
				return err
			}
			runner, _, err := buildRunner(flags)
			if err != nil {
				return err
			}
			report := runner.RunPlugin(args[0], runner.CaseRoot(flags.caseName), cliLayer(flags))
			return reportOutcome(report)
		},
	}
}

func newCasesCommand(flags *engineFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "cases",
		Short: "List case directories under the cases root",
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, _, err := buildRunner(flags)
			if err != nil {
				return err
			}
			names, err := runner.ListCases()
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		},
	}
}
