// Copyright (C) 2025 Emberflow Labs (oss@emberflow.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/emberflow-labs/emberflow/pkg/logging"
)

// Config holds CLI settings loaded from an optional YAML file.
type Config struct {
	// SnapshotDir is the default base path for checkpoint commands.
	SnapshotDir string `yaml:"snapshot_dir"`

	// LogDir enables file logging when set.
	LogDir string `yaml:"log_dir"`

	// LogLevel is one of debug, info, warn, error. Defaults to info.
	LogLevel string `yaml:"log_level"`
}

var (
	config     Config
	configPath string
	logger     *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:           "emberflow",
	Short:         "Operator tooling for the Emberflow streaming engine",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if configPath != "" {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return fmt.Errorf("read config %s: %w", configPath, err)
			}
			if err := yaml.Unmarshal(data, &config); err != nil {
				return fmt.Errorf("parse config %s: %w", configPath, err)
			}
		}
		logger = logging.New(logging.Config{
			Level:   parseLevel(config.LogLevel),
			LogDir:  config.LogDir,
			Service: "cli",
		})
		return nil
	}

	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logger.Close()
		}
	}
}

// parseLevel maps a config string to a logging level, defaulting to Info.
func parseLevel(s string) logging.Level {
	switch s {
	case "debug":
		return logging.LevelDebug
	case "warn":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}
