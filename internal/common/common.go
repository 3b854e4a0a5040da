// Package common defines data structures and functions that are used by multiple
// application commands, e.g., probe, run.
package common

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var AppName = filepath.Base(os.Args[0])

// AppContext represents the application context that can be accessed from all commands.
type AppContext struct {
	Timestamp   string // Timestamp is the application start time, used in output names.
	RunID       string // RunID identifies this invocation in logs and reports.
	OutputDir   string // OutputDir is the directory where the application will write output files.
	LogFilePath string // LogFilePath is empty when not logging to a file.
	Version     string // Version is the version of the application.
	Debug       bool
}

type Flag struct {
	Name string
	Help string
}
type FlagGroup struct {
	GroupName string
	Flags     []Flag
}

// flags shared by commands
var (
	FlagFormat []string
)

const (
	FlagFormatName = "format"
)

// CreateOutputDir creates the output directory if it does not exist
func CreateOutputDir(outputDir string) error {
	err := os.MkdirAll(outputDir, 0755) // #nosec G301
	if err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

// FlagValidationError is used to report an error with a flag
func FlagValidationError(cmd *cobra.Command, msg string) error {
	err := errors.New(msg)
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	fmt.Fprintf(os.Stderr, "See '%s --help' for usage details.\n", cmd.CommandPath())
	cmd.SilenceUsage = true
	return err
}

// GetAppContext returns the AppContext stored in the root command's context.
func GetAppContext(cmd *cobra.Command) (AppContext, error) {
	root := cmd.Root()
	if root.Context() == nil {
		return AppContext{}, errors.New("application context not initialized")
	}
	appContext, ok := root.Context().Value(AppContext{}).(AppContext)
	if !ok {
		return AppContext{}, errors.New("application context not initialized")
	}
	return appContext, nil
}

// UsageFunc prints the command's flags by group, followed by the global flags.
func UsageFunc(cmd *cobra.Command, groups []FlagGroup) error {
	cmd.Printf("Usage: %s [flags]\n\n", cmd.CommandPath())
	if cmd.Example != "" {
		cmd.Printf("Examples:\n%s\n\n", cmd.Example)
	}
	cmd.Println("Flags:")
	for _, group := range groups {
		cmd.Printf("  %s:\n", group.GroupName)
		for _, flag := range group.Flags {
			f := cmd.Flags().Lookup(flag.Name)
			if f == nil {
				continue
			}
			flagDefault := ""
			if f.DefValue != "" && f.DefValue != "[]" && f.DefValue != "false" {
				flagDefault = fmt.Sprintf(" (default: %s)", f.DefValue)
			}
			cmd.Printf("    --%-20s %s%s\n", flag.Name, flag.Help, flagDefault)
		}
	}
	cmd.Println("\nGlobal Flags:")
	cmd.Root().PersistentFlags().VisitAll(func(pf *pflag.Flag) {
		flagDefault := ""
		if pf.DefValue != "" && pf.DefValue != "false" {
			flagDefault = fmt.Sprintf(" (default: %s)", pf.DefValue)
		}
		cmd.Printf("  --%-20s %s%s\n", pf.Name, pf.Usage, flagDefault)
	})
	return nil
}
