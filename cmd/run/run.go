// Package run is a subcommand of the root command. It runs latency and bandwidth
// benchmarks on a device.
package run

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"pciebench/internal/bench"
	"pciebench/internal/common"
	"pciebench/internal/controller"
	"pciebench/internal/plan"
	"pciebench/internal/progress"
	"pciebench/internal/report"
	"pciebench/internal/table"
	"pciebench/internal/util"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

const cmdName = "run"

var examples = []string{
	fmt.Sprintf("  Run the short suite group:       $ %s %s --fw pciebench.nffw", common.AppName, cmdName),
	fmt.Sprintf("  Run selected suites:             $ %s %s --fw pciebench.nffw --suite lat-dma,bw-dma-sz", common.AppName, cmdName),
	fmt.Sprintf("  Run a plan file as csv only:     $ %s %s --fw pciebench.nffw --plan plan.yaml --format csv", common.AppName, cmdName),
	fmt.Sprintf("  Export results to Prometheus:    $ %s %s --fw pciebench.nffw --prometheus-server :9090", common.AppName, cmdName),
	fmt.Sprintf("  List the built-in suites:        $ %s %s --list", common.AppName, cmdName),
}

var Cmd = &cobra.Command{
	Use:           cmdName,
	Aliases:       []string{"bench"},
	Short:         "Run PCIe latency and bandwidth benchmarks on a device",
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	PreRunE:       validateFlags,
	GroupID:       "primary",
	Args:          cobra.NoArgs,
	SilenceErrors: true,
}

// flag vars
var (
	flagFirmware         string
	flagSuites           []string
	flagPlan             string
	flagList             bool
	flagPollInterval     time.Duration
	flagPollTimeout      time.Duration
	flagKeepGoing        bool
	flagPrometheusServer string
)

// flag names
const (
	flagFirmwareName         = "fw"
	flagSuiteName            = "suite"
	flagPlanName             = "plan"
	flagListName             = "list"
	flagPollIntervalName     = "poll-interval"
	flagPollTimeoutName      = "poll-timeout"
	flagKeepGoingName        = "keep-going"
	flagPrometheusServerName = "prometheus-server"
)

// simulated devices complete immediately
const simulatedPollInterval = time.Millisecond

func init() {
	Cmd.Flags().StringVar(&flagFirmware, flagFirmwareName, "", "")
	Cmd.Flags().StringSliceVar(&flagSuites, flagSuiteName, []string{"short"}, "")
	Cmd.Flags().StringVar(&flagPlan, flagPlanName, "", "")
	Cmd.Flags().BoolVar(&flagList, flagListName, false, "")
	Cmd.Flags().DurationVar(&flagPollInterval, flagPollIntervalName, controller.DefaultPollInterval, "")
	Cmd.Flags().DurationVar(&flagPollTimeout, flagPollTimeoutName, 0, "")
	Cmd.Flags().BoolVar(&flagKeepGoing, flagKeepGoingName, false, "")
	Cmd.Flags().StringVar(&flagPrometheusServer, flagPrometheusServerName, "", "")
	Cmd.Flags().StringSliceVar(&common.FlagFormat, common.FlagFormatName, []string{report.FormatAll}, "")
	common.AddDeviceFlags(Cmd)
	Cmd.MarkFlagsMutuallyExclusive(flagSuiteName, flagPlanName)
	Cmd.SetUsageFunc(usageFunc)
}

func usageFunc(cmd *cobra.Command) error {
	return common.UsageFunc(cmd, getFlagGroups())
}

func getFlagGroups() []common.FlagGroup {
	var groups []common.FlagGroup
	groups = append(groups, common.FlagGroup{
		GroupName: "Benchmark Options",
		Flags: []common.Flag{
			{Name: flagFirmwareName, Help: "firmware image loaded before every test (required unless --simulate)"},
			{Name: flagSuiteName, Help: fmt.Sprintf("built-in suite(s) or group(s) to run: %s", strings.Join(plan.SuiteNames(), ", "))},
			{Name: flagPlanName, Help: "YAML plan file to run instead of built-in suites"},
			{Name: flagListName, Help: "list the sweeps of the selected suites or plan and exit"},
			{Name: flagKeepGoingName, Help: "skip test points the device rejects instead of stopping"},
		},
	})
	groups = append(groups, common.FlagGroup{
		GroupName: "Polling Options",
		Flags: []common.Flag{
			{Name: flagPollIntervalName, Help: "time between test completion checks"},
			{Name: flagPollTimeoutName, Help: "give up on a test after this long, 0 to wait forever"},
		},
	})
	groups = append(groups, common.GetDeviceFlagGroup())
	groups = append(groups, common.FlagGroup{
		GroupName: "Output Options",
		Flags: []common.Flag{
			{Name: common.FlagFormatName, Help: fmt.Sprintf("choose output format(s) from: %s", strings.Join(append([]string{report.FormatAll}, report.FormatOptions...), ", "))},
			{Name: flagPrometheusServerName, Help: "serve results as Prometheus metrics on this address while running, e.g., :9090"},
		},
	})
	return groups
}

func validateFlags(cmd *cobra.Command, args []string) error {
	if err := common.ValidateDeviceFlags(cmd); err != nil {
		return common.FlagValidationError(cmd, err.Error())
	}
	simulate, _ := cmd.Flags().GetBool(common.FlagSimulateName)
	if flagFirmware == "" && !simulate && !flagList {
		return common.FlagValidationError(cmd, fmt.Sprintf("--%s is required", flagFirmwareName))
	}
	if flagPlan != "" {
		exists, err := util.FileExists(flagPlan)
		if err != nil || !exists {
			return common.FlagValidationError(cmd, fmt.Sprintf("plan file %s does not exist", flagPlan))
		}
	}
	if flagPollInterval <= 0 {
		return common.FlagValidationError(cmd, fmt.Sprintf("--%s must be positive", flagPollIntervalName))
	}
	if flagPollTimeout < 0 {
		return common.FlagValidationError(cmd, fmt.Sprintf("--%s must not be negative", flagPollTimeoutName))
	}
	if _, err := report.ExpandFormats(common.FlagFormat); err != nil {
		return common.FlagValidationError(cmd, err.Error())
	}
	return nil
}

func loadPlan() (plan.Plan, error) {
	if flagPlan != "" {
		return plan.Load(flagPlan)
	}
	return plan.Builtin(flagSuites...)
}

func listPlan(p plan.Plan) error {
	points, err := p.Points()
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d sweeps, %d test points\n", p.Name, len(p.Sweeps), len(points))
	for _, sweep := range p.Sweeps {
		fmt.Printf("  %s\n", sweep)
	}
	return nil
}

// reportError prints err, logs it and silences usage output.
func reportError(cmd *cobra.Command, err error) error {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	slog.Error(err.Error())
	cmd.SilenceUsage = true
	return err
}

func runCmd(cmd *cobra.Command, args []string) error {
	appContext, err := common.GetAppContext(cmd)
	if err != nil {
		return reportError(cmd, err)
	}
	benchPlan, err := loadPlan()
	if err != nil {
		return reportError(cmd, err)
	}
	if flagList {
		if err := listPlan(benchPlan); err != nil {
			return reportError(cmd, err)
		}
		return nil
	}
	formats, err := report.ExpandFormats(common.FlagFormat)
	if err != nil {
		return reportError(cmd, err)
	}
	// canceling the context stops polling and any running device command
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dev, err := common.OpenDevice(ctx)
	if err != nil {
		return reportError(cmd, fmt.Errorf("failed to probe device: %w", err))
	}
	opts := controller.Options{
		Firmware:     flagFirmware,
		PollInterval: flagPollInterval,
		PollTimeout:  flagPollTimeout,
	}
	if dev.Simulated {
		if opts.Firmware == "" {
			opts.Firmware = "simulated.nffw"
		}
		if !cmd.Flags().Changed(flagPollIntervalName) {
			opts.PollInterval = simulatedPollInterval
		}
	}
	ctrl, err := controller.New(dev.Profile, dev.Transport, dev.Descriptors, dev.Conditioner, opts)
	if err != nil {
		return reportError(cmd, err)
	}

	benchOpts := bench.Options{RunID: appContext.RunID, KeepGoing: flagKeepGoing}
	if flagPrometheusServer != "" {
		registry := prometheus.NewRegistry()
		if benchOpts.Metrics, err = bench.NewMetrics(registry); err != nil {
			return reportError(cmd, err)
		}
		server := bench.StartPrometheusServer(flagPrometheusServer, registry)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				slog.Warn("failed to stop Prometheus server", slog.String("error", err.Error()))
			}
		}()
	}

	// setup and start the progress indicator
	multiSpinner := progress.NewMultiSpinner()
	for _, tableName := range benchPlan.Tables() {
		if err := multiSpinner.AddSpinner(tableName); err != nil {
			return reportError(cmd, err)
		}
	}
	benchOpts.Progress = multiSpinner.Status
	multiSpinner.Start()
	results, runErr := bench.Run(ctx, ctrl, benchPlan, benchOpts)
	multiSpinner.Finish()
	fmt.Println()
	if results == nil {
		return reportError(cmd, runErr)
	}

	// write whatever completed, even if the run stopped early
	reportFilePaths, err := writeResults(appContext.OutputDir, formats, results, dev)
	if err != nil {
		return reportError(cmd, err)
	}
	summary, err := report.Create(report.FormatTxt, []table.TableValues{results.SummaryTable(dev.Profile)})
	if err == nil {
		fmt.Print(string(summary))
	}
	if len(reportFilePaths) > 0 {
		fmt.Println("Report files:")
	}
	for _, reportFilePath := range reportFilePaths {
		fmt.Printf("  %s\n", reportFilePath)
	}
	if runErr != nil {
		return reportError(cmd, runErr)
	}
	return nil
}

func writeResults(outputDir string, formats []string, results *bench.Results, dev *common.Device) ([]string, error) {
	if err := common.CreateOutputDir(outputDir); err != nil {
		return nil, err
	}
	allTableValues := append([]table.TableValues{results.SummaryTable(dev.Profile)}, results.Tables...)
	paths, err := report.WriteTables(outputDir, formats, allTableValues)
	if err != nil {
		return paths, err
	}
	for _, name := range results.RawTables() {
		path := filepath.Join(outputDir, util.SanitizeFileName(name)+"."+report.FormatDat)
		f, err := os.Create(path) // #nosec G304
		if err != nil {
			return paths, fmt.Errorf("failed to create raw sample file: %w", err)
		}
		err = report.WriteRaw(f, results.Raw[name]...)
		closeErr := f.Close()
		if err != nil {
			return paths, err
		}
		if closeErr != nil {
			return paths, closeErr
		}
		paths = append(paths, path)
	}
	return paths, nil
}
