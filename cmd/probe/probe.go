// Package probe is a subcommand of the root command. It reports the identity of a device.
package probe

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"pciebench/internal/common"
	"pciebench/internal/device"
	"pciebench/internal/report"
	"pciebench/internal/table"

	"github.com/spf13/cobra"
)

const cmdName = "probe"

// DeviceTableName is the name of the table describing the device.
const DeviceTableName = "Device"

var examples = []string{
	fmt.Sprintf("  Show the first device:      $ %s %s", common.AppName, cmdName),
	fmt.Sprintf("  Show device 1 as json:      $ %s %s --nfp 1 --format json", common.AppName, cmdName),
}

var Cmd = &cobra.Command{
	Use:           cmdName,
	Short:         "Show model, clock and binding names of a device",
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	PreRunE:       validateFlags,
	GroupID:       "primary",
	Args:          cobra.NoArgs,
	SilenceErrors: true,
}

var flagFormat string

var probeFormats = []string{report.FormatTxt, report.FormatCsv, report.FormatDat, report.FormatJson}

func init() {
	Cmd.Flags().StringVar(&flagFormat, common.FlagFormatName, report.FormatTxt, "")
	common.AddDeviceFlags(Cmd)
	Cmd.SetUsageFunc(usageFunc)
}

func usageFunc(cmd *cobra.Command) error {
	return common.UsageFunc(cmd, getFlagGroups())
}

func getFlagGroups() []common.FlagGroup {
	return []common.FlagGroup{
		common.GetDeviceFlagGroup(),
		{
			GroupName: "Output Options",
			Flags: []common.Flag{
				{Name: common.FlagFormatName, Help: fmt.Sprintf("choose output format from: %s", strings.Join(probeFormats, ", "))},
			},
		},
	}
}

func validateFlags(cmd *cobra.Command, args []string) error {
	if err := common.ValidateDeviceFlags(cmd); err != nil {
		return common.FlagValidationError(cmd, err.Error())
	}
	switch flagFormat {
	case report.FormatTxt, report.FormatCsv, report.FormatDat, report.FormatJson:
	default:
		return common.FlagValidationError(cmd, fmt.Sprintf("format options are: %s", strings.Join(probeFormats, ", ")))
	}
	return nil
}

// DeviceTable describes a probed device.
func DeviceTable(profile device.Profile) table.TableValues {
	tv := table.New(table.TableDefinition{Name: DeviceTableName},
		"Index", "Model", "Generation", "Clock (MHz)", "Max Transaction (bytes)",
		"Control", "Params", "Result", "DMA Addresses", "Journal")
	_ = tv.AddRow(
		strconv.Itoa(profile.Index),
		profile.Model,
		profile.Generation.String(),
		strconv.FormatInt(profile.ClockHz/1_000_000, 10),
		strconv.Itoa(profile.MaxTransactionBytes),
		profile.Bindings.Control,
		profile.Bindings.Params,
		profile.Bindings.Result,
		profile.Bindings.DMAAddrs,
		profile.Bindings.Journal,
	)
	return *tv
}

func runCmd(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	dev, err := common.OpenDevice(ctx)
	if err != nil {
		err = fmt.Errorf("failed to probe device: %w", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		slog.Error(err.Error())
		cmd.SilenceUsage = true
		return err
	}
	out, err := report.Create(flagFormat, []table.TableValues{DeviceTable(dev.Profile)})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		slog.Error(err.Error())
		cmd.SilenceUsage = true
		return err
	}
	fmt.Print(string(out))
	if flagFormat == report.FormatJson {
		fmt.Println()
	}
	return nil
}
