package common

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"fmt"
	"log/slog"
	"pciebench/internal/controller"
	"pciebench/internal/device"
	"pciebench/internal/hostmem"
	"pciebench/internal/simulator"
	"pciebench/internal/target"
	"pciebench/internal/transport"

	"github.com/spf13/cobra"
)

// device flags
var (
	flagNFP        int
	flagCmdTimeout int
	flagProcRoot   string
	flagSimulate   bool
)

// device flag names
const (
	FlagNFPName        = "nfp"
	FlagCmdTimeoutName = "cmd-timeout"
	FlagProcRootName   = "proc-root"
	FlagSimulateName   = "simulate"
)

// simulated device defaults
const (
	SimulatedModel    = "NFP6000-B0"
	SimulatedClockMHz = 1200
)

var deviceFlags = []Flag{
	{Name: FlagNFPName, Help: "index of the device to use"},
	{Name: FlagCmdTimeoutName, Help: "timeout in seconds for each device tool command, 0 for no timeout"},
	{Name: FlagProcRootName, Help: "directory holding the host buffer driver files"},
	{Name: FlagSimulateName, Help: "use a simulated device instead of real hardware"},
}

func AddDeviceFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&flagNFP, FlagNFPName, 0, deviceFlags[0].Help)
	cmd.Flags().IntVar(&flagCmdTimeout, FlagCmdTimeoutName, 30, deviceFlags[1].Help)
	cmd.Flags().StringVar(&flagProcRoot, FlagProcRootName, hostmem.DefaultProcRoot, deviceFlags[2].Help)
	cmd.Flags().BoolVar(&flagSimulate, FlagSimulateName, false, deviceFlags[3].Help)
}

func GetDeviceFlagGroup() FlagGroup {
	return FlagGroup{
		GroupName: "Device Options",
		Flags:     deviceFlags,
	}
}

func ValidateDeviceFlags(cmd *cobra.Command) error {
	if flagNFP < 0 {
		return fmt.Errorf("--%s must not be negative", FlagNFPName)
	}
	if flagCmdTimeout < 0 {
		return fmt.Errorf("--%s must not be negative", FlagCmdTimeoutName)
	}
	if flagSimulate && cmd.Flags().Changed(FlagProcRootName) {
		return fmt.Errorf("--%s cannot be used with --%s", FlagProcRootName, FlagSimulateName)
	}
	return nil
}

// Device bundles what a controller needs to drive one accelerator.
type Device struct {
	Profile     device.Profile
	Transport   transport.Transport
	Descriptors controller.DescriptorSource
	Conditioner controller.Conditioner
	Simulated   bool
}

// OpenDevice probes the device selected by the device flags.
func OpenDevice(ctx context.Context) (*Device, error) {
	d := &Device{Simulated: flagSimulate}
	if flagSimulate {
		sim := simulator.NewDevice(flagNFP, SimulatedModel, SimulatedClockMHz)
		host := simulator.NewHost(simulator.DefaultDescriptor())
		d.Transport = sim
		d.Descriptors = host
		d.Conditioner = host
	} else {
		nfp := transport.NewNFP(target.NewLocalTarget(), flagNFP, flagCmdTimeout)
		d.Transport = nfp
		d.Descriptors = hostmem.ProcDescriptors{Root: flagProcRoot, Index: flagNFP}
		d.Conditioner = hostmem.NewBufferConditioner(flagProcRoot, flagNFP)
	}
	profile, err := device.Probe(ctx, d.Transport)
	if err != nil {
		return nil, err
	}
	d.Profile = profile
	slog.Info("probed device", slog.Int("index", profile.Index), slog.String("model", profile.Model), slog.String("generation", profile.Generation.String()), slog.Int64("clockHz", profile.ClockHz), slog.Bool("simulated", d.Simulated))
	return d, nil
}
