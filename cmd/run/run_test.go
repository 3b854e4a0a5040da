package run

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pciebench/internal/bench"
	"pciebench/internal/common"
	"pciebench/internal/controller"
	"pciebench/internal/device"
	"pciebench/internal/plan"
	"pciebench/internal/report"
	"pciebench/internal/simulator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simulatedDevice(t *testing.T) *common.Device {
	t.Helper()
	sim := simulator.NewDevice(0, common.SimulatedModel, common.SimulatedClockMHz)
	sim.Samples = 50
	host := simulator.NewHost(simulator.DefaultDescriptor())
	profile, err := device.Probe(context.Background(), sim)
	require.NoError(t, err)
	return &common.Device{Profile: profile, Transport: sim, Descriptors: host, Conditioner: host, Simulated: true}
}

func TestWriteResults(t *testing.T) {
	dev := simulatedDevice(t)
	ctrl, err := controller.New(dev.Profile, dev.Transport, dev.Descriptors, dev.Conditioner, controller.Options{
		Firmware:     "simulated.nffw",
		PollInterval: time.Millisecond,
	})
	require.NoError(t, err)
	p := plan.Plan{Name: "unit", Sweeps: []plan.Sweep{{
		Table:        "lat_details",
		Kinds:        []controller.Kind{controller.CmdRead},
		Caches:       []controller.Flags{plan.Cold, controller.HostWarm},
		Flags:        controller.Random | controller.Long,
		Windows:      []plan.Size{plan.Bytes(8192)},
		Transactions: []int{8},
		Details:      true,
	}}}
	results, err := bench.Run(context.Background(), ctrl, p, bench.Options{RunID: "unit"})
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "out")
	paths, err := writeResults(dir, []string{report.FormatTxt, report.FormatCsv}, results, dev)
	require.NoError(t, err)
	names := make([]string, len(paths))
	for i, path := range paths {
		names[i] = filepath.Base(path)
	}
	assert.Equal(t, []string{
		"Run_Summary.txt", "Run_Summary.csv",
		"lat_details.txt", "lat_details.csv",
		"lat_details_cdf.txt", "lat_details_cdf.csv",
		"lat_details_raw.dat",
	}, names)

	raw, err := os.ReadFile(filepath.Join(dir, "lat_details_raw.dat"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "# LAT_CMD_RD Cold Winsz=8192 trans_sz=8 (values in ns)\n"))
	assert.Contains(t, string(raw), "# LAT_CMD_RD Warm Winsz=8192 trans_sz=8 (values in ns)\n")
	// long runs record four times the samples
	assert.Equal(t, 2*(1+200+2), strings.Count(string(raw), "\n"))
}

func TestListPlan(t *testing.T) {
	p, err := plan.Builtin("lat-cmd")
	require.NoError(t, err)
	assert.NoError(t, listPlan(p))
}

func TestFlagGroupsNameRegisteredFlags(t *testing.T) {
	for _, group := range getFlagGroups() {
		for _, flag := range group.Flags {
			assert.NotNil(t, Cmd.Flags().Lookup(flag.Name), "flag %s", flag.Name)
		}
	}
}
