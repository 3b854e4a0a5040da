// Package device resolves the accelerator generation and the generation specific
// binding names and limits used to talk to the test firmware.
package device

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// Generation is the accelerator hardware family.
type Generation int

const (
	GenNFP6000 Generation = iota // NFP-6000 and NFP-4000 parts
	GenNFP3200
)

func (g Generation) String() string {
	switch g {
	case GenNFP6000:
		return "NFP-6000"
	case GenNFP3200:
		return "NFP-3200"
	}
	return fmt.Sprintf("Generation(%d)", int(g))
}

// Bindings holds the firmware run-time symbol names used by the test protocol.
type Bindings struct {
	Control  string
	Params   string
	Result   string
	DMAAddrs string
	Journal  string
}

// generationSpec is what a generation carries: its binding names and transaction ceiling.
type generationSpec struct {
	bindings            Bindings
	maxTransactionBytes int
}

var generationSpecs = map[Generation]generationSpec{
	GenNFP6000: {
		bindings: Bindings{
			Control:  "i32._test_ctrl",
			Params:   "i32._test_params",
			Result:   "i32._test_result",
			DMAAddrs: "i32._host_dma_addrs",
			Journal:  "test_journal",
		},
		maxTransactionBytes: 4096,
	},
	GenNFP3200: {
		bindings: Bindings{
			Control:  "cl1._test_ctrl",
			Params:   "cl1._test_params",
			Result:   "cl1._test_result",
			DMAAddrs: "cl1._host_dma_addrs",
			Journal:  "_test_journal",
		},
		maxTransactionBytes: 2048,
	},
}

// hardware info keys
const (
	HWInfoClockMHz = "me.speed"
	HWInfoModel    = "chip.model"
)

// Profile describes one probed device. It is immutable once created.
type Profile struct {
	Index               int
	Model               string
	Generation          Generation
	ClockHz             int64
	Bindings            Bindings
	MaxTransactionBytes int
}

// NewProfile builds the profile for a known generation.
func NewProfile(index int, model string, gen Generation, clockHz int64) (Profile, error) {
	spec, ok := generationSpecs[gen]
	if !ok {
		return Profile{}, fmt.Errorf("unknown device generation: %v", gen)
	}
	return Profile{
		Index:               index,
		Model:               model,
		Generation:          gen,
		ClockHz:             clockHz,
		Bindings:            spec.bindings,
		MaxTransactionBytes: spec.maxTransactionBytes,
	}, nil
}

// CyclesToNanoseconds converts device cycles to nanoseconds at the profile's clock rate.
func (p Profile) CyclesToNanoseconds(cycles float64) float64 {
	if p.ClockHz == 0 {
		return 0
	}
	return cycles * 1e9 / float64(p.ClockHz)
}

// HWInfoSource is anything that can report the device's hardware info as key/value pairs.
type HWInfoSource interface {
	HWInfo(ctx context.Context) (map[string]string, error)
	DeviceIndex() int
}

// GenerationForModel maps a chip model string to its generation.
func GenerationForModel(model string) Generation {
	if strings.HasPrefix(model, "NFP6") || strings.HasPrefix(model, "NFP4") {
		return GenNFP6000
	}
	return GenNFP3200
}

// Probe queries the device's hardware info and resolves its profile.
func Probe(ctx context.Context, src HWInfoSource) (Profile, error) {
	hwinfo, err := src.HWInfo(ctx)
	if err != nil {
		return Profile{}, &ProbeError{Reason: "hardware info unavailable", Err: err}
	}
	speed, ok := hwinfo[HWInfoClockMHz]
	if !ok || strings.TrimSpace(speed) == "" {
		return Profile{}, &ProbeError{Reason: fmt.Sprintf("%s missing from hardware info", HWInfoClockMHz)}
	}
	mhz, err := strconv.ParseInt(strings.TrimSpace(speed), 10, 64)
	if err != nil || mhz <= 0 {
		return Profile{}, &ProbeError{Reason: fmt.Sprintf("invalid clock speed %q", speed), Err: err}
	}
	model := strings.TrimSpace(hwinfo[HWInfoModel])
	profile, err := NewProfile(src.DeviceIndex(), model, GenerationForModel(model), mhz*1000*1000)
	if err != nil {
		return Profile{}, &ProbeError{Reason: "profile", Err: err}
	}
	slog.Debug("probed device", slog.Int("index", profile.Index), slog.String("model", model), slog.String("generation", profile.Generation.String()), slog.Int64("clockHz", profile.ClockHz))
	return profile, nil
}

// ParseHWInfo parses key=value lines, as printed by the hardware info tool.
// Blank lines are skipped. Values keep everything after the first '='.
func ParseHWInfo(out string) map[string]string {
	hwinfo := make(map[string]string)
	for line := range strings.SplitSeq(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, val, _ := strings.Cut(line, "=")
		hwinfo[key] = val
	}
	return hwinfo
}

// ProbeError reports that the device's hardware info could not be obtained or parsed.
type ProbeError struct {
	Reason string
	Err    error
}

func (e *ProbeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("device probe failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("device probe failed: %s", e.Reason)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}
