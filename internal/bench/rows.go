package bench

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"pciebench/internal/controller"
	"pciebench/internal/device"
	"pciebench/internal/plan"
	"pciebench/internal/report"
	"pciebench/internal/stats"
	"pciebench/internal/table"
	"pciebench/internal/util"
	"strconv"
)

// columns shared by latency and bandwidth tables
var testFields = []string{"Test", "PAT", "Cache", "HO", "DO", "WinSZ", "SZ"}

var latencyFields = append(append([]string{}, testFields...),
	"TAvg", "Avg", "Med", "Min", "Max", "95%", "99.9%",
	"TAvg(ns)", "Avg(ns)", "Med(ns)", "Min(ns)", "Max(ns)", "95%(ns)", "99.9%(ns)",
	"#outliers", "#samples",
)

var bandwidthFields = append(append([]string{}, testFields...),
	"Time(cyc)", "Time", "Bytes", "Trans", "BW(Gb/s)", "Trans/s",
)

var cdfFields = []string{"cycles", "ns", "cdf"}

// LatencyRow holds the statistics of one latency test, in cycles and nanoseconds.
type LatencyRow struct {
	Request controller.Request
	// TAvg is the elapsed time of the whole test divided by the sample count.
	TAvg    float64
	TAvgNs  float64
	Cycles  stats.Summary
	Nanos   stats.Summary
	Samples int
}

// BandwidthRow holds the throughput of one bandwidth test.
type BandwidthRow struct {
	Request          controller.Request
	Cycles           uint64
	Nanos            float64
	Bytes            int
	Transactions     int
	GigabitsPerSec   float64
	TransactionsPerS float64
}

// journalCycles converts journal ticks to cycles.
func journalCycles(samples []uint32) []uint64 {
	cycles := make([]uint64, len(samples))
	for i, s := range samples {
		cycles[i] = uint64(s) * controller.CyclesPerTick
	}
	return cycles
}

// NewLatencyRow reduces the result of a latency test.
func NewLatencyRow(profile device.Profile, req controller.Request, result controller.Result) LatencyRow {
	cycles := stats.Summarize(journalCycles(result.Samples))
	row := LatencyRow{
		Request: req,
		Cycles:  cycles,
		Nanos:   cycles.Nanoseconds(profile.ClockHz),
		Samples: result.SampleCount,
	}
	if result.SampleCount > 0 {
		row.TAvg = float64(result.ElapsedCycles) / float64(result.SampleCount)
		row.TAvgNs = profile.CyclesToNanoseconds(row.TAvg)
	}
	return row
}

// NewBandwidthRow reduces the result of a bandwidth test. A read/write test
// counts each read and write, so its transactions are halved.
func NewBandwidthRow(profile device.Profile, req controller.Request, result controller.Result) BandwidthRow {
	trans := result.SampleCount
	if req.Kind == controller.DmaReadWrite {
		trans /= 2
	}
	row := BandwidthRow{
		Request:      req,
		Cycles:       result.ElapsedCycles,
		Nanos:        profile.CyclesToNanoseconds(float64(result.ElapsedCycles)),
		Bytes:        trans * req.TransactionBytes,
		Transactions: trans,
	}
	if row.Nanos > 0 {
		row.GigabitsPerSec = 8 * float64(row.Bytes) / row.Nanos
		row.TransactionsPerS = float64(trans) / (row.Nanos / 1e9)
	}
	return row
}

func testValues(req controller.Request) []string {
	return []string{
		req.Kind.String(),
		plan.AccessLabel(req.Flags),
		plan.CacheLabel(req.Flags),
		strconv.Itoa(req.HostOffset),
		strconv.Itoa(req.DeviceOffset),
		util.SizeString(req.WindowBytes),
		strconv.Itoa(req.TransactionBytes),
	}
}

// whole truncates like an integer column
func whole(f float64) string {
	return strconv.FormatInt(int64(f), 10)
}

func summaryValues(s stats.Summary, tavg float64) []string {
	return []string{
		fmt.Sprintf("%.1f", tavg),
		fmt.Sprintf("%.1f", s.Avg),
		whole(s.Median),
		whole(s.Min),
		whole(s.Max),
		whole(s.P95),
		whole(s.P999),
	}
}

// Values returns the row in latency table column order.
func (r LatencyRow) Values() []string {
	values := testValues(r.Request)
	values = append(values, summaryValues(r.Cycles, r.TAvg)...)
	values = append(values, summaryValues(r.Nanos, r.TAvgNs)...)
	return append(values, strconv.Itoa(r.Cycles.Outliers), strconv.Itoa(r.Samples))
}

// Values returns the row in bandwidth table column order.
func (r BandwidthRow) Values() []string {
	return append(testValues(r.Request),
		strconv.FormatUint(r.Cycles, 10),
		util.NanosString(r.Nanos),
		util.SizeString(r.Bytes),
		strconv.Itoa(r.Transactions),
		fmt.Sprintf("%.3f", r.GigabitsPerSec),
		fmt.Sprintf("%.1f", r.TransactionsPerS),
	)
}

// cdfSectionHeader names the test a block of CDF rows belongs to.
func cdfSectionHeader(req controller.Request) string {
	cache := "cold"
	if req.Flags.Has(controller.HostWarm) {
		cache = "hwarm"
	}
	return fmt.Sprintf("test=%s trans_sz=%d win_sz=%d cache=%s", req.Kind, req.TransactionBytes, req.WindowBytes, cache)
}

// addCDF appends the distribution of one latency test to tv, starting with
// the minimum at fraction 0.
func addCDF(tv *table.TableValues, profile device.Profile, req controller.Request, cycles []uint64) error {
	points := stats.CDF(stats.Histogram(cycles))
	tv.StartSection(cdfSectionHeader(req))
	if len(points) == 0 {
		return nil
	}
	row := func(v uint64, fraction float64) error {
		return tv.AddRow(
			strconv.FormatUint(v, 10),
			fmt.Sprintf("%.0f", profile.CyclesToNanoseconds(float64(v))),
			fmt.Sprintf("%.8f", fraction),
		)
	}
	if err := row(points[0].Value, 0); err != nil {
		return err
	}
	for _, p := range points {
		if err := row(p.Value, p.Fraction); err != nil {
			return err
		}
	}
	return nil
}

// rawBlock holds the individual latencies of one test in nanoseconds, in journal order.
func rawBlock(profile device.Profile, req controller.Request, cycles []uint64) report.RawBlock {
	nanos := make([]float64, len(cycles))
	for i, c := range cycles {
		nanos[i] = profile.CyclesToNanoseconds(float64(c))
	}
	return report.RawBlock{
		Test:             req.Kind.String(),
		HostWarm:         req.Flags.Has(controller.HostWarm),
		WindowBytes:      req.WindowBytes,
		TransactionBytes: req.TransactionBytes,
		Nanos:            nanos,
	}
}
