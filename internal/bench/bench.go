// Package bench runs benchmark plans on a device and shapes the results into tables.
package bench

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"pciebench/internal/controller"
	"pciebench/internal/device"
	"pciebench/internal/plan"
	"pciebench/internal/progress"
	"pciebench/internal/report"
	"pciebench/internal/table"
	"time"

	"github.com/rs/xid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// table name suffixes of the detail outputs
const (
	CDFSuffix = "_cdf"
	RawSuffix = "_raw"
)

// SummaryTableName is the name of the run summary table.
const SummaryTableName = "Run Summary"

// Runner runs single tests. *controller.Controller is the production Runner.
type Runner interface {
	RunTest(ctx context.Context, req controller.Request) (controller.Result, error)
	Profile() device.Profile
}

// Options configure a benchmark run.
type Options struct {
	RunID string // generated when empty
	// KeepGoing skips points the device rejects or that are invalid for the
	// device instead of ending the run.
	KeepGoing bool
	Metrics   *Metrics
	// Progress, if set, receives a status per table. The label is the table name.
	Progress progress.MultiSpinnerUpdateFunc
}

// Results are the tables produced by a run, in plan order.
type Results struct {
	RunID   string
	Plan    string
	Tables  []table.TableValues
	Raw     map[string][]report.RawBlock // keyed by table name
	Points  int
	Failed  int
	Samples int
	Elapsed time.Duration
}

// RawTables returns the names of raw sample dumps in plan order.
func (r *Results) RawTables() []string {
	var names []string
	for _, tv := range r.Tables {
		if _, ok := r.Raw[tv.Name+RawSuffix]; ok {
			names = append(names, tv.Name+RawSuffix)
		}
	}
	return names
}

// tableSet accumulates the output tables of a run.
type tableSet struct {
	order   []string
	tables  map[string]*table.TableValues
	section map[string]int // last plan section seen per table
}

func (ts *tableSet) get(name string) *table.TableValues {
	return ts.tables[name]
}

func (ts *tableSet) add(tv *table.TableValues) {
	ts.order = append(ts.order, tv.Name)
	ts.tables[tv.Name] = tv
	ts.section[tv.Name] = -1
}

// newTableSet creates the tables of p in first-use order. A table's detail
// tables follow it.
func newTableSet(points []plan.Point) (*tableSet, error) {
	ts := &tableSet{tables: make(map[string]*table.TableValues), section: make(map[string]int)}
	latency := make(map[string]bool)
	for _, p := range points {
		isLatency := p.Request.Kind.IsLatency()
		if tv := ts.get(p.Table); tv != nil {
			if latency[p.Table] != isLatency {
				return nil, fmt.Errorf("table %s mixes latency and bandwidth tests", p.Table)
			}
		} else {
			fields := bandwidthFields
			if isLatency {
				fields = latencyFields
			}
			latency[p.Table] = isLatency
			ts.add(table.New(table.TableDefinition{
				Name:        p.Table,
				Title:       p.Title,
				HasRows:     true,
				NoDataFound: "No test completed.",
			}, fields...))
		}
		if p.Details && ts.get(p.Table+CDFSuffix) == nil {
			ts.add(table.New(table.TableDefinition{
				Name:    p.Table + CDFSuffix,
				Title:   p.Title + " (latency distribution)",
				HasRows: true,
			}, cdfFields...))
		}
	}
	return ts, nil
}

func (ts *tableSet) values() []table.TableValues {
	out := make([]table.TableValues, 0, len(ts.order))
	for _, name := range ts.order {
		out = append(out, *ts.tables[name])
	}
	return out
}

// skippable reports whether a point failure may be skipped with KeepGoing.
func skippable(err error) bool {
	var protocolErr *controller.DeviceProtocolError
	var configErr *controller.ConfigurationError
	return errors.As(err, &protocolErr) || errors.As(err, &configErr)
}

// Run runs every point of p in order. On error the results collected so far
// are returned with it.
func Run(ctx context.Context, runner Runner, p plan.Plan, opts Options) (*Results, error) {
	start := time.Now()
	points, err := p.Points()
	if err != nil {
		return nil, err
	}
	ts, err := newTableSet(points)
	if err != nil {
		return nil, err
	}
	runID := opts.RunID
	if runID == "" {
		runID = xid.New().String()
	}
	results := &Results{RunID: runID, Plan: p.Name, Raw: make(map[string][]report.RawBlock)}
	defer func() {
		results.Tables = ts.values()
		results.Elapsed = time.Since(start)
	}()

	totals := make(map[string]int)
	for _, point := range points {
		totals[point.Table]++
	}
	done := make(map[string]int)
	profile := runner.Profile()
	slog.Info("starting benchmark run", slog.String("runID", runID), slog.String("plan", p.Name), slog.Int("points", len(points)))
	for _, point := range points {
		req := point.Request
		done[point.Table]++
		status(opts, point.Table, fmt.Sprintf("%d/%d %s %s win=%d sz=%d", done[point.Table], totals[point.Table], req.Kind, plan.CacheLabel(req.Flags), req.WindowBytes, req.TransactionBytes))
		results.Points++
		result, err := runner.RunTest(ctx, req)
		if err != nil {
			opts.Metrics.observeFailure()
			if opts.KeepGoing && skippable(err) {
				results.Failed++
				slog.Warn("skipping test point", slog.String("table", point.Table), slog.String("kind", req.Kind.String()), slog.String("error", err.Error()))
				continue
			}
			status(opts, point.Table, "failed")
			return results, fmt.Errorf("%s %s: %w", point.Table, req.Kind, err)
		}
		tv := ts.get(point.Table)
		if ts.section[point.Table] != point.Section {
			tv.StartSection("")
			ts.section[point.Table] = point.Section
		}
		if req.Kind.IsLatency() {
			row := NewLatencyRow(profile, req, result)
			if err := tv.AddRow(row.Values()...); err != nil {
				return results, err
			}
			opts.Metrics.observeLatency(point, row)
			results.Samples += len(result.Samples)
			if point.Details {
				cycles := journalCycles(result.Samples)
				if err := addCDF(ts.get(point.Table+CDFSuffix), profile, req, cycles); err != nil {
					return results, err
				}
				results.Raw[point.Table+RawSuffix] = append(results.Raw[point.Table+RawSuffix], rawBlock(profile, req, cycles))
			}
		} else {
			row := NewBandwidthRow(profile, req, result)
			if err := tv.AddRow(row.Values()...); err != nil {
				return results, err
			}
			opts.Metrics.observeBandwidth(point, row)
		}
		if done[point.Table] == totals[point.Table] {
			status(opts, point.Table, "done")
		}
	}
	slog.Info("benchmark run finished", slog.String("runID", runID), slog.Int("points", results.Points), slog.Int("failed", results.Failed))
	return results, nil
}

func status(opts Options, label, s string) {
	if opts.Progress == nil {
		return
	}
	if err := opts.Progress(label, s); err != nil {
		slog.Debug("failed to update progress", slog.String("table", label), slog.String("error", err.Error()))
	}
}

// SummaryTable describes the run and the device it ran on.
func (r *Results) SummaryTable(profile device.Profile) table.TableValues {
	p := message.NewPrinter(language.English) // thousands separators, e.g., 1,234,567
	tv := table.New(table.TableDefinition{Name: SummaryTableName},
		"Run ID", "Plan", "Device", "Clock (MHz)", "Points", "Failed Points", "Samples", "Duration")
	_ = tv.AddRow(
		r.RunID,
		r.Plan,
		fmt.Sprintf("%s (%s, nfp %d)", profile.Model, profile.Generation, profile.Index),
		p.Sprintf("%d", profile.ClockHz/1_000_000),
		p.Sprintf("%d", r.Points),
		p.Sprintf("%d", r.Failed),
		p.Sprintf("%d", r.Samples),
		r.Elapsed.Round(time.Millisecond).String(),
	)
	return *tv
}
