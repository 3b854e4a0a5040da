// Package plan defines which tests a run executes: sweeps over test kinds, cache
// conditions, window and transaction sizes, and offsets. Plans come from the
// built-in suites or from a YAML file.
package plan

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"math"
	"strings"

	"github.com/casbin/govaluate"
	mapset "github.com/deckarep/golang-set/v2"

	"pciebench/internal/controller"
)

// Cold is the cache condition with no cache flag set.
const Cold controller.Flags = 0

// cache condition names, as used in plan files and reports
var cacheNames = map[string]controller.Flags{
	"cold":   Cold,
	"dwarm":  controller.Warm,
	"thrash": controller.Thrash,
	"hwarm":  controller.HostWarm,
}

// access flags that may be set on a whole sweep
var sweepFlagNames = mapset.NewSet("random", "long")

// CacheLabel names the cache condition of flags as printed in reports.
func CacheLabel(flags controller.Flags) string {
	switch {
	case flags.Has(controller.HostWarm):
		return "HWarm"
	case flags.Has(controller.Thrash):
		return "DThrash"
	case flags.Has(controller.Warm):
		return "DWarm"
	}
	return "Cold"
}

// AccessLabel names the access pattern of flags as printed in reports.
func AccessLabel(flags controller.Flags) string {
	if flags.Has(controller.Random) {
		return "Rand"
	}
	return "Seq"
}

// Size is a byte count, either fixed or computed from an expression. Expressions may
// use KiB, MiB, GiB, and SZ (the transaction size of the point being generated).
type Size struct {
	Bytes int
	Expr  *govaluate.EvaluableExpression
}

// Bytes returns a fixed size.
func Bytes(n int) Size {
	return Size{Bytes: n}
}

func sizes(ns ...int) []Size {
	s := make([]Size, len(ns))
	for i, n := range ns {
		s[i] = Bytes(n)
	}
	return s
}

// ParseSize parses a size expression such as "4096", "1.5 * MiB" or "SZ".
func ParseSize(expr string) (Size, error) {
	e, err := govaluate.NewEvaluableExpression(expr)
	if err != nil {
		return Size{}, fmt.Errorf("invalid size expression %q: %w", expr, err)
	}
	for _, v := range e.Vars() {
		if _, ok := sizeParams(0)[v]; !ok {
			return Size{}, fmt.Errorf("invalid size expression %q: unknown variable %s", expr, v)
		}
	}
	return Size{Expr: e}, nil
}

func sizeParams(transaction int) map[string]any {
	return map[string]any{
		"KiB": float64(1 << 10),
		"MiB": float64(1 << 20),
		"GiB": float64(1 << 30),
		"SZ":  float64(transaction),
	}
}

// Eval returns the size in bytes for a point with the given transaction size.
func (s Size) Eval(transaction int) (int, error) {
	if s.Expr == nil {
		return s.Bytes, nil
	}
	v, err := s.Expr.Evaluate(sizeParams(transaction))
	if err != nil {
		return 0, fmt.Errorf("failed to evaluate size %q: %w", s.Expr.String(), err)
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("size %q is not a number: %v", s.Expr.String(), v)
	}
	if f != math.Trunc(f) || f < 0 || f > math.MaxInt32 {
		return 0, fmt.Errorf("size %q is not a whole number of bytes: %v", s.Expr.String(), f)
	}
	return int(f), nil
}

// Sweep is the cartesian product of its lists. Every point of a sweep lands in the
// table named by Table; several sweeps may share a table.
type Sweep struct {
	Table         string
	Title         string
	Kinds         []controller.Kind
	Caches        []controller.Flags // one of Cold, Warm, Thrash, HostWarm each
	Flags         controller.Flags   // Random and/or Long, applied to every point
	Windows       []Size
	Transactions  []int
	HostOffsets   []int
	DeviceOffsets []int
	// Details adds CDF and raw sample output for latency points.
	Details bool
}

// Point is one test of a sweep.
type Point struct {
	Table   string
	Title   string
	Section int // points of a section share kind and cache condition
	Details bool
	Request controller.Request
}

// Latency reports whether the sweep runs latency tests. Validate ensures all kinds agree.
func (s Sweep) Latency() bool {
	return len(s.Kinds) > 0 && s.Kinds[0].IsLatency()
}

// Validate checks the sweep is well formed. Limits that depend on the device are
// checked when each point runs.
func (s Sweep) Validate() error {
	if s.Table == "" {
		return fmt.Errorf("sweep has no table name")
	}
	if len(s.Kinds) == 0 {
		return fmt.Errorf("sweep %s: no test kinds", s.Table)
	}
	classes := mapset.NewSet[bool]()
	for _, k := range s.Kinds {
		if !k.Valid() {
			return fmt.Errorf("sweep %s: unknown test kind %d", s.Table, int32(k))
		}
		classes.Add(k.IsLatency())
	}
	if classes.Cardinality() > 1 {
		return fmt.Errorf("sweep %s: latency and bandwidth tests cannot share a sweep", s.Table)
	}
	if s.Details && !s.Latency() {
		return fmt.Errorf("sweep %s: details are only available for latency tests", s.Table)
	}
	for _, c := range s.Caches {
		if c != Cold && c != controller.Warm && c != controller.Thrash && c != controller.HostWarm {
			return fmt.Errorf("sweep %s: invalid cache condition %s", s.Table, c)
		}
	}
	if s.Flags&^(controller.Random|controller.Long) != 0 {
		return fmt.Errorf("sweep %s: only random and long may be set as sweep flags, got %s", s.Table, s.Flags)
	}
	if len(s.Windows) == 0 || len(s.Transactions) == 0 {
		return fmt.Errorf("sweep %s: windows and transactions must not be empty", s.Table)
	}
	return nil
}

func orZero(s []int) []int {
	if len(s) == 0 {
		return []int{0}
	}
	return s
}

// Points enumerates the sweep. Device offsets vary fastest, then host offsets,
// windows, transactions, cache conditions, and kinds.
func (s Sweep) Points() ([]Point, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	caches := s.Caches
	if len(caches) == 0 {
		caches = []controller.Flags{Cold}
	}
	var points []Point
	section := 0
	for _, kind := range s.Kinds {
		for _, cache := range caches {
			for _, trans := range s.Transactions {
				for _, win := range s.Windows {
					window, err := win.Eval(trans)
					if err != nil {
						return nil, fmt.Errorf("sweep %s: %w", s.Table, err)
					}
					for _, ho := range orZero(s.HostOffsets) {
						for _, do := range orZero(s.DeviceOffsets) {
							points = append(points, Point{
								Table:   s.Table,
								Title:   s.Title,
								Section: section,
								Details: s.Details,
								Request: controller.Request{
									Kind:             kind,
									Flags:            s.Flags | cache,
									WindowBytes:      window,
									TransactionBytes: trans,
									HostOffset:       ho,
									DeviceOffset:     do,
									CheckJournal:     kind.IsLatency(),
								},
							})
						}
					}
				}
			}
			section++
		}
	}
	return points, nil
}

// Plan is a named list of sweeps.
type Plan struct {
	Name   string
	Sweeps []Sweep
}

// Points enumerates every sweep of the plan in order. Sections are numbered across the plan.
func (p Plan) Points() ([]Point, error) {
	var all []Point
	offset := 0
	for _, s := range p.Sweeps {
		points, err := s.Points()
		if err != nil {
			return nil, err
		}
		next := offset
		for i := range points {
			points[i].Section += offset
			next = max(next, points[i].Section+1)
		}
		offset = next
		all = append(all, points...)
	}
	return all, nil
}

// Tables returns the distinct table names of the plan in first-use order.
func (p Plan) Tables() []string {
	seen := mapset.NewThreadUnsafeSet[string]()
	var tables []string
	for _, s := range p.Sweeps {
		if seen.Add(s.Table) {
			tables = append(tables, s.Table)
		}
	}
	return tables
}

func kindNames(kinds []controller.Kind) string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return strings.Join(names, ",")
}

func (s Sweep) String() string {
	return fmt.Sprintf("%s [%s] %d windows x %d transactions", s.Table, kindNames(s.Kinds), len(s.Windows), len(s.Transactions))
}
