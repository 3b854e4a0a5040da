package plan

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"gopkg.in/yaml.v2"

	"pciebench/internal/controller"
)

type sweepFromYAML struct {
	Table         string   `yaml:"table"`
	Title         string   `yaml:"title"`
	Kinds         []string `yaml:"kinds"`
	Cache         []string `yaml:"cache"`
	Flags         []string `yaml:"flags"`
	Windows       []any    `yaml:"windows"`
	Transactions  []any    `yaml:"transactions"`
	HostOffsets   []int    `yaml:"host_offsets"`
	DeviceOffsets []int    `yaml:"device_offsets"`
	Details       bool     `yaml:"details"`
}

type planFile struct {
	Name   string          `yaml:"name"`
	Sweeps []sweepFromYAML `yaml:"sweeps"`
}

// Load reads a plan file.
func Load(path string) (Plan, error) {
	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return Plan{}, fmt.Errorf("failed to read plan file: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return Plan{}, fmt.Errorf("plan file %s: %w", path, err)
	}
	return p, nil
}

// Parse decodes a plan from YAML.
func Parse(data []byte) (Plan, error) {
	var pf planFile
	if err := yaml.UnmarshalStrict(data, &pf); err != nil {
		return Plan{}, err
	}
	if len(pf.Sweeps) == 0 {
		return Plan{}, fmt.Errorf("plan has no sweeps")
	}
	p := Plan{Name: pf.Name}
	if p.Name == "" {
		p.Name = "plan"
	}
	for i, sy := range pf.Sweeps {
		s, err := sy.sweep()
		if err != nil {
			return Plan{}, fmt.Errorf("sweep %d: %w", i+1, err)
		}
		if err := s.Validate(); err != nil {
			return Plan{}, err
		}
		p.Sweeps = append(p.Sweeps, s)
	}
	return p, nil
}

func (sy sweepFromYAML) sweep() (Sweep, error) {
	s := Sweep{
		Table:         sy.Table,
		Title:         sy.Title,
		HostOffsets:   sy.HostOffsets,
		DeviceOffsets: sy.DeviceOffsets,
		Details:       sy.Details,
	}
	kinds := mapset.NewThreadUnsafeSet[controller.Kind]()
	for _, name := range sy.Kinds {
		k, ok := controller.KindByName(name)
		if !ok {
			return Sweep{}, fmt.Errorf("unknown test kind %q", name)
		}
		if kinds.Add(k) {
			s.Kinds = append(s.Kinds, k)
		}
	}
	caches := mapset.NewThreadUnsafeSet[controller.Flags]()
	for _, name := range sy.Cache {
		c, ok := cacheNames[strings.ToLower(name)]
		if !ok {
			return Sweep{}, fmt.Errorf("unknown cache condition %q, valid conditions are: %v", name, slices.Sorted(maps.Keys(cacheNames)))
		}
		if caches.Add(c) {
			s.Caches = append(s.Caches, c)
		}
	}
	for _, name := range sy.Flags {
		name = strings.ToLower(name)
		if !sweepFlagNames.Contains(name) {
			return Sweep{}, fmt.Errorf("unknown flag %q, valid flags are: %v", name, sweepFlagNames.ToSlice())
		}
		f, _ := controller.FlagByName(name)
		s.Flags |= f
	}
	for _, w := range sy.Windows {
		size, err := yamlSize(w)
		if err != nil {
			return Sweep{}, fmt.Errorf("window: %w", err)
		}
		s.Windows = append(s.Windows, size)
	}
	for _, t := range sy.Transactions {
		size, err := yamlSize(t)
		if err != nil {
			return Sweep{}, fmt.Errorf("transaction: %w", err)
		}
		if size.Expr != nil && slices.Contains(size.Expr.Vars(), "SZ") {
			return Sweep{}, fmt.Errorf("transaction size %q cannot refer to SZ", size.Expr.String())
		}
		n, err := size.Eval(0)
		if err != nil {
			return Sweep{}, fmt.Errorf("transaction: %w", err)
		}
		s.Transactions = append(s.Transactions, n)
	}
	return s, nil
}

// yamlSize accepts an integer or a size expression.
func yamlSize(v any) (Size, error) {
	switch val := v.(type) {
	case int:
		return Bytes(val), nil
	case string:
		return ParseSize(val)
	case float64:
		return ParseSize(fmt.Sprint(val))
	}
	return Size{}, fmt.Errorf("invalid size %v", v)
}
