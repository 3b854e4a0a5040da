// Package controller runs tests on the device: it stages the host DMA addresses and
// test parameters, triggers the test, waits for the firmware to finish, and collects
// the timing result and the per-transaction journal.
package controller

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"pciebench/internal/device"
	"pciebench/internal/hostmem"
	"pciebench/internal/transport"
)

// State is the protocol state of a controller.
type State int32

const (
	StateIdle State = iota
	StateParamsStaged
	StateTriggered
	StatePolling
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateParamsStaged:
		return "ParamsStaged"
	case StateTriggered:
		return "Triggered"
	case StatePolling:
		return "Polling"
	case StateCompleted:
		return "Completed"
	case StateFailed:
		return "Failed"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// DescriptorSource provides the host DMA buffer descriptor.
type DescriptorSource interface {
	DMADescriptor(ctx context.Context) (hostmem.Descriptor, error)
}

// Conditioner prepares the host caches before a test: ThrashHost runs before
// every test, WarmHost only for HostWarm requests.
type Conditioner interface {
	ThrashHost(ctx context.Context) error
	WarmHost(ctx context.Context, windowBytes int) error
}

// DefaultPollInterval is the wait between completion checks.
const DefaultPollInterval = 5 * time.Second

// device timestamps and journal entries count in units of 16 cycles
const CyclesPerTick = 16

// Options configure a Controller.
type Options struct {
	Firmware     string        // firmware image loaded before every test
	PollInterval time.Duration // zero means DefaultPollInterval
	PollTimeout  time.Duration // zero means wait forever
}

// Outcome is the timing result of one test.
type Outcome struct {
	ElapsedCycles uint64
	// SampleCount is the number of transactions the firmware reports (the first result word).
	SampleCount int
	Results     [4]uint32
}

// Result is an Outcome plus the raw journal of a latency test.
type Result struct {
	Outcome
	Samples     []uint32 // journal entries, in device ticks
	NullEntries int
}

// Controller runs one test at a time on one device.
type Controller struct {
	profile     device.Profile
	transport   transport.Transport
	descriptors DescriptorSource
	conditioner Conditioner
	opts        Options

	symbols map[string]transport.Symbol
	state   atomic.Int32
	busy    atomic.Bool
}

// New creates a controller for the probed device.
func New(profile device.Profile, t transport.Transport, descriptors DescriptorSource, conditioner Conditioner, opts Options) (*Controller, error) {
	if t == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if descriptors == nil {
		return nil, fmt.Errorf("DMA descriptor source is required")
	}
	if conditioner == nil {
		return nil, fmt.Errorf("host conditioner is required")
	}
	if opts.Firmware == "" {
		return nil, &ConfigurationError{Field: "firmware", Reason: "no firmware image"}
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.PollTimeout < 0 {
		return nil, &ConfigurationError{Field: "poll timeout", Reason: fmt.Sprintf("must not be negative, was %s", opts.PollTimeout)}
	}
	return &Controller{
		profile:     profile,
		transport:   t,
		descriptors: descriptors,
		conditioner: conditioner,
		opts:        opts,
	}, nil
}

// Profile returns the device profile the controller was created with.
func (c *Controller) Profile() device.Profile {
	return c.profile
}

// State returns the protocol state of the last or current test.
func (c *Controller) State() State {
	return State(c.state.Load())
}

func (c *Controller) setState(s State) {
	if old := State(c.state.Swap(int32(s))); old != s {
		slog.Debug("test state", slog.String("from", old.String()), slog.String("to", s.String()))
	}
}

// RunTest runs one test and blocks until the firmware reports completion, the poll
// timeout expires, or ctx is done.
func (c *Controller) RunTest(ctx context.Context, req Request) (result Result, err error) {
	if !c.busy.CompareAndSwap(false, true) {
		return Result{}, ErrBusy
	}
	defer c.busy.Store(false)
	if err = req.Validate(c.profile); err != nil {
		return Result{}, err
	}
	c.setState(StateIdle)
	defer func() {
		if err != nil {
			c.setState(StateFailed)
		}
	}()
	slog.Debug("running test", slog.String("kind", req.Kind.String()), slog.String("flags", req.Flags.String()), slog.Int("windowBytes", req.WindowBytes), slog.Int("transactionBytes", req.TransactionBytes), slog.Int("hostOffset", req.HostOffset), slog.Int("deviceOffset", req.DeviceOffset))

	if err = c.transport.ReloadFirmware(ctx, c.opts.Firmware); err != nil {
		return Result{}, fmt.Errorf("failed to reload firmware: %w", err)
	}
	if err = c.resolveSymbols(ctx); err != nil {
		return Result{}, err
	}
	if err = c.stageDMAAddrs(ctx); err != nil {
		return Result{}, err
	}
	if err = c.transport.WriteBinding(ctx, c.profile.Bindings.Params, req.Params()); err != nil {
		return Result{}, fmt.Errorf("failed to write test parameters: %w", err)
	}
	c.setState(StateParamsStaged)

	if err = c.conditioner.ThrashHost(ctx); err != nil {
		return Result{}, fmt.Errorf("failed to thrash host caches: %w", err)
	}
	if req.Flags.Has(HostWarm) {
		if err = c.conditioner.WarmHost(ctx, req.WindowBytes); err != nil {
			return Result{}, fmt.Errorf("failed to warm host buffer: %w", err)
		}
	}

	if err = c.transport.WriteBinding(ctx, c.profile.Bindings.Control, []uint64{uint64(req.Kind)}); err != nil {
		return Result{}, fmt.Errorf("failed to trigger test: %w", err)
	}
	c.setState(StateTriggered)

	code, err := c.waitForCompletion(ctx)
	if err != nil {
		return Result{}, err
	}
	if code < 0 {
		return Result{}, &DeviceProtocolError{Kind: req.Kind, Code: code}
	}

	if result.Outcome, err = c.readOutcome(ctx); err != nil {
		return Result{}, err
	}
	slog.Debug("test finished", slog.String("kind", req.Kind.String()), slog.Uint64("cycles", result.ElapsedCycles), slog.Any("results", result.Results))
	if req.Kind.IsLatency() {
		if result.Samples, err = c.readJournal(ctx, result.SampleCount); err != nil {
			return Result{}, err
		}
		for _, s := range result.Samples {
			if s == 0 {
				result.NullEntries++
			}
		}
		if req.CheckJournal && result.NullEntries > 0 {
			slog.Warn("journal contains null entries", slog.Int("count", result.NullEntries), slog.String("kind", req.Kind.String()))
		}
	}
	c.setState(StateCompleted)
	return result, nil
}

// resolveSymbols loads the firmware binding table once and checks every binding
// the protocol uses is present.
func (c *Controller) resolveSymbols(ctx context.Context) error {
	if c.symbols != nil {
		return nil
	}
	symbols, err := c.transport.Symbols(ctx)
	if err != nil {
		return fmt.Errorf("failed to read binding table: %w", err)
	}
	b := c.profile.Bindings
	for _, name := range []string{b.Control, b.Params, b.Result, b.DMAAddrs, b.Journal} {
		if _, ok := symbols[name]; !ok {
			return &ConfigurationError{Field: "firmware", Reason: fmt.Sprintf("binding %s not found in firmware %s", name, c.opts.Firmware)}
		}
	}
	c.symbols = symbols
	return nil
}

// stageDMAAddrs validates the host buffer descriptor and writes its chunk
// addresses as (hi, lo) pairs, as many as the binding holds.
func (c *Controller) stageDMAAddrs(ctx context.Context) error {
	desc, err := c.descriptors.DMADescriptor(ctx)
	if err != nil {
		return fmt.Errorf("failed to read DMA descriptor: %w", err)
	}
	if err := desc.Validate(); err != nil {
		return &ConfigurationError{Field: "DMA descriptor", Reason: err.Error()}
	}
	capacity := int(c.symbols[c.profile.Bindings.DMAAddrs].Size / 8)
	count := min(len(desc.Addrs), capacity)
	if count < len(desc.Addrs) {
		slog.Debug("DMA address list truncated", slog.Int("addresses", len(desc.Addrs)), slog.Int("capacity", capacity))
	}
	values := make([]uint64, 0, 2*count)
	for _, addr := range desc.Addrs[:count] {
		values = append(values, addr>>32, addr&0xffffffff)
	}
	if err := c.transport.WriteBinding(ctx, c.profile.Bindings.DMAAddrs, values); err != nil {
		return fmt.Errorf("failed to write DMA addresses: %w", err)
	}
	return nil
}

func (c *Controller) readControl(ctx context.Context) (int32, error) {
	b, err := c.transport.ReadBinding(ctx, c.profile.Bindings.Control, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to read test control: %w", err)
	}
	words := transport.Words(b)
	if len(words) == 0 {
		return 0, fmt.Errorf("test control binding is empty")
	}
	return int32(words[0]), nil // #nosec G115
}

// waitForCompletion polls the control binding until it drops to zero or below.
func (c *Controller) waitForCompletion(ctx context.Context) (int32, error) {
	var timeout <-chan time.Time
	if c.opts.PollTimeout > 0 {
		timer := time.NewTimer(c.opts.PollTimeout)
		defer timer.Stop()
		timeout = timer.C
	}
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()
	for {
		code, err := c.readControl(ctx)
		if err != nil {
			return 0, err
		}
		if code <= 0 {
			return code, nil
		}
		c.setState(StatePolling)
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-timeout:
			return 0, fmt.Errorf("%w after %s", ErrPollTimeout, c.opts.PollTimeout)
		case <-ticker.C:
		}
	}
}

// readOutcome decodes [start_hi, start_lo, end_hi, end_lo, r0..r3] from the result binding.
func (c *Controller) readOutcome(ctx context.Context) (Outcome, error) {
	b, err := c.transport.ReadBinding(ctx, c.profile.Bindings.Result, 8*4)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to read test result: %w", err)
	}
	words := transport.Words(b)
	if len(words) < 8 {
		return Outcome{}, fmt.Errorf("test result too short: %d words", len(words))
	}
	start := uint64(words[0])<<32 | uint64(words[1])
	end := uint64(words[2])<<32 | uint64(words[3])
	if end < start {
		return Outcome{}, fmt.Errorf("test result end timestamp 0x%x is before start 0x%x", end, start)
	}
	outcome := Outcome{
		ElapsedCycles: (end - start) * CyclesPerTick,
		SampleCount:   int(words[4]),
	}
	copy(outcome.Results[:], words[4:8])
	return outcome, nil
}

// readJournal reads up to count entries, capped at the journal's capacity.
func (c *Controller) readJournal(ctx context.Context, count int) ([]uint32, error) {
	capacity := int(c.symbols[c.profile.Bindings.Journal].Size)
	n := min(capacity, count*4)
	if n <= 0 {
		return nil, nil
	}
	if n < count*4 {
		slog.Debug("journal truncated", slog.Int("entries", count), slog.Int("capacity", capacity/4))
	}
	b, err := c.transport.ReadBinding(ctx, c.profile.Bindings.Journal, n)
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	return transport.Words(b), nil
}
