// Package simulator provides an in-memory device and host buffer that speak the test
// protocol. It backs the controller tests and the --simulate mode of the CLI.
package simulator

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"encoding/binary"
	"fmt"
	"maps"
	"math/rand/v2"
	"slices"
	"strconv"
	"sync"

	"pciebench/internal/device"
	"pciebench/internal/transport"
)

// Op is one transport call recorded by the Device.
type Op struct {
	Name    string // one of the transport.Op* names
	Binding string
	Values  []uint64
}

// JournalFunc generates the journal, in device ticks, for a completed latency test.
type JournalFunc func(kind int32, params []uint32, count int) []uint32

// binding capacities, bytes
const (
	controlSize  = 8
	paramsSize   = 8 * 4
	resultSize   = 8 * 4
	dmaAddrsSize = 64 * 8
	journalSize  = 16 * 1024 * 4
)

// Device is an in-memory device running the test firmware. The zero value is not
// usable, create one with NewDevice.
type Device struct {
	// PollsBeforeDone is how many control reads report the test as running.
	PollsBeforeDone int
	// CompletionCode is what the control binding reads once a test is done. Zero is success.
	CompletionCode int32
	// Samples is the number of transactions of a latency test; Long runs do four times as many.
	Samples int
	// Journal overrides the latency model when set.
	Journal JournalFunc

	mu       sync.Mutex
	index    int
	clockHz  int64
	hwinfo   map[string]string
	bindings device.Bindings
	symbols  map[string]transport.Symbol
	mem      map[string][]byte
	pending  int
	loaded   string
	ops      []Op
	rng      *rand.Rand
}

// NewDevice creates a simulated device of the given chip model and clock speed.
func NewDevice(index int, model string, clockMHz int) *Device {
	gen := device.GenerationForModel(model)
	profile, _ := device.NewProfile(index, model, gen, int64(clockMHz)*1000*1000)
	b := profile.Bindings
	d := &Device{
		Samples:  2000,
		index:    index,
		clockHz:  profile.ClockHz,
		bindings: b,
		hwinfo: map[string]string{
			device.HWInfoModel:    model,
			device.HWInfoClockMHz: strconv.Itoa(clockMHz),
			"board.name":          "simulated",
		},
		symbols: map[string]transport.Symbol{},
		rng:     rand.New(rand.NewPCG(uint64(index), uint64(clockMHz))), // #nosec G404 G115
	}
	var offset uint64
	for _, sym := range []struct {
		name string
		size uint64
	}{
		{b.Control, controlSize},
		{b.Params, paramsSize},
		{b.Result, resultSize},
		{b.DMAAddrs, dmaAddrsSize},
		{b.Journal, journalSize},
	} {
		d.symbols[sym.name] = transport.Symbol{Name: sym.name, Offset: offset, Size: sym.size}
		offset += sym.size
	}
	d.reset()
	return d
}

// SetJournalCapacity resizes the journal binding to hold entries words.
func (d *Device) SetJournalCapacity(entries int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	sym := d.symbols[d.bindings.Journal]
	sym.Size = uint64(entries) * 4 // #nosec G115
	d.symbols[d.bindings.Journal] = sym
	d.mem[d.bindings.Journal] = make([]byte, sym.Size)
}

// SetDMAAddrsCapacity resizes the DMA address binding to hold entries addresses.
func (d *Device) SetDMAAddrsCapacity(entries int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	sym := d.symbols[d.bindings.DMAAddrs]
	sym.Size = uint64(entries) * 8 // #nosec G115
	d.symbols[d.bindings.DMAAddrs] = sym
	d.mem[d.bindings.DMAAddrs] = make([]byte, sym.Size)
}

func (d *Device) reset() {
	d.mem = make(map[string][]byte, len(d.symbols))
	for name, sym := range d.symbols {
		d.mem[name] = make([]byte, sym.Size)
	}
	d.pending = 0
}

// Ops returns the transport calls made so far.
func (d *Device) Ops() []Op {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.ops)
}

// Writes returns the values of every write to binding, oldest first.
func (d *Device) Writes(binding string) [][]uint64 {
	var writes [][]uint64
	for _, op := range d.Ops() {
		if op.Name == transport.OpWrite && op.Binding == binding {
			writes = append(writes, op.Values)
		}
	}
	return writes
}

// Loaded returns the firmware image last loaded.
func (d *Device) Loaded() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loaded
}

// Words returns the current contents of binding as 32-bit words.
func (d *Device) Words(binding string) []uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return transport.Words(d.mem[binding])
}

func (d *Device) record(op Op) {
	d.ops = append(d.ops, op)
}

func (d *Device) DeviceIndex() int {
	return d.index
}

func (d *Device) HWInfo(ctx context.Context) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, &transport.Error{Op: transport.OpHWInfo, ExitCode: -1, Err: err}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record(Op{Name: transport.OpHWInfo})
	return maps.Clone(d.hwinfo), nil
}

func (d *Device) Symbols(ctx context.Context) (map[string]transport.Symbol, error) {
	if err := ctx.Err(); err != nil {
		return nil, &transport.Error{Op: transport.OpSymbols, ExitCode: -1, Err: err}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record(Op{Name: transport.OpSymbols})
	return maps.Clone(d.symbols), nil
}

func (d *Device) ReloadFirmware(ctx context.Context, image string) error {
	if err := ctx.Err(); err != nil {
		return &transport.Error{Op: transport.OpReload, ExitCode: -1, Err: err}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record(Op{Name: transport.OpReload, Binding: image})
	d.loaded = image
	d.reset()
	return nil
}

func (d *Device) ReadBinding(ctx context.Context, name string, maxBytes int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &transport.Error{Op: transport.OpRead, Binding: name, ExitCode: -1, Err: err}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record(Op{Name: transport.OpRead, Binding: name})
	mem, ok := d.mem[name]
	if !ok {
		return nil, &transport.Error{Op: transport.OpRead, Binding: name, ExitCode: 1, Err: fmt.Errorf("unknown symbol %s", name)}
	}
	if name == d.bindings.Control && d.pending > 0 {
		d.pending--
		if d.pending == 0 {
			d.complete()
		}
	}
	if maxBytes > 0 && maxBytes < len(mem) {
		mem = mem[:maxBytes]
	}
	return slices.Clone(mem), nil
}

func (d *Device) WriteBinding(ctx context.Context, name string, values []uint64) error {
	if err := ctx.Err(); err != nil {
		return &transport.Error{Op: transport.OpWrite, Binding: name, ExitCode: -1, Err: err}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record(Op{Name: transport.OpWrite, Binding: name, Values: slices.Clone(values)})
	mem, ok := d.mem[name]
	if !ok {
		return &transport.Error{Op: transport.OpWrite, Binding: name, ExitCode: 1, Err: fmt.Errorf("unknown symbol %s", name)}
	}
	if len(values)*4 > len(mem) {
		return &transport.Error{Op: transport.OpWrite, Binding: name, ExitCode: 1, Err: fmt.Errorf("write of %d words overflows %d byte symbol", len(values), len(mem))}
	}
	for i, v := range values {
		binary.LittleEndian.PutUint32(mem[i*4:], uint32(v)) // #nosec G115
	}
	if name == d.bindings.Control && len(values) > 0 && int32(values[0]) > 0 { // #nosec G115
		d.pending = d.PollsBeforeDone + 1
	}
	return nil
}

// complete runs the triggered test: it fills result and journal and writes the
// completion code to the control binding.
func (d *Device) complete() {
	kind := int32(binary.LittleEndian.Uint32(d.mem[d.bindings.Control])) // #nosec G115
	params := transport.Words(d.mem[d.bindings.Params])[:5]
	if d.CompletionCode < 0 {
		binary.LittleEndian.PutUint32(d.mem[d.bindings.Control], uint32(d.CompletionCode)) // #nosec G115
		return
	}
	var (
		count   int
		elapsed uint64 // ticks
	)
	if isLatencyKind(kind) {
		count = d.Samples
		if params[0]&flagLong != 0 {
			count *= 4
		}
		var journal []uint32
		if d.Journal != nil {
			journal = d.Journal(kind, params, count)
		} else {
			journal = d.latencyJournal(kind, params, count)
		}
		jmem := d.mem[d.bindings.Journal]
		for i, v := range journal {
			if (i+1)*4 > len(jmem) {
				break
			}
			binary.LittleEndian.PutUint32(jmem[i*4:], v)
			elapsed += uint64(v)
		}
	} else {
		count, elapsed = d.bandwidthRun(kind, params)
	}
	start := uint64(0x1_0000_0000) + uint64(d.rng.Uint32N(1<<20))
	end := start + elapsed
	res := d.mem[d.bindings.Result]
	for i, w := range []uint32{uint32(start >> 32), uint32(start), uint32(end >> 32), uint32(end), uint32(count), 0, 0, 0} { // #nosec G115
		binary.LittleEndian.PutUint32(res[i*4:], w)
	}
	binary.LittleEndian.PutUint32(d.mem[d.bindings.Control], uint32(d.CompletionCode)) // #nosec G115
}
