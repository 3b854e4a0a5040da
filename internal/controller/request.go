package controller

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"math"
	"math/bits"
	"strings"

	"pciebench/internal/device"
)

// Kind is a test kind. The values are the codes the firmware expects in the control binding.
type Kind int32

const (
	CmdRead      Kind = 1
	CmdWriteRead Kind = 2
	DmaRead      Kind = 3
	DmaWriteRead Kind = 4
	DmaBwRead    Kind = 5
	DmaWrite     Kind = 6
	DmaReadWrite Kind = 7
)

// Kinds lists every test kind in firmware code order.
var Kinds = []Kind{CmdRead, CmdWriteRead, DmaRead, DmaWriteRead, DmaBwRead, DmaWrite, DmaReadWrite}

func (k Kind) String() string {
	switch k {
	case CmdRead:
		return "LAT_CMD_RD"
	case CmdWriteRead:
		return "LAT_CMD_WRRD"
	case DmaRead:
		return "LAT_DMA_RD"
	case DmaWriteRead:
		return "LAT_DMA_WRRD"
	case DmaBwRead:
		return "BW_DMA_RD"
	case DmaWrite:
		return "BW_DMA_WR"
	case DmaReadWrite:
		return "BW_DMA_RW"
	}
	return fmt.Sprintf("Kind(%d)", int32(k))
}

// KindByName returns the kind with the given name, ignoring case.
func KindByName(name string) (Kind, bool) {
	for _, k := range Kinds {
		if strings.EqualFold(k.String(), name) {
			return k, true
		}
	}
	return 0, false
}

// Valid reports whether k is a kind the firmware knows.
func (k Kind) Valid() bool {
	return k >= CmdRead && k <= DmaReadWrite
}

// IsLatency reports whether k records a per-transaction journal.
func (k Kind) IsLatency() bool {
	switch k {
	case CmdRead, CmdWriteRead, DmaRead, DmaWriteRead:
		return true
	case DmaBwRead, DmaWrite, DmaReadWrite:
		return false
	}
	return false
}

// IsCommand reports whether k uses PCIe commands rather than the DMA engines.
func (k Kind) IsCommand() bool {
	return k == CmdRead || k == CmdWriteRead
}

// Flags modify how a test runs. They are written to the first parameter word.
type Flags uint32

const (
	Warm   Flags = 1 << 0 // warm the window from the device
	Thrash Flags = 1 << 1 // thrash the cache from the device
	Random Flags = 1 << 2 // random access, default sequential
	Long   Flags = 1 << 3 // longer run
	// HostWarm is handled on the host, the firmware ignores it.
	HostWarm Flags = 1 << 31

	AllFlags   = Warm | Thrash | Random | Long | HostWarm
	CacheFlags = Warm | Thrash | HostWarm
)

var flagNames = []struct {
	flag Flags
	name string
}{
	{Warm, "warm"},
	{Thrash, "thrash"},
	{Random, "random"},
	{Long, "long"},
	{HostWarm, "hostwarm"},
}

func (f Flags) Has(flag Flags) bool {
	return f&flag == flag
}

func (f Flags) String() string {
	if f == 0 {
		return "none"
	}
	var names []string
	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			names = append(names, fn.name)
		}
	}
	if rest := f &^ AllFlags; rest != 0 {
		names = append(names, fmt.Sprintf("0x%x", uint32(rest)))
	}
	return strings.Join(names, "|")
}

// FlagByName returns the flag with the given name, ignoring case.
func FlagByName(name string) (Flags, bool) {
	for _, fn := range flagNames {
		if strings.EqualFold(fn.name, name) {
			return fn.flag, true
		}
	}
	return 0, false
}

// maximum transaction size of the command tests
const maxCommandTransactionBytes = 64

// Request is one test invocation.
type Request struct {
	Kind             Kind
	Flags            Flags
	WindowBytes      int
	TransactionBytes int
	HostOffset       int // from the start of a 64 byte cache line
	DeviceOffset     int // from the start of a 64 byte cache line
	// CheckJournal warns when the journal holds zero entries. Set it when the journal is expected to be full.
	CheckJournal bool
}

// Params returns the five parameter words in the order the firmware reads them.
func (r Request) Params() []uint64 {
	return []uint64{
		uint64(r.Flags),
		uint64(r.TransactionBytes),
		uint64(r.WindowBytes),
		uint64(r.HostOffset),
		uint64(r.DeviceOffset),
	}
}

// Validate checks r against the limits of the device in profile.
func (r Request) Validate(profile device.Profile) error {
	if !r.Kind.Valid() {
		return &ConfigurationError{Field: "kind", Reason: fmt.Sprintf("unknown test kind %d", int32(r.Kind))}
	}
	if r.WindowBytes <= 0 || r.WindowBytes%64 != 0 {
		return &ConfigurationError{Field: "window", Reason: fmt.Sprintf("window size must be a positive multiple of 64, was %d", r.WindowBytes)}
	}
	if r.TransactionBytes <= 0 || r.TransactionBytes > profile.MaxTransactionBytes {
		return &ConfigurationError{Field: "transaction", Reason: fmt.Sprintf("transaction size must be between 1 and %d for %s, was %d", profile.MaxTransactionBytes, profile.Generation, r.TransactionBytes)}
	}
	if r.Kind.IsCommand() && (r.TransactionBytes%4 != 0 || r.TransactionBytes > maxCommandTransactionBytes) {
		return &ConfigurationError{Field: "transaction", Reason: fmt.Sprintf("%s transaction size must be a multiple of 4 up to %d, was %d", r.Kind, maxCommandTransactionBytes, r.TransactionBytes)}
	}
	if rest := r.Flags &^ AllFlags; rest != 0 {
		return &ConfigurationError{Field: "flags", Reason: fmt.Sprintf("illegal flags 0x%08x (valid 0x%08x)", uint32(r.Flags), uint32(AllFlags))}
	}
	if bits.OnesCount32(uint32(r.Flags&CacheFlags)) > 1 {
		return &ConfigurationError{Field: "flags", Reason: fmt.Sprintf("only one cache related flag may be set, got %s", r.Flags&CacheFlags)}
	}
	if r.HostOffset < 0 || r.DeviceOffset < 0 {
		return &ConfigurationError{Field: "offset", Reason: fmt.Sprintf("offsets must not be negative, got host %d device %d", r.HostOffset, r.DeviceOffset)}
	}
	for _, v := range r.Params() {
		if v > math.MaxUint32 {
			return &ConfigurationError{Field: "params", Reason: fmt.Sprintf("parameter 0x%x does not fit in 32 bits", v)}
		}
	}
	return nil
}
