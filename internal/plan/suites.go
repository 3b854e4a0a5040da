package plan

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"pciebench/internal/controller"
)

const (
	kiB = 1 << 10
	miB = 1 << 20
)

var (
	cmdKinds = []controller.Kind{controller.CmdRead, controller.CmdWriteRead}
	dmaKinds = []controller.Kind{controller.DmaRead, controller.DmaWriteRead}
	// every cache condition, in report order
	allCaches = []controller.Flags{Cold, controller.Thrash, controller.Warm, controller.HostWarm}
	hostWarm  = []controller.Flags{controller.HostWarm}

	latOffsets = []int{0, 1, 2, 3, 4, 6, 8, 12, 16, 20, 25, 32, 41, 48, 63}
	dmaOffSzs  = []int{64, 128, 256, 407, 416, 1024, 2048}
)

// short name of a kind used in table names
func kindSuffix(k controller.Kind) string {
	switch k {
	case controller.CmdRead, controller.DmaRead, controller.DmaBwRead:
		return "rd"
	case controller.CmdWriteRead, controller.DmaWriteRead:
		return "wrrd"
	case controller.DmaWrite:
		return "wr"
	case controller.DmaReadWrite:
		return "rw"
	}
	return "unknown"
}

func kindVerb(k controller.Kind) string {
	switch k {
	case controller.CmdRead, controller.DmaRead, controller.DmaBwRead:
		return "Read"
	case controller.CmdWriteRead, controller.DmaWriteRead:
		return "Write/Read"
	case controller.DmaWrite:
		return "Write"
	case controller.DmaReadWrite:
		return "Read/Write"
	}
	return "Unknown"
}

func latCmd() []Sweep {
	return []Sweep{{
		Table:        "lat_cmd_sizes",
		Title:        "PCIe CMD Latency with different transfer sizes",
		Kinds:        cmdKinds,
		Caches:       hostWarm,
		Windows:      sizes(4096),
		Transactions: []int{4, 8, 16, 24, 32, 48, 64},
	}}
}

func latCmdSweep() []Sweep {
	windows := append(sizes(1*kiB, 4*kiB, 16*kiB, 256*kiB, 512*kiB),
		sizes(1*miB, 3*miB/2, 2*miB, 3*miB, 4*miB, 8*miB, 16*miB, 32*miB, 64*miB)...)
	var sweeps []Sweep
	for _, kind := range cmdKinds {
		for _, trans := range []int{8, 64} {
			sweeps = append(sweeps, Sweep{
				Table:        fmt.Sprintf("lat_cmd_sweep_%s_rnd_%02d", kindSuffix(kind), trans),
				Title:        fmt.Sprintf("PCIe CMD %s latency over different window sizes with random access", kindVerb(kind)),
				Kinds:        []controller.Kind{kind},
				Caches:       allCaches,
				Flags:        controller.Random,
				Windows:      windows,
				Transactions: []int{trans},
			})
		}
	}
	return sweeps
}

func latCmdOff() []Sweep {
	var sweeps []Sweep
	for _, kind := range cmdKinds {
		sweeps = append(sweeps, Sweep{
			Table:        "lat_cmd_off_" + kindSuffix(kind),
			Title:        fmt.Sprintf("PCIe CMD %s latency with different host offset", kindVerb(kind)),
			Kinds:        []controller.Kind{kind},
			Caches:       []controller.Flags{Cold, controller.HostWarm},
			Windows:      sizes(4096, 8*miB),
			Transactions: []int{8, 64},
			HostOffsets:  []int{0, 1, 2, 3, 4, 6, 8, 16, 32, 48},
		})
	}
	return sweeps
}

func latDma() []Sweep {
	return []Sweep{{
		Table:        "lat_dma_sizes",
		Title:        "PCIe DMA Latency with different transfer sizes",
		Kinds:        dmaKinds,
		Caches:       hostWarm,
		Windows:      sizes(8192),
		Transactions: []int{4, 8, 16, 24, 32, 48, 64, 128, 256, 512, 768, 1024, 1280, 1520, 2048},
	}}
}

func latDmaByte() []Sweep {
	var trans []int
	for _, mid := range []int{256, 1024} {
		for sz := mid - 16; sz < mid+16; sz++ {
			trans = append(trans, sz)
		}
	}
	return []Sweep{{
		Table:        "lat_dma_sizes_byte_inc",
		Title:        "PCIe DMA Latency with byte increments around 256B and 1KB",
		Kinds:        dmaKinds,
		Caches:       hostWarm,
		Windows:      sizes(8192),
		Transactions: trans,
	}}
}

func latDmaSweep() []Sweep {
	windows := append(sizes(8*kiB, 64*kiB, 256*kiB, 512*kiB),
		sizes(1*miB, 3*miB/2, 2*miB, 4*miB, 8*miB, 16*miB, 32*miB, 64*miB)...)
	var sweeps []Sweep
	for _, kind := range dmaKinds {
		sweeps = append(sweeps, Sweep{
			Table:        fmt.Sprintf("lat_dma_sweep_%s_rnd_64", kindSuffix(kind)),
			Title:        fmt.Sprintf("PCIe DMA %s latency over different window sizes with random access", kindVerb(kind)),
			Kinds:        []controller.Kind{kind},
			Caches:       allCaches,
			Flags:        controller.Random,
			Windows:      windows,
			Transactions: []int{64},
		})
	}
	return sweeps
}

// offsetSweeps returns a host offset sweep followed by a device offset sweep, both
// into the same table.
func offsetSweeps(base Sweep) []Sweep {
	host, dev := base, base
	host.HostOffsets = latOffsets
	dev.DeviceOffsets = latOffsets
	return []Sweep{host, dev}
}

func latDmaOff() []Sweep {
	var sweeps []Sweep
	for _, kind := range dmaKinds {
		sweeps = append(sweeps, offsetSweeps(Sweep{
			Table:        "lat_dma_off_" + kindSuffix(kind),
			Title:        fmt.Sprintf("PCIe DMA %s latency with different host and device offsets", kindVerb(kind)),
			Kinds:        []controller.Kind{kind},
			Caches:       hostWarm,
			Windows:      sizes(8192),
			Transactions: dmaOffSzs,
		})...)
	}
	return sweeps
}

func latDetails() []Sweep {
	common := Sweep{
		Caches:  []controller.Flags{Cold, controller.HostWarm},
		Flags:   controller.Long | controller.Random,
		Windows: sizes(8192, 64*miB),
		Details: true,
	}
	cmd, dma := common, common
	cmd.Table, cmd.Title, cmd.Kinds, cmd.Transactions = "lat_cmd_details", "PCIe CMD latencies with more details", cmdKinds, []int{8}
	dma.Table, dma.Title, dma.Kinds, dma.Transactions = "lat_dma_details", "PCIe DMA latencies with more details", dmaKinds, []int{64, 2048}
	return []Sweep{cmd, dma}
}

func bwDmaSz() []Sweep {
	return []Sweep{{
		Table: "bw_dma_sz_sweep",
		Title: "PCIe DMA bandwidth with different transfer sizes",
		Kinds: []controller.Kind{controller.DmaBwRead, controller.DmaWrite, controller.DmaReadWrite},
		// assumes a max payload size of 256
		Transactions: []int{16, 32, 63, 64, 65, 127, 128, 129, 192, 255, 256, 257,
			320, 384, 511, 512, 513, 576, 640, 704, 767, 768, 769,
			832, 896, 960, 1023, 1024, 1025, 1279, 1280, 1281,
			1535, 1536, 1537, 1791, 1792, 1793, 2047, 2048},
		Caches:  hostWarm,
		Flags:   controller.Random,
		Windows: sizes(8192),
	}}
}

func bwDmaWin() []Sweep {
	windows := append(sizes(4*kiB, 16*kiB, 256*kiB, 512*kiB),
		sizes(1*miB, 3*miB/2, 2*miB, 3*miB, 4*miB, 8*miB, 16*miB, 32*miB, 64*miB)...)
	var sweeps []Sweep
	for _, kind := range []controller.Kind{controller.DmaBwRead, controller.DmaWrite} {
		for _, trans := range []int{64, 128, 256, 512} {
			sweeps = append(sweeps, Sweep{
				Table:        fmt.Sprintf("bw_dma_win_sweep_%s_rnd_%02d", kindSuffix(kind), trans),
				Title:        fmt.Sprintf("PCIe DMA %s bandwidth over different window sizes with random access", kindVerb(kind)),
				Kinds:        []controller.Kind{kind},
				Caches:       allCaches,
				Flags:        controller.Random,
				Windows:      windows,
				Transactions: []int{trans},
			})
		}
	}
	return sweeps
}

func bwDmaOff() []Sweep {
	var sweeps []Sweep
	for _, cache := range []controller.Flags{Cold, controller.HostWarm} {
		for _, kind := range []controller.Kind{controller.DmaBwRead, controller.DmaWrite} {
			table := "bw_dma_off_" + kindSuffix(kind)
			if cache == Cold {
				table += "_cold"
			}
			sweeps = append(sweeps, offsetSweeps(Sweep{
				Table:        table,
				Title:        fmt.Sprintf("PCIe DMA %s bandwidth with different host and device offsets", kindVerb(kind)),
				Kinds:        []controller.Kind{kind},
				Caches:       []controller.Flags{cache},
				Windows:      sizes(8192),
				Transactions: dmaOffSzs,
			})...)
		}
	}
	return sweeps
}

// mustSize parses a size expression of a built-in suite. It panics on a
// malformed expression.
func mustSize(expr string) Size {
	size, err := ParseSize(expr)
	if err != nil {
		panic(fmt.Sprintf("built-in size %q: %v", expr, err))
	}
	return size
}

func dbgMem() []Sweep {
	window := mustSize("SZ")
	return []Sweep{{
		Table:        "dbg_mem",
		Title:        "PCIe DMA bandwidth hitting the same cache lines over and over",
		Kinds:        []controller.Kind{controller.DmaBwRead},
		Caches:       hostWarm,
		Windows:      []Size{window, Bytes(8192)},
		Transactions: []int{64, 128, 256, 512, 1024},
	}}
}

var suites = map[string]func() []Sweep{
	"lat-cmd":       latCmd,
	"lat-cmd-sweep": latCmdSweep,
	"lat-cmd-off":   latCmdOff,
	"lat-dma":       latDma,
	"lat-dma-byte":  latDmaByte,
	"lat-dma-sweep": latDmaSweep,
	"lat-dma-off":   latDmaOff,
	"lat-details":   latDetails,
	"bw-dma-sz":     bwDmaSz,
	"bw-dma-win":    bwDmaWin,
	"bw-dma-off":    bwDmaOff,
	"dbg-mem":       dbgMem,
}

// suite groups, in run order
var groups = map[string][]string{
	"short": {"lat-cmd", "lat-cmd-sweep", "lat-dma", "lat-dma-sweep", "lat-details", "bw-dma-sz", "bw-dma-win"},
	"all": {"lat-cmd", "lat-cmd-sweep", "lat-cmd-off", "lat-dma", "lat-dma-byte", "lat-dma-sweep", "lat-dma-off",
		"lat-details", "bw-dma-sz", "bw-dma-win", "bw-dma-off"},
}

// SuiteNames returns the built-in suite and group names, sorted.
func SuiteNames() []string {
	names := mapset.NewSetFromMapKeys(suites)
	names.Append(slices.Collect(maps.Keys(groups))...)
	return slices.Sorted(slices.Values(names.ToSlice()))
}

// Builtin builds a plan from suite and group names. Groups are expanded and each
// suite runs once, in the order first named.
func Builtin(names ...string) (Plan, error) {
	if len(names) == 0 {
		return Plan{}, fmt.Errorf("no suite named")
	}
	var order []string
	seen := mapset.NewThreadUnsafeSet[string]()
	for _, name := range names {
		members, ok := groups[name]
		if !ok {
			if _, ok := suites[name]; !ok {
				return Plan{}, fmt.Errorf("unknown suite %q, valid suites are: %v", name, SuiteNames())
			}
			members = []string{name}
		}
		for _, m := range members {
			if seen.Add(m) {
				order = append(order, m)
			}
		}
	}
	p := Plan{Name: strings.Join(names, "+")}
	for _, name := range order {
		p.Sweeps = append(p.Sweeps, suites[name]()...)
	}
	return p, nil
}
