package simulator

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"math"
	"math/rand/v2"
)

// firmware codes and flag bits, as the firmware sees them
const (
	kindCmdRead      = 1
	kindCmdWriteRead = 2
	kindDmaRead      = 3
	kindDmaWriteRead = 4
	kindDmaBwRead    = 5
	kindDmaWrite     = 6
	kindDmaReadWrite = 7

	flagWarm     = 1 << 0
	flagThrash   = 1 << 1
	flagRandom   = 1 << 2
	flagLong     = 1 << 3
	flagHostWarm = 1 << 31
)

// transactions in a bandwidth run
const bandwidthTransactions = 1 << 16

func isLatencyKind(kind int32) bool {
	return kind >= kindCmdRead && kind <= kindDmaWriteRead
}

// latencyNanos models the round trip of one transaction.
func latencyNanos(kind int32, flags, transaction, window uint32) float64 {
	var ns float64
	switch kind {
	case kindCmdRead:
		ns = 520
	case kindCmdWriteRead:
		ns = 560
	case kindDmaRead:
		ns = 600
	case kindDmaWriteRead:
		ns = 650
	default:
		ns = 400
	}
	// serialization on a x8 Gen3 link, roughly 8 GB/s
	ns += float64(transaction) / 8
	switch {
	case flags&flagHostWarm != 0:
		ns -= 70
	case flags&flagWarm != 0:
		ns -= 40
	case flags&flagThrash != 0:
		ns += 60
	}
	// windows larger than the last level cache miss more often
	if flags&flagRandom != 0 && window > 8<<20 {
		ns += 30 * math.Log2(float64(window)/float64(8<<20)+1)
	}
	return ns
}

func (d *Device) nanosToTicks(ns float64) uint32 {
	ticks := ns * float64(d.clockHz) / 1e9 / 16
	return uint32(max(1, math.Round(ticks)))
}

// latencyJournal generates count per-transaction latencies with jitter and the
// occasional outlier. The output is deterministic for a given set of parameters.
func (d *Device) latencyJournal(kind int32, params []uint32, count int) []uint32 {
	rng := rand.New(rand.NewPCG(uint64(kind), uint64(params[0])<<32|uint64(params[1])^uint64(params[2]))) // #nosec G404
	base := latencyNanos(kind, params[0], params[1], params[2])
	journal := make([]uint32, count)
	for i := range journal {
		ns := base + rng.NormFloat64()*base*0.02
		if rng.IntN(500) == 0 {
			ns *= 5
		}
		journal[i] = d.nanosToTicks(ns)
	}
	return journal
}

// bandwidthRun returns the transaction count and elapsed ticks of a bandwidth test.
func (d *Device) bandwidthRun(kind int32, params []uint32) (int, uint64) {
	transaction := float64(max(params[1], 1))
	// per transaction cost: fixed overhead plus payload at link rate
	perTrans := 25 + transaction/7.5
	if kind == kindDmaWrite {
		perTrans *= 0.85
	}
	if params[0]&flagRandom != 0 && params[2] > 8<<20 {
		perTrans *= 1.2
	}
	count := bandwidthTransactions
	if kind == kindDmaReadWrite {
		// reads and writes alternate, each counted
		count *= 2
	}
	ticks := uint64(d.nanosToTicks(perTrans*float64(count)/1000)) * 1000
	return count, ticks
}
