package simulator

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"errors"
	"io"
	"testing"

	"pciebench/internal/device"
	"pciebench/internal/hostmem"
	"pciebench/internal/transport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trigger(t *testing.T, d *Device, kind int32, params ...uint64) {
	t.Helper()
	ctx := context.Background()
	b := d.bindings
	require.NoError(t, d.WriteBinding(ctx, b.Params, params))
	require.NoError(t, d.WriteBinding(ctx, b.Control, []uint64{uint64(kind)}))
}

func readControl(t *testing.T, d *Device) int32 {
	t.Helper()
	out, err := d.ReadBinding(context.Background(), d.bindings.Control, 4)
	require.NoError(t, err)
	return int32(transport.Words(out)[0]) // #nosec G115
}

func TestNewDeviceProbes(t *testing.T) {
	d := NewDevice(3, "NFP3200-A1", 1400)
	profile, err := device.Probe(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, 3, profile.Index)
	assert.Equal(t, device.GenNFP3200, profile.Generation)
	assert.Equal(t, int64(1400_000_000), profile.ClockHz)

	symbols, err := d.Symbols(context.Background())
	require.NoError(t, err)
	for _, name := range []string{"cl1._test_ctrl", "cl1._test_params", "cl1._test_result", "cl1._host_dma_addrs", "_test_journal"} {
		assert.Contains(t, symbols, name)
	}
}

func TestLatencyTestCompletesAfterPolls(t *testing.T) {
	d := NewDevice(0, "NFP6000-B0", 1000)
	d.PollsBeforeDone = 2
	d.Samples = 10
	trigger(t, d, kindCmdRead, 0, 64, 8192, 0, 0)

	assert.Equal(t, int32(kindCmdRead), readControl(t, d))
	assert.Equal(t, int32(kindCmdRead), readControl(t, d))
	assert.Equal(t, int32(0), readControl(t, d))

	result := d.Words(d.bindings.Result)
	start := uint64(result[0])<<32 | uint64(result[1])
	end := uint64(result[2])<<32 | uint64(result[3])
	assert.Equal(t, uint32(10), result[4])

	journal := d.Words(d.bindings.Journal)
	var sum uint64
	for i, v := range journal[:10] {
		assert.NotZero(t, v, "entry %d", i)
		sum += uint64(v)
	}
	assert.Zero(t, journal[10])
	assert.Equal(t, sum, end-start)
}

func TestLongLatencyTest(t *testing.T) {
	d := NewDevice(0, "NFP6000-B0", 1200)
	d.Samples = 10
	trigger(t, d, kindDmaRead, flagLong, 64, 8192, 0, 0)
	assert.Equal(t, int32(0), readControl(t, d))
	assert.Equal(t, uint32(40), d.Words(d.bindings.Result)[4])
}

func TestBandwidthTest(t *testing.T) {
	d := NewDevice(0, "NFP6000-B0", 1200)
	trigger(t, d, kindDmaReadWrite, 0, 256, 8192, 0, 0)
	assert.Equal(t, int32(0), readControl(t, d))
	result := d.Words(d.bindings.Result)
	assert.Equal(t, uint32(2*bandwidthTransactions), result[4])
	assert.Zero(t, d.Words(d.bindings.Journal)[0])
}

func TestCompletionCode(t *testing.T) {
	d := NewDevice(0, "NFP6000-B0", 1200)
	d.CompletionCode = -3
	trigger(t, d, kindDmaRead, 0, 64, 8192, 0, 0)
	assert.Equal(t, int32(-3), readControl(t, d))
}

func TestJournalOverride(t *testing.T) {
	d := NewDevice(0, "NFP6000-B0", 1200)
	d.Samples = 3
	d.Journal = func(kind int32, params []uint32, count int) []uint32 {
		return []uint32{5, 6, 7}
	}
	trigger(t, d, kindCmdWriteRead, 0, 4, 4096, 0, 0)
	readControl(t, d)
	assert.Equal(t, []uint32{5, 6, 7, 0}, d.Words(d.bindings.Journal)[:4])
}

func TestLatencyJournalDeterministic(t *testing.T) {
	d := NewDevice(0, "NFP6000-B0", 1200)
	params := []uint32{flagRandom, 64, 8192, 0, 0}
	first := d.latencyJournal(kindDmaRead, params, 100)
	second := d.latencyJournal(kindDmaRead, params, 100)
	assert.Equal(t, first, second)
}

func TestResultTimestampsDeterministic(t *testing.T) {
	run := func() []uint32 {
		d := NewDevice(1, "NFP6000-B0", 1200)
		d.Samples = 5
		trigger(t, d, kindDmaRead, 0, 64, 8192, 0, 0)
		readControl(t, d)
		return d.Words(d.bindings.Result)
	}
	first := run()
	assert.Equal(t, first, run())
	assert.Equal(t, uint32(1), first[0])
}

func TestLatencyModel(t *testing.T) {
	cold := latencyNanos(kindDmaRead, 0, 64, 8192)
	assert.Less(t, latencyNanos(kindDmaRead, flagHostWarm, 64, 8192), cold)
	assert.Less(t, latencyNanos(kindDmaRead, flagWarm, 64, 8192), cold)
	assert.Greater(t, latencyNanos(kindDmaRead, flagThrash, 64, 8192), cold)
	assert.Greater(t, latencyNanos(kindDmaRead, 0, 1024, 8192), cold)
	assert.Greater(t, latencyNanos(kindDmaRead, flagRandom, 64, 64<<20), latencyNanos(kindDmaRead, flagRandom, 64, 8192))
}

func TestUnknownBinding(t *testing.T) {
	d := NewDevice(0, "NFP6000-B0", 1200)
	_, err := d.ReadBinding(context.Background(), "nope", 0)
	var terr *transport.Error
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, 1, terr.ExitCode)
	assert.Error(t, d.WriteBinding(context.Background(), d.bindings.Control, make([]uint64, 3)))
}

func TestCanceledContext(t *testing.T) {
	d := NewDevice(0, "NFP6000-B0", 1200)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.HWInfo(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, d.Ops())
}

func TestReloadFirmwareResets(t *testing.T) {
	d := NewDevice(0, "NFP6000-B0", 1200)
	trigger(t, d, kindCmdRead, 0, 64, 8192, 0, 0)
	require.NoError(t, d.ReloadFirmware(context.Background(), "test.nffw"))
	assert.Equal(t, "test.nffw", d.Loaded())
	assert.Equal(t, []uint32{0, 0}, d.Words(d.bindings.Control))
	assert.Len(t, d.Writes(d.bindings.Params), 1)
}

func TestSetCapacities(t *testing.T) {
	d := NewDevice(0, "NFP6000-B0", 1200)
	d.SetJournalCapacity(8)
	d.SetDMAAddrsCapacity(2)
	symbols, err := d.Symbols(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(32), symbols[d.bindings.Journal].Size)
	assert.Equal(t, uint64(16), symbols[d.bindings.DMAAddrs].Size)
}

func TestBufferSeekWrite(t *testing.T) {
	var b Buffer
	_, err := b.Write([]byte("abcd"))
	require.NoError(t, err)
	pos, err := b.Seek(1, io.SeekStart)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pos)
	_, err = b.Write([]byte("XYZW"))
	require.NoError(t, err)
	assert.Equal(t, "aXYZW", string(b.Bytes()))
	_, err = b.Seek(-10, io.SeekCurrent)
	assert.Error(t, err)
}

func TestHostWarm(t *testing.T) {
	h := NewHost(DefaultDescriptor())
	desc, err := h.DMADescriptor(context.Background())
	require.NoError(t, err)
	assert.Len(t, desc.Addrs, 2)
	require.NoError(t, h.WarmHost(context.Background(), hostmem.PageSize+1))
	assert.Equal(t, []int{hostmem.PageSize + 1}, h.Warms())
	assert.Len(t, h.Buffer(), 2*hostmem.PageSize)

	assert.Zero(t, h.Thrashes())
	require.NoError(t, h.ThrashHost(context.Background()))
	require.NoError(t, h.ThrashHost(context.Background()))
	assert.Equal(t, 2, h.Thrashes())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, h.ThrashHost(ctx), context.Canceled)
	assert.Equal(t, 2, h.Thrashes())
}
