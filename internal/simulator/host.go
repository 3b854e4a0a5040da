package simulator

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"fmt"
	"io"
	"sync"

	"pciebench/internal/hostmem"
)

// Buffer is an in-memory io.WriteSeeker standing in for the host DMA buffer.
type Buffer struct {
	data []byte
	pos  int
}

func (b *Buffer) Write(p []byte) (int, error) {
	if end := b.pos + len(p); end > len(b.data) {
		b.data = append(b.data, make([]byte, end-len(b.data))...)
	}
	copy(b.data[b.pos:], p)
	b.pos += len(p)
	return len(p), nil
}

func (b *Buffer) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = int64(b.pos) + offset
	case io.SeekEnd:
		pos = int64(len(b.data)) + offset
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	if pos < 0 {
		return 0, fmt.Errorf("negative position %d", pos)
	}
	b.pos = int(pos)
	return pos, nil
}

// Bytes returns the buffer contents.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Host is a simulated host side: a DMA descriptor and a buffer to warm.
type Host struct {
	Descriptor hostmem.Descriptor

	mu       sync.Mutex
	buffer   Buffer
	warms    []int
	thrashes int
}

// DefaultDescriptor is two 4 MiB chunks above 4 GiB.
func DefaultDescriptor() hostmem.Descriptor {
	return hostmem.Descriptor{
		Addrs:       []uint64{0x1_0000_0000, 0x1_0040_0000},
		BufferBytes: 8 << 20,
	}
}

// NewHost returns a host exporting the given descriptor.
func NewHost(desc hostmem.Descriptor) *Host {
	return &Host{Descriptor: desc}
}

func (h *Host) DMADescriptor(ctx context.Context) (hostmem.Descriptor, error) {
	if err := ctx.Err(); err != nil {
		return hostmem.Descriptor{}, err
	}
	return h.Descriptor, nil
}

// ThrashHost counts the thrash; a simulated host has no caches to evict.
func (h *Host) ThrashHost(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.thrashes++
	return nil
}

// Thrashes returns how many times the host caches were thrashed.
func (h *Host) Thrashes() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.thrashes
}

func (h *Host) WarmHost(ctx context.Context, windowBytes int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.warms = append(h.warms, windowBytes)
	return hostmem.WarmHost(&h.buffer, windowBytes)
}

// Warms returns the window sizes of every warm so far.
func (h *Host) Warms() []int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]int(nil), h.warms...)
}

// Buffer returns the warmed buffer contents.
func (h *Host) Buffer() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.buffer.Bytes()
}
