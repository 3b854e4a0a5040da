// Package hostmem covers the host side of a test: the DMA-accessible buffer the kernel
// module exports and the descriptor listing its chunks.
package hostmem

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	PageSize      = 4096
	CacheLineSize = 64
	// WarmPasses is how many times the warm pattern is written over the window.
	WarmPasses = 4
	// ThrashBytes is the size of the array written to evict the host CPU caches.
	ThrashBytes = 64 << 20
	// ThrashPasses is the number of random writes per array word in one thrash.
	ThrashPasses = 4
	// AddressWindowShift is log2 of the device's host addressing window (512 MiB).
	AddressWindowShift = 29
)

// files exported by the kernel module, formatted with the device index
const (
	procDMAAddrs = "pciebench_dma_addrs-%d"
	procBufSize  = "pciebench_buf_sz-%d"
	procBuffer   = "pciebench_buffer-%d"
)

// DefaultProcRoot is where the kernel module's files live.
const DefaultProcRoot = "/proc"

var warmPage = newWarmPage()

// newWarmPage builds one page of the warm pattern: a cache line of sixteen
// little-endian words 0xf00d0000+i, repeated across the page.
func newWarmPage() []byte {
	line := make([]byte, CacheLineSize)
	for i := range CacheLineSize / 4 {
		binary.LittleEndian.PutUint32(line[i*4:], 0xf00d0000+uint32(i))
	}
	page := make([]byte, 0, PageSize)
	for range PageSize / CacheLineSize {
		page = append(page, line...)
	}
	return page
}

// WarmHost writes the warm pattern over ceil(windowBytes/PageSize) pages of w,
// WarmPasses times, each pass starting again at offset 0.
func WarmHost(w io.WriteSeeker, windowBytes int) error {
	if windowBytes < 0 {
		return fmt.Errorf("negative window size: %d", windowBytes)
	}
	numPages := (windowBytes + PageSize - 1) / PageSize
	for pass := range WarmPasses {
		if _, err := w.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("warm pass %d: seek: %w", pass, err)
		}
		for page := range numPages {
			if _, err := w.Write(warmPage); err != nil {
				return fmt.Errorf("warm pass %d: page %d: %w", pass, page, err)
			}
		}
	}
	return nil
}

// Thrasher evicts the host CPU caches by writing to random words of a large
// array. The array is allocated on the first thrash. Create one with NewThrasher.
type Thrasher struct {
	words int
	array []uint64
	rng   *rand.Rand
}

// NewThrasher returns a thrasher over an array of size bytes.
func NewThrasher(size int) *Thrasher {
	return &Thrasher{
		words: max(size/8, 1),
		rng:   rand.New(rand.NewPCG(0x7468, 0x72617368)), // #nosec G404
	}
}

// ThrashHost makes ThrashPasses × len(array) writes at random indexes.
func (t *Thrasher) ThrashHost(ctx context.Context) error {
	if t.array == nil {
		t.array = make([]uint64, t.words)
	}
	n := uint64(len(t.array))
	for i := range ThrashPasses * len(t.array) {
		if i&(1<<20-1) == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		r := t.rng.Uint64()
		t.array[r%n] = uint64(i) * r // #nosec G115
	}
	return nil
}

// BufferConditioner thrashes the host caches and warms the kernel module's
// exported DMA buffer.
type BufferConditioner struct {
	Path string
	*Thrasher
}

// NewBufferConditioner returns a conditioner for device index's buffer under root.
func NewBufferConditioner(root string, index int) *BufferConditioner {
	return &BufferConditioner{
		Path:     filepath.Join(root, fmt.Sprintf(procBuffer, index)),
		Thrasher: NewThrasher(ThrashBytes),
	}
}

func (c *BufferConditioner) WarmHost(ctx context.Context, windowBytes int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.OpenFile(c.Path, os.O_WRONLY, 0) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to open host buffer: %w", err)
	}
	slog.Debug("warming host buffer", slog.String("path", c.Path), slog.Int("windowBytes", windowBytes))
	err = WarmHost(f, windowBytes)
	closeErr := f.Close()
	if err != nil {
		return err
	}
	return closeErr
}

// Descriptor lists the DMA-addressable chunks of the host buffer.
type Descriptor struct {
	Addrs       []uint64
	BufferBytes uint64
}

// ChunkBytes is the size of each chunk; the buffer is split evenly between chunks.
func (d Descriptor) ChunkBytes() uint64 {
	if len(d.Addrs) == 0 {
		return 0
	}
	return d.BufferBytes / uint64(len(d.Addrs))
}

// Validate checks the assumptions the firmware makes about every chunk: it starts
// on a page boundary and does not cross a host addressing window.
func (d Descriptor) Validate() error {
	if len(d.Addrs) == 0 {
		return fmt.Errorf("no DMA addresses")
	}
	chunk := d.ChunkBytes()
	if chunk == 0 {
		return fmt.Errorf("buffer size %d too small for %d chunks", d.BufferBytes, len(d.Addrs))
	}
	slog.Debug("DMA descriptor", slog.String("bufferBytes", fmt.Sprintf("0x%x", d.BufferBytes)), slog.Int("chunks", len(d.Addrs)), slog.String("chunkBytes", fmt.Sprintf("0x%x", chunk)))
	for _, start := range d.Addrs {
		end := start + chunk - 1
		if start&(PageSize-1) != 0 {
			return fmt.Errorf("start address 0x%x is not page aligned", start)
		}
		if start>>AddressWindowShift != end>>AddressWindowShift {
			return fmt.Errorf("chunk 0x%x-0x%x crosses a host addressing window", start, end)
		}
	}
	return nil
}

// ProcDescriptors reads the descriptor files the kernel module exports.
type ProcDescriptors struct {
	Root  string
	Index int
}

func (p ProcDescriptors) DMADescriptor(ctx context.Context) (Descriptor, error) {
	if err := ctx.Err(); err != nil {
		return Descriptor{}, err
	}
	root := p.Root
	if root == "" {
		root = DefaultProcRoot
	}
	addrsPath := filepath.Join(root, fmt.Sprintf(procDMAAddrs, p.Index))
	slog.Debug("reading DMA addresses", slog.String("path", addrsPath))
	f, err := os.Open(addrsPath) // #nosec G304
	if err != nil {
		return Descriptor{}, fmt.Errorf("failed to open DMA address list: %w", err)
	}
	defer f.Close()
	desc, err := ParseDescriptor(f, nil)
	if err != nil {
		return Descriptor{}, err
	}
	sizePath := filepath.Join(root, fmt.Sprintf(procBufSize, p.Index))
	sizeBytes, err := os.ReadFile(sizePath) // #nosec G304
	if err != nil {
		return Descriptor{}, fmt.Errorf("failed to read buffer size: %w", err)
	}
	desc.BufferBytes, err = parseBufferSize(string(sizeBytes))
	if err != nil {
		return Descriptor{}, err
	}
	return desc, nil
}

// ParseDescriptor reads one address per line from addrs (decimal, 0x hex, or any Go
// integer prefix). If size is non-nil the buffer size is read from it.
func ParseDescriptor(addrs io.Reader, size io.Reader) (Descriptor, error) {
	var desc Descriptor
	scanner := bufio.NewScanner(addrs)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		addr, err := strconv.ParseUint(line, 0, 64)
		if err != nil {
			return Descriptor{}, fmt.Errorf("invalid DMA address %q: %w", line, err)
		}
		desc.Addrs = append(desc.Addrs, addr)
	}
	if err := scanner.Err(); err != nil {
		return Descriptor{}, fmt.Errorf("failed to read DMA addresses: %w", err)
	}
	if size != nil {
		b, err := io.ReadAll(size)
		if err != nil {
			return Descriptor{}, fmt.Errorf("failed to read buffer size: %w", err)
		}
		if desc.BufferBytes, err = parseBufferSize(string(b)); err != nil {
			return Descriptor{}, err
		}
	}
	return desc, nil
}

// parseBufferSize takes the last non-empty line as the size.
func parseBufferSize(s string) (uint64, error) {
	var last string
	for line := range strings.SplitSeq(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			last = line
		}
	}
	size, err := strconv.ParseUint(last, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid buffer size %q: %w", last, err)
	}
	return size, nil
}
