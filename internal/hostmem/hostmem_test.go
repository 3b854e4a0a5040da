package hostmem

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seekRecorder is an in-memory io.WriteSeeker that counts seeks and bytes written.
type seekRecorder struct {
	buf     []byte
	pos     int
	seeks   int
	written int
}

func (s *seekRecorder) Write(p []byte) (int, error) {
	if end := s.pos + len(p); end > len(s.buf) {
		s.buf = append(s.buf, make([]byte, end-len(s.buf))...)
	}
	copy(s.buf[s.pos:], p)
	s.pos += len(p)
	s.written += len(p)
	return len(p), nil
}

func (s *seekRecorder) Seek(offset int64, whence int) (int64, error) {
	if whence != io.SeekStart {
		return 0, fmt.Errorf("unsupported whence %d", whence)
	}
	s.seeks++
	s.pos = int(offset)
	return offset, nil
}

func TestWarmHost(t *testing.T) {
	tests := []struct {
		windowBytes int
		pages       int
	}{
		{0, 0},
		{64, 1},
		{4096, 1},
		{4097, 2},
		{8192, 2},
		{1536 * 1024, 384},
	}
	for _, test := range tests {
		rec := &seekRecorder{}
		require.NoError(t, WarmHost(rec, test.windowBytes))
		assert.Equal(t, WarmPasses, rec.seeks, "window %d", test.windowBytes)
		assert.Equal(t, WarmPasses*test.pages*PageSize, rec.written, "window %d", test.windowBytes)
		assert.Len(t, rec.buf, test.pages*PageSize, "window %d", test.windowBytes)
	}
}

func TestWarmHostPattern(t *testing.T) {
	rec := &seekRecorder{}
	require.NoError(t, WarmHost(rec, PageSize))
	for i := range PageSize / 4 {
		word := binary.LittleEndian.Uint32(rec.buf[i*4:])
		assert.Equal(t, uint32(0xf00d0000+i%16), word)
	}
}

func TestWarmHostNegativeWindow(t *testing.T) {
	assert.Error(t, WarmHost(&seekRecorder{}, -1))
}

func TestBufferConditioner(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pciebench_buffer-0")
	require.NoError(t, os.WriteFile(path, nil, 0600))
	c := NewBufferConditioner(dir, 0)
	require.NoError(t, c.WarmHost(context.Background(), 5000))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(2*PageSize), info.Size())

	missing := NewBufferConditioner(dir, 7)
	assert.Error(t, missing.WarmHost(context.Background(), 64))
	assert.Equal(t, ThrashBytes/8, c.words)
}

func TestThrashHost(t *testing.T) {
	th := NewThrasher(4096)
	require.NoError(t, th.ThrashHost(context.Background()))
	require.Len(t, th.array, 512)
	written := 0
	for _, w := range th.array {
		if w != 0 {
			written++
		}
	}
	// four random writes per word leave few words untouched
	assert.Greater(t, written, 400)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NewThrasher(64).ThrashHost(ctx), context.Canceled)
}

func TestDescriptorValidate(t *testing.T) {
	tests := []struct {
		name    string
		desc    Descriptor
		wantErr string
	}{
		{
			name: "aligned chunks",
			desc: Descriptor{Addrs: []uint64{0x100000000, 0x100400000}, BufferBytes: 8 * 1024 * 1024},
		},
		{
			name:    "unaligned start",
			desc:    Descriptor{Addrs: []uint64{0x100000000, 0x1001}, BufferBytes: 8192},
			wantErr: "not page aligned",
		},
		{
			name:    "crosses addressing window",
			desc:    Descriptor{Addrs: []uint64{0x1ffff000}, BufferBytes: 8192},
			wantErr: "crosses",
		},
		{
			name:    "no addresses",
			desc:    Descriptor{BufferBytes: 4096},
			wantErr: "no DMA addresses",
		},
		{
			name:    "buffer too small",
			desc:    Descriptor{Addrs: []uint64{0x1000, 0x2000}, BufferBytes: 1},
			wantErr: "too small",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.desc.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseDescriptor(t *testing.T) {
	desc, err := ParseDescriptor(strings.NewReader("0x1000\n\n8192\n0o20000\n"), strings.NewReader("12288\n"))
	require.NoError(t, err)
	assert.Equal(t, []uint64{0x1000, 8192, 0x2000}, desc.Addrs)
	assert.Equal(t, uint64(12288), desc.BufferBytes)
	assert.Equal(t, uint64(4096), desc.ChunkBytes())

	_, err = ParseDescriptor(strings.NewReader("zzz\n"), nil)
	assert.Error(t, err)
}

func TestProcDescriptors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pciebench_dma_addrs-1"), []byte("0x200000000\n0x200400000\n"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pciebench_buf_sz-1"), []byte("8388608\n"), 0600))
	desc, err := ProcDescriptors{Root: dir, Index: 1}.DMADescriptor(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uint64{0x200000000, 0x200400000}, desc.Addrs)
	assert.Equal(t, uint64(4*1024*1024), desc.ChunkBytes())
	require.NoError(t, desc.Validate())

	_, err = ProcDescriptors{Root: dir, Index: 2}.DMADescriptor(context.Background())
	assert.Error(t, err)
}
