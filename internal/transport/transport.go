// Package transport is the only way the rest of the application touches device state:
// reading and writing firmware bindings and reloading the firmware image.
package transport

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"encoding/binary"
	"fmt"
)

// Transport reads and writes named bindings exposed by the firmware.
// All operations block until the underlying operation completes. Re-issuing a write is safe.
type Transport interface {
	// ReadBinding returns up to maxBytes of the binding's contents. maxBytes <= 0 reads the whole binding.
	ReadBinding(ctx context.Context, name string, maxBytes int) ([]byte, error)
	// WriteBinding writes the values, in order, as consecutive 32-bit words starting at the binding's base.
	WriteBinding(ctx context.Context, name string, values []uint64) error
	// ReloadFirmware unloads any loaded firmware and loads the image.
	ReloadFirmware(ctx context.Context, image string) error
	// Symbols returns the binding table of the loaded firmware.
	Symbols(ctx context.Context) (map[string]Symbol, error)
	// HWInfo returns the device's hardware info as key/value pairs.
	HWInfo(ctx context.Context) (map[string]string, error)
	// DeviceIndex returns the index of the device this transport talks to.
	DeviceIndex() int
}

// Symbol is one entry of the firmware's binding table.
type Symbol struct {
	Name   string
	Offset uint64
	Size   uint64 // bytes
}

// Operation names used in errors and logs
const (
	OpRead    = "read"
	OpWrite   = "write"
	OpReload  = "reload"
	OpSymbols = "symbols"
	OpHWInfo  = "hwinfo"
)

// Error reports that a transport operation itself failed, e.g., the control-plane
// command exited non-zero.
type Error struct {
	Op       string
	Binding  string
	ExitCode int
	Err      error
}

func (e *Error) Error() string {
	target := e.Op
	if e.Binding != "" {
		target = fmt.Sprintf("%s %s", e.Op, e.Binding)
	}
	return fmt.Sprintf("transport %s failed (exit code %d): %v", target, e.ExitCode, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Words decodes a binding payload into little-endian 32-bit words.
// Trailing bytes that do not form a whole word are ignored.
func Words(b []byte) []uint32 {
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return words
}

// PutWords encodes words as a little-endian binding payload.
func PutWords(words []uint32) []byte {
	b := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(b[i*4:], w)
	}
	return b
}
