package transport

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"pciebench/internal/device"
	"pciebench/internal/target"
)

// control-plane tools
const (
	rtsymTool  = "nfp-rtsym"
	nffwTool   = "nfp-nffw"
	hwinfoTool = "nfp-hwinfo"
)

// NFP talks to a device by running the vendor control-plane tools on a target.
type NFP struct {
	target  target.Target
	index   int
	timeout int // seconds per command, zero means no timeout
}

// NewNFP creates a transport for device index on the target. timeout is applied to
// every command, in seconds.
func NewNFP(t target.Target, index int, timeout int) *NFP {
	return &NFP{target: t, index: index, timeout: timeout}
}

func (n *NFP) DeviceIndex() int {
	return n.index
}

// run executes one tool invocation, elevating privileges when needed, and maps
// failures to *Error.
func (n *NFP) run(ctx context.Context, op string, binding string, tool string, args ...string) (string, error) {
	var cmd *exec.Cmd
	if !n.target.IsSuperUser() && n.target.CanElevatePrivileges(ctx) {
		cmd = exec.Command("sudo", append([]string{"-S", tool}, args...)...) // #nosec G204
	} else {
		cmd = exec.Command(tool, args...) // #nosec G204
	}
	stdout, stderr, exitCode, err := n.target.RunCommand(ctx, cmd, n.timeout)
	if err != nil {
		slog.Debug("device command failed", slog.String("op", op), slog.String("binding", binding), slog.Int("exitCode", exitCode), slog.String("stderr", stderr))
		return stdout, &Error{Op: op, Binding: binding, ExitCode: exitCode, Err: errors.Wrapf(err, "%s: %s", tool, strings.TrimSpace(stderr))}
	}
	return stdout, nil
}

func (n *NFP) ReadBinding(ctx context.Context, name string, maxBytes int) ([]byte, error) {
	args := []string{"-n", strconv.Itoa(n.index)}
	if maxBytes > 0 {
		args = append(args, "-l", strconv.Itoa(maxBytes))
	}
	args = append(args, "-R", name)
	out, err := n.run(ctx, OpRead, name, rtsymTool, args...)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

func (n *NFP) WriteBinding(ctx context.Context, name string, values []uint64) error {
	args := []string{"-n", strconv.Itoa(n.index), name}
	for _, v := range values {
		args = append(args, fmt.Sprintf("0x%x", v))
	}
	_, err := n.run(ctx, OpWrite, name, rtsymTool, args...)
	return err
}

func (n *NFP) ReloadFirmware(ctx context.Context, image string) error {
	index := strconv.Itoa(n.index)
	// unloading fails when nothing is loaded, that's fine
	if _, err := n.run(ctx, OpReload, "", nffwTool, "unload", "-n", index, "--ignore-debugger"); err != nil {
		slog.Debug("firmware unload failed, continuing", slog.String("error", err.Error()))
	}
	_, err := n.run(ctx, OpReload, "", nffwTool, image, "load", "-n", index, "--ignore-debugger")
	return err
}

func (n *NFP) Symbols(ctx context.Context) (map[string]Symbol, error) {
	out, err := n.run(ctx, OpSymbols, "", rtsymTool, "-n", strconv.Itoa(n.index), "-L")
	if err != nil {
		return nil, err
	}
	symbols, err := ParseSymbolTable(out)
	if err != nil {
		return nil, &Error{Op: OpSymbols, Err: err}
	}
	return symbols, nil
}

func (n *NFP) HWInfo(ctx context.Context) (map[string]string, error) {
	out, err := n.run(ctx, OpHWInfo, "", hwinfoTool, "-n", strconv.Itoa(n.index))
	if err != nil {
		return nil, err
	}
	return device.ParseHWInfo(out), nil
}

// ParseSymbolTable parses the symbol listing of the run-time symbol tool. Each row
// is "<name> <domain> <offset> <size> ..." with offset and size in hex; a header row
// starting with "Name" is skipped.
func ParseSymbolTable(out string) (map[string]Symbol, error) {
	symbols := make(map[string]Symbol)
	for line := range strings.SplitSeq(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 || fields[0] == "Name" {
			continue
		}
		if len(fields) < 4 {
			return nil, fmt.Errorf("malformed symbol table row: %q", line)
		}
		off, err := parseHex(fields[2])
		if err != nil {
			return nil, fmt.Errorf("symbol %s offset: %w", fields[0], err)
		}
		size, err := parseHex(fields[3])
		if err != nil {
			return nil, fmt.Errorf("symbol %s size: %w", fields[0], err)
		}
		slog.Debug("symbol", slog.String("name", fields[0]), slog.String("offset", fmt.Sprintf("0x%08x", off)), slog.String("size", fmt.Sprintf("0x%08x", size)))
		symbols[fields[0]] = Symbol{Name: fields[0], Offset: off, Size: size}
	}
	return symbols, nil
}

func parseHex(s string) (uint64, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return strconv.ParseUint(s, 16, 64)
}
