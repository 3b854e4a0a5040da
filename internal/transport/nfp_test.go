package transport

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingTarget records the commands it is asked to run and replies from a script
// keyed by the joined arguments.
type recordingTarget struct {
	superUser bool
	commands  [][]string
	replies   map[string]string
	failures  map[string]int
}

func (r *recordingTarget) CanElevatePrivileges(ctx context.Context) bool { return false }
func (r *recordingTarget) IsSuperUser() bool                            { return r.superUser }
func (r *recordingTarget) GetName() string                              { return "test" }
func (r *recordingTarget) RunCommand(ctx context.Context, cmd *exec.Cmd, timeout int) (string, string, int, error) {
	r.commands = append(r.commands, cmd.Args)
	key := strings.Join(cmd.Args, " ")
	if code, ok := r.failures[key]; ok {
		return "", "no such symbol", code, errors.New("exit status")
	}
	return r.replies[key], "", 0, nil
}

func TestWords(t *testing.T) {
	b := []byte{0x01, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0xff, 0x0a}
	assert.Equal(t, []uint32{1, 0xffffffff}, Words(b))
	assert.Empty(t, Words(nil))
	assert.Equal(t, b[:8], PutWords([]uint32{1, 0xffffffff}))
}

func TestParseSymbolTable(t *testing.T) {
	out := `Name                     Domain   Offset             Size
i32._test_ctrl           i32.emem 0x0000000000001000 0x0000000000000008
i32._test_params         i32.emem 0x0000000000001008 0x14
test_journal             emem     0x100000           0x4000000

`
	symbols, err := ParseSymbolTable(out)
	require.NoError(t, err)
	require.Len(t, symbols, 3)
	assert.Equal(t, Symbol{Name: "i32._test_ctrl", Offset: 0x1000, Size: 8}, symbols["i32._test_ctrl"])
	assert.Equal(t, uint64(0x14), symbols["i32._test_params"].Size)
	assert.Equal(t, uint64(0x4000000), symbols["test_journal"].Size)

	_, err = ParseSymbolTable("bad row")
	assert.Error(t, err)
	_, err = ParseSymbolTable("sym dom 0xzz 0x10")
	assert.Error(t, err)
}

func TestNFPCommands(t *testing.T) {
	rt := &recordingTarget{
		superUser: true,
		replies: map[string]string{
			"nfp-rtsym -n 0 -l 8 -R test_journal": string([]byte{5, 0, 0, 0, 6, 0, 0, 0}),
			"nfp-hwinfo -n 0":                     "chip.model=NFP6000\nme.speed=1200\n",
		},
	}
	nfp := NewNFP(rt, 0, 10)
	ctx := context.Background()

	b, err := nfp.ReadBinding(ctx, "test_journal", 8)
	require.NoError(t, err)
	assert.Equal(t, []uint32{5, 6}, Words(b))

	require.NoError(t, nfp.WriteBinding(ctx, "i32._test_params", []uint64{0x80000004, 64, 4096, 0, 0}))
	assert.Equal(t, []string{"nfp-rtsym", "-n", "0", "i32._test_params", "0x80000004", "0x40", "0x1000", "0x0", "0x0"}, rt.commands[1])

	require.NoError(t, nfp.ReloadFirmware(ctx, "pciebench.fw"))
	assert.Equal(t, []string{"nfp-nffw", "unload", "-n", "0", "--ignore-debugger"}, rt.commands[2])
	assert.Equal(t, []string{"nfp-nffw", "pciebench.fw", "load", "-n", "0", "--ignore-debugger"}, rt.commands[3])

	hwinfo, err := nfp.HWInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1200", hwinfo["me.speed"])
}

func TestNFPCommandFailure(t *testing.T) {
	rt := &recordingTarget{
		superUser: true,
		failures:  map[string]int{"nfp-rtsym -n 2 -R i32._test_result": 2},
	}
	nfp := NewNFP(rt, 2, 0)
	_, err := nfp.ReadBinding(context.Background(), "i32._test_result", 0)
	var transportErr *Error
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, OpRead, transportErr.Op)
	assert.Equal(t, "i32._test_result", transportErr.Binding)
	assert.Equal(t, 2, transportErr.ExitCode)
	assert.Contains(t, err.Error(), "no such symbol")
}

func TestNFPUnloadFailureIgnored(t *testing.T) {
	rt := &recordingTarget{
		superUser: true,
		failures:  map[string]int{"nfp-nffw unload -n 0 --ignore-debugger": 1},
	}
	require.NoError(t, NewNFP(rt, 0, 0).ReloadFirmware(context.Background(), "fw"))
	assert.Len(t, rt.commands, 2)
}
