package target

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCommand(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	tests := []struct {
		name         string
		script       string
		timeout      int
		wantStdout   string
		wantStderr   string
		wantExitCode int
		wantErr      bool
	}{
		{
			name:       "stdout captured",
			script:     "echo hello",
			wantStdout: "hello\n",
		},
		{
			name:       "stderr captured",
			script:     "echo oops 1>&2",
			wantStderr: "oops\n",
		},
		{
			name:         "non-zero exit",
			script:       "exit 3",
			wantExitCode: 3,
			wantErr:      true,
		},
	}
	localTarget := NewLocalTarget()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, stderr, exitCode, err := localTarget.RunCommand(context.Background(), exec.Command("sh", "-c", tt.script), tt.timeout)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantStdout, stdout)
			assert.Equal(t, tt.wantStderr, stderr)
			assert.Equal(t, tt.wantExitCode, exitCode)
		})
	}
}

func TestRunCommandCanceled(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, exitCode, err := NewLocalTarget().RunCommand(ctx, exec.Command("sleep", "5"), 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, -1, exitCode)
}

func TestGetName(t *testing.T) {
	assert.NotEmpty(t, NewLocalTarget().GetName())
}
