package target

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// runLocalCommandWithInputWithTimeout executes a local command with optional input and a timeout.
// It captures the command's standard output, standard error, and exit code.
//
// Parameters:
//   - ctx: Cancels the command when done.
//   - cmd: The command to execute, represented as an *exec.Cmd.
//   - input: A string to be passed as input to the command's standard input.
//   - timeout: The timeout in seconds for the command execution. If set to 0, no timeout is applied.
//
// Returns:
//   - stdout: The standard output of the command as a string.
//   - stderr: The standard error of the command as a string.
//   - exitCode: The exit code of the command, -1 if the command did not run to completion.
//   - err: An error object if the command fails to execute, exits non-zero, or times out.
func runLocalCommandWithInputWithTimeout(ctx context.Context, cmd *exec.Cmd, input string, timeout int) (stdout string, stderr string, exitCode int, err error) {
	logInput := ""
	if input != "" {
		logInput = "******"
	}
	slog.Debug("running local command", slog.String("cmd", cmd.String()), slog.String("input", logInput), slog.Int("timeout", timeout))
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
		defer cancel()
	}
	commandWithContext := exec.CommandContext(ctx, cmd.Path, cmd.Args[1:]...) // #nosec G204 // nosemgrep
	commandWithContext.Env = cmd.Env
	commandWithContext.Dir = cmd.Dir
	cmd = commandWithContext
	if input != "" {
		cmd.Stdin = strings.NewReader(input)
	}
	var outbuf, errbuf strings.Builder
	cmd.Stdout = &outbuf
	cmd.Stderr = &errbuf
	err = cmd.Run()
	stdout = outbuf.String()
	stderr = errbuf.String()
	if err != nil {
		exitCode = -1
		exitError := &exec.ExitError{}
		if errors.As(err, &exitError) {
			exitCode = exitError.ExitCode()
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = errors.Join(err, ctxErr)
		}
	}
	return
}
