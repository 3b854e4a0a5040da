package target

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// SetSudo sets the sudo password for the target.
// Also sets the canElevate field to 0 to indicate that the sudo password has not been verified.
func (t *LocalTarget) SetSudo(sudo string) {
	t.sudo = sudo
	t.canElevate = 0
}

// RunCommand executes the given command with a timeout and returns the standard output,
// standard error, exit code, and any error that occurred.
func (t *LocalTarget) RunCommand(ctx context.Context, cmd *exec.Cmd, timeout int) (stdout string, stderr string, exitCode int, err error) {
	input := ""
	if t.sudo != "" && len(cmd.Args) > 2 && cmd.Args[0] == "sudo" && strings.HasPrefix(cmd.Args[1], "-") && strings.Contains(cmd.Args[1], "S") { // 'sudo -S' gets password from stdin
		input = t.sudo + "\n"
	}
	return runLocalCommandWithInputWithTimeout(ctx, cmd, input, timeout)
}

// CanElevatePrivileges checks if the user is root or sudo can be used to elevate privileges.
// A configured sudo password is tried first, then passwordless sudo. The answer is cached.
func (t *LocalTarget) CanElevatePrivileges(ctx context.Context) bool {
	if t.canElevate != 0 {
		return t.canElevate == 1
	}
	if t.IsSuperUser() {
		t.canElevate = 1
		return true // user is root
	}
	if t.sudo != "" {
		_, _, _, err := t.RunCommand(ctx, exec.Command("sudo", "-kS", "true"), 5)
		if err == nil {
			t.canElevate = 1
			return true // sudo password works
		}
		slog.Debug("sudo password rejected", slog.String("error", err.Error()))
	}
	_, _, _, err := t.RunCommand(ctx, exec.Command("sudo", "-kn", "true"), 5)
	if err == nil { // passwordless sudo works
		t.canElevate = 1
		return true
	}
	t.canElevate = -1
	return false
}

// IsSuperUser checks if the current user is a superuser.
func (t *LocalTarget) IsSuperUser() bool {
	return os.Geteuid() == 0
}

// GetName returns the name of the Target.
func (t *LocalTarget) GetName() (host string) {
	return t.host
}
