/*
Package target provides a way to run the device control-plane tools on the host
that owns the accelerator.
*/
package target

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"os"
	"os/exec"
)

// Target represents a machine where the device tools can be run.
type Target interface {
	// CanElevatePrivileges checks if the current user can elevate privileges.
	// It returns true if the user can elevate privileges, false otherwise.
	CanElevatePrivileges(ctx context.Context) bool

	// IsSuperUser checks if the current user is a superuser.
	IsSuperUser() bool

	// GetName returns the name of the target system.
	GetName() (name string)

	// RunCommand runs the specified command on the target.
	// Arguments:
	// - ctx: cancels the command when done
	// - cmd: the command to run
	// - timeout: the maximum time in seconds allowed for the command to run (zero means no timeout)
	// It returns the standard output, standard error, exit code, and any error that occurred.
	RunCommand(ctx context.Context, cmd *exec.Cmd, timeout int) (stdout string, stderr string, exitCode int, err error)
}

// LocalTarget runs commands on the machine this process runs on.
type LocalTarget struct {
	host       string
	sudo       string
	canElevate int // zero indicates unknown, 1 indicates yes, -1 indicates no
}

// NewLocalTarget creates a new LocalTarget
func NewLocalTarget() *LocalTarget {
	hostName, err := os.Hostname()
	if err != nil {
		hostName = "localhost"
	}
	t := &LocalTarget{
		host: hostName,
	}
	return t
}
