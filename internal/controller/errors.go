package controller

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"errors"
	"fmt"
)

var (
	// ErrPollTimeout is returned when the firmware does not complete a test within the poll timeout.
	ErrPollTimeout = errors.New("timed out waiting for test completion")
	// ErrBusy is returned when a test is started while another one is running on the same controller.
	ErrBusy = errors.New("a test is already running")
)

// ConfigurationError reports an invalid request or host DMA descriptor. It is raised
// before the device is touched.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// DeviceProtocolError reports a negative completion code from the firmware.
type DeviceProtocolError struct {
	Kind Kind
	Code int32
}

func (e *DeviceProtocolError) Error() string {
	return fmt.Sprintf("test %s failed with %d", e.Kind, e.Code)
}
