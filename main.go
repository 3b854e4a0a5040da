// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"fmt"
	"os"
	"pciebench/cmd"
	"runtime/pprof"
)

func main() {
	// profile the tool itself only if the environment variable is set
	if path := os.Getenv("PCIEBENCH_CPU_PROFILE"); path != "" {
		cpuFile, err := os.Create(path) // #nosec G304
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer cpuFile.Close()
		if err := pprof.StartCPUProfile(cpuFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}
	cmd.Execute()
}
