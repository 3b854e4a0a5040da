package report

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"bufio"
	"fmt"
	"io"
)

// RawBlock holds the individual latencies of one test run.
type RawBlock struct {
	Test             string
	HostWarm         bool
	WindowBytes      int
	TransactionBytes int
	Nanos            []float64
}

// WriteRaw writes each block as a comment line followed by one rounded
// nanosecond value per line. Blocks are separated by two blank lines so
// gnuplot sees each as its own data set.
func WriteRaw(w io.Writer, blocks ...RawBlock) error {
	bw := bufio.NewWriter(w)
	for _, block := range blocks {
		cache := "Cold"
		if block.HostWarm {
			cache = "Warm"
		}
		fmt.Fprintf(bw, "# %s %s Winsz=%d trans_sz=%d (values in ns)\n", block.Test, cache, block.WindowBytes, block.TransactionBytes)
		for _, ns := range block.Nanos {
			fmt.Fprintf(bw, "%.0f\n", ns)
		}
		bw.WriteString("\n\n")
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write raw samples: %w", err)
	}
	return nil
}
