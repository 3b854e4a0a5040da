package report

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"pciebench/internal/table"
)

// createCsvReport writes a header row followed by the values of every
// table. Consecutive tables are separated by an empty record.
func createCsvReport(allTableValues []table.TableValues) (out []byte, err error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for i, tableValues := range allTableValues {
		if i > 0 {
			if err = w.Write([]string{""}); err != nil {
				return
			}
		}
		if len(tableValues.Fields) == 0 {
			continue
		}
		names := make([]string, len(tableValues.Fields))
		for j, field := range tableValues.Fields {
			names[j] = field.Name
		}
		if err = w.Write(names); err != nil {
			return
		}
		for row := range tableValues.NumRows() {
			if err = w.Write(tableValues.Row(row)); err != nil {
				return
			}
		}
	}
	w.Flush()
	if err = w.Error(); err != nil {
		err = fmt.Errorf("failed to write csv report: %w", err)
		return
	}
	out = buf.Bytes()
	return
}
