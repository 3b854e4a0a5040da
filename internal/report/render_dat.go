package report

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"pciebench/internal/table"
	"strings"
)

// createDatReport writes whitespace separated columns for gnuplot. The
// header is a comment line and every section after the first is a new
// data block, separated by two blank lines.
func createDatReport(allTableValues []table.TableValues) (out []byte, err error) {
	var sb strings.Builder
	for i, tableValues := range allTableValues {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		if len(tableValues.Fields) == 0 {
			continue
		}
		names := make([]string, len(tableValues.Fields))
		for j, field := range tableValues.Fields {
			names[j] = datValue(field.Name)
		}
		sb.WriteString("# " + strings.Join(names, " ") + "\n")
		for row := range tableValues.NumRows() {
			if section, ok := tableValues.SectionAt(row); ok {
				if row > 0 {
					sb.WriteString("\n\n")
				}
				if section.Header != "" {
					sb.WriteString("# " + section.Header + "\n")
				}
			}
			values := tableValues.Row(row)
			for j := range values {
				values[j] = datValue(values[j])
			}
			sb.WriteString(strings.Join(values, " ") + "\n")
		}
	}
	out = []byte(sb.String())
	return
}

// datValue keeps a value in a single gnuplot column.
func datValue(value string) string {
	if value == "" {
		return "-"
	}
	return strings.ReplaceAll(value, " ", "_")
}
