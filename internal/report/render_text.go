package report

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"pciebench/internal/table"
	"strings"
)

func createTextReport(allTableValues []table.TableValues) (out []byte, err error) {
	var sb strings.Builder
	for _, tableValues := range allTableValues {
		sb.WriteString(fmt.Sprintf("%s\n", tableValues.Name))
		sb.WriteString(strings.Repeat("=", len(tableValues.Name)))
		sb.WriteString("\n")
		if tableValues.Title != "" {
			sb.WriteString(tableValues.Title + "\n")
		}
		if !hasData(tableValues) {
			sb.WriteString(noDataMessage(tableValues) + "\n\n")
			continue
		}
		sb.WriteString(DefaultTextTableRendererFunc(tableValues))
		sb.WriteString("\n")
	}
	out = []byte(sb.String())
	return
}

// DefaultTextTableRendererFunc renders row tables as aligned columns with
// a blank line (and the heading, if any) at each section start. Other
// tables are rendered as "name: value" lines.
func DefaultTextTableRendererFunc(tableValues table.TableValues) string {
	var sb strings.Builder
	if tableValues.HasRows { // print the field names as column headings across the top of the table
		// find the longest item per column -- can be the field name (column header) or a value
		maxFieldLen := make([]int, len(tableValues.Fields))
		for i, field := range tableValues.Fields {
			// the last column shouldn't occupy more space than the value
			if i == len(tableValues.Fields)-1 {
				continue
			}
			maxFieldLen[i] = len(field.Name)
			for _, val := range field.Values {
				maxFieldLen[i] = max(maxFieldLen[i], len(val))
			}
		}
		columnSpacing := 3
		writeRow := func(values []string) {
			var line strings.Builder
			for i, value := range values {
				line.WriteString(fmt.Sprintf("%-*s", maxFieldLen[i]+columnSpacing, value))
			}
			sb.WriteString(strings.TrimRight(line.String(), " ") + "\n")
		}
		names := make([]string, len(tableValues.Fields))
		underlines := make([]string, len(tableValues.Fields))
		for i, field := range tableValues.Fields {
			names[i] = field.Name
			underlines[i] = strings.Repeat("-", len(field.Name))
		}
		writeRow(names)
		writeRow(underlines)
		numRows := len(tableValues.Fields[0].Values)
		for row := range numRows {
			if section, ok := tableValues.SectionAt(row); ok {
				if row > 0 {
					sb.WriteString("\n")
				}
				if section.Header != "" {
					sb.WriteString(section.Header + "\n")
				}
			}
			writeRow(tableValues.Row(row))
		}
	} else {
		// get the longest field name to format the table nicely
		maxFieldNameLen := 0
		for _, field := range tableValues.Fields {
			maxFieldNameLen = max(maxFieldNameLen, len(field.Name))
		}
		// print the field names followed by their value
		for _, field := range tableValues.Fields {
			var value string
			if len(field.Values) > 0 {
				value = field.Values[0]
			}
			sb.WriteString(fmt.Sprintf("%s%-*s %s\n", field.Name, maxFieldNameLen-len(field.Name)+1, ":", value))
		}
	}
	return sb.String()
}
