// Package report renders benchmark result tables in various formats such as txt, csv, dat, json, xlsx.
package report

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"pciebench/internal/table"
	"strings"
)

const (
	FormatTxt  = "txt"
	FormatCsv  = "csv"
	FormatDat  = "dat"
	FormatJson = "json"
	FormatXlsx = "xlsx"
	FormatAll  = "all"
)

const NoDataFound = "No data found."

// FormatOptions lists the formats accepted by Create, in the order they are written.
var FormatOptions = []string{FormatTxt, FormatCsv, FormatDat, FormatJson, FormatXlsx}

// Create generates a report in the specified format from the provided table values.
// Every table is validated before anything is rendered.
//
// Parameters:
// - format: The desired format of the report (txt, csv, dat, json, xlsx).
// - allTableValues: The values for each field in each table.
//
// Returns:
// - out: The generated report as a byte slice.
// - err: An error, if any occurred during report generation.
func Create(format string, allTableValues []table.TableValues) (out []byte, err error) {
	for _, tableValues := range allTableValues {
		if err = table.Validate(tableValues); err != nil {
			return nil, err
		}
	}
	switch format {
	case FormatTxt:
		return createTextReport(allTableValues)
	case FormatCsv:
		return createCsvReport(allTableValues)
	case FormatDat:
		return createDatReport(allTableValues)
	case FormatJson:
		return createJsonReport(allTableValues)
	case FormatXlsx:
		return createXlsxReport(allTableValues)
	}
	return nil, fmt.Errorf("expected one of %s, got %s", strings.Join(FormatOptions, ", "), format)
}

// ExpandFormats resolves "all" and rejects unknown formats.
func ExpandFormats(formats []string) ([]string, error) {
	var expanded []string
	seen := make(map[string]bool)
	for _, format := range formats {
		candidates := []string{format}
		if format == FormatAll {
			candidates = FormatOptions
		}
		for _, candidate := range candidates {
			valid := false
			for _, option := range FormatOptions {
				if candidate == option {
					valid = true
					break
				}
			}
			if !valid {
				return nil, fmt.Errorf("format options are: %s, %s", strings.Join(FormatOptions, ", "), FormatAll)
			}
			if !seen[candidate] {
				seen[candidate] = true
				expanded = append(expanded, candidate)
			}
		}
	}
	return expanded, nil
}

func noDataMessage(tableValues table.TableValues) string {
	if tableValues.NoDataFound != "" {
		return tableValues.NoDataFound
	}
	return NoDataFound
}

func hasData(tableValues table.TableValues) bool {
	return len(tableValues.Fields) > 0 && len(tableValues.Fields[0].Values) > 0
}
