// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

// Package table provides the tabular form of benchmark results.
package table

import (
	"fmt"
)

// Field represents the values for a field (column) in a table
type Field struct {
	Name   string
	Values []string
}

// Section marks the row at which a new group of results starts, with an
// optional heading
type Section struct {
	Row    int
	Header string
}

// TableDefinition defines the structure of a table in the report
type TableDefinition struct {
	Name        string // also used as the base name of output files
	Title       string // optional caption printed above the table
	HasRows     bool   // table is meant to be displayed in row form, i.e., a field may have multiple values
	NoDataFound string // message to display when no data is found
}

// TableValues combines the table definition with the resulting fields and their values
type TableValues struct {
	TableDefinition
	Fields   []Field
	Sections []Section
}

// New creates an empty table with the given field names.
func New(definition TableDefinition, fieldNames ...string) *TableValues {
	tv := &TableValues{TableDefinition: definition}
	for _, name := range fieldNames {
		tv.Fields = append(tv.Fields, Field{Name: name})
	}
	return tv
}

// NumRows returns the number of values in the first field.
func (tv *TableValues) NumRows() int {
	if len(tv.Fields) == 0 {
		return 0
	}
	return len(tv.Fields[0].Values)
}

// AddRow appends one value to every field.
func (tv *TableValues) AddRow(values ...string) error {
	if len(values) != len(tv.Fields) {
		return fmt.Errorf("table %s, expected %d value(s) in row, got %d", tv.Name, len(tv.Fields), len(values))
	}
	for i, value := range values {
		tv.Fields[i].Values = append(tv.Fields[i].Values, value)
	}
	return nil
}

// Row returns the values of row i in field order.
func (tv *TableValues) Row(i int) []string {
	row := make([]string, len(tv.Fields))
	for j, field := range tv.Fields {
		row[j] = field.Values[i]
	}
	return row
}

// StartSection starts a new section at the next row. Starting a section
// before any row was added to the previous one replaces it.
func (tv *TableValues) StartSection(header string) {
	row := tv.NumRows()
	if n := len(tv.Sections); n > 0 && tv.Sections[n-1].Row == row {
		tv.Sections[n-1].Header = header
		return
	}
	tv.Sections = append(tv.Sections, Section{Row: row, Header: header})
}

// SectionAt returns the section starting at row, if any.
func (tv *TableValues) SectionAt(row int) (Section, bool) {
	for _, section := range tv.Sections {
		if section.Row == row {
			return section, true
		}
	}
	return Section{}, false
}

// GetFieldIndex returns the index of a field with the given name in the TableValues structure.
// Returns:
//   - int: The index of the field if found and valid, -1 otherwise
//   - error: nil if successful, an error describing the issue otherwise
func GetFieldIndex(fieldName string, tableValues TableValues) (int, error) {
	for i, field := range tableValues.Fields {
		if field.Name == fieldName {
			if len(field.Values) == 0 {
				return -1, fmt.Errorf("field [%s] does not have associated value(s)", field.Name)
			}
			return i, nil
		}
	}
	return -1, fmt.Errorf("field [%s] not found in table [%s]", fieldName, tableValues.Name)
}

// Validate checks that the table is named, that every field is named and
// that all fields have the same number of values.
func Validate(tableValues TableValues) error {
	if tableValues.Name == "" {
		return fmt.Errorf("table name cannot be empty")
	}
	// no field values is a valid state
	if len(tableValues.Fields) == 0 {
		return nil
	}
	// field names cannot be empty
	for i, field := range tableValues.Fields {
		if field.Name == "" {
			return fmt.Errorf("table %s, field %d, name cannot be empty", tableValues.Name, i)
		}
	}
	// the number of entries in each field must be the same
	numEntries := len(tableValues.Fields[0].Values)
	for i, field := range tableValues.Fields {
		if len(field.Values) != numEntries {
			return fmt.Errorf("table %s, field %d, %s, number of entries must be the same for all fields, expected %d, got %d", tableValues.Name, i, field.Name, numEntries, len(field.Values))
		}
	}
	for _, section := range tableValues.Sections {
		if section.Row < 0 || section.Row > numEntries {
			return fmt.Errorf("table %s, section at row %d out of range", tableValues.Name, section.Row)
		}
	}
	return nil
}
