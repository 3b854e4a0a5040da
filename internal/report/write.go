package report

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"pciebench/internal/table"
	"pciebench/internal/util"
)

// WriteTables writes every table to its own file in outputDir, one file
// per format, named after the table. It returns the paths written.
func WriteTables(outputDir string, formats []string, allTableValues []table.TableValues) (paths []string, err error) {
	if err = util.CreateDirectoryIfNotExists(outputDir, 0755); err != nil {
		return
	}
	for _, tableValues := range allTableValues {
		base := util.SanitizeFileName(tableValues.Name)
		for _, format := range formats {
			var out []byte
			out, err = Create(format, []table.TableValues{tableValues})
			if err != nil {
				err = fmt.Errorf("failed to create %s report for %s: %w", format, tableValues.Name, err)
				return
			}
			path := filepath.Join(outputDir, base+"."+format)
			if err = os.WriteFile(path, out, 0644); err != nil { // #nosec G306
				err = fmt.Errorf("failed to write report file: %w", err)
				return
			}
			slog.Debug("wrote report file", slog.String("path", path))
			paths = append(paths, path)
		}
	}
	return
}
