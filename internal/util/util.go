/*
Package util includes utility/helper functions that may be useful to other modules.
*/
package util

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"io/fs"
	"math"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
)

// ExpandUser expands '~' to user's home directory, if found, otherwise returns original path
func ExpandUser(path string) string {
	usr, err := user.Current()
	if err != nil {
		return path
	}
	if path == "~" {
		return usr.HomeDir
	} else if strings.HasPrefix(path, "~"+string(os.PathSeparator)) {
		return filepath.Join(usr.HomeDir, path[2:])
	}
	return path
}

// AbsPath returns absolute path after expanding '~' to user's home dir
func AbsPath(path string) (string, error) {
	return filepath.Abs(ExpandUser(path))
}

// FileExists checks if a regular file exists at the given path.
func FileExists(path string) (exists bool, err error) {
	var fileInfo fs.FileInfo
	fileInfo, err = os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return
	}
	if !fileInfo.Mode().IsRegular() {
		err = fmt.Errorf("%s not a file", path)
		return
	}
	return true, nil
}

// DirectoryExists checks if the specified directory exists.
// It returns an error if the path refers to anything other than a directory.
func DirectoryExists(path string) (exists bool, err error) {
	var fileInfo fs.FileInfo
	fileInfo, err = os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return
	}
	if !fileInfo.Mode().IsDir() {
		err = fmt.Errorf("%s not a directory", path)
		return
	}
	return true, nil
}

// CreateDirectoryIfNotExists creates a directory at the specified path if it does not already exist.
func CreateDirectoryIfNotExists(dir string, perm os.FileMode) error {
	exists, err := DirectoryExists(dir)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if err := os.MkdirAll(dir, perm); err != nil {
		return fmt.Errorf("failed to create directory: '%s', error: '%s'", dir, err.Error())
	}
	return nil
}

// trimNumber formats f with the given precision, or as an integer when f is whole.
func trimNumber(f float64, prec int) string {
	if f == math.Trunc(f) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', prec, 64)
}

// SizeString formats a byte count with binary units, e.g., 512B, 4KB, 1.5MB.
func SizeString(bytes int) string {
	switch {
	case bytes < 1024:
		return fmt.Sprintf("%dB", bytes)
	case bytes < 1024*1024:
		return trimNumber(float64(bytes)/1024, 2) + "KB"
	}
	return trimNumber(float64(bytes)/(1024*1024), 2) + "MB"
}

// NanosString formats a duration in nanoseconds, e.g., 800ns, 2.50us, 12ms.
func NanosString(ns float64) string {
	switch {
	case ns < 1000:
		return trimNumber(ns, 2) + "ns"
	case ns < 1000*1000:
		return trimNumber(ns/1000, 2) + "us"
	}
	return trimNumber(ns/(1000*1000), 2) + "ms"
}

// SanitizeFileName replaces every character that is not alphanumeric, '-', '_' or '.'
// with an underscore.
func SanitizeFileName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '-' || r == '_' || r == '.':
			return r
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		}
		return '_'
	}, name)
}
