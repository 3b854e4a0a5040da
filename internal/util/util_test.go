package util

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSizeString(t *testing.T) {
	tests := []struct {
		bytes    int
		expected string
	}{
		{0, "0B"},
		{64, "64B"},
		{1023, "1023B"},
		{1024, "1KB"},
		{1536, "1.50KB"},
		{8192, "8KB"},
		{1024 * 1024, "1MB"},
		{1536 * 1024, "1.50MB"},
		{64 * 1024 * 1024, "64MB"},
	}
	for _, test := range tests {
		if result := SizeString(test.bytes); result != test.expected {
			t.Errorf("expected %s, got %s for %d", test.expected, result, test.bytes)
		}
	}
}

func TestNanosString(t *testing.T) {
	tests := []struct {
		ns       float64
		expected string
	}{
		{0, "0ns"},
		{800, "800ns"},
		{512.25, "512.25ns"},
		{2500, "2.50us"},
		{12000, "12us"},
		{12_000_000, "12ms"},
		{1_234_567, "1.23ms"},
	}
	for _, test := range tests {
		if result := NanosString(test.ns); result != test.expected {
			t.Errorf("expected %s, got %s for %v", test.expected, result, test.ns)
		}
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"lat_dma_sizes", "lat_dma_sizes"},
		{"bw dma/win", "bw_dma_win"},
		{"v1.2-rc", "v1.2-rc"},
	}
	for _, test := range tests {
		if result := SanitizeFileName(test.input); result != test.expected {
			t.Errorf("expected %s, got %s for %s", test.expected, result, test.input)
		}
	}
}

func TestDirectoryHelpers(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	if err := os.WriteFile(file, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	if exists, err := DirectoryExists(dir); err != nil || !exists {
		t.Errorf("expected %s to exist, got %v, %v", dir, exists, err)
	}
	if _, err := DirectoryExists(file); err == nil {
		t.Errorf("expected error for regular file %s", file)
	}
	if exists, err := FileExists(file); err != nil || !exists {
		t.Errorf("expected %s to exist, got %v, %v", file, exists, err)
	}
	if exists, err := FileExists(filepath.Join(dir, "missing")); err != nil || exists {
		t.Errorf("expected missing file, got %v, %v", exists, err)
	}
	sub := filepath.Join(dir, "a", "b")
	if err := CreateDirectoryIfNotExists(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if exists, _ := DirectoryExists(sub); !exists {
		t.Errorf("expected %s to be created", sub)
	}
	if err := CreateDirectoryIfNotExists(sub, 0755); err != nil {
		t.Errorf("creating existing directory: %v", err)
	}
}

func TestAbsPath(t *testing.T) {
	path, err := AbsPath("relative")
	if err != nil {
		t.Fatal(err)
	}
	if !filepath.IsAbs(path) {
		t.Errorf("expected absolute path, got %s", path)
	}
}
