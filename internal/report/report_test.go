package report

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"pciebench/internal/table"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleTable(t *testing.T) table.TableValues {
	t.Helper()
	tv := table.New(table.TableDefinition{Name: "lat_cmd_sizes", Title: "PCIe CMD latency", HasRows: true}, "Test", "SZ", "Avg")
	tv.StartSection("")
	require.NoError(t, tv.AddRow("LAT_CMD_RD", "4", "512.5"))
	require.NoError(t, tv.AddRow("LAT_CMD_RD", "64", "530.0"))
	tv.StartSection("writes")
	require.NoError(t, tv.AddRow("LAT_CMD_WRRD", "4", "1024"))
	return *tv
}

func TestCreateText(t *testing.T) {
	out, err := Create(FormatTxt, []table.TableValues{sampleTable(t)})
	require.NoError(t, err)
	expected := strings.Join([]string{
		"lat_cmd_sizes",
		"=============",
		"PCIe CMD latency",
		"Test           SZ   Avg",
		"----           --   ---",
		"LAT_CMD_RD     4    512.5",
		"LAT_CMD_RD     64   530.0",
		"",
		"writes",
		"LAT_CMD_WRRD   4    1024",
		"",
		"",
	}, "\n")
	assert.Equal(t, expected, string(out))
}

func TestCreateTextKeyValue(t *testing.T) {
	tv := table.New(table.TableDefinition{Name: "Device"}, "Model", "Clock (MHz)")
	require.NoError(t, tv.AddRow("NFP6000-B0", "1200"))
	out := DefaultTextTableRendererFunc(*tv)
	assert.Equal(t, "Model:       NFP6000-B0\nClock (MHz): 1200\n", out)
}

func TestCreateTextNoData(t *testing.T) {
	tv := table.New(table.TableDefinition{Name: "empty", NoDataFound: "nothing ran"}, "Test")
	out, err := Create(FormatTxt, []table.TableValues{*tv})
	require.NoError(t, err)
	assert.Equal(t, "empty\n=====\nnothing ran\n\n", string(out))
}

func TestCreateCsv(t *testing.T) {
	out, err := Create(FormatCsv, []table.TableValues{sampleTable(t)})
	require.NoError(t, err)
	assert.Equal(t, "Test,SZ,Avg\nLAT_CMD_RD,4,512.5\nLAT_CMD_RD,64,530.0\nLAT_CMD_WRRD,4,1024\n", string(out))
}

func TestCreateDat(t *testing.T) {
	out, err := Create(FormatDat, []table.TableValues{sampleTable(t)})
	require.NoError(t, err)
	assert.Equal(t, "# Test SZ Avg\nLAT_CMD_RD 4 512.5\nLAT_CMD_RD 64 530.0\n\n\n# writes\nLAT_CMD_WRRD 4 1024\n", string(out))
}

func TestCreateJson(t *testing.T) {
	out, err := Create(FormatJson, []table.TableValues{sampleTable(t)})
	require.NoError(t, err)
	var decoded map[string][]map[string]string
	require.NoError(t, json.Unmarshal(out, &decoded))
	records := decoded["lat_cmd_sizes"]
	require.Len(t, records, 3)
	assert.Equal(t, "64", records[1]["SZ"])
	assert.NotContains(t, records[0], SectionKey)
	assert.Equal(t, "writes", records[2][SectionKey])
}

func TestCreateXlsx(t *testing.T) {
	out, err := Create(FormatXlsx, []table.TableValues{sampleTable(t)})
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()
	name, err := f.GetCellValue(XlsxPrimarySheetName, "A1")
	require.NoError(t, err)
	assert.Equal(t, "lat_cmd_sizes", name)
	header, err := f.GetCellValue(XlsxPrimarySheetName, "B3")
	require.NoError(t, err)
	assert.Equal(t, "Test", header)
	section, err := f.GetCellValue(XlsxPrimarySheetName, "A6")
	require.NoError(t, err)
	assert.Equal(t, "writes", section)
	value, err := f.GetCellValue(XlsxPrimarySheetName, "C6")
	require.NoError(t, err)
	assert.Equal(t, "4", value)
}

func TestCreateErrors(t *testing.T) {
	_, err := Create("html", []table.TableValues{sampleTable(t)})
	assert.Error(t, err)
	ragged := table.TableValues{
		TableDefinition: table.TableDefinition{Name: "ragged"},
		Fields:          []table.Field{{Name: "a", Values: []string{"1"}}, {Name: "b"}},
	}
	_, err = Create(FormatTxt, []table.TableValues{ragged})
	assert.Error(t, err)
}

func TestExpandFormats(t *testing.T) {
	formats, err := ExpandFormats([]string{FormatCsv, FormatAll})
	require.NoError(t, err)
	assert.Equal(t, []string{FormatCsv, FormatTxt, FormatDat, FormatJson, FormatXlsx}, formats)
	_, err = ExpandFormats([]string{"pdf"})
	assert.Error(t, err)
}

func TestGetValueForCell(t *testing.T) {
	assert.Equal(t, 42, getValueForCell("42"))
	assert.Equal(t, 1.5, getValueForCell("1.5"))
	assert.Equal(t, "4KB", getValueForCell("4KB"))
}

func TestWriteRaw(t *testing.T) {
	var buf bytes.Buffer
	err := WriteRaw(&buf,
		RawBlock{Test: "LAT_DMA_RD", WindowBytes: 8192, TransactionBytes: 64, Nanos: []float64{400.4, 512.6}},
		RawBlock{Test: "LAT_DMA_RD", HostWarm: true, WindowBytes: 8192, TransactionBytes: 64, Nanos: []float64{300}},
	)
	require.NoError(t, err)
	expected := "# LAT_DMA_RD Cold Winsz=8192 trans_sz=64 (values in ns)\n400\n513\n\n\n" +
		"# LAT_DMA_RD Warm Winsz=8192 trans_sz=64 (values in ns)\n300\n\n\n"
	assert.Equal(t, expected, buf.String())
}

func TestWriteTables(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	paths, err := WriteTables(dir, []string{FormatTxt, FormatCsv}, []table.TableValues{sampleTable(t)})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "lat_cmd_sizes.txt"),
		filepath.Join(dir, "lat_cmd_sizes.csv"),
	}, paths)
	data, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Test,SZ,Avg\n"))
}
