package device

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticHWInfo struct {
	info map[string]string
	err  error
}

func (s staticHWInfo) HWInfo(ctx context.Context) (map[string]string, error) {
	return s.info, s.err
}

func (s staticHWInfo) DeviceIndex() int {
	return 1
}

func TestParseHWInfo(t *testing.T) {
	out := "chip.model=NFP6000\nme.speed=1200\n\nassembly.vendor=Netronome\nnfp.mac=a=b\n"
	hwinfo := ParseHWInfo(out)
	assert.Equal(t, "NFP6000", hwinfo["chip.model"])
	assert.Equal(t, "1200", hwinfo["me.speed"])
	assert.Equal(t, "a=b", hwinfo["nfp.mac"])
	assert.Len(t, hwinfo, 4)
}

func TestGenerationForModel(t *testing.T) {
	tests := []struct {
		model    string
		expected Generation
	}{
		{"NFP6000", GenNFP6000},
		{"NFP4000", GenNFP6000},
		{"NFP3200", GenNFP3200},
		{"", GenNFP3200},
	}
	for _, test := range tests {
		assert.Equal(t, test.expected, GenerationForModel(test.model), test.model)
	}
}

func TestProbe(t *testing.T) {
	tests := []struct {
		name           string
		info           map[string]string
		infoErr        error
		wantErr        bool
		wantGeneration Generation
		wantClockHz    int64
		wantMaxTrans   int
		wantControl    string
	}{
		{
			name:           "nfp6000",
			info:           map[string]string{"chip.model": "NFP6000", "me.speed": "1200"},
			wantGeneration: GenNFP6000,
			wantClockHz:    1200 * 1000 * 1000,
			wantMaxTrans:   4096,
			wantControl:    "i32._test_ctrl",
		},
		{
			name:           "nfp3200",
			info:           map[string]string{"chip.model": "NFP3200", "me.speed": "1400"},
			wantGeneration: GenNFP3200,
			wantClockHz:    1400 * 1000 * 1000,
			wantMaxTrans:   2048,
			wantControl:    "cl1._test_ctrl",
		},
		{
			name:    "missing clock",
			info:    map[string]string{"chip.model": "NFP6000"},
			wantErr: true,
		},
		{
			name:    "non-numeric clock",
			info:    map[string]string{"chip.model": "NFP6000", "me.speed": "fast"},
			wantErr: true,
		},
		{
			name:    "hwinfo unavailable",
			infoErr: errors.New("exit status 1"),
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile, err := Probe(context.Background(), staticHWInfo{info: tt.info, err: tt.infoErr})
			if tt.wantErr {
				var probeErr *ProbeError
				require.ErrorAs(t, err, &probeErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 1, profile.Index)
			assert.Equal(t, tt.wantGeneration, profile.Generation)
			assert.Equal(t, tt.wantClockHz, profile.ClockHz)
			assert.Equal(t, tt.wantMaxTrans, profile.MaxTransactionBytes)
			assert.Equal(t, tt.wantControl, profile.Bindings.Control)
		})
	}
}

func TestCyclesToNanoseconds(t *testing.T) {
	profile, err := NewProfile(0, "NFP6000", GenNFP6000, 1000*1000*1000)
	require.NoError(t, err)
	assert.InDelta(t, 250.0, profile.CyclesToNanoseconds(250), 1e-9)
	assert.Equal(t, 0.0, Profile{}.CyclesToNanoseconds(100))
}
