// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package armexidx_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noexcept-lab/exidx/libpf"
	"github.com/noexcept-lab/exidx/libpf/freelru"
	"github.com/noexcept-lab/exidx/nativeunwind/armexidx"
	"github.com/noexcept-lab/exidx/nativeunwind/armexidx/exidxtest"
)

func TestNewDecoder(t *testing.T) {
	mem, table := mixedBuilder().Build()

	_, err := armexidx.New(mem, table, armexidx.Config{PointerSize: 2})
	require.Error(t, err)

	d, err := armexidx.New(mem, table, armexidx.Config{})
	require.NoError(t, err)
	assert.Equal(t, table.Fingerprint(), d.Table().Fingerprint())
}

func TestDecode(t *testing.T) {
	b := mixedBuilder()
	b.Descriptor(text+0x500, &exidxtest.LSDA{Augmentation: 'z'})
	b.Descriptor(text+0x600, &exidxtest.LSDA{
		TypeEncoding:     armexidx.EncAbsPtr,
		TypeTable:        []uint32{0},
		CallSiteEncoding: armexidx.EncUdata4,
		CallSites:        callSites(1),
		Actions:          []exidxtest.Action{{Filter: 1}},
	})
	mem, table := b.Build()

	d, err := armexidx.New(mem, table, cfg)
	require.NoError(t, err)

	probes := func() []libpf.Address {
		return []libpf.Address{text + 0x600, text + 0x500, text + 0x400, text + 0x100, text + 0x700}
	}
	records, descs := d.Decode(probes())
	require.Len(t, records, 5)
	require.Len(t, descs, 3)

	assert.Equal(t, text+0x400, descs[0].Function)
	assert.True(t, descs[0].Valid)

	assert.Equal(t, text+0x500, descs[1].Function)
	assert.False(t, descs[1].Valid)
	assert.ErrorIs(t, descs[1].Err, armexidx.ErrUnsupportedAugmentation)

	assert.Equal(t, text+0x600, descs[2].Function)
	assert.True(t, descs[2].Valid)
	assert.Equal(t, armexidx.SectionSize{Count: 1, Size: 4}, descs[2].TypeTable)

	assert.Equal(t, freelru.Statistics{Miss: 3, Added: 3}, d.CacheStatistics())

	// A second probe set reuses the parsed descriptors.
	_, again := d.Decode(probes())
	assert.Equal(t, descs, again)
	assert.Equal(t, freelru.Statistics{Hit: 3}, d.CacheStatistics())

	assert.Empty(t, d.Describe([]armexidx.FunctionRecord{records[0], records[4]}))
}
