// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package armexidx_test

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noexcept-lab/exidx/libpf"
	"github.com/noexcept-lab/exidx/nativeunwind/armexidx"
	"github.com/noexcept-lab/exidx/nativeunwind/armexidx/exidxtest"
)

const text = exidxtest.TextAddr

var cfg = armexidx.Config{Personality: exidxtest.Personality}

// mixedBuilder covers one index entry of each kind.
func mixedBuilder() *exidxtest.Builder {
	b := &exidxtest.Builder{TextSize: 0x1000}
	b.CantUnwind(text)
	b.Inline(text+0x100, 0x00b0b0b0)
	b.CompactTable(text+0x200, 0x00b0b0b0)
	b.Table(text+0x300, exidxtest.OtherPersonality, []byte{0xb0, 0xb0, 0xb0, 0x00})
	b.Descriptor(text+0x400, &exidxtest.LSDA{CallSiteEncoding: armexidx.EncUdata4})
	return b
}

func ranks(records []armexidx.FunctionRecord) map[libpf.Address]armexidx.Rank {
	m := make(map[libpf.Address]armexidx.Rank, len(records))
	for _, rec := range records {
		m[rec.Function] = rec.Rank
	}
	return m
}

func TestClassifyCantUnwind(t *testing.T) {
	b := &exidxtest.Builder{}
	mem, table := b.CantUnwind(0x100).Build()

	records := armexidx.Classify(mem, table, []libpf.Address{0x100}, cfg)
	require.Len(t, records, 1)
	assert.Equal(t, armexidx.FunctionRecord{
		Function: 0x100,
		Rank:     armexidx.RankInlinedCannotUnwind,
		Entry:    exidxtest.IndexAddr,
		HasEntry: true,
		Content:  exidxtest.CantUnwind,
	}, records[0])
}

func TestClassifyEmptyTable(t *testing.T) {
	mem, table := (&exidxtest.Builder{TextSize: 0x10}).Build()
	require.Empty(t, table.Entries)

	records := armexidx.Classify(mem, table, []libpf.Address{text + 4, 0x200, text}, cfg)
	require.Len(t, records, 3)
	for _, rec := range records {
		assert.Equal(t, armexidx.RankNoEntry, rec.Rank)
		assert.False(t, rec.HasEntry)
	}
	assert.Equal(t, libpf.Address(0x200), records[0].Function)
	assert.Equal(t, text, records[1].Function)
}

func TestClassifyRanks(t *testing.T) {
	mem, table := mixedBuilder().Build()

	tests := map[string]struct {
		cfg   armexidx.Config
		ranks map[libpf.Address]armexidx.Rank
	}{
		"personality configured": {
			cfg: cfg,
			ranks: map[libpf.Address]armexidx.Rank{
				text:         armexidx.RankInlinedCannotUnwind,
				text + 0x50:  armexidx.RankNoEntry,
				text + 0x100: armexidx.RankInlinedPersonality,
				text + 0x200: armexidx.RankTablePersonality,
				text + 0x300: armexidx.RankUnknown,
				text + 0x400: armexidx.RankTableExtendedDescriptor,
				text + 0x800: armexidx.RankNoEntry,
			},
		},
		"personality unknown": {
			cfg: armexidx.Config{},
			ranks: map[libpf.Address]armexidx.Rank{
				text + 0x300: armexidx.RankUnknown,
				text + 0x400: armexidx.RankUnknown,
			},
		},
		"personality without thumb bit": {
			cfg: armexidx.Config{
				Personality: exidxtest.Personality - 1,
				Normalize:   armexidx.ClearThumbBit,
			},
			ranks: map[libpf.Address]armexidx.Rank{
				text + 0x400: armexidx.RankTableExtendedDescriptor,
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			functions := make([]libpf.Address, 0, len(test.ranks))
			for fn := range test.ranks {
				functions = append(functions, fn)
			}
			records := armexidx.Classify(mem, table, functions, test.cfg)
			require.Len(t, records, len(test.ranks))
			assert.True(t, slices.IsSortedFunc(records,
				func(a, b armexidx.FunctionRecord) int {
					return int(a.Function) - int(b.Function)
				}))
			assert.Equal(t, test.ranks, ranks(records))
		})
	}
}

func TestClassifyEntryAddresses(t *testing.T) {
	mem, table := mixedBuilder().Build()

	records := armexidx.Classify(mem, table,
		[]libpf.Address{text + 0x400, text + 0x200}, cfg)
	require.Len(t, records, 2)
	assert.Equal(t, table.EntryAddr(2), records[0].Entry)
	assert.Equal(t, table.EntryAddr(4), records[1].Entry)
	assert.Equal(t, table.Entries[4].Content, records[1].Content)
}

func TestClassifyDuplicates(t *testing.T) {
	mem, table := mixedBuilder().Build()

	functions := []libpf.Address{text + 0x100, text, text + 0x100, text + 0x60, text + 0x60}
	records := armexidx.Classify(mem, table, functions, cfg)
	require.Len(t, records, 5)
	assert.Equal(t, []libpf.Address{text, text + 0x60, text + 0x60, text + 0x100,
		text + 0x100}, functions)
	assert.Equal(t, records[1], records[2])
	assert.Equal(t, armexidx.RankNoEntry, records[2].Rank)
	assert.Equal(t, records[3], records[4])
	assert.Equal(t, armexidx.RankInlinedPersonality, records[4].Rank)
}

func TestClassifyNormalize(t *testing.T) {
	mem, table := mixedBuilder().Build()
	normalized := cfg
	normalized.Normalize = armexidx.ClearThumbBit

	records := armexidx.Classify(mem, table, []libpf.Address{text + 1, text + 0x401}, normalized)
	require.Len(t, records, 2)
	assert.Equal(t, text, records[0].Function)
	assert.Equal(t, armexidx.RankInlinedCannotUnwind, records[0].Rank)
	assert.Equal(t, armexidx.RankTableExtendedDescriptor, records[1].Rank)

	records = armexidx.Classify(mem, table, []libpf.Address{text + 1}, cfg)
	assert.Equal(t, armexidx.RankNoEntry, records[0].Rank)
}

func TestClassifyUnmappedTable(t *testing.T) {
	b := &exidxtest.Builder{TextSize: 0x10}
	b.Raw(text, exidxtest.Prel31Offset(exidxtest.IndexAddr+4, 0x50000))
	mem, table := b.Build()

	records := armexidx.Classify(mem, table, []libpf.Address{text}, cfg)
	require.Len(t, records, 1)
	assert.Equal(t, armexidx.RankUnknown, records[0].Rank)
	assert.True(t, records[0].HasEntry)
}

func TestClassifyOnePerFunction(t *testing.T) {
	mem, table := mixedBuilder().Build()

	// Probe every halfword of the text segment, backwards and twice.
	functions := make([]libpf.Address, 0, 0x1000)
	for i := 0x800; i > 0; i-- {
		functions = append(functions, text+libpf.Address(i*2)-2)
	}
	functions = append(functions, functions[:0x100]...)
	n := len(functions)

	records := armexidx.Classify(mem, table, functions, cfg)
	require.Len(t, records, n)
	entries := 0
	for i, rec := range records {
		assert.Equal(t, functions[i], rec.Function)
		if i > 0 && records[i-1].Function == rec.Function {
			continue
		}
		if rec.HasEntry {
			entries++
		}
	}
	assert.Equal(t, len(table.Entries), entries)
}

func TestRankString(t *testing.T) {
	assert.Equal(t, "table-extended-descriptor", armexidx.RankTableExtendedDescriptor.String())
	assert.Equal(t, "no-entry", armexidx.RankNoEntry.String())
	assert.Equal(t, "invalid", armexidx.Rank(42).String())

	name, err := armexidx.RankInlinedPersonality.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "inlined-personality", string(name))

	var rank armexidx.Rank
	require.NoError(t, rank.UnmarshalText([]byte("table-personality")))
	assert.Equal(t, armexidx.RankTablePersonality, rank)
	require.Error(t, rank.UnmarshalText([]byte("bogus")))
}
