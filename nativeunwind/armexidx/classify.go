// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package armexidx // import "github.com/noexcept-lab/exidx/nativeunwind/armexidx"

import (
	"fmt"
	"slices"

	"github.com/noexcept-lab/exidx/internal/log"
	"github.com/noexcept-lab/exidx/libpf"
)

const (
	// cantUnwind is the index content marking a function that cannot be unwound.
	cantUnwind uint32 = 0x1
	// inlineData marks a word holding compact unwind data instead of an offset.
	inlineData uint32 = 1 << 31
)

// Rank classifies the unwind metadata found for a function.
type Rank uint8

const (
	// RankUnknown: the exception table entry is handled by an unrecognized
	// personality routine.
	RankUnknown Rank = iota
	// RankNoEntry: no index entry matches the function.
	RankNoEntry
	// RankInlinedCannotUnwind: the index entry carries the cannot-unwind marker.
	RankInlinedCannotUnwind
	// RankInlinedPersonality: the index entry holds compact unwind data inline.
	RankInlinedPersonality
	// RankTablePersonality: the exception table entry starts with compact
	// unwind data.
	RankTablePersonality
	// RankTableExtendedDescriptor: the exception table entry is handled by the
	// configured personality routine and carries an extended descriptor.
	RankTableExtendedDescriptor
)

var rankNames = [...]string{
	RankUnknown:                 "unknown",
	RankNoEntry:                 "no-entry",
	RankInlinedCannotUnwind:     "inlined-cannot-unwind",
	RankInlinedPersonality:      "inlined-personality",
	RankTablePersonality:        "table-personality",
	RankTableExtendedDescriptor: "table-extended-descriptor",
}

func (r Rank) String() string {
	if int(r) < len(rankNames) {
		return rankNames[r]
	}
	return "invalid"
}

// MarshalText implements the encoding.TextMarshaler interface.
func (r Rank) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (r *Rank) UnmarshalText(text []byte) error {
	for rank, name := range rankNames {
		if name == string(text) {
			*r = Rank(rank)
			return nil
		}
	}
	return fmt.Errorf("unknown rank %q", text)
}

// FunctionRecord is the classification of one probed function.
type FunctionRecord struct {
	Function libpf.Address
	Rank     Rank
	// Entry is the address of the matching index entry; valid if HasEntry.
	Entry    libpf.Address
	HasEntry bool
	// Content is the content word of the matching index entry.
	Content uint32
}

// Classify sorts functions in place and merges them against the index table,
// producing exactly one record per function in ascending address order.
// Functions and index entries are normalized with cfg.Normalize before they
// are compared. The table is expected to be sorted by function address, as
// laid out by the linker.
func Classify(mem *Image, table IndexTable, functions []libpf.Address, cfg Config) []FunctionRecord {
	for i, fn := range functions {
		functions[i] = cfg.normalize(fn)
	}
	slices.Sort(functions)

	records := make([]FunctionRecord, 0, len(functions))
	e := 0
	prevEntryFn := libpf.Address(0)
	for f := 0; f < len(functions); {
		fn := functions[f]
		if f > 0 && fn == functions[f-1] {
			records = append(records, records[len(records)-1])
			f++
			continue
		}
		if e >= len(table.Entries) {
			records = append(records, FunctionRecord{Function: fn, Rank: RankNoEntry})
			f++
			continue
		}

		entryFn := cfg.normalize(table.Function(e))
		if entryFn < prevEntryFn {
			log.Debugf("Index entry %d at %v is out of order (%v < %v)",
				e, table.EntryAddr(e), entryFn, prevEntryFn)
		}
		switch {
		case fn == entryFn:
			records = append(records, classifyEntry(mem, &table, e, fn, &cfg))
			prevEntryFn = entryFn
			f++
			e++
		case fn < entryFn:
			records = append(records, FunctionRecord{Function: fn, Rank: RankNoEntry})
			f++
		default:
			prevEntryFn = entryFn
			e++
		}
	}
	return records
}

func classifyEntry(mem *Image, table *IndexTable, e int, fn libpf.Address,
	cfg *Config) FunctionRecord {
	entryAddr := table.EntryAddr(e)
	content := table.Entries[e].Content
	rec := FunctionRecord{
		Function: fn,
		Entry:    entryAddr,
		HasEntry: true,
		Content:  content,
	}

	switch {
	case content == cantUnwind:
		rec.Rank = RankInlinedCannotUnwind
	case content&inlineData != 0:
		rec.Rank = RankInlinedPersonality
	default:
		rec.Rank = classifyTable(mem, Prel31(entryAddr+4, content), cfg)
	}
	return rec
}

// classifyTable inspects the exception table entry at addr. Unmapped tables
// classify as unknown.
func classifyTable(mem *Image, addr libpf.Address, cfg *Config) Rank {
	if !mem.Contains(addr) {
		log.Debugf("Exception table entry %v is not mapped", addr)
		return RankUnknown
	}
	first := mem.word(addr)
	if first&inlineData != 0 {
		return RankTablePersonality
	}
	handler := Prel31(addr, first)
	if cfg.Personality != 0 && cfg.normalize(handler) == cfg.normalize(cfg.Personality) {
		return RankTableExtendedDescriptor
	}
	return RankUnknown
}
