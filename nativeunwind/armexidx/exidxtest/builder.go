// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package exidxtest builds synthetic exception index tables, exception table
// entries and ELF images for tests.
package exidxtest // import "github.com/noexcept-lab/exidx/nativeunwind/armexidx/exidxtest"

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/noexcept-lab/exidx/libpf"
	"github.com/noexcept-lab/exidx/nativeunwind/armexidx"
)

// Default layout of the synthetic address space.
const (
	TextAddr  libpf.Address = 0x1000
	IndexAddr libpf.Address = 0x10000
	TableAddr libpf.Address = 0x20000

	// Personality is the Thumb address of the C++ personality routine.
	Personality libpf.Address = 0x8001
	// OtherPersonality is a personality routine the decoder does not know.
	OtherPersonality libpf.Address = 0x8101

	// CantUnwind is the index content of functions that cannot be unwound.
	CantUnwind uint32 = 0x1
	// ShortForm is an unwind opcode word selecting the short form.
	ShortForm uint32 = 0x00b0b0b0
)

// Prel31Offset returns the 31-bit place-relative offset stored at from that
// refers to to.
func Prel31Offset(from, to libpf.Address) uint32 {
	return uint32(int64(to)-int64(from)) & 0x7fffffff
}

type entry struct {
	fn      libpf.Address
	content uint32
	// table is the offset of the exception table entry, or -1.
	table int
}

// Builder assembles an index table and the exception table entries it
// references. Entries are sorted by function address when built.
type Builder struct {
	// TextSize maps a zero filled .text segment at TextAddr when non-zero.
	TextSize uint64

	entries []entry
	extab   []byte
}

// CantUnwind adds an entry marking fn as not unwindable.
func (b *Builder) CantUnwind(fn libpf.Address) *Builder {
	return b.Raw(fn, CantUnwind)
}

// Inline adds an entry holding compact unwind data in the index itself.
func (b *Builder) Inline(fn libpf.Address, data uint32) *Builder {
	return b.Raw(fn, data|1<<31)
}

// Raw adds an entry with the given content word.
func (b *Builder) Raw(fn libpf.Address, content uint32) *Builder {
	b.entries = append(b.entries, entry{fn: fn, content: content, table: -1})
	return b
}

// CompactTable adds an entry whose exception table entry starts with compact
// unwind data.
func (b *Builder) CompactTable(fn libpf.Address, data uint32) *Builder {
	return b.table(fn, binary.LittleEndian.AppendUint32(nil, data|1<<31))
}

// Table adds an entry whose exception table entry is handled by handler and
// followed by data.
func (b *Builder) Table(fn, handler libpf.Address, data []byte) *Builder {
	for len(b.extab)%4 != 0 {
		b.extab = append(b.extab, 0)
	}
	at := TableAddr + libpf.Address(len(b.extab))
	word := binary.LittleEndian.AppendUint32(nil, Prel31Offset(at, handler))
	return b.table(fn, append(word, data...))
}

// Descriptor adds an entry handled by Personality carrying lsda.
func (b *Builder) Descriptor(fn libpf.Address, lsda *LSDA) *Builder {
	return b.Table(fn, Personality, lsda.Bytes())
}

func (b *Builder) table(fn libpf.Address, data []byte) *Builder {
	for len(b.extab)%4 != 0 {
		b.extab = append(b.extab, 0)
	}
	b.entries = append(b.entries, entry{fn: fn, table: len(b.extab)})
	b.extab = append(b.extab, data...)
	return b
}

// Segments lays out the text, index and exception table segments.
func (b *Builder) Segments() []armexidx.Segment {
	entries := append([]entry(nil), b.entries...)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].fn < entries[j].fn
	})

	index := make([]byte, 0, len(entries)*8)
	for i, e := range entries {
		at := IndexAddr + libpf.Address(i*8)
		index = binary.LittleEndian.AppendUint32(index, Prel31Offset(at, e.fn))
		content := e.content
		if e.table >= 0 {
			content = Prel31Offset(at+4, TableAddr+libpf.Address(e.table))
		}
		index = binary.LittleEndian.AppendUint32(index, content)
	}

	segments := []armexidx.Segment{
		{Name: ".ARM.exidx", Addr: IndexAddr, Data: index},
		{Name: ".ARM.extab", Addr: TableAddr, Data: append([]byte(nil), b.extab...)},
	}
	if b.TextSize != 0 {
		segments = append([]armexidx.Segment{
			{Name: ".text", Addr: TextAddr, Data: make([]byte, b.TextSize)},
		}, segments...)
	}
	return segments
}

// Build returns the image and its index table.
func (b *Builder) Build() (*armexidx.Image, armexidx.IndexTable) {
	segments := b.Segments()
	mem, err := armexidx.NewImage(segments...)
	if err != nil {
		panic(fmt.Sprintf("invalid synthetic layout: %v", err))
	}
	table := armexidx.IndexTable{Addr: IndexAddr}
	for _, seg := range segments {
		if seg.Name != ".ARM.exidx" || len(seg.Data) == 0 {
			continue
		}
		if table, err = armexidx.ParseIndexTable(mem, seg.Addr, seg.End()); err != nil {
			panic(fmt.Sprintf("invalid synthetic index: %v", err))
		}
	}
	return mem, table
}
