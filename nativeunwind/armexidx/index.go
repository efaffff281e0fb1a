// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package armexidx // import "github.com/noexcept-lab/exidx/nativeunwind/armexidx"

import (
	"encoding/binary"
	"fmt"

	"github.com/zeebo/xxh3"

	"github.com/noexcept-lab/exidx/libpf"
)

// indexEntrySize is the size of one .ARM.exidx entry.
const indexEntrySize = 8

// IndexEntry is one record of the exception index table.
type IndexEntry struct {
	// FunctionOffset is a place-relative offset to the start of the function.
	FunctionOffset uint32
	// Content is either an inline unwind description, the cannot-unwind
	// marker, or a place-relative offset to an exception table entry.
	Content uint32
}

// IndexTable is the address sorted exception index of a binary.
type IndexTable struct {
	// Addr is the address of the first entry.
	Addr    libpf.Address
	Entries []IndexEntry
}

// ParseIndexTable reads the entries mapped in [start, end).
func ParseIndexTable(mem *Image, start, end libpf.Address) (IndexTable, error) {
	if end < start || (end-start)%indexEntrySize != 0 {
		return IndexTable{}, fmt.Errorf("invalid index table bounds %v-%v", start, end)
	}
	data, err := mem.Bytes(start, uint64(end-start))
	if err != nil {
		return IndexTable{}, fmt.Errorf("failed to read index table: %w", err)
	}
	entries := make([]IndexEntry, 0, len(data)/indexEntrySize)
	for i := 0; i+indexEntrySize <= len(data); i += indexEntrySize {
		entries = append(entries, IndexEntry{
			FunctionOffset: binary.LittleEndian.Uint32(data[i:]),
			Content:        binary.LittleEndian.Uint32(data[i+4:]),
		})
	}
	return IndexTable{Addr: start, Entries: entries}, nil
}

// EntryAddr returns the address of entry i.
func (t *IndexTable) EntryAddr(i int) libpf.Address {
	return t.Addr + libpf.Address(i*indexEntrySize)
}

// Function returns the start address of the function described by entry i.
func (t *IndexTable) Function(i int) libpf.Address {
	return Prel31(t.EntryAddr(i), t.Entries[i].FunctionOffset)
}

// Fingerprint returns a hash of the raw table contents and its location.
func (t *IndexTable) Fingerprint() uint64 {
	buf := make([]byte, 0, 8+len(t.Entries)*indexEntrySize)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(t.Addr))
	for _, e := range t.Entries {
		buf = binary.LittleEndian.AppendUint32(buf, e.FunctionOffset)
		buf = binary.LittleEndian.AppendUint32(buf, e.Content)
	}
	return xxh3.Hash(buf)
}
