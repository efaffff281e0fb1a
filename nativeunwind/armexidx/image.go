// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package armexidx // import "github.com/noexcept-lab/exidx/nativeunwind/armexidx"

import (
	"cmp"
	"encoding/binary"
	"fmt"
	"slices"

	"github.com/noexcept-lab/exidx/libpf"
	npsr "github.com/noexcept-lab/exidx/nopanicslicereader"
)

// Segment is one contiguous mapped range of the target address space.
type Segment struct {
	Name string
	Addr libpf.Address
	Data []byte
}

// End returns the first address after the segment.
func (s *Segment) End() libpf.Address {
	return s.Addr + libpf.Address(len(s.Data))
}

// Image is a read-only snapshot of the target address space made of
// non-overlapping segments. Every read is bounds checked and never spans
// two segments.
type Image struct {
	segments []Segment
}

// NewImage creates an Image from the given segments.
func NewImage(segments ...Segment) (*Image, error) {
	sorted := make([]Segment, 0, len(segments))
	for _, seg := range segments {
		if len(seg.Data) == 0 {
			continue
		}
		if seg.End() < seg.Addr {
			return nil, fmt.Errorf("segment %s at %v wraps the address space", seg.Name, seg.Addr)
		}
		sorted = append(sorted, seg)
	}
	slices.SortFunc(sorted, func(a, b Segment) int {
		return cmp.Compare(a.Addr, b.Addr)
	})
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Addr < sorted[i-1].End() {
			return nil, fmt.Errorf("segment %s at %v overlaps %s",
				sorted[i].Name, sorted[i].Addr, sorted[i-1].Name)
		}
	}
	return &Image{segments: sorted}, nil
}

// Segments returns the mapped segments ordered by address.
func (m *Image) Segments() []Segment {
	return m.segments
}

// Contains reports whether addr is mapped.
func (m *Image) Contains(addr libpf.Address) bool {
	return m.segment(addr) != nil
}

func (m *Image) segment(addr libpf.Address) *Segment {
	for i := range m.segments {
		seg := &m.segments[i]
		if addr >= seg.Addr && addr < seg.End() {
			return seg
		}
	}
	return nil
}

// Bytes returns the n bytes mapped at addr. A zero length read is valid at
// any address within or at the end of a segment.
func (m *Image) Bytes(addr libpf.Address, n uint64) ([]byte, error) {
	for i := range m.segments {
		seg := &m.segments[i]
		if addr < seg.Addr || addr > seg.End() {
			continue
		}
		offs := uint64(addr - seg.Addr)
		if n > uint64(len(seg.Data))-offs {
			continue
		}
		return seg.Data[offs : offs+n], nil
	}
	return nil, fmt.Errorf("%w: %d bytes at %v", ErrOutOfBounds, n, addr)
}

// Uint8 reads one unsigned byte.
func (m *Image) Uint8(addr libpf.Address) (uint8, error) {
	b, err := m.Bytes(addr, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Uint16 reads one unsigned half-word.
func (m *Image) Uint16(addr libpf.Address) (uint16, error) {
	b, err := m.Bytes(addr, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// Uint32 reads one unsigned word.
func (m *Image) Uint32(addr libpf.Address) (uint32, error) {
	b, err := m.Bytes(addr, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// Uint64 reads one unsigned double-word.
func (m *Image) Uint64(addr libpf.Address) (uint64, error) {
	b, err := m.Bytes(addr, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// Pointer reads one pointer of ptrSize bytes.
func (m *Image) Pointer(addr libpf.Address, ptrSize int) (libpf.Address, error) {
	if ptrSize == 4 {
		v, err := m.Uint32(addr)
		return libpf.Address(v), err
	}
	v, err := m.Uint64(addr)
	return libpf.Address(v), err
}

// Resolve reads the place-relative offset stored at fieldAddr and returns the
// absolute address it refers to.
func (m *Image) Resolve(fieldAddr libpf.Address) (libpf.Address, error) {
	raw, err := m.Uint32(fieldAddr)
	if err != nil {
		return 0, err
	}
	return Prel31(fieldAddr, raw), nil
}

// word reads a 32-bit word, returning zero when addr is not mapped.
func (m *Image) word(addr libpf.Address) uint32 {
	seg := m.segment(addr)
	if seg == nil {
		return 0
	}
	return npsr.Uint32(seg.Data, uint(addr-seg.Addr))
}

// NewCursor returns a Cursor positioned at addr.
func (m *Image) NewCursor(addr libpf.Address, ptrSize int) *Cursor {
	return &Cursor{
		mem:     m,
		pos:     addr,
		limit:   ^libpf.Address(0),
		ptrSize: ptrSize,
	}
}
