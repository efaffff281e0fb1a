// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package armexidx // import "github.com/noexcept-lab/exidx/nativeunwind/armexidx"

import (
	"fmt"

	"github.com/noexcept-lab/exidx/libpf"
)

// wordSize is the size of one unwind opcode word.
const wordSize = 4

// SectionSize describes one table of an extended descriptor.
type SectionSize struct {
	Count uint32
	Size  uint32
}

// ExtendedDescriptor describes the language specific data area that follows
// the unwind opcodes of an exception table entry: the call-site, action and
// type tables.
type ExtendedDescriptor struct {
	Function libpf.Address
	// Valid is set when all fields were computed from in-bounds reads.
	Valid bool
	// TotalSize spans from the start of the exception table entry to the
	// end of the type table.
	TotalSize uint32
	// MaxActionIndex is the largest action table offset of any call site.
	MaxActionIndex    uint32
	TypeTableOffset   uint32
	TypeTableEncoding Encoding
	CallSiteEncoding  Encoding
	CallSite          SectionSize
	ActionTable       SectionSize
	TypeTable         SectionSize
	// IrregularHeader is set when more than two additional unwind opcode
	// words were announced and two were assumed.
	IrregularHeader bool
	// Err describes why the descriptor is not valid.
	Err error
}

// ParseDescriptor decodes the extended descriptor referenced by rec. On
// failure the returned descriptor only carries the function address and the
// error.
func ParseDescriptor(mem *Image, rec FunctionRecord, cfg Config) (ExtendedDescriptor, error) {
	if rec.Rank != RankTableExtendedDescriptor || !rec.HasEntry {
		err := fmt.Errorf("function %v (%v): %w", rec.Function, rec.Rank, ErrNotExtended)
		return ExtendedDescriptor{Function: rec.Function, Err: err}, err
	}
	p := descriptorParser{mem: mem, cfg: &cfg}
	desc, err := p.parse(rec)
	if err != nil {
		err = fmt.Errorf("function %v: %w", rec.Function, err)
		return ExtendedDescriptor{Function: rec.Function, Err: err}, err
	}
	desc.Valid = true
	return desc, nil
}

type descriptorParser struct {
	mem *Image
	cfg *Config
}

func (p *descriptorParser) parse(rec FunctionRecord) (ExtendedDescriptor, error) {
	desc := ExtendedDescriptor{
		Function:          rec.Function,
		TypeTableEncoding: EncOmit,
		CallSiteEncoding:  EncOmit,
	}
	ptrSize := p.cfg.pointerSize()

	top, err := p.mem.Resolve(rec.Entry + 4)
	if err != nil {
		return desc, err
	}
	c := p.mem.NewCursor(top, ptrSize)

	// personality routine offset
	if err = c.Skip(wordSize); err != nil {
		return desc, err
	}
	if err = p.skipUnwindOpcodes(c, &desc); err != nil {
		return desc, err
	}

	aug, err := c.U8()
	if err != nil {
		return desc, err
	}
	if Encoding(aug) != EncOmit {
		return desc, fmt.Errorf("%w: %#02x", ErrUnsupportedAugmentation, aug)
	}

	typeEnc, err := c.U8()
	if err != nil {
		return desc, err
	}
	desc.TypeTableEncoding = Encoding(typeEnc)
	if desc.TypeTableEncoding != EncOmit {
		if desc.TypeTableOffset, err = c.Uleb(); err != nil {
			return desc, err
		}
	}

	csEnc, err := c.U8()
	if err != nil {
		return desc, err
	}
	desc.CallSiteEncoding = Encoding(csEnc)
	if desc.CallSite.Size, err = c.Uleb(); err != nil {
		return desc, err
	}

	base := c.Pos()
	csEnd := base + libpf.Address(desc.CallSite.Size)
	end := csEnd
	if desc.TypeTableOffset > 0 {
		if desc.TypeTableOffset < desc.CallSite.Size {
			return desc, fmt.Errorf("%w: type table offset %d inside %d byte call-site table",
				ErrOutOfBounds, desc.TypeTableOffset, desc.CallSite.Size)
		}
		end = base + libpf.Address(desc.TypeTableOffset)
	}
	if _, err = p.mem.Bytes(base, uint64(end-base)); err != nil {
		return desc, fmt.Errorf("descriptor end %v: %w", end, err)
	}
	desc.TotalSize = uint32(end - top)

	if desc.CallSite.Size == 0 {
		return desc, nil
	}

	c.SetLimit(csEnd)
	for c.Pos() < csEnd {
		// start, length, landing pad
		for i := 0; i < 3; i++ {
			if _, err = c.Encoded(desc.CallSiteEncoding); err != nil {
				return desc, fmt.Errorf("call-site %d: %w", desc.CallSite.Count, err)
			}
		}
		action, err := c.Uleb()
		if err != nil {
			return desc, fmt.Errorf("call-site %d: %w", desc.CallSite.Count, err)
		}
		desc.MaxActionIndex = max(desc.MaxActionIndex, action)
		desc.CallSite.Count++
	}

	if desc.MaxActionIndex == 0 || desc.TypeTableOffset == 0 {
		return desc, nil
	}

	// The action table has no length field. It ends where the type table
	// starts, and the type table is as large as the largest filter index
	// seen so far requires.
	c.SetLimit(end)
	maxFilter := uint32(0)
	typeSize := uint64(0)
	for uint64(end-c.Pos()) > typeSize {
		start := c.Pos()
		filter, err := c.Sleb()
		if err != nil {
			return desc, fmt.Errorf("action %d: %w", desc.ActionTable.Count, err)
		}
		if _, err = c.Sleb(); err != nil {
			return desc, fmt.Errorf("action %d: %w", desc.ActionTable.Count, err)
		}
		desc.ActionTable.Count++
		desc.ActionTable.Size += uint32(c.Pos() - start)
		if filter > 0 {
			maxFilter = max(maxFilter, uint32(filter))
		}
		typeSize = uint64(ptrSize) * uint64(maxFilter)
	}
	desc.TypeTable = SectionSize{
		Count: maxFilter,
		Size:  uint32(typeSize),
	}
	return desc, nil
}

// skipUnwindOpcodes advances c past the unwind opcode words that precede the
// descriptor. The top byte of the first word selects the short form, which
// fits in that word. Otherwise the next byte counts the additional words.
func (p *descriptorParser) skipUnwindOpcodes(c *Cursor, desc *ExtendedDescriptor) error {
	header, err := p.mem.Uint32(c.Pos())
	if err != nil {
		return err
	}
	if (header>>24)&0x7f == 0 {
		return c.Skip(wordSize)
	}
	words := uint64((header >> 16) & 0xff)
	if words > 2 {
		if p.cfg.StrictHeader {
			return fmt.Errorf("%w: %d additional words", ErrIrregularHeaderForm, words)
		}
		// TODO: confirm against the toolchain whether counts above two are
		// opcode bytes in place of the length field or a miscount.
		desc.IrregularHeader = true
		return c.Skip(2 * wordSize)
	}
	return c.Skip((words + 1) * wordSize)
}
