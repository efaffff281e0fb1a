// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package exidxtest // import "github.com/noexcept-lab/exidx/nativeunwind/armexidx/exidxtest"

import (
	"debug/elf"
	"encoding/binary"

	"github.com/noexcept-lab/exidx/libpf"
	"github.com/noexcept-lab/exidx/nativeunwind/armexidx"
)

const (
	ehdrSize = 52
	phdrSize = 32
	shdrSize = 40
	symSize  = 16

	// shtARMExidx is SHT_ARM_EXIDX.
	shtARMExidx = 0x70000001
)

// ELFSymbol is one symbol written by ELF32.
type ELFSymbol struct {
	Name  string
	Value libpf.Address
	Size  uint32
	Func  bool
}

// ELF reports the built layout as an ARM ELF32 executable. The personality
// routine and the __exidx_start/__exidx_end bounds are always defined.
func (b *Builder) ELF(symbols ...ELFSymbol) []byte {
	segments := b.Segments()
	exidxEnd := IndexAddr
	for _, seg := range segments {
		if seg.Name == ".ARM.exidx" {
			exidxEnd = seg.End()
		}
	}
	symbols = append(symbols,
		ELFSymbol{Name: "__gxx_personality_v0", Value: Personality, Func: true},
		ELFSymbol{Name: "__exidx_start", Value: IndexAddr},
		ELFSymbol{Name: "__exidx_end", Value: exidxEnd},
	)
	return ELF32(segments, symbols)
}

type stringTable []byte

func (s *stringTable) add(name string) uint32 {
	if len(*s) == 0 {
		*s = append(*s, 0)
	}
	off := uint32(len(*s))
	*s = append(append(*s, name...), 0)
	return off
}

func align4(b []byte) []byte {
	for len(b)%4 != 0 {
		b = append(b, 0)
	}
	return b
}

// ELF32 renders segments as a little endian ARM ELF32 executable with one
// PT_LOAD program header and one section per segment, followed by a symbol
// table. Empty segments get a section but no program header.
func ELF32(segments []armexidx.Segment, symbols []ELFSymbol) []byte {
	le := binary.LittleEndian
	var shstrtab, strtab stringTable
	shstrtab.add("")
	strtab.add("")

	loads := 0
	for _, seg := range segments {
		if len(seg.Data) != 0 {
			loads++
		}
	}

	// Section contents follow the ELF and program headers.
	out := make([]byte, ehdrSize+phdrSize*loads)
	segOffsets := make([]uint32, len(segments))
	for i, seg := range segments {
		out = align4(out)
		segOffsets[i] = uint32(len(out))
		out = append(out, seg.Data...)
	}

	symtab := make([]byte, symSize)
	for _, sym := range symbols {
		info := byte(elf.STB_GLOBAL)<<4 | byte(elf.STT_NOTYPE)
		if sym.Func {
			info = byte(elf.STB_GLOBAL)<<4 | byte(elf.STT_FUNC)
		}
		symtab = le.AppendUint32(symtab, strtab.add(sym.Name))
		symtab = le.AppendUint32(symtab, uint32(sym.Value))
		symtab = le.AppendUint32(symtab, sym.Size)
		symtab = append(symtab, info, 0)
		symtab = le.AppendUint16(symtab, uint16(elf.SHN_ABS))
	}

	out = align4(out)
	symtabOff := uint32(len(out))
	out = append(out, symtab...)
	strtabOff := uint32(len(out))
	out = append(out, strtab...)

	type shdr struct {
		name, typ, flags, addr, off, size, link, info, align, entsize uint32
	}
	shdrs := []shdr{{}}
	for i, seg := range segments {
		typ, flags := uint32(elf.SHT_PROGBITS), uint32(elf.SHF_ALLOC)
		switch seg.Name {
		case ".text":
			flags |= uint32(elf.SHF_EXECINSTR)
		case ".ARM.exidx":
			typ = shtARMExidx
			flags |= uint32(elf.SHF_LINK_ORDER)
		}
		shdrs = append(shdrs, shdr{
			name:  shstrtab.add(seg.Name),
			typ:   typ,
			flags: flags,
			addr:  uint32(seg.Addr),
			off:   segOffsets[i],
			size:  uint32(len(seg.Data)),
			align: 4,
		})
	}
	strtabIndex := uint32(len(shdrs) + 1)
	shdrs = append(shdrs,
		shdr{name: shstrtab.add(".symtab"), typ: uint32(elf.SHT_SYMTAB),
			off: symtabOff, size: uint32(len(symtab)), link: strtabIndex,
			info: 1, align: 4, entsize: symSize},
		shdr{name: shstrtab.add(".strtab"), typ: uint32(elf.SHT_STRTAB),
			off: strtabOff, size: uint32(len(strtab)), align: 1})
	shstrtabIndex := len(shdrs)
	shdrs = append(shdrs, shdr{name: shstrtab.add(".shstrtab"),
		typ: uint32(elf.SHT_STRTAB), align: 1})
	shdrs[shstrtabIndex].off = uint32(len(out))
	shdrs[shstrtabIndex].size = uint32(len(shstrtab))
	out = append(out, shstrtab...)

	out = align4(out)
	shoff := uint32(len(out))
	for _, sh := range shdrs {
		for _, v := range []uint32{sh.name, sh.typ, sh.flags, sh.addr, sh.off,
			sh.size, sh.link, sh.info, sh.align, sh.entsize} {
			out = le.AppendUint32(out, v)
		}
	}

	// ELF header
	hdr := out[:0:ehdrSize]
	hdr = append(hdr, 0x7f, 'E', 'L', 'F', byte(elf.ELFCLASS32), byte(elf.ELFDATA2LSB),
		byte(elf.EV_CURRENT), byte(elf.ELFOSABI_NONE))
	hdr = append(hdr, make([]byte, 8)...)
	hdr = le.AppendUint16(hdr, uint16(elf.ET_EXEC))
	hdr = le.AppendUint16(hdr, uint16(elf.EM_ARM))
	hdr = le.AppendUint32(hdr, uint32(elf.EV_CURRENT))
	hdr = le.AppendUint32(hdr, uint32(TextAddr|1))
	hdr = le.AppendUint32(hdr, ehdrSize)
	hdr = le.AppendUint32(hdr, shoff)
	hdr = le.AppendUint32(hdr, 0x05000000) // EABI version 5
	hdr = le.AppendUint16(hdr, ehdrSize)
	hdr = le.AppendUint16(hdr, phdrSize)
	hdr = le.AppendUint16(hdr, uint16(loads))
	hdr = le.AppendUint16(hdr, shdrSize)
	hdr = le.AppendUint16(hdr, uint16(len(shdrs)))
	_ = le.AppendUint16(hdr, uint16(shstrtabIndex))

	// Program headers
	ph := out[ehdrSize : ehdrSize : ehdrSize+phdrSize*loads]
	for i, seg := range segments {
		if len(seg.Data) == 0 {
			continue
		}
		flags := uint32(elf.PF_R)
		if seg.Name == ".text" {
			flags |= uint32(elf.PF_X)
		}
		for _, v := range []uint32{uint32(elf.PT_LOAD), segOffsets[i], uint32(seg.Addr),
			uint32(seg.Addr), uint32(len(seg.Data)), uint32(len(seg.Data)), flags, 4} {
			ph = le.AppendUint32(ph, v)
		}
	}
	return out
}
