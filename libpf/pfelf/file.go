// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// package pfelf implements functions for processing of ELF files and extracting data from
// them. This file implements File which maps an ARM executable into a decoder image.

package pfelf // import "github.com/noexcept-lab/exidx/libpf/pfelf"

import (
	"debug/elf"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/noexcept-lab/exidx/internal/log"
	"github.com/noexcept-lab/exidx/libpf"
	"github.com/noexcept-lab/exidx/nativeunwind/armexidx"
)

const (
	// sectionIndex is the section holding the exception index table.
	sectionIndex = ".ARM.exidx"
	// shtARMExidx is the section type of sectionIndex.
	shtARMExidx elf.SectionType = 0x70000001

	symbolIndexStart = libpf.SymbolName("__exidx_start")
	symbolIndexEnd   = libpf.SymbolName("__exidx_end")

	// PersonalitySymbol is the C++ personality routine handling extended descriptors.
	PersonalitySymbol = libpf.SymbolName("__gxx_personality_v0")
)

// ErrNoIndex is returned for executables without an exception index table.
var ErrNoIndex = errors.New("no exception index table")

// File represents an open ELF file
type File struct {
	elf *elf.File

	// closer is called internally when resources for this File are to be released
	closer io.Closer

	// size and data give access to the raw file for identification
	data io.ReaderAt
	size int64

	symbols *libpf.SymbolMap
}

// Open opens the named file and prepares it for use as an ELF binary. Files
// ending in .zst are decompressed first.
func Open(name string) (*File, error) {
	if isCompressed(name) {
		r, err := readCompressed(name)
		if err != nil {
			return nil, err
		}
		return NewFile(r, r.Size())
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	ef, err := NewFile(f, st.Size())
	if err != nil {
		f.Close()
		return nil, err
	}
	ef.closer = f
	return ef, nil
}

// NewFile creates a new ELF file object that borrows the given reader.
func NewFile(r io.ReaderAt, size int64) (*File, error) {
	ef, err := elf.NewFile(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ELF: %w", err)
	}
	if ef.Data != elf.ELFDATA2LSB {
		return nil, fmt.Errorf("unsupported ELF byte order %v", ef.Data)
	}
	if ef.Machine != elf.EM_ARM {
		log.Debugf("ELF machine %v is not ARM", ef.Machine)
	}
	return &File{elf: ef, data: r, size: size}, nil
}

// Close closes the File.
func (f *File) Close() (err error) {
	if f.closer != nil {
		err = f.closer.Close()
		f.closer = nil
	}
	return
}

// Machine returns the ELF machine type.
func (f *File) Machine() elf.Machine {
	return f.elf.Machine
}

// PointerSize returns the size of a target pointer in bytes.
func (f *File) PointerSize() int {
	if f.elf.Class == elf.ELFCLASS64 {
		return 8
	}
	return 4
}

// FileID calculates the identifier of the underlying file.
func (f *File) FileID() (libpf.FileID, error) {
	return libpf.FileIDFromExecutableReader(io.NewSectionReader(f.data, 0, f.size))
}

// Image maps the file backed part of every PT_LOAD program header.
func (f *File) Image() (*armexidx.Image, error) {
	segments := make([]armexidx.Segment, 0, len(f.elf.Progs))
	for i, prog := range f.elf.Progs {
		if prog.Type != elf.PT_LOAD || prog.Filesz == 0 {
			continue
		}
		data := make([]byte, prog.Filesz)
		if _, err := prog.ReadAt(data, 0); err != nil {
			return nil, fmt.Errorf("failed to read PT_LOAD %d: %w", i, err)
		}
		segments = append(segments, armexidx.Segment{
			Name: fmt.Sprintf("load%d", i),
			Addr: libpf.Address(prog.Vaddr),
			Data: data,
		})
	}
	if len(segments) == 0 {
		return nil, errors.New("no loadable segments")
	}
	return armexidx.NewImage(segments...)
}

// IndexBounds returns the address range of the exception index table. The
// linker provided __exidx_start and __exidx_end symbols take precedence over
// the .ARM.exidx section header.
func (f *File) IndexBounds() (start, end libpf.Address, err error) {
	if symbols, err := f.Symbols(); err == nil {
		s, errStart := symbols.LookupSymbol(symbolIndexStart)
		e, errEnd := symbols.LookupSymbol(symbolIndexEnd)
		if errStart == nil && errEnd == nil {
			return s.Address, e.Address, nil
		}
	}
	for _, sec := range f.elf.Sections {
		if sec.Type == shtARMExidx || sec.Name == sectionIndex {
			return libpf.Address(sec.Addr), libpf.Address(sec.Addr + sec.Size), nil
		}
	}
	return 0, 0, ErrNoIndex
}

// IndexTable reads the exception index table from mem.
func (f *File) IndexTable(mem *armexidx.Image) (armexidx.IndexTable, error) {
	start, end, err := f.IndexBounds()
	if err != nil {
		return armexidx.IndexTable{}, err
	}
	if start == end {
		return armexidx.IndexTable{Addr: start}, nil
	}
	return armexidx.ParseIndexTable(mem, start, end)
}

// Symbols returns the static symbols, falling back to the dynamic symbols.
func (f *File) Symbols() (*libpf.SymbolMap, error) {
	if f.symbols != nil {
		return f.symbols, nil
	}
	syms, err := f.elf.Symbols()
	if errors.Is(err, elf.ErrNoSymbols) {
		syms, err = f.elf.DynamicSymbols()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read symbols: %w", err)
	}

	symmap := libpf.NewSymbolMap(len(syms))
	for _, sym := range syms {
		if sym.Name == "" {
			continue
		}
		symmap.Add(libpf.Symbol{
			Name:    libpf.SymbolName(sym.Name),
			Address: libpf.Address(sym.Value),
			Size:    sym.Size,
			Func:    elf.ST_TYPE(sym.Info) == elf.STT_FUNC,
		})
	}
	symmap.Finalize()
	f.symbols = symmap
	return symmap, nil
}

// LookupSymbol finds a symbol by name.
func (f *File) LookupSymbol(name libpf.SymbolName) (*libpf.Symbol, error) {
	symbols, err := f.Symbols()
	if err != nil {
		return nil, err
	}
	return symbols.LookupSymbol(name)
}

// Personality returns the address of the C++ personality routine, or zero
// when the executable does not link it.
func (f *File) Personality() libpf.Address {
	sym, err := f.LookupSymbol(PersonalitySymbol)
	if err != nil {
		log.Debugf("No personality routine: %v", err)
		return 0
	}
	return sym.Address
}
