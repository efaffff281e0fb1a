// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/noexcept-lab/exidx/libpf"
	"github.com/noexcept-lab/exidx/libpf/pfelf"
	"github.com/noexcept-lab/exidx/nativeunwind/armexidx"
)

// target is an opened executable ready for decoding.
type target struct {
	path    string
	fileID  libpf.FileID
	symbols *libpf.SymbolMap
	decoder *armexidx.Decoder
}

// openTarget loads the executable at path and prepares a decoder for its
// exception index.
func openTarget(path string, strict bool) (*target, error) {
	ef, err := pfelf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer ef.Close()

	fileID, err := ef.FileID()
	if err != nil {
		return nil, fmt.Errorf("failed to identify %s: %w", path, err)
	}
	mem, err := ef.Image()
	if err != nil {
		return nil, fmt.Errorf("failed to map %s: %w", path, err)
	}
	table, err := ef.IndexTable(mem)
	if err != nil {
		return nil, fmt.Errorf("failed to read index of %s: %w", path, err)
	}
	symbols, err := ef.Symbols()
	if err != nil {
		log.Debugf("%s: %v", path, err)
		symbols = libpf.NewSymbolMap(0)
		symbols.Finalize()
	}

	personality := ef.Personality()
	if personality == 0 {
		log.Debugf("%s: %s not found, extended descriptors are not recognized",
			path, pfelf.PersonalitySymbol)
	}
	decoder, err := armexidx.New(mem, table, armexidx.Config{
		PointerSize:  ef.PointerSize(),
		Personality:  personality,
		Normalize:    armexidx.ClearThumbBit,
		StrictHeader: strict,
	})
	if err != nil {
		return nil, err
	}
	log.Debugf("%s: %d index entries at %v", path, len(table.Entries), table.Addr)

	return &target{
		path:    path,
		fileID:  fileID,
		symbols: symbols,
		decoder: decoder,
	}, nil
}

// probes resolves function names and addresses given on the command line.
// Without arguments every function listed in the index is probed. all adds
// every function symbol.
func (t *target) probes(args []string, all bool) ([]libpf.Address, error) {
	functions := make([]libpf.Address, 0, len(args))
	for _, arg := range args {
		if strings.HasPrefix(arg, "0x") {
			addr, err := strconv.ParseUint(arg, 0, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid address %q: %w", arg, err)
			}
			functions = append(functions, libpf.Address(addr))
			continue
		}
		sym, err := t.symbols.LookupSymbol(libpf.SymbolName(arg))
		if err != nil {
			return nil, err
		}
		functions = append(functions, sym.Address)
	}

	if all {
		for _, sym := range t.symbols.Functions() {
			functions = append(functions, sym.Address)
		}
	}
	if len(args) == 0 && !all {
		table := t.decoder.Table()
		for i := range table.Entries {
			functions = append(functions, table.Function(i))
		}
	}
	return functions, nil
}

// symbolize returns the demangled name of the function at addr, if known.
func (t *target) symbolize(addr libpf.Address) string {
	name, ok := t.symbols.LookupByAddress(addr, armexidx.ClearThumbBit)
	if !ok {
		return ""
	}
	return name.Demangled()
}
