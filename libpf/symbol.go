// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package libpf // import "github.com/noexcept-lab/exidx/libpf"

import (
	"fmt"
	"sort"

	"github.com/ianlancetaylor/demangle"
)

// SymbolName represents the name of a symbol
type SymbolName string

// Demangled returns the human readable form of a C++ symbol name. Names which
// are not mangled are returned unchanged.
func (name SymbolName) Demangled() string {
	return demangle.Filter(string(name), demangle.NoClones)
}

// Symbol represents one entry of a symbol table.
type Symbol struct {
	Name    SymbolName
	Address Address
	Size    uint64
	// Func is set for symbols describing code.
	Func bool
}

// SymbolMap represents collections of symbols that can be resolved or reverse mapped
type SymbolMap struct {
	nameToSymbol    map[SymbolName]*Symbol
	addressToSymbol []Symbol
}

func NewSymbolMap(capacity int) *SymbolMap {
	return &SymbolMap{
		addressToSymbol: make([]Symbol, 0, capacity),
	}
}

// Add a symbol to the map
func (symmap *SymbolMap) Add(s Symbol) {
	symmap.addressToSymbol = append(symmap.addressToSymbol, s)
}

// Finalize symbol map by sorting and constructing the nameToSymbol table after
// all symbols are inserted via Add() calls
func (symmap *SymbolMap) Finalize() {
	sort.SliceStable(symmap.addressToSymbol,
		func(i, j int) bool {
			return symmap.addressToSymbol[i].Address < symmap.addressToSymbol[j].Address
		})

	symmap.nameToSymbol = make(map[SymbolName]*Symbol, len(symmap.addressToSymbol))
	for i, s := range symmap.addressToSymbol {
		if _, ok := symmap.nameToSymbol[s.Name]; !ok {
			symmap.nameToSymbol[s.Name] = &symmap.addressToSymbol[i]
		}
	}
}

// LookupSymbol obtains symbol information. Returns nil and an error if not found.
func (symmap *SymbolMap) LookupSymbol(symbolName SymbolName) (*Symbol, error) {
	if sym, ok := symmap.nameToSymbol[symbolName]; ok {
		return sym, nil
	}
	return nil, fmt.Errorf("symbol %v not present in map", symbolName)
}

// LookupByAddress returns the name of the first function symbol starting exactly
// at addr after normalize has been applied to the symbol address.
func (symmap *SymbolMap) LookupByAddress(addr Address,
	normalize func(Address) Address) (SymbolName, bool) {
	for _, s := range symmap.addressToSymbol {
		if s.Func && normalize(s.Address) == addr {
			return s.Name, true
		}
	}
	return "", false
}

// Functions returns all function symbols ordered by address.
func (symmap *SymbolMap) Functions() []Symbol {
	funcs := make([]Symbol, 0, len(symmap.addressToSymbol))
	for _, s := range symmap.addressToSymbol {
		if s.Func {
			funcs = append(funcs, s)
		}
	}
	return funcs
}

// Len returns the number of elements in the map.
func (symmap *SymbolMap) Len() int {
	return len(symmap.addressToSymbol)
}
