// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package libpf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSymbolMap(t *testing.T) {
	var m SymbolMap
	m.Add(Symbol{Name: "_Z3barv", Address: 0x1011, Func: true})
	m.Add(Symbol{Name: "__exidx_start", Address: 0x2000})
	m.Add(Symbol{Name: "main", Address: 0x1001, Func: true})
	m.Finalize()

	sym, err := m.LookupSymbol("main")
	require.NoError(t, err)
	assert.Equal(t, Address(0x1001), sym.Address)

	_, err = m.LookupSymbol("missing")
	require.Error(t, err)

	normalize := func(a Address) Address { return a &^ 1 }
	name, ok := m.LookupByAddress(0x1010, normalize)
	assert.True(t, ok)
	assert.Equal(t, SymbolName("_Z3barv"), name)

	_, ok = m.LookupByAddress(0x2000, normalize)
	assert.False(t, ok, "data symbols are not functions")

	funcs := m.Functions()
	require.Len(t, funcs, 2)
	assert.Equal(t, SymbolName("main"), funcs[0].Name)
	assert.Equal(t, 3, m.Len())
}

func TestDemangled(t *testing.T) {
	tests := map[string]struct {
		name     SymbolName
		expected string
	}{
		"plain":    {name: "main", expected: "main"},
		"function": {name: "_Z3barv", expected: "bar()"},
		"method":   {name: "_ZN8my_class5stateEv", expected: "my_class::state()"},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.expected, test.name.Demangled())
		})
	}
}
