// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package armexidx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noexcept-lab/exidx/libpf"
)

func TestEncoded(t *testing.T) {
	tests := map[string]struct {
		data    []byte
		enc     Encoding
		ptrSize int
		value   uint64
		pos     libpf.Address
		err     error
	}{
		"omit":          {data: []byte{0x11}, enc: EncOmit, value: 0, pos: 0x100},
		"absptr":        {data: []byte{0x10, 0x20, 0x30, 0x40}, enc: EncAbsPtr, value: 0x40302010, pos: 0x104},
		"absptr 8":      {data: []byte{1, 0, 0, 0, 0, 0, 0, 1}, enc: EncAbsPtr, ptrSize: 8, value: 0x0100000000000001, pos: 0x108},
		"uleb128":       {data: []byte{0xe5, 0x8e, 0x26}, enc: EncUleb128, value: 624485, pos: 0x103},
		"udata2":        {data: []byte{0xfe, 0xff}, enc: EncUdata2, value: 0xfffe, pos: 0x102},
		"udata4":        {data: []byte{0x78, 0x56, 0x34, 0x12}, enc: EncUdata4, value: 0x12345678, pos: 0x104},
		"sleb128":       {data: []byte{0x7e}, enc: EncSleb128, value: 0xfffffffe, pos: 0x101},
		"sdata2":        {data: []byte{0xfe, 0xff}, enc: EncSdata2, value: 0xfffffffe, pos: 0x102},
		"sdata2 8":      {data: []byte{0xfe, 0xff}, enc: EncSdata2, ptrSize: 8, value: 0xfffffffffffffffe, pos: 0x102},
		"sdata4":        {data: []byte{0xf0, 0xff, 0xff, 0xff}, enc: EncSdata4, value: 0xfffffff0, pos: 0x104},
		"udata8":        {data: []byte{8, 7, 6, 5, 4, 3, 2, 1}, enc: EncUdata8, ptrSize: 8, value: 0x0102030405060708, pos: 0x108},
		"sdata8":        {data: []byte{8, 7, 6, 5, 4, 3, 2, 1}, enc: EncSdata8, ptrSize: 8, value: 0x0102030405060708, pos: 0x108},
		"pcrel":         {data: []byte{0x10, 0, 0, 0, 0x05}, enc: EncUdata4 | EncPcRel, value: 0x15, pos: 0x104},
		"textrel":       {data: []byte{0x10, 0, 0, 0}, enc: EncUdata4 | EncTextRel, value: 0x10, pos: 0x104},
		"datarel":       {data: []byte{0x10, 0, 0, 0}, enc: EncUdata4 | EncDataRel, value: 0x10, pos: 0x104},
		"funcrel":       {data: []byte{0x10, 0, 0, 0}, enc: EncUdata4 | EncFuncRel, value: 0x10, pos: 0x104},
		"aligned":       {data: []byte{0x10, 0, 0, 0}, enc: EncUdata4 | EncAligned, value: 0x10, pos: 0x104},
		"indirect":      {data: []byte{0x04, 0x01, 0, 0, 0xef, 0xbe, 0xad, 0xde}, enc: EncUdata4 | EncIndirect, value: 0xdeadbeef, pos: 0x104},
		"udata8 on 4":   {data: make([]byte, 8), enc: EncUdata8, err: ErrUnsupportedEncoding},
		"sdata8 on 4":   {data: make([]byte, 8), enc: EncSdata8, err: ErrUnsupportedEncoding},
		"bad format":    {data: make([]byte, 8), enc: 0x05, err: ErrUnsupportedEncoding},
		"truncated":     {data: []byte{0x01, 0x02}, enc: EncUdata4, err: ErrOutOfBounds},
		"unterminated":  {data: []byte{0x80, 0x80}, enc: EncUleb128, err: ErrOutOfBounds},
		"pcrel at end":  {data: []byte{0x10, 0, 0, 0}, enc: EncUdata4 | EncPcRel, err: ErrOutOfBounds},
		"indirect miss": {data: []byte{0, 0x10, 0, 0}, enc: EncUdata4 | EncIndirect, err: ErrOutOfBounds},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			mem, err := NewImage(Segment{Addr: 0x100, Data: test.data})
			require.NoError(t, err)
			ptrSize := test.ptrSize
			if ptrSize == 0 {
				ptrSize = 4
			}
			c := mem.NewCursor(0x100, ptrSize)
			value, err := c.Encoded(test.enc)
			if test.err != nil {
				require.ErrorIs(t, err, test.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.value, value)
			assert.Equal(t, test.pos, c.Pos())
		})
	}
}

func TestCursorLimit(t *testing.T) {
	mem, err := NewImage(Segment{Addr: 0x100, Data: []byte{
		0x01, 0x02, 0x80, 0x01, 0x05, 0x06, 0x07, 0x08}})
	require.NoError(t, err)

	c := mem.NewCursor(0x100, 4)
	c.SetLimit(0x103)
	v, err := c.U16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0201), v)

	// The ULEB128 terminator lies beyond the limit.
	_, err = c.Uleb()
	require.ErrorIs(t, err, ErrOutOfBounds)
	_, err = c.U16()
	require.ErrorIs(t, err, ErrOutOfBounds)
	assert.Equal(t, libpf.Address(0x102), c.Pos())

	c.SetLimit(0x108)
	u, err := c.Uleb()
	require.NoError(t, err)
	assert.Equal(t, uint32(128), u)
	require.NoError(t, c.Skip(4))
	assert.ErrorIs(t, c.Skip(1), ErrOutOfBounds)
	_, err = c.U8()
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestEncodingString(t *testing.T) {
	tests := map[Encoding]string{
		EncOmit:                            "omit",
		EncAbsPtr:                          "absptr",
		EncUdata4 | EncPcRel:               "udata4|pcrel",
		EncSdata4 | EncPcRel | EncIndirect: "sdata4|pcrel|indirect",
		EncUleb128 | EncDataRel:            "uleb128|datarel",
		0x05:                               "format(0x5)",
		0x63:                               "udata4|adjust(0x60)",
	}
	for enc, name := range tests {
		assert.Equal(t, name, enc.String())
	}

	text, err := (EncUdata2 | EncTextRel).MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "udata2|textrel", string(text))
	assert.False(t, EncOmit.Indirect())
	assert.True(t, (EncAbsPtr | EncIndirect).Indirect())
	assert.Equal(t, EncSdata8, (EncSdata8 | EncFuncRel).Format())
	assert.Equal(t, EncFuncRel, (EncSdata8 | EncFuncRel).Adjust())
}
