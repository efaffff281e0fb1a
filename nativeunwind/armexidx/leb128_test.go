// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package armexidx

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUleb128(t *testing.T) {
	tests := map[string]struct {
		data  []byte
		value uint32
		n     int
	}{
		"zero":      {data: []byte{0x00}, value: 0, n: 1},
		"one byte":  {data: []byte{0x7f, 0xff}, value: 127, n: 1},
		"two bytes": {data: []byte{0x80, 0x01}, value: 128, n: 2},
		"624485":    {data: []byte{0xe5, 0x8e, 0x26}, value: 624485, n: 3},
		"max":       {data: []byte{0xff, 0xff, 0xff, 0xff, 0x0f}, value: math.MaxUint32, n: 5},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			value, n, err := Uleb128(test.data)
			require.NoError(t, err)
			assert.Equal(t, test.value, value)
			assert.Equal(t, test.n, n)
		})
	}
}

func TestSleb128(t *testing.T) {
	tests := map[string]struct {
		data  []byte
		value int32
		n     int
	}{
		"zero":             {data: []byte{0x00}, value: 0, n: 1},
		"two":              {data: []byte{0x02}, value: 2, n: 1},
		"minus one":        {data: []byte{0x7f}, value: -1, n: 1},
		"minus two":        {data: []byte{0x7e}, value: -2, n: 1},
		"bit five set":     {data: []byte{0x20}, value: 32, n: 1},
		"63":               {data: []byte{0x3f}, value: 63, n: 1},
		"64":               {data: []byte{0xc0, 0x00}, value: 64, n: 2},
		"minus 64":         {data: []byte{0x40}, value: -64, n: 1},
		"minus 123456":     {data: []byte{0xc0, 0xbb, 0x78}, value: -123456, n: 3},
		"trailing ignored": {data: []byte{0x01, 0x7f}, value: 1, n: 1},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			value, n, err := Sleb128(test.data)
			require.NoError(t, err)
			assert.Equal(t, test.value, value)
			assert.Equal(t, test.n, n)
		})
	}
}

func TestLeb128Unterminated(t *testing.T) {
	for _, data := range [][]byte{nil, {0x80}, {0xff, 0xff}} {
		_, _, err := Uleb128(data)
		require.ErrorIs(t, err, ErrOutOfBounds)
		_, _, err = Sleb128(data)
		require.ErrorIs(t, err, ErrOutOfBounds)
	}
}

func TestLeb128ByteCount(t *testing.T) {
	for _, v := range []uint32{0, 1, 63, 64, 127, 128, 16383, 16384, 1 << 21, 1 << 28,
		math.MaxUint32} {
		b := AppendUleb128(nil, v)
		value, n, err := Uleb128(b)
		require.NoError(t, err)
		assert.Equal(t, v, value)
		assert.Equal(t, len(b), n)
		assert.Zero(t, b[len(b)-1]&0x80)
	}

	for _, v := range []int32{0, 1, -1, 63, 64, -64, -65, 8191, -8192, math.MaxInt32,
		math.MinInt32} {
		b := AppendSleb128(nil, v)
		value, n, err := Sleb128(b)
		require.NoError(t, err)
		assert.Equal(t, v, value)
		assert.Equal(t, len(b), n)
	}
}
