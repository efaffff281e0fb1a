// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package armexidx // import "github.com/noexcept-lab/exidx/nativeunwind/armexidx"

// Uleb128 decodes one unsigned little endian base-128 value from the start of
// b. It returns the value and the number of bytes consumed. Bits beyond the
// 32nd are discarded.
func Uleb128(b []byte) (uint32, int, error) {
	val := uint32(0)
	shift := uint(0)
	for i, c := range b {
		val |= uint32(c&0x7f) << shift
		shift += 7
		if c&0x80 == 0 {
			return val, i + 1, nil
		}
	}
	return 0, 0, ErrOutOfBounds
}

// Sleb128 decodes one signed little endian base-128 value from the start of b.
func Sleb128(b []byte) (int32, int, error) {
	val := int32(0)
	shift := uint(0)
	for i, c := range b {
		val |= int32(c&0x7f) << shift
		shift += 7
		if c&0x80 == 0 {
			if c&0x40 != 0 {
				// Sign extend
				val |= ^int32(0) << shift
			}
			return val, i + 1, nil
		}
	}
	return 0, 0, ErrOutOfBounds
}

// AppendUleb128 appends the unsigned LEB128 encoding of v to b.
func AppendUleb128(b []byte, v uint32) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(b, c)
		}
		b = append(b, c|0x80)
	}
}

// AppendSleb128 appends the signed LEB128 encoding of v to b.
func AppendSleb128(b []byte, v int32) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && c&0x40 == 0) || (v == -1 && c&0x40 != 0) {
			return append(b, c)
		}
		b = append(b, c|0x80)
	}
}
