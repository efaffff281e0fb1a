// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// nopanicslicereader provides little convenience utilities to read little endian
// values of an ARM target image from a slice at given offset. Zeroes are returned
// on out of bounds access instead of panic.
package nopanicslicereader // import "github.com/noexcept-lab/exidx/nopanicslicereader"

import "encoding/binary"

// Uint8 reads one 8-bit unsigned integer from given byte slice offset
func Uint8(b []byte, offs uint) uint8 {
	if !inBounds(b, offs, 1) {
		return 0
	}
	return b[offs]
}

// Uint16 reads one 16-bit unsigned integer from given byte slice offset
func Uint16(b []byte, offs uint) uint16 {
	if !inBounds(b, offs, 2) {
		return 0
	}
	return binary.LittleEndian.Uint16(b[offs:])
}

// Uint32 reads one 32-bit unsigned integer from given byte slice offset
func Uint32(b []byte, offs uint) uint32 {
	if !inBounds(b, offs, 4) {
		return 0
	}
	return binary.LittleEndian.Uint32(b[offs:])
}

// Uint64 reads one 64-bit unsigned integer from given byte slice offset
func Uint64(b []byte, offs uint) uint64 {
	if !inBounds(b, offs, 8) {
		return 0
	}
	return binary.LittleEndian.Uint64(b[offs:])
}

// inBounds checks that n bytes at offs are within b without overflowing offs.
func inBounds(b []byte, offs, n uint) bool {
	return uint(len(b)) >= n && offs <= uint(len(b))-n
}
