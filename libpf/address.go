// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package libpf // import "github.com/noexcept-lab/exidx/libpf"

import (
	"fmt"
	"strconv"
)

// Address represents an address in the address space of the inspected target.
type Address uint64

// Hash32 returns a 32 bits hash of the input.
// It's main purpose is to be used as key for caching.
func (adr Address) Hash32() uint32 {
	return uint32(adr.Hash())
}

// Hash returns a 64 bits hash of the input using the finalizer function for Murmur3.
func (adr Address) Hash() uint64 {
	x := uint64(adr)
	x ^= x >> 33
	x *= 0xff51afd7ed558ccd
	x ^= x >> 33
	x *= 0xc4ceb9fe1a85ec53
	x ^= x >> 33
	return x
}

func (adr Address) String() string {
	return fmt.Sprintf("%#x", uint64(adr))
}

// MarshalText implements the encoding.TextMarshaler interface.
func (adr Address) MarshalText() ([]byte, error) {
	return []byte(adr.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface. Prefixed
// hexadecimal, octal and binary notations are accepted.
func (adr *Address) UnmarshalText(text []byte) error {
	v, err := strconv.ParseUint(string(text), 0, 64)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", text, err)
	}
	*adr = Address(v)
	return nil
}
