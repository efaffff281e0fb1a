// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package armexidx // import "github.com/noexcept-lab/exidx/nativeunwind/armexidx"

import "github.com/noexcept-lab/exidx/libpf"

// Prel31 converts the place-relative offset raw, stored in the 32-bit field at
// fieldAddr, into an absolute address. The offset carries 31 bits: bit 31 is
// replaced by bit 30 before the value is taken as signed.
func Prel31(fieldAddr libpf.Address, raw uint32) libpf.Address {
	if raw&(1<<30) != 0 {
		raw |= 1 << 31
	} else {
		raw &^= 1 << 31
	}
	return fieldAddr + libpf.Address(int64(int32(raw)))
}

// ClearThumbBit canonicalizes an ARM function address by clearing the
// interworking bit that marks Thumb code.
func ClearThumbBit(addr libpf.Address) libpf.Address {
	return addr &^ 1
}
