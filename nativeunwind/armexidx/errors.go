// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package armexidx // import "github.com/noexcept-lab/exidx/nativeunwind/armexidx"

import "errors"

// Descriptor decoding failures. They are scoped to a single function: the
// affected ExtendedDescriptor is marked invalid and decoding continues with
// the remaining functions.
var (
	// ErrOutOfBounds is returned when a read would leave the mapped image
	// or the table it belongs to.
	ErrOutOfBounds = errors.New("read out of bounds")

	// ErrUnsupportedEncoding is returned for pointer encodings with an unknown
	// format nibble, or 8-byte formats on a 4-byte target.
	ErrUnsupportedEncoding = errors.New("unsupported pointer encoding")

	// ErrUnsupportedAugmentation is returned when the descriptor carries
	// DWARF-style augmentation data.
	ErrUnsupportedAugmentation = errors.New("unsupported augmentation data")

	// ErrIrregularHeaderForm is returned in strict mode when the unwind opcode
	// prologue announces more than two additional words.
	ErrIrregularHeaderForm = errors.New("irregular unwind opcode header")

	// ErrNotExtended is returned when a descriptor is requested for a function
	// whose index entry does not reference an extended descriptor.
	ErrNotExtended = errors.New("no extended descriptor")
)
