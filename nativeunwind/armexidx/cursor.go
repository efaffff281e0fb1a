// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package armexidx // import "github.com/noexcept-lab/exidx/nativeunwind/armexidx"

import (
	"encoding/binary"
	"fmt"

	"github.com/noexcept-lab/exidx/libpf"
)

// Cursor reads forward through an Image. Reads fail with ErrOutOfBounds when
// they would leave the mapped segment or cross the limit set by SetLimit.
type Cursor struct {
	mem     *Image
	pos     libpf.Address
	limit   libpf.Address
	ptrSize int
}

// Pos returns the address of the next byte to be read.
func (c *Cursor) Pos() libpf.Address {
	return c.pos
}

// SetLimit restricts all further reads to addresses below limit.
func (c *Cursor) SetLimit(limit libpf.Address) {
	c.limit = limit
}

func (c *Cursor) take(n uint64) ([]byte, error) {
	if c.pos > c.limit || n > uint64(c.limit-c.pos) {
		return nil, fmt.Errorf("%w: %d bytes at %v past limit %v",
			ErrOutOfBounds, n, c.pos, c.limit)
	}
	b, err := c.mem.Bytes(c.pos, n)
	if err != nil {
		return nil, err
	}
	c.pos += libpf.Address(n)
	return b, nil
}

// available returns the mapped bytes from the cursor up to the limit.
func (c *Cursor) available() []byte {
	seg := c.mem.segment(c.pos)
	if seg == nil || c.pos >= c.limit {
		return nil
	}
	b := seg.Data[c.pos-seg.Addr:]
	if room := uint64(c.limit - c.pos); room < uint64(len(b)) {
		b = b[:room]
	}
	return b
}

// Skip advances the cursor by n bytes which must be mapped.
func (c *Cursor) Skip(n uint64) error {
	_, err := c.take(n)
	return err
}

// U8 reads one unsigned byte.
func (c *Cursor) U8() (uint8, error) {
	b, err := c.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// U16 reads one unsigned half-word.
func (c *Cursor) U16() (uint16, error) {
	b, err := c.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// U32 reads one unsigned word.
func (c *Cursor) U32() (uint32, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// U64 reads one unsigned double-word.
func (c *Cursor) U64() (uint64, error) {
	b, err := c.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// Uleb reads one unsigned little endian base-128 encoded value.
func (c *Cursor) Uleb() (uint32, error) {
	v, n, err := Uleb128(c.available())
	if err != nil {
		return 0, fmt.Errorf("uleb128 at %v: %w", c.pos, err)
	}
	c.pos += libpf.Address(n)
	return v, nil
}

// Sleb reads one signed little endian base-128 encoded value.
func (c *Cursor) Sleb() (int32, error) {
	v, n, err := Sleb128(c.available())
	if err != nil {
		return 0, fmt.Errorf("sleb128 at %v: %w", c.pos, err)
	}
	c.pos += libpf.Address(n)
	return v, nil
}

func (c *Cursor) mask(val uint64) uint64 {
	if c.ptrSize == 4 {
		return val & 0xffffffff
	}
	return val
}

// Encoded reads one value encoded with enc. An omitted field consumes no
// bytes and yields zero.
//
// The pc-relative adjustment adds the byte that follows the field, not the
// field address. This follows the layout of the descriptors this decoder is
// built for. Text, data, function relative and aligned adjustments need
// section layout information and leave the value unchanged.
func (c *Cursor) Encoded(enc Encoding) (uint64, error) {
	if enc == EncOmit {
		return 0, nil
	}

	var val uint64
	switch enc.Format() {
	case EncAbsPtr:
		v, err := c.ptr()
		if err != nil {
			return 0, err
		}
		val = v
	case EncUleb128:
		v, err := c.Uleb()
		if err != nil {
			return 0, err
		}
		val = uint64(v)
	case EncUdata2:
		v, err := c.U16()
		if err != nil {
			return 0, err
		}
		val = uint64(v)
	case EncUdata4:
		v, err := c.U32()
		if err != nil {
			return 0, err
		}
		val = uint64(v)
	case EncSleb128:
		v, err := c.Sleb()
		if err != nil {
			return 0, err
		}
		val = uint64(int64(v))
	case EncSdata2:
		v, err := c.U16()
		if err != nil {
			return 0, err
		}
		val = uint64(int64(int16(v)))
	case EncSdata4:
		v, err := c.U32()
		if err != nil {
			return 0, err
		}
		val = uint64(int64(int32(v)))
	case EncUdata8, EncSdata8:
		if c.ptrSize < 8 {
			return 0, fmt.Errorf("%w: %v on a %d-byte target",
				ErrUnsupportedEncoding, enc, c.ptrSize)
		}
		v, err := c.U64()
		if err != nil {
			return 0, err
		}
		val = v
	default:
		return 0, fmt.Errorf("%w: format %#02x", ErrUnsupportedEncoding, uint8(enc))
	}

	if enc.Adjust() == EncPcRel {
		next, err := c.mem.Uint8(c.pos)
		if err != nil {
			return 0, err
		}
		val += uint64(next)
	}
	val = c.mask(val)

	if enc.Indirect() {
		ptr, err := c.mem.Pointer(libpf.Address(val), c.ptrSize)
		if err != nil {
			return 0, fmt.Errorf("indirect %v: %w", enc, err)
		}
		val = uint64(ptr)
	}
	return val, nil
}

func (c *Cursor) ptr() (uint64, error) {
	if c.ptrSize == 4 {
		v, err := c.U32()
		return uint64(v), err
	}
	return c.U64()
}
