// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package armexidx // import "github.com/noexcept-lab/exidx/nativeunwind/armexidx"

import (
	"fmt"
	"strings"
)

// Encoding is a DWARF Exception Header pointer encoding byte.
// https://refspecs.linuxfoundation.org/LSB_5.0.0/LSB-Core-generic/LSB-Core-generic/dwarfext.html
type Encoding uint8

const (
	EncAbsPtr  Encoding = 0x00
	EncUleb128 Encoding = 0x01
	EncUdata2  Encoding = 0x02
	EncUdata4  Encoding = 0x03
	EncUdata8  Encoding = 0x04
	EncSleb128 Encoding = 0x09
	EncSdata2  Encoding = 0x0a
	EncSdata4  Encoding = 0x0b
	EncSdata8  Encoding = 0x0c

	EncAdjustAbs Encoding = 0x00
	EncPcRel     Encoding = 0x10
	EncTextRel   Encoding = 0x20
	EncDataRel   Encoding = 0x30
	EncFuncRel   Encoding = 0x40
	EncAligned   Encoding = 0x50

	EncIndirect Encoding = 0x80

	// EncOmit marks a field that is not present; no bytes are consumed.
	EncOmit Encoding = 0xff

	encFormatMask Encoding = 0x0f
	encAdjustMask Encoding = 0x70
)

// Format returns the base representation nibble.
func (enc Encoding) Format() Encoding {
	return enc & encFormatMask
}

// Adjust returns the offset-relative mode.
func (enc Encoding) Adjust() Encoding {
	return enc & encAdjustMask
}

// Indirect reports whether the decoded value is the address of the final value.
func (enc Encoding) Indirect() bool {
	return enc != EncOmit && enc&EncIndirect != 0
}

var formatNames = map[Encoding]string{
	EncAbsPtr:  "absptr",
	EncUleb128: "uleb128",
	EncUdata2:  "udata2",
	EncUdata4:  "udata4",
	EncUdata8:  "udata8",
	EncSleb128: "sleb128",
	EncSdata2:  "sdata2",
	EncSdata4:  "sdata4",
	EncSdata8:  "sdata8",
}

var adjustNames = map[Encoding]string{
	EncPcRel:   "pcrel",
	EncTextRel: "textrel",
	EncDataRel: "datarel",
	EncFuncRel: "funcrel",
	EncAligned: "aligned",
}

// String renders the encoding as e.g. "udata4|pcrel|indirect".
func (enc Encoding) String() string {
	if enc == EncOmit {
		return "omit"
	}
	parts := make([]string, 0, 3)
	if name, ok := formatNames[enc.Format()]; ok {
		parts = append(parts, name)
	} else {
		parts = append(parts, fmt.Sprintf("format(%#x)", uint8(enc.Format())))
	}
	if enc.Adjust() != EncAdjustAbs {
		if name, ok := adjustNames[enc.Adjust()]; ok {
			parts = append(parts, name)
		} else {
			parts = append(parts, fmt.Sprintf("adjust(%#x)", uint8(enc.Adjust())))
		}
	}
	if enc.Indirect() {
		parts = append(parts, "indirect")
	}
	return strings.Join(parts, "|")
}

// MarshalText implements the encoding.TextMarshaler interface.
func (enc Encoding) MarshalText() ([]byte, error) {
	return []byte(enc.String()), nil
}
