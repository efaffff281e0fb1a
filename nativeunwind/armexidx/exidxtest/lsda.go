// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package exidxtest // import "github.com/noexcept-lab/exidx/nativeunwind/armexidx/exidxtest"

import (
	"encoding/binary"
	"fmt"

	"github.com/noexcept-lab/exidx/nativeunwind/armexidx"
)

// CallSite is one call-site table record.
type CallSite struct {
	Start      uint64
	Length     uint64
	LandingPad uint64
	Action     uint32
}

// Action is one action table record.
type Action struct {
	Filter int32
	Next   int32
}

// LSDA describes the data following the personality routine offset of an
// exception table entry.
type LSDA struct {
	// Opcodes are the unwind opcode words. Nil selects one ShortForm word.
	Opcodes []uint32
	// Augmentation replaces the omit marker when non-zero.
	Augmentation byte
	// TypeEncoding is written only if TypeTable is not nil.
	TypeEncoding armexidx.Encoding
	// TypeTable holds 4-byte type table entries. Nil omits the type table.
	TypeTable        []uint32
	CallSiteEncoding armexidx.Encoding
	CallSites        []CallSite
	Actions          []Action
}

// CallSiteTable returns the encoded call-site table.
func (l *LSDA) CallSiteTable() []byte {
	var b []byte
	for _, cs := range l.CallSites {
		b = appendEncoded(b, l.CallSiteEncoding, cs.Start)
		b = appendEncoded(b, l.CallSiteEncoding, cs.Length)
		b = appendEncoded(b, l.CallSiteEncoding, cs.LandingPad)
		b = armexidx.AppendUleb128(b, cs.Action)
	}
	return b
}

// ActionTable returns the encoded action table.
func (l *LSDA) ActionTable() []byte {
	var b []byte
	for _, a := range l.Actions {
		b = armexidx.AppendSleb128(b, a.Filter)
		b = armexidx.AppendSleb128(b, a.Next)
	}
	return b
}

// Bytes renders the opcodes and the descriptor.
func (l *LSDA) Bytes() []byte {
	var b []byte
	opcodes := l.Opcodes
	if opcodes == nil {
		opcodes = []uint32{ShortForm}
	}
	for _, w := range opcodes {
		b = binary.LittleEndian.AppendUint32(b, w)
	}

	aug := byte(armexidx.EncOmit)
	if l.Augmentation != 0 {
		aug = l.Augmentation
	}
	b = append(b, aug)

	callSites := l.CallSiteTable()
	actions := l.ActionTable()
	if l.TypeTable != nil {
		b = append(b, byte(l.TypeEncoding))
		typeOffset := len(callSites) + len(actions) + 4*len(l.TypeTable)
		b = armexidx.AppendUleb128(b, uint32(typeOffset))
	} else {
		b = append(b, byte(armexidx.EncOmit))
	}

	b = append(b, byte(l.CallSiteEncoding))
	b = armexidx.AppendUleb128(b, uint32(len(callSites)))
	b = append(b, callSites...)
	b = append(b, actions...)
	for _, t := range l.TypeTable {
		b = binary.LittleEndian.AppendUint32(b, t)
	}
	return b
}

func appendEncoded(b []byte, enc armexidx.Encoding, v uint64) []byte {
	switch enc.Format() {
	case armexidx.EncAbsPtr, armexidx.EncUdata4, armexidx.EncSdata4:
		return binary.LittleEndian.AppendUint32(b, uint32(v))
	case armexidx.EncUleb128:
		return armexidx.AppendUleb128(b, uint32(v))
	case armexidx.EncSleb128:
		return armexidx.AppendSleb128(b, int32(v))
	case armexidx.EncUdata2, armexidx.EncSdata2:
		return binary.LittleEndian.AppendUint16(b, uint16(v))
	case armexidx.EncUdata8, armexidx.EncSdata8:
		return binary.LittleEndian.AppendUint64(b, v)
	}
	panic(fmt.Sprintf("cannot encode %v", enc))
}
