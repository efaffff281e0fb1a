// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package libpf // import "github.com/noexcept-lab/exidx/libpf"

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"

	sha256 "github.com/minio/sha256-simd"
)

// FileID identifies an executable independently of its location on disk.
type FileID struct {
	hi, lo uint64
}

// NewFileID creates a FileID from its high and low halves.
func NewFileID(hi, lo uint64) FileID {
	return FileID{hi: hi, lo: lo}
}

// FileIDFromBytes parses a 16 byte slice into a FileID.
func FileIDFromBytes(b []byte) (FileID, error) {
	if len(b) != 16 {
		return FileID{}, fmt.Errorf("unexpected input size (expected 16 bytes): %d", len(b))
	}
	return NewFileID(binary.BigEndian.Uint64(b[:8]), binary.BigEndian.Uint64(b[8:])), nil
}

// StringNoQuotes returns the hexadecimal notation of the FileID.
func (f FileID) StringNoQuotes() string {
	var b [16]byte
	binary.BigEndian.PutUint64(b[:8], f.hi)
	binary.BigEndian.PutUint64(b[8:], f.lo)
	return hex.EncodeToString(b[:])
}

func (f FileID) String() string {
	return f.StringNoQuotes()
}

// MarshalText implements the encoding.TextMarshaler interface.
func (f FileID) MarshalText() ([]byte, error) {
	return []byte(f.StringNoQuotes()), nil
}

// FileIDFromExecutableReader hashes portions of the contents of the reader in order to
// generate a system-independent identifier. The ELF header and trailer usually cover
// the program headers, the section headers and the GNU Build ID.
//
// Hash algorithm: SHA256 of
//  1. the first 4 KiB,
//  2. the last 4 KiB,
//  3. the file length (8 bytes, big-endian),
//
// truncated to 16 bytes.
func FileIDFromExecutableReader(reader io.ReadSeeker) (FileID, error) {
	h := sha256.New()

	if _, err := io.Copy(h, io.LimitReader(reader, 4096)); err != nil {
		return FileID{}, fmt.Errorf("failed to hash file header: %v", err)
	}

	size, err := reader.Seek(0, io.SeekEnd)
	if err != nil {
		return FileID{}, fmt.Errorf("failed to seek end of file: %v", err)
	}

	tailBytes := min(size, 4096)
	if _, err = reader.Seek(-tailBytes, io.SeekEnd); err != nil {
		return FileID{}, fmt.Errorf("failed to seek file trailer: %v", err)
	}
	if _, err = io.Copy(h, reader); err != nil {
		return FileID{}, fmt.Errorf("failed to hash file trailer: %v", err)
	}

	var length [8]byte
	binary.BigEndian.PutUint64(length[:], uint64(size))
	_, _ = h.Write(length[:])

	return FileIDFromBytes(h.Sum(nil)[0:16])
}
