// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// package pfelf implements functions for processing of ELF files and extracting data from
// them. This file provides input handling shared by the ELF loader.
package pfelf // import "github.com/noexcept-lab/exidx/libpf/pfelf"

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// maxDecompressedSize limits the size of decompressed inputs.
const maxDecompressedSize = 1 << 30

// isCompressed reports whether name refers to a zstd compressed file.
func isCompressed(name string) bool {
	return strings.HasSuffix(name, ".zst")
}

// readCompressed returns the decompressed contents of a zstd file.
func readCompressed(name string) (*bytes.Reader, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f, zstd.WithDecoderMaxMemory(maxDecompressedSize))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	defer dec.Close()

	data, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress %s: %w", name, err)
	}
	return bytes.NewReader(data), nil
}

// CompressFile writes data zstd compressed to name.
func CompressFile(name string, data []byte) error {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return err
	}
	defer enc.Close()
	return os.WriteFile(name, enc.EncodeAll(data, nil), 0o644)
}
