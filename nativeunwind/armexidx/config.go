// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package armexidx // import "github.com/noexcept-lab/exidx/nativeunwind/armexidx"

import (
	"fmt"

	"github.com/noexcept-lab/exidx/libpf"
)

const (
	// defaultPointerSize matches 32-bit ARM targets.
	defaultPointerSize = 4
	// defaultCacheSize is the number of descriptors kept by a Decoder.
	defaultCacheSize = 128
)

// Config controls how index entries and descriptors are interpreted.
type Config struct {
	// PointerSize is the width of a target pointer in bytes: 4 or 8.
	// Zero selects 4.
	PointerSize int

	// Personality is the address of the personality routine whose tables use
	// the extended descriptor layout, usually __gxx_personality_v0.
	Personality libpf.Address

	// Normalize canonicalizes function addresses before they are compared.
	// Nil leaves addresses unchanged.
	Normalize func(libpf.Address) libpf.Address

	// StrictHeader makes descriptors with more than two additional unwind
	// opcode words fail with ErrIrregularHeaderForm instead of assuming two.
	StrictHeader bool

	// CacheSize is the number of parsed descriptors a Decoder memoizes.
	// Zero selects a default.
	CacheSize uint32
}

func (cfg *Config) setDefaults() {
	if cfg.PointerSize == 0 {
		cfg.PointerSize = defaultPointerSize
	}
	if cfg.CacheSize == 0 {
		cfg.CacheSize = defaultCacheSize
	}
}

func (cfg *Config) validate() error {
	if cfg.PointerSize != 4 && cfg.PointerSize != 8 {
		return fmt.Errorf("unsupported pointer size %d", cfg.PointerSize)
	}
	return nil
}

func (cfg *Config) normalize(addr libpf.Address) libpf.Address {
	if cfg.Normalize == nil {
		return addr
	}
	return cfg.Normalize(addr)
}

func (cfg *Config) pointerSize() int {
	if cfg.PointerSize == 0 {
		return defaultPointerSize
	}
	return cfg.PointerSize
}
