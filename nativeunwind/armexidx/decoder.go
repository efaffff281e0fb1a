// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package armexidx decodes the ARM exception handling index (.ARM.exidx) and
// the language specific data referenced from the exception table
// (.ARM.extab). It classifies how each probed function can be unwound and
// sizes the call-site, action and type tables of its descriptor.
//
// All reads go through a bounds checked Image; malformed data marks the
// affected descriptor invalid without stopping the remaining functions.
package armexidx // import "github.com/noexcept-lab/exidx/nativeunwind/armexidx"

import (
	"fmt"

	"github.com/noexcept-lab/exidx/internal/log"
	"github.com/noexcept-lab/exidx/libpf"
	"github.com/noexcept-lab/exidx/libpf/freelru"
)

// Decoder classifies functions of one image against its index table and
// decodes their extended descriptors. A Decoder can be reused for several
// probe sets; descriptors are memoized by index entry.
//
// A Decoder is not safe for concurrent use.
type Decoder struct {
	mem   *Image
	table IndexTable
	cfg   Config

	descriptors *freelru.LRU[libpf.Address, ExtendedDescriptor]
}

// New creates a Decoder for table within mem.
func New(mem *Image, table IndexTable, cfg Config) (*Decoder, error) {
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	descriptors, err := freelru.New[libpf.Address, ExtendedDescriptor](cfg.CacheSize,
		libpf.Address.Hash32)
	if err != nil {
		return nil, fmt.Errorf("failed to create descriptor cache: %v", err)
	}
	return &Decoder{
		mem:         mem,
		table:       table,
		cfg:         cfg,
		descriptors: descriptors,
	}, nil
}

// Table returns the index table the Decoder works on.
func (d *Decoder) Table() *IndexTable {
	return &d.table
}

// Classify classifies functions, see Classify. The slice is sorted in place.
func (d *Decoder) Classify(functions []libpf.Address) []FunctionRecord {
	return Classify(d.mem, d.table, functions, d.cfg)
}

// Describe returns one descriptor for each record ranked
// RankTableExtendedDescriptor, in record order.
func (d *Decoder) Describe(records []FunctionRecord) []ExtendedDescriptor {
	descs := make([]ExtendedDescriptor, 0)
	for _, rec := range records {
		if rec.Rank != RankTableExtendedDescriptor {
			continue
		}
		desc := d.descriptors.GetOrCompute(rec.Entry, func() ExtendedDescriptor {
			desc, err := ParseDescriptor(d.mem, rec, d.cfg)
			if err != nil {
				log.Debugf("Invalid descriptor: %v", err)
			} else if desc.IrregularHeader {
				log.Debugf("Function %v: assumed two unwind opcode words", rec.Function)
			}
			return desc
		})
		descs = append(descs, desc)
	}
	return descs
}

// Decode classifies functions and decodes the extended descriptors of
// the matching ones.
func (d *Decoder) Decode(functions []libpf.Address) ([]FunctionRecord, []ExtendedDescriptor) {
	records := d.Classify(functions)
	return records, d.Describe(records)
}

// CacheStatistics returns and resets the descriptor cache statistics.
func (d *Decoder) CacheStatistics() freelru.Statistics {
	return d.descriptors.GetAndResetStatistics()
}
