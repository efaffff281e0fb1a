// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/noexcept-lab/exidx/libpf"
	"github.com/noexcept-lab/exidx/libpf/freelru"
	"github.com/noexcept-lab/exidx/nativeunwind/armexidx"
)

// indexReport identifies the index table a report was produced from.
type indexReport struct {
	Addr        libpf.Address `json:"addr"`
	Entries     int           `json:"entries"`
	Fingerprint string        `json:"fingerprint"`
}

type functionReport struct {
	Function libpf.Address `json:"function"`
	Symbol   string        `json:"symbol,omitempty"`
	Rank     armexidx.Rank `json:"rank"`
	Entry    libpf.Address `json:"entry,omitempty"`
}

type sectionReport struct {
	Count uint32 `json:"count"`
	Size  uint32 `json:"size"`
}

type descriptorReport struct {
	Function          libpf.Address     `json:"function"`
	Symbol            string            `json:"symbol,omitempty"`
	Valid             bool              `json:"valid"`
	Error             string            `json:"error,omitempty"`
	TotalSize         uint32            `json:"total_size"`
	MaxActionIndex    uint32            `json:"max_action_index"`
	TypeTableOffset   uint32            `json:"type_table_offset"`
	TypeTableEncoding armexidx.Encoding `json:"type_table_encoding"`
	CallSiteEncoding  armexidx.Encoding `json:"call_site_encoding"`
	CallSite          sectionReport     `json:"call_site"`
	ActionTable       sectionReport     `json:"action_table"`
	TypeTable         sectionReport     `json:"type_table"`
	IrregularHeader   bool              `json:"irregular_header,omitempty"`
}

// report is the document written by the classify and lsda subcommands.
type report struct {
	File        string                `json:"file"`
	FileID      libpf.FileID          `json:"file_id"`
	Index       indexReport           `json:"index"`
	Ranks       map[armexidx.Rank]int `json:"ranks"`
	Functions   []functionReport      `json:"functions,omitempty"`
	Descriptors []descriptorReport    `json:"descriptors,omitempty"`
	Cache       *freelru.Statistics   `json:"cache,omitempty"`
}

func newReport(t *target, records []armexidx.FunctionRecord) *report {
	table := t.decoder.Table()
	r := &report{
		File:   t.path,
		FileID: t.fileID,
		Index: indexReport{
			Addr:        table.Addr,
			Entries:     len(table.Entries),
			Fingerprint: fmt.Sprintf("%016x", table.Fingerprint()),
		},
		Ranks: make(map[armexidx.Rank]int),
	}
	for _, rec := range records {
		r.Ranks[rec.Rank]++
	}
	return r
}

func (r *report) addFunctions(t *target, records []armexidx.FunctionRecord) {
	r.Functions = make([]functionReport, 0, len(records))
	for _, rec := range records {
		fr := functionReport{
			Function: rec.Function,
			Symbol:   t.symbolize(rec.Function),
			Rank:     rec.Rank,
		}
		if rec.HasEntry {
			fr.Entry = rec.Entry
		}
		r.Functions = append(r.Functions, fr)
	}
}

func (r *report) addDescriptors(t *target, descs []armexidx.ExtendedDescriptor) {
	r.Descriptors = make([]descriptorReport, 0, len(descs))
	for _, desc := range descs {
		dr := descriptorReport{
			Function:          desc.Function,
			Symbol:            t.symbolize(desc.Function),
			Valid:             desc.Valid,
			TotalSize:         desc.TotalSize,
			MaxActionIndex:    desc.MaxActionIndex,
			TypeTableOffset:   desc.TypeTableOffset,
			TypeTableEncoding: desc.TypeTableEncoding,
			CallSiteEncoding:  desc.CallSiteEncoding,
			CallSite:          sectionReport(desc.CallSite),
			ActionTable:       sectionReport(desc.ActionTable),
			TypeTable:         sectionReport(desc.TypeTable),
			IrregularHeader:   desc.IrregularHeader,
		}
		if desc.Err != nil {
			dr.Error = desc.Err.Error()
		}
		r.Descriptors = append(r.Descriptors, dr)
	}
}

// writeJSON writes v as indented JSON to out, or to w if out is empty. Output
// files ending in .zst are zstd compressed.
func writeJSON(w io.Writer, out string, v any) (err error) {
	if out == "" {
		return encodeJSON(w, v)
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if !strings.HasSuffix(out, ".zst") {
		return encodeJSON(f, v)
	}

	enc, err := zstd.NewWriter(f)
	if err != nil {
		return fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	if err = encodeJSON(enc, v); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

func encodeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func printHeader(w io.Writer, r *report) {
	fmt.Fprintf(w, "# %s (%s)\n", r.File, r.FileID.StringNoQuotes())
	fmt.Fprintf(w, "# index %v: %d entries, fingerprint %s\n",
		r.Index.Addr, r.Index.Entries, r.Index.Fingerprint)
}

func printFunctions(w io.Writer, r *report) {
	printHeader(w, r)
	for _, fr := range r.Functions {
		entry := "-"
		if fr.Entry != 0 {
			entry = fmt.Sprintf("%08x", uint64(fr.Entry))
		}
		fmt.Fprintf(w, "%08x %-8s %-26s%s\n", uint64(fr.Function), entry, fr.Rank, fr.Symbol)
	}
}

func printDescriptors(w io.Writer, r *report) {
	printHeader(w, r)
	for _, dr := range r.Descriptors {
		if !dr.Valid {
			fmt.Fprintf(w, "%08x invalid: %s %s\n", uint64(dr.Function), dr.Error, dr.Symbol)
			continue
		}
		comment := ""
		if dr.IrregularHeader {
			comment = " irregular"
		}
		fmt.Fprintf(w, "%08x size=%-5d cs=%d/%-5d act=%d/%-5d type=%d/%-5d %-14s%s%s\n",
			uint64(dr.Function), dr.TotalSize,
			dr.CallSite.Count, dr.CallSite.Size,
			dr.ActionTable.Count, dr.ActionTable.Size,
			dr.TypeTable.Count, dr.TypeTable.Size,
			dr.CallSiteEncoding, dr.Symbol, comment)
	}
	if r.Cache != nil {
		fmt.Fprintf(w, "# cache: %d hits, %d misses\n", r.Cache.Hit, r.Cache.Miss)
	}
}
