// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"runtime"

	"github.com/peterbourgon/ff/v3/ffcli"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/noexcept-lab/exidx/libpf"
	"github.com/noexcept-lab/exidx/nativeunwind/armexidx"
)

type inspectCmd struct {
	*globalArgs

	parallel int
	strict   bool
	jsonOut  bool
}

// summary condenses the decoding results of one file.
type summary struct {
	File        string                `json:"file"`
	FileID      string                `json:"file_id,omitempty"`
	Entries     int                   `json:"entries"`
	Fingerprint string                `json:"fingerprint,omitempty"`
	Ranks       map[armexidx.Rank]int `json:"ranks,omitempty"`
	Valid       int                   `json:"valid_descriptors"`
	Invalid     int                   `json:"invalid_descriptors"`
	Error       string                `json:"error,omitempty"`
}

func newInspectCmd(g *globalArgs) *ffcli.Command {
	args := &inspectCmd{globalArgs: g}

	set := flag.NewFlagSet("inspect", flag.ExitOnError)
	g.register(set)
	set.IntVar(&args.parallel, "parallel", runtime.NumCPU(),
		"Number of files inspected concurrently")
	set.BoolVar(&args.strict, "strict", false,
		"Reject descriptors announcing more than two unwind opcode words")
	set.BoolVar(&args.jsonOut, "json", false, "Write the summaries as JSON")

	return &ffcli.Command{
		Name:       "inspect",
		Exec:       args.exec,
		ShortUsage: "inspect [flags] <elf>...",
		ShortHelp:  "Summarize the exception index of several files",
		FlagSet:    set,
		Options:    ffOptions(),
	}
}

func inspectFile(path string, strict bool) summary {
	s := summary{File: path}
	t, err := openTarget(path, strict)
	if err != nil {
		s.Error = err.Error()
		return s
	}
	functions, err := t.probes(nil, false)
	if err != nil {
		s.Error = err.Error()
		return s
	}
	records, descs := t.decoder.Decode(functions)

	r := newReport(t, records)
	s.FileID = t.fileID.StringNoQuotes()
	s.Entries = r.Index.Entries
	s.Fingerprint = r.Index.Fingerprint
	s.Ranks = r.Ranks
	for _, desc := range descs {
		if desc.Valid {
			s.Valid++
		} else {
			s.Invalid++
		}
	}
	return s
}

func (cmd *inspectCmd) exec(ctx context.Context, args []string) error {
	cmd.apply()
	if len(args) == 0 {
		return errors.New("missing ELF file arguments")
	}

	// Each file is inspected once, reports follow the sorted path order.
	paths := libpf.SortedSlice(libpf.SliceToSet(args))
	summaries := make([]summary, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cmd.parallel, 1))
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			summaries[i] = inspectFile(path, cmd.strict)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	failed := 0
	for _, s := range summaries {
		if s.Error != "" {
			log.Warnf("%s", s.Error)
			failed++
		}
	}

	if cmd.jsonOut {
		if err := writeJSON(cmd.stdout, "", summaries); err != nil {
			return err
		}
	} else {
		for _, s := range summaries {
			if s.Error != "" {
				continue
			}
			fmt.Fprintf(cmd.stdout, "%s %s entries=%d fingerprint=%s descriptors=%d/%d",
				s.FileID, s.File, s.Entries, s.Fingerprint, s.Valid, s.Valid+s.Invalid)
			for rank := armexidx.RankUnknown; rank <= armexidx.RankTableExtendedDescriptor; rank++ {
				if n := s.Ranks[rank]; n != 0 {
					fmt.Fprintf(cmd.stdout, " %s=%d", rank, n)
				}
			}
			fmt.Fprintln(cmd.stdout)
		}
	}

	if failed != 0 {
		return fmt.Errorf("failed to inspect %d of %d files", failed, len(paths))
	}
	return nil
}
