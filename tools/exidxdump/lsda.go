// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"flag"

	"github.com/peterbourgon/ff/v3/ffcli"
	log "github.com/sirupsen/logrus"
)

type lsdaCmd struct {
	*globalArgs

	all     bool
	strict  bool
	jsonOut bool
	out     string
}

func newLsdaCmd(g *globalArgs) *ffcli.Command {
	args := &lsdaCmd{globalArgs: g}

	set := flag.NewFlagSet("lsda", flag.ExitOnError)
	g.register(set)
	set.BoolVar(&args.all, "all", false, "Probe every function symbol")
	set.BoolVar(&args.strict, "strict", false,
		"Reject descriptors announcing more than two unwind opcode words")
	set.BoolVar(&args.jsonOut, "json", false, "Write the report as JSON")
	set.StringVar(&args.out, "o", "", "Write the report to this file (JSON, zstd if *.zst)")

	return &ffcli.Command{
		Name:       "lsda",
		Exec:       args.exec,
		ShortUsage: "lsda [flags] <elf> [function|0xaddress...]",
		ShortHelp:  "Decode the extended exception descriptors of functions",
		FlagSet:    set,
		Options:    ffOptions(),
	}
}

func (cmd *lsdaCmd) exec(_ context.Context, args []string) error {
	cmd.apply()
	if len(args) < 1 {
		return errors.New("missing ELF file argument")
	}

	t, err := openTarget(args[0], cmd.strict)
	if err != nil {
		return err
	}
	functions, err := t.probes(args[1:], cmd.all)
	if err != nil {
		return err
	}

	records, descs := t.decoder.Decode(functions)
	r := newReport(t, records)
	r.addDescriptors(t, descs)
	stats := t.decoder.CacheStatistics()
	r.Cache = &stats

	invalid := 0
	for _, desc := range descs {
		if !desc.Valid {
			invalid++
		}
	}
	if invalid != 0 {
		log.Infof("%d of %d descriptors are invalid", invalid, len(descs))
	}

	if cmd.jsonOut || cmd.out != "" {
		return writeJSON(cmd.stdout, cmd.out, r)
	}
	printDescriptors(cmd.stdout, r)
	return nil
}
