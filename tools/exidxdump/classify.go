// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"flag"

	"github.com/peterbourgon/ff/v3/ffcli"
)

type classifyCmd struct {
	*globalArgs

	all     bool
	jsonOut bool
	out     string
}

func newClassifyCmd(g *globalArgs) *ffcli.Command {
	args := &classifyCmd{globalArgs: g}

	set := flag.NewFlagSet("classify", flag.ExitOnError)
	g.register(set)
	set.BoolVar(&args.all, "all", false, "Probe every function symbol")
	set.BoolVar(&args.jsonOut, "json", false, "Write the report as JSON")
	set.StringVar(&args.out, "o", "", "Write the report to this file (JSON, zstd if *.zst)")

	return &ffcli.Command{
		Name:       "classify",
		Exec:       args.exec,
		ShortUsage: "classify [flags] <elf> [function|0xaddress...]",
		ShortHelp:  "Classify the unwind information of functions",
		FlagSet:    set,
		Options:    ffOptions(),
	}
}

func (cmd *classifyCmd) exec(_ context.Context, args []string) error {
	cmd.apply()
	if len(args) < 1 {
		return errors.New("missing ELF file argument")
	}

	t, err := openTarget(args[0], false)
	if err != nil {
		return err
	}
	functions, err := t.probes(args[1:], cmd.all)
	if err != nil {
		return err
	}

	records := t.decoder.Classify(functions)
	r := newReport(t, records)
	r.addFunctions(t, records)

	if cmd.jsonOut || cmd.out != "" {
		return writeJSON(cmd.stdout, cmd.out, r)
	}
	printFunctions(cmd.stdout, r)
	return nil
}
