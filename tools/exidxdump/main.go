// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// exidxdump inspects the ARM exception index of ELF executables. It classifies
// how functions can be unwound and sizes the tables of their extended
// exception descriptors.

package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"os"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
	log "github.com/sirupsen/logrus"

	exidxlog "github.com/noexcept-lab/exidx/log"
)

const envVarPrefix = "EXIDX"

// globalArgs are the flags shared by all subcommands.
type globalArgs struct {
	verbose    bool
	configFile string

	stdout io.Writer
}

// ffOptions returns the flag parsing options of every command.
func ffOptions() []ff.Option {
	return []ff.Option{
		ff.WithEnvVarPrefix(envVarPrefix),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		// Configuration files may carry options of other subcommands.
		ff.WithIgnoreUndefined(true),
		ff.WithAllowMissingConfigFile(true),
	}
}

// register adds the global flags to fs. Subcommands register them as well so
// they can follow the subcommand name.
func (g *globalArgs) register(fs *flag.FlagSet) {
	fs.BoolVar(&g.verbose, "v", false, "Enable debug logging.")
	fs.BoolVar(&g.verbose, "verbose", false, "Enable debug logging.")
	fs.StringVar(&g.configFile, "config", "", "Path to a plain text configuration file.")
}

// apply configures logging for the parsed flags.
func (g *globalArgs) apply() {
	if g.verbose {
		log.SetLevel(log.DebugLevel)
		exidxlog.SetLevel(slog.LevelDebug)
	}
}

func newRootCmd(g *globalArgs) *ffcli.Command {
	fs := flag.NewFlagSet("exidxdump", flag.ExitOnError)
	g.register(fs)

	return &ffcli.Command{
		Name:       "exidxdump",
		ShortUsage: "exidxdump [flags] <subcommand> [flags]",
		ShortHelp:  "Inspect ARM exception index tables and descriptors",
		FlagSet:    fs,
		Options:    ffOptions(),
		Subcommands: []*ffcli.Command{
			newClassifyCmd(g),
			newLsdaCmd(g),
			newInspectCmd(g),
		},
		Exec: func(context.Context, []string) error {
			return flag.ErrHelp
		},
	}
}

func main() {
	log.SetReportCaller(false)
	log.SetFormatter(&log.TextFormatter{})

	root := newRootCmd(&globalArgs{stdout: os.Stdout})
	if err := root.ParseAndRun(context.Background(), os.Args[1:]); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			log.Fatalf("%v", err)
		}
	}
}
