package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pombredanne/ucg/dirtree"
	"github.com/pombredanne/ucg/filetype"
)

// errUnreadable is returned when the walk collected errors. The paths that
// could be read were still printed.
var errUnreadable = errors.New("some paths could not be read")

type rootFlags struct {
	types     []string
	noTypes   []string
	config    string
	workers   int
	logLevel  string
	color     string
	stats     bool
	listTypes bool
}

// NewRootCommand creates the ucg command writing results to stdout and
// diagnostics to stderr.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "ucg [flags] [path...]",
		Short: "List source files a code search would scan",
		Long: `ucg walks each path breadth-first and prints every regular file that
belongs to a known file type, one per line.

Types match by extension (.go), literal file name (Makefile) or a regular
expression against the first line (#!/usr/bin/perl). Extra types can be
defined in a YAML file:

  types:
    proto: [".proto"]
    bazel: ["BUILD", ".bzl"]`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, flags, args, stdout, stderr)
		},
	}

	cmd.Flags().StringSliceVarP(&flags.types, "type", "t", nil, "only scan files of these types (repeatable)")
	cmd.Flags().StringSliceVar(&flags.noTypes, "no-type", nil, "never scan files of these types (repeatable)")
	cmd.Flags().StringVar(&flags.config, "config", "", "YAML file with extra types (default $XDG_CONFIG_HOME/ucg/types.yaml)")
	cmd.Flags().IntVar(&flags.workers, "workers", 1, "directory workers; >1 trades breadth-first order for speed")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "error", "log level: trace|debug|info|warn|error")
	cmd.Flags().StringVar(&flags.color, "color", "auto", "colorize output: auto|always|never")
	cmd.Flags().BoolVar(&flags.stats, "stats", false, "print walk statistics to stderr")
	cmd.Flags().BoolVar(&flags.listTypes, "list-types", false, "list known file types and exit")

	return cmd
}

func run(cmd *cobra.Command, flags *rootFlags, args []string, stdout, stderr io.Writer) error {
	useColor, err := colorEnabled(flags.color, stdout)
	if err != nil {
		return err
	}

	log, err := newLogger(stderr, flags.logLevel, useColor)
	if err != nil {
		return err
	}

	cfg, err := loadTypeConfig(flags.config, cmd.Flags().Changed("config"), log)
	if err != nil {
		return err
	}

	out := bufio.NewWriter(stdout)
	defer out.Flush()

	p := newPrinter(out, stderr, useColor)

	if flags.listTypes {
		for _, ti := range filetype.Known(cfg) {
			p.typeLine(ti.Name, ti.Specs)
		}

		return nil
	}

	classifier, err := filetype.New(
		filetype.WithConfig(cfg),
		filetype.WithTypes(flags.types...),
		filetype.WithoutTypes(flags.noTypes...),
		filetype.WithLogger(log),
		filetype.WithOutput(p.path),
	)
	if err != nil {
		return err
	}

	paths := args
	if len(paths) == 0 {
		paths = []string{"."}
	}

	start := time.Now()

	res, errs := dirtree.Walk(cmd.Context(), paths, classifier,
		dirtree.WithWorkers(flags.workers),
		dirtree.WithLogger(log),
	)

	elapsed := time.Since(start)

	err = out.Flush()
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	for _, walkErr := range errs {
		p.walkError(walkErr)
	}

	if flags.stats {
		p.stats(res, classifier.Stats(), elapsed)
	}

	if ctxErr := cmd.Context().Err(); ctxErr != nil {
		return fmt.Errorf("walk interrupted: %w", ctxErr)
	}

	if res.Errors > 0 {
		return fmt.Errorf("%w (%d errors)", errUnreadable, res.Errors)
	}

	return nil
}

// loadTypeConfig reads the user type file. The default location is optional;
// an explicitly given path must exist.
func loadTypeConfig(path string, explicit bool, log zerolog.Logger) (filetype.Config, error) {
	if !explicit {
		dir, err := os.UserConfigDir()
		if err != nil {
			return filetype.Config{}, nil
		}

		path = filepath.Join(dir, "ucg", "types.yaml")
	}

	cfg, err := filetype.LoadConfigFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return filetype.Config{}, nil
		}

		return filetype.Config{}, err
	}

	log.Debug().Str("path", path).Int("types", len(cfg.Types)).Msg("loaded type config")

	return cfg, nil
}

func parseColorMode(mode string) (string, error) {
	m := strings.ToLower(strings.TrimSpace(mode))
	switch m {
	case "auto", "always", "never":
		return m, nil
	default:
		return "", fmt.Errorf("invalid --color %q (expected: auto | always | never)", mode)
	}
}
