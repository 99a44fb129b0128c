// Dirtreebench benchmarks directory walks.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pombredanne/ucg/dirtree"
	"github.com/pombredanne/ucg/filetype"
)

type benchResult struct {
	Timestamp time.Time `json:"ts"`

	Case  string `json:"case,omitempty"`
	Notes string `json:"notes,omitempty"`

	Dirs    []string `json:"dirs"`
	Types   string   `json:"types,omitempty"`
	Workers int      `json:"workers"`
	BufSize int      `json:"buf_size"`
	Repeat  int      `json:"repeat"`
	GC      int      `json:"gc"`
	Expect  int64    `json:"expect,omitempty"`

	Files       uint64        `json:"files"`
	Visited     uint64        `json:"visited"`
	Accepted    uint64        `json:"accepted"`
	Skipped     uint64        `json:"skipped"`
	Dups        uint64        `json:"dups"`
	Duration    time.Duration `json:"duration"`
	FilesPerSec float64       `json:"files_per_sec"`
	DirsPerSec  float64       `json:"dirs_per_sec"`

	GoVersion   string `json:"go"`
	GOOS        string `json:"goos"`
	GOARCH      string `json:"goarch"`
	GOMAXPROCS  int    `json:"gomaxprocs"`
	NumCPU      int    `json:"numcpu"`
	VCSRevision string `json:"vcs_revision,omitempty"`
	VCSTime     string `json:"vcs_time,omitempty"`
	VCSModified bool   `json:"vcs_modified,omitempty"`
}

type benchFlags struct {
	dirs       string
	types      string
	workers    int
	bufSize    int
	repeat     int
	gcPercent  int
	expect     int64
	quiet      bool
	verbose    bool
	caseName   string
	notes      string
	out        string
	cpuProfile string
	memProfile string
}

func parseFlags() *benchFlags {
	flags := &benchFlags{}

	flag.StringVar(&flags.dirs, "dir", "", "comma-separated start paths to walk")
	flag.StringVar(&flags.types, "types", "", "comma-separated file types to classify (empty = count every file)")
	flag.IntVar(&flags.workers, "workers", 1, "directory workers")
	flag.IntVar(&flags.bufSize, "bufsize", 0, "directory read buffer size in bytes (0=default)")
	flag.IntVar(&flags.repeat, "repeat", 1, "repeat the walk N times per invocation")
	flag.IntVar(&flags.gcPercent, "gc", -1, "if >=0, call debug.SetGCPercent(gc)")
	flag.Int64Var(&flags.expect, "expect", -1, "if >=0, require the file count to match (per walk)")
	flag.BoolVar(&flags.quiet, "q", false, "quiet: print only files/sec")
	flag.BoolVar(&flags.verbose, "v", false, "log walk diagnostics (skipped entries, descriptor anomalies) to stderr")
	flag.StringVar(&flags.caseName, "case", "", "optional short case name to store in JSON output")
	flag.StringVar(&flags.notes, "notes", "", "optional freeform notes to store in JSON output")
	flag.StringVar(&flags.out, "out", "", "optional JSONL output file to append one result per run")
	flag.StringVar(&flags.cpuProfile, "cpuprofile", "", "write CPU profile to file")
	flag.StringVar(&flags.memProfile, "memprofile", "", "write memory profile to file")

	return flags
}

func main() {
	flags := parseFlags()

	flag.Parse()

	os.Exit(run(flags))
}

func run(flags *benchFlags) int {
	dirs := splitList(flags.dirs)
	if len(dirs) == 0 {
		fmt.Fprintln(os.Stderr, "-dir is required")

		return 2
	}

	if flags.repeat <= 0 {
		fmt.Fprintln(os.Stderr, "-repeat must be >= 1")

		return 2
	}

	if flags.expect == 0 {
		fmt.Fprintln(os.Stderr, "-expect must be -1 or > 0")

		return 2
	}

	log := newLogger(flags.verbose)

	var classifier *filetype.Classifier

	if types := splitList(flags.types); len(types) > 0 {
		c, err := filetype.New(filetype.WithTypes(types...), filetype.WithLogger(log))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)

			return 2
		}

		classifier = c
	}

	if flags.gcPercent >= 0 {
		debug.SetGCPercent(flags.gcPercent)
	}

	if flags.cpuProfile != "" {
		cpuFile, err := os.Create(flags.cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error creating cpuprofile: %v\n", err)

			return 1
		}

		err = pprof.StartCPUProfile(cpuFile)
		if err != nil {
			_ = cpuFile.Close()

			fmt.Fprintf(os.Stderr, "error starting cpuprofile: %v\n", err)

			return 1
		}

		defer func() {
			pprof.StopCPUProfile()

			_ = cpuFile.Close()
		}()
	}

	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)

	table := dirtree.NewHandleTable(log)

	opts := []dirtree.Option{
		dirtree.WithWorkers(flags.workers),
		dirtree.WithReadBufferSize(flags.bufSize),
		dirtree.WithHandleTable(table),
		dirtree.WithLogger(log),
		dirtree.WithOnError(func(err error, _ int) bool {
			// Benchmarks should never error; stop as quickly as possible.
			cancel(err)

			return true
		}),
	}

	var sink dirtree.Sink = dirtree.SinkFunc(func(string) {})
	if classifier != nil {
		sink = classifier
	}

	var files, visited, skipped uint64

	start := time.Now()

	for range flags.repeat {
		res, errs := dirtree.Walk(ctx, dirs, sink, opts...)

		// In benchmarks we never expect errors.
		if len(errs) > 0 {
			maxErrsToPrint := min(len(errs), 10)
			for i := range maxErrsToPrint {
				fmt.Fprintf(os.Stderr, "error: %v\n", errs[i])
			}

			if len(errs) > maxErrsToPrint {
				fmt.Fprintf(os.Stderr, "... and %d more errors\n", len(errs)-maxErrsToPrint)
			}

			fmt.Fprintf(os.Stderr, "errors=%d\n", len(errs))

			return 1
		}

		files += res.Files
		visited += res.Dirs
		skipped += res.Skipped

		if flags.expect > 0 && int64(res.Files) != flags.expect {
			fmt.Fprintf(os.Stderr, "expected files=%d, got %d\n", flags.expect, res.Files)

			return 1
		}
	}

	if ctx.Err() != nil {
		fmt.Fprintf(os.Stderr, "stopped: %v\n", context.Cause(ctx))

		return 1
	}

	duration := time.Since(start)

	if live := table.Live(); live != 0 {
		fmt.Fprintf(os.Stderr, "descriptor leak: %d shared descriptors still open\n", live)

		return 1
	}

	if flags.memProfile != "" {
		err := writeHeapProfile(flags.memProfile)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)

			return 1
		}
	}

	var accepted uint64
	if classifier != nil {
		accepted = classifier.Stats().Accepted
	}

	res := benchResult{
		Timestamp:   time.Now(),
		Case:        flags.caseName,
		Notes:       flags.notes,
		Dirs:        dirs,
		Types:       flags.types,
		Workers:     flags.workers,
		BufSize:     flags.bufSize,
		Repeat:      flags.repeat,
		GC:          flags.gcPercent,
		Expect:      flags.expect,
		Files:       files,
		Visited:     visited,
		Accepted:    accepted,
		Skipped:     skipped,
		Dups:        table.Stats().Dups,
		Duration:    duration,
		FilesPerSec: float64(files) / duration.Seconds(),
		DirsPerSec:  float64(visited) / duration.Seconds(),
		GOOS:        runtime.GOOS,
		GOARCH:      runtime.GOARCH,
		GOMAXPROCS:  runtime.GOMAXPROCS(0),
		NumCPU:      runtime.NumCPU(),
	}

	fillBuildInfo(&res)

	if flags.out != "" {
		err := appendJSONL(flags.out, &res)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error writing -out: %v\n", err)

			return 1
		}
	}

	if flags.quiet {
		fmt.Printf("%.0f\n", res.FilesPerSec)

		return 0
	}

	fmt.Printf("files=%d dirs=%d accepted=%d skipped=%d dups=%d repeat=%d duration=%v files/sec=%.0f dirs/sec=%.0f\n",
		files, visited, accepted, skipped, res.Dups, flags.repeat, duration, res.FilesPerSec, res.DirsPerSec)

	return 0
}

// newLogger returns a stderr console logger when verbose, else a disabled one.
func newLogger(verbose bool) zerolog.Logger {
	if !verbose {
		return zerolog.Nop()
	}

	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	}

	return zerolog.New(output).Level(zerolog.DebugLevel).With().Timestamp().Logger()
}

func splitList(s string) []string {
	var out []string

	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}

	return out
}

func fillBuildInfo(res *benchResult) {
	bi, ok := debug.ReadBuildInfo()
	if !ok || bi == nil {
		return
	}

	res.GoVersion = bi.GoVersion

	for _, setting := range bi.Settings {
		switch setting.Key {
		case "vcs.revision":
			res.VCSRevision = setting.Value
		case "vcs.time":
			res.VCSTime = setting.Value
		case "vcs.modified":
			res.VCSModified = setting.Value == "true"
		}
	}
}

func writeHeapProfile(path string) error {
	memFile, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating memprofile: %w", err)
	}

	err = pprof.WriteHeapProfile(memFile)
	if err != nil {
		_ = memFile.Close()

		return fmt.Errorf("error writing memprofile: %w", err)
	}

	err = memFile.Close()
	if err != nil {
		return fmt.Errorf("error closing memprofile: %w", err)
	}

	return nil
}

func appendJSONL(path string, res *benchResult) error {
	outFile, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}

	defer func() { _ = outFile.Close() }()

	writer := bufio.NewWriter(outFile)
	enc := json.NewEncoder(writer)
	enc.SetEscapeHTML(false)

	err = enc.Encode(res)
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}

	err = writer.Flush()
	if err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return nil
}
