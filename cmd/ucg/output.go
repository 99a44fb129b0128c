package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/pombredanne/ucg/dirtree"
	"github.com/pombredanne/ucg/filetype"
)

// isTerminal reports whether w is a terminal. Non-file writers never are.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func colorEnabled(mode string, stdout io.Writer) (bool, error) {
	m, err := parseColorMode(mode)
	if err != nil {
		return false, err
	}

	switch m {
	case "always":
		return true, nil
	case "never":
		return false, nil
	default:
		return isTerminal(stdout) && os.Getenv("NO_COLOR") == "", nil
	}
}

// newLogger builds the console logger for diagnostics on stderr.
func newLogger(stderr io.Writer, level string, useColor bool) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.Nop(), fmt.Errorf("invalid --log-level %q (expected: trace | debug | info | warn | error)", level)
	}

	output := zerolog.ConsoleWriter{
		Out:        stderr,
		TimeFormat: "15:04:05",
		NoColor:    !useColor || !isTerminal(stderr),
	}

	return zerolog.New(output).Level(lvl).With().Timestamp().Logger(), nil
}

// printer writes results to out and problems to errOut.
type printer struct {
	out    io.Writer
	errOut io.Writer

	pathColor  *color.Color
	nameColor  *color.Color
	errColor   *color.Color
	labelColor *color.Color
}

func newPrinter(out, errOut io.Writer, useColor bool) *printer {
	p := &printer{
		out:        out,
		errOut:     errOut,
		pathColor:  color.New(color.FgGreen),
		nameColor:  color.New(color.FgCyan, color.Bold),
		errColor:   color.New(color.FgRed),
		labelColor: color.New(color.FgHiBlack),
	}

	for _, c := range []*color.Color{p.pathColor, p.nameColor, p.errColor, p.labelColor} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	return p
}

// path prints one accepted file. Walk serializes sink calls.
func (p *printer) path(path string) {
	fmt.Fprintln(p.out, p.pathColor.Sprint(path))
}

func (p *printer) typeLine(name string, specs []string) {
	fmt.Fprintf(p.out, "%s %s\n", p.nameColor.Sprintf("%-14s", name), strings.Join(specs, " "))
}

func (p *printer) walkError(err error) {
	fmt.Fprintln(p.errOut, p.errColor.Sprintf("ucg: %v", err))
}

func (p *printer) stats(res *dirtree.Result, cls filetype.Stats, elapsed time.Duration) {
	field := func(label string, v any) string {
		return p.labelColor.Sprint(label+"=") + fmt.Sprint(v)
	}

	fmt.Fprintln(p.errOut, strings.Join([]string{
		field("dirs", res.Dirs),
		field("files", res.Files),
		field("scanned", cls.Accepted),
		field("skipped", res.Skipped),
		field("errors", res.Errors),
		field("dups", res.Handles.Dups),
		field("closes", res.Handles.Closes),
		field("elapsed", elapsed.Round(time.Millisecond)),
	}, " "))
}
