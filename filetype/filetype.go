// Package filetype decides which discovered files are worth searching.
//
// A [Classifier] knows a table of named types (the builtin table plus any
// user types from a [Config]). Each type lists extensions (".go"), literal
// file names ("Makefile") and first-line regular expressions ("/^#!.*\bperl/").
// A file is scanned if any active type matches it.
//
// The Classifier implements the walker's sink interface: pass it to
// dirtree.Walk and it forwards accepted paths to the function given with
// [WithOutput].
package filetype

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
)

var (
	// ErrUnknownType is returned when an option names a type that is neither
	// builtin nor configured.
	ErrUnknownType = errors.New("unknown file type")
	// ErrInvalidSpec is returned for malformed type entries, including
	// first-line patterns that do not compile.
	ErrInvalidSpec = errors.New("invalid type spec")
)

// firstLineMax bounds how much of a file is read to find its first line.
const firstLineMax = 4096

type lineRule struct {
	typeName string
	re       *regexp.Regexp
}

// Classifier matches file paths against the active types.
// Safe for concurrent use after construction.
type Classifier struct {
	exts      map[string]string
	literals  map[string]string
	lineRules []lineRule
	active    []string

	output func(path string)
	log    zerolog.Logger

	considered atomic.Uint64
	accepted   atomic.Uint64
}

// Stats counts [Classifier.Consider] calls.
type Stats struct {
	Considered uint64
	Accepted   uint64
}

// TypeInfo describes one known type.
type TypeInfo struct {
	Name  string
	Specs []string
}

// New builds a Classifier.
func New(opts ...Option) (*Classifier, error) {
	cfg := options{}

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	if cfg.log == nil {
		nop := zerolog.Nop()
		cfg.log = &nop
	}

	err := cfg.config.validate()
	if err != nil {
		return nil, err
	}

	table := allTypes(cfg.config)

	active, err := selectTypes(table, cfg.include, cfg.exclude)
	if err != nil {
		return nil, err
	}

	c := &Classifier{
		exts:     make(map[string]string),
		literals: make(map[string]string),
		active:   active,
		output:   cfg.output,
		log:      *cfg.log,
	}

	for _, name := range active {
		err := c.compile(name, table[name])
		if err != nil {
			return nil, err
		}
	}

	c.log.Debug().
		Strs("types", active).
		Int("extensions", len(c.exts)).
		Int("literals", len(c.literals)).
		Int("first_line_rules", len(c.lineRules)).
		Msg("file types compiled")

	return c, nil
}

// allTypes merges the builtin table with user types. User types replace
// builtins of the same name.
func allTypes(cfg Config) map[string][]string {
	table := make(map[string][]string, len(builtinTypes)+len(cfg.Types))

	for name, specs := range builtinTypes {
		table[name] = specs
	}

	for name, specs := range cfg.Types {
		table[name] = specs
	}

	return table
}

func selectTypes(table map[string][]string, include, exclude []string) ([]string, error) {
	for _, name := range slices.Concat(include, exclude) {
		if _, ok := table[name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownType, name)
		}
	}

	var active []string

	if len(include) > 0 {
		active = slices.Clone(include)
	} else {
		for name := range table {
			active = append(active, name)
		}
	}

	active = slices.DeleteFunc(active, func(name string) bool {
		return slices.Contains(exclude, name)
	})

	sort.Strings(active)

	return slices.Compact(active), nil
}

func (c *Classifier) compile(typeName string, specs []string) error {
	for _, spec := range specs {
		switch {
		case spec[0] == '.':
			if _, ok := c.exts[spec]; !ok {
				c.exts[spec] = typeName
			}

		case spec[0] == '/':
			// Config.validate rejects patterns without a closing slash.
			re, err := regexp.Compile(spec[1 : len(spec)-1])
			if err != nil {
				return fmt.Errorf("%w: type %q pattern %s: %w", ErrInvalidSpec, typeName, spec, err)
			}

			c.lineRules = append(c.lineRules, lineRule{typeName: typeName, re: re})

		default:
			if _, ok := c.literals[spec]; !ok {
				c.literals[spec] = typeName
			}
		}
	}

	return nil
}

// Types returns the active type names, sorted.
func (c *Classifier) Types() []string {
	return slices.Clone(c.active)
}

// Builtin lists every builtin type, sorted by name.
func Builtin() []TypeInfo {
	return describe(builtinTypes)
}

// Known lists the builtin and configured types, sorted by name.
func Known(cfg Config) []TypeInfo {
	return describe(allTypes(cfg))
}

func describe(table map[string][]string) []TypeInfo {
	out := make([]TypeInfo, 0, len(table))
	for name, specs := range table {
		out = append(out, TypeInfo{Name: name, Specs: slices.Clone(specs)})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out
}

// ShouldScan reports whether path belongs to an active type.
//
// Checks run cheapest first: extension, literal file name, then the first
// line of the file against each pattern. Names starting with "." have no
// extension.
func (c *Classifier) ShouldScan(path string) bool {
	typeName, ok := c.match(path)
	if ok {
		c.log.Trace().Str("path", path).Str("type", typeName).Msg("match")
	}

	return ok
}

func (c *Classifier) match(path string) (string, bool) {
	name := filepath.Base(path)

	if ext, ok := extension(name); ok {
		if typeName, hit := c.exts[ext]; hit {
			return typeName, true
		}
	}

	if typeName, hit := c.literals[name]; hit {
		return typeName, true
	}

	if len(c.lineRules) == 0 {
		return "", false
	}

	line, err := readFirstLine(path)
	if err != nil {
		c.log.Debug().Err(err).Str("path", path).Msg("read first line")

		return "", false
	}

	for _, rule := range c.lineRules {
		if rule.re.Match(line) {
			return rule.typeName, true
		}
	}

	return "", false
}

// Consider counts path and forwards it to the output if it should be scanned.
func (c *Classifier) Consider(path string) {
	c.considered.Add(1)

	if !c.ShouldScan(path) {
		return
	}

	c.accepted.Add(1)

	if c.output != nil {
		c.output(path)
	}
}

// Stats returns the Consider counters.
func (c *Classifier) Stats() Stats {
	return Stats{
		Considered: c.considered.Load(),
		Accepted:   c.accepted.Load(),
	}
}

// extension returns name's suffix starting at the last ".".
func extension(name string) (string, bool) {
	if name == "" || name[0] == '.' {
		return "", false
	}

	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return "", false
	}

	return name[i:], true
}

func readFirstLine(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, firstLineMax)

	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}

	buf = buf[:n]

	if i := bytes.IndexByte(buf, '\n'); i >= 0 {
		buf = buf[:i]
	}

	return bytes.TrimSuffix(buf, []byte{'\r'}), nil
}
