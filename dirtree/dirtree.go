// Package dirtree walks directory trees for a code search tool.
//
// Given a set of start paths, [Walk] discovers every reachable regular file
// and hands its path to a [Sink]. The walker never looks at file contents or
// names beyond telling directories from regular files; deciding which files
// are interesting belongs to the sink.
//
// # Traversal
//
// Directories are visited breadth-first from a FIFO queue. Each pending
// directory is opened relative to a descriptor of its parent (openat), never
// by re-resolving its full path. All subdirectories of one parent share a
// single duplicated descriptor, reference counted by a [HandleTable], so
// descriptor usage stays around one per directory level regardless of how
// wide the tree is.
//
// Start paths are resolved relative to the process working directory and are
// walked independently: two start paths naming the same directory deliver its
// files twice.
//
// # File types
//
// Only regular files are delivered. The cheap type hint from the directory
// listing is trusted when present. Symlinks reported by the listing are
// skipped; when the listing cannot tell (DT_UNKNOWN) the entry is stat'ed and
// symlinks are followed. Devices, sockets, fifos and broken symlinks are
// skipped.
//
// # Cycles
//
// A directory that turns out to be one of its own ancestors (reached through
// a followed symlink) is abandoned with [ErrSymlinkCycle].
//
// # Errors
//
// Failures are per directory or per entry and never abort the walk: a start
// path that is a plain file, an unreadable subdirectory, or an entry that
// vanished mid-walk is reported as an [IOError] and the rest of the tree is
// still visited. Failed opens are not retried.
//
// # Ordering
//
// Entry order within one directory is whatever the platform returns and must
// not be relied upon. Across directories, every directory at depth k is
// visited before any directory at depth k+1 discovered from it (sequential
// mode only; see [WithWorkers]).
package dirtree

import (
	"context"
)

// Sink consumes discovered regular files.
//
// Consider is called once per discovered file, in discovery order. Calls are
// never concurrent, even with [WithWorkers].
type Sink interface {
	Consider(path string)
}

// SinkFunc adapts a function to a [Sink].
type SinkFunc func(path string)

// Consider calls f(path).
func (f SinkFunc) Consider(path string) {
	f(path)
}

// Result summarizes a walk.
type Result struct {
	// Files is the number of regular files delivered to the sink.
	Files uint64
	// Dirs is the number of directories opened and enumerated.
	Dirs uint64
	// Skipped is the number of entries that were neither directories nor
	// regular files (after the stat fallback), or could not be classified.
	Skipped uint64
	// Errors is the number of IOErrors reported, including any discarded by
	// WithOnError.
	Errors int
	// Handles is a snapshot of the descriptor table after the walk. It is
	// cumulative if the table is shared across walks via WithHandleTable.
	Handles HandleStats
}

// Walk visits every directory reachable from paths and delivers each regular
// file to sink.
//
// Returns a summary and the collected errors (all [IOError]s, filtered by
// [WithOnError] if set). The walk always runs to completion unless ctx is
// cancelled.
//
// # Cancellation
//
// ctx is checked before each directory is dequeued and between directory
// read batches. On cancellation, queued directories are dropped without
// further I/O and every descriptor they held is released. Cancellation itself
// is not added to the error slice; check ctx.Err().
func Walk(ctx context.Context, paths []string, sink Sink, opts ...Option) (*Result, []error) {
	cfg := applyOptions(opts)

	if sink == nil {
		sink = SinkFunc(func(string) {})
	}

	w := &walker{
		sink:      sink,
		serialize: cfg.Workers > 1,
		handles:   cfg.Handles,
		log:       *cfg.Logger,
		errs:      newErrNotifier(cfg.OnError),
		bufSize:   cfg.ReadBufSize,
		hooks:     cfg.hooks,
	}

	if ctx.Err() != nil {
		return w.result(), nil
	}

	roots := make([]*node, 0, len(paths))

	for _, p := range paths {
		if hasNUL(p) {
			w.ioErr(p, opOpen, errContainsNUL)

			continue
		}

		// Start paths resolve against the working directory.
		roots = append(roots, newNode(nil, CWD(), p))
	}

	if cfg.Workers > 1 {
		w.walkParallel(ctx, roots, cfg.Workers)
	} else {
		w.walkSequential(ctx, roots)
	}

	return w.result(), w.errs.collected()
}
