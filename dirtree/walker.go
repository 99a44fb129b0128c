package dirtree

// walker.go contains the per-directory visit shared by both scheduling modes,
// and the sequential (default) main loop.
//
// Descriptor lifetime for one visited directory:
//
//	┌─────────────────────────────────────────────────────────────────────────┐
//	│ visit(n)                                                                │
//	│   open n.name relative to n.at   ← stream fd (owned by this visit)      │
//	│   release n.at                   ← n no longer needs its parent's fd    │
//	│   for each entry:                                                       │
//	│     file → sink                                                         │
//	│     dir  → first one: shared = Acquire(stream fd)  (one dup)            │
//	│            child.at = Clone(shared)                                     │
//	│   release shared                 ← children now hold all references     │
//	│   close stream fd                ← every exit path                      │
//	└─────────────────────────────────────────────────────────────────────────┘

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// walker owns per-call state shared by the sequential and parallel loops.
type walker struct {
	sink Sink
	// serialize guards sink calls with sinkMu (parallel mode only).
	serialize bool
	sinkMu    sync.Mutex

	handles *HandleTable
	log     zerolog.Logger
	errs    *errNotifier
	bufSize int
	hooks   *dirHooks

	files   atomic.Uint64
	dirs    atomic.Uint64
	skipped atomic.Uint64
}

// pushFunc enqueues a discovered child. It returns false if the child was not
// accepted (walk cancelled); the caller then still owns the child's handle.
type pushFunc func(child *node) bool

// walkSequential is the single-threaded main loop: one queue, strict FIFO.
func (w *walker) walkSequential(ctx context.Context, roots []*node) {
	queue := newNodeQueue(max(len(roots), 64))
	for _, r := range roots {
		queue.push(r)
	}

	buf := make([]byte, w.bufSize)

	push := func(child *node) bool {
		queue.push(child)

		return true
	}

	for queue.len() > 0 {
		if ctx.Err() != nil {
			// Drop queued work without further I/O; this releases every
			// shared descriptor still referenced by a pending node.
			queue.drain(w.releaseNode)

			return
		}

		w.visit(ctx, queue.pop(), buf, push)
	}
}

// visit opens one directory, delivers its files and pushes its subdirectories.
func (w *walker) visit(ctx context.Context, n *node, buf []byte, push pushFunc) {
	dirPath := n.FullPath()

	dir, err := openDirAt(n.atFd(), n.name)

	// n.at only resolves n itself; children resolve against their own handle.
	w.releaseNode(n)

	if err != nil {
		w.ioErr(dirPath, opOpen, err)

		return
	}

	defer func() {
		closeErr := dir.closeStream()
		if closeErr != nil {
			w.log.Debug().Err(closeErr).Str("path", dirPath).Msg("close directory")
		}
	}()

	id, idErr := dir.identity()
	if idErr == nil {
		if n.hasAncestor(id) {
			w.ioErr(dirPath, opOpen, ErrSymlinkCycle)

			return
		}

		n.id, n.hasID = id, true
	}

	w.dirs.Add(1)

	// shared is the single dup of the stream fd handed to every child.
	// It stays invalid for directories without subdirectories.
	var shared Handle

	defer func() {
		if shared.tracked() {
			w.releaseHandle(shared)
		}
	}()

	onEntry := func(name []byte, hint typeHint) {
		if isDotEntry(name) {
			return
		}

		hint = w.hooks.listingHint(name, hint)

		kind, statErr := classifyEntry(hint, func() (typeHint, error) {
			return dir.statAt(name)
		})

		switch kind {
		case entryFile:
			w.emit(joinPath(dirPath, string(name)))

		case entryDir:
			childName := string(name)

			if !shared.Valid() {
				h, dupErr := w.handles.Acquire(dir.descriptor())
				if dupErr != nil {
					// Same as failing to open the child itself.
					w.ioErr(joinPath(dirPath, childName), opOpen, dupErr)

					return
				}

				shared = h
			}

			child := newNode(n, w.handles.Clone(shared), childName)
			if !push(child) {
				w.releaseNode(child)
			}

		default:
			w.skipped.Add(1)

			if statErr != nil {
				w.ioErr(joinPath(dirPath, string(name)), opStat, statErr)

				return
			}

			w.log.Debug().
				Str("path", joinPath(dirPath, string(name))).
				Msg("skip: neither directory nor regular file")
		}
	}

	for {
		if ctx.Err() != nil {
			return
		}

		err := dir.readBatch(buf, onEntry)
		if err == nil {
			continue
		}

		if !errors.Is(err, io.EOF) {
			// Entries delivered before the failure stand.
			w.ioErr(dirPath, opReaddir, err)
		}

		return
	}
}

func (w *walker) emit(path string) {
	w.files.Add(1)

	if !w.serialize {
		w.sink.Consider(path)

		return
	}

	w.sinkMu.Lock()
	defer w.sinkMu.Unlock()

	w.sink.Consider(path)
}

// releaseNode drops n's reference to its resolution handle. Idempotent.
func (w *walker) releaseNode(n *node) {
	h := n.at
	n.at = Handle{}

	if h.tracked() {
		w.releaseHandle(h)
	}
}

func (w *walker) releaseHandle(h Handle) {
	err := w.handles.Release(h)
	if err != nil {
		w.log.Error().Err(err).Int("fd", h.Fd()).Msg("release shared descriptor")
	}
}

func (w *walker) ioErr(path, op string, err error) {
	w.log.Warn().Err(err).Str("op", op).Str("path", path).Msg("skipping")

	w.errs.report(&IOError{Path: path, Op: op, Err: err})
}

func (w *walker) result() *Result {
	w.errs.mu.Lock()
	count := w.errs.count
	w.errs.mu.Unlock()

	return &Result{
		Files:   w.files.Load(),
		Dirs:    w.dirs.Load(),
		Skipped: w.skipped.Load(),
		Errors:  count,
		Handles: w.handles.Stats(),
	}
}
