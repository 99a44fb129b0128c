package dirtree

import (
	"errors"
	"fmt"
	"sync"
)

// IOError is returned when a file system operation fails for one directory or
// entry. It never aborts the walk.
type IOError struct {
	// Path is the full path of the directory or entry, as it would be
	// delivered to the sink.
	Path string
	// Op is the operation that failed: "open", "readdir", or "stat".
	// A subdirectory that could not be queued because the parent descriptor
	// could not be duplicated is reported as "open".
	Op string
	// Err is the underlying error.
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// ErrSymlinkCycle is reported (wrapped in an [IOError] with Op "open") when a
// directory resolves to one of its own ancestors through a symlink.
var ErrSymlinkCycle = errors.New("directory cycle through symlink")

var (
	errContainsNUL   = errors.New("contains NUL byte")
	errBadDescriptor = errors.New("bad descriptor")
)

// Operation names used in [IOError.Op].
const (
	opOpen    = "open"
	opReaddir = "readdir"
	opStat    = "stat"
)

// ============================================================================
// Error notification
// ============================================================================

// errNotifier tracks error counts, calls the OnError callback, and collects
// errors the callback (or its absence) wants kept.
// Safe for concurrent use.
type errNotifier struct {
	mu      sync.Mutex
	count   int
	errs    []error
	onError func(err error, count int) bool
}

func newErrNotifier(onError func(err error, count int) bool) *errNotifier {
	return &errNotifier{onError: onError}
}

// report counts err and collects it unless OnError says to discard it.
// OnError calls are serialized.
func (n *errNotifier) report(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.count++

	if n.onError != nil && !n.onError(err, n.count) {
		return
	}

	n.errs = append(n.errs, err)
}

func (n *errNotifier) collected() []error {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.errs
}
