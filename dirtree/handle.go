package dirtree

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// ============================================================================
// Shared directory handles
// ============================================================================
//
// Every pending subdirectory has to be opened relative to its parent. Opening
// a fresh descriptor per pending entry would exhaust the descriptor table on
// wide trees, so all subdirectories of one parent share a single dup of the
// parent's descriptor:
//
//	parent stream fd ──dup──► shared fd (count = K)
//	                             ├── child 1  ─┐
//	                             ├── child 2   ├── each releases after its own open
//	                             └── child K  ─┘
//
// The shared fd is closed exactly once, when the last child releases it. That
// bounds descriptor usage to roughly one per directory level.
//
// Descriptors are never released by finalizers. The walker releases a node's
// handle as soon as the node has been opened (or abandoned), which makes the
// close deterministic.

// ErrHandleReleased is returned when releasing a handle whose descriptor is no
// longer tracked (double release, or a handle from another table).
var ErrHandleReleased = errors.New("handle already released")

// Handle is a reference to a directory descriptor tracked by a [HandleTable],
// or the sentinel meaning "resolve relative to the current working directory".
//
// The zero value is not a valid handle.
type Handle struct {
	fd int
}

// CWD returns the sentinel handle. It is never counted and never closed.
func CWD() Handle {
	return Handle{fd: atFDCWD}
}

// Fd returns the raw descriptor used for relative opens.
func (h Handle) Fd() int {
	return h.fd
}

// Valid reports whether h is the sentinel or a positive descriptor.
func (h Handle) Valid() bool {
	return h.fd == atFDCWD || h.fd > 0
}

// IsCWD reports whether h is the sentinel handle.
func (h Handle) IsCWD() bool {
	return h.fd == atFDCWD
}

// tracked reports whether h refers to a counted descriptor.
func (h Handle) tracked() bool {
	return h.fd > 0 && h.fd != atFDCWD
}

// HandleStats is a snapshot of a [HandleTable]'s counters.
type HandleStats struct {
	// Dups is the number of descriptors duplicated by Acquire.
	Dups uint64
	// Closes is the number of descriptors closed by Release.
	Closes uint64
	// Reacquired counts Acquire calls for a raw descriptor that was already
	// tracked. This is a caller bug; it is logged and counted, never relied on.
	Reacquired uint64
	// Live is the number of descriptors currently tracked.
	Live int
}

// HandleTable maps duplicated descriptors to their live reference counts.
//
// A table is safe for concurrent use. The walker creates one per [Walk] call
// unless one is supplied with [WithHandleTable].
type HandleTable struct {
	mu    sync.Mutex
	refs  map[int]int
	stats HandleStats
	log   zerolog.Logger

	dupFd   func(fd int) (int, error)
	closeFd func(fd int) error
}

// NewHandleTable returns an empty table that uses log for anomaly reports.
func NewHandleTable(log zerolog.Logger) *HandleTable {
	return newHandleTable(log, dupFd, closeFd)
}

func newHandleTable(log zerolog.Logger, dup func(int) (int, error), closeFn func(int) error) *HandleTable {
	return &HandleTable{
		refs:    make(map[int]int),
		log:     log,
		dupFd:   dup,
		closeFd: closeFn,
	}
}

// Acquire returns a counted handle for raw.
//
// The sentinel is returned as-is. An untracked raw descriptor is duplicated
// and the duplicate is tracked with count 1; the caller keeps owning raw. If
// raw is already tracked its count is incremented instead, which means the
// same descriptor was acquired twice independently. That path is reported but
// still honoured so the counts stay balanced.
func (t *HandleTable) Acquire(raw int) (Handle, error) {
	if raw == atFDCWD {
		return CWD(), nil
	}

	if raw < 0 {
		return Handle{}, fmt.Errorf("acquire fd %d: %w", raw, errBadDescriptor)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if n, ok := t.refs[raw]; ok {
		t.refs[raw] = n + 1
		t.stats.Reacquired++

		t.log.Error().
			Int("fd", raw).
			Int("refs", n+1).
			Msg("descriptor acquired twice; share handles with Clone instead")

		return Handle{fd: raw}, nil
	}

	dup, err := t.dupFd(raw)
	if err != nil {
		return Handle{}, fmt.Errorf("dup fd %d: %w", raw, err)
	}

	t.refs[dup] = 1
	t.stats.Dups++

	return Handle{fd: dup}, nil
}

// Clone returns another reference to h, incrementing its count.
// Cloning the sentinel or an invalid handle returns it unchanged.
func (t *HandleTable) Clone(h Handle) Handle {
	if !h.tracked() {
		return h
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	n, ok := t.refs[h.fd]
	if !ok {
		// Cloning a released handle would resurrect a closed descriptor.
		t.log.Error().Int("fd", h.fd).Msg("clone of released handle")

		return Handle{}
	}

	t.refs[h.fd] = n + 1

	return h
}

// Release drops one reference to h. The descriptor is closed when the count
// reaches zero. The sentinel and the zero Handle are ignored.
func (t *HandleTable) Release(h Handle) error {
	if !h.tracked() {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	n, ok := t.refs[h.fd]
	if !ok {
		return fmt.Errorf("release fd %d: %w", h.fd, ErrHandleReleased)
	}

	if n > 1 {
		t.refs[h.fd] = n - 1

		return nil
	}

	delete(t.refs, h.fd)
	t.stats.Closes++

	// We intentionally do not retry close(2) on EINTR.
	err := t.closeFd(h.fd)
	if err != nil {
		return fmt.Errorf("close fd %d: %w", h.fd, err)
	}

	return nil
}

// Refs returns the live count for h (0 if untracked or sentinel).
func (t *HandleTable) Refs(h Handle) int {
	if !h.tracked() {
		return 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	return t.refs[h.fd]
}

// Live returns the number of descriptors currently tracked.
func (t *HandleTable) Live() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.refs)
}

// Stats returns a snapshot of the table's counters.
func (t *HandleTable) Stats() HandleStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.stats
	st.Live = len(t.refs)

	return st
}
