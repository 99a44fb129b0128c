package dirtree

// ============================================================================
// Internal I/O backend contract
// ============================================================================
//
// The walker (walker.go, walker_parallel.go) is written against a small set of
// unexported, platform-dependent functions and types. Each supported OS group
// provides them via build-tagged files:
//   - Linux fast path (getdents64):   io_linux.go
//   - Mainstream non-Linux Unix:      io_unix.go
//   - Everything else:                io_other.go
//
// Shared descriptor plumbing for both Unix backends lives in io_fd_unix.go.
//
// This file contains no runtime dispatch. The compile-time assignments below
// document the required surface and make a backend that drifts fail to build.
//
// Semantics expected by the walker:
//
//   - openDirAt opens name relative to atFd (which may be atFDCWD) as a
//     directory. Access-time updates are suppressed where the platform allows
//     it; when it refuses, the backend silently falls back to a plain open.
//
//   - readBatch calls fn once per entry read in this batch and returns io.EOF
//     once the stream is exhausted. name is ephemeral (it may point into buf)
//     and must be copied if retained. Backends may pass "." and "..";
//     the walker filters them.
//
//   - statAt resolves name relative to the open stream and follows symlinks.
//     It is only used when the listing hint is hintUnknown, which only the
//     Linux backend produces (io_unix.go resolves types with lstat itself).
//
//   - identity returns the (device, inode) of the open directory.

// Function signatures required by the walker.
var (
	_ func(atFd int, name string) (dirStream, error) = openDirAt
	_ func(fd int) (int, error)                       = dupFd
	_ func(fd int) error                              = closeFd
)

// Method set required by the walker.
// This interface is only used for compile-time checking.
type ioDirStream interface {
	descriptor() int
	readBatch(buf []byte, fn func(name []byte, hint typeHint)) error
	statAt(name []byte) (typeHint, error)
	identity() (dirID, error)
	closeStream() error
}

var _ ioDirStream = dirStream{}
