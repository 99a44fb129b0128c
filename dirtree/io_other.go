//go:build !linux && !darwin && !freebsd && !openbsd && !netbsd && !dragonfly

// io_other.go implements the internal I/O backend contract (see io_contract.go)
// for platforms without openat-style relative opens we maintain (windows,
// solaris/illumos, aix, plan9, wasm).
//
// Every open fails, so a walk reports each start path as an open error and
// completes normally.
package dirtree

import "errors"

// atFDCWD mirrors Linux's AT_FDCWD so the sentinel is still distinguishable.
const atFDCWD = -100

var errUnsupportedPlatform = errors.New("relative directory opens not supported on this platform")

type dirStream struct {
	fd int
}

func openDirAt(_ int, _ string) (dirStream, error) {
	return dirStream{fd: -1}, errUnsupportedPlatform
}

func dupFd(_ int) (int, error) {
	return -1, errUnsupportedPlatform
}

func closeFd(_ int) error {
	return errUnsupportedPlatform
}

func (d dirStream) descriptor() int { return d.fd }

func (d dirStream) closeStream() error { return nil }

func (d dirStream) readBatch(_ []byte, _ func(name []byte, hint typeHint)) error {
	return errUnsupportedPlatform
}

func (d dirStream) statAt(_ []byte) (typeHint, error) {
	return hintUnknown, errUnsupportedPlatform
}

func (d dirStream) identity() (dirID, error) {
	return dirID{}, errUnsupportedPlatform
}
