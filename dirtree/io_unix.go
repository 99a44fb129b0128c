//go:build darwin || freebsd || openbsd || netbsd || dragonfly

// io_unix.go implements the internal I/O backend contract (see io_contract.go)
// for "mainstream" non-Linux Unix platforms:
//   - macOS (darwin, including iOS)
//   - the BSD family (FreeBSD/OpenBSD/NetBSD/DragonFly)
//
// Opens stay openat-relative; enumeration goes through (*os.File).ReadDir,
// which already resolves unknown d_type values with lstat.
//
// Unlike Linux, this backend therefore never reports hintUnknown: a symlink
// always arrives as hintSymlink and is skipped, and statAt is only reached
// through test hooks. Symlinked directories below a start path are never
// followed here, so symlink cycles cannot occur on these platforms.
package dirtree

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"golang.org/x/sys/unix"
)

const readDirBatchSize = 1024

const openDirFlags = unix.O_RDONLY | unix.O_DIRECTORY | unix.O_CLOEXEC | unix.O_NOCTTY

// dirStream wraps a directory for enumeration.
//
// We store both:
//   - fd: used for openat/fstatat and for sharing with children
//   - f:  *os.File wrapper used for (*os.File).ReadDir; it owns fd
//
// Part of the internal I/O backend contract (see io_contract.go).
type dirStream struct {
	fd int
	f  *os.File
}

// openDirAt opens name relative to atFd as a directory. There is no
// O_NOATIME on these platforms.
func openDirAt(atFd int, name string) (dirStream, error) {
	fd, err := openatRetry(atFd, name, openDirFlags)
	if err != nil {
		return dirStream{fd: -1}, err
	}

	return dirStream{fd: fd, f: os.NewFile(uintptr(fd), name)}, nil
}

func (d dirStream) descriptor() int {
	return d.fd
}

func (d dirStream) closeStream() error {
	if d.f == nil {
		return nil
	}

	err := d.f.Close()
	if err != nil {
		return fmt.Errorf("close dir: %w", err)
	}

	return nil
}

// readBatch enumerates up to readDirBatchSize entries.
// buf is unused; ReadDir manages its own buffer.
func (d dirStream) readBatch(_ []byte, fn func(name []byte, hint typeHint)) error {
	entries, err := d.f.ReadDir(readDirBatchSize)
	for _, e := range entries {
		fn([]byte(e.Name()), hintFromFileMode(e.Type()))
	}

	if err == nil {
		return nil
	}

	if errors.Is(err, io.EOF) {
		return io.EOF
	}

	return fmt.Errorf("readdir: %w", err)
}

func hintFromFileMode(typ fs.FileMode) typeHint {
	switch {
	case typ&fs.ModeSymlink != 0:
		return hintSymlink
	case typ.IsDir():
		return hintDir
	case typ&fs.ModeType == 0:
		return hintReg
	default:
		return hintOther
	}
}

// statAt resolves name relative to the open directory, following symlinks.
func (d dirStream) statAt(name []byte) (typeHint, error) {
	var st unix.Stat_t

	err := fstatatRetry(d.fd, string(name), &st, 0)
	if err != nil {
		return hintUnknown, err
	}

	return hintFromMode(uint32(st.Mode)), nil
}

func (d dirStream) identity() (dirID, error) {
	return identityOf(d.fd)
}
