//go:build linux

package dirtree

// io_linux.go implements the internal I/O backend contract (see io_contract.go)
// for Linux.
//
// Directory enumeration uses getdents64 (via unix.ReadDirent) and parses raw
// dirent64 records in place, so the d_type hint comes for free. Opens are
// openat(2) relative to a shared parent descriptor.

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/sys/unix"
)

// linux_dirent64 offsets (from linux/dirent.h):
//
//	struct linux_dirent64 {
//	    ino64_t        d_ino;    // 8 bytes  (offset 0)
//	    off64_t        d_off;    // 8 bytes  (offset 8)
//	    unsigned short d_reclen; // 2 bytes  (offset 16)
//	    unsigned char  d_type;   // 1 byte   (offset 18)
//	    char           d_name[]; // variable (offset 19)
//	};
const (
	direntReclenOffset = 16
	direntTypeOffset   = 18
	direntNameOffset   = 19
	direntMinSize      = direntNameOffset
)

const openDirFlags = unix.O_RDONLY | unix.O_DIRECTORY | unix.O_CLOEXEC | unix.O_NOCTTY | unix.O_LARGEFILE

var errInvalidDirent = errors.New("invalid dirent")

// dirStream is an open directory being enumerated.
//
// Part of the internal I/O backend contract (see io_contract.go).
type dirStream struct {
	fd int
}

// openDirAt opens name relative to atFd as a directory.
//
// O_NOATIME is refused with EPERM unless we own the directory, in which case
// we retry without it.
func openDirAt(atFd int, name string) (dirStream, error) {
	fd, err := openatRetry(atFd, name, openDirFlags|unix.O_NOATIME)
	if errors.Is(err, unix.EPERM) {
		fd, err = openatRetry(atFd, name, openDirFlags)
	}

	if err != nil {
		return dirStream{fd: -1}, err
	}

	return dirStream{fd: fd}, nil
}

func (d dirStream) descriptor() int {
	return d.fd
}

func (d dirStream) closeStream() error {
	if d.fd < 0 {
		return nil
	}

	// We intentionally do not retry close(2) on EINTR.
	err := unix.Close(d.fd)
	if err != nil {
		return fmt.Errorf("close dir: %w", err)
	}

	return nil
}

// readBatch reads one getdents64 buffer and reports every record in it.
func (d dirStream) readBatch(buf []byte, fn func(name []byte, hint typeHint)) error {
	var (
		read int
		err  error
	)
	for {
		read, err = unix.ReadDirent(d.fd, buf)
		if errors.Is(err, unix.EINTR) {
			continue
		}

		break
	}

	if err != nil {
		return fmt.Errorf("readdirent: %w", err)
	}

	if read <= 0 {
		return io.EOF
	}

	data := buf[:read]
	for len(data) > 0 {
		if len(data) < direntMinSize {
			return errInvalidDirent
		}

		reclen := int(binary.NativeEndian.Uint16(data[direntReclenOffset:]))
		if reclen < direntMinSize || reclen > len(data) {
			return errInvalidDirent
		}

		entry := data[:reclen]
		data = data[reclen:]

		// Extract filename (ends at first NUL byte).
		name := entry[direntNameOffset:reclen]
		for i, b := range name {
			if b == 0 {
				name = name[:i]

				break
			}
		}

		if len(name) == 0 {
			continue
		}

		fn(name, hintFromDirentType(entry[direntTypeOffset]))
	}

	return nil
}

func hintFromDirentType(t byte) typeHint {
	switch t {
	case unix.DT_DIR:
		return hintDir
	case unix.DT_REG:
		return hintReg
	case unix.DT_LNK:
		return hintSymlink
	case unix.DT_UNKNOWN:
		return hintUnknown
	default:
		return hintOther
	}
}

// statAt resolves name relative to the open directory, following symlinks.
// AT_NO_AUTOMOUNT keeps a type probe from triggering an automount.
func (d dirStream) statAt(name []byte) (typeHint, error) {
	var st unix.Stat_t

	err := fstatatRetry(d.fd, string(name), &st, unix.AT_NO_AUTOMOUNT)
	if err != nil {
		return hintUnknown, err
	}

	return hintFromMode(st.Mode), nil
}

func (d dirStream) identity() (dirID, error) {
	return identityOf(d.fd)
}
