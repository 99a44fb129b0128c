//go:build linux || darwin || freebsd || openbsd || netbsd || dragonfly

package dirtree

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

const atFDCWD = unix.AT_FDCWD

// dupFd duplicates fd with close-on-exec set. The duplicate is never 0, so it
// always counts as a valid Handle even when stdin is closed.
func dupFd(fd int) (int, error) {
	for {
		dup, err := unix.FcntlInt(uintptr(fd), unix.F_DUPFD_CLOEXEC, 1)
		if errors.Is(err, unix.EINTR) {
			continue
		}

		if err != nil {
			return -1, fmt.Errorf("fcntl: %w", err)
		}

		return dup, nil
	}
}

func closeFd(fd int) error {
	return unix.Close(fd)
}

// openatRetry opens name relative to atFd, retrying on EINTR without an upper
// bound, matching Go's standard library.
func openatRetry(atFd int, name string, flags int) (int, error) {
	for {
		fd, err := unix.Openat(atFd, name, flags, 0)
		if errors.Is(err, unix.EINTR) {
			continue
		}

		return fd, err
	}
}

func fstatatRetry(dirfd int, name string, st *unix.Stat_t, flags int) error {
	for {
		err := unix.Fstatat(dirfd, name, st, flags)
		if errors.Is(err, unix.EINTR) {
			continue
		}

		if err != nil {
			return fmt.Errorf("fstatat: %w", err)
		}

		return nil
	}
}

func identityOf(fd int) (dirID, error) {
	var st unix.Stat_t

	err := unix.Fstat(fd, &st)
	if err != nil {
		return dirID{}, fmt.Errorf("fstat: %w", err)
	}

	//nolint:gosec,unconvert // Dev/Ino widths differ per platform.
	return dirID{dev: uint64(st.Dev), ino: uint64(st.Ino)}, nil
}

func hintFromMode(mode uint32) typeHint {
	switch mode & unix.S_IFMT {
	case unix.S_IFDIR:
		return hintDir
	case unix.S_IFREG:
		return hintReg
	case unix.S_IFLNK:
		return hintSymlink
	default:
		return hintOther
	}
}
