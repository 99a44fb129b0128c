package dirtree

// typeHint is what the OS tells us about an entry's type, either cheaply from
// the directory listing or from an attribute query.
type typeHint uint8

const (
	// hintUnknown means the listing did not say (DT_UNKNOWN).
	hintUnknown typeHint = iota
	hintDir
	hintReg
	hintSymlink
	// hintOther covers fifos, sockets, devices and anything else.
	hintOther
)

// entryKind is the walker's decision for one directory entry.
type entryKind uint8

const (
	entrySkip entryKind = iota
	entryDir
	entryFile
)

func (k entryKind) String() string {
	switch k {
	case entryDir:
		return "dir"
	case entryFile:
		return "file"
	default:
		return "skip"
	}
}

// classifyEntry decides what to do with an entry.
//
// The listing hint is used when it is conclusive. Only an unknown hint pays
// for stat, which resolves relative to the open directory and follows
// symlinks; a symlink reported by the listing itself is skipped. Anything that
// is still neither a directory nor a regular file is skipped. A stat failure
// (racy delete, broken symlink) skips the entry and returns the error so the
// caller can report it.
func classifyEntry(hint typeHint, stat func() (typeHint, error)) (entryKind, error) {
	switch hint {
	case hintDir:
		return entryDir, nil
	case hintReg:
		return entryFile, nil
	case hintUnknown:
	default:
		return entrySkip, nil
	}

	resolved, err := stat()
	if err != nil {
		return entrySkip, err
	}

	switch resolved {
	case hintDir:
		return entryDir, nil
	case hintReg:
		return entryFile, nil
	default:
		return entrySkip, nil
	}
}
