package dirtree

import "strings"

// ============================================================================
// Path helpers
// ============================================================================

const pathSep = '/'

// joinPath joins dir and name with a single separator.
//
// We must not blindly append a separator: a start path like "/" or "root/"
// already ends with one.
func joinPath(dir, name string) string {
	if dir == "" {
		return name
	}

	if dir[len(dir)-1] == pathSep {
		return dir + name
	}

	return dir + string(pathSep) + name
}

// appendSep writes a separator unless b is empty or already ends with one.
// It mirrors joinPath so FullPath and entry paths agree.
func appendSep(b *strings.Builder) {
	s := b.String()
	if len(s) == 0 || s[len(s)-1] == pathSep {
		return
	}

	b.WriteByte(pathSep)
}

// hasNUL reports whether s contains a NUL byte, which no syscall path may.
func hasNUL(s string) bool {
	return strings.IndexByte(s, 0) >= 0
}

// isDotEntry reports whether name is "." or "..".
func isDotEntry(name []byte) bool {
	if len(name) == 1 && name[0] == '.' {
		return true
	}

	return len(name) == 2 && name[0] == '.' && name[1] == '.'
}
