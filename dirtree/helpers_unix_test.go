//go:build linux || darwin || freebsd || openbsd || netbsd || dragonfly

package dirtree_test

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/pombredanne/ucg/dirtree"
)

const openOp = "open"

// testLogger routes walker diagnostics to the test log.
func testLogger(t *testing.T) zerolog.Logger {
	t.Helper()

	return zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.WarnLevel)
}

func writeFile(t *testing.T, root, rel string, data []byte) {
	t.Helper()

	fullPath := filepath.Join(root, rel)
	parent := filepath.Dir(fullPath)

	require.NoError(t, os.MkdirAll(parent, 0o750), "mkdir %s", parent)
	require.NoError(t, os.WriteFile(fullPath, data, 0o600), "write %s", fullPath)
}

// writeTree creates every rel path; names ending in "/" are directories.
func writeTree(t *testing.T, root string, rels ...string) {
	t.Helper()

	sort.Strings(rels)

	for _, rel := range rels {
		if strings.HasSuffix(rel, "/") {
			require.NoError(t, os.MkdirAll(filepath.Join(root, rel), 0o750))

			continue
		}

		writeFile(t, root, rel, []byte("x"))
	}
}

func writeSymlink(t *testing.T, root, target, linkRel string) {
	t.Helper()

	link := filepath.Join(root, linkRel)
	require.NoError(t, os.MkdirAll(filepath.Dir(link), 0o750))
	require.NoError(t, os.Symlink(target, link), "symlink %s -> %s", link, target)
}

func makeUnreadable(t *testing.T, path string) {
	t.Helper()

	require.NoError(t, os.Chmod(path, 0), "chmod")

	// Let t.TempDir cleanup remove it.
	t.Cleanup(func() { _ = os.Chmod(path, 0o750) })
}

func skipIfRoot(t *testing.T) {
	t.Helper()

	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
}

// recordingSink records delivered paths and fails on concurrent calls.
type recordingSink struct {
	mu       sync.Mutex
	paths    []string
	inFlight atomic.Int32
	overlap  atomic.Bool
}

func (s *recordingSink) Consider(path string) {
	if s.inFlight.Add(1) > 1 {
		s.overlap.Store(true)
	}
	defer s.inFlight.Add(-1)

	s.mu.Lock()
	s.paths = append(s.paths, path)
	s.mu.Unlock()
}

func (s *recordingSink) got() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.paths...)
}

// prefixed joins root with each rel using "/" exactly like the walker does.
func prefixed(root string, rels ...string) []string {
	out := make([]string, 0, len(rels))
	for _, rel := range rels {
		out = append(out, root+"/"+rel)
	}

	return out
}

func requireIOError(t *testing.T, err error, wantPath, wantOp string) *dirtree.IOError {
	t.Helper()

	var ioErr *dirtree.IOError
	require.True(t, errors.As(err, &ioErr), "expected IOError, got %T: %v", err, err)
	require.Equal(t, wantPath, ioErr.Path)
	require.Equal(t, wantOp, ioErr.Op)

	return ioErr
}

// depthBelow returns the number of separators in path after root.
func depthBelow(root, path string) int {
	return strings.Count(strings.TrimPrefix(path, root+"/"), "/")
}
