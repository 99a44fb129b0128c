//go:build linux || darwin || freebsd || openbsd || netbsd || dragonfly

package dirtree_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pombredanne/ucg/dirtree"
)

func Test_Walk_Delivers_Shallow_Files_First_When_Tree_Is_Nested(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, "a.txt", "sub/b.txt")

	sink := &recordingSink{}
	res, errs := dirtree.Walk(t.Context(), []string{root}, sink)

	require.Empty(t, errs)
	assert.Equal(t, prefixed(root, "a.txt", "sub/b.txt"), sink.got())
	assert.Equal(t, uint64(2), res.Files)
	assert.Equal(t, uint64(2), res.Dirs)
}

func Test_Walk_Visits_Directories_Breadth_First_When_Tree_Is_Deep(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root,
		"top1.txt", "top2.txt",
		"a/a1.txt", "a/deep/d1.txt", "a/deep/deeper/x.txt",
		"b/b1.txt", "b/b2.txt", "b/deep/d2.txt",
		"c/deep/deeper/deepest/y.txt",
	)

	sink := &recordingSink{}
	_, errs := dirtree.Walk(t.Context(), []string{root}, sink)
	require.Empty(t, errs)

	got := sink.got()
	require.Len(t, got, 9)

	for i := 1; i < len(got); i++ {
		prev, cur := depthBelow(root, got[i-1]), depthBelow(root, got[i])
		assert.LessOrEqual(t, prev, cur, "%s delivered before %s", got[i-1], got[i])
	}
}

func Test_Walk_Delivers_Every_File_Exactly_Once_When_Tree_Is_Wide(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	var want []string

	for d := range 20 {
		for f := range 15 {
			rel := fmt.Sprintf("d%02d/s%d/f%02d.txt", d, f%3, f)
			writeFile(t, root, rel, []byte("x"))
			want = append(want, rel)
		}
	}

	sink := &recordingSink{}
	res, errs := dirtree.Walk(t.Context(), []string{root}, sink)
	require.Empty(t, errs)

	assert.ElementsMatch(t, prefixed(root, want...), sink.got())
	assert.Equal(t, uint64(len(want)), res.Files)
	// root + 20 dirs + 20*3 subdirs.
	assert.Equal(t, uint64(1+20+60), res.Dirs)
}

func Test_Walk_Reports_Open_Error_When_Start_Path_Is_File(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, "plain.txt", "other/ok.txt")

	filePath := filepath.Join(root, "plain.txt")
	otherPath := filepath.Join(root, "other")

	sink := &recordingSink{}
	res, errs := dirtree.Walk(t.Context(), []string{filePath, otherPath}, sink)

	require.Len(t, errs, 1)
	ioErr := requireIOError(t, errs[0], filePath, openOp)
	assert.ErrorIs(t, ioErr, syscall.ENOTDIR)

	assert.Equal(t, []string{otherPath + "/ok.txt"}, sink.got())
	assert.Equal(t, uint64(1), res.Dirs)
	assert.Equal(t, 1, res.Errors)
}

func Test_Walk_Reports_Open_Error_When_Start_Path_Missing(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "nope")

	sink := &recordingSink{}
	_, errs := dirtree.Walk(t.Context(), []string{missing}, sink)

	require.Len(t, errs, 1)
	ioErr := requireIOError(t, errs[0], missing, openOp)
	assert.ErrorIs(t, ioErr, os.ErrNotExist)
	assert.Empty(t, sink.got())
}

func Test_Walk_Abandons_Branch_When_Subdirectory_Unreadable(t *testing.T) {
	t.Parallel()
	skipIfRoot(t)

	root := t.TempDir()
	writeTree(t, root, "a.txt", "locked/secret.txt", "open/b.txt", "open/deeper/c.txt", "z.txt")
	makeUnreadable(t, filepath.Join(root, "locked"))

	sink := &recordingSink{}
	_, errs := dirtree.Walk(t.Context(), []string{root}, sink)

	require.Len(t, errs, 1)
	ioErr := requireIOError(t, errs[0], root+"/locked", openOp)
	assert.ErrorIs(t, ioErr, os.ErrPermission)

	assert.ElementsMatch(t, prefixed(root, "a.txt", "z.txt", "open/b.txt", "open/deeper/c.txt"), sink.got())
}

func Test_Walk_Walks_Each_Root_When_Start_Paths_Repeat(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, "a.txt", "sub/b.txt")

	sink := &recordingSink{}
	res, errs := dirtree.Walk(t.Context(), []string{root, root}, sink)
	require.Empty(t, errs)

	want := prefixed(root, "a.txt", "sub/b.txt")
	assert.ElementsMatch(t, append(append([]string(nil), want...), want...), sink.got())
	assert.Equal(t, uint64(4), res.Files)
	assert.Equal(t, uint64(4), res.Dirs)
}

func Test_Walk_Keeps_Start_Path_Order_When_Roots_Differ(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	writeTree(t, base, "r2/two.txt", "r1/one.txt", "r3/three.txt")

	roots := []string{filepath.Join(base, "r3"), filepath.Join(base, "r1"), filepath.Join(base, "r2")}

	sink := &recordingSink{}
	_, errs := dirtree.Walk(t.Context(), roots, sink)
	require.Empty(t, errs)

	assert.Equal(t, []string{roots[0] + "/three.txt", roots[1] + "/one.txt", roots[2] + "/two.txt"}, sink.got())
}

func Test_Walk_Duplicates_Descriptor_Once_Per_Parent_When_Subdirectories_Exist(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	// Parents with subdirectories: root (leaf, mid), mid (a, b, c).
	writeTree(t, root, "f.txt", "leaf/f.txt", "mid/a/f.txt", "mid/b/f.txt", "mid/c/")

	table := dirtree.NewHandleTable(testLogger(t))

	res, errs := dirtree.Walk(t.Context(), []string{root}, &recordingSink{}, dirtree.WithHandleTable(table))
	require.Empty(t, errs)

	assert.Equal(t, uint64(6), res.Dirs)
	assert.Equal(t, uint64(2), res.Handles.Dups)
	assert.Equal(t, uint64(2), res.Handles.Closes)
	assert.Zero(t, res.Handles.Reacquired)
	assert.Zero(t, res.Handles.Live)
	assert.Zero(t, table.Live())
}

func Test_Walk_Duplicates_Nothing_When_Tree_Is_Flat(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, "a.txt", "b.txt", "c.txt")

	res, errs := dirtree.Walk(t.Context(), []string{root}, &recordingSink{})
	require.Empty(t, errs)

	assert.Equal(t, uint64(3), res.Files)
	assert.Zero(t, res.Handles.Dups)
}

func Test_Walk_Never_Delivers_Dot_Entries(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, ".hidden", "..double", "sub/.x")

	sink := &recordingSink{}
	_, errs := dirtree.Walk(t.Context(), []string{root}, sink)
	require.Empty(t, errs)

	assert.ElementsMatch(t, prefixed(root, ".hidden", "..double", "sub/.x"), sink.got())

	for _, p := range sink.got() {
		base := filepath.Base(p)
		assert.NotEqual(t, ".", base)
		assert.NotEqual(t, "..", base)
	}
}

func Test_Walk_Skips_Symlinks_And_Special_Files(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, "real.txt", "dir/inner.txt")
	writeSymlink(t, root, filepath.Join(root, "real.txt"), "link.txt")
	writeSymlink(t, root, filepath.Join(root, "dir"), "linkdir")
	writeSymlink(t, root, filepath.Join(root, "missing"), "broken")
	require.NoError(t, syscall.Mkfifo(filepath.Join(root, "pipe"), 0o600))

	sink := &recordingSink{}
	res, errs := dirtree.Walk(t.Context(), []string{root}, sink)
	require.Empty(t, errs)

	assert.ElementsMatch(t, prefixed(root, "real.txt", "dir/inner.txt"), sink.got())
	assert.Equal(t, uint64(4), res.Skipped)
}

func Test_Walk_Follows_Start_Path_When_It_Is_Symlink_To_Directory(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	writeTree(t, base, "target/a.txt")
	writeSymlink(t, base, filepath.Join(base, "target"), "alias")

	alias := filepath.Join(base, "alias")

	sink := &recordingSink{}
	_, errs := dirtree.Walk(t.Context(), []string{alias}, sink)
	require.Empty(t, errs)

	assert.Equal(t, []string{alias + "/a.txt"}, sink.got())
}

func Test_Walk_Avoids_Double_Separator_When_Start_Path_Ends_With_Slash(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, "sub/a.txt")

	sink := &recordingSink{}
	_, errs := dirtree.Walk(t.Context(), []string{root + "/"}, sink)
	require.Empty(t, errs)

	assert.Equal(t, []string{root + "/sub/a.txt"}, sink.got())
}

func Test_Walk_Reports_Error_When_Start_Path_Contains_NUL(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, "a.txt")

	sink := &recordingSink{}
	_, errs := dirtree.Walk(t.Context(), []string{"bad\x00path", root}, sink)

	require.Len(t, errs, 1)
	ioErr := requireIOError(t, errs[0], "bad\x00path", openOp)
	assert.ErrorIs(t, ioErr, dirtree.ErrContainsNUL)
	assert.Equal(t, prefixed(root, "a.txt"), sink.got())
}

func Test_Walk_Resolves_Relative_Start_Paths_Against_Working_Directory(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "proj/a.txt", "proj/sub/b.txt")
	t.Chdir(root)

	sink := &recordingSink{}
	_, errs := dirtree.Walk(t.Context(), []string{"proj", "."}, sink)
	require.Empty(t, errs)

	assert.ElementsMatch(t, []string{
		"proj/a.txt", "proj/sub/b.txt",
		"./proj/a.txt", "./proj/sub/b.txt",
	}, sink.got())
}

func Test_Walk_Discards_Errors_When_OnError_Returns_False(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	missing := []string{filepath.Join(base, "x"), filepath.Join(base, "y"), filepath.Join(base, "z")}

	var counts []int

	res, errs := dirtree.Walk(t.Context(), missing, nil, dirtree.WithOnError(func(_ error, count int) bool {
		counts = append(counts, count)

		return count == 2
	}))

	require.Len(t, errs, 1)
	requireIOError(t, errs[0], missing[1], openOp)
	assert.Equal(t, []int{1, 2, 3}, counts)
	assert.Equal(t, 3, res.Errors)
}

func Test_Walk_Does_Nothing_When_Context_Already_Cancelled(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, "a.txt")

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	sink := &recordingSink{}
	res, errs := dirtree.Walk(ctx, []string{root}, sink)

	assert.Empty(t, errs)
	assert.Empty(t, sink.got())
	assert.Zero(t, res.Dirs)
}

func Test_Walk_Releases_All_Descriptors_When_Cancelled_Mid_Walk(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	for d := range 10 {
		writeTree(t, root, fmt.Sprintf("d%d/a.txt", d), fmt.Sprintf("d%d/s1/b.txt", d), fmt.Sprintf("d%d/s2/c.txt", d))
	}

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	table := dirtree.NewHandleTable(testLogger(t))

	delivered := 0
	sink := dirtree.SinkFunc(func(string) {
		delivered++
		if delivered == 3 {
			cancel()
		}
	})

	res, errs := dirtree.Walk(ctx, []string{root}, sink, dirtree.WithHandleTable(table))

	assert.Empty(t, errs)
	assert.Less(t, res.Files, uint64(30))
	assert.Zero(t, table.Live(), "queued nodes must release their shared descriptors")
	assert.Equal(t, res.Handles.Dups, res.Handles.Closes)
}

func Test_Walk_Reports_Open_Error_Per_Subdirectory_When_Dup_Fails(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, "a.txt", "s1/x.txt", "s2/")

	table := dirtree.NewHandleTableWithOps(
		func(int) (int, error) { return -1, syscall.EMFILE },
		func(int) error { return nil },
	)

	sink := &recordingSink{}
	res, errs := dirtree.Walk(t.Context(), []string{root}, sink, dirtree.WithHandleTable(table))

	require.Len(t, errs, 2)

	var paths []string

	for _, err := range errs {
		var ioErr *dirtree.IOError
		require.ErrorAs(t, err, &ioErr)
		assert.Equal(t, openOp, ioErr.Op)
		assert.ErrorIs(t, ioErr, syscall.EMFILE)

		paths = append(paths, ioErr.Path)
	}

	assert.ElementsMatch(t, prefixed(root, "s1", "s2"), paths)
	assert.Equal(t, prefixed(root, "a.txt"), sink.got())
	assert.Equal(t, uint64(1), res.Dirs)
	assert.Zero(t, res.Handles.Dups)
	assert.Zero(t, table.Live())
}

func Test_Walk_Resolves_Entries_By_Stat_When_Listing_Has_No_Type(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, "a.txt", "sub/b.txt")
	writeSymlink(t, root, filepath.Join(root, "a.txt"), "link.txt")
	require.NoError(t, syscall.Mkfifo(filepath.Join(root, "pipe"), 0o600))

	sink := &recordingSink{}
	res, errs := dirtree.Walk(t.Context(), []string{root}, sink, dirtree.WithUnknownHints())
	require.Empty(t, errs)

	// Without a listing hint the stat fallback follows symlinks.
	assert.ElementsMatch(t, prefixed(root, "a.txt", "link.txt", "sub/b.txt"), sink.got())
	assert.Equal(t, uint64(2), res.Dirs)
	assert.Equal(t, uint64(1), res.Skipped)
}

func Test_Walk_Reports_Stat_Error_And_Skips_Entry_When_Fallback_Stat_Fails(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, "a.txt")
	writeSymlink(t, root, filepath.Join(root, "missing"), "broken")

	sink := &recordingSink{}
	res, errs := dirtree.Walk(t.Context(), []string{root}, sink, dirtree.WithUnknownHints())

	require.Len(t, errs, 1)
	ioErr := requireIOError(t, errs[0], root+"/broken", "stat")
	assert.ErrorIs(t, ioErr, os.ErrNotExist)

	assert.Equal(t, prefixed(root, "a.txt"), sink.got())
	assert.Equal(t, uint64(1), res.Skipped)
	assert.Equal(t, 1, res.Errors)
}

func Test_Walk_Abandons_Branch_When_Symlink_Leads_To_Ancestor(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, "top.txt", "sub/f.txt", "other/o.txt")
	writeSymlink(t, root, root, "sub/back")
	writeSymlink(t, root, filepath.Join(root, "other"), "sub/peer")

	table := dirtree.NewHandleTable(testLogger(t))

	sink := &recordingSink{}
	res, errs := dirtree.Walk(t.Context(), []string{root}, sink,
		dirtree.WithUnknownHints(), dirtree.WithHandleTable(table))

	require.Len(t, errs, 1)
	ioErr := requireIOError(t, errs[0], root+"/sub/back", openOp)
	assert.ErrorIs(t, ioErr, dirtree.ErrSymlinkCycle)

	// A link to a non-ancestor is walked like any other directory.
	assert.ElementsMatch(t, prefixed(root, "top.txt", "sub/f.txt", "other/o.txt", "sub/peer/o.txt"), sink.got())
	assert.Equal(t, uint64(4), res.Dirs)
	assert.Zero(t, table.Live())
}
