package dirtree

import "github.com/rs/zerolog"

// Export internal symbols for black-box tests in dirtree_test.
type (
	TypeHint  = typeHint
	EntryKind = entryKind
)

const (
	HintUnknown = hintUnknown
	HintDir     = hintDir
	HintReg     = hintReg
	HintSymlink = hintSymlink
	HintOther   = hintOther

	EntrySkip = entrySkip
	EntryDir  = entryDir
	EntryFile = entryFile

	AtFDCWD    = atFDCWD
	MaxWorkers = maxWorkers
)

var (
	ClassifyEntry  = classifyEntry
	JoinPath       = joinPath
	IsDotEntry     = isDotEntry
	ErrContainsNUL = errContainsNUL
)

// NewHandleTableWithOps returns a table whose dup/close are fakes.
func NewHandleTableWithOps(dup func(int) (int, error), closeFn func(int) error) *HandleTable {
	return newHandleTable(zerolog.Nop(), dup, closeFn)
}

// NodeChain builds root → ... → leaf nodes from components and returns the
// leaf's full path.
func NodeChain(components ...string) string {
	var n *node
	for _, c := range components {
		n = newNode(n, CWD(), c)
	}

	if n == nil {
		return ""
	}

	return n.FullPath()
}

// AncestorCycle reports whether a leaf whose identity equals the one recorded
// at ancestor index `at` (0 = root) of a depth-long chain is detected.
func AncestorCycle(depth, at int) bool {
	var (
		n     *node
		chain []*node
	)

	for i := range depth {
		n = newNode(n, CWD(), "d")
		n.id = dirID{dev: 1, ino: uint64(i + 10)}
		n.hasID = true
		chain = append(chain, n)
	}

	leaf := newNode(n, CWD(), "leaf")

	return leaf.hasAncestor(chain[at].id)
}

// NodeDepth returns the depth of the leaf of a chain built from components.
func NodeDepth(components ...string) int {
	var n *node
	for _, c := range components {
		n = newNode(n, CWD(), c)
	}

	return n.depth
}

// Options exposes applied option defaults.
type Options = options

var ApplyOptions = applyOptions

// WithUnknownHints makes every listing hint DT_UNKNOWN, so each entry goes
// through the stat fallback.
func WithUnknownHints() Option {
	return withDirHooks(&dirHooks{
		hint: func([]byte, typeHint) typeHint { return hintUnknown },
	})
}
