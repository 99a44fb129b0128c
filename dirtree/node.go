package dirtree

import "strings"

// dirID identifies an opened directory by device and inode number.
type dirID struct {
	dev uint64
	ino uint64
}

// node is one directory still to be visited.
//
// A node only stores its own path component. The full path is rebuilt from
// the parent chain on demand, so parents stay reachable for as long as any
// descendant is queued.
type node struct {
	parent *node
	// at is the handle name is resolved against. It is released exactly once,
	// right after the directory has been opened or abandoned.
	at   Handle
	name string
	// depth is 0 for start paths.
	depth int

	// id is recorded once the directory is open; used for cycle detection.
	id    dirID
	hasID bool
}

func newNode(parent *node, at Handle, name string) *node {
	n := &node{parent: parent, at: at, name: name}
	if parent != nil {
		n.depth = parent.depth + 1
	}

	return n
}

// atFd returns the descriptor this node is opened relative to.
func (n *node) atFd() int {
	return n.at.Fd()
}

// FullPath returns the parent's full path joined with this node's component.
// Cost is proportional to depth; callers visiting a directory compute it once.
func (n *node) FullPath() string {
	if n.parent == nil {
		return n.name
	}

	chain := make([]string, 0, n.depth+1)
	for cur := n; cur != nil; cur = cur.parent {
		chain = append(chain, cur.name)
	}

	size := 0
	for _, c := range chain {
		size += len(c) + 1
	}

	var b strings.Builder
	b.Grow(size)

	for i := len(chain) - 1; i >= 0; i-- {
		if i < len(chain)-1 {
			appendSep(&b)
		}

		b.WriteString(chain[i])
	}

	return b.String()
}

// hasAncestor reports whether id matches any opened ancestor of n.
func (n *node) hasAncestor(id dirID) bool {
	for cur := n.parent; cur != nil; cur = cur.parent {
		if cur.hasID && cur.id == id {
			return true
		}
	}

	return false
}
