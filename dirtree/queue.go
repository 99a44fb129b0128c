package dirtree

// nodeQueue is a FIFO of pending directories.
//
// Popped slots are cleared so finished subtrees can be collected, and the
// backing array is compacted once the consumed prefix dominates.
type nodeQueue struct {
	items []*node
	head  int
}

// compactMin avoids compacting tiny queues over and over.
const compactMin = 1024

func newNodeQueue(capacity int) *nodeQueue {
	return &nodeQueue{items: make([]*node, 0, capacity)}
}

func (q *nodeQueue) len() int {
	return len(q.items) - q.head
}

func (q *nodeQueue) push(n *node) {
	q.items = append(q.items, n)
}

// front returns the next node without removing it. Queue must be non-empty.
func (q *nodeQueue) front() *node {
	return q.items[q.head]
}

// pop removes and returns the front node. Queue must be non-empty.
func (q *nodeQueue) pop() *node {
	n := q.items[q.head]
	q.items[q.head] = nil
	q.head++

	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	} else if q.head >= compactMin && q.head*2 >= len(q.items) {
		live := copy(q.items, q.items[q.head:])
		clear(q.items[live:])
		q.items = q.items[:live]
		q.head = 0
	}

	return n
}

// drain removes every node and calls fn for each, in queue order.
func (q *nodeQueue) drain(fn func(*node)) {
	for q.len() > 0 {
		fn(q.pop())
	}
}
