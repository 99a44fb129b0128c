package dirtree

import (
	"context"
	"sync"
)

// walkParallel visits directories with several workers.
//
// ========================================================================
// COORDINATOR GOROUTINE: Dynamic Work Distribution
// ========================================================================
//
// We don't know the tree structure upfront: visiting "foo/" may discover
// "foo/bar/" and "foo/baz/". The coordinator owns the FIFO queue; workers pull
// nodes from it and push discovered children back.
//
// CHANNEL ROLES:
//
//	jobs   ←── coordinator sends nodes for workers to visit
//	events ──► workers send discovered children or completion signals
//
// `pending` counts queued + in-flight nodes. Incremented on discovery,
// decremented on completion (not dispatch). The walk is over only when no
// worker holds a dequeued node AND the queue is empty; "queue is empty" alone
// would race with workers that are mid-enumeration.
//
// Each node's handle is owned by exactly one party at a time: the queue, the
// worker visiting it, or (in flight) the events channel. Whoever drops a node
// without visiting it releases the handle.
func (w *walker) walkParallel(ctx context.Context, roots []*node, workers int) {
	type treeEvent struct {
		child *node
		done  bool
	}

	jobs := make(chan *node)
	events := make(chan treeEvent, workers*64)

	var coordWG sync.WaitGroup
	coordWG.Go(func() {
		queue := newNodeQueue(max(len(roots), 1024))
		for _, r := range roots {
			queue.push(r)
		}

		pending := queue.len()
		jobsClosed := false

		closeJobs := func() {
			if !jobsClosed {
				close(jobs)

				jobsClosed = true
			}
		}

		// Drain buffered events to avoid premature termination when pending
		// hits zero. Only discovery events matter here.
		drainEvents := func() {
			for {
				select {
				case ev := <-events:
					if ev.done {
						continue
					}

					pending++

					queue.push(ev.child)
				default:
					return
				}
			}
		}

		if pending == 0 {
			closeJobs()
		}

		for pending > 0 {
			cancelled := ctx.Err() != nil

			if cancelled {
				// Discard queued work; releasing the nodes closes their
				// shared descriptors once no worker holds a sibling.
				if queue.len() > 0 {
					pending -= queue.len()
					queue.drain(w.releaseNode)
				}

				closeJobs()
			}

			// Nil channel trick: when jobCh is nil the send case blocks
			// forever, disabling dispatch when cancelled or queue is empty.
			var (
				next    *node
				jobCh   chan *node
				ctxDone <-chan struct{}
			)

			if !cancelled {
				ctxDone = ctx.Done()

				if queue.len() > 0 {
					next = queue.front()
					jobCh = jobs
				}
			}

			select {
			case ev := <-events:
				switch {
				case ev.done:
					pending--
				case cancelled:
					w.releaseNode(ev.child)
				default:
					pending++

					queue.push(ev.child)
				}

				if pending == 0 && !cancelled {
					drainEvents()
				}

				if pending == 0 {
					closeJobs()
				}

			case jobCh <- next:
				queue.pop()

			case <-ctxDone:
				// Wakes an idle coordinator so queued work is dropped now.
			}
		}

		closeJobs()

		// A child pushed after cancellation may still be buffered.
		for {
			select {
			case ev := <-events:
				if !ev.done {
					w.releaseNode(ev.child)
				}
			default:
				return
			}
		}
	})

	// Each worker owns its read buffer for every directory it visits.
	worker := func() {
		buf := make([]byte, w.bufSize)

		push := func(child *node) bool {
			select {
			case events <- treeEvent{child: child}:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for n := range jobs {
			if ctx.Err() != nil {
				w.releaseNode(n)
			} else {
				w.visit(ctx, n, buf, push)
			}

			// Always report completion to avoid pending-count leaks on cancel.
			events <- treeEvent{done: true}
		}
	}

	var wg sync.WaitGroup
	for range workers {
		wg.Go(worker)
	}

	wg.Wait()
	coordWG.Wait()
}
