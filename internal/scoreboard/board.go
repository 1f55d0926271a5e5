package scoreboard

// Board is the ordered access queue for a single ownership-root object:
// a doubly-linked chain of Nodes, strictly ordered by id range, where
// reader nodes coalesce and writer nodes never share a node with
// anything else.
type Board struct {
	head, tail *Node
	nodeOf     map[int64]*Node
}

// NewBoard creates an empty access queue.
func NewBoard() *Board {
	return &Board{nodeOf: make(map[int64]*Node)}
}

// Empty reports whether the board currently has no registered tasks.
func (b *Board) Empty() bool {
	return b.head == nil
}

// Head returns the node currently at the front of the queue (the one
// that is running or eligible to run), or nil if the board is empty.
func (b *Board) Head() *Node {
	return b.head
}

func (b *Board) link(n *Node) {
	if b.tail == nil {
		b.head, b.tail = n, n
		return
	}
	n.prev = b.tail
	b.tail.next = n
	b.tail = n
}

func (b *Board) insertAfter(after, n *Node) {
	n.prev = after
	n.next = after.next
	if after.next != nil {
		after.next.prev = n
	} else {
		b.tail = n
	}
	after.next = n
}

func (b *Board) unlink(n *Node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		b.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		b.tail = n.prev
	}
	n.prev, n.next = nil, nil
}

func (b *Board) register(t Task, n *Node) {
	b.nodeOf[t.TaskID()] = n
}

// AddReader registers task as a reader on this board. It returns true
// iff there is no conflict (the task may proceed immediately).
func (b *Board) AddReader(task Task) bool {
	if b.head == nil {
		n := newReaderNode(task)
		b.link(n)
		b.register(task, n)
		return true
	}

	for cur := b.tail; cur != nil; cur = cur.prev {
		if !cur.isReader {
			_, max := cur.idRange()
			if max < task.TaskID() {
				n := newReaderNode(task)
				b.insertAfter(cur, n)
				b.register(task, n)
				return false
			}
			continue
		}

		predMax := int64(minInt64)
		if cur.prev != nil {
			_, predMax = cur.prev.idRange()
		}
		if predMax < task.TaskID() {
			cur.waiters[task.TaskID()] = task
			b.register(task, cur)
			return cur == b.head
		}
	}
	panic("scoreboard: addReader could not find an insertion point (impossible case)")
}

// AddWriter registers task as the sole writer on this board. It returns
// true iff there is no conflict.
func (b *Board) AddWriter(task Task) bool {
	if b.head == nil {
		n := newWriterNode(task)
		b.link(n)
		b.register(task, n)
		return true
	}

	for cur := b.tail; cur != nil; cur = cur.prev {
		_, max := cur.idRange()
		if max < task.TaskID() {
			n := newWriterNode(task)
			b.insertAfter(cur, n)
			b.register(task, n)
			return false
		}
		if cur.isReader {
			min, max := cur.idRange()
			if task.TaskID() > min && task.TaskID() < max {
				w := b.splitReadersAroundWriter(cur, task)
				return w == b.head
			}
		}
	}
	panic("scoreboard: addWriter could not find an insertion point (impossible case)")
}

// splitReadersAroundWriter splits the reader group `cur` into
// (readers with id < writerTask.id), the new writer node, and (readers
// with id > writerTask.id), replacing cur's position in the list.
func (b *Board) splitReadersAroundWriter(cur *Node, writerTask Task) *Node {
	before := &Node{isReader: true, waiters: map[int64]Task{}}
	after := &Node{isReader: true, waiters: map[int64]Task{}}
	for id, t := range cur.waiters {
		if id < writerTask.TaskID() {
			before.waiters[id] = t
		} else {
			after.waiters[id] = t
		}
	}
	w := newWriterNode(writerTask)

	prev, next := cur.prev, cur.next
	chain := make([]*Node, 0, 3)
	if len(before.waiters) > 0 {
		chain = append(chain, before)
	}
	chain = append(chain, w)
	if len(after.waiters) > 0 {
		chain = append(chain, after)
	}

	// splice chain in place of cur
	link := prev
	for _, n := range chain {
		if link == nil {
			b.head = n
		} else {
			link.next = n
		}
		n.prev = link
		link = n
	}
	link.next = next
	if next != nil {
		next.prev = link
	} else {
		b.tail = link
	}

	for _, n := range chain {
		for id, t := range n.waiters {
			b.nodeOf[id] = n
			_ = t
		}
	}
	return w
}

// ChangeToWriter upgrades a task already registered as a reader to
// writer semantics (the same variable is referenced again without a
// ReadOnly wrapper). Returns true iff the resulting writer position is
// the head.
func (b *Board) ChangeToWriter(task Task) bool {
	n, ok := b.nodeOf[task.TaskID()]
	if !ok || !n.isReader {
		panic("scoreboard: changeToWriter called for a task with no reader registration (impossible case)")
	}
	if len(n.waiters) == 1 {
		n.isReader = false
		return n == b.head
	}
	delete(n.waiters, task.TaskID())
	w := b.splitReadersAroundWriter(n, task)
	return w == b.head
}

// RemoveWaiter removes task from its node. If the node becomes empty it
// is unlinked; if that node was the head, the tasks in the new head
// (if any) are returned so the caller (the scheduler) can clear their
// scoreboard-slot dependence.
func (b *Board) RemoveWaiter(task Task) []Task {
	n, ok := b.nodeOf[task.TaskID()]
	if !ok {
		return nil
	}
	wasHead := n == b.head
	delete(n.waiters, task.TaskID())
	delete(b.nodeOf, task.TaskID())

	if len(n.waiters) > 0 {
		return nil
	}
	b.unlink(n)
	if wasHead && b.head != nil {
		return b.head.Waiters()
	}
	return nil
}

// entries returns every (taskID, isReader, Task) tuple currently on the
// board, used by MergeAccessQueues to replay two boards into one.
func (b *Board) entries() []boardEntry {
	out := make([]boardEntry, 0)
	for n := b.head; n != nil; n = n.next {
		for id, t := range n.waiters {
			out = append(out, boardEntry{id: id, isReader: n.isReader, task: t})
		}
	}
	return out
}

type boardEntry struct {
	id       int64
	isReader bool
	task     Task
}

const minInt64 = -1 << 63
