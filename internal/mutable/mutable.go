// Package mutable implements the union-find ownership discipline over
// heap objects with identity. Every mutable is owned by exactly one
// task at a time (directly, or transitively through another mutable);
// the scheduler package is the only caller that mutates ownership, since
// transferring ownership requires coordinating with the scoreboard.
package mutable

import "sync"

// TaskOwner is anything that can own a mutable's ownership root: a
// schednode.Node in the running scheduler, or the DummyTask sentinel.
// The interface is intentionally minimal (mutable does not import
// schednode, so this cannot be schednode.Node directly).
type TaskOwner interface {
	// OwnerID returns a stable identity for logging/equality checks.
	OwnerID() int64
}

type dummyTask struct{}

func (dummyTask) OwnerID() int64 { return -1 }

// DummyTask is the sentinel owner meaning "detached from any running
// task." A mutable is reassigned to DummyTask when its owning scope
// revokes ownership so a nested scope can acquire it (spec.md S5).
var DummyTask TaskOwner = dummyTask{}

// Mutable is a heap object with identity participating in the
// ownership union-find. Embed it in domain types (counters,
// conversations, registries, ...) that need ownership tracking.
type Mutable struct {
	mu    sync.Mutex
	owner any // either *Mutable (non-root) or TaskOwner (root)
	size  int
	cond  *sync.Cond
}

// NewOwnedBy creates a mutable that is initially an ownership root owned
// by task. Pass mutable.DummyTask for an object created outside any
// running task.
func NewOwnedBy(task TaskOwner) *Mutable {
	m := &Mutable{owner: task, size: 1}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// NewOwnedByParent creates a mutable whose ownership is unioned into
// parent's tree at construction time (the parent mutable "owns" the new
// one the way a container owns the objects placed in it).
func NewOwnedByParent(parent *Mutable) *Mutable {
	root := parent.Find()
	m := &Mutable{owner: root, size: 1}
	m.cond = sync.NewCond(&m.mu)
	root.mu.Lock()
	root.size++
	root.mu.Unlock()
	return m
}

// Find walks the _owner chain to the ownership root (the mutable whose
// owner is a TaskOwner, not another mutable) and compresses the path.
func (m *Mutable) Find() *Mutable {
	root := m
	for {
		root.mu.Lock()
		parent, isChild := root.owner.(*Mutable)
		root.mu.Unlock()
		if !isChild {
			break
		}
		root = parent
	}

	// Path compression: rewrite every node on the original chain to
	// point directly at root.
	node := m
	for node != root {
		node.mu.Lock()
		parent, isChild := node.owner.(*Mutable)
		if isChild {
			node.owner = root
		}
		node.mu.Unlock()
		if !isChild {
			break
		}
		node = parent
	}
	return root
}

// sizeOf reads the ownership root's union-by-size counter. Caller must
// already hold no lock on m; this takes m's own lock.
func (m *Mutable) sizeOf() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.size
}

// OwningTask returns the TaskOwner that currently owns this mutable's
// ownership root.
func (m *Mutable) OwningTask() TaskOwner {
	root := m.Find()
	root.mu.Lock()
	defer root.mu.Unlock()
	owner, _ := root.owner.(TaskOwner)
	return owner
}

// SetOwningTask directly rebinds an ownership-root mutable to a task.
// Used by the scheduler when firing a schedule node (it takes ownership
// of every mutable in the node's refs) or when revoking ownership by
// setting the owner to DummyTask.
func (m *Mutable) SetOwningTask(task TaskOwner) {
	root := m.Find()
	root.mu.Lock()
	root.owner = task
	root.mu.Unlock()
	root.cond.L.Lock()
	root.cond.Broadcast()
	root.cond.L.Unlock()
}

// SetOwningObject unions x's and y's ownership trees by size: the root
// of the larger tree becomes the new root, and on equal sizes x's root
// wins. It returns the surviving root and the absorbed one
// (absorbedRoot is nil when x and y already share a root). The caller
// (scheduler) must merge the two roots' scoreboard queues under this
// same ownership-change after this call returns, per spec.md §4.1 --
// SetOwningObject only performs the union-find mutation; it does not
// touch the scoreboard, since that is a service the mutable package
// does not know about.
//
// No access wait happens on either root before the union, neither here
// nor in Scheduler.MergeMutables; both roots are assumed to be owned by
// the calling task already.
func (x *Mutable) SetOwningObject(y *Mutable) (newRoot, absorbedRoot *Mutable) {
	xr := x.Find()
	yr := y.Find()
	if xr == yr {
		return xr, nil
	}

	// union by size: larger root wins, so compare and swap if needed.
	if xr.sizeOf() < yr.sizeOf() {
		xr, yr = yr, xr
	}

	xr.mu.Lock()
	yr.mu.Lock()
	yr.owner = xr
	xr.size += yr.size
	yr.mu.Unlock()
	xr.mu.Unlock()

	return xr, yr
}

// WaitForAccess blocks the calling task until it owns this mutable's
// ownership root, submitting a var-wait style block via waitFn if it
// does not already. waitFn is supplied by the scheduler (it knows how
// to enqueue a synthetic wait task and block on a condition variable);
// mutable itself only knows how to test "do I already own this."
//
// If the root is already owned by `self`, WaitForAccess returns
// immediately without calling waitFn.
func (m *Mutable) WaitForAccess(self TaskOwner, waitFn func(root *Mutable)) {
	root := m.Find()
	root.mu.Lock()
	owner, _ := root.owner.(TaskOwner)
	already := owner != nil && ownerEquals(owner, self)
	root.mu.Unlock()
	if already {
		return
	}
	waitFn(root)
	root.mu.Lock()
	root.owner = self
	root.mu.Unlock()
}

func ownerEquals(a, b TaskOwner) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.OwnerID() == b.OwnerID()
}

// ReadOnlyProxy is the only form in which a read-only borrow of a
// mutable is handed to a task body: it exposes only R (a
// caller-defined interface carrying the non-mutating methods of the
// wrapped domain type), forbidding mutation at the type/API level.
type ReadOnlyProxy[R any] struct {
	reader R
}

// NewReadOnlyProxy wraps reader (typically the read-only interface view
// of a domain mutable, e.g. a Registry's `GetValue() int` facet).
func NewReadOnlyProxy[R any](reader R) ReadOnlyProxy[R] {
	return ReadOnlyProxy[R]{reader: reader}
}

// Reader returns the read-only view.
func (p ReadOnlyProxy[R]) Reader() R {
	return p.reader
}
