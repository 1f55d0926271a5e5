package scheduler

import (
	"fmt"
	"sync"

	"github.com/agraph/flow/internal/executor"
	"github.com/agraph/flow/internal/graph"
	"github.com/agraph/flow/internal/mutable"
	"github.com/agraph/flow/internal/schednode"
	"github.com/agraph/flow/internal/scoreboard"
	"github.com/agraph/flow/internal/variable"
)

// Tracer receives scheduler events for the execution trace (see
// internal/trace). Defined locally so this package need not import
// internal/trace; a nil Tracer disables tracing.
type Tracer interface {
	Event(action string, fields map[string]any)
}

// Scheduler schedules one scope's graph: the root scope created by
// Run, or a nested scope spawned when a graph.NestedNode fires.
// Grounded on original_source/agentgraph/exec/scheduler.py's Scheduler,
// restructured in two deliberate ways documented in DESIGN.md: (1) a
// single mutex/condvar is shared by an entire scope tree rather than
// one per scheduler, sidestepping the reentrant-lock hazard a child
// reporting completion to its already-locked parent would otherwise
// hit; (2) scope completion ("finish_scope") is driven purely by
// window_size reaching zero after scan exhaustion, rather than by a
// synthetic zero-body terminal schedule node threaded through the
// chain.
type Scheduler struct {
	pool   *executor.Executor
	cfg    *Config
	tracer Tracer

	scopeID int64

	lock *sync.Mutex
	cond *sync.Cond

	parent    *Scheduler
	reportTo  *schednode.Node
	writeVars []*variable.Var

	varMap map[*variable.Var]any
	sb     *scoreboard.Scoreboard
	nextID int64

	windowSize      int
	windowStallNext graph.Node

	startTasks, endTasks *taskNode
	scanDone             bool
	finishedReported     bool
	retired              bool
}

// NewRoot creates the top-level scheduler for a Runnable. A nil cfg
// uses DefaultConfig; a nil tracer disables tracing.
func NewRoot(pool *executor.Executor, cfg *Config, tracer Tracer) *Scheduler {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	l := &sync.Mutex{}
	s := &Scheduler{
		pool:    pool,
		cfg:     cfg,
		tracer:  tracer,
		scopeID: nextScopeID(),
		lock:    l,
		cond:    sync.NewCond(l),
		varMap:  make(map[*variable.Var]any),
		sb:      scoreboard.New(),
	}
	registerScope(s)
	return s
}

func newChild(parent *Scheduler, reportTo *schednode.Node, writeVars []*variable.Var) *Scheduler {
	s := &Scheduler{
		pool:      parent.pool,
		cfg:       parent.cfg,
		tracer:    parent.tracer,
		scopeID:   nextScopeID(),
		lock:      parent.lock,
		cond:      parent.cond,
		parent:    parent,
		reportTo:  reportTo,
		writeVars: writeVars,
		varMap:    make(map[*variable.Var]any),
		sb:        scoreboard.New(),
	}
	registerScope(s)
	return s
}

func (s *Scheduler) trace(action string, fields map[string]any) {
	if s.tracer != nil {
		s.tracer.Event(action, fields)
	}
}

func (s *Scheduler) nextIDLocked() int64 {
	s.nextID++
	return s.nextID
}

// Run starts execution of a top-level Runnable, seeding its initial
// variable bindings. It does not block; completion is observed via
// Shutdown or by the caller's own synchronization (typically a
// ReadVariable call on one of the runnable's output variables).
func (s *Scheduler) Run(r *graph.Runnable, initial map[*variable.Var]any) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.addTaskLocked(r.Start, initial)
}

// AddTask enqueues a new top-level task on this scope's FIFO, starting
// it immediately if the FIFO was empty.
func (s *Scheduler) AddTask(node graph.Node, initial map[*variable.Var]any) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.addTaskLocked(node, initial)
}

func (s *Scheduler) addTaskLocked(node graph.Node, initial map[*variable.Var]any) {
	if s.retired {
		s.retired = false
		s.scanDone = false
		registerScope(s)
	}
	t := &taskNode{node: node, varMap: initial}
	if s.endTasks == nil {
		s.startTasks = t
	} else {
		s.endTasks.next = t
	}
	s.endTasks = t

	if s.startTasks == t {
		s.runTaskLocked(t)
	}
}

func (s *Scheduler) runTaskLocked(t *taskNode) {
	for v, val := range t.varMap {
		s.varMap[v] = val
	}
	s.scanLocked(t.node)
}

// scanLocked walks the graph from node per spec.md §4.3, allocating a
// schednode.Node per visited graph node and tracking dependence
// counts against the scope's variable map.
func (s *Scheduler) scanLocked(node graph.Node) {
	for {
		if node == nil {
			t := s.startTasks
			if t == nil {
				s.scanDone = true
				s.checkFinishScopeLocked()
				return
			}
			s.startTasks = t.next
			if s.startTasks == nil {
				s.endTasks = nil
				s.scanDone = true
				s.checkFinishScopeLocked()
				return
			}
			s.runTaskLocked(s.startTasks)
			return
		}

		sn := schednode.New(node, s.nextIDLocked())
		s.trace("task.scan", map[string]any{"id": sn.ID, "scope_id": s.scopeID})
		depCount := 0

		for _, re := range node.ReadSet() {
			v := re.Var
			lookup, bound := s.varMap[v]
			if !bound {
				panic(fmt.Sprintf("scheduler: variable %q read before it is defined", v.Name()))
			}
			if producer, pending := lookup.(*schednode.Node); pending {
				producer.AddWaiter(v, sn, re.ReadOnly)
				depCount++
				continue
			}
			sn.SetIn(v, lookup)
			if v.IsMutable() {
				inc := s.handleReferenceLocked(sn, v, lookup, re.ReadOnly)
				depCount += inc
			}
		}
		sn.SetDepCount(depCount)

		for _, wv := range node.WriteSet() {
			s.varMap[wv] = sn
		}

		if bn, isBranch := node.(*graph.BranchNode); isBranch {
			if depCount != 0 {
				// Scan never speculates past an unresolved branch.
				return
			}
			if s.windowSize >= s.cfg.MaxWindow {
				s.windowStallNext = s.resolveBranchLocked(bn, sn)
				return
			}
			node = s.resolveBranchLocked(bn, sn)
			continue
		}

		s.windowSize++
		if depCount == 0 {
			s.fireLocked(sn)
		}
		node = node.Next(0)
	}
}

func (s *Scheduler) resolveBranchLocked(bn *graph.BranchNode, sn *schednode.Node) graph.Node {
	condVal, _ := sn.InMap[bn.Cond].(bool)
	s.trace("branch.resolve", map[string]any{"id": sn.ID, "cond": condVal})
	return bn.Resolve(condVal)
}

// fireLocked dispatches a schedule node whose dependence count has
// reached zero, either at scan time or via decDepCountLocked.
func (s *Scheduler) fireLocked(sn *schednode.Node) {
	switch g := sn.Graph.(type) {
	case *graph.VarWaitNode:
		s.releaseRefsLocked(sn)
		s.cond.Broadcast()
	case *graph.BranchNode:
		s.scanLocked(s.resolveBranchLocked(g, sn))
	default:
		s.startLocked(sn, g)
	}
}

// startLocked asserts ownership over sn's referenced mutables and
// dispatches its body, per spec.md §4.4's start(s).
func (s *Scheduler) startLocked(sn *schednode.Node, node graph.Node) {
	for root := range sn.Refs {
		if m, ok := root.(*mutable.Mutable); ok {
			m.SetOwningTask(sn)
		}
	}
	s.trace("task.dispatch", map[string]any{"id": sn.ID})

	switch g := node.(type) {
	case *graph.NestedNode:
		child := newChild(s, sn, g.WriteVars)
		in := make(map[*variable.Var]any, len(g.ReadVars))
		for _, re := range g.ReadVars {
			in[re.Var] = sn.InMap[re.Var]
		}
		child.addTaskLocked(g.Start, in)
	case *graph.LLMNode:
		s.pool.SubmitAsync(g, sn.InMap, s.completionCallback(sn, g))
	case *graph.SyncNode:
		s.pool.SubmitSync(g, sn.InMap, s.completionCallback(sn, g), s.lock)
	default:
		panic(fmt.Sprintf("scheduler: unschedulable node kind %T", node))
	}
}

func (s *Scheduler) completionCallback(sn *schednode.Node, node graph.Node) executor.Callback {
	return func(out map[*variable.Var]any, err error) {
		if err != nil {
			out = make(map[*variable.Var]any, len(node.WriteSet()))
			for _, wv := range node.WriteSet() {
				out[wv] = schednode.ErrSentinel{Err: err}
			}
		}
		sn.SetOut(out)
		s.Completed(sn)
	}
}

// handleReferenceLocked routes a mutable reference through the
// scoreboard, per spec.md §4.3 step 2 / original draft's
// handleReference. Returns the additional dependence count incurred
// (0 or 1).
func (s *Scheduler) handleReferenceLocked(sn *schednode.Node, v *variable.Var, lookup any, readOnly bool) int {
	m, ok := lookup.(*mutable.Mutable)
	if !ok {
		panic(fmt.Sprintf("scheduler: variable %q is mutable-typed but its value is not a *mutable.Mutable", v.Name()))
	}
	root := m.Find()
	if !sn.AddRef(root) {
		return 0
	}

	var noConflict bool
	if readOnly {
		noConflict = s.sb.AddReader(root, sn)
	} else {
		noConflict = s.sb.AddWriter(root, sn)
	}
	if noConflict {
		return 0
	}
	s.trace("scoreboard.conflict", map[string]any{"id": sn.ID, "read_only": readOnly})
	return 1
}

func (s *Scheduler) releaseRefsLocked(sn *schednode.Node) {
	for root := range sn.Refs {
		woken := s.sb.RemoveWaiter(root, sn)
		for _, t := range woken {
			if w, ok := t.(*schednode.Node); ok {
				s.decDepCountLocked(w)
			}
		}
	}
}

func (s *Scheduler) decDepCountLocked(sn *schednode.Node) {
	if sn.DecDepCount() {
		s.fireLocked(sn)
	}
}

// Completed is the public entry point invoked by the executor's
// callback goroutines (and by a child scheduler reporting its own
// scope completion) once a schedule node's body has finished.
func (s *Scheduler) Completed(sn *schednode.Node) {
	s.lock.Lock()
	report := s.completedLocked(sn)
	s.lock.Unlock()
	if report != nil {
		s.parent.Completed(report)
	}
}

func (s *Scheduler) completedLocked(sn *schednode.Node) *schednode.Node {
	s.windowSize--
	if s.windowSize == 0 {
		s.cond.Broadcast()
	}
	s.trace("task.complete", map[string]any{"id": sn.ID})

	for v, val := range sn.OutMap {
		for _, w := range sn.WaitMap[v] {
			if w.Node == nil {
				continue
			}
			w.Node.SetIn(v, val)
			extra := 0
			if m, ok := val.(*mutable.Mutable); ok {
				_ = m
				extra = s.handleReferenceLocked(w.Node, v, val, w.IsReader)
			}
			if extra == 0 {
				s.decDepCountLocked(w.Node)
			}
		}
		if cur, ok := s.varMap[v].(*schednode.Node); ok && cur == sn {
			s.varMap[v] = val
		}
	}

	s.releaseRefsLocked(sn)

	if s.windowSize < s.cfg.MaxWindow && s.windowStallNext != nil {
		next := s.windowStallNext
		s.windowStallNext = nil
		s.scanLocked(next)
	}

	return s.checkFinishScopeLocked()
}

// checkFinishScopeLocked implements finish_scope: once this scope has
// finished scanning and every in-flight task has completed, its
// declared write-set is built from the variable map and handed to the
// parent as the output of the schedule node the parent created for
// this nested scope.
func (s *Scheduler) checkFinishScopeLocked() *schednode.Node {
	if !s.scanDone || s.windowSize != 0 {
		return nil
	}
	if !s.retired {
		s.retired = true
		unregisterScope(s.scopeID)
	}

	if s.reportTo == nil || s.finishedReported {
		return nil
	}
	s.finishedReported = true

	out := make(map[*variable.Var]any, len(s.writeVars))
	for _, v := range s.writeVars {
		val := s.varMap[v]
		if _, pending := val.(*schednode.Node); pending {
			panic(fmt.Sprintf("scheduler: scope finished with an unresolved write-set variable %q", v.Name()))
		}
		out[v] = val
	}
	s.reportTo.SetOut(out)
	return s.reportTo
}

// MergeMutables implements spec.md §4.1's ownership merge (scenario
// S3): it unions x and y's ownership trees -- the larger tree wins the
// union, per mutable.SetOwningObject's union-by-size rule -- and then
// merges their scoreboard access queues into one so that a task
// registered against either root afterward is ordered against every
// task already registered on both. The calling task must already own
// both x and y (callers needing access first call ObjAccess); this
// method never blocks on its own.
func (s *Scheduler) MergeMutables(x, y *mutable.Mutable) {
	s.lock.Lock()
	defer s.lock.Unlock()

	newRoot, absorbedRoot := x.SetOwningObject(y)
	if absorbedRoot == nil {
		return
	}
	s.sb.MergeAccessQueues(absorbedRoot, newRoot)
	s.trace("ownership.merge", map[string]any{"scope_id": s.scopeID})
}

// ReadVariable blocks the calling goroutine until v's value is
// available, per spec.md §4.6's read_variable(v). Grounded on the
// original draft's Scheduler.readVariable/GraphVarWait.
func (s *Scheduler) ReadVariable(v *variable.Var) any {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.waitLocked(v, true)
}

// ObjAccess returns v's value with the requested access mode
// (obj_access). If v is already bound, the value is returned at once
// and the scoreboard is not consulted, so the call does not wait for
// other tasks registered on the mutable's ownership root. If v is still
// pending, the caller blocks until the producer completes and, when the
// value is a mutable, until the scoreboard grants readOnly/write access
// on its root.
func (s *Scheduler) ObjAccess(v *variable.Var, readOnly bool) any {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.waitLocked(v, readOnly)
}

func (s *Scheduler) waitLocked(v *variable.Var, readOnly bool) any {
	lookup, bound := s.varMap[v]
	if !bound {
		panic(fmt.Sprintf("scheduler: wait on undefined variable %q", v.Name()))
	}
	if _, pending := lookup.(*schednode.Node); !pending {
		return lookup
	}

	sn := schednode.New(&graph.VarWaitNode{Target: v, ReadOnly: readOnly}, s.nextIDLocked())
	producer := lookup.(*schednode.Node)
	producer.AddWaiter(v, sn, readOnly)
	sn.SetDepCount(1)

	for sn.DepCount > 0 {
		s.stealOrWaitLocked()
	}
	return sn.InMap[v]
}

// stealOrWaitLocked implements spec.md §156's blocked-thread recovery
// path: before idling on the scope's condition variable, try to cancel
// a pending thread-pool submission from this same scope tree (s.lock
// identifies the tree -- every scheduler in it, root or nested, shares
// the same *sync.Mutex) and run its body inline. This can unblock
// progress even when the thread pool is fully saturated with tasks
// that are themselves waiting on the variable/object this call is
// blocked on. Grounded on original_source/agentgraph/exec/engine.py's
// threadQueueItem/threadrun pairing, adapted so the blocked caller
// itself plays the role of a borrowed worker.
func (s *Scheduler) stealOrWaitLocked() {
	if run, ok := s.pool.StealPendingSync(s.lock); ok {
		s.lock.Unlock()
		run()
		s.lock.Lock()
		return
	}
	s.cond.Wait()
}

// Shutdown blocks until this scope's window is fully drained. Intended
// for the root scheduler once all top-level tasks have been added.
func (s *Scheduler) Shutdown() {
	s.lock.Lock()
	defer s.lock.Unlock()
	for s.windowSize > 0 {
		s.cond.Wait()
	}
}
