package executor

import (
	"context"
	"log"
	"sync"

	"github.com/agraph/flow/internal/graph"
	"github.com/agraph/flow/internal/variable"
)

// Callback is invoked, off the calling goroutine, once a submitted
// node's body has finished.
type Callback func(out map[*variable.Var]any, err error)

// syncJob is one pending SyncNode body sitting in the thread pool's
// queue, grounded on original_source/agentgraph/exec/engine.py's
// threadQueueItem/threadrun: there the Python engine hands the job to
// a concurrent.futures.ThreadPoolExecutor and keeps the returned
// Future so a caller can cancel it; syncJob plays that Future's role
// here, as a linked-list node so Submission.Cancel and
// Executor.StealPendingSync can unlink it from the queue in place.
type syncJob struct {
	node  graph.Executable
	in    map[*variable.Var]any
	cb    Callback
	owner any // identifies the scope tree that submitted this job
	next  *syncJob
}

// Submission is a handle to a SyncNode body accepted onto the thread
// pool's queue but not yet claimed by a worker, per spec.md §6's
// thread_queue_item: "the submission handle must be cancelable".
type Submission struct {
	e   *Executor
	job *syncJob
}

// Cancel unlinks the submission from the pending queue before a
// worker claims it. It reports false if a worker already claimed the
// job (or it has already run) -- the caller must then wait for the
// callback instead.
func (s *Submission) Cancel() bool {
	return s.e.unlinkSyncJob(s.job)
}

// Executor owns the two worker pools described in spec.md §5: an async
// pool for LLMNode bodies and a thread pool for SyncNode bodies. The
// async pool is a bounded count of in-flight goroutines guarded by a
// semaphore channel, since LLM bodies are never stolen. The thread
// pool is a persistent set of ThreadMax worker goroutines draining a
// FIFO job queue, mirroring the original draft's fixed-size
// ThreadPoolExecutor -- the queue (rather than one goroutine per
// submission) is what lets a blocked scheduler find and unlink a
// pending job for work-stealing (spec.md §4.4/§5/§6, scenario S6).
type Executor struct {
	cfg *Config

	mu         sync.Mutex
	asyncInUse int

	asyncSlots chan struct{}

	syncCond           *sync.Cond
	syncHead, syncTail *syncJob
	syncQueued         int
	threadInUse        int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an Executor bounded by cfg. A nil cfg uses DefaultConfig.
func New(cfg *Config) *Executor {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	ctx, cancel := context.WithCancel(context.Background())
	e := &Executor{
		cfg:        cfg,
		asyncSlots: make(chan struct{}, cfg.AsyncMax),
		ctx:        ctx,
		cancel:     cancel,
	}
	e.syncCond = sync.NewCond(&e.mu)

	for i := 0; i < cfg.ThreadMax; i++ {
		e.wg.Add(1)
		go e.syncWorker()
	}
	return e
}

// SubmitAsync queues an LLMNode's body on the async pool without
// blocking the caller: a goroutine waits for a free slot, runs the
// body, then calls back with its result.
func (e *Executor) SubmitAsync(node graph.Executable, in map[*variable.Var]any, cb Callback) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		select {
		case e.asyncSlots <- struct{}{}:
		case <-e.ctx.Done():
			return
		}

		e.mu.Lock()
		e.asyncInUse++
		e.mu.Unlock()

		defer func() {
			<-e.asyncSlots
			e.mu.Lock()
			e.asyncInUse--
			e.mu.Unlock()
		}()

		out, err := node.Execute(e.ctx, in)
		if err != nil {
			log.Printf("executor: node body failed: %v", err)
		}
		cb(out, err)
	}()
}

// SubmitSync enqueues a SyncNode's body onto the thread pool, to be run
// by the next free worker. owner identifies the scope tree the
// submitting scheduler belongs to (its shared *sync.Mutex pointer) so
// StealPendingSync can scope its search to that tree, per spec.md's
// non-goal ruling out work-stealing across unrelated root scopes. The
// returned Submission lets the caller cancel the job before a worker
// claims it.
func (e *Executor) SubmitSync(node graph.Executable, in map[*variable.Var]any, cb Callback, owner any) *Submission {
	job := &syncJob{node: node, in: in, cb: cb, owner: owner}

	e.mu.Lock()
	select {
	case <-e.ctx.Done():
		e.mu.Unlock()
		return &Submission{e: e, job: job}
	default:
	}
	if e.syncTail == nil {
		e.syncHead = job
	} else {
		e.syncTail.next = job
	}
	e.syncTail = job
	e.syncQueued++
	e.mu.Unlock()
	e.syncCond.Signal()

	return &Submission{e: e, job: job}
}

// syncWorker drains the sync job queue until Shutdown cancels the
// executor's context.
func (e *Executor) syncWorker() {
	defer e.wg.Done()
	for {
		e.mu.Lock()
		for e.syncHead == nil {
			select {
			case <-e.ctx.Done():
				e.mu.Unlock()
				return
			default:
			}
			e.syncCond.Wait()
		}
		job := e.dequeueLocked()
		e.threadInUse++
		e.mu.Unlock()

		out, err := job.node.Execute(e.ctx, job.in)
		if err != nil {
			log.Printf("executor: node body failed: %v", err)
		}

		e.mu.Lock()
		e.threadInUse--
		e.mu.Unlock()

		job.cb(out, err)
	}
}

// dequeueLocked pops the head job off the sync queue. Callers must
// hold e.mu and have already confirmed e.syncHead != nil.
func (e *Executor) dequeueLocked() *syncJob {
	job := e.syncHead
	e.syncHead = job.next
	if e.syncHead == nil {
		e.syncTail = nil
	}
	job.next = nil
	e.syncQueued--
	return job
}

// unlinkSyncJob removes job from the pending queue if it is still
// there, returning whether it found (and removed) it.
func (e *Executor) unlinkSyncJob(job *syncJob) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	var prev *syncJob
	for j := e.syncHead; j != nil; j = j.next {
		if j == job {
			if prev == nil {
				e.syncHead = j.next
			} else {
				prev.next = j.next
			}
			if e.syncTail == j {
				e.syncTail = prev
			}
			e.syncQueued--
			return true
		}
		prev = j
	}
	return false
}

// StealPendingSync implements spec.md §156's work-stealing recovery
// path: a caller blocked in read_variable/obj_access may cancel a
// pending thread-pool submission belonging to its own scope tree
// (identified by owner) and run it inline instead of waiting for a
// worker. It returns ok=false if no job from that tree is currently
// queued. The returned run func executes the job's body and invokes
// its callback; it must be called without holding the scheduler's lock,
// since the callback reports completion back through Scheduler.Completed,
// which acquires that same lock.
func (e *Executor) StealPendingSync(owner any) (run func(), ok bool) {
	e.mu.Lock()
	var prev *syncJob
	for j := e.syncHead; j != nil; j = j.next {
		if j.owner != owner {
			prev = j
			continue
		}
		if prev == nil {
			e.syncHead = j.next
		} else {
			prev.next = j.next
		}
		if e.syncTail == j {
			e.syncTail = prev
		}
		e.syncQueued--
		e.mu.Unlock()

		job := j
		return func() {
			out, err := job.node.Execute(e.ctx, job.in)
			if err != nil {
				log.Printf("executor: node body failed: %v", err)
			}
			job.cb(out, err)
		}, true
	}
	e.mu.Unlock()
	return nil, false
}

// PendingPythonTaskCount reports how many sync-pool bodies are
// currently running, exposed for the HTTP introspection surface. The
// scheduler's work-stealing path does not consult it: stealOrWaitLocked
// tries StealPendingSync every time before it would wait.
func (e *Executor) PendingPythonTaskCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.threadInUse
}

// PendingAsyncTaskCount is the async-pool analogue of
// PendingPythonTaskCount, exposed for the TUI/HTTP introspection.
func (e *Executor) PendingAsyncTaskCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.asyncInUse
}

// Shutdown cancels outstanding work and waits for in-flight bodies to
// observe the cancellation and return. Sync jobs still sitting in the
// queue when Shutdown is called are abandoned, same as the async pool
// dropping a submission that loses its race against ctx.Done.
func (e *Executor) Shutdown() {
	e.cancel()
	e.mu.Lock()
	e.syncCond.Broadcast()
	e.mu.Unlock()
	e.wg.Wait()
}
