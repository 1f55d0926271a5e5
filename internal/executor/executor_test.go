package executor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/agraph/flow/internal/variable"
)

type stubExecutable struct {
	fn func(ctx context.Context, in map[*variable.Var]any) (map[*variable.Var]any, error)
}

func (s stubExecutable) Execute(ctx context.Context, in map[*variable.Var]any) (map[*variable.Var]any, error) {
	return s.fn(ctx, in)
}

func TestSubmitSyncRunsBodyAndCallsBack(t *testing.T) {
	e := New(&Config{AsyncMax: 2, ThreadMax: 2})
	defer e.Shutdown()

	out := variable.New("out")
	node := stubExecutable{fn: func(ctx context.Context, in map[*variable.Var]any) (map[*variable.Var]any, error) {
		return map[*variable.Var]any{out: 1}, nil
	}}

	done := make(chan map[*variable.Var]any, 1)
	e.SubmitSync(node, nil, func(result map[*variable.Var]any, err error) {
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		done <- result
	}, "owner")

	select {
	case result := <-done:
		if result[out] != 1 {
			t.Fatalf("result[out] = %v, want 1", result[out])
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for callback")
	}
}

func TestSubmitAsyncBoundsConcurrency(t *testing.T) {
	e := New(&Config{AsyncMax: 2, ThreadMax: 1})
	defer e.Shutdown()

	var mu sync.Mutex
	inFlight := 0
	maxSeen := 0
	release := make(chan struct{})

	node := stubExecutable{fn: func(ctx context.Context, in map[*variable.Var]any) (map[*variable.Var]any, error) {
		mu.Lock()
		inFlight++
		if inFlight > maxSeen {
			maxSeen = inFlight
		}
		mu.Unlock()
		<-release
		mu.Lock()
		inFlight--
		mu.Unlock()
		return nil, nil
	}}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		e.SubmitAsync(node, nil, func(map[*variable.Var]any, error) { wg.Done() })
	}

	time.Sleep(50 * time.Millisecond)
	if e.PendingAsyncTaskCount() > 2 {
		t.Fatalf("PendingAsyncTaskCount = %d, want <= AsyncMax=2", e.PendingAsyncTaskCount())
	}

	close(release)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if maxSeen > 2 {
		t.Fatalf("observed %d concurrent async bodies, want <= 2", maxSeen)
	}
}

func TestPendingCountsReturnToZeroAfterCompletion(t *testing.T) {
	e := New(DefaultConfig())
	defer e.Shutdown()

	node := stubExecutable{fn: func(ctx context.Context, in map[*variable.Var]any) (map[*variable.Var]any, error) {
		return nil, nil
	}}

	var wg sync.WaitGroup
	wg.Add(1)
	e.SubmitSync(node, nil, func(map[*variable.Var]any, error) { wg.Done() }, "owner")
	wg.Wait()

	time.Sleep(10 * time.Millisecond)
	if e.PendingPythonTaskCount() != 0 {
		t.Fatalf("PendingPythonTaskCount = %d, want 0 after completion", e.PendingPythonTaskCount())
	}
}

func TestShutdownWaitsForInFlightBody(t *testing.T) {
	e := New(&Config{AsyncMax: 1, ThreadMax: 1})

	started := make(chan struct{})
	release := make(chan struct{})
	node := stubExecutable{fn: func(ctx context.Context, in map[*variable.Var]any) (map[*variable.Var]any, error) {
		close(started)
		<-release
		return nil, nil
	}}

	e.SubmitSync(node, nil, func(map[*variable.Var]any, error) {}, "owner")
	<-started

	shutdownDone := make(chan struct{})
	go func() {
		e.Shutdown()
		close(shutdownDone)
	}()

	select {
	case <-shutdownDone:
		t.Fatal("Shutdown should block until the in-flight body returns")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-shutdownDone:
	case <-time.After(time.Second):
		t.Fatal("Shutdown did not return after the in-flight body completed")
	}
}

func TestSubmissionCancelRemovesUnstartedJob(t *testing.T) {
	// ThreadMax 0 so the worker pool never drains the queue: Cancel
	// must find the job still pending.
	e := New(&Config{AsyncMax: 1, ThreadMax: 0})
	defer e.Shutdown()

	node := stubExecutable{fn: func(ctx context.Context, in map[*variable.Var]any) (map[*variable.Var]any, error) {
		return nil, nil
	}}

	called := false
	sub := e.SubmitSync(node, nil, func(map[*variable.Var]any, error) { called = true }, "owner")

	if !sub.Cancel() {
		t.Fatal("Cancel() should succeed on a job no worker can have claimed")
	}
	if sub.Cancel() {
		t.Fatal("Cancel() should fail the second time: already removed")
	}
	if called {
		t.Fatal("a canceled submission's callback must never run")
	}
}

func TestStealPendingSyncRunsJobInlineAndSkipsOtherOwners(t *testing.T) {
	e := New(&Config{AsyncMax: 1, ThreadMax: 0})
	defer e.Shutdown()

	node := stubExecutable{fn: func(ctx context.Context, in map[*variable.Var]any) (map[*variable.Var]any, error) {
		return map[*variable.Var]any{}, nil
	}}

	var otherCalled, mineCalled bool
	e.SubmitSync(node, nil, func(map[*variable.Var]any, error) { otherCalled = true }, "other-tree")
	e.SubmitSync(node, nil, func(map[*variable.Var]any, error) { mineCalled = true }, "my-tree")

	run, ok := e.StealPendingSync("my-tree")
	if !ok {
		t.Fatal("expected a pending job owned by my-tree")
	}
	run()

	if !mineCalled {
		t.Fatal("stolen job's callback should have run inline")
	}
	if otherCalled {
		t.Fatal("StealPendingSync must not touch jobs owned by a different scope tree")
	}

	if _, ok := e.StealPendingSync("my-tree"); ok {
		t.Fatal("my-tree's only pending job was already stolen")
	}
	if _, ok := e.StealPendingSync("other-tree"); !ok {
		t.Fatal("other-tree's job should still be pending")
	}
}
