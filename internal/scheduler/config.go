// Package scheduler implements the dataflow scheduler: one instance
// per scope, scanning a graph.Node chain into schednode.Node instances,
// tracking their dependence counts against a per-scope variable map,
// and dispatching ready nodes to the executor. Grounded on
// original_source/agentgraph/exec/scheduler.py's Scheduler class, with
// the teacher's internal/scheduler worker-pool idiom (sync.Mutex-guarded
// counters, context cancellation, log package) carried over for the
// ambient concurrency/logging style.
package scheduler

// Config bounds a scheduler's scan-ahead window, per spec.md §5.
type Config struct {
	MaxWindow int `yaml:"max_window"`
}

// DefaultConfig mirrors the original draft's agentgraph.config.MAX_WINDOW_SIZE.
func DefaultConfig() *Config {
	return &Config{MaxWindow: 32}
}
