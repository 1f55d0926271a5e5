// Package variable defines the logical variables that link graph nodes
// together. A variable has no identity beyond reference equality; it is
// either value-only or may refer to a mutable object.
package variable

import (
	"fmt"
	"sync/atomic"
)

var nameCounter int64

// Var is an opaque token identifying a dataflow edge. Two Vars are equal
// iff they are the same pointer.
type Var struct {
	name     string
	mutable  bool
}

// New creates a fresh value-only variable. If name is empty a unique
// name is generated.
func New(name string) *Var {
	return &Var{name: autoName(name)}
}

// NewMutable creates a fresh variable that may refer to a mutable object.
func NewMutable(name string) *Var {
	return &Var{name: autoName(name), mutable: true}
}

func autoName(name string) string {
	if name != "" {
		return name
	}
	n := atomic.AddInt64(&nameCounter, 1)
	return fmt.Sprintf("var%d", n)
}

// Name returns the variable's human-readable name (for logging/debugging
// only; it is not part of identity).
func (v *Var) Name() string {
	return v.name
}

// IsMutable reports whether this variable may refer to a mutable object.
func (v *Var) IsMutable() bool {
	return v != nil && v.mutable
}

// ReadOnly wraps a mutable-capable Var to mark a task as only observing
// the mutable behind it, never writing it. The scheduler does not
// consult this wrapper: its reader-or-writer registration against the
// scoreboard comes from graph.ReadEntry.ReadOnly (see graph.ReadOnly).
type ReadOnly struct {
	V *Var
}

// Of wraps v in a ReadOnly marker. Panics if v is not mutable-capable,
// since only mutable-capable variables can be borrowed read-only.
func Of(v *Var) ReadOnly {
	if !v.IsMutable() {
		panic("variable: ReadOnly wrapper requires a mutable-capable Var")
	}
	return ReadOnly{V: v}
}

// Name implements the same identity surface as Var for read-set
// bookkeeping convenience.
func (r ReadOnly) Name() string {
	return r.V.Name()
}
