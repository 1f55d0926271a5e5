package scoreboard

import "sort"

// Scoreboard indexes one Board per ownership-root object. A scheduler
// owns exactly one Scoreboard for its scope; all mutation happens under
// the scheduler's own lock, so Scoreboard itself does no locking.
type Scoreboard struct {
	boards map[any]*Board
}

// New creates an empty scoreboard.
func New() *Scoreboard {
	return &Scoreboard{boards: make(map[any]*Board)}
}

func (s *Scoreboard) board(object any) *Board {
	b, ok := s.boards[object]
	if !ok {
		b = NewBoard()
		s.boards[object] = b
	}
	return b
}

// AddReader registers task as a reader of object. Returns true iff
// there is no conflict.
func (s *Scoreboard) AddReader(object any, task Task) bool {
	return s.board(object).AddReader(task)
}

// AddWriter registers task as the writer of object. Returns true iff
// there is no conflict.
func (s *Scoreboard) AddWriter(object any, task Task) bool {
	return s.board(object).AddWriter(task)
}

// ChangeToWriter upgrades task's existing reader registration on object
// to writer semantics. Returns true iff the result is no-conflict.
func (s *Scoreboard) ChangeToWriter(object any, task Task) bool {
	return s.board(object).ChangeToWriter(task)
}

// RemoveWaiter removes task from object's board and returns the tasks
// that should have their scoreboard-slot dependence cleared as a
// result (the new head's members, if the removed node was the head).
// If the board is left empty, it is dropped from the index.
func (s *Scoreboard) RemoveWaiter(object any, task Task) []Task {
	b, ok := s.boards[object]
	if !ok {
		return nil
	}
	woken := b.RemoveWaiter(task)
	if b.Empty() {
		delete(s.boards, object)
	}
	return woken
}

// MergeAccessQueues merges src's board into dst's board (called when
// the ownership union-find merges src's ownership tree into dst's). The
// merged queue is built by replaying both boards' entries in task-id
// order through a fresh board, which reconstructs the same
// split/coalesce invariants as if every entry had been added to a
// single board from the start. src is dropped from the index; dst's
// entry now refers to the merged board.
func (s *Scoreboard) MergeAccessQueues(srcObject, dstObject any) {
	srcBoard, hasSrc := s.boards[srcObject]
	dstBoard, hasDst := s.boards[dstObject]
	delete(s.boards, srcObject)

	if !hasSrc {
		return
	}
	if !hasDst {
		s.boards[dstObject] = srcBoard
		return
	}

	entries := append(srcBoard.entries(), dstBoard.entries()...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].id < entries[j].id })

	merged := NewBoard()
	for _, e := range entries {
		if e.isReader {
			merged.AddReader(e.task)
		} else {
			merged.AddWriter(e.task)
		}
	}
	s.boards[dstObject] = merged
}

// Board exposes the raw board for object, for introspection and tests.
// Returns nil if object has no registrations.
func (s *Scoreboard) Board(object any) *Board {
	return s.boards[object]
}
