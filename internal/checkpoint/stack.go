package checkpoint

import "errors"

// ErrStackEmpty reports a pop with no checkpoints on the stack.
var ErrStackEmpty = errors.New("checkpoint stack empty")

// Stack is a bounded LIFO of checkpoint handles, most-recent-last. It holds
// no disk state itself: eviction hands the evicted handles back so the
// caller can delete their directories.
//
// Not safe for concurrent use; the Controller serializes all access behind
// its lock.
type Stack struct {
	items []*Checkpoint
}

// NewStack creates an empty stack.
func NewStack() *Stack {
	return &Stack{}
}

// Push appends a checkpoint. A nil checkpoint (empty-workspace snapshot) is
// a no-op.
func (st *Stack) Push(cp *Checkpoint) {
	if cp == nil {
		return
	}
	st.items = append(st.items, cp)
}

// Trim evicts oldest-first until the stack holds at most max entries and
// returns the evicted checkpoints for the caller to delete. Eviction always
// removes the front entry: bounded history depth, not LRU.
func (st *Stack) Trim(max int) []*Checkpoint {
	if max < 1 {
		max = 1
	}
	var evicted []*Checkpoint
	for len(st.items) > max {
		evicted = append(evicted, st.items[0])
		st.items = st.items[1:]
	}
	return evicted
}

// Pop removes and returns the most recent checkpoint, or ErrStackEmpty.
func (st *Stack) Pop() (*Checkpoint, error) {
	if len(st.items) == 0 {
		return nil, ErrStackEmpty
	}
	cp := st.items[len(st.items)-1]
	st.items = st.items[:len(st.items)-1]
	return cp, nil
}

// Len returns the number of checkpoints on the stack.
func (st *Stack) Len() int {
	return len(st.items)
}

// Clear empties the in-memory stack. It deletes nothing on disk; callers
// delete directories first or use the store's DeleteRoot.
func (st *Stack) Clear() {
	st.items = nil
}
