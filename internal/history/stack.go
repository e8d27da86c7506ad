package history

// DefaultDepth is how many past states a Stack keeps.
const DefaultDepth = 8

// Stack is a bounded undo/redo history over values of type T.
//
// Set is the only operation that records history. Values handed to the
// stack are owned by it; pass a clone function for types that are not
// immutable so later mutation by the caller cannot reach stored snapshots.
type Stack[T any] struct {
	current T
	past    *ring[T]
	future  *ring[T]
	clone   func(T) T
}

// Option configures a Stack.
type Option[T any] func(*Stack[T])

// WithDepth overrides the number of past states kept.
func WithDepth[T any](depth int) Option[T] {
	return func(s *Stack[T]) {
		if depth > 0 {
			s.past = newRing[T](depth)
			s.future = newRing[T](depth)
		}
	}
}

// WithClone sets the function used to snapshot values on entry.
func WithClone[T any](clone func(T) T) Option[T] {
	return func(s *Stack[T]) { s.clone = clone }
}

// New returns a stack whose current value is initial and whose history is
// empty.
func New[T any](initial T, opts ...Option[T]) *Stack[T] {
	s := &Stack[T]{
		past:   newRing[T](DefaultDepth),
		future: newRing[T](DefaultDepth),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.current = s.snapshot(initial)
	return s
}

func (s *Stack[T]) snapshot(v T) T {
	if s.clone == nil {
		return v
	}
	return s.clone(v)
}

// Current returns the present value.
func (s *Stack[T]) Current() T { return s.current }

// Set records the present value in history, discards any redo states and
// makes next current. The oldest state is dropped once the depth is reached.
func (s *Stack[T]) Set(next T) {
	s.past.pushBack(s.current)
	s.future.clear()
	s.current = s.snapshot(next)
}

// SetDirect replaces the present value without touching history. Used for
// updates that must not be undoable, such as loading from storage.
func (s *Stack[T]) SetDirect(next T) {
	s.current = s.snapshot(next)
}

// Undo restores the most recent past state. It reports false and does
// nothing when there is no history.
func (s *Stack[T]) Undo() bool {
	prev, ok := s.past.popBack()
	if !ok {
		return false
	}
	s.future.pushFront(s.current)
	s.current = prev
	return true
}

// Redo re-applies the most recently undone state. It reports false and does
// nothing when nothing has been undone.
func (s *Stack[T]) Redo() bool {
	next, ok := s.future.popFront()
	if !ok {
		return false
	}
	s.past.pushBack(s.current)
	s.current = next
	return true
}

// CanUndo reports whether Undo would change the current value.
func (s *Stack[T]) CanUndo() bool { return s.past.len() > 0 }

// CanRedo reports whether Redo would change the current value.
func (s *Stack[T]) CanRedo() bool { return s.future.len() > 0 }

// Depth returns the number of states available to Undo.
func (s *Stack[T]) Depth() int { return s.past.len() }

// Past returns the undoable states, oldest first.
func (s *Stack[T]) Past() []T {
	out := make([]T, s.past.len())
	for i := range out {
		out[i] = s.past.at(i)
	}
	return out
}
