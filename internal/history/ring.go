package history

// ring is a fixed-capacity double-ended queue. Pushing onto a full ring
// evicts the element at the opposite end.
type ring[T any] struct {
	buf   []T
	head  int
	count int
}

func newRing[T any](capacity int) *ring[T] {
	return &ring[T]{buf: make([]T, capacity)}
}

func (r *ring[T]) len() int { return r.count }

func (r *ring[T]) at(i int) T {
	return r.buf[(r.head+i)%len(r.buf)]
}

// pushBack appends v, dropping the front element when full.
func (r *ring[T]) pushBack(v T) {
	if len(r.buf) == 0 {
		return
	}
	if r.count == len(r.buf) {
		r.buf[r.head] = v
		r.head = (r.head + 1) % len(r.buf)
		return
	}
	r.buf[(r.head+r.count)%len(r.buf)] = v
	r.count++
}

// pushFront prepends v, dropping the back element when full.
func (r *ring[T]) pushFront(v T) {
	if len(r.buf) == 0 {
		return
	}
	r.head = (r.head - 1 + len(r.buf)) % len(r.buf)
	r.buf[r.head] = v
	if r.count < len(r.buf) {
		r.count++
	}
}

func (r *ring[T]) popBack() (T, bool) {
	var zero T
	if r.count == 0 {
		return zero, false
	}
	i := (r.head + r.count - 1) % len(r.buf)
	v := r.buf[i]
	r.buf[i] = zero
	r.count--
	return v, true
}

func (r *ring[T]) popFront() (T, bool) {
	var zero T
	if r.count == 0 {
		return zero, false
	}
	v := r.buf[r.head]
	r.buf[r.head] = zero
	r.head = (r.head + 1) % len(r.buf)
	r.count--
	return v, true
}

func (r *ring[T]) clear() {
	var zero T
	for i := range r.buf {
		r.buf[i] = zero
	}
	r.head, r.count = 0, 0
}
