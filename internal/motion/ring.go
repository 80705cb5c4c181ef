package motion

// Ring is a fixed-capacity FIFO. Pushing into a full ring silently evicts
// the oldest value.
type Ring[T any] struct {
	data []T
	pos  int
	full bool
}

func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{data: make([]T, capacity)}
}

func (r *Ring[T]) Push(v T) {
	r.data[r.pos] = v
	r.pos++
	if r.pos >= len(r.data) {
		r.pos = 0
		r.full = true
	}
}

func (r *Ring[T]) Len() int {
	if r.full {
		return len(r.data)
	}
	return r.pos
}

func (r *Ring[T]) Cap() int { return len(r.data) }

func (r *Ring[T]) Full() bool { return r.full }

// AppendTo appends the contents in insertion order to dst and returns the
// extended slice.
func (r *Ring[T]) AppendTo(dst []T) []T {
	if r.full {
		dst = append(dst, r.data[r.pos:]...)
	}
	return append(dst, r.data[:r.pos]...)
}

// Slice returns a copy of the contents in insertion order.
func (r *Ring[T]) Slice() []T {
	return r.AppendTo(make([]T, 0, r.Len()))
}

func (r *Ring[T]) Reset() {
	var zero T
	for i := range r.data {
		r.data[i] = zero
	}
	r.pos = 0
	r.full = false
}
