package deque

const minCapacity = 8

// Deque is a growable ring buffer with O(1) push and pop at both ends.
// It is not safe for concurrent use; the owner serializes access.
type Deque[T any] struct {
	buf   []T
	head  int
	count int
}

// New creates a deque able to hold capacity items before growing.
func New[T any](capacity int) *Deque[T] {
	if capacity < minCapacity {
		capacity = minCapacity
	}
	return &Deque[T]{buf: make([]T, capacity)}
}

// Len returns the number of items.
func (d *Deque[T]) Len() int {
	return d.count
}

// Empty reports whether the deque holds no items.
func (d *Deque[T]) Empty() bool {
	return d.count == 0
}

// PushBack appends an item at the tail.
func (d *Deque[T]) PushBack(item T) {
	if d.count == len(d.buf) {
		d.grow()
	}
	d.buf[(d.head+d.count)%len(d.buf)] = item
	d.count++
}

// PushFront inserts an item at the head.
func (d *Deque[T]) PushFront(item T) {
	if d.count == len(d.buf) {
		d.grow()
	}
	d.head = (d.head - 1 + len(d.buf)) % len(d.buf)
	d.buf[d.head] = item
	d.count++
}

// Front returns a pointer to the head item, or nil when empty.
// The pointer is invalidated by the next push.
func (d *Deque[T]) Front() *T {
	if d.count == 0 {
		return nil
	}
	return &d.buf[d.head]
}

// Back returns a pointer to the tail item, or nil when empty.
func (d *Deque[T]) Back() *T {
	if d.count == 0 {
		return nil
	}
	return &d.buf[(d.head+d.count-1)%len(d.buf)]
}

// PopFront removes and returns the head item.
func (d *Deque[T]) PopFront() (T, bool) {
	var zero T
	if d.count == 0 {
		return zero, false
	}
	item := d.buf[d.head]
	d.buf[d.head] = zero
	d.head = (d.head + 1) % len(d.buf)
	d.count--
	return item, true
}

// PopBack removes and returns the tail item.
func (d *Deque[T]) PopBack() (T, bool) {
	var zero T
	if d.count == 0 {
		return zero, false
	}
	idx := (d.head + d.count - 1) % len(d.buf)
	item := d.buf[idx]
	d.buf[idx] = zero
	d.count--
	return item, true
}

// At returns the i-th item counted from the head.
func (d *Deque[T]) At(i int) (T, bool) {
	var zero T
	if i < 0 || i >= d.count {
		return zero, false
	}
	return d.buf[(d.head+i)%len(d.buf)], true
}

// Each calls fn for every item from head to tail until fn returns false.
func (d *Deque[T]) Each(fn func(T) bool) {
	for i := 0; i < d.count; i++ {
		if !fn(d.buf[(d.head+i)%len(d.buf)]) {
			return
		}
	}
}

// Clear drops every item and keeps the allocated buffer.
func (d *Deque[T]) Clear() {
	var zero T
	for i := 0; i < d.count; i++ {
		d.buf[(d.head+i)%len(d.buf)] = zero
	}
	d.head = 0
	d.count = 0
}

func (d *Deque[T]) grow() {
	next := make([]T, len(d.buf)*2)
	for i := 0; i < d.count; i++ {
		next[i] = d.buf[(d.head+i)%len(d.buf)]
	}
	d.buf = next
	d.head = 0
}
