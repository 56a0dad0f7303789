// Package chanqueue implements the bounded buffer on top of a buffered Go
// channel. The channel already provides blocking enqueue/dequeue and FIFO
// ordering, so this variant contributes no synchronization logic of its own.
package chanqueue

type Queue[T any] struct {
	ch chan T
}

func New[T any](capacity int) *Queue[T] {
	// Enforce a minimum capacity of 1. A zero-capacity Go channel is an
	// unbuffered rendezvous, not a zero-capacity buffer.
	if capacity < 1 {
		capacity = 1
	}
	return &Queue[T]{
		ch: make(chan T, capacity),
	}
}

// Put blocks while the channel buffer is full.
func (q *Queue[T]) Put(item T) {
	q.ch <- item
}

// Get blocks while the channel is empty and open. After Finish, remaining
// items are drained in order and then Get reports false.
func (q *Queue[T]) Get() (T, bool) {
	item, ok := <-q.ch
	return item, ok
}

func (q *Queue[T]) Len() int {
	return len(q.ch)
}

func (q *Queue[T]) Cap() int {
	return cap(q.ch)
}

// Finish closes the channel. Put must not be called afterwards.
func (q *Queue[T]) Finish() {
	close(q.ch)
}
