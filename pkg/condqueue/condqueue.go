// Package condqueue implements the bounded buffer with an explicit mutex and
// condition variables. Nothing here delegates blocking to a ready-made
// concurrent queue: the wait/notify protocol is spelled out, with the
// mandatory predicate-recheck loop on every wakeup.
package condqueue

import (
	"sync"

	"github.com/eapache/queue"
)

// Queue is a mutex-and-condition-variable bounded FIFO. The backing store is
// an unsynchronized ring buffer; all access to it happens under mu.
type Queue[T any] struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond
	items    *queue.Queue
	capacity int
	finished bool
}

func New[T any](capacity int) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	q := &Queue[T]{
		items:    queue.New(),
		capacity: capacity,
	}
	q.notFull = sync.NewCond(&q.mu)
	q.notEmpty = sync.NewCond(&q.mu)
	return q
}

// Put appends item, waiting on notFull while the buffer is at capacity.
// The predicate is re-checked in a loop after every wakeup; a single signal
// never implies the buffer actually has room.
func (q *Queue[T]) Put(item T) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.items.Length() == q.capacity {
		q.notFull.Wait()
	}
	q.items.Add(item)
	q.notEmpty.Signal()
}

// Get removes and returns the oldest item, waiting on notEmpty while the
// buffer is empty and the producer has not finished. When the buffer is
// empty and finished is set, Get reports false instead of blocking.
func (q *Queue[T]) Get() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.items.Length() == 0 && !q.finished {
		q.notEmpty.Wait()
	}
	if q.items.Length() == 0 {
		var zero T
		return zero, false
	}
	item := q.items.Remove().(T)
	q.notFull.Signal()
	return item, true
}

func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Length()
}

func (q *Queue[T]) Cap() int {
	return q.capacity
}

// Finish sets the finished flag under the lock and broadcasts so a consumer
// parked on an empty buffer does not deadlock.
func (q *Queue[T]) Finish() {
	q.mu.Lock()
	q.finished = true
	q.notEmpty.Broadcast()
	q.mu.Unlock()
}
