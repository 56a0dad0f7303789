// Package buffer defines the capability contract shared by every bounded
// buffer strategy. Producer and consumer code is written against this
// interface only, so the underlying synchronization implementation can be
// swapped without touching the roles.
package buffer

// Buffer is a fixed-capacity FIFO hand-off channel between exactly one
// producer and exactly one consumer.
//
// Put and Get block; none of the blocking paths carry a timeout or
// cancellation signal, so a role that stalls forever blocks its counterpart.
type Buffer[T any] interface {
	// Put appends an item, blocking while the buffer is full.
	Put(item T)

	// Get removes and returns the oldest item, blocking while the buffer is
	// empty and the producer has not finished. Once the producer has finished
	// and the buffer is drained, Get returns the zero value and false without
	// blocking.
	Get() (T, bool)

	// Len returns the current occupancy.
	Len() int

	// Cap returns the fixed capacity.
	Cap() int

	// Finish signals that the producer will put no more items. It must be
	// called exactly once, by the producer, after its final Put.
	Finish()
}
