// Package stats accumulates transfer statistics for a single run: item
// counters, cumulative wait times, and the buffer high-water mark. All fields
// are atomics so the producer and consumer can record without sharing a lock.
package stats

import (
	"sync/atomic"
	"time"
)

// Collector gathers counters and timings for one run. It is created fresh
// per controller, reset before each run, and read-only after completion
// until the next reset.
type Collector struct {
	produced     atomic.Int64
	consumed     atomic.Int64
	skipped      atomic.Int64
	producerWait atomic.Int64 // nanoseconds
	consumerWait atomic.Int64 // nanoseconds
	maxOccupancy atomic.Int64
	startNano    atomic.Int64
	endNano      atomic.Int64
}

func New() *Collector {
	return &Collector{}
}

// RecordProduced accounts one successful Put: the time spent blocked and the
// occupancy observed immediately after the item landed.
func (c *Collector) RecordProduced(wait time.Duration, occupancy int) {
	c.produced.Add(1)
	c.producerWait.Add(wait.Nanoseconds())
	c.observeOccupancy(occupancy)
}

// RecordConsumed accounts one successful Get.
func (c *Collector) RecordConsumed(wait time.Duration) {
	c.consumed.Add(1)
	c.consumerWait.Add(wait.Nanoseconds())
}

// RecordSkipped accounts a sentinel item the producer dropped. Skipped items
// never count as produced or consumed.
func (c *Collector) RecordSkipped() {
	c.skipped.Add(1)
}

func (c *Collector) observeOccupancy(occupancy int) {
	occ := int64(occupancy)
	for {
		cur := c.maxOccupancy.Load()
		if occ <= cur || c.maxOccupancy.CompareAndSwap(cur, occ) {
			return
		}
	}
}

func (c *Collector) MarkStart() {
	c.startNano.Store(time.Now().UnixNano())
}

func (c *Collector) MarkEnd() {
	c.endNano.Store(time.Now().UnixNano())
}

// Produced returns the current produced count. Safe to sample mid-run.
func (c *Collector) Produced() int64 { return c.produced.Load() }

// Consumed returns the current consumed count. Safe to sample mid-run.
func (c *Collector) Consumed() int64 { return c.consumed.Load() }

// Reset zeroes every counter and timestamp for a new run.
func (c *Collector) Reset() {
	c.produced.Store(0)
	c.consumed.Store(0)
	c.skipped.Store(0)
	c.producerWait.Store(0)
	c.consumerWait.Store(0)
	c.maxOccupancy.Store(0)
	c.startNano.Store(0)
	c.endNano.Store(0)
}

// Snapshot returns a read-only view of the collected values. The consumed
// counter is read before the produced counter to keep mid-run samples from
// overstating the producer-consumer gap.
func (c *Collector) Snapshot() Snapshot {
	consumed := c.consumed.Load()
	s := Snapshot{
		Produced:     c.produced.Load(),
		Consumed:     consumed,
		Skipped:      c.skipped.Load(),
		ProducerWait: time.Duration(c.producerWait.Load()),
		ConsumerWait: time.Duration(c.consumerWait.Load()),
		MaxOccupancy: int(c.maxOccupancy.Load()),
	}
	start, end := c.startNano.Load(), c.endNano.Load()
	if start > 0 && end > 0 {
		s.Elapsed = time.Duration(end - start)
	}
	return s
}

// Snapshot is an immutable copy of a Collector's state plus derived metrics.
type Snapshot struct {
	Produced     int64         `json:"items_produced"`
	Consumed     int64         `json:"items_consumed"`
	Skipped      int64         `json:"items_skipped"`
	ProducerWait time.Duration `json:"producer_wait_ns"`
	ConsumerWait time.Duration `json:"consumer_wait_ns"`
	MaxOccupancy int           `json:"max_occupancy"`
	Elapsed      time.Duration `json:"elapsed_ns"`
}

// AvgProducerWait is the mean time the producer spent blocked per item.
func (s Snapshot) AvgProducerWait() time.Duration {
	if s.Produced == 0 {
		return 0
	}
	return s.ProducerWait / time.Duration(s.Produced)
}

// AvgConsumerWait is the mean time the consumer spent blocked per item.
func (s Snapshot) AvgConsumerWait() time.Duration {
	if s.Consumed == 0 {
		return 0
	}
	return s.ConsumerWait / time.Duration(s.Consumed)
}

// Utilization is the high-water mark as a percentage of capacity.
func (s Snapshot) Utilization(capacity int) float64 {
	if capacity <= 0 {
		return 0
	}
	return float64(s.MaxOccupancy) / float64(capacity) * 100
}

// Balanced reports whether the produced and consumed counters ended within
// one item of each other.
func (s Snapshot) Balanced() bool {
	diff := s.Produced - s.Consumed
	if diff < 0 {
		diff = -diff
	}
	return diff <= 1
}
