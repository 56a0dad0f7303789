// Package engine orchestrates a single-producer/single-consumer hand-off run
// over a bounded buffer. The controller owns the source and destination
// sequences, selects one of the interchangeable buffer strategies, spawns
// both roles, joins them, and verifies that every item arrived in order.
package engine

import (
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/queuelab/handoff/internal/buffer"
	"github.com/queuelab/handoff/internal/stats"
)

// Sentinel is the reserved absence marker. Source entries equal to Sentinel
// are skipped by the producer: logged, never enqueued, never counted.
const Sentinel = math.MinInt

// ErrInvalidArgument is returned for a non-positive capacity, a negative
// item count, or an absent explicit source list.
var ErrInvalidArgument = errors.New("invalid argument")

// State tracks the controller lifecycle: Idle -> Running -> Completed.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Reporter receives the outcome of a completed run. The engine only hands
// over the data; formatting and persistence belong to the collaborator.
type Reporter interface {
	Report(Result)
}

// Result is the outcome of one Run invocation.
type Result struct {
	Variant      string
	Capacity     int
	Verified     bool
	Stats        stats.Snapshot
	RoleFailures []error
}

// Engine is the run controller. Capacity and buffer variant are fixed at
// construction; the source sequence and per-run item count vary per
// invocation. Run may be called repeatedly on the same instance.
type Engine struct {
	capacity int
	variant  Variant
	reporter Reporter
	logw     io.Writer
	verbose  bool

	source   []int
	explicit bool

	destMu sync.Mutex
	dest   []int

	stats *stats.Collector
	state atomic.Int32

	failMu   sync.Mutex
	failures []error
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithVariant selects the buffer strategy. Defaults to the channel-backed
// variant.
func WithVariant(v Variant) Option {
	return func(e *Engine) { e.variant = v }
}

// WithReporter attaches a reporting collaborator invoked after every run.
func WithReporter(r Reporter) Option {
	return func(e *Engine) { e.reporter = r }
}

// WithLogOutput directs the per-item trace and skip warnings to w.
func WithLogOutput(w io.Writer) Option {
	return func(e *Engine) { e.logw = w }
}

// WithVerbose enables the per-item produced/consumed trace.
func WithVerbose(verbose bool) Option {
	return func(e *Engine) { e.verbose = verbose }
}

// New validates capacity once, at construction. Runs on the returned engine
// reuse the same capacity and buffer variant.
func New(capacity int, opts ...Option) (*Engine, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: buffer capacity must be greater than 0, got %d", ErrInvalidArgument, capacity)
	}
	e := &Engine{
		capacity: capacity,
		variant:  defaultVariant(),
		logw:     io.Discard,
		stats:    stats.New(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// InitializeSource materializes the dense range [1..count] as the source
// sequence. A count of zero yields a legal empty source.
func (e *Engine) InitializeSource(count int) error {
	if count < 0 {
		return fmt.Errorf("%w: item count must be non-negative, got %d", ErrInvalidArgument, count)
	}
	src := make([]int, count)
	for i := range src {
		src[i] = i + 1
	}
	e.source = src
	e.explicit = false
	return nil
}

// InitializeSourceList installs an explicit source sequence, which may
// contain Sentinel entries and may be empty. Subsequent Run calls transfer
// this list instead of materializing a dense range.
func (e *Engine) InitializeSourceList(items []int) error {
	if items == nil {
		return fmt.Errorf("%w: explicit source list is absent", ErrInvalidArgument)
	}
	e.source = slices.Clone(items)
	e.explicit = true
	return nil
}

// Run transfers the source sequence through a fresh buffer. Unless an
// explicit list was installed, the source is rebuilt as [1..itemCount].
// Statistics and the destination are reset first, then producer and consumer
// run concurrently until both terminate. Role failures do not surface as an
// error here; they show up as Verified=false and partial statistics.
func (e *Engine) Run(itemCount int) (Result, error) {
	if itemCount < 0 {
		return Result{}, fmt.Errorf("%w: item count must be non-negative, got %d", ErrInvalidArgument, itemCount)
	}
	if !e.explicit {
		if err := e.InitializeSource(itemCount); err != nil {
			return Result{}, err
		}
	}

	e.ResetStatistics()
	e.state.Store(int32(StateRunning))

	buf := e.variant.NewBuffer(e.capacity)
	target := e.targetCount()

	e.logf("starting run: variant=%s capacity=%d items=%d\n", e.variant.Name, e.capacity, len(e.source))

	var wg sync.WaitGroup
	wg.Add(2)
	e.stats.MarkStart()
	go func() {
		defer wg.Done()
		e.runProducer(buf)
	}()
	go func() {
		defer wg.Done()
		e.runConsumer(buf, target)
	}()
	wg.Wait()
	e.stats.MarkEnd()

	e.state.Store(int32(StateCompleted))

	res := Result{
		Variant:      e.variant.Name,
		Capacity:     e.capacity,
		Verified:     slices.Equal(e.expected(), e.Destination()),
		Stats:        e.stats.Snapshot(),
		RoleFailures: e.roleFailures(),
	}
	e.logf("run complete: verified=%v produced=%d consumed=%d\n", res.Verified, res.Stats.Produced, res.Stats.Consumed)

	if e.reporter != nil {
		e.reporter.Report(res)
	}
	return res, nil
}

// runProducer walks the source sequence and pushes every non-sentinel item.
// Finish is signaled on the way out even after a panic, so a consumer parked
// on an empty buffer always learns the producer is gone. The reverse is not
// true: a dead consumer leaves a producer blocked on a full buffer forever.
func (e *Engine) runProducer(buf buffer.Buffer[int]) {
	defer func() {
		if r := recover(); r != nil {
			e.recordFailure(fmt.Errorf("producer failed: %v", r))
		}
		buf.Finish()
	}()

	if len(e.source) == 0 {
		e.logf("producer: source is empty, nothing to produce\n")
		return
	}
	for _, item := range e.source {
		if item == Sentinel {
			e.logf("producer: warning: sentinel item detected, skipping\n")
			e.stats.RecordSkipped()
			continue
		}
		start := time.Now()
		buf.Put(item)
		wait := time.Since(start)
		occupancy := buf.Len()
		e.stats.RecordProduced(wait, occupancy)
		if e.verbose {
			e.logf("producer: produced %d | occupancy: %d\n", item, occupancy)
		}
	}
	e.logf("producer: finished producing all items\n")
}

// runConsumer pulls until target items have been appended to the
// destination, or until the buffer reports the producer finished with the
// buffer drained. The destination has its own lock so external readers can
// poll it while consumption is in flight.
func (e *Engine) runConsumer(buf buffer.Buffer[int], target int) {
	defer func() {
		if r := recover(); r != nil {
			e.recordFailure(fmt.Errorf("consumer failed: %v", r))
		}
	}()

	consumed := 0
	for consumed < target {
		start := time.Now()
		item, ok := buf.Get()
		wait := time.Since(start)
		if !ok {
			e.logf("consumer: buffer drained before target of %d, stopping at %d\n", target, consumed)
			break
		}
		e.destMu.Lock()
		e.dest = append(e.dest, item)
		e.destMu.Unlock()
		consumed++
		e.stats.RecordConsumed(wait)
		if e.verbose {
			e.logf("consumer: consumed %d | occupancy: %d | total consumed: %d\n", item, buf.Len(), consumed)
		}
	}
	e.logf("consumer: finished consuming %d items\n", consumed)
}

// targetCount is the number of non-sentinel source items, i.e. how many
// items the consumer must pull for a complete transfer.
func (e *Engine) targetCount() int {
	n := 0
	for _, item := range e.source {
		if item != Sentinel {
			n++
		}
	}
	return n
}

// expected is the source sequence with sentinels removed.
func (e *Engine) expected() []int {
	out := make([]int, 0, len(e.source))
	for _, item := range e.source {
		if item != Sentinel {
			out = append(out, item)
		}
	}
	return out
}

// Source returns a defensive copy of the source sequence.
func (e *Engine) Source() []int {
	out := make([]int, len(e.source))
	copy(out, e.source)
	return out
}

// Destination returns a defensive copy of the destination sequence. Safe to
// call while a run is in progress.
func (e *Engine) Destination() []int {
	e.destMu.Lock()
	defer e.destMu.Unlock()
	out := make([]int, len(e.dest))
	copy(out, e.dest)
	return out
}

// ResetStatistics zeroes all counters, clears the destination sequence and
// any recorded role failures, and returns the controller to the idle state.
func (e *Engine) ResetStatistics() {
	e.stats.Reset()
	e.destMu.Lock()
	e.dest = e.dest[:0]
	e.destMu.Unlock()
	e.failMu.Lock()
	e.failures = nil
	e.failMu.Unlock()
	e.state.Store(int32(StateIdle))
}

// StatisticsSnapshot returns a read-only view of the current statistics.
func (e *Engine) StatisticsSnapshot() stats.Snapshot {
	return e.stats.Snapshot()
}

// Capacity returns the fixed buffer capacity.
func (e *Engine) Capacity() int {
	return e.capacity
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// BufferVariant returns the buffer strategy selected at construction.
func (e *Engine) BufferVariant() Variant {
	return e.variant
}

func (e *Engine) recordFailure(err error) {
	e.failMu.Lock()
	e.failures = append(e.failures, err)
	e.failMu.Unlock()
	e.logf("%v\n", err)
}

func (e *Engine) roleFailures() []error {
	e.failMu.Lock()
	defer e.failMu.Unlock()
	return slices.Clone(e.failures)
}

func (e *Engine) logf(format string, args ...any) {
	fmt.Fprintf(e.logw, format, args...)
}
