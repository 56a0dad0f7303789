package engine

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queuelab/handoff/internal/buffer"
	"github.com/queuelab/handoff/pkg/chanqueue"
)

// withAllVariants runs fn once per buffer strategy, as a subtest.
func withAllVariants(t *testing.T, fn func(t *testing.T, v Variant)) {
	t.Helper()
	for _, v := range Variants() {
		v := v
		t.Run(v.PkgName, func(t *testing.T) {
			fn(t, v)
		})
	}
}

// runWithTimeout guards against a deadlocked run hanging the whole suite.
func runWithTimeout(t *testing.T, e *Engine, itemCount int) Result {
	t.Helper()
	type outcome struct {
		res Result
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		res, err := e.Run(itemCount)
		ch <- outcome{res, err}
	}()
	select {
	case out := <-ch:
		require.NoError(t, out.err)
		return out.res
	case <-time.After(30 * time.Second):
		t.Fatalf("Run(%d) did not complete within 30s, likely deadlocked", itemCount)
		return Result{}
	}
}

func denseRange(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func TestTransferScenarios(t *testing.T) {
	scenarios := []struct {
		capacity  int
		itemCount int
	}{
		{capacity: 5, itemCount: 20},
		{capacity: 5, itemCount: 0},
		{capacity: 5, itemCount: 1},
		{capacity: 1, itemCount: 10},
		{capacity: 100, itemCount: 50},
	}

	withAllVariants(t, func(t *testing.T, v Variant) {
		for _, sc := range scenarios {
			sc := sc
			t.Run(fmt.Sprintf("cap%d_items%d", sc.capacity, sc.itemCount), func(t *testing.T) {
				e, err := New(sc.capacity, WithVariant(v))
				require.NoError(t, err)

				res := runWithTimeout(t, e, sc.itemCount)

				assert.True(t, res.Verified, "source and destination must match")
				assert.Equal(t, denseRange(sc.itemCount), e.Destination())
				assert.Equal(t, e.Source(), e.Destination())
				assert.Equal(t, int64(sc.itemCount), res.Stats.Produced)
				assert.Equal(t, int64(sc.itemCount), res.Stats.Consumed)
				assert.LessOrEqual(t, res.Stats.MaxOccupancy, sc.capacity)
				assert.Empty(t, res.RoleFailures)
			})
		}
	})
}

func TestOversizedBufferNeverFills(t *testing.T) {
	withAllVariants(t, func(t *testing.T, v Variant) {
		e, err := New(100, WithVariant(v))
		require.NoError(t, err)

		res := runWithTimeout(t, e, 50)
		require.True(t, res.Verified)
		assert.LessOrEqual(t, res.Stats.MaxOccupancy, 50)
		assert.Less(t, res.Stats.Utilization(e.Capacity()), 100.0)
	})
}

func TestConstructionRejectsBadCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1, -100} {
		_, err := New(capacity)
		require.Error(t, err, "capacity %d", capacity)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	}
}

func TestRunRejectsNegativeItemCount(t *testing.T) {
	e, err := New(5)
	require.NoError(t, err)
	_, err = e.Run(-1)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestInitializeSourceRejectsNegativeCount(t *testing.T) {
	e, err := New(5)
	require.NoError(t, err)
	assert.ErrorIs(t, e.InitializeSource(-3), ErrInvalidArgument)
}

func TestInitializeSourceListRejectsNil(t *testing.T) {
	e, err := New(5)
	require.NoError(t, err)
	assert.ErrorIs(t, e.InitializeSourceList(nil), ErrInvalidArgument)
}

func TestSentinelItemsAreSkipped(t *testing.T) {
	withAllVariants(t, func(t *testing.T, v Variant) {
		e, err := New(3, WithVariant(v))
		require.NoError(t, err)
		require.NoError(t, e.InitializeSourceList([]int{1, Sentinel, 2, Sentinel, 3}))

		res := runWithTimeout(t, e, 5)

		assert.True(t, res.Verified)
		assert.Equal(t, []int{1, 2, 3}, e.Destination())
		assert.Equal(t, int64(3), res.Stats.Produced)
		assert.Equal(t, int64(3), res.Stats.Consumed)
		assert.Equal(t, int64(2), res.Stats.Skipped)
	})
}

func TestEmptyExplicitSource(t *testing.T) {
	withAllVariants(t, func(t *testing.T, v Variant) {
		e, err := New(5, WithVariant(v))
		require.NoError(t, err)
		require.NoError(t, e.InitializeSourceList([]int{}))

		res := runWithTimeout(t, e, 0)

		assert.True(t, res.Verified)
		assert.Empty(t, e.Destination())
		assert.Zero(t, res.Stats.Produced)
		assert.Zero(t, res.Stats.Consumed)
	})
}

func TestResetStatistics(t *testing.T) {
	e, err := New(5)
	require.NoError(t, err)
	runWithTimeout(t, e, 10)

	require.NotZero(t, e.StatisticsSnapshot().Produced)
	require.NotEmpty(t, e.Destination())

	e.ResetStatistics()

	s := e.StatisticsSnapshot()
	assert.Zero(t, s.Produced)
	assert.Zero(t, s.Consumed)
	assert.Zero(t, s.Skipped)
	assert.Zero(t, s.ProducerWait)
	assert.Zero(t, s.ConsumerWait)
	assert.Zero(t, s.MaxOccupancy)
	assert.Empty(t, e.Destination())
	assert.Equal(t, StateIdle, e.State())
}

func TestRunIsReentrant(t *testing.T) {
	withAllVariants(t, func(t *testing.T, v Variant) {
		e, err := New(4, WithVariant(v))
		require.NoError(t, err)

		first := runWithTimeout(t, e, 12)
		require.True(t, first.Verified)

		second := runWithTimeout(t, e, 7)
		require.True(t, second.Verified)
		assert.Equal(t, denseRange(7), e.Destination())
		assert.Equal(t, int64(7), second.Stats.Produced)
		assert.Equal(t, int64(7), second.Stats.Consumed)
	})
}

func TestContainersAreDefensiveCopies(t *testing.T) {
	e, err := New(5)
	require.NoError(t, err)
	runWithTimeout(t, e, 5)

	src := e.Source()
	dst := e.Destination()
	src[0] = 999
	dst[0] = 999

	assert.Equal(t, denseRange(5), e.Source())
	assert.Equal(t, denseRange(5), e.Destination())
}

func TestStateTransitions(t *testing.T) {
	e, err := New(5)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, e.State())

	runWithTimeout(t, e, 3)
	assert.Equal(t, StateCompleted, e.State())

	e.ResetStatistics()
	assert.Equal(t, StateIdle, e.State())
}

type capturingReporter struct {
	results []Result
}

func (r *capturingReporter) Report(res Result) {
	r.results = append(r.results, res)
}

func TestReporterReceivesRunOutcome(t *testing.T) {
	rep := &capturingReporter{}
	e, err := New(5, WithReporter(rep))
	require.NoError(t, err)

	runWithTimeout(t, e, 8)

	require.Len(t, rep.results, 1)
	assert.True(t, rep.results[0].Verified)
	assert.Equal(t, 5, rep.results[0].Capacity)
	assert.Equal(t, int64(8), rep.results[0].Stats.Produced)
}

// TestCounterGapStaysBounded samples produced/consumed while a large run is
// in flight. The true gap is always within [0, capacity]; each counter is
// recorded just outside the buffer's critical section, so a sample can skew
// by at most one item on either side.
func TestCounterGapStaysBounded(t *testing.T) {
	const capacity = 5
	withAllVariants(t, func(t *testing.T, v Variant) {
		e, err := New(capacity, WithVariant(v))
		require.NoError(t, err)

		stop := make(chan struct{})
		violation := make(chan string, 1)
		go func() {
			for {
				select {
				case <-stop:
					return
				default:
				}
				s := e.StatisticsSnapshot()
				gap := s.Produced - s.Consumed
				if gap < -1 || gap > capacity+1 {
					select {
					case violation <- fmt.Sprintf("sampled gap %d outside [-1, %d]", gap, capacity+1):
					default:
					}
					return
				}
			}
		}()

		res := runWithTimeout(t, e, 5000)
		close(stop)

		select {
		case msg := <-violation:
			t.Fatal(msg)
		default:
		}
		require.True(t, res.Verified)
		assert.Equal(t, res.Stats.Produced, res.Stats.Consumed)
		assert.LessOrEqual(t, res.Stats.MaxOccupancy, capacity)
	})
}

func TestLookupVariant(t *testing.T) {
	for _, v := range Variants() {
		byPkg, ok := LookupVariant(v.PkgName)
		require.True(t, ok)
		assert.Equal(t, v.Name, byPkg.Name)

		byName, ok := LookupVariant(v.Name)
		require.True(t, ok)
		assert.Equal(t, v.PkgName, byName.PkgName)
	}
	_, ok := LookupVariant("no-such-variant")
	assert.False(t, ok)
}

func TestErrInvalidArgumentIsStable(t *testing.T) {
	_, err := New(0)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

// failingBuffer panics on the first Put, simulating an unexpected failure
// inside the producer role.
type failingBuffer struct {
	inner buffer.Buffer[int]
}

func (f *failingBuffer) Put(item int)     { panic("injected buffer failure") }
func (f *failingBuffer) Get() (int, bool) { return f.inner.Get() }
func (f *failingBuffer) Len() int         { return f.inner.Len() }
func (f *failingBuffer) Cap() int         { return f.inner.Cap() }
func (f *failingBuffer) Finish()          { f.inner.Finish() }

func TestRoleFailureIsIsolated(t *testing.T) {
	faulty := Variant{
		Name:    "Failing",
		PkgName: "failing",
		NewBuffer: func(capacity int) buffer.Buffer[int] {
			return &failingBuffer{inner: chanqueue.New[int](capacity)}
		},
	}
	e, err := New(5, WithVariant(faulty))
	require.NoError(t, err)

	// Run must not propagate the panic; it returns normally with a
	// verification failure and partial statistics.
	res := runWithTimeout(t, e, 10)

	assert.False(t, res.Verified)
	require.Len(t, res.RoleFailures, 1)
	assert.Contains(t, res.RoleFailures[0].Error(), "producer failed")
	assert.Zero(t, res.Stats.Produced)
	assert.Empty(t, e.Destination())
	assert.Equal(t, StateCompleted, e.State())
}
