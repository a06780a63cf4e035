package metrics

import (
	"context"
	"sync"
	"testing"
	"time"

	"codeberg.org/mutker/pidashd/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu     sync.Mutex
	calls  int
	failOn map[int]bool
}

func (f *fakeSource) Collect() (Sample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.failOn[f.calls] {
		return Sample{}, errors.New().New(ErrCollectCPU)
	}

	return Sample{CPUUsage: float64(f.calls)}, nil
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []HistoryEntry
	err     error
}

func (r *fakeRecorder) Record(_ context.Context, entry HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, entry)
	return nil
}

func TestCycleAppendsStampedEntry(t *testing.T) {
	history := NewHistory()
	source := &fakeSource{}
	s := NewSampler(source, history, nil, time.Second, 1800)

	s.cycle(context.Background(), 5000)

	entries := history.EntriesSince(0, 5000)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(5000), entries[0].Timestamp)
	assert.Equal(t, float64(1), entries[0].Sample.CPUUsage)
}

func TestCycleCleansBeforeAppending(t *testing.T) {
	history := NewHistory()
	history.AddEntry(HistoryEntry{Timestamp: 1000})
	history.AddEntry(HistoryEntry{Timestamp: 4000})

	source := &fakeSource{}
	s := NewSampler(source, history, nil, time.Second, 1800)

	s.cycle(context.Background(), 5000)

	// 1000 is beyond the 1800s window at now=5000; 4000 survives
	assert.Equal(t, []int64{4000, 5000}, timestampsOfEntries(history.EntriesSince(5000, 5000)))
}

func TestFailedCollectionSkipsCycle(t *testing.T) {
	history := NewHistory()
	source := &fakeSource{failOn: map[int]bool{2: true}}
	s := NewSampler(source, history, nil, time.Second, 1800)

	// Five cycles with the second one failing leaves four entries
	for i := 0; i < 5; i++ {
		s.cycle(context.Background(), int64(5000+i))
	}

	assert.Equal(t, 4, history.Len())
	assert.Equal(t, 5, source.callCount(), "a failed cycle still retries on the next one")
}

func TestFailedCollectionLeavesCountUnchanged(t *testing.T) {
	history := NewHistory()
	source := &fakeSource{failOn: map[int]bool{1: true}}
	s := NewSampler(source, history, nil, time.Second, 1800)

	before := history.Len()
	s.cycle(context.Background(), 5000)

	assert.Equal(t, before, history.Len())

	s.cycle(context.Background(), 5001)
	assert.Equal(t, before+1, history.Len(), "sampler recovers on the next successful cycle")
}

func TestRecorderReceivesEntries(t *testing.T) {
	history := NewHistory()
	source := &fakeSource{}
	recorder := &fakeRecorder{}
	s := NewSampler(source, history, recorder, time.Second, 1800)

	s.cycle(context.Background(), 5000)
	s.cycle(context.Background(), 5005)

	require.Len(t, recorder.entries, 2)
	assert.Equal(t, int64(5000), recorder.entries[0].Timestamp)
}

func TestRecorderFailureDoesNotAffectHistory(t *testing.T) {
	history := NewHistory()
	source := &fakeSource{}
	recorder := &fakeRecorder{err: errors.New().New(errors.ErrOperationFailed)}
	s := NewSampler(source, history, recorder, time.Second, 1800)

	s.cycle(context.Background(), 5000)

	assert.Equal(t, 1, history.Len())
}

func TestRunSamplesImmediatelyAndStopsOnCancel(t *testing.T) {
	history := NewHistory()
	source := &fakeSource{}
	s := NewSampler(source, history, nil, 10*time.Millisecond, 1800)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	// The first cycle runs before the first tick
	assert.Eventually(t, func() bool {
		return history.Len() >= 1
	}, time.Second, time.Millisecond)

	// Let a few ticks pass, then cancel
	assert.Eventually(t, func() bool {
		return history.Len() >= 3
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sampler did not observe cancellation")
	}

	// No further cycles after cancellation
	count := source.callCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, count, source.callCount())
}

func timestampsOfEntries(entries []HistoryEntry) []int64 {
	out := make([]int64, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Timestamp)
	}
	return out
}
