package metrics_test

import (
	"testing"

	"codeberg.org/mutker/pidashd/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAt(cpu float64) metrics.Sample {
	return metrics.Sample{
		CPUUsage:    cpu,
		MemoryUsage: 60.2,
		DiskUsage:   70.1,
		Uptime:      123456,
		Temperature: 55.0,
	}
}

// fillHistory appends count entries spaced spacing seconds apart, starting
// at start.
func fillHistory(h *metrics.History, start, spacing int64, count int) []int64 {
	timestamps := make([]int64, 0, count)
	for i := 0; i < count; i++ {
		ts := start + int64(i)*spacing
		h.AddEntry(metrics.HistoryEntry{Sample: sampleAt(float64(i)), Timestamp: ts})
		timestamps = append(timestamps, ts)
	}
	return timestamps
}

func timestampsOf(entries []metrics.HistoryEntry) []int64 {
	out := make([]int64, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Timestamp)
	}
	return out
}

func TestEntriesSinceWindow(t *testing.T) {
	h := metrics.NewHistory()
	fillHistory(h, 1000, 60, 10) // 1000, 1060, ..., 1540

	entries := h.EntriesSince(300, 1540)

	require.Len(t, entries, 6)
	assert.Equal(t, []int64{1240, 1300, 1360, 1420, 1480, 1540}, timestampsOf(entries))
}

func TestEntriesSinceDoesNotMutate(t *testing.T) {
	h := metrics.NewHistory()
	fillHistory(h, 1000, 60, 10)

	h.EntriesSince(60, 1540)
	h.EntriesSince(0, 1540)

	assert.Equal(t, 10, h.Len(), "reads must never discard entries")
}

func TestCleanupOldEntries(t *testing.T) {
	h := metrics.NewHistory()
	fillHistory(h, 1000, 60, 10)

	h.CleanupOldEntries(300, 1540)

	require.Equal(t, 6, h.Len())
	entries := h.EntriesSince(1540, 1540)
	for _, e := range entries {
		assert.GreaterOrEqual(t, e.Timestamp, int64(1240), "every survivor is inside the window")
	}
}

func TestCleanupIdempotent(t *testing.T) {
	h := metrics.NewHistory()
	fillHistory(h, 1000, 60, 10)

	h.CleanupOldEntries(300, 1540)
	first := h.EntriesSince(1540, 1540)

	h.CleanupOldEntries(300, 1540)
	second := h.EntriesSince(1540, 1540)

	assert.Equal(t, first, second)
}

func TestCleanupPreservesOrder(t *testing.T) {
	h := metrics.NewHistory()
	want := fillHistory(h, 1000, 60, 10)[4:] // timestamps >= 1240

	h.CleanupOldEntries(300, 1540)

	assert.Equal(t, want, timestampsOf(h.EntriesSince(1540, 1540)))
}

func TestEmptyHistory(t *testing.T) {
	h := metrics.NewHistory()

	assert.Empty(t, h.EntriesSince(300, 1000))

	h.CleanupOldEntries(300, 1000)
	assert.Zero(t, h.Len())
}

func TestEntriesSinceInclusiveBoundary(t *testing.T) {
	h := metrics.NewHistory()
	h.AddEntry(metrics.HistoryEntry{Sample: sampleAt(1), Timestamp: 2000})
	h.AddEntry(metrics.HistoryEntry{Sample: sampleAt(2), Timestamp: 2000})

	entries := h.EntriesSince(0, 2000)

	require.Len(t, entries, 2, "entries stamped exactly now are included when the window is zero")
	assert.Equal(t, float64(1), entries[0].Sample.CPUUsage)
	assert.Equal(t, float64(2), entries[1].Sample.CPUUsage)
}

func TestEntriesSinceMonotonicInWindow(t *testing.T) {
	h := metrics.NewHistory()
	fillHistory(h, 1000, 60, 10)

	// A narrower window always yields a subsequence of a wider one
	windows := []int64{0, 60, 120, 300, 600, 1540}
	var previous []metrics.HistoryEntry
	for _, w := range windows {
		current := h.EntriesSince(w, 1540)
		assert.True(t, len(current) >= len(previous), "window %d", w)
		if len(previous) > 0 {
			assert.Equal(t, previous, current[len(current)-len(previous):], "window %d", w)
		}
		previous = current
	}
}
