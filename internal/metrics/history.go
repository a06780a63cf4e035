package metrics

import "sync"

// History is the time-windowed in-memory sequence of sampled entries.
// It is written by a single sampler goroutine and read concurrently by
// request handlers, so all access goes through the lock.
type History struct {
	mu      sync.RWMutex
	entries []HistoryEntry
}

func NewHistory() *History {
	return &History{}
}

// AddEntry appends an entry to the end of the sequence. The caller
// guarantees monotonically non-decreasing timestamps under normal clock
// behavior; a backward clock step is an accepted limitation.
func (h *History) AddEntry(entry HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, entry)
}

// CleanupOldEntries removes every entry older than maxAgeSeconds relative
// to currentTime, preserving the order of survivors. Idempotent.
func (h *History) CleanupOldEntries(maxAgeSeconds, currentTime int64) {
	cutoff := currentTime - maxAgeSeconds

	h.mu.Lock()
	defer h.mu.Unlock()

	kept := h.entries[:0]
	for _, entry := range h.entries {
		if entry.Timestamp >= cutoff {
			kept = append(kept, entry)
		}
	}
	h.entries = kept
}

// EntriesSince returns, in insertion order, every entry with
// timestamp >= currentTime - secondsAgo. The boundary is inclusive: with
// secondsAgo == 0 an entry stamped exactly currentTime is returned.
// The store is not mutated and the result does not alias internal storage.
func (h *History) EntriesSince(secondsAgo, currentTime int64) []HistoryEntry {
	cutoff := currentTime - secondsAgo

	h.mu.RLock()
	defer h.mu.RUnlock()

	matched := make([]HistoryEntry, 0, len(h.entries))
	for _, entry := range h.entries {
		if entry.Timestamp >= cutoff {
			matched = append(matched, entry)
		}
	}

	return matched
}

// Len returns the number of retained entries.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.entries)
}
