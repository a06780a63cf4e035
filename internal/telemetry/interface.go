package telemetry

import (
	"context"

	"codeberg.org/mutker/pidashd/internal/metrics"
)

// Recorder archives sampled entries for offline analysis. The archive is
// write-only from the daemon's point of view: history queries are always
// served from the in-memory store, never from here.
type Recorder interface {
	Record(ctx context.Context, entry metrics.HistoryEntry) error
	Close() error
}

// Repository defines the storage behind a Recorder.
type Repository interface {
	Record(entry metrics.HistoryEntry) error
	Close() error
}
