package metrics

import (
	"context"
	"time"

	"codeberg.org/mutker/pidashd/internal/logger"
)

// Sampler drives the freshness and boundedness of a History: each cycle it
// prunes entries beyond the retention window, collects one sample and
// appends it. Collection failures skip the cycle; the loop only stops when
// its context is cancelled.
type Sampler struct {
	source   Source
	history  *History
	recorder Recorder
	interval time.Duration
	maxAge   int64
}

// NewSampler wires a sampler to its collaborators. recorder may be nil when
// no archive is configured. maxAgeSeconds is the same retention horizon the
// history query clamps against.
func NewSampler(source Source, history *History, recorder Recorder, interval time.Duration, maxAgeSeconds int64) *Sampler {
	return &Sampler{
		source:   source,
		history:  history,
		recorder: recorder,
		interval: interval,
		maxAge:   maxAgeSeconds,
	}
}

// Run executes sampling cycles until ctx is cancelled. The first cycle runs
// immediately so the dashboard has a data point before the first interval
// elapses. Cancellation is observed at the loop top and during the
// inter-cycle sleep; it never interrupts a cycle mid-flight.
func (s *Sampler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.cycle(ctx, time.Now().Unix())

	for {
		select {
		case <-ctx.Done():
			logger.Debug().Msg("Sampler stopped")
			return
		case <-ticker.C:
			s.cycle(ctx, time.Now().Unix())
		}
	}
}

// cycle prunes before appending so the buffer never transiently exceeds the
// retention window by more than one sample.
func (s *Sampler) cycle(ctx context.Context, now int64) {
	s.history.CleanupOldEntries(s.maxAge, now)

	sample, err := s.source.Collect()
	if err != nil {
		logger.Warn().Err(err).Msg("Sample collection failed, skipping cycle")
		return
	}

	entry := HistoryEntry{Sample: sample, Timestamp: now}
	s.history.AddEntry(entry)

	if s.recorder != nil {
		if err := s.recorder.Record(ctx, entry); err != nil {
			logger.Warn().Err(err).Msg("Failed to record sample to telemetry")
		}
	}
}
