package metrics

import "context"

// Source produces one point-in-time reading of system resource usage.
// A failing source must not stop the sampler; failed cycles are skipped.
type Source interface {
	Collect() (Sample, error)
}

// Recorder receives every successfully sampled entry. Implementations must
// not serve history queries from recorded data; the in-memory history is
// the only query path.
type Recorder interface {
	Record(ctx context.Context, entry HistoryEntry) error
}

// Sample is one immutable reading of system resource usage.
type Sample struct {
	CPUUsage    float64 `json:"cpu_usage"`
	MemoryUsage float64 `json:"memory_usage"`
	DiskUsage   float64 `json:"disk_usage"`
	Uptime      int64   `json:"uptime"`
	Temperature float64 `json:"temperature"`
}

// HistoryEntry is a sample stamped with its collection time (Unix seconds).
// Entries are created only by the sampler and never mutated afterwards.
type HistoryEntry struct {
	Sample    Sample `json:"sample"`
	Timestamp int64  `json:"timestamp"`
}

// SystemInfo describes the host the dashboard runs on.
type SystemInfo struct {
	Hostname    string  `json:"hostname"`
	System      string  `json:"system"`
	Release     string  `json:"release"`
	Version     string  `json:"version"`
	Machine     string  `json:"machine"`
	MemoryTotal float64 `json:"memory_total"`
	DiskTotal   float64 `json:"disk_total"`
}
