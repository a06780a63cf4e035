package api

import (
	"context"

	"codeberg.org/mutker/pidashd/internal/containers"
	"codeberg.org/mutker/pidashd/internal/metrics"
	"codeberg.org/mutker/pidashd/internal/notes"
	"codeberg.org/mutker/pidashd/internal/weather"
)

// SystemSource provides host information and on-demand samples.
type SystemSource interface {
	Collect() (metrics.Sample, error)
	Info() (metrics.SystemInfo, error)
}

// HistoryReader serves time-windowed history queries.
type HistoryReader interface {
	EntriesSince(secondsAgo, currentTime int64) []metrics.HistoryEntry
}

// NoteStore is the persistence surface the notes routes need.
type NoteStore interface {
	List() []notes.Note
	Get(id string) (notes.Note, error)
	Create(title, content string) (notes.Note, error)
	Update(id string, title, content *string) (notes.Note, error)
	Delete(id string) error
}

// WeatherSource returns the current weather report.
type WeatherSource interface {
	Current(ctx context.Context) (weather.Data, error)
}

// ContainerManager exposes container lifecycle control.
type ContainerManager interface {
	List(ctx context.Context) ([]containers.Container, error)
	Start(ctx context.Context, containerID string) (string, error)
	Stop(ctx context.Context, containerID string) (string, error)
	Restart(ctx context.Context, containerID string) (string, error)
	Update(ctx context.Context, containerID string) (name, newID string, err error)
}
