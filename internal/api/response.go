package api

import (
	"encoding/json"
	"net/http"
	"time"

	"codeberg.org/mutker/pidashd/internal/containers"
	"codeberg.org/mutker/pidashd/internal/errors"
	"codeberg.org/mutker/pidashd/internal/logger"
	"codeberg.org/mutker/pidashd/internal/metrics"
	"codeberg.org/mutker/pidashd/internal/notes"
	"codeberg.org/mutker/pidashd/internal/weather"
)

const (
	codeOK    = "ok"
	codeError = "error"
)

// envelope is the common part of every response body.
type envelope struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

func okEnvelope(message string) envelope {
	return envelope{
		Code:      codeOK,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

func errorEnvelope(message string) envelope {
	return envelope{
		Code:      codeError,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

type systemInfoResponse struct {
	envelope
	Info metrics.SystemInfo `json:"info"`
}

type systemMetricsResponse struct {
	envelope
	Metrics metrics.Sample `json:"metrics"`
}

type metricsHistoryResponse struct {
	envelope
	Entries []metrics.HistoryEntry `json:"entries"`
}

type notesResponse struct {
	envelope
	Notes []notes.Note `json:"notes"`
}

type noteResponse struct {
	envelope
	Note notes.Note `json:"note"`
}

type weatherResponse struct {
	envelope
	Weather weather.Data `json:"weather"`
}

type containersResponse struct {
	envelope
	Containers []containers.Container `json:"containers"`
}

type containerActionResponse struct {
	envelope
	Name        string `json:"name"`
	ContainerID string `json:"container_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Warn().Err(err).Msg("Failed to write response body")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorEnvelope(message))
}

// statusForError maps coded domain errors to HTTP statuses. Uncoded errors
// stay internal.
func statusForError(err error) int {
	switch errors.CodeOf(err) {
	case notes.ErrNoteNotFound, containers.ErrNotFound:
		return http.StatusNotFound
	case containers.ErrDaemonUnavailable:
		return http.StatusServiceUnavailable
	case containers.ErrUntaggedImage:
		return http.StatusConflict
	case weather.ErrFetchFailed, weather.ErrUpstreamStatus, weather.ErrDecodeFailed, weather.ErrNoGeocodeMatch:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
