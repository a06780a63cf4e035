package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"unicode/utf8"

	"codeberg.org/mutker/pidashd/internal/logger"
	"github.com/gorilla/mux"
)

const maxTitleLength = 200

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, okEnvelope("Service is healthy"))
}

func (s *Server) handleSystemInfo(w http.ResponseWriter, _ *http.Request) {
	info, err := s.system.Info()
	if err != nil {
		s.fail(w, err, "Failed to retrieve system info")
		return
	}

	writeJSON(w, http.StatusOK, systemInfoResponse{
		envelope: okEnvelope("Retrieved system info successfully"),
		Info:     info,
	})
}

func (s *Server) handleSystemMetrics(w http.ResponseWriter, _ *http.Request) {
	sample, err := s.system.Collect()
	if err != nil {
		s.fail(w, err, "Failed to retrieve system metrics")
		return
	}

	writeJSON(w, http.StatusOK, systemMetricsResponse{
		envelope: okEnvelope("Retrieved system metrics successfully"),
		Metrics:  sample,
	})
}

func (s *Server) handleMetricsHistory(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("last_n_seconds")
	lastN, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || lastN < 1 {
		writeError(w, http.StatusBadRequest, "last_n_seconds must be a positive integer")
		return
	}

	// Requests beyond the retention window are clamped, not rejected
	window := lastN
	if maxWindow := int64(s.cfg.MaxHistoryDuration); window > maxWindow {
		window = maxWindow
	}

	entries := s.history.EntriesSince(window, s.now().Unix())

	writeJSON(w, http.StatusOK, metricsHistoryResponse{
		envelope: okEnvelope("Retrieved system metrics history successfully"),
		Entries:  entries,
	})
}

type createNoteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type updateNoteRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

func validTitle(title string) bool {
	length := utf8.RuneCountInString(title)
	return length >= 1 && length <= maxTitleLength
}

func (s *Server) handleListNotes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, notesResponse{
		envelope: okEnvelope("Retrieved notes successfully"),
		Notes:    s.notes.List(),
	})
}

func (s *Server) handleGetNote(w http.ResponseWriter, r *http.Request) {
	note, err := s.notes.Get(mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, err, "Note not found")
		return
	}

	writeJSON(w, http.StatusOK, noteResponse{
		envelope: okEnvelope("Retrieved note successfully"),
		Note:     note,
	})
}

func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	var req createNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if !validTitle(req.Title) {
		writeError(w, http.StatusBadRequest, "Title must be between 1 and 200 characters")
		return
	}

	note, err := s.notes.Create(req.Title, req.Content)
	if err != nil {
		s.fail(w, err, "Failed to create note")
		return
	}

	writeJSON(w, http.StatusCreated, noteResponse{
		envelope: okEnvelope("Created note successfully"),
		Note:     note,
	})
}

func (s *Server) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	var req updateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Empty fields keep their previous value
	title, content := req.Title, req.Content
	if title != nil && *title == "" {
		title = nil
	}
	if content != nil && *content == "" {
		content = nil
	}

	if title != nil && !validTitle(*title) {
		writeError(w, http.StatusBadRequest, "Title must be between 1 and 200 characters")
		return
	}

	note, err := s.notes.Update(mux.Vars(r)["id"], title, content)
	if err != nil {
		s.fail(w, err, "Failed to update note")
		return
	}

	writeJSON(w, http.StatusOK, noteResponse{
		envelope: okEnvelope("Updated note successfully"),
		Note:     note,
	})
}

func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := s.notes.Delete(mux.Vars(r)["id"]); err != nil {
		s.fail(w, err, "Failed to delete note")
		return
	}

	writeJSON(w, http.StatusOK, okEnvelope("Deleted note successfully"))
}

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	data, err := s.weather.Current(r.Context())
	if err != nil {
		s.fail(w, err, "Failed to retrieve weather data")
		return
	}

	writeJSON(w, http.StatusOK, weatherResponse{
		envelope: okEnvelope("Retrieved weather data successfully"),
		Weather:  data,
	})
}

func (s *Server) handleListContainers(w http.ResponseWriter, r *http.Request) {
	listed, err := s.containers.List(r.Context())
	if err != nil {
		s.fail(w, err, "Failed to list containers")
		return
	}

	writeJSON(w, http.StatusOK, containersResponse{
		envelope:   okEnvelope("Retrieved containers successfully"),
		Containers: listed,
	})
}

func (s *Server) handleContainerAction(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		var (
			name  string
			newID string
			err   error
		)

		switch action {
		case "start":
			name, err = s.containers.Start(r.Context(), id)
		case "stop":
			name, err = s.containers.Stop(r.Context(), id)
		case "restart":
			name, err = s.containers.Restart(r.Context(), id)
		case "update":
			name, newID, err = s.containers.Update(r.Context(), id)
		}

		if err != nil {
			s.fail(w, err, "Container "+action+" failed")
			return
		}

		writeJSON(w, http.StatusOK, containerActionResponse{
			envelope:    okEnvelope("Container " + action + " succeeded"),
			Name:        name,
			ContainerID: newID,
		})
	}
}

// fail logs the error and writes an error envelope with a status derived
// from the error code.
func (s *Server) fail(w http.ResponseWriter, err error, message string) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Msg(message)
	} else {
		logger.Debug().Err(err).Msg(message)
	}

	writeError(w, status, message)
}
