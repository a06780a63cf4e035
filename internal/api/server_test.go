package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"codeberg.org/mutker/pidashd/internal/containers"
	"codeberg.org/mutker/pidashd/internal/errors"
	"codeberg.org/mutker/pidashd/internal/metrics"
	"codeberg.org/mutker/pidashd/internal/notes"
	"codeberg.org/mutker/pidashd/internal/weather"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSystem struct {
	sample    metrics.Sample
	info      metrics.SystemInfo
	collected int
	fail      bool
}

func (f *fakeSystem) Collect() (metrics.Sample, error) {
	if f.fail {
		return metrics.Sample{}, errors.New().New(metrics.ErrCollectCPU)
	}
	f.collected++
	return f.sample, nil
}

func (f *fakeSystem) Info() (metrics.SystemInfo, error) {
	if f.fail {
		return metrics.SystemInfo{}, errors.New().New(metrics.ErrSystemInfo)
	}
	return f.info, nil
}

type fakeWeather struct {
	data weather.Data
	err  error
}

func (f *fakeWeather) Current(_ context.Context) (weather.Data, error) {
	if f.err != nil {
		return weather.Data{}, f.err
	}
	return f.data, nil
}

type fakeContainers struct {
	listed []containers.Container
	err    error
}

func (f *fakeContainers) List(_ context.Context) ([]containers.Container, error) {
	return f.listed, f.err
}

func (f *fakeContainers) Start(_ context.Context, _ string) (string, error) {
	return "test-container", f.err
}

func (f *fakeContainers) Stop(_ context.Context, _ string) (string, error) {
	return "test-container", f.err
}

func (f *fakeContainers) Restart(_ context.Context, _ string) (string, error) {
	return "test-container", f.err
}

func (f *fakeContainers) Update(_ context.Context, _ string) (string, string, error) {
	return "test-container", "ffffffffffff", f.err
}

type testEnv struct {
	server  *Server
	system  *fakeSystem
	history *metrics.History
	weather *fakeWeather
	engine  *fakeContainers
}

func newTestEnv(t *testing.T, apiKey string) *testEnv {
	t.Helper()

	store, err := notes.NewStore(t.TempDir())
	require.NoError(t, err)

	env := &testEnv{
		system: &fakeSystem{
			sample: metrics.Sample{CPUUsage: 42.5, MemoryUsage: 60.0, DiskUsage: 70.0, Uptime: 3600, Temperature: 52.1},
			info:   metrics.SystemInfo{Hostname: "pi", System: "linux", Machine: "aarch64"},
		},
		history: metrics.NewHistory(),
		weather: &fakeWeather{data: weather.Data{LocationName: "Test Location", Temperature: 21.5}},
		engine:  &fakeContainers{},
	}

	env.server = NewServer(
		Config{Host: "127.0.0.1", Port: 8080, APIKey: apiKey, MaxHistoryDuration: 1800},
		Deps{
			System:     env.system,
			History:    env.history,
			Notes:      store,
			Weather:    env.weather,
			Containers: env.engine,
		},
	)

	return env
}

func (e *testEnv) request(t *testing.T, method, path, apiKey string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	recorder := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(recorder, req)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body
}

func TestHealthSkipsAuthentication(t *testing.T) {
	env := newTestEnv(t, "secret")

	recorder := env.request(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	body := decodeBody(t, recorder)
	assert.Equal(t, "ok", body["code"])
}

func TestAuthentication(t *testing.T) {
	env := newTestEnv(t, "secret")

	recorder := env.request(t, http.MethodGet, "/system/metrics", "", nil)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	recorder = env.request(t, http.MethodGet, "/system/metrics", "wrong", nil)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	recorder = env.request(t, http.MethodGet, "/system/metrics", "secret", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestAuthenticationDisabledWithoutKey(t *testing.T) {
	env := newTestEnv(t, "")

	recorder := env.request(t, http.MethodGet, "/system/metrics", "", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestSystemInfo(t *testing.T) {
	env := newTestEnv(t, "")

	recorder := env.request(t, http.MethodGet, "/system/info", "", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	body := decodeBody(t, recorder)
	info, ok := body["info"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "pi", info["hostname"])
	assert.Equal(t, "aarch64", info["machine"])
}

func TestSystemMetrics(t *testing.T) {
	env := newTestEnv(t, "")

	recorder := env.request(t, http.MethodGet, "/system/metrics", "", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	body := decodeBody(t, recorder)
	sample, ok := body["metrics"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 42.5, sample["cpu_usage"])
	assert.Equal(t, 1, env.system.collected)
}

func TestSystemMetricsCollectorFailure(t *testing.T) {
	env := newTestEnv(t, "")
	env.system.fail = true

	recorder := env.request(t, http.MethodGet, "/system/metrics", "", nil)
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
}

func TestMetricsHistoryValidation(t *testing.T) {
	env := newTestEnv(t, "")

	for _, query := range []string{"", "?last_n_seconds=0", "?last_n_seconds=-5", "?last_n_seconds=abc"} {
		recorder := env.request(t, http.MethodGet, "/system/metrics/history"+query, "", nil)
		assert.Equal(t, http.StatusBadRequest, recorder.Code, "query %q", query)
	}
}

func TestMetricsHistoryWindow(t *testing.T) {
	env := newTestEnv(t, "")

	now := time.Now().Unix()
	for _, age := range []int64{2000, 900, 300, 0} {
		env.history.AddEntry(metrics.HistoryEntry{
			Sample:    metrics.Sample{CPUUsage: float64(age)},
			Timestamp: now - age,
		})
	}
	env.server.now = func() time.Time { return time.Unix(now, 0) }

	recorder := env.request(t, http.MethodGet, "/system/metrics/history?last_n_seconds=600", "", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	body := decodeBody(t, recorder)
	entries, ok := body["entries"].([]any)
	require.True(t, ok)
	assert.Len(t, entries, 2)
}

func TestMetricsHistoryClampsOversizedWindow(t *testing.T) {
	env := newTestEnv(t, "")

	now := time.Now().Unix()
	env.history.AddEntry(metrics.HistoryEntry{Timestamp: now - 2500})
	env.history.AddEntry(metrics.HistoryEntry{Timestamp: now - 600})
	env.server.now = func() time.Time { return time.Unix(now, 0) }

	// A request beyond max_history_duration (1800) is clamped, so the
	// 2500-second-old entry stays out of the response
	recorder := env.request(t, http.MethodGet, "/system/metrics/history?last_n_seconds=999999", "", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	body := decodeBody(t, recorder)
	entries, ok := body["entries"].([]any)
	require.True(t, ok)
	assert.Len(t, entries, 1)
}

func TestNotesLifecycle(t *testing.T) {
	env := newTestEnv(t, "")

	recorder := env.request(t, http.MethodPost, "/notes", "", map[string]string{
		"title":   "Shopping",
		"content": "Milk",
	})
	require.Equal(t, http.StatusCreated, recorder.Code)

	created := decodeBody(t, recorder)["note"].(map[string]any)
	id := created["id"].(string)
	require.NotEmpty(t, id)

	recorder = env.request(t, http.MethodGet, "/notes/"+id, "", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = env.request(t, http.MethodPut, "/notes/"+id, "", map[string]string{"content": "Milk and eggs"})
	require.Equal(t, http.StatusOK, recorder.Code)
	updated := decodeBody(t, recorder)["note"].(map[string]any)
	assert.Equal(t, "Shopping", updated["title"], "omitted title keeps its value")
	assert.Equal(t, "Milk and eggs", updated["content"])

	recorder = env.request(t, http.MethodGet, "/notes", "", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	listed := decodeBody(t, recorder)["notes"].([]any)
	assert.Len(t, listed, 1)

	recorder = env.request(t, http.MethodDelete, "/notes/"+id, "", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = env.request(t, http.MethodGet, "/notes/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestCreateNoteTitleValidation(t *testing.T) {
	env := newTestEnv(t, "")

	recorder := env.request(t, http.MethodPost, "/notes", "", map[string]string{"title": "", "content": "x"})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	long := strings.Repeat("a", 201)
	recorder = env.request(t, http.MethodPost, "/notes", "", map[string]string{"title": long, "content": "x"})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestNoteNotFound(t *testing.T) {
	env := newTestEnv(t, "")

	recorder := env.request(t, http.MethodGet, "/notes/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)

	recorder = env.request(t, http.MethodDelete, "/notes/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestWeather(t *testing.T) {
	env := newTestEnv(t, "")

	recorder := env.request(t, http.MethodGet, "/weather", "", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	body := decodeBody(t, recorder)
	data, ok := body["weather"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Test Location", data["location_name"])
}

func TestWeatherUpstreamFailure(t *testing.T) {
	env := newTestEnv(t, "")
	env.weather.err = errors.New().WithData(weather.ErrUpstreamStatus, http.StatusBadGateway)

	recorder := env.request(t, http.MethodGet, "/weather", "", nil)
	assert.Equal(t, http.StatusBadGateway, recorder.Code)

	body := decodeBody(t, recorder)
	assert.Equal(t, "error", body["code"])
}

func TestListContainers(t *testing.T) {
	env := newTestEnv(t, "")
	env.engine.listed = []containers.Container{
		{ID: "abc123def456", Name: "test-container", Image: "test/image:latest", Status: "running", Port: "8080"},
	}

	recorder := env.request(t, http.MethodGet, "/containers", "", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	body := decodeBody(t, recorder)
	listed, ok := body["containers"].([]any)
	require.True(t, ok)
	require.Len(t, listed, 1)
	assert.Equal(t, "test-container", listed[0].(map[string]any)["name"])
}

func TestContainersDaemonUnavailable(t *testing.T) {
	env := newTestEnv(t, "")
	env.engine.err = errors.New().New(containers.ErrDaemonUnavailable)

	recorder := env.request(t, http.MethodGet, "/containers", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
}

func TestContainerActions(t *testing.T) {
	env := newTestEnv(t, "")

	for _, action := range []string{"start", "stop", "restart"} {
		recorder := env.request(t, http.MethodPost, "/containers/abc123def456/"+action, "", nil)
		require.Equal(t, http.StatusOK, recorder.Code, action)

		body := decodeBody(t, recorder)
		assert.Equal(t, "test-container", body["name"], action)
	}
}

func TestContainerUpdateReturnsNewID(t *testing.T) {
	env := newTestEnv(t, "")

	recorder := env.request(t, http.MethodPost, "/containers/abc123def456/update", "", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	body := decodeBody(t, recorder)
	assert.Equal(t, "ffffffffffff", body["container_id"])
}

func TestContainerNotFound(t *testing.T) {
	env := newTestEnv(t, "")
	env.engine.err = errors.New().WithData(containers.ErrNotFound, "missing")

	recorder := env.request(t, http.MethodPost, "/containers/missing/start", "", nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}
