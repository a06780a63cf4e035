package api

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"codeberg.org/mutker/pidashd/internal/errors"
	"codeberg.org/mutker/pidashd/internal/logger"
	"github.com/gorilla/mux"
)

const (
	readTimeout  = 10 * time.Second
	writeTimeout = 30 * time.Second
	idleTimeout  = 60 * time.Second
)

type Config struct {
	Host               string
	Port               int
	APIKey             string
	MaxHistoryDuration int
}

// Deps are the domain components the routes are served from.
type Deps struct {
	System     SystemSource
	History    HistoryReader
	Notes      NoteStore
	Weather    WeatherSource
	Containers ContainerManager
}

// Server is the authenticated HTTP API of the dashboard.
type Server struct {
	cfg        Config
	system     SystemSource
	history    HistoryReader
	notes      NoteStore
	weather    WeatherSource
	containers ContainerManager

	router     *mux.Router
	httpServer *http.Server
	now        func() time.Time
}

func NewServer(cfg Config, deps Deps) *Server {
	s := &Server{
		cfg:        cfg,
		system:     deps.System,
		history:    deps.History,
		notes:      deps.Notes,
		weather:    deps.Weather,
		containers: deps.Containers,
		now:        time.Now,
	}

	if cfg.APIKey == "" {
		logger.Warn().Msg("No API key configured, authentication is disabled")
	}

	s.router = s.routes()
	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:      s.router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(requestLogger)

	// Health stays reachable without credentials
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	authed := r.NewRoute().Subrouter()
	authed.Use(s.authenticate)

	authed.HandleFunc("/system/info", s.handleSystemInfo).Methods(http.MethodGet)
	authed.HandleFunc("/system/metrics", s.handleSystemMetrics).Methods(http.MethodGet)
	authed.HandleFunc("/system/metrics/history", s.handleMetricsHistory).Methods(http.MethodGet)

	authed.HandleFunc("/notes", s.handleListNotes).Methods(http.MethodGet)
	authed.HandleFunc("/notes", s.handleCreateNote).Methods(http.MethodPost)
	authed.HandleFunc("/notes/{id}", s.handleGetNote).Methods(http.MethodGet)
	authed.HandleFunc("/notes/{id}", s.handleUpdateNote).Methods(http.MethodPut)
	authed.HandleFunc("/notes/{id}", s.handleDeleteNote).Methods(http.MethodDelete)

	authed.HandleFunc("/weather", s.handleWeather).Methods(http.MethodGet)

	authed.HandleFunc("/containers", s.handleListContainers).Methods(http.MethodGet)
	for _, action := range []string{"start", "stop", "restart", "update"} {
		authed.HandleFunc("/containers/{id}/"+action, s.handleContainerAction(action)).Methods(http.MethodPost)
	}

	return r
}

// Handler exposes the routing tree, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe blocks serving requests until Shutdown is called.
func (s *Server) ListenAndServe() error {
	logger.Info().Str("addr", s.httpServer.Addr).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.New().Wrap(ErrServeFailed, err)
	}

	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info().Msg("Shutting down HTTP server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return errors.New().Wrap(errors.ErrShutdownFailed, err)
	}

	return nil
}
