package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"clipforge/internal/config"
	"clipforge/internal/daemon"
	"clipforge/internal/logging"
	"clipforge/internal/queue"
)

const shutdownTimeout = 5 * time.Second

// Server is the daemon's HTTP control surface. A nil *Server is a valid
// disabled server: Start and Stop become no-ops, so callers can wire the API
// unconditionally and let configuration decide whether it runs.
type Server struct {
	cfg    *config.Config
	daemon *daemon.Daemon
	store  *queue.Store
	logger *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

// NewServer builds the HTTP control surface for a running daemon. It returns
// nil when the configured bind address is empty, which disables the API.
func NewServer(cfg *config.Config, d *daemon.Daemon, store *queue.Store, logger *slog.Logger) (*Server, error) {
	if cfg == nil || d == nil || store == nil {
		return nil, errors.New("api server requires config, daemon, and store")
	}
	if strings.TrimSpace(cfg.Paths.APIBind) == "" {
		return nil, nil
	}
	s := &Server{
		cfg:    cfg,
		daemon: d,
		store:  store,
		logger: logger,
	}
	s.server = &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Start binds the configured address and serves until ctx is cancelled or
// Stop is called.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.cfg.Paths.APIBind)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Paths.APIBind, err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server terminated", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	s.log().Info("api server listening", slog.String("address", listener.Addr().String()))
	return nil
}

// Stop drains in-flight requests and closes the listener.
func (s *Server) Stop() {
	if s == nil || s.server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.log().Warn("api server shutdown", logging.Error(err))
	}
}

// Addr reports the bound listen address, or "" before Start.
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()
	// Liveness stays unauthenticated so supervisors can probe it.
	router.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)

	authed := router.PathPrefix("/api").Subrouter()
	authed.Use(s.requireAuth)
	authed.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	authed.HandleFunc("/jobs", s.handleSubmitJob).Methods(http.MethodPost)
	authed.HandleFunc("/jobs", s.handleListJobs).Methods(http.MethodGet)
	authed.HandleFunc("/jobs/{id:[0-9]+}", s.handleGetJob).Methods(http.MethodGet)
	authed.HandleFunc("/jobs/{id:[0-9]+}", s.handleRemoveJob).Methods(http.MethodDelete)
	authed.HandleFunc("/jobs/{id:[0-9]+}/retry", s.handleRetryJob).Methods(http.MethodPost)
	authed.HandleFunc("/jobs/{id:[0-9]+}/resume", s.handleResumeJob).Methods(http.MethodPost)
	authed.HandleFunc("/jobs/{id:[0-9]+}/progress", s.handleProgress).Methods(http.MethodGet)
	authed.HandleFunc("/queue", s.handleClearQueue).Methods(http.MethodDelete)
	authed.HandleFunc("/queue/completed", s.handleClearCompleted).Methods(http.MethodDelete)
	authed.HandleFunc("/queue/failed", s.handleClearFailed).Methods(http.MethodDelete)
	authed.HandleFunc("/queue/reset", s.handleResetStuck).Methods(http.MethodPost)
	authed.HandleFunc("/queue/retry", s.handleRetryAllFailed).Methods(http.MethodPost)
	authed.HandleFunc("/queue/health", s.handleQueueHealth).Methods(http.MethodGet)
	authed.HandleFunc("/queue/database", s.handleDatabaseHealth).Methods(http.MethodGet)
	authed.HandleFunc("/notifications/test", s.handleTestNotification).Methods(http.MethodPost)
	return router
}

// requireAuth guards API routes with bearer token authentication. An empty
// configured token disables the check.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(s.cfg.Paths.APIToken)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		const prefix = "Bearer "
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, prefix) || strings.TrimPrefix(header, prefix) != token {
			s.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Warn("failed to encode api response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, ErrorResponse{Error: message})
}

func (s *Server) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return logging.NewNop()
}
