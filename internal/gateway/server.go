// Package gateway exposes the world over websocket connections plus a small
// authenticated HTTP surface for administration.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/hollowroot/verse/internal/config"
	"github.com/hollowroot/verse/internal/session"
	"github.com/hollowroot/verse/internal/worldserver"
)

// Server accepts websocket clients, bridges their events onto the world
// dispatcher, and serves the admin API. Implements the lifecycle Service
// interface.
type Server struct {
	cfg        config.ServerConfig
	logger     *zap.Logger
	controller *worldserver.Controller
	dispatcher *worldserver.Dispatcher
	sessions   *session.Registry
	httpSrv    *http.Server
}

// NewServer creates a gateway Server.
func NewServer(
	cfg config.ServerConfig,
	controller *worldserver.Controller,
	dispatcher *worldserver.Dispatcher,
	sessions *session.Registry,
	logger *zap.Logger,
) *Server {
	s := &Server{
		cfg:        cfg,
		logger:     logger,
		controller: controller,
		dispatcher: dispatcher,
		sessions:   sessions,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	s.registerAdminRoutes(mux)

	s.httpSrv = &http.Server{
		Addr:    cfg.Addr(),
		Handler: mux,
	}
	return s
}

// Start serves until Stop is called.
func (s *Server) Start() error {
	s.logger.Info("gateway listening", zap.String("addr", s.cfg.Addr()))
	if err := s.httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the HTTP server down, waiting up to the configured timeout for
// in-flight requests.
func (s *Server) Stop() {
	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.logger.Warn("gateway shutdown", zap.Error(err))
	}
}

// Handler exposes the HTTP handler for tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	kind, _ := worldserver.KindOf(err)
	writeJSON(w, statusForKind(kind), map[string]string{
		"error": err.Error(),
		"kind":  string(kind),
	})
}

func statusForKind(kind worldserver.Kind) int {
	switch kind {
	case worldserver.KindRoomNotFound,
		worldserver.KindTeleporterNotFound,
		worldserver.KindTargetRoomNotFound,
		worldserver.KindObjectNotFound,
		worldserver.KindUserNotFound:
		return http.StatusNotFound
	case worldserver.KindPermissionDenied:
		return http.StatusForbidden
	case worldserver.KindDuplicateSession:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
