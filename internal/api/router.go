package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// defaultWSPath is used when the websocket config leaves the path empty.
const defaultWSPath = "/ws"

// welcomeMessage is the fixed greeting served at the root.
const welcomeMessage = "欢迎使用智能家居控制系统"

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware())
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllow, "method not allowed")
	})

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)

	// "/devices" and "/devices/" both reach the subrouter's "/".
	r.Route("/devices", func(r chi.Router) {
		r.Get("/", s.handleListDevices)
		r.Post("/", s.handleCreateDevice)
		r.Get("/{device_id}", s.handleGetDevice)
	})

	wsPath := s.wsCfg.Path
	if wsPath == "" {
		wsPath = defaultWSPath
	}
	r.Get(wsPath, s.handleWebSocket)

	return r
}

// handleRoot returns the welcome payload.
func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": welcomeMessage})
}

// handleHealth is the liveness probe. It does not touch the store.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
