package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/maca/robotgrid/logger"
	"github.com/maca/robotgrid/monitor"
	"github.com/maca/robotgrid/robot/service"
	"github.com/maca/robotgrid/robot/view"
	"github.com/maca/robotgrid/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service   service.MotionService
	hub       *websocket.Hub
	router    *mux.Router
	staticDir string
}

// NewServer creates a new API server. staticDir is the directory served
// at the root path; empty disables static serving.
func NewServer(motionService service.MotionService, hub *websocket.Hub, staticDir string) *Server {
	s := &Server{
		service:   motionService,
		hub:       hub,
		router:    mux.NewRouter(),
		staticDir: staticDir,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Robot state
	api.HandleFunc("/sessions/{id}/state", s.handleGetState).Methods("GET")
	api.HandleFunc("/sessions/{id}/view", s.handleGetView).Methods("GET")
	api.HandleFunc("/sessions/{id}/log", s.handleGetEventLog).Methods("GET")
	api.HandleFunc("/sessions/{id}/reset", s.handleReset).Methods("POST")

	// Input events
	api.HandleFunc("/sessions/{id}/keydown", s.handleKeyDown).Methods("POST")
	api.HandleFunc("/sessions/{id}/keyup", s.handleKeyUp).Methods("POST")
	api.HandleFunc("/sessions/{id}/controls/press", s.handleControlPress).Methods("POST")
	api.HandleFunc("/sessions/{id}/controls/release", s.handleControlRelease).Methods("POST")
	api.HandleFunc("/sessions/{id}/toggle", s.handleToggleMode).Methods("POST")
	api.HandleFunc("/sessions/{id}/interrupt", s.handleInterrupt).Methods("POST")
	api.HandleFunc("/sessions/{id}/script", s.handleRunScript).Methods("POST")

	// Configuration
	api.HandleFunc("/configs", s.handleListConfigs).Methods("GET")

	// Health and metrics
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.Handle("/metrics", monitor.Handler())

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Static files
	if s.staticDir != "" {
		s.router.PathPrefix("/").Handler(http.FileServer(http.Dir(s.staticDir)))
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConfigID string `json:"config_id,omitempty"`
	}

	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	session, err := s.service.CreateSession(r.Context(), req.ConfigID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger.Log.Infow("session created", "session", session.ID, "config", session.ConfigName)
	respondJSON(w, http.StatusCreated, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"sessions": sessions,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	session, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// State Handlers

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	snap, err := s.service.GetSnapshot(r.Context(), sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, snap)
}

func (s *Server) handleGetView(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	snap, err := s.service.GetSnapshot(r.Context(), sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	if err := view.Render(w, *snap); err != nil {
		logger.Log.Errorw("svg render failed", "session", sessionID, "error", err)
	}
}

func (s *Server) handleGetEventLog(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	opts := service.LogOptions{
		Page:  1,
		Limit: 50,
		Order: "desc",
	}

	query := r.URL.Query()
	if pageStr := query.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			opts.Page = p
		}
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			opts.Limit = l
		}
	}
	if order := query.Get("order"); order == "asc" || order == "desc" {
		opts.Order = order
	}

	log, err := s.service.GetEventLog(r.Context(), sessionID, opts)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, log)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	snap, err := s.service.Reset(r.Context(), sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "Robot reset successfully",
		"snapshot": snap,
	})
}

// Input Handlers

func (s *Server) handleKeyDown(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.KeyDown(r.Context(), sessionID, req.Key)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleKeyUp(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.KeyUp(r.Context(), sessionID, req.Key)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleControlPress(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Control string `json:"control"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.ControlDown(r.Context(), sessionID, req.Control)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleControlRelease(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	result, err := s.service.ControlUp(r.Context(), sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleToggleMode(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	result, err := s.service.ToggleMode(r.Context(), sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleInterrupt(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	result, err := s.service.Interrupt(r.Context(), sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleRunScript(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Script string `json:"script"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Script == "" {
		respondError(w, http.StatusBadRequest, "Script is required")
		return
	}

	result, err := s.service.RunScript(r.Context(), sessionID, req.Script)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	logger.Log.Infow("script replayed",
		"session", sessionID,
		"steps", result.StepsExecuted,
		"dropped", result.DroppedInputs,
		"duration_ms", result.DurationMs)

	respondJSON(w, http.StatusOK, result)
}

// Configuration Handlers

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.service.ListConfigs(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, configs)
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	// Verify session exists
	if _, err := s.service.GetSession(context.Background(), sessionID); err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, sessionID)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
