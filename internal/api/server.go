package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/flightwatch/flight-replay/internal/replay"
	"github.com/flightwatch/flight-replay/internal/types"
)

// Metrics counts API-level activity. Nil-able.
type Metrics interface {
	IncrementSeeks()
	IncrementEventJumps()
}

// Server exposes replay sessions over HTTP
type Server struct {
	manager *replay.Manager
	metrics Metrics
	router  chi.Router
}

// New creates a new API server around a session manager
func New(manager *replay.Manager, metrics Metrics) *Server {
	s := &Server{
		manager: manager,
		metrics: metrics,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.handleOpenSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleCloseSession)
			r.Post("/start", s.handleStart)
			r.Post("/stop", s.handleStop)
			r.Post("/seek", s.handleSeek)
			r.Post("/speed", s.handleSpeed)
			r.Post("/distance-tool", s.handleDistanceTool)
			r.Get("/frame", s.handleFrame)
			r.Get("/events", s.handleEvents)
			r.Post("/events/{idx}/jump", s.handleEventJump)
		})
	})
	s.router = r
	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type openSessionRequest struct {
	PrimaryFlightID string   `json:"primary_flight_id"`
	OtherFlightIDs  []string `json:"other_flight_ids,omitempty"`
}

type sessionResponse struct {
	ID              string              `json:"id"`
	PrimaryFlightID string              `json:"primary_flight_id"`
	TrackIDs        []string            `json:"track_ids"`
	State           types.PlaybackState `json:"state"`
	EventCount      int                 `json:"event_count"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req openSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PrimaryFlightID == "" {
		writeError(w, http.StatusBadRequest, "primary_flight_id is required")
		return
	}

	session, err := s.manager.Open(r.Context(), req.PrimaryFlightID, req.OtherFlightIDs)
	if err != nil {
		log.Printf("Failed to open session for %s: %v", req.PrimaryFlightID, err)
		writeError(w, http.StatusBadGateway, "failed to load any track for the requested flights")
		return
	}

	writeJSON(w, http.StatusCreated, sessionToResponse(session))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sessionToResponse(session))
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.manager.Close(id); err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	session.Start()
	writeJSON(w, http.StatusOK, session.State())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	session.Stop()
	writeJSON(w, http.StatusOK, session.State())
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	var req struct {
		T float64 `json:"t"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session.Seek(req.T)
	if s.metrics != nil {
		s.metrics.IncrementSeeks()
	}
	writeJSON(w, http.StatusOK, session.State())
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	var req struct {
		Multiplier int `json:"multiplier"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := session.SetSpeed(req.Multiplier); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, session.State())
}

func (s *Server) handleDistanceTool(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session.SetDistanceTool(req.Enabled)
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": req.Enabled})
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, session.Frame())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	events := session.Events()
	if events == nil {
		events = []types.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleEventJump(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	idx, err := strconv.Atoi(chi.URLParam(r, "idx"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "event index must be an integer")
		return
	}

	camera, err := session.JumpToEvent(idx)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if s.metrics != nil {
		s.metrics.IncrementEventJumps()
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"state":  session.State(),
		"camera": camera,
	})
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*replay.Session, bool) {
	id := chi.URLParam(r, "id")
	session, ok := s.manager.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return session, true
}

func sessionToResponse(session *replay.Session) sessionResponse {
	return sessionResponse{
		ID:              session.ID,
		PrimaryFlightID: session.PrimaryID,
		TrackIDs:        session.TrackIDs(),
		State:           session.State(),
		EventCount:      len(session.Events()),
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
