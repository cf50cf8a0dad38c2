// Package gateway exposes research runs over HTTP and WebSocket: a REST
// surface for run records and event history, and a WS bridge streaming the
// live event bus to connected clients.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/delver-ai/delver/internal/events"
	"github.com/delver-ai/delver/internal/gateway/ws"
	"github.com/delver-ai/delver/internal/sessions"
)

// Server is the Delver gateway HTTP server.
type Server struct {
	httpServer *http.Server
	hub        *ws.Hub
	bus        *events.Bus
	store      sessions.Store
	researcher ws.Researcher
	host       string
	port       int
}

// NewServer creates a new gateway server. The researcher may be nil, which
// disables run submission but leaves the read-only surface up.
func NewServer(bus *events.Bus, store sessions.Store, researcher ws.Researcher, host string, port int) *Server {
	hub := ws.NewHub(bus, store, researcher)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	s := &Server{
		hub:        hub,
		bus:        bus,
		store:      store,
		researcher: researcher,
		host:       host,
		port:       port,
	}

	// Routes
	r.Get("/api/health", s.handleHealth)
	r.Get("/api/ws", hub.ServeWS)
	r.Get("/api/events", s.handleEvents)
	r.Get("/api/runs", s.handleRuns)
	r.Get("/api/runs/{id}", s.handleRun)
	r.Get("/api/runs/{id}/turns", s.handleRunTurns)
	r.Post("/api/research", s.handleResearch)

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", host, port),
		Handler: r,
	}

	return s
}

// Start begins listening. It blocks until the server is stopped.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	slog.Info("Delver gateway listening", "addr", ln.Addr().String())
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limitStr := r.URL.Query().Get("limit")
	limit := 50
	if limitStr != "" {
		fmt.Sscanf(limitStr, "%d", &limit)
	}

	history := s.bus.History(limit)

	w.Header().Set("Content-Type", "application/json")

	// Format timestamps nicely
	type eventJSON struct {
		ID        string             `json:"id"`
		SessionID string             `json:"session_id,omitempty"`
		Type      string             `json:"type"`
		Timestamp string             `json:"timestamp"`
		Source    events.EventSource `json:"source"`
		Payload   map[string]any     `json:"payload"`
	}

	result := make([]eventJSON, len(history))
	for i, e := range history {
		result[i] = eventJSON{
			ID:        e.ID,
			SessionID: e.SessionID,
			Type:      string(e.Type),
			Timestamp: e.Timestamp.Format(time.RFC3339Nano),
			Source:    e.Source,
			Payload:   e.Payload,
		}
	}

	json.NewEncoder(w).Encode(result)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.List()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(run)
}

func (s *Server) handleRunTurns(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.store.Get(id); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	turns, err := s.store.LoadTurns(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if turns == nil {
		turns = []sessions.Turn{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(turns)
}

func (s *Server) handleResearch(w http.ResponseWriter, r *http.Request) {
	if s.researcher == nil {
		http.Error(w, "research not available", http.StatusServiceUnavailable)
		return
	}

	var body struct {
		Query string `json:"query"`
		Mode  string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Query == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	runID, err := s.researcher.Start(r.Context(), body.Query, body.Mode)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"run_id": runID, "status": "started"})
}
