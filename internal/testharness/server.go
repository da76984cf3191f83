// Package testharness provides an in-memory Strata server for testing
// SDK code against real HTTP and SSE plumbing without network
// dependencies.
package testharness

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// Registration is one recorded subscription push.
type Registration struct {
	ClientID      string   `json:"clientId"`
	Subscriptions []string `json:"subscriptions"`
}

// Server is an in-memory Strata backend. It serves the realtime SSE
// endpoint, records subscription registrations, and keeps a naive record
// store for the CRUD surface.
type Server struct {
	server *httptest.Server

	mu            sync.Mutex
	nextClient    int
	conns         map[string]*conn // keyed by client id
	registrations []Registration
	records       map[string]map[string]map[string]any // collection -> id -> record
	nextRecord    int
}

type conn struct {
	frames chan string
	closed chan struct{}
}

// NewServer starts an in-memory Strata server.
func NewServer() *Server {
	s := &Server{
		conns:   make(map[string]*conn),
		records: make(map[string]map[string]map[string]any),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/realtime", s.handleRealtime)
	mux.HandleFunc("/api/collections/", s.handleCollections)
	s.server = httptest.NewServer(mux)
	return s
}

// URL returns the server base URL.
func (s *Server) URL() string {
	return s.server.URL
}

// Close shuts the server down and drops every open stream.
func (s *Server) Close() {
	s.mu.Lock()
	for _, c := range s.conns {
		close(c.closed)
	}
	s.conns = make(map[string]*conn)
	s.mu.Unlock()
	s.server.Close()
}

// Registrations returns every recorded subscription push in arrival order.
func (s *Server) Registrations() []Registration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Registration, len(s.registrations))
	copy(out, s.registrations)
	return out
}

// LastRegistration returns the most recent subscription push.
func (s *Server) LastRegistration() (Registration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.registrations) == 0 {
		return Registration{}, false
	}
	return s.registrations[len(s.registrations)-1], true
}

// ClientIDs returns the ids of the currently connected stream clients.
func (s *Server) ClientIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.conns))
	for id := range s.conns {
		ids = append(ids, id)
	}
	return ids
}

// Publish sends a data frame to every connected stream client.
func (s *Server) Publish(topic, action string, record map[string]any) error {
	payload, err := json.Marshal(map[string]any{
		"topic":  topic,
		"action": action,
		"record": record,
	})
	if err != nil {
		return err
	}
	frame := fmt.Sprintf("event: message\ndata: %s\n\n", payload)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conns {
		select {
		case c.frames <- frame:
		case <-c.closed:
		}
	}
	return nil
}

// DropConnections closes every open stream, simulating a server-side
// failure. Clients are expected to reconnect.
func (s *Server) DropConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conns {
		close(c.closed)
	}
	s.conns = make(map[string]*conn)
}

// handleRealtime serves the SSE stream (GET) and the registration
// endpoint (POST).
func (s *Server) handleRealtime(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleStream(w, r)
	case http.MethodPost:
		s.handleRegister(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	s.mu.Lock()
	s.nextClient++
	clientID := fmt.Sprintf("client-%d", s.nextClient)
	c := &conn{
		frames: make(chan string, 64),
		closed: make(chan struct{}),
	}
	s.conns[clientID] = c
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if cur, ok := s.conns[clientID]; ok && cur == c {
			delete(s.conns, clientID)
		}
		s.mu.Unlock()
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "event: connect\ndata: {\"clientId\":%q}\n\n", clientID)
	flusher.Flush()

	for {
		select {
		case frame := <-c.frames:
			if _, err := fmt.Fprint(w, frame); err != nil {
				return
			}
			flusher.Flush()
		case <-c.closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var reg Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid registration body")
		return
	}
	if reg.ClientID == "" {
		s.writeError(w, http.StatusBadRequest, "clientId is required")
		return
	}

	s.mu.Lock()
	known := s.conns[reg.ClientID] != nil
	if known {
		s.registrations = append(s.registrations, reg)
	}
	s.mu.Unlock()

	if !known {
		s.writeError(w, http.StatusNotFound, "unknown client")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCollections serves a minimal record CRUD surface:
//
//	GET    /api/collections/{c}/records
//	POST   /api/collections/{c}/records
//	GET    /api/collections/{c}/records/{id}
//	PATCH  /api/collections/{c}/records/{id}
//	DELETE /api/collections/{c}/records/{id}
func (s *Server) handleCollections(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/collections/")
	parts := strings.Split(rest, "/")
	if len(parts) < 2 || parts[1] != "records" {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}
	collection := parts[0]

	if len(parts) == 2 {
		switch r.Method {
		case http.MethodGet:
			s.listRecords(w, collection)
		case http.MethodPost:
			s.createRecord(w, r, collection)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	id := parts[2]
	switch r.Method {
	case http.MethodGet:
		s.getRecord(w, collection, id)
	case http.MethodPatch:
		s.updateRecord(w, r, collection, id)
	case http.MethodDelete:
		s.deleteRecord(w, collection, id)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) listRecords(w http.ResponseWriter, collection string) {
	s.mu.Lock()
	items := make([]map[string]any, 0, len(s.records[collection]))
	for _, rec := range s.records[collection] {
		items = append(items, rec)
	}
	s.mu.Unlock()

	s.writeJSON(w, http.StatusOK, map[string]any{
		"page":       1,
		"perPage":    len(items),
		"totalItems": len(items),
		"totalPages": 1,
		"items":      items,
	})
}

func (s *Server) createRecord(w http.ResponseWriter, r *http.Request, collection string) {
	var rec map[string]any
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid record body")
		return
	}

	s.mu.Lock()
	s.nextRecord++
	id := fmt.Sprintf("rec-%d", s.nextRecord)
	rec["id"] = id
	if s.records[collection] == nil {
		s.records[collection] = make(map[string]map[string]any)
	}
	s.records[collection][id] = rec
	s.mu.Unlock()

	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) getRecord(w http.ResponseWriter, collection, id string) {
	s.mu.Lock()
	rec, ok := s.records[collection][id]
	s.mu.Unlock()
	if !ok {
		s.writeError(w, http.StatusNotFound, "record not found")
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) updateRecord(w http.ResponseWriter, r *http.Request, collection, id string) {
	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid record body")
		return
	}

	s.mu.Lock()
	rec, ok := s.records[collection][id]
	if ok {
		for k, v := range patch {
			if k == "id" {
				continue
			}
			rec[k] = v
		}
	}
	s.mu.Unlock()

	if !ok {
		s.writeError(w, http.StatusNotFound, "record not found")
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) deleteRecord(w http.ResponseWriter, collection, id string) {
	s.mu.Lock()
	_, ok := s.records[collection][id]
	if ok {
		delete(s.records[collection], id)
	}
	s.mu.Unlock()

	if !ok {
		s.writeError(w, http.StatusNotFound, "record not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{"message": message})
}
