package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/viewsmith/viewsmith/internal/syncer"
	"github.com/viewsmith/viewsmith/pkg/model"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// componentSummary is one row of the component listing.
type componentSummary struct {
	ID    string `json:"id"`
	Path  string `json:"path"`
	State string `json:"state"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	ids, err := s.engine.Discover()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	sort.Strings(ids)
	out := make([]componentSummary, 0, len(ids))
	for _, id := range ids {
		out = append(out, componentSummary{
			ID:    id,
			Path:  s.engine.PathFor(id),
			State: s.engine.State(id).String(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "*")
	if id == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("component identifier is required"))
		return
	}
	// A tracked component answers from the engine's last synced model;
	// reloading here would silently discard pending edits and open
	// conflicts.
	if m, ok := s.engine.Model(id); ok {
		writeJSON(w, http.StatusOK, m)
		return
	}
	m, err := s.engine.Load(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "*")
	if id == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("component identifier is required"))
		return
	}
	var body editRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	m := body.Model
	if m == nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("model is required"))
		return
	}
	m.ID = id
	if err := s.engine.Edit(m); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	if body.Flush {
		s.engine.Flush(id)
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"id":    id,
		"state": s.engine.State(id).String(),
	})
}

type editRequest struct {
	Model *model.ComponentModel `json:"model"`
	Flush bool                  `json:"flush,omitempty"`
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "*")
	if id == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("component identifier is required"))
		return
	}
	var body struct {
		Strategy string `json:"strategy"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	m, err := s.engine.Resolve(id, syncer.Strategy(body.Strategy))
	if err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// handleEvents streams engine notifications as server-sent events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("streaming unsupported"))
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.notifier.Subscribe()
	defer s.notifier.Unsubscribe(ch)

	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
			flusher.Flush()
		}
	}
}
